package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/ssiitsupport/SSI360V2/pkg/password"
	"go.uber.org/zap"
	"gorm.io/gorm/logger"
)

// DBConfig holds database configuration
type DBConfig struct {
	Driver          string        `env:"DB_DRIVER" envDefault:"postgres"`
	Host            string        `env:"DB_HOST" envDefault:"localhost"`
	Port            string        `env:"DB_PORT" envDefault:"5432"`
	User            string        `env:"DB_USER" envDefault:"postgres"`
	Password        string        `env:"DB_PASSWORD" envDefault:"password"`
	DBName          string        `env:"DB_NAME" envDefault:"identity_service"`
	SSLMode         string        `env:"DB_SSL_MODE" envDefault:"disable"`
	MaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" envDefault:"10"`
	MaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" envDefault:"100"`
	ConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"1h"`
	LogLevel        string        `env:"DB_LOG_LEVEL" envDefault:"warn"`
}

// GetDSN returns the connection string for the configured driver
func (c *DBConfig) GetDSN() string {
	if c.Driver == "sqlite" {
		return c.DBName
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// GormLogLevel converts DB_LOG_LEVEL to the gorm logger level
func (c *DBConfig) GormLogLevel() logger.LogLevel {
	switch c.LogLevel {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port string `env:"SERVER_PORT" envDefault:"8081"`
	Env  string `env:"APP_ENV" envDefault:"development"`
}

// JWTConfig holds token signing configuration. Issuer and audience must match between issuance and validation.
type JWTConfig struct {
	SigningKey      string `env:"JWT_SIGNING_KEY" envDefault:"identityservicesecretkey"`
	Issuer          string `env:"JWT_ISSUER" envDefault:"identity-service"`
	Audience        string `env:"JWT_AUDIENCE" envDefault:"identity-clients"`
	ExpirationHours int    `env:"JWT_EXPIRATION_HOURS" envDefault:"24"`
}

// Expiration returns the fixed token lifetime
func (c *JWTConfig) Expiration() time.Duration {
	return time.Duration(c.ExpirationHours) * time.Hour
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `env:"LOG_LEVEL" envDefault:"info"`
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Path    string `env:"METRICS_PATH" envDefault:"/metrics"`
	Version string `env:"SERVICE_VERSION" envDefault:"dev"`
}

// SecurityConfig holds credential hashing configuration
type SecurityConfig struct {
	BcryptCost int `env:"BCRYPT_COST" envDefault:"11"`
}

// SeedConfig controls the bootstrap data created on startup
type SeedConfig struct {
	Enabled       bool   `env:"SEED_ENABLED" envDefault:"true"`
	TenantName    string `env:"SEED_TENANT_NAME" envDefault:"Default Tenant"`
	TenantDomain  string `env:"SEED_TENANT_DOMAIN" envDefault:"default"`
	AdminEmail    string `env:"SEED_ADMIN_EMAIL" envDefault:"admin@default.com"`
	AdminPassword string `env:"SEED_ADMIN_PASSWORD" envDefault:"Admin123!"`
}

// Config holds all configuration
type Config struct {
	DB       DBConfig
	Server   ServerConfig
	JWT      JWTConfig
	Log      LogConfig
	Metrics  MetricsConfig
	Security SecurityConfig
	Seed     SeedConfig
}

// Load loads configuration from an optional .env file and environment variables
func Load() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the service cannot run with
func (c *Config) Validate() error {
	var errs []error
	if c.JWT.SigningKey == "" {
		errs = append(errs, errors.New("JWT_SIGNING_KEY must not be empty"))
	}
	if c.JWT.ExpirationHours <= 0 {
		errs = append(errs, errors.New("JWT_EXPIRATION_HOURS must be positive"))
	}
	if c.Security.BcryptCost < 10 || c.Security.BcryptCost > 12 {
		errs = append(errs, fmt.Errorf("BCRYPT_COST must be between 10 and 12, got %d", c.Security.BcryptCost))
	}
	switch c.DB.Driver {
	case "postgres", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("unsupported DB_DRIVER %q", c.DB.Driver))
	}
	if c.Seed.Enabled {
		if err := password.CheckPolicy(c.Seed.AdminPassword); err != nil {
			errs = append(errs, fmt.Errorf("SEED_ADMIN_PASSWORD: %w", err))
		}
	}
	return errors.Join(errs...)
}

// LogFields returns the non-secret configuration as zap fields
func (c *Config) LogFields() []zap.Field {
	return []zap.Field{
		zap.String("environment", c.Server.Env),
		zap.String("db_driver", c.DB.Driver),
		zap.String("db_host", c.DB.Host),
		zap.String("db_port", c.DB.Port),
		zap.String("db_user", c.DB.User),
		zap.String("db_name", c.DB.DBName),
		zap.String("server_port", c.Server.Port),
		zap.String("jwt_issuer", c.JWT.Issuer),
		zap.String("jwt_audience", c.JWT.Audience),
		zap.Int("jwt_expiration_hours", c.JWT.ExpirationHours),
	}
}
