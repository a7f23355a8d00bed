package database

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/ssiitsupport/SSI360V2/internal/model"
	"github.com/ssiitsupport/SSI360V2/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
)

func TestInitDBSqliteAndMigrate(t *testing.T) {
	cfg := &config.DBConfig{Driver: "sqlite", DBName: "file::memory:", LogLevel: "silent", MaxOpenConns: 1}

	db, err := InitDB(cfg)
	require.NoError(t, err)
	defer Close(db)

	require.NoError(t, Migrate(db))
	for _, m := range model.All() {
		assert.True(t, db.Migrator().HasTable(m))
	}
	assert.True(t, db.Migrator().HasIndex(&model.Tenant{}, "idx_tenants_domain"))
	assert.True(t, db.Migrator().HasIndex(&model.User{}, "idx_users_email_tenant"))
	assert.True(t, db.Migrator().HasIndex(&model.Role{}, "idx_roles_name_tenant"))
	assert.True(t, db.Migrator().HasIndex(&model.Permission{}, "idx_permissions_resource_action"))
}

func TestInitDBRejectsUnknownDriver(t *testing.T) {
	_, err := InitDB(&config.DBConfig{Driver: "oracle"})
	assert.Error(t, err)
}

func TestOpenAppliesPoolSettings(t *testing.T) {
	sqlDB, _, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	cfg := &config.DBConfig{MaxOpenConns: 7, MaxIdleConns: 3, LogLevel: "silent"}
	db, err := Open(postgres.New(postgres.Config{Conn: sqlDB}), cfg)
	require.NoError(t, err)

	underlying, err := db.DB()
	require.NoError(t, err)
	assert.Equal(t, 7, underlying.Stats().MaxOpenConnections)
}

func TestMigrateNil(t *testing.T) {
	assert.Error(t, Migrate(nil))
}
