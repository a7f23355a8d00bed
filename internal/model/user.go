package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// User represents the user model stored in the database.
// The (email, tenant) pair is unique; the same email may exist under different tenants.
type User struct {
	Base
	Email        string     `json:"email" gorm:"type:varchar(255);not null;uniqueIndex:idx_users_email_tenant,priority:1"`
	FirstName    string     `json:"first_name" gorm:"type:varchar(100)"`
	LastName     string     `json:"last_name" gorm:"type:varchar(100)"`
	PasswordHash string     `json:"-" gorm:"type:varchar(255);not null"`
	IsActive     bool       `json:"is_active" gorm:"not null;default:true"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
	TenantID     uuid.UUID  `json:"tenant_id" gorm:"type:uuid;not null;index;uniqueIndex:idx_users_email_tenant,priority:2"`

	// Tenant is never loaded; it declares the restrict-on-delete foreign key
	Tenant *Tenant `json:"-" gorm:"foreignKey:TenantID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
}

// DisplayName returns "First Last" without surrounding blanks
func (u *User) DisplayName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}
