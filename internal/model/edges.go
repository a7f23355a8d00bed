package model

import (
	"time"

	"github.com/google/uuid"
)

// UserRole links a user to a role. The pair is the primary key so an edge exists at most once.
// Deleting either endpoint deletes the edge.
type UserRole struct {
	UserID    uuid.UUID `json:"user_id" gorm:"type:uuid;primaryKey"`
	RoleID    uuid.UUID `json:"role_id" gorm:"type:uuid;primaryKey;index"`
	CreatedAt time.Time `json:"created_at" gorm:"not null"`
	CreatedBy string    `json:"created_by" gorm:"type:varchar(255);not null"`

	User *User `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Role *Role `json:"-" gorm:"foreignKey:RoleID;constraint:OnDelete:CASCADE"`
}

// RolePermission links a role to a permission
type RolePermission struct {
	RoleID       uuid.UUID `json:"role_id" gorm:"type:uuid;primaryKey"`
	PermissionID uuid.UUID `json:"permission_id" gorm:"type:uuid;primaryKey;index"`
	CreatedAt    time.Time `json:"created_at" gorm:"not null"`
	CreatedBy    string    `json:"created_by" gorm:"type:varchar(255);not null"`

	Role       *Role       `json:"-" gorm:"foreignKey:RoleID;constraint:OnDelete:CASCADE"`
	Permission *Permission `json:"-" gorm:"foreignKey:PermissionID;constraint:OnDelete:CASCADE"`
}

// All returns every persisted model in migration order
func All() []interface{} {
	return []interface{}{
		&Tenant{},
		&Permission{},
		&User{},
		&Role{},
		&UserRole{},
		&RolePermission{},
	}
}
