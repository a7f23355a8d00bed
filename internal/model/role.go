package model

import "github.com/google/uuid"

// Role is a named, tenant-scoped bundle of permissions
type Role struct {
	Base
	Name        string    `json:"name" gorm:"type:varchar(100);not null;uniqueIndex:idx_roles_name_tenant,priority:1"`
	Description string    `json:"description" gorm:"type:text"`
	IsActive    bool      `json:"is_active" gorm:"not null;default:true"`
	TenantID    uuid.UUID `json:"tenant_id" gorm:"type:uuid;not null;index;uniqueIndex:idx_roles_name_tenant,priority:2"`

	Tenant *Tenant `json:"-" gorm:"foreignKey:TenantID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
}
