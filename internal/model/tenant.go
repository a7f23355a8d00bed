package model

// Tenant is an isolated organizational namespace owning its users and roles.
// Domain is globally unique.
type Tenant struct {
	Base
	Name     string `json:"name" gorm:"type:varchar(200);not null"`
	Domain   string `json:"domain" gorm:"type:varchar(255);not null;uniqueIndex:idx_tenants_domain"`
	IsActive bool   `json:"is_active" gorm:"not null;default:true"`
}
