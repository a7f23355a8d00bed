package model

// Permission is a global (resource, action) capability shared by all tenants
type Permission struct {
	Base
	Name        string `json:"name" gorm:"type:varchar(100);not null"`
	Description string `json:"description" gorm:"type:text"`
	Resource    string `json:"resource" gorm:"type:varchar(100);not null;uniqueIndex:idx_permissions_resource_action,priority:1"`
	Action      string `json:"action" gorm:"type:varchar(100);not null;uniqueIndex:idx_permissions_resource_action,priority:2"`
	IsActive    bool   `json:"is_active" gorm:"not null;default:true"`
}

// Key identifies the permission as "Resource:Action"
func (p *Permission) Key() string {
	return PermissionKey(p.Resource, p.Action)
}

// PermissionKey builds the "Resource:Action" key
func PermissionKey(resource, action string) string {
	return resource + ":" + action
}
