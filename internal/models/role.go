package models

// Role represents user roles in the system.
type Role string

const (
	RolePilot      Role = "pilot"
	RoleEmployee   Role = "employee"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
)

// roleLevels is the fixed numeric hierarchy used for elevated operations.
var roleLevels = map[Role]int{
	RolePilot:      1,
	RoleEmployee:   2,
	RoleAdmin:      3,
	RoleSuperAdmin: 4,
}

// Level returns the role's position in the hierarchy, 0 for unknown roles.
func (r Role) Level() int {
	return roleLevels[r]
}

// IsValidRole checks if a role is valid.
func IsValidRole(role Role) bool {
	return roleLevels[role] > 0
}

// Permission is a single CRUD-style capability on a module.
type Permission string

const (
	PermissionCreate Permission = "create"
	PermissionRead   Permission = "read"
	PermissionUpdate Permission = "update"
	PermissionDelete Permission = "delete"
	PermissionExport Permission = "export"
)

// ModuleAccess describes a role's access to one named functional module.
type ModuleAccess struct {
	Module      string       `bson:"module" json:"module"`
	Enabled     bool         `bson:"enabled" json:"enabled"`
	Permissions []Permission `bson:"permissions" json:"permissions"`
}

// Has reports whether the permission set includes p.
func (m ModuleAccess) Has(p Permission) bool {
	for _, q := range m.Permissions {
		if q == p {
			return true
		}
	}
	return false
}

// RolePermission maps a role to its per-module permission sets. Static
// reference data, writable only by an administrative collaborator.
type RolePermission struct {
	Role    Role           `bson:"_id" json:"role"`
	Modules []ModuleAccess `bson:"modules" json:"modules"`
}
