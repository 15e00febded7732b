package auth

import (
	"fmt"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/ukydev/fleet-operations/internal/models"
)

// Module names gated by the permission matrix.
const (
	ModuleVehicles      = "vehicles"
	ModuleDeployments   = "deployments"
	ModuleTracking      = "tracking"
	ModuleMaintenance   = "maintenance"
	ModuleAnalytics     = "analytics"
	ModuleNotifications = "notifications"
	ModuleUsers         = "users"
)

// DeniedError is returned when an authorization check fails.
type DeniedError struct {
	Module     string
	Permission models.Permission
	Reason     string
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("authorization denied on %s: %s", e.Module, e.Reason)
}

// PermissionForVerb maps an HTTP verb to the matrix permission it requires.
func PermissionForVerb(verb string) (models.Permission, bool) {
	switch verb {
	case http.MethodGet:
		return models.PermissionRead, true
	case http.MethodPost:
		return models.PermissionCreate, true
	case http.MethodPut, http.MethodPatch:
		return models.PermissionUpdate, true
	case http.MethodDelete:
		return models.PermissionDelete, true
	default:
		return "", false
	}
}

// Authorizer answers allow/deny for a role, module and HTTP verb against the
// role/module permission matrix.
type Authorizer struct {
	matrix map[models.Role]map[string]models.ModuleAccess
}

// NewAuthorizer builds an authorizer from matrix rows. With no rows the
// built-in default matrix applies.
func NewAuthorizer(perms []models.RolePermission) *Authorizer {
	if len(perms) == 0 {
		perms = DefaultRolePermissions()
	}
	matrix := make(map[models.Role]map[string]models.ModuleAccess, len(perms))
	for _, rp := range perms {
		byModule := make(map[string]models.ModuleAccess, len(rp.Modules))
		for _, m := range rp.Modules {
			byModule[m.Module] = m
		}
		matrix[rp.Role] = byModule
	}
	return &Authorizer{matrix: matrix}
}

// Authorize checks that role may perform verb on module. Every decision is
// logged for audit.
func (a *Authorizer) Authorize(role models.Role, module, verb string) error {
	err := a.decide(role, module, verb)
	fields := log.Fields{"role": role, "module": module, "verb": verb}
	if err != nil {
		log.WithFields(fields).WithError(err).Warn("access denied")
		return err
	}
	log.WithFields(fields).Debug("access granted")
	return nil
}

// AuthorizePermission checks a named permission on module, for routes where
// the HTTP verb does not describe the permission they need.
func (a *Authorizer) AuthorizePermission(role models.Role, module string, perm models.Permission) error {
	err := a.decidePermission(role, module, perm)
	fields := log.Fields{"role": role, "module": module, "permission": perm}
	if err != nil {
		log.WithFields(fields).WithError(err).Warn("access denied")
		return err
	}
	log.WithFields(fields).Debug("access granted")
	return nil
}

func (a *Authorizer) decide(role models.Role, module, verb string) error {
	if role == models.RoleSuperAdmin {
		return nil
	}
	perm, ok := PermissionForVerb(verb)
	if !ok {
		return &DeniedError{Module: module, Reason: "unsupported verb " + verb}
	}
	return a.decidePermission(role, module, perm)
}

func (a *Authorizer) decidePermission(role models.Role, module string, perm models.Permission) error {
	if role == models.RoleSuperAdmin {
		return nil
	}
	access, ok := a.matrix[role][module]
	if !ok || !access.Enabled {
		return &DeniedError{Module: module, Permission: perm, Reason: "module access denied"}
	}
	if !access.Has(perm) {
		return &DeniedError{Module: module, Permission: perm, Reason: "insufficient permission"}
	}
	return nil
}

// RequireRoleLevel denies when the caller's hierarchy level is below the
// lowest level among the allowed roles. Used for elevated operations such as
// cancelling another operator's deployment.
func (a *Authorizer) RequireRoleLevel(role models.Role, allowed ...models.Role) error {
	minLevel := 0
	for _, r := range allowed {
		if l := r.Level(); minLevel == 0 || l < minLevel {
			minLevel = l
		}
	}
	if role.Level() >= minLevel && minLevel > 0 {
		log.WithFields(log.Fields{"role": role, "required_level": minLevel}).Debug("role level granted")
		return nil
	}
	err := &DeniedError{Module: "role_level", Reason: fmt.Sprintf("role %s below required level %d", role, minLevel)}
	log.WithFields(log.Fields{"role": role, "required_level": minLevel}).Warn("role level denied")
	return err
}

func readOnly() []models.Permission {
	return []models.Permission{models.PermissionRead}
}

func readWrite() []models.Permission {
	return []models.Permission{models.PermissionCreate, models.PermissionRead, models.PermissionUpdate}
}

func full() []models.Permission {
	return []models.Permission{
		models.PermissionCreate, models.PermissionRead,
		models.PermissionUpdate, models.PermissionDelete, models.PermissionExport,
	}
}

// DefaultRolePermissions seeds the matrix when the role_permissions
// collection is empty. super_admin bypasses the matrix entirely.
func DefaultRolePermissions() []models.RolePermission {
	return []models.RolePermission{
		{
			Role: models.RolePilot,
			Modules: []models.ModuleAccess{
				{Module: ModuleVehicles, Enabled: true, Permissions: readOnly()},
				{Module: ModuleDeployments, Enabled: true, Permissions: readOnly()},
				{Module: ModuleTracking, Enabled: true, Permissions: readWrite()},
				{Module: ModuleNotifications, Enabled: true, Permissions: readOnly()},
			},
		},
		{
			Role: models.RoleEmployee,
			Modules: []models.ModuleAccess{
				{Module: ModuleVehicles, Enabled: true, Permissions: readWrite()},
				{Module: ModuleDeployments, Enabled: true, Permissions: readWrite()},
				{Module: ModuleTracking, Enabled: true, Permissions: readWrite()},
				{Module: ModuleMaintenance, Enabled: true, Permissions: readWrite()},
				{Module: ModuleAnalytics, Enabled: true, Permissions: readOnly()},
				{Module: ModuleNotifications, Enabled: true, Permissions: readOnly()},
			},
		},
		{
			Role: models.RoleAdmin,
			Modules: []models.ModuleAccess{
				{Module: ModuleVehicles, Enabled: true, Permissions: full()},
				{Module: ModuleDeployments, Enabled: true, Permissions: full()},
				{Module: ModuleTracking, Enabled: true, Permissions: full()},
				{Module: ModuleMaintenance, Enabled: true, Permissions: full()},
				{Module: ModuleAnalytics, Enabled: true, Permissions: full()},
				{Module: ModuleNotifications, Enabled: true, Permissions: full()},
				{Module: ModuleUsers, Enabled: true, Permissions: full()},
			},
		},
	}
}
