package auth

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ukydev/fleet-operations/internal/models"
)

func TestPermissionForVerb(t *testing.T) {
	tests := []struct {
		verb string
		want models.Permission
		ok   bool
	}{
		{http.MethodGet, models.PermissionRead, true},
		{http.MethodPost, models.PermissionCreate, true},
		{http.MethodPut, models.PermissionUpdate, true},
		{http.MethodPatch, models.PermissionUpdate, true},
		{http.MethodDelete, models.PermissionDelete, true},
		{http.MethodOptions, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.verb, func(t *testing.T) {
			perm, ok := PermissionForVerb(tt.verb)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, perm)
		})
	}
}

func TestAuthorizeWithDefaultMatrix(t *testing.T) {
	authorizer := NewAuthorizer(nil)

	tests := []struct {
		name   string
		role   models.Role
		module string
		verb   string
		allow  bool
		reason string
	}{
		{"super_admin bypasses everything", models.RoleSuperAdmin, ModuleUsers, http.MethodDelete, true, ""},
		{"pilot reads vehicles", models.RolePilot, ModuleVehicles, http.MethodGet, true, ""},
		{"pilot submits tracking", models.RolePilot, ModuleTracking, http.MethodPost, true, ""},
		{"pilot cannot create deployments", models.RolePilot, ModuleDeployments, http.MethodPost, false, "insufficient permission"},
		{"pilot has no maintenance access", models.RolePilot, ModuleMaintenance, http.MethodGet, false, "module access denied"},
		{"employee books deployments", models.RoleEmployee, ModuleDeployments, http.MethodPost, true, ""},
		{"employee reads analytics", models.RoleEmployee, ModuleAnalytics, http.MethodGet, true, ""},
		{"employee cannot delete vehicles", models.RoleEmployee, ModuleVehicles, http.MethodDelete, false, "insufficient permission"},
		{"employee has no user admin", models.RoleEmployee, ModuleUsers, http.MethodGet, false, "module access denied"},
		{"admin deletes vehicles", models.RoleAdmin, ModuleVehicles, http.MethodDelete, true, ""},
		{"unknown role denied", models.Role("intern"), ModuleVehicles, http.MethodGet, false, "module access denied"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := authorizer.Authorize(tt.role, tt.module, tt.verb)
			if tt.allow {
				assert.NoError(t, err)
				return
			}
			var denied *DeniedError
			require.True(t, errors.As(err, &denied), "got %v", err)
			assert.Equal(t, tt.module, denied.Module)
			assert.Equal(t, tt.reason, denied.Reason)
		})
	}
}

func TestAuthorizePermission(t *testing.T) {
	authorizer := NewAuthorizer(nil)

	tests := []struct {
		name   string
		role   models.Role
		module string
		perm   models.Permission
		allow  bool
	}{
		{"pilot creates tracking samples", models.RolePilot, ModuleTracking, models.PermissionCreate, true},
		{"pilot reads deployments", models.RolePilot, ModuleDeployments, models.PermissionRead, true},
		{"pilot cannot create deployments", models.RolePilot, ModuleDeployments, models.PermissionCreate, false},
		{"super_admin bypasses", models.RoleSuperAdmin, ModuleUsers, models.PermissionDelete, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := authorizer.AuthorizePermission(tt.role, tt.module, tt.perm)
			if tt.allow {
				assert.NoError(t, err)
				return
			}
			var denied *DeniedError
			require.True(t, errors.As(err, &denied), "got %v", err)
			assert.Equal(t, tt.perm, denied.Permission)
		})
	}
}

func TestAuthorizeUnsupportedVerb(t *testing.T) {
	authorizer := NewAuthorizer(nil)
	err := authorizer.Authorize(models.RoleAdmin, ModuleVehicles, http.MethodOptions)
	var denied *DeniedError
	require.True(t, errors.As(err, &denied))
}

func TestAuthorizeCustomMatrixOverridesDefaults(t *testing.T) {
	authorizer := NewAuthorizer([]models.RolePermission{
		{
			Role: models.RolePilot,
			Modules: []models.ModuleAccess{
				{Module: ModuleMaintenance, Enabled: true, Permissions: []models.Permission{models.PermissionRead}},
			},
		},
	})

	assert.NoError(t, authorizer.Authorize(models.RolePilot, ModuleMaintenance, http.MethodGet))
	// The default pilot vehicle access is gone once a custom matrix is loaded.
	assert.Error(t, authorizer.Authorize(models.RolePilot, ModuleVehicles, http.MethodGet))
}

func TestAuthorizeDisabledModule(t *testing.T) {
	authorizer := NewAuthorizer([]models.RolePermission{
		{
			Role: models.RoleEmployee,
			Modules: []models.ModuleAccess{
				{Module: ModuleAnalytics, Enabled: false, Permissions: []models.Permission{models.PermissionRead}},
			},
		},
	})

	err := authorizer.Authorize(models.RoleEmployee, ModuleAnalytics, http.MethodGet)
	var denied *DeniedError
	require.True(t, errors.As(err, &denied))
	assert.Equal(t, "module access denied", denied.Reason)
}

func TestRequireRoleLevel(t *testing.T) {
	authorizer := NewAuthorizer(nil)

	tests := []struct {
		name    string
		role    models.Role
		allowed []models.Role
		allow   bool
	}{
		{"pilot below employee", models.RolePilot, []models.Role{models.RoleEmployee, models.RoleAdmin}, false},
		{"employee meets employee", models.RoleEmployee, []models.Role{models.RoleEmployee, models.RoleAdmin}, true},
		{"admin exceeds employee", models.RoleAdmin, []models.Role{models.RoleEmployee}, true},
		{"super_admin always passes", models.RoleSuperAdmin, []models.Role{models.RoleAdmin}, true},
		{"unknown role denied", models.Role("intern"), []models.Role{models.RoleEmployee}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := authorizer.RequireRoleLevel(tt.role, tt.allowed...)
			if tt.allow {
				assert.NoError(t, err)
				return
			}
			var denied *DeniedError
			assert.True(t, errors.As(err, &denied), "got %v", err)
		})
	}
}

func TestDefaultRolePermissionsShape(t *testing.T) {
	perms := DefaultRolePermissions()
	require.Len(t, perms, 3)

	byRole := make(map[models.Role]models.RolePermission, len(perms))
	for _, p := range perms {
		byRole[p.Role] = p
	}
	assert.Contains(t, byRole, models.RolePilot)
	assert.Contains(t, byRole, models.RoleEmployee)
	assert.Contains(t, byRole, models.RoleAdmin)
	// super_admin needs no matrix row, it bypasses the check entirely.
	assert.NotContains(t, byRole, models.RoleSuperAdmin)
}
