package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoleLevels(t *testing.T) {
	tests := []struct {
		role  Role
		level int
		valid bool
	}{
		{RolePilot, 1, true},
		{RoleEmployee, 2, true},
		{RoleAdmin, 3, true},
		{RoleSuperAdmin, 4, true},
		{Role("intern"), 0, false},
		{Role(""), 0, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			assert.Equal(t, tt.level, tt.role.Level())
			assert.Equal(t, tt.valid, IsValidRole(tt.role))
		})
	}
}

func TestRoleHierarchyOrdering(t *testing.T) {
	assert.Less(t, RolePilot.Level(), RoleEmployee.Level())
	assert.Less(t, RoleEmployee.Level(), RoleAdmin.Level())
	assert.Less(t, RoleAdmin.Level(), RoleSuperAdmin.Level())
}

func TestModuleAccessHas(t *testing.T) {
	access := ModuleAccess{
		Module:      "deployments",
		Enabled:     true,
		Permissions: []Permission{PermissionRead, PermissionCreate},
	}

	assert.True(t, access.Has(PermissionRead))
	assert.True(t, access.Has(PermissionCreate))
	assert.False(t, access.Has(PermissionDelete))
	assert.False(t, access.Has(PermissionExport))
}
