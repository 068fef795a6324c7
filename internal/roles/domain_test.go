package roles

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rank(r Role) int {
	for i, candidate := range All() {
		if candidate == r {
			return i
		}
	}
	return -1
}

func TestParseRole(t *testing.T) {
	for _, r := range All() {
		parsed, err := ParseRole(string(r))
		require.NoError(t, err)
		assert.Equal(t, r, parsed)
	}

	for _, raw := range []string{"", "admin", "SUPERADMIN", "spv", "root"} {
		_, err := ParseRole(raw)
		assert.Error(t, err, "raw=%q", raw)
	}
}

func TestHierarchyIsStrictlyDownward(t *testing.T) {
	for _, r := range All() {
		for _, sub := range Subordinates(r) {
			assert.Greater(t, rank(sub), rank(r), "%s must outrank %s", r, sub)
		}
	}
}

func TestNoRoleManagesItself(t *testing.T) {
	for _, r := range All() {
		assert.False(t, CanManageRole(r, r), "role %s", r)
	}
}

func TestCanManageRole(t *testing.T) {
	assert.True(t, CanManageRole(RoleSuperadmin, RoleOwner))
	assert.True(t, CanManageRole(RoleSuperadmin, RoleMarketing))
	assert.True(t, CanManageRole(RoleOwner, RoleManager))
	assert.True(t, CanManageRole(RoleManager, RoleSupervisor))
	assert.True(t, CanManageRole(RoleManager, RoleMarketing))

	assert.False(t, CanManageRole(RoleOwner, RoleSuperadmin))
	assert.False(t, CanManageRole(RoleManager, RoleOwner))
	assert.False(t, CanManageRole(RoleSupervisor, RoleMarketing))
	assert.False(t, CanManageRole(RoleMarketing, RoleMarketing))
	assert.Empty(t, Subordinates(RoleSupervisor))
	assert.Empty(t, Subordinates(RoleMarketing))
}

func TestHasRoleFailsClosedWithoutAssignment(t *testing.T) {
	for _, r := range All() {
		assert.False(t, HasRole(nil, r))
	}
	owner := RoleOwner
	assert.True(t, HasRole(&owner, RoleOwner))
	assert.False(t, HasRole(&owner, RoleManager))
}

func TestCanImpersonate(t *testing.T) {
	owner := RoleOwner
	manager := RoleManager
	superadmin := RoleSuperadmin

	assert.True(t, CanImpersonate("u1", &owner, "u2", &manager))
	assert.True(t, CanImpersonate("u1", &superadmin, "u2", &owner))

	// Never self, never upward, never laterally.
	assert.False(t, CanImpersonate("u1", &owner, "u1", &manager))
	assert.False(t, CanImpersonate("u1", &manager, "u2", &owner))
	assert.False(t, CanImpersonate("u1", &superadmin, "u2", &superadmin))

	// Missing roles fail closed on both sides.
	assert.False(t, CanImpersonate("u1", nil, "u2", &manager))
	assert.False(t, CanImpersonate("u1", &owner, "u2", nil))
	assert.False(t, CanImpersonate("", &owner, "u2", &manager))
}
