package roles

import "fmt"

// Role represents one of the five fixed authority levels, ordered
// superadmin > owner > manager > supervisor > marketing.
type Role string

const (
	RoleSuperadmin Role = "superadmin"
	RoleOwner      Role = "owner"
	RoleManager    Role = "manager"
	RoleSupervisor Role = "supervisor"
	RoleMarketing  Role = "marketing"
)

// hierarchy maps a role to the set of roles it may administer. The relation
// is strictly downward: no role appears in its own set or in the set of a
// lower-ranked role. The table is never mutated at runtime.
var hierarchy = map[Role][]Role{
	RoleSuperadmin: {RoleOwner, RoleManager, RoleSupervisor, RoleMarketing},
	RoleOwner:      {RoleManager, RoleSupervisor, RoleMarketing},
	RoleManager:    {RoleSupervisor, RoleMarketing},
	RoleSupervisor: {},
	RoleMarketing:  {},
}

// All returns every valid role ordered from highest to lowest authority.
func All() []Role {
	return []Role{RoleSuperadmin, RoleOwner, RoleManager, RoleSupervisor, RoleMarketing}
}

// Valid reports whether the role belongs to the closed enumeration.
func (r Role) Valid() bool {
	_, ok := hierarchy[r]
	return ok
}

// ParseRole converts raw input into a Role, rejecting anything outside the
// closed set. Raw values are parsed here at the boundary so the permission
// predicates never see unknown roles.
func ParseRole(raw string) (Role, error) {
	role := Role(raw)
	if !role.Valid() {
		return "", fmt.Errorf("roles: unknown role %q", raw)
	}
	return role, nil
}

// Subordinates returns a copy of the set of roles the given role may
// administer. Unknown roles yield an empty set.
func Subordinates(r Role) []Role {
	subs := hierarchy[r]
	out := make([]Role, len(subs))
	copy(out, subs)
	return out
}
