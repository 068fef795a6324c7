package roles

// The predicates below are pure and fail closed: missing or unassigned
// roles always evaluate to false, never to an error.

// HasRole reports whether an assigned role matches the queried role. A user
// without a role assignment (nil) matches nothing.
func HasRole(assigned *Role, want Role) bool {
	return assigned != nil && *assigned == want
}

// CanManageRole reports whether the acting role may administer the target
// role. The relation is strictly downward, so a role can never manage its
// own rank or above, superadmin included.
func CanManageRole(acting Role, target Role) bool {
	for _, sub := range hierarchy[acting] {
		if sub == target {
			return true
		}
	}
	return false
}

// CanImpersonate reports whether the acting user may assume the target
// user's profile. Both sides must carry a role and nobody impersonates
// themselves.
func CanImpersonate(actingID string, actingRole *Role, targetID string, targetRole *Role) bool {
	if actingID == "" || targetID == "" || actingID == targetID {
		return false
	}
	if actingRole == nil || targetRole == nil {
		return false
	}
	return CanManageRole(*actingRole, *targetRole)
}
