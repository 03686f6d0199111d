package permissions

// MergeRolePermissions folds the permission maps of all assigned roles into
// one set using most-permissive-wins: any role granting a key makes it true
// and no later denial can unset it. Keys a role mentions without granting
// are recorded as false so the result covers everything the roles touch;
// keys no role mentions stay absent and read as false.
//
// The fold is commutative and associative, so role order never changes the
// result.
func MergeRolePermissions(roles []RoleGrant) PermissionSet {
	merged := make(PermissionSet)
	for _, role := range roles {
		for key, granted := range role.Permissions {
			if granted {
				merged[key] = true
				continue
			}
			if _, seen := merged[key]; !seen {
				merged[key] = false
			}
		}
	}
	return merged
}

// ApplyOverrides copies merged and stamps each override value on top.
// Overrides win unconditionally in both directions: a role-granted true is
// suppressed by an override false, and an override can grant a key no role
// mentions.
func ApplyOverrides(merged PermissionSet, overrides map[string]Override) PermissionSet {
	result := merged.Clone()
	for key, o := range overrides {
		result[key] = o.Value
	}
	return result
}

// MergeSectionAccess folds role section maps with most-permissive-wins.
// Sections have no override layer; visibility comes from roles alone.
func MergeSectionAccess(roles []RoleGrant) SectionSet {
	merged := make(SectionSet)
	for _, role := range roles {
		for section, visible := range role.SectionAccess {
			if visible {
				merged[section] = true
				continue
			}
			if _, seen := merged[section]; !seen {
				merged[section] = false
			}
		}
	}
	return merged
}
