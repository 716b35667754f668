package role

import (
	"sort"
)

// AdminPermission is the super-admin permission; holding it satisfies every check.
const AdminPermission = "admin"

// PermissionSet is a set of permission names
type PermissionSet map[string]struct{}

// NewPermissionSet builds a set from names
func NewPermissionSet(names ...string) PermissionSet {
	s := make(PermissionSet, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

// Has reports whether name is in the set
func (s PermissionSet) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Intersects reports whether s and other share at least one name
func (s PermissionSet) Intersects(other PermissionSet) bool {
	small, large := s, other
	if len(small) > len(large) {
		small, large = large, small
	}
	for name := range small {
		if large.Has(name) {
			return true
		}
	}
	return false
}

// Names returns the set members in sorted order
func (s PermissionSet) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RoleHolder is anything carrying assigned roles, typically an authenticated user
type RoleHolder interface {
	AssignedRoles() []Role
}

// EffectivePermissions returns the union of permission names across every
// role of holder. Roles whose permissions were never resolved contribute nothing.
func EffectivePermissions(holder RoleHolder) PermissionSet {
	set := PermissionSet{}
	if holder == nil {
		return set
	}
	for _, r := range holder.AssignedRoles() {
		for _, p := range r.Permissions {
			set[p.Name] = struct{}{}
		}
	}
	return set
}

// IsAuthorized reports whether holder may perform an operation requiring any
// of required. The admin permission overrides every requirement. A holder
// without roles is never authorized.
func IsAuthorized(holder RoleHolder, required PermissionSet) bool {
	effective := EffectivePermissions(holder)
	if len(effective) == 0 {
		return false
	}
	if effective.Has(AdminPermission) {
		return true
	}
	return effective.Intersects(required)
}
