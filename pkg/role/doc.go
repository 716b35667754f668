// Package role manages roles and resolves a user's effective permissions.
//
// A role references permissions by ID. Repositories always return roles with
// those references resolved into permission records; a reference to a deleted
// permission is dropped silently.
//
// Authorization decisions are pure functions over already-loaded roles:
//
//	perms := role.EffectivePermissions(user)            // union of names
//	ok := role.IsAuthorized(user, role.NewPermissionSet("user.delete"))
//
// Holding the "admin" permission satisfies every requirement. Roles whose
// permissions were never resolved contribute nothing, and a holder without
// roles is never authorized.
package role
