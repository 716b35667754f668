// Package permission manages the atomic capabilities granted through roles.
//
// Permission names follow the resource.action convention ("user.read").
// The name "admin" is reserved as the super-admin override and is resolved by
// package role.
package permission
