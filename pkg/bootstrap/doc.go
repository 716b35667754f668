// Package bootstrap seeds the default permissions, roles and demo accounts.
package bootstrap
