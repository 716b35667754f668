package client

import (
	"context"

	"github.com/tendant/simple-rbac/pkg/iam"
)

// contextKey is a value for use with context.WithValue. It's used as
// a pointer so it fits in an interface{} without allocation. This technique
// for defining context keys was copied from Go 1.7's new use of context in net/http.
type contextKey struct {
	name string
}

func (k *contextKey) String() string {
	return "usermgr context value " + k.name
}

var (
	AuthUserKey = &contextKey{"AuthUser"}
)

// WithAuthUser returns a copy of ctx carrying user
func WithAuthUser(ctx context.Context, user *iam.User) context.Context {
	return context.WithValue(ctx, AuthUserKey, user)
}

// AuthUserFromContext returns the user attached by the authentication gate
func AuthUserFromContext(ctx context.Context) (*iam.User, bool) {
	user, ok := ctx.Value(AuthUserKey).(*iam.User)
	return user, ok && user != nil
}
