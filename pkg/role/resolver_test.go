package role

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/tendant/simple-rbac/pkg/permission"
)

type holder []Role

func (h holder) AssignedRoles() []Role { return h }

func perms(names ...string) []permission.Permission {
	out := make([]permission.Permission, len(names))
	for i, n := range names {
		out[i] = permission.Permission{ID: uuid.New(), Name: n}
	}
	return out
}

func resolvedRole(name string, names ...string) Role {
	ps := perms(names...)
	ids := make([]uuid.UUID, len(ps))
	for i, p := range ps {
		ids[i] = p.ID
	}
	return Role{ID: uuid.New(), Name: name, PermissionIDs: ids, Permissions: ps}
}

func TestEffectivePermissions(t *testing.T) {
	tests := []struct {
		name   string
		holder RoleHolder
		want   []string
	}{
		{
			name:   "union with duplicates collapsed",
			holder: holder{resolvedRole("r1", "a", "b"), resolvedRole("r2", "b", "c")},
			want:   []string{"a", "b", "c"},
		},
		{
			name:   "no roles",
			holder: holder{},
			want:   []string{},
		},
		{
			name:   "nil holder",
			holder: nil,
			want:   []string{},
		},
		{
			name:   "role with empty permissions",
			holder: holder{resolvedRole("empty"), resolvedRole("r", "user.read")},
			want:   []string{"user.read"},
		},
		{
			name: "unresolved role contributes nothing",
			holder: holder{
				{ID: uuid.New(), Name: "lazy", PermissionIDs: []uuid.UUID{uuid.New(), uuid.New()}},
				resolvedRole("r", "role.read"),
			},
			want: []string{"role.read"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EffectivePermissions(tt.holder).Names())
		})
	}
}

func TestIsAuthorized(t *testing.T) {
	viewer := holder{resolvedRole("Viewer", "user.read", "role.read", "permission.read")}
	superAdmin := holder{resolvedRole("Super Admin", "admin")}
	unresolved := holder{{ID: uuid.New(), Name: "lazy", PermissionIDs: []uuid.UUID{uuid.New()}}}

	tests := []struct {
		name     string
		holder   RoleHolder
		required PermissionSet
		want     bool
	}{
		{"viewer reads users", viewer, NewPermissionSet("user.read"), true},
		{"viewer cannot delete users", viewer, NewPermissionSet("user.delete"), false},
		{"any of several suffices", viewer, NewPermissionSet("user.delete", "role.read"), true},
		{"admin overrides missing permission", superAdmin, NewPermissionSet("x.delete"), true},
		{"admin overrides empty requirement", superAdmin, NewPermissionSet(), true},
		{"admin alongside other roles", append(holder{resolvedRole("other", "a")}, superAdmin...), NewPermissionSet("zzz"), true},
		{"zero roles", holder{}, NewPermissionSet("user.read"), false},
		{"zero roles empty requirement", holder{}, NewPermissionSet(), false},
		{"nil holder", nil, NewPermissionSet("user.read"), false},
		{"unresolved roles deny", unresolved, NewPermissionSet("user.read"), false},
		{"empty requirement without admin", viewer, NewPermissionSet(), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsAuthorized(tt.holder, tt.required))
		})
	}
}

func TestPermissionSet(t *testing.T) {
	s := NewPermissionSet("b", "a", "b")
	assert.Len(t, s, 2)
	assert.True(t, s.Has("a"))
	assert.False(t, s.Has("c"))
	assert.Equal(t, []string{"a", "b"}, s.Names())
	assert.True(t, s.Intersects(NewPermissionSet("z", "b")))
	assert.False(t, s.Intersects(NewPermissionSet()))
}

func TestPermissionsResolved(t *testing.T) {
	assert.True(t, Role{}.PermissionsResolved())
	assert.False(t, Role{PermissionIDs: []uuid.UUID{uuid.New()}}.PermissionsResolved())
	assert.True(t, Role{PermissionIDs: []uuid.UUID{uuid.New()}, Permissions: []permission.Permission{}}.PermissionsResolved())
}
