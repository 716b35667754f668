package role

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-rbac/pkg/permission"
	"github.com/tendant/simple-rbac/pkg/testutil"
)

func TestPostgresRoleRepository(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping PostgreSQL test in short mode")
	}

	pool, cleanup := testutil.SetupTestDatabase(t)
	defer cleanup()

	ctx := context.Background()
	permRepo := permission.NewPostgresPermissionRepository(pool)
	repo := NewPostgresRoleRepository(pool)

	read, err := permRepo.CreatePermission(ctx, permission.Permission{Name: "user.read", Description: "d", Category: "Users"})
	require.NoError(t, err)
	del, err := permRepo.CreatePermission(ctx, permission.Permission{Name: "user.delete", Description: "d", Category: "Users"})
	require.NoError(t, err)

	created, err := repo.CreateRole(ctx, Role{Name: "Ops", Description: "Operations", PermissionIDs: []uuid.UUID{read.ID, del.ID, read.ID}})
	require.NoError(t, err)
	assert.Len(t, created.Permissions, 2)
	assert.True(t, created.PermissionsResolved())

	_, err = repo.CreateRole(ctx, Role{Name: "Ops", Description: "dup"})
	assert.ErrorIs(t, err, ErrRoleExists)

	// deleting a permission keeps the role
	require.NoError(t, permRepo.DeletePermission(ctx, del.ID))
	got, err := repo.GetRole(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, got.Permissions, 1)
	assert.Equal(t, "user.read", got.Permissions[0].Name)

	got.Description = "Ops team"
	got.PermissionIDs = nil
	updated, err := repo.UpdateRole(ctx, got)
	require.NoError(t, err)
	assert.Equal(t, "Ops team", updated.Description)
	assert.Empty(t, updated.Permissions)
	assert.NotNil(t, updated.Permissions)

	_, err = repo.UpdateRole(ctx, Role{ID: uuid.New(), Name: "none", Description: "none"})
	assert.ErrorIs(t, err, ErrRoleNotFound)

	byName, err := repo.GetRoleByName(ctx, "Ops")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byName.ID)

	some, err := repo.GetRolesByIDs(ctx, []uuid.UUID{created.ID, uuid.New()})
	require.NoError(t, err)
	assert.Len(t, some, 1)

	all, err := repo.ListRoles(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, repo.DeleteRole(ctx, created.ID))
	assert.ErrorIs(t, repo.DeleteRole(ctx, created.ID), ErrRoleNotFound)
}
