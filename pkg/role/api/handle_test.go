package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-rbac/pkg/permission"
	"github.com/tendant/simple-rbac/pkg/role"
)

func setup(t *testing.T) (http.Handler, permission.Permission, permission.Permission) {
	t.Helper()
	perms := permission.NewInMemoryPermissionRepository()
	read, err := perms.CreatePermission(context.Background(), permission.Permission{Name: "user.read", Description: "Read users", Category: "user"})
	require.NoError(t, err)
	del, err := perms.CreatePermission(context.Background(), permission.Permission{Name: "user.delete", Description: "Delete users", Category: "user"})
	require.NoError(t, err)

	h := NewHandler(role.NewRoleService(role.NewInMemoryRoleRepository(perms), perms))

	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
	r.Post("/{id}/permissions", h.AssignPermissions)
	return r, read, del
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestRoleHandlers(t *testing.T) {
	h, read, del := setup(t)

	rr := do(t, h, http.MethodPost, "/", `{"name":" Viewer ","description":"Read only","permissionIds":["`+read.ID.String()+`"]}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var created role.Role
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
	assert.Equal(t, "Viewer", created.Name)
	require.Len(t, created.Permissions, 1)
	assert.Equal(t, "user.read", created.Permissions[0].Name)
	assert.NotContains(t, rr.Body.String(), "permissionIds")

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{"duplicate name", http.MethodPost, "/", `{"name":"Viewer","description":"again"}`, http.StatusBadRequest},
		{"missing description", http.MethodPost, "/", `{"name":"Other"}`, http.StatusBadRequest},
		{"unknown permission", http.MethodPost, "/", `{"name":"Other","description":"x","permissionIds":["` + uuid.NewString() + `"]}`, http.StatusBadRequest},
		{"malformed permission id", http.MethodPost, "/", `{"name":"Other","description":"x","permissionIds":["nope"]}`, http.StatusBadRequest},
		{"bad body", http.MethodPost, "/", `{`, http.StatusBadRequest},
		{"bad path id", http.MethodGet, "/not-a-uuid", ``, http.StatusBadRequest},
		{"unknown role", http.MethodGet, "/" + uuid.NewString(), ``, http.StatusNotFound},
		{"update unknown role", http.MethodPut, "/" + uuid.NewString(), `{"name":"x"}`, http.StatusNotFound},
		{"get", http.MethodGet, "/" + created.ID.String(), ``, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, h, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, rr.Code, rr.Body.String())
		})
	}

	rr = do(t, h, http.MethodPut, "/"+created.ID.String(), `{"name":"","description":"Reads things","isDefault":true}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var updated role.Role
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &updated))
	assert.Equal(t, "Viewer", updated.Name)
	assert.Equal(t, "Reads things", updated.Description)
	assert.True(t, updated.IsDefault)
	assert.Len(t, updated.Permissions, 1)

	rr = do(t, h, http.MethodPost, "/"+created.ID.String()+"/permissions", `{"permissionIds":["`+del.ID.String()+`","`+read.ID.String()+`","`+del.ID.String()+`"]}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &updated))
	assert.Len(t, updated.Permissions, 2)

	rr = do(t, h, http.MethodGet, "/", ``)
	require.Equal(t, http.StatusOK, rr.Code)
	var list []role.Role
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	assert.Len(t, list, 1)

	rr = do(t, h, http.MethodDelete, "/"+created.ID.String(), ``)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"message":"Role deleted"}`, rr.Body.String())

	rr = do(t, h, http.MethodDelete, "/"+created.ID.String(), ``)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
