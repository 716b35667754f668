package api

import (
	"net/http"

	"github.com/go-chi/render"
	apperrors "github.com/tendant/simple-rbac/pkg/errors"
	"github.com/tendant/simple-rbac/pkg/role"
	"github.com/tendant/simple-rbac/pkg/utils"
)

type RoleRequest struct {
	Name          *string   `json:"name"`
	Description   *string   `json:"description"`
	PermissionIDs *[]string `json:"permissionIds"`
	IsDefault     *bool     `json:"isDefault"`
}

type AssignPermissionsRequest struct {
	PermissionIDs []string `json:"permissionIds"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

// Handler serves the role endpoints
type Handler struct {
	service *role.RoleService
}

func NewHandler(service *role.RoleService) *Handler {
	return &Handler{service: service}
}

// List handles GET /
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	roles, err := h.service.ListRoles(r.Context())
	if err != nil {
		apperrors.WriteError(w, r, err)
		return
	}
	render.JSON(w, r, roles)
}

// Get handles GET /{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := utils.ParseUUIDParam(r, "id")
	if err != nil {
		apperrors.WriteError(w, r, err)
		return
	}

	found, err := h.service.GetRole(r.Context(), id)
	if err != nil {
		apperrors.WriteError(w, r, err)
		return
	}
	render.JSON(w, r, found)
}

// Create handles POST /
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req RoleRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		apperrors.WriteError(w, r, err)
		return
	}

	params := role.CreateRoleParams{}
	if req.Name != nil {
		params.Name = *req.Name
	}
	if req.Description != nil {
		params.Description = *req.Description
	}
	if req.IsDefault != nil {
		params.IsDefault = *req.IsDefault
	}
	if req.PermissionIDs != nil {
		ids, err := utils.ParseUUIDs("permissionIds", *req.PermissionIDs)
		if err != nil {
			apperrors.WriteError(w, r, err)
			return
		}
		params.PermissionIDs = ids
	}

	created, err := h.service.CreateRole(r.Context(), params)
	if err != nil {
		apperrors.WriteError(w, r, err)
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, created)
}

// Update handles PUT /{id}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := utils.ParseUUIDParam(r, "id")
	if err != nil {
		apperrors.WriteError(w, r, err)
		return
	}
	var req RoleRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		apperrors.WriteError(w, r, err)
		return
	}

	params := role.UpdateRoleParams{
		Name:        req.Name,
		Description: req.Description,
		IsDefault:   req.IsDefault,
	}
	if req.PermissionIDs != nil {
		ids, err := utils.ParseUUIDs("permissionIds", *req.PermissionIDs)
		if err != nil {
			apperrors.WriteError(w, r, err)
			return
		}
		params.PermissionIDs = &ids
	}

	updated, err := h.service.UpdateRole(r.Context(), id, params)
	if err != nil {
		apperrors.WriteError(w, r, err)
		return
	}
	render.JSON(w, r, updated)
}

// AssignPermissions handles POST /{id}/permissions
func (h *Handler) AssignPermissions(w http.ResponseWriter, r *http.Request) {
	id, err := utils.ParseUUIDParam(r, "id")
	if err != nil {
		apperrors.WriteError(w, r, err)
		return
	}
	var req AssignPermissionsRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		apperrors.WriteError(w, r, err)
		return
	}
	ids, err := utils.ParseUUIDs("permissionIds", req.PermissionIDs)
	if err != nil {
		apperrors.WriteError(w, r, err)
		return
	}

	updated, err := h.service.AssignPermissions(r.Context(), id, ids)
	if err != nil {
		apperrors.WriteError(w, r, err)
		return
	}
	render.JSON(w, r, updated)
}

// Delete handles DELETE /{id}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := utils.ParseUUIDParam(r, "id")
	if err != nil {
		apperrors.WriteError(w, r, err)
		return
	}
	if err := h.service.DeleteRole(r.Context(), id); err != nil {
		apperrors.WriteError(w, r, err)
		return
	}
	render.JSON(w, r, MessageResponse{Message: "Role deleted"})
}
