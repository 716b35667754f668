package api

import (
	"net/http"

	"github.com/go-chi/render"
	apperrors "github.com/tendant/simple-rbac/pkg/errors"
	"github.com/tendant/simple-rbac/pkg/permission"
	"github.com/tendant/simple-rbac/pkg/utils"
)

type PermissionRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Category    *string `json:"category"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

// Handler serves the permission endpoints
type Handler struct {
	service *permission.PermissionService
}

// NewHandler creates a new permission API handler
func NewHandler(service *permission.PermissionService) *Handler {
	return &Handler{service: service}
}

// List handles GET /
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	perms, err := h.service.ListPermissions(r.Context())
	if err != nil {
		apperrors.WriteError(w, r, err)
		return
	}
	render.JSON(w, r, perms)
}

// Get handles GET /{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := utils.ParseUUIDParam(r, "id")
	if err != nil {
		apperrors.WriteError(w, r, err)
		return
	}

	p, err := h.service.GetPermission(r.Context(), id)
	if err != nil {
		apperrors.WriteError(w, r, err)
		return
	}
	render.JSON(w, r, p)
}

// Create handles POST /
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req PermissionRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		apperrors.WriteError(w, r, err)
		return
	}

	p, err := h.service.CreatePermission(r.Context(), permission.CreatePermissionParams{
		Name:        deref(req.Name),
		Description: deref(req.Description),
		Category:    deref(req.Category),
	})
	if err != nil {
		apperrors.WriteError(w, r, err)
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, p)
}

// Update handles PUT /{id}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := utils.ParseUUIDParam(r, "id")
	if err != nil {
		apperrors.WriteError(w, r, err)
		return
	}
	var req PermissionRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		apperrors.WriteError(w, r, err)
		return
	}

	p, err := h.service.UpdatePermission(r.Context(), id, permission.UpdatePermissionParams{
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
	})
	if err != nil {
		apperrors.WriteError(w, r, err)
		return
	}
	render.JSON(w, r, p)
}

// Delete handles DELETE /{id}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := utils.ParseUUIDParam(r, "id")
	if err != nil {
		apperrors.WriteError(w, r, err)
		return
	}
	if err := h.service.DeletePermission(r.Context(), id); err != nil {
		apperrors.WriteError(w, r, err)
		return
	}
	render.JSON(w, r, MessageResponse{Message: "Permission deleted"})
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
