package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/jinzhu/copier"
	apperrors "github.com/tendant/simple-rbac/pkg/errors"
	"github.com/tendant/simple-rbac/pkg/iam"
	"github.com/tendant/simple-rbac/pkg/role"
	"github.com/tendant/simple-rbac/pkg/utils"
)

type CreateUserRequest struct {
	Email     string   `json:"email"`
	Password  string   `json:"password"`
	FirstName string   `json:"firstName"`
	LastName  string   `json:"lastName"`
	RoleIDs   []string `json:"roleIds"`
	IsActive  *bool    `json:"isActive"`
}

type UpdateUserRequest struct {
	Email     *string   `json:"email"`
	Password  *string   `json:"password"`
	FirstName *string   `json:"firstName"`
	LastName  *string   `json:"lastName"`
	RoleIDs   *[]string `json:"roleIds"`
	IsActive  *bool     `json:"isActive"`
}

type AssignRolesRequest struct {
	RoleIDs []string `json:"roleIds"`
}

// UserResponse is the public view of a user
type UserResponse struct {
	ID        uuid.UUID   `json:"id"`
	Email     string      `json:"email"`
	FirstName string      `json:"firstName"`
	LastName  string      `json:"lastName"`
	Roles     []role.Role `json:"roles"`
	IsActive  bool        `json:"isActive"`
	LastLogin *time.Time  `json:"lastLogin,omitempty"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

type ListUsersResponse struct {
	Users      []UserResponse `json:"users"`
	Pagination iam.Pagination `json:"pagination"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

// NewUserResponse maps a user onto its public view
func NewUserResponse(u iam.User) (UserResponse, error) {
	var resp UserResponse
	if err := copier.Copy(&resp, &u); err != nil {
		return UserResponse{}, fmt.Errorf("failed to map user %s: %w", u.ID, err)
	}
	if resp.Roles == nil {
		resp.Roles = []role.Role{}
	}
	return resp, nil
}

// RenderUser writes the public view of u with status
func RenderUser(w http.ResponseWriter, r *http.Request, status int, u iam.User) {
	resp, err := NewUserResponse(u)
	if err != nil {
		slog.Error("Failed mapping user response", "id", u.ID, "err", err)
		apperrors.WriteError(w, r, apperrors.InternalWrap(err, "Failed to render user"))
		return
	}
	render.Status(r, status)
	render.JSON(w, r, resp)
}

// Handler serves the user endpoints
type Handler struct {
	service *iam.IamService
}

// NewHandler creates a new user API handler
func NewHandler(service *iam.IamService) *Handler {
	return &Handler{service: service}
}

// List handles GET /?page=&limit=&search=&sortBy=&sortOrder=&roleId=
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := iam.ListUsersParams{
		Search:    q.Get("search"),
		SortBy:    q.Get("sortBy"),
		SortOrder: q.Get("sortOrder"),
	}
	params.Page, _ = strconv.Atoi(q.Get("page"))
	params.Limit, _ = strconv.Atoi(q.Get("limit"))
	if raw := q.Get("roleId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			apperrors.WriteError(w, r, apperrors.InvalidInput("roleId", "must be a valid UUID"))
			return
		}
		params.RoleID = &id
	}

	result, err := h.service.ListUsers(r.Context(), params)
	if err != nil {
		apperrors.WriteError(w, r, err)
		return
	}

	resp := ListUsersResponse{
		Users:      make([]UserResponse, 0, len(result.Users)),
		Pagination: result.Pagination,
	}
	for _, u := range result.Users {
		user, err := NewUserResponse(u)
		if err != nil {
			slog.Error("Failed mapping user response", "id", u.ID, "err", err)
			apperrors.WriteError(w, r, apperrors.InternalWrap(err, "Failed to render users"))
			return
		}
		resp.Users = append(resp.Users, user)
	}
	render.JSON(w, r, resp)
}

// Get handles GET /{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := utils.ParseUUIDParam(r, "id")
	if err != nil {
		apperrors.WriteError(w, r, err)
		return
	}

	u, err := h.service.GetUser(r.Context(), id)
	if err != nil {
		apperrors.WriteError(w, r, err)
		return
	}
	RenderUser(w, r, http.StatusOK, u)
}

// Create handles POST /
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		apperrors.WriteError(w, r, err)
		return
	}
	roleIDs, err := utils.ParseUUIDs("roleIds", req.RoleIDs)
	if err != nil {
		apperrors.WriteError(w, r, err)
		return
	}

	params := iam.CreateUserParams{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		RoleIDs:   roleIDs,
		IsActive:  req.IsActive,
	}

	u, err := h.service.CreateUser(r.Context(), params)
	if err != nil {
		apperrors.WriteError(w, r, err)
		return
	}
	RenderUser(w, r, http.StatusCreated, u)
}

// Update handles PUT /{id}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := utils.ParseUUIDParam(r, "id")
	if err != nil {
		apperrors.WriteError(w, r, err)
		return
	}
	var req UpdateUserRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		apperrors.WriteError(w, r, err)
		return
	}

	params := iam.UpdateUserParams{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		IsActive:  req.IsActive,
	}
	if req.RoleIDs != nil {
		ids, err := utils.ParseUUIDs("roleIds", *req.RoleIDs)
		if err != nil {
			apperrors.WriteError(w, r, err)
			return
		}
		params.RoleIDs = &ids
	}

	u, err := h.service.UpdateUser(r.Context(), id, params)
	if err != nil {
		apperrors.WriteError(w, r, err)
		return
	}
	RenderUser(w, r, http.StatusOK, u)
}

// Delete handles DELETE /{id}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := utils.ParseUUIDParam(r, "id")
	if err != nil {
		apperrors.WriteError(w, r, err)
		return
	}
	if err := h.service.DeleteUser(r.Context(), id); err != nil {
		apperrors.WriteError(w, r, err)
		return
	}
	render.JSON(w, r, MessageResponse{Message: "User deleted"})
}

// AssignRoles handles POST /{id}/roles
func (h *Handler) AssignRoles(w http.ResponseWriter, r *http.Request) {
	id, err := utils.ParseUUIDParam(r, "id")
	if err != nil {
		apperrors.WriteError(w, r, err)
		return
	}
	var req AssignRolesRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		apperrors.WriteError(w, r, err)
		return
	}
	ids, err := utils.ParseUUIDs("roleIds", req.RoleIDs)
	if err != nil {
		apperrors.WriteError(w, r, err)
		return
	}

	u, err := h.service.SetUserRoles(r.Context(), id, ids)
	if err != nil {
		apperrors.WriteError(w, r, err)
		return
	}
	RenderUser(w, r, http.StatusOK, u)
}

// ToggleStatus handles PATCH /{id}/toggle-status
func (h *Handler) ToggleStatus(w http.ResponseWriter, r *http.Request) {
	id, err := utils.ParseUUIDParam(r, "id")
	if err != nil {
		apperrors.WriteError(w, r, err)
		return
	}

	u, err := h.service.ToggleStatus(r.Context(), id)
	if err != nil {
		apperrors.WriteError(w, r, err)
		return
	}
	RenderUser(w, r, http.StatusOK, u)
}
