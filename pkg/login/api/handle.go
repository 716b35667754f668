package api

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/jinzhu/copier"
	"github.com/tendant/simple-rbac/pkg/client"
	apperrors "github.com/tendant/simple-rbac/pkg/errors"
	"github.com/tendant/simple-rbac/pkg/iam"
	iamapi "github.com/tendant/simple-rbac/pkg/iam/api"
	"github.com/tendant/simple-rbac/pkg/login"
	"github.com/tendant/simple-rbac/pkg/role"
	"github.com/tendant/simple-rbac/pkg/utils"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SignupRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// UserInfo is the user summary returned alongside tokens
type UserInfo struct {
	ID        uuid.UUID   `json:"id"`
	Email     string      `json:"email"`
	FirstName string      `json:"firstName"`
	LastName  string      `json:"lastName"`
	Roles     []role.Role `json:"roles"`
}

type LoginResponse struct {
	Token        string   `json:"token"`
	RefreshToken string   `json:"refreshToken"`
	User         UserInfo `json:"user"`
}

type SignupResponse struct {
	Token string   `json:"token"`
	User  UserInfo `json:"user"`
}

type RefreshResponse struct {
	Token string `json:"token"`
}

func newUserInfo(u iam.User) (UserInfo, error) {
	var info UserInfo
	if err := copier.Copy(&info, &u); err != nil {
		return UserInfo{}, fmt.Errorf("failed to map user %s: %w", u.ID, err)
	}
	if info.Roles == nil {
		info.Roles = []role.Role{}
	}
	return info, nil
}

type Handler struct {
	service *login.LoginService
}

func NewHandler(service *login.LoginService) *Handler {
	return &Handler{service: service}
}

// Login a user
// (POST /login)
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		apperrors.WriteError(w, r, err)
		return
	}

	result, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		apperrors.WriteError(w, r, err)
		return
	}

	info, err := newUserInfo(result.User)
	if err != nil {
		slog.Error("Failed mapping login response", "id", result.User.ID, "err", err)
		apperrors.WriteError(w, r, apperrors.InternalWrap(err, "Failed to render user"))
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, LoginResponse{
		Token:        result.Tokens.AccessToken,
		RefreshToken: result.Tokens.RefreshToken,
		User:         info,
	})
}

// Register a new account
// (POST /signup)
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		apperrors.WriteError(w, r, err)
		return
	}

	result, err := h.service.Signup(r.Context(), login.SignupParams{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		apperrors.WriteError(w, r, err)
		return
	}

	info, err := newUserInfo(result.User)
	if err != nil {
		slog.Error("Failed mapping signup response", "id", result.User.ID, "err", err)
		apperrors.WriteError(w, r, apperrors.InternalWrap(err, "Failed to render user"))
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, SignupResponse{
		Token: result.Tokens.AccessToken,
		User:  info,
	})
}

// Exchange a refresh token for a new access token
// (POST /refresh)
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		apperrors.WriteError(w, r, err)
		return
	}

	token, _, err := h.service.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		apperrors.WriteError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, RefreshResponse{Token: token})
}

// Current user, must run behind the authentication gate
// (GET /me)
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := client.AuthUserFromContext(r.Context())
	if !ok {
		apperrors.WriteError(w, r, client.ErrUnauthenticated)
		return
	}
	iamapi.RenderUser(w, r, http.StatusOK, *user)
}
