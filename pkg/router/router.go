package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/tendant/simple-rbac/pkg/client"
	iamapi "github.com/tendant/simple-rbac/pkg/iam/api"
	loginapi "github.com/tendant/simple-rbac/pkg/login/api"
	"github.com/tendant/simple-rbac/pkg/metrics"
	permissionapi "github.com/tendant/simple-rbac/pkg/permission/api"
	"github.com/tendant/simple-rbac/pkg/ratelimit"
	roleapi "github.com/tendant/simple-rbac/pkg/role/api"
)

// Route prefixes
const (
	PrefixAuth        = "/api/auth"
	PrefixUsers       = "/api/users"
	PrefixRoles       = "/api/roles"
	PrefixPermissions = "/api/permissions"
)

// Config holds all the handlers and middleware needed to setup routes
type Config struct {
	LoginHandle      *loginapi.Handler
	UserHandle       *iamapi.Handler
	RoleHandle       *roleapi.Handler
	PermissionHandle *permissionapi.Handler

	Gate *client.Gate

	// Optional: limits requests under PrefixAuth when set
	AuthRateLimit *ratelimit.Middleware
	// Optional: instruments every route and serves /metrics when set
	Metrics *metrics.Metrics

	Now func() time.Time
}

type HealthResponse struct {
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// New returns a router serving every route of cfg
func New(cfg Config) http.Handler {
	r := chi.NewRouter()
	SetupRoutes(r, cfg)
	return r
}

// SetupRoutes registers the API routes on router
func SetupRoutes(router chi.Router, cfg Config) {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	gate := cfg.Gate

	if cfg.Metrics != nil {
		router.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())
	}

	router.Group(func(r chi.Router) {
		if cfg.Metrics != nil {
			r.Use(cfg.Metrics.Instrument)
		}

		r.Get("/api/health", func(w http.ResponseWriter, r *http.Request) {
			render.JSON(w, r, HealthResponse{Status: "OK", Message: "Server is running", Timestamp: now().UTC()})
		})

		r.Route(PrefixAuth, func(r chi.Router) {
			if cfg.AuthRateLimit != nil {
				r.Use(cfg.AuthRateLimit.Handler)
			}
			r.Post("/signup", cfg.LoginHandle.Signup)
			r.Post("/login", cfg.LoginHandle.Login)
			r.Post("/refresh", cfg.LoginHandle.Refresh)
			r.With(gate.Authenticate).Get("/me", cfg.LoginHandle.Me)
		})

		r.Route(PrefixUsers, func(r chi.Router) {
			r.Use(gate.Authenticate)
			r.With(gate.RequirePermissions("user.read")).Get("/", cfg.UserHandle.List)
			r.With(gate.RequirePermissions("user.read")).Get("/{id}", cfg.UserHandle.Get)
			r.With(gate.RequirePermissions("user.create")).Post("/", cfg.UserHandle.Create)
			r.With(gate.RequirePermissions("user.update")).Put("/{id}", cfg.UserHandle.Update)
			r.With(gate.RequirePermissions("user.delete")).Delete("/{id}", cfg.UserHandle.Delete)
			r.With(gate.RequirePermissions("user.update")).Post("/{id}/roles", cfg.UserHandle.AssignRoles)
			r.With(gate.RequirePermissions("user.update")).Patch("/{id}/toggle-status", cfg.UserHandle.ToggleStatus)
		})

		r.Route(PrefixRoles, func(r chi.Router) {
			r.Use(gate.Authenticate)
			r.With(gate.RequirePermissions("role.read")).Get("/", cfg.RoleHandle.List)
			r.With(gate.RequirePermissions("role.read")).Get("/{id}", cfg.RoleHandle.Get)
			r.With(gate.RequirePermissions("role.create")).Post("/", cfg.RoleHandle.Create)
			r.With(gate.RequirePermissions("role.update")).Put("/{id}", cfg.RoleHandle.Update)
			r.With(gate.RequirePermissions("role.delete")).Delete("/{id}", cfg.RoleHandle.Delete)
			r.With(gate.RequirePermissions("role.update")).Post("/{id}/permissions", cfg.RoleHandle.AssignPermissions)
		})

		// the default seed defines no permission.create|update|delete; admin covers them
		r.Route(PrefixPermissions, func(r chi.Router) {
			r.Use(gate.Authenticate)
			r.With(gate.RequirePermissions("permission.read")).Get("/", cfg.PermissionHandle.List)
			r.With(gate.RequirePermissions("permission.read")).Get("/{id}", cfg.PermissionHandle.Get)
			r.With(gate.RequirePermissions("permission.create")).Post("/", cfg.PermissionHandle.Create)
			r.With(gate.RequirePermissions("permission.update")).Put("/{id}", cfg.PermissionHandle.Update)
			r.With(gate.RequirePermissions("permission.delete")).Delete("/{id}", cfg.PermissionHandle.Delete)
		})
	})
}
