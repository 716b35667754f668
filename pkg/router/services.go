package router

import (
	"fmt"
	"net/netip"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/simple-rbac/pkg/client"
	"github.com/tendant/simple-rbac/pkg/credential"
	"github.com/tendant/simple-rbac/pkg/iam"
	iamapi "github.com/tendant/simple-rbac/pkg/iam/api"
	"github.com/tendant/simple-rbac/pkg/login"
	loginapi "github.com/tendant/simple-rbac/pkg/login/api"
	"github.com/tendant/simple-rbac/pkg/metrics"
	"github.com/tendant/simple-rbac/pkg/permission"
	permissionapi "github.com/tendant/simple-rbac/pkg/permission/api"
	"github.com/tendant/simple-rbac/pkg/ratelimit"
	"github.com/tendant/simple-rbac/pkg/role"
	roleapi "github.com/tendant/simple-rbac/pkg/role/api"
	"github.com/tendant/simple-rbac/pkg/tokengenerator"
)

// Repositories groups the storage backends of the services
type Repositories struct {
	Users       iam.UserRepository
	Roles       role.RoleRepository
	Permissions permission.PermissionRepository
}

// NewInMemoryRepositories returns empty in-memory repositories. All data is
// lost when the process stops.
func NewInMemoryRepositories() Repositories {
	perms := permission.NewInMemoryPermissionRepository()
	return Repositories{
		Users:       iam.NewInMemoryUserRepository(),
		Roles:       role.NewInMemoryRoleRepository(perms),
		Permissions: perms,
	}
}

// NewPostgresRepositories returns repositories backed by pool. The schema in
// migrations/usermgr.sql must already be applied.
func NewPostgresRepositories(pool *pgxpool.Pool) Repositories {
	return Repositories{
		Users:       iam.NewPostgresUserRepository(pool),
		Roles:       role.NewPostgresRoleRepository(pool),
		Permissions: permission.NewPostgresPermissionRepository(pool),
	}
}

// Options contains the settings for wiring the services
type Options struct {
	// Required
	JwtSecret     string
	RefreshSecret string

	// Optional - defaults will be used if not provided
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
	Passwords          *credential.Manager // default: bcrypt at the default cost
	Metrics            *metrics.Metrics
	RateLimitStore     ratelimit.Store // nil disables auth rate limiting
	TrustedProxies     []netip.Prefix  // peers whose X-Forwarded-For is honoured
}

// Services holds the wired services
type Services struct {
	Permissions *permission.PermissionService
	Roles       *role.RoleService
	Users       *iam.IamService
	Login       *login.LoginService
	Tokens      *tokengenerator.TokenService
}

// NewServices wires the services over repos
func NewServices(repos Repositories, opts Options) (*Services, error) {
	tokens, err := tokengenerator.NewTokenService(opts.JwtSecret, opts.RefreshSecret,
		tokengenerator.WithAccessTokenExpiry(opts.AccessTokenExpiry),
		tokengenerator.WithRefreshTokenExpiry(opts.RefreshTokenExpiry),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create token service: %w", err)
	}

	passwords := opts.Passwords
	if passwords == nil {
		passwords = credential.NewManager(credential.NewBcryptHasher())
	}

	users := iam.NewIamService(repos.Users, repos.Roles, passwords)
	return &Services{
		Permissions: permission.NewPermissionService(repos.Permissions),
		Roles:       role.NewRoleService(repos.Roles, repos.Permissions),
		Users:       users,
		Login:       login.NewLoginService(users, tokens, login.WithMetrics(opts.Metrics)),
		Tokens:      tokens,
	}, nil
}

// RouterConfig builds the handlers and gate for SetupRoutes
func (s *Services) RouterConfig(opts Options) Config {
	cfg := Config{
		LoginHandle:      loginapi.NewHandler(s.Login),
		UserHandle:       iamapi.NewHandler(s.Users),
		RoleHandle:       roleapi.NewHandler(s.Roles),
		PermissionHandle: permissionapi.NewHandler(s.Permissions),
		Gate:             client.NewGate(s.Tokens, s.Users, client.WithMetrics(opts.Metrics)),
		Metrics:          opts.Metrics,
	}
	if opts.RateLimitStore != nil {
		var limitOpts []ratelimit.Option
		if len(opts.TrustedProxies) > 0 {
			limitOpts = append(limitOpts, ratelimit.WithKeyFunc(ratelimit.TrustedProxyKey(opts.TrustedProxies)))
		}
		cfg.AuthRateLimit = ratelimit.NewMiddleware(opts.RateLimitStore, limitOpts...)
	}
	return cfg
}
