package client

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/jwtauth/v5"
	"github.com/google/uuid"
	apperrors "github.com/tendant/simple-rbac/pkg/errors"
	"github.com/tendant/simple-rbac/pkg/iam"
	"github.com/tendant/simple-rbac/pkg/metrics"
	"github.com/tendant/simple-rbac/pkg/role"
	tg "github.com/tendant/simple-rbac/pkg/tokengenerator"
)

var (
	ErrNoToken         = apperrors.New(apperrors.ErrCodeNoToken, "No token, authorization denied")
	ErrInvalidToken    = apperrors.New(apperrors.ErrCodeInvalidToken, "Token is not valid")
	ErrUnauthenticated = apperrors.New(apperrors.ErrCodeUnauthenticated, "Not authorized")
	ErrForbidden       = apperrors.Forbidden("Insufficient permissions")
)

// TokenVerifier checks a token and returns its subject
type TokenVerifier interface {
	Verify(token string, kind tg.TokenKind) (string, error)
}

// IdentityLoader loads a user with roles and permissions populated
type IdentityLoader interface {
	GetUser(ctx context.Context, id uuid.UUID) (iam.User, error)
}

// Gate holds the authentication and authorization middleware
type Gate struct {
	tokens  TokenVerifier
	users   IdentityLoader
	metrics *metrics.Metrics
}

type Option func(*Gate)

func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Gate) {
		g.metrics = m
	}
}

func NewGate(tokens TokenVerifier, users IdentityLoader, opts ...Option) *Gate {
	g := &Gate{
		tokens: tokens,
		users:  users,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Authenticate verifies the bearer access token, loads the user it names and
// attaches the user to the request context. Every rejection is a 401.
func (g *Gate) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := g.authenticate(r)
		if err != nil {
			apperrors.WriteError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithAuthUser(r.Context(), user)))
	})
}

func (g *Gate) authenticate(r *http.Request) (*iam.User, error) {
	token := bearerToken(r)
	if token == "" {
		g.metrics.AuthAttempt(metrics.OutcomeNoToken)
		return nil, ErrNoToken
	}

	subject, err := g.tokens.Verify(token, tg.AccessToken)
	if err != nil {
		slog.Debug("Rejected access token", "err", err)
		g.metrics.AuthAttempt(metrics.OutcomeInvalidToken)
		return nil, ErrInvalidToken
	}
	id, err := uuid.Parse(subject)
	if err != nil {
		slog.Debug("Access token subject is not a user id", "sub", subject)
		g.metrics.AuthAttempt(metrics.OutcomeInvalidToken)
		return nil, ErrInvalidToken
	}

	user, err := g.users.GetUser(r.Context(), id)
	if err != nil {
		if errors.Is(err, iam.ErrUserNotFound) {
			slog.Debug("Access token names an unknown user", "sub", subject)
		} else {
			slog.Error("Failed to load user for access token", "sub", subject, "err", err)
		}
		g.metrics.AuthAttempt(metrics.OutcomeInvalidToken)
		return nil, ErrInvalidToken
	}
	if !user.IsActive {
		slog.Warn("Access token for deactivated user", "sub", subject)
		g.metrics.AuthAttempt(metrics.OutcomeInactiveAccount)
		return nil, ErrInvalidToken
	}

	g.metrics.AuthAttempt(metrics.OutcomeSuccess)
	return &user, nil
}

// bearerToken returns the token of an "Authorization: Bearer <token>" header,
// or "" when the scheme or its separating space is missing.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if len(header) < len("Bearer ") || !strings.EqualFold(header[:len("Bearer ")], "Bearer ") {
		return ""
	}
	return jwtauth.TokenFromHeader(r)
}

// RequirePermissions lets the request through when the attached user holds
// any of perms or the admin permission.
func (g *Gate) RequirePermissions(perms ...string) func(http.Handler) http.Handler {
	required := role.NewPermissionSet(perms...)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, _ := AuthUserFromContext(r.Context())
			if err := Authorize(user, required); err != nil {
				if errors.Is(err, ErrForbidden) {
					g.metrics.AuthorizationDecision(metrics.DecisionForbidden)
					slog.Info("Permission denied", "user", user.ID, "required", perms, "path", r.URL.Path)
				} else {
					g.metrics.AuthorizationDecision(metrics.DecisionUnauthenticated)
				}
				apperrors.WriteError(w, r, err)
				return
			}
			g.metrics.AuthorizationDecision(metrics.DecisionAllow)
			next.ServeHTTP(w, r)
		})
	}
}

// Authorize decides whether user may perform an operation requiring any of
// required. It returns ErrUnauthenticated without a user and ErrForbidden
// when the user lacks every required permission.
func Authorize(user *iam.User, required role.PermissionSet) error {
	if user == nil {
		return ErrUnauthenticated
	}
	if !role.IsAuthorized(user, required) {
		return ErrForbidden
	}
	return nil
}
