package login

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/tendant/simple-rbac/pkg/errors"
	"github.com/tendant/simple-rbac/pkg/iam"
	"github.com/tendant/simple-rbac/pkg/metrics"
	tg "github.com/tendant/simple-rbac/pkg/tokengenerator"
	"github.com/tendant/simple-rbac/pkg/utils"
)

var (
	ErrNoCredentials       = apperrors.New(apperrors.ErrCodeNoCredentials, "Email and password are required")
	ErrInvalidCredentials  = apperrors.New(apperrors.ErrCodeInvalidCredentials, "Invalid credentials")
	ErrInactiveAccount     = apperrors.New(apperrors.ErrCodeInactiveAccount, "Account is deactivated")
	ErrInvalidRefreshToken = apperrors.New(apperrors.ErrCodeInvalidToken, "Invalid refresh token")
	ErrUserExists          = apperrors.Conflict("User already exists")
)

// Tokens is what a successful login hands back to the client
type Tokens struct {
	AccessToken        string
	AccessTokenExpiry  time.Time
	RefreshToken       string
	RefreshTokenExpiry time.Time
}

type LoginResult struct {
	Tokens Tokens
	User   iam.User
}

type SignupParams struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// LoginService exchanges credentials and refresh tokens for access tokens
type LoginService struct {
	users   *iam.IamService
	tokens  *tg.TokenService
	metrics *metrics.Metrics
}

type Option func(*LoginService)

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *LoginService) {
		s.metrics = m
	}
}

func NewLoginService(users *iam.IamService, tokens *tg.TokenService, opts ...Option) *LoginService {
	s := &LoginService{
		users:  users,
		tokens: tokens,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Login checks email and password and issues an access and a refresh token.
// An unknown email and a wrong password are indistinguishable to the caller,
// both in the error and in the time a password check takes.
// The password is checked before the active flag.
func (s *LoginService) Login(ctx context.Context, email, password string) (LoginResult, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		s.metrics.AuthAttempt(metrics.OutcomeNoCredentials)
		return LoginResult{}, ErrNoCredentials
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, iam.ErrUserNotFound) {
			s.users.VerifyPasswordWithoutUser(password)
			slog.Debug("Login for unknown email", "email", utils.NormalizeEmail(email))
			s.metrics.AuthAttempt(metrics.OutcomeInvalidCredentials)
			return LoginResult{}, ErrInvalidCredentials
		}
		s.metrics.AuthAttempt(metrics.OutcomeError)
		return LoginResult{}, err
	}

	if !s.users.VerifyPassword(user, password) {
		slog.Debug("Login with wrong password", "id", user.ID)
		s.metrics.AuthAttempt(metrics.OutcomeInvalidCredentials)
		return LoginResult{}, ErrInvalidCredentials
	}
	if !user.IsActive {
		slog.Warn("Login for deactivated account", "id", user.ID)
		s.metrics.AuthAttempt(metrics.OutcomeInactiveAccount)
		return LoginResult{}, ErrInactiveAccount
	}

	tokens, err := s.issue(user.ID)
	if err != nil {
		s.metrics.AuthAttempt(metrics.OutcomeError)
		return LoginResult{}, err
	}

	at, err := s.users.RecordLogin(ctx, user.ID)
	if err != nil {
		// the tokens are valid either way
		slog.Error("Failed to record last login", "id", user.ID, "err", err)
	} else {
		user.LastLogin = &at
	}

	s.metrics.AuthAttempt(metrics.OutcomeSuccess)
	slog.Info("User logged in", "id", user.ID)
	return LoginResult{Tokens: tokens, User: user}, nil
}

// Refresh issues a new access token for a valid refresh token whose user
// still exists and is active. The refresh token itself stays valid.
func (s *LoginService) Refresh(ctx context.Context, refreshToken string) (string, time.Time, error) {
	if refreshToken == "" {
		return "", time.Time{}, ErrInvalidRefreshToken
	}
	subject, err := s.tokens.Verify(refreshToken, tg.RefreshToken)
	if err != nil {
		slog.Debug("Rejected refresh token", "err", err)
		return "", time.Time{}, ErrInvalidRefreshToken
	}
	id, err := uuid.Parse(subject)
	if err != nil {
		return "", time.Time{}, ErrInvalidRefreshToken
	}

	user, err := s.users.GetUser(ctx, id)
	if err != nil {
		if !errors.Is(err, iam.ErrUserNotFound) {
			slog.Error("Failed to load user for refresh", "id", id, "err", err)
		}
		return "", time.Time{}, ErrInvalidRefreshToken
	}
	if !user.IsActive {
		slog.Warn("Refresh for deactivated account", "id", id)
		return "", time.Time{}, ErrInvalidRefreshToken
	}

	token, expiry, err := s.tokens.IssueAccessToken(user.ID.String())
	if err != nil {
		return "", time.Time{}, apperrors.InternalWrap(err, "failed to issue access token")
	}
	return token, expiry, nil
}

// Signup creates an active user without roles and logs it in
func (s *LoginService) Signup(ctx context.Context, params SignupParams) (LoginResult, error) {
	user, err := s.users.CreateUser(ctx, iam.CreateUserParams{
		Email:     params.Email,
		Password:  params.Password,
		FirstName: params.FirstName,
		LastName:  params.LastName,
	})
	if err != nil {
		if errors.Is(err, iam.ErrEmailTaken) {
			return LoginResult{}, ErrUserExists
		}
		return LoginResult{}, err
	}

	tokens, err := s.issue(user.ID)
	if err != nil {
		return LoginResult{}, err
	}
	slog.Info("User signed up", "id", user.ID)
	return LoginResult{Tokens: tokens, User: user}, nil
}

func (s *LoginService) issue(id uuid.UUID) (Tokens, error) {
	var t Tokens
	var err error
	t.AccessToken, t.AccessTokenExpiry, err = s.tokens.IssueAccessToken(id.String())
	if err != nil {
		return Tokens{}, apperrors.InternalWrap(err, "failed to issue access token")
	}
	t.RefreshToken, t.RefreshTokenExpiry, err = s.tokens.IssueRefreshToken(id.String())
	if err != nil {
		return Tokens{}, apperrors.InternalWrap(err, "failed to issue refresh token")
	}
	return t, nil
}
