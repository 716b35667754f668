package tokengenerator

import (
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// TokenKind selects which secret a token is signed and verified with
type TokenKind string

const (
	AccessToken  TokenKind = "access"
	RefreshToken TokenKind = "refresh"
)

// Default token expiry durations
const (
	DefaultAccessTokenExpiry  = time.Hour
	DefaultRefreshTokenExpiry = 7 * 24 * time.Hour
)

var (
	ErrMissingSecret = errors.New("jwt secret is required")
	ErrSharedSecret  = errors.New("access and refresh secrets must differ")
	ErrUnknownKind   = errors.New("unknown token kind")
)

// TokenService issues and verifies access and refresh tokens. Each kind has
// its own secret, so a token of one kind never verifies as the other.
type TokenService struct {
	access  *JwtTokenGenerator
	refresh *JwtTokenGenerator

	accessTokenExpiry  time.Duration
	refreshTokenExpiry time.Duration
	now                func() time.Time
}

// NewTokenService creates a TokenService. Both secrets are required and must differ.
func NewTokenService(accessSecret, refreshSecret string, opts ...Option) (*TokenService, error) {
	if accessSecret == "" || refreshSecret == "" {
		return nil, ErrMissingSecret
	}
	if accessSecret == refreshSecret {
		return nil, ErrSharedSecret
	}

	s := &TokenService{
		accessTokenExpiry:  DefaultAccessTokenExpiry,
		refreshTokenExpiry: DefaultRefreshTokenExpiry,
		now:                time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.access = NewJwtTokenGenerator(accessSecret, s.now)
	s.refresh = NewJwtTokenGenerator(refreshSecret, s.now)

	slog.Info("Token service configured",
		"accessTokenExpiry", s.accessTokenExpiry,
		"refreshTokenExpiry", s.refreshTokenExpiry)
	return s, nil
}

// IssueAccessToken returns a signed access token for subject and its expiry
func (s *TokenService) IssueAccessToken(subject string) (string, time.Time, error) {
	return s.access.GenerateToken(subject, s.accessTokenExpiry)
}

// IssueRefreshToken returns a signed refresh token for subject and its expiry
func (s *TokenService) IssueRefreshToken(subject string) (string, time.Time, error) {
	return s.refresh.GenerateToken(subject, s.refreshTokenExpiry)
}

// Verify checks token against the secret of kind and returns the subject.
func (s *TokenService) Verify(token string, kind TokenKind) (string, error) {
	var g *JwtTokenGenerator
	switch kind {
	case AccessToken:
		g = s.access
	case RefreshToken:
		g = s.refresh
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}

	claims, err := g.ParseToken(token)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// AccessTokenExpiry returns the configured access token lifetime
func (s *TokenService) AccessTokenExpiry() time.Duration {
	return s.accessTokenExpiry
}

// RefreshTokenExpiry returns the configured refresh token lifetime
func (s *TokenService) RefreshTokenExpiry() time.Duration {
	return s.refreshTokenExpiry
}
