package tokengenerator

import (
	"fmt"
	"log/slog"
	"time"
)

// Option configures a TokenService
type Option func(*TokenService)

// parseDurationValue parses either a string or time.Duration into time.Duration
func parseDurationValue(v interface{}) (time.Duration, error) {
	switch val := v.(type) {
	case time.Duration:
		return val, nil
	case string:
		if val == "" {
			return 0, nil
		}
		return time.ParseDuration(val)
	default:
		return 0, fmt.Errorf("invalid duration type: %T", v)
	}
}

// WithAccessTokenExpiry sets the access token expiry duration
// Accepts either time.Duration or string (e.g., "1h", "30m")
func WithAccessTokenExpiry(expiry interface{}) Option {
	return func(s *TokenService) {
		if d, err := parseDurationValue(expiry); err == nil && d > 0 {
			s.accessTokenExpiry = d
		} else if err != nil {
			slog.Error("Failed to parse access token expiry", "err", err, "value", expiry)
		}
	}
}

// WithRefreshTokenExpiry sets the refresh token expiry duration
// Accepts either time.Duration or string (e.g., "168h")
func WithRefreshTokenExpiry(expiry interface{}) Option {
	return func(s *TokenService) {
		if d, err := parseDurationValue(expiry); err == nil && d > 0 {
			s.refreshTokenExpiry = d
		} else if err != nil {
			slog.Error("Failed to parse refresh token expiry", "err", err, "value", expiry)
		}
	}
}

// WithClock replaces time.Now for issuing and validating tokens
func WithClock(now func() time.Time) Option {
	return func(s *TokenService) {
		if now != nil {
			s.now = now
		}
	}
}
