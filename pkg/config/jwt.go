package config

import (
	"time"
)

// JwtConfig holds the token signing configuration. Both secrets are required
// and must differ; there is no built-in default.
type JwtConfig struct {
	Secret             string        `env:"JWT_SECRET"`
	RefreshSecret      string        `env:"JWT_REFRESH_SECRET"`
	AccessTokenExpiry  time.Duration `env:"ACCESS_TOKEN_EXPIRY" env-default:"1h"`
	RefreshTokenExpiry time.Duration `env:"REFRESH_TOKEN_EXPIRY" env-default:"168h"`
}

func (j JwtConfig) Validate() ValidationErrors {
	errs := CollectErrors(
		RequireNonEmpty("JWT_SECRET", j.Secret),
		RequireNonEmpty("JWT_REFRESH_SECRET", j.RefreshSecret),
		RequirePositiveDuration("ACCESS_TOKEN_EXPIRY", j.AccessTokenExpiry),
		RequirePositiveDuration("REFRESH_TOKEN_EXPIRY", j.RefreshTokenExpiry),
	)
	if j.Secret != "" && j.Secret == j.RefreshSecret {
		errs = append(errs, ValidationError{Field: "JWT_REFRESH_SECRET", Message: "must differ from JWT_SECRET"})
	}
	return errs
}
