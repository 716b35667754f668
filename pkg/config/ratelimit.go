package config

import (
	"net/netip"
	"time"

	"github.com/tendant/simple-rbac/pkg/ratelimit"
)

const (
	RateLimitBackendMemory = "memory"
	RateLimitBackendRedis  = "redis"
)

// RateLimitConfig limits requests to the auth endpoints per client IP
type RateLimitConfig struct {
	Enabled  bool          `env:"RATE_LIMIT_ENABLED" env-default:"true"`
	Requests int           `env:"RATE_LIMIT_REQUESTS" env-default:"100"`
	Window   time.Duration `env:"RATE_LIMIT_WINDOW" env-default:"15m"`
	Backend  string        `env:"RATE_LIMIT_BACKEND" env-default:"memory"`
	RedisURL string        `env:"REDIS_URL" env-default:"redis://localhost:6379/0"`

	// TrustedProxies lists the CIDRs or addresses of reverse proxies allowed
	// to report the client IP in X-Forwarded-For. Empty trusts no one.
	TrustedProxies []string `env:"RATE_LIMIT_TRUSTED_PROXIES" env-separator:","`
}

// Proxies parses TrustedProxies
func (c RateLimitConfig) Proxies() ([]netip.Prefix, error) {
	return ratelimit.ParseTrustedProxies(c.TrustedProxies)
}

func (c RateLimitConfig) Validate() ValidationErrors {
	if !c.Enabled {
		return nil
	}
	errs := CollectErrors(
		RequirePositive("RATE_LIMIT_REQUESTS", c.Requests),
		RequirePositiveDuration("RATE_LIMIT_WINDOW", c.Window),
		RequireOneOf("RATE_LIMIT_BACKEND", c.Backend, []string{RateLimitBackendMemory, RateLimitBackendRedis}),
	)
	if c.Backend == RateLimitBackendRedis {
		errs = append(errs, CollectErrors(RequireNonEmpty("REDIS_URL", c.RedisURL))...)
	}
	if _, err := c.Proxies(); err != nil {
		errs = append(errs, ValidationError{Field: "RATE_LIMIT_TRUSTED_PROXIES", Message: err.Error()})
	}
	return errs
}
