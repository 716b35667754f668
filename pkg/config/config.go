package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"github.com/tendant/chi-demo/app"
)

// SeedConfig controls loading the default roles and accounts at startup
type SeedConfig struct {
	OnStart bool `env:"SEED_ON_START" env-default:"false"`
}

type Config struct {
	AppConfig       app.AppConfig
	JwtConfig       JwtConfig
	PasswordConfig  PasswordConfig
	DatabaseConfig  DatabaseConfig
	RateLimitConfig RateLimitConfig
	SeedConfig      SeedConfig
}

// Load reads the optional env files into the process environment, then
// builds the Config from the environment and validates it.
func Load(envFiles ...string) (Config, error) {
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				slog.Debug("No env file", "path", f)
				continue
			}
			return Config{}, fmt.Errorf("failed to load %s: %w", f, err)
		}
		slog.Info("Loaded env file", "path", f)
	}

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks every config group and reports all problems at once
func (c Config) Validate() error {
	var errs ValidationErrors
	errs = append(errs, c.JwtConfig.Validate()...)
	errs = append(errs, c.PasswordConfig.Validate()...)
	errs = append(errs, c.DatabaseConfig.Validate()...)
	errs = append(errs, c.RateLimitConfig.Validate()...)
	if len(errs) > 0 {
		return errs
	}
	return nil
}
