// Package main runs the user management API.
//
// With PERSISTENCE=memory (the default) all data is lost when the server
// stops; set SEED_ON_START=true to load the demo roles and accounts.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/tendant/chi-demo/app"
	dbutils "github.com/tendant/db-utils/db"
	"github.com/tendant/simple-rbac/pkg/bootstrap"
	"github.com/tendant/simple-rbac/pkg/config"
	"github.com/tendant/simple-rbac/pkg/metrics"
	"github.com/tendant/simple-rbac/pkg/ratelimit"
	"github.com/tendant/simple-rbac/pkg/router"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load(".env")
	if err != nil {
		slog.Error("Invalid configuration", "err", err)
		os.Exit(1)
	}

	ctx := context.Background()

	var repos router.Repositories
	switch cfg.DatabaseConfig.Persistence {
	case config.PersistencePostgres:
		dbConfig := cfg.DatabaseConfig.ToDbConfig()
		pool, err := dbutils.NewDbPool(ctx, dbConfig)
		if err != nil {
			slog.Error("Failed creating dbpool", "db", dbConfig.Database, "host", dbConfig.Host, "port", dbConfig.Port, "user", dbConfig.User, "err", err)
			os.Exit(1)
		}
		defer pool.Close()
		repos = router.NewPostgresRepositories(pool)
	default:
		slog.Warn("Using in-memory storage, data is lost on restart")
		repos = router.NewInMemoryRepositories()
	}

	opts := router.Options{
		JwtSecret:          cfg.JwtConfig.Secret,
		RefreshSecret:      cfg.JwtConfig.RefreshSecret,
		AccessTokenExpiry:  cfg.JwtConfig.AccessTokenExpiry,
		RefreshTokenExpiry: cfg.JwtConfig.RefreshTokenExpiry,
		Passwords:          cfg.PasswordConfig.Manager(),
		Metrics:            metrics.New(),
	}

	if cfg.RateLimitConfig.Enabled {
		store, err := newRateLimitStore(cfg.RateLimitConfig)
		if err != nil {
			slog.Error("Failed creating rate limit store", "backend", cfg.RateLimitConfig.Backend, "err", err)
			os.Exit(1)
		}
		opts.RateLimitStore = store

		proxies, err := cfg.RateLimitConfig.Proxies()
		if err != nil {
			slog.Error("Invalid trusted proxies", "err", err)
			os.Exit(1)
		}
		opts.TrustedProxies = proxies
	}

	services, err := router.NewServices(repos, opts)
	if err != nil {
		slog.Error("Failed creating services", "err", err)
		os.Exit(1)
	}

	if cfg.SeedConfig.OnStart {
		seeder := bootstrap.NewSeeder(services.Permissions, services.Roles, services.Users)
		data := bootstrap.DefaultSeedData()
		result, err := seeder.Seed(ctx, data)
		if err != nil {
			slog.Error("Failed seeding data", "err", err)
			os.Exit(1)
		}
		bootstrap.PrintSeedResult(os.Stdout, result, data)
	}

	server := app.DefaultApp()
	app.RoutesHealthz(server.R)
	app.RoutesHealthzReady(server.R)
	router.SetupRoutes(server.R, services.RouterConfig(opts))

	slog.Info("User management service ready",
		"host", cfg.AppConfig.Host,
		"port", cfg.AppConfig.Port,
		"persistence", cfg.DatabaseConfig.Persistence,
		"rateLimit", cfg.RateLimitConfig.Enabled)
	server.Run()
}

func newRateLimitStore(cfg config.RateLimitConfig) (ratelimit.Store, error) {
	if cfg.Backend == config.RateLimitBackendRedis {
		client, err := ratelimit.NewRedisClient(cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		slog.Info("Rate limiting with redis", "limit", cfg.Requests, "window", cfg.Window)
		return ratelimit.NewRedisStore(client, cfg.Requests, cfg.Window), nil
	}
	slog.Info("Rate limiting in memory", "limit", cfg.Requests, "window", cfg.Window)
	return ratelimit.NewMemoryStore(cfg.Requests, cfg.Window), nil
}
