// Package main loads the default permissions, roles and demo accounts into
// PostgreSQL. Running it again leaves existing entities untouched.
package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	dbutils "github.com/tendant/db-utils/db"
	"github.com/tendant/simple-rbac/pkg/bootstrap"
	"github.com/tendant/simple-rbac/pkg/config"
	"github.com/tendant/simple-rbac/pkg/iam"
	"github.com/tendant/simple-rbac/pkg/permission"
	"github.com/tendant/simple-rbac/pkg/role"
)

type Config struct {
	DatabaseConfig config.DatabaseConfig
	PasswordConfig config.PasswordConfig
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		AddSource: true,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Error("Failed to load .env file", "err", err)
		os.Exit(1)
	}
	cfg := Config{}
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		slog.Error("Failed to read config", "err", err)
		os.Exit(1)
	}
	if errs := cfg.PasswordConfig.Validate(); len(errs) > 0 {
		slog.Error("Invalid configuration", "err", errs)
		os.Exit(1)
	}

	ctx := context.Background()
	dbConfig := cfg.DatabaseConfig.ToDbConfig()
	pool, err := dbutils.NewDbPool(ctx, dbConfig)
	if err != nil {
		slog.Error("Failed creating dbpool", "db", dbConfig.Database, "host", dbConfig.Host, "port", dbConfig.Port, "user", dbConfig.User, "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	permRepo := permission.NewPostgresPermissionRepository(pool)
	roleRepo := role.NewPostgresRoleRepository(pool)
	users := iam.NewIamService(iam.NewPostgresUserRepository(pool), roleRepo, cfg.PasswordConfig.Manager())

	seeder := bootstrap.NewSeeder(
		permission.NewPermissionService(permRepo),
		role.NewRoleService(roleRepo, permRepo),
		users,
	)
	data := bootstrap.DefaultSeedData()
	result, err := seeder.Seed(ctx, data)
	if err != nil {
		slog.Error("Seed failed", "err", err)
		os.Exit(1)
	}
	bootstrap.PrintSeedResult(os.Stdout, result, data)
}
