package config

import (
	"fmt"

	dbutils "github.com/tendant/db-utils/db"
)

const (
	PersistenceMemory   = "memory"
	PersistencePostgres = "postgres"
)

// DatabaseConfig selects the storage backend and holds the PostgreSQL settings
type DatabaseConfig struct {
	Persistence string `env:"PERSISTENCE" env-default:"memory"`
	Host        string `env:"USERMGR_PG_HOST" env-default:"localhost"`
	Port        uint16 `env:"USERMGR_PG_PORT" env-default:"5432"`
	Database    string `env:"USERMGR_PG_DATABASE" env-default:"usermgr_db"`
	User        string `env:"USERMGR_PG_USER" env-default:"usermgr"`
	Password    string `env:"USERMGR_PG_PASSWORD" env-default:"pwd"`
	Schema      string `env:"USERMGR_PG_SCHEMA" env-default:"public"`
}

// ToDatabaseURL converts the config to a PostgreSQL connection URL
func (d DatabaseConfig) ToDatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable&search_path=%s,public",
		d.User, d.Password, d.Host, d.Port, d.Database, d.Schema)
}

// ToDbConfig converts the config to a db-utils DbConfig
func (d DatabaseConfig) ToDbConfig() dbutils.DbConfig {
	return dbutils.DbConfig{
		Host:     d.Host,
		Port:     d.Port,
		Database: d.Database,
		User:     d.User,
		Password: d.Password,
	}
}

func (d DatabaseConfig) Validate() ValidationErrors {
	errs := CollectErrors(
		RequireOneOf("PERSISTENCE", d.Persistence, []string{PersistenceMemory, PersistencePostgres}),
	)
	if d.Persistence == PersistencePostgres {
		errs = append(errs, CollectErrors(
			RequireNonEmpty("USERMGR_PG_HOST", d.Host),
			RequireNonEmpty("USERMGR_PG_DATABASE", d.Database),
			RequireNonEmpty("USERMGR_PG_USER", d.User),
		)...)
	}
	return errs
}
