package db

import (
	"embed"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"homefeed/config"
)

//go:embed migrations/*.sql
var fs embed.FS

func migrator(cfg config.TomlDatabase) (*migrate.Migrate, error) {
	d, err := iofs.New(fs, "migrations")
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Name)

	return migrate.NewWithSourceInstance("iofs", d, url)
}

// Migrate runs the database migrations using golang-migrate
func Migrate(cfg config.TomlDatabase) error {
	m, err := migrator(cfg)
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}

// Rollback rolls back the last database migration
func Rollback(cfg config.TomlDatabase) error {
	m, err := migrator(cfg)
	if err != nil {
		return err
	}

	if err := m.Steps(-1); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}
