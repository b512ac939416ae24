package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"homefeed/db"
)

func migrateCmd() *cli.Command {
	return &cli.Command{
		Name:        "migrate",
		Usage:       "Run database migrations",
		Description: `Runs database migrations on the configured database. Will create the tables if they do not exist.`,
		Flags: []cli.Flag{
			configFlag(),
		},
		Action: func(ctx *cli.Context) error {
			cfg, err := loadConfig(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("Database configured: %s:%d/%s\n",
				cfg.Database.Host,
				cfg.Database.Port,
				cfg.Database.Name,
			)
			return db.Migrate(cfg.Database)
		},
	}
}

func rollbackCmd() *cli.Command {
	return &cli.Command{
		Name:        "rollback",
		Usage:       "Rollback database migration",
		Description: `Rolls back the last database migration`,
		Flags: []cli.Flag{
			configFlag(),
		},
		Action: func(ctx *cli.Context) error {
			cfg, err := loadConfig(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("Database configured: %s:%d/%s\n",
				cfg.Database.Host,
				cfg.Database.Port,
				cfg.Database.Name,
			)
			return db.Rollback(cfg.Database)
		},
	}
}
