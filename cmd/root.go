package cmd

import (
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"homefeed/config"
)

func RootApp() *cli.App {
	return &cli.App{
		Name:  "homefeed",
		Usage: "A personalized home feed composition service",
		Description: `Composes a paginated home feed per viewer: items from
		followed authors first, backfilled with popular community items,
		with keyset cursors that guarantee no item appears twice within
		one feed session.

		Flags can generally be set via environment variables, e.g.:

		--config => HOMEFEED_CONFIG=homefeed.toml
		`,
		Commands: []*cli.Command{
			serveCmd(),
			migrateCmd(),
			rollbackCmd(),
			seedCmd(),
			rescoreCmd(),
			tidyCmd(),
		},
		Action: func(ctx *cli.Context) error {
			// Show help if no command is specified
			return ctx.App.Run([]string{"", "help"})
		},
	}
}

func Execute() {
	if err := RootApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func configFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Value:   "homefeed.toml",
		Usage:   "Path to configuration file",
		EnvVars: []string{"HOMEFEED_CONFIG"},
	}
}

// loadConfig reads the configured TOML file. A missing file is only an
// error when the path was set explicitly; otherwise defaults apply.
func loadConfig(ctx *cli.Context) (*config.TomlConfig, error) {
	path := ctx.String("config")
	if _, err := os.Stat(path); err != nil {
		if ctx.IsSet("config") {
			return nil, err
		}
		log.WithFields(log.Fields{
			"path": path,
		}).Warn("No config file found, using defaults")
		return config.DefaultConfig(), nil
	}
	return config.LoadConfig(path)
}
