package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"homefeed/db"
	"homefeed/feed"
	"homefeed/server"
)

func serveCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the homefeed API",
		Description: `Starts the homefeed HTTP server.

Exposes the feed page endpoint along with health and Prometheus metrics
endpoints. The feed is composed on every request from the configured
PostgreSQL database; no per-viewer state is held in the server.`,
		Flags: []cli.Flag{
			configFlag(),
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to listen on, overrides the config file",
				EnvVars: []string{"HOMEFEED_PORT"},
			},
		},
		Action: func(ctx *cli.Context) error {
			cfg, err := loadConfig(ctx)
			if err != nil {
				return err
			}
			if ctx.IsSet("port") {
				cfg.Server.Port = ctx.Int("port")
			}
			if cfg.Feed.CursorSecret == "" {
				log.Warn("No cursor secret configured, issued cursors will not be tamper evident")
			}

			database, err := db.NewDB(cfg.Database)
			if err != nil {
				return err
			}
			defer database.Close()

			composer := feed.NewComposer(
				database,
				database,
				feed.NewCursorCodec(cfg.Feed.CursorSecret),
				cfg.Feed.DefaultPageSize,
				cfg.Feed.MaxPageSize,
			)

			app := server.Server(&server.ServerConfig{
				Hostname: cfg.Server.Hostname,
				Composer: composer,
			})

			// Graceful shutdown
			c := make(chan os.Signal, 1)
			signal.Notify(c, os.Interrupt)

			go func() {
				<-c
				fmt.Println("Gracefully shutting down...")
				if err := app.ShutdownWithTimeout(60 * time.Second); err != nil {
					log.Error("Error shutting down server", err)
				}
			}()

			fmt.Println("Starting server...")
			return app.Listen(fmt.Sprintf(":%d", cfg.Server.Port))
		},
	}
}
