package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"homefeed/db"
)

func tidyCmd() *cli.Command {
	return &cli.Command{
		Name:  "tidy",
		Usage: "Tidy up the database",
		Description: `Tidy up the database by tombstoning items that are old.

		Marks published items older than the configured retention window
		as deleted. This keeps the feed fresh without invalidating item
		ids that may still be referenced elsewhere.`,
		Flags: []cli.Flag{
			configFlag(),
		},
		Action: func(ctx *cli.Context) error {
			cfg, err := loadConfig(ctx)
			if err != nil {
				return err
			}

			database, err := db.NewDB(cfg.Database)
			if err != nil {
				return err
			}
			defer database.Close()

			affected, err := database.Tidy(ctx.Context, cfg.Feed.RetentionDays)
			if err != nil {
				return err
			}

			fmt.Printf("Tombstoned %d items\n", affected)
			return nil
		},
	}
}
