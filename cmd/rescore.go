package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"homefeed/db"
	"homefeed/feed"
)

func rescoreCmd() *cli.Command {
	return &cli.Command{
		Name:  "rescore",
		Usage: "Recompute engagement scores",
		Description: `Recomputes the engagement score of every published item from its
like/comment/share counters and age, using the weights from the
configuration.

Can be run as a cron job to keep the backfill ordering fresh. Safe to
run while viewers are paging: scores are read without coordination and
the composer accepts reordering of not-yet-seen backfill items.`,
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

			affected, err := database.RecomputeScores(ctx.Context, feed.EngagementScoring{
				CommentWeight: cfg.Scoring.CommentWeight,
				ShareWeight:   cfg.Scoring.ShareWeight,
				Gravity:       cfg.Scoring.Gravity,
			})
			if err != nil {
				return err
			}

			fmt.Printf("Rescored %d items\n", affected)
			return nil
		},
	}
}
