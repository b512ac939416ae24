package cmd

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/cqroot/prompt"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/urfave/cli/v2"

	"homefeed/db"
	"homefeed/feed"
	"homefeed/models"
)

func seedCmd() *cli.Command {
	return &cli.Command{
		Name:  "seed",
		Usage: "Seed the database with demo data",
		Description: `Writes demo data into the configured database:

A set of community authors, a demo viewer following some of them, and
published items with randomized engagement counters spread over the
last 30 days. Engagement scores are recomputed after seeding so the
backfill ordering is meaningful immediately.

Asks for confirmation since it writes to the configured database.`,
		Flags: []cli.Flag{
			configFlag(),
			&cli.IntFlag{
				Name:  "authors",
				Value: 25,
				Usage: "Number of community authors to create",
			},
			&cli.IntFlag{
				Name:  "items",
				Value: 500,
				Usage: "Number of published items to create",
			},
			&cli.StringFlag{
				Name:  "viewer",
				Value: "demo",
				Usage: "Viewer id to create follow edges for",
			},
			&cli.IntFlag{
				Name:  "follows",
				Value: 5,
				Usage: "Number of authors the viewer follows",
			},
		},
		Action: func(ctx *cli.Context) error {
			cfg, err := loadConfig(ctx)
			if err != nil {
				return err
			}

			answer, err := prompt.New().Ask(fmt.Sprintf(
				"Seed demo data into %s:%d/%s? (yes/no)",
				cfg.Database.Host, cfg.Database.Port, cfg.Database.Name,
			)).Input("no")
			if err != nil {
				return err
			}
			if answer != "yes" {
				fmt.Println("Aborted")
				return nil
			}

			database, err := db.NewDB(cfg.Database)
			if err != nil {
				return err
			}
			defer database.Close()

			authors := lo.Times(ctx.Int("authors"), func(_ int) string {
				return uuid.NewString()
			})

			follows := ctx.Int("follows")
			if follows > len(authors) {
				follows = len(authors)
			}
			for _, followee := range authors[:follows] {
				if err := database.CreateFollow(ctx.Context, ctx.String("viewer"), followee); err != nil {
					return err
				}
			}

			// Deterministic seed so repeated runs produce comparable data
			rnd := rand.New(rand.NewSource(42))
			now := time.Now()

			for i := 0; i < ctx.Int("items"); i++ {
				item := models.Item{
					AuthorId:  authors[rnd.Intn(len(authors))],
					Text:      fmt.Sprintf("Demo item %d", i),
					State:     models.StatePublished,
					Likes:     int64(rnd.Intn(200)),
					Comments:  int64(rnd.Intn(50)),
					Shares:    int64(rnd.Intn(20)),
					CreatedAt: now.Add(-time.Duration(rnd.Intn(30*24*60)) * time.Minute),
				}
				if _, err := database.CreateItem(ctx.Context, item); err != nil {
					return err
				}
			}

			scored, err := database.RecomputeScores(ctx.Context, feed.EngagementScoring{
				CommentWeight: cfg.Scoring.CommentWeight,
				ShareWeight:   cfg.Scoring.ShareWeight,
				Gravity:       cfg.Scoring.Gravity,
			})
			if err != nil {
				return err
			}

			fmt.Printf("Seeded %d authors, %d follows, %d items (%d scored)\n",
				len(authors), follows, ctx.Int("items"), scored)
			return nil
		},
	}
}
