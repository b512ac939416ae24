package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	sqlbuilder "github.com/huandu/go-sqlbuilder"
	log "github.com/sirupsen/logrus"

	"homefeed/config"
	"homefeed/feed"
	"homefeed/models"
)

// DB implements the content and relationship stores on PostgreSQL with a
// shared connection pool. The feed read path only ever reads; the write
// operations below exist for the seed, rescore and tidy commands.
type DB struct {
	db *sql.DB
}

var _ feed.ContentStore = (*DB)(nil)
var _ feed.RelationshipStore = (*DB)(nil)

func NewDB(cfg config.TomlDatabase) (*DB, error) {
	db, err := connection(cfg)
	if err != nil {
		return nil, err
	}
	return &DB{db: db}, nil
}

func (d *DB) Close() error {
	return d.db.Close()
}

// Read operations

func (d *DB) CountPublishedByAuthors(ctx context.Context, authorIds []string) (int64, error) {
	if len(authorIds) == 0 {
		return 0, nil
	}

	query, args := countPublishedByAuthorsQuery(authorIds)

	var count int64
	if err := d.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count error: %w", err)
	}
	return count, nil
}

func (d *DB) ListPublishedByAuthorsAfter(ctx context.Context, authorIds []string, after *feed.RankKey, limit int) ([]models.Item, error) {
	if len(authorIds) == 0 {
		return nil, nil
	}

	query, args := listFollowedQuery(authorIds, after, limit)
	return d.queryItems(ctx, query, args)
}

func (d *DB) ListPublishedExcludingAuthorsAfter(ctx context.Context, excludedAuthorIds []string, after *feed.RankKey, limit int) ([]models.Item, error) {
	query, args := listBackfillQuery(excludedAuthorIds, after, limit)
	return d.queryItems(ctx, query, args)
}

func (d *DB) FolloweesOf(ctx context.Context, viewerId string) ([]string, error) {
	query, args := followeesOfQuery(viewerId)

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}
	defer rows.Close()

	var followees []string
	for rows.Next() {
		var followee string
		if err := rows.Scan(&followee); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		followees = append(followees, followee)
	}
	return followees, rows.Err()
}

func (d *DB) queryItems(ctx context.Context, query string, args []interface{}) ([]models.Item, error) {
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}
	defer rows.Close()

	var items []models.Item
	for rows.Next() {
		var item models.Item
		if err := rows.Scan(
			&item.Id, &item.AuthorId, &item.Text, &item.State,
			&item.Likes, &item.Comments, &item.Shares, &item.Score,
			&item.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// Write operations

// CreateItem inserts a new item and returns its id. Published items get
// their creation timestamp here; drafts get theirs when published.
func (d *DB) CreateItem(ctx context.Context, item models.Item) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	createdAt := item.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto("items")
	ib.Cols("author_id", "text", "state", "likes", "comments", "shares", "score", "created_at")
	ib.Values(item.AuthorId, item.Text, string(item.State), item.Likes, item.Comments, item.Shares, item.Score, createdAt)
	query, args := ib.Build()

	var id int64
	if err := d.db.QueryRowContext(ctx, query+" RETURNING id", args...).Scan(&id); err != nil {
		return 0, fmt.Errorf("insert error: %w", err)
	}
	return id, nil
}

// PublishItem transitions a draft to published and stamps created_at.
// The transition is one-way: publishing anything but a draft is an
// error.
func (d *DB) PublishItem(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update("items")
	ub.Set(
		ub.Assign("state", string(models.StatePublished)),
		"created_at = NOW()",
	)
	ub.Where(
		ub.Equal("id", id),
		ub.Equal("state", string(models.StateDraft)),
	)
	query, args := ub.Build()

	res, err := d.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update error: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("item %d is not a draft", id)
	}
	return nil
}

// CreateFollow records a follow edge. Idempotent: following twice is a
// no-op, not an error.
func (d *DB) CreateFollow(ctx context.Context, followerId, followeeId string) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := d.db.ExecContext(ctx, `
		INSERT INTO follows (follower_id, followee_id, created_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (follower_id, followee_id) DO NOTHING`,
		followerId, followeeId,
	)
	if err != nil {
		return fmt.Errorf("insert error: %w", err)
	}
	return nil
}

// RecomputeScores refreshes the engagement score of every published item
// from its counters and age. The feed reads scores without coordination,
// so this can run while viewers are paging; not-yet-seen backfill items
// may reorder, which the composer documents as accepted.
func (d *DB) RecomputeScores(ctx context.Context, scoring feed.EngagementScoring) (int64, error) {
	var expr strings.Builder
	scoring.ApplyScoring(&expr)

	query := fmt.Sprintf(
		"UPDATE items SET score = %s WHERE state = $1",
		expr.String(),
	)

	res, err := d.db.ExecContext(ctx, query, string(models.StatePublished))
	if err != nil {
		return 0, fmt.Errorf("update error: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}

	log.WithFields(log.Fields{
		"items": affected,
	}).Info("Recomputed engagement scores")

	return affected, nil
}
