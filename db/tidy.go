package db

import (
	"context"
	"fmt"
	"time"

	sqlbuilder "github.com/huandu/go-sqlbuilder"
	log "github.com/sirupsen/logrus"

	"homefeed/models"
)

// Tidy tombstones published items older than the retention window.
// Items are never hard-deleted: the deleted state keeps ids stable for
// anything still holding a reference.
func (d *DB) Tidy(ctx context.Context, retentionDays int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update("items")
	ub.Set(ub.Assign("state", string(models.StateDeleted)))
	ub.Where(
		ub.Equal("state", string(models.StatePublished)),
		ub.LessEqualThan("created_at", cutoff),
	)
	query, args := ub.Build()

	log.WithFields(log.Fields{
		"cutoff": cutoff.Format(time.RFC3339),
	}).Info("Tidying old items")

	res, err := d.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("update error: %w", err)
	}
	return res.RowsAffected()
}
