package feed_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"homefeed/feed"
	"homefeed/models"
)

func TestRankKeyOrderIsTotal(t *testing.T) {
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		source models.EntrySource
		first  models.Item // emitted earlier
		second models.Item // emitted later
	}{
		{
			name:   "followed orders newest first",
			source: models.SourceFollowed,
			first:  models.Item{Id: 1, CreatedAt: at},
			second: models.Item{Id: 2, CreatedAt: at.Add(-time.Hour)},
		},
		{
			name:   "followed breaks time ties on id",
			source: models.SourceFollowed,
			first:  models.Item{Id: 9, CreatedAt: at},
			second: models.Item{Id: 3, CreatedAt: at},
		},
		{
			name:   "backfill orders highest score first",
			source: models.SourceBackfill,
			first:  models.Item{Id: 1, Score: 10, CreatedAt: at.Add(-time.Hour)},
			second: models.Item{Id: 2, Score: 9, CreatedAt: at},
		},
		{
			name:   "backfill breaks score ties on recency",
			source: models.SourceBackfill,
			first:  models.Item{Id: 1, Score: 5, CreatedAt: at},
			second: models.Item{Id: 2, Score: 5, CreatedAt: at.Add(-time.Minute)},
		},
		{
			name:   "backfill breaks full ties on id",
			source: models.SourceBackfill,
			first:  models.Item{Id: 8, Score: 5, CreatedAt: at},
			second: models.Item{Id: 4, Score: 5, CreatedAt: at},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first := feed.Rank(tt.first, tt.source)
			second := feed.Rank(tt.second, tt.source)

			assert.True(t, second.After(first))
			assert.False(t, first.After(second))
			assert.False(t, first.After(first), "After is strict")
		})
	}
}

func TestFollowedRankIgnoresScore(t *testing.T) {
	at := time.Now()
	popular := models.Item{Id: 1, Score: 1000, CreatedAt: at.Add(-time.Hour)}
	fresh := models.Item{Id: 2, Score: 0, CreatedAt: at}

	// In the followed phase recency wins regardless of score.
	assert.True(t, feed.Rank(popular, models.SourceFollowed).After(feed.Rank(fresh, models.SourceFollowed)))
}

func TestRankPanicsOnUnknownSource(t *testing.T) {
	assert.Panics(t, func() {
		feed.Rank(models.Item{Id: 1}, models.EntrySource("trending"))
	})
}

func TestRankKeyIsZero(t *testing.T) {
	assert.True(t, feed.RankKey{}.IsZero())
	assert.False(t, feed.RankKey{ItemId: 1}.IsZero())
}

func TestEngagementScoringExpression(t *testing.T) {
	scoring := feed.EngagementScoring{CommentWeight: 2, ShareWeight: 3, Gravity: 1.5}

	var sb strings.Builder
	scoring.ApplyScoring(&sb)
	expr := sb.String()

	assert.Contains(t, expr, "likes")
	assert.Contains(t, expr, "2.000000 * comments")
	assert.Contains(t, expr, "3.000000 * shares")
	assert.Contains(t, expr, "POWER(")
	assert.Contains(t, expr, "1.500000")
}
