package feed

import (
	"fmt"
	"strings"

	"homefeed/models"
)

// RankKey is a position within one phase ordering. The feed walks both
// orderings descending, so "after" means closer to the bottom. Score is
// only meaningful for backfill keys; followed keys carry zero there.
//
// The key is total: id breaks every remaining tie, so two distinct items
// never compare equal and pagination is stable.
type RankKey struct {
	Score     float64
	CreatedAt int64 // unix nanoseconds
	ItemId    int64
}

// Rank returns the rank key of an item within the given source phase.
// Pure function. An unknown source is a caller contract violation, not a
// runtime condition, so it panics.
func Rank(item models.Item, source models.EntrySource) RankKey {
	switch source {
	case models.SourceFollowed:
		return RankKey{
			CreatedAt: item.CreatedAt.UnixNano(),
			ItemId:    item.Id,
		}
	case models.SourceBackfill:
		return RankKey{
			Score:     item.Score,
			CreatedAt: item.CreatedAt.UnixNano(),
			ItemId:    item.Id,
		}
	default:
		panic(fmt.Sprintf("feed: unknown entry source %q", source))
	}
}

// After reports whether k sorts strictly after other in the descending
// feed walk, i.e. whether an item at k would be emitted later than one at
// other.
func (k RankKey) After(other RankKey) bool {
	if k.Score != other.Score {
		return k.Score < other.Score
	}
	if k.CreatedAt != other.CreatedAt {
		return k.CreatedAt < other.CreatedAt
	}
	return k.ItemId < other.ItemId
}

// IsZero reports whether the key holds no watermark yet.
func (k RankKey) IsZero() bool {
	return k.ItemId == 0
}

// EngagementScoring writes the SQL expression that recomputes an item's
// engagement score from its counters and age. Likes weigh 1.0, comments
// and shares are weighted relative to that, and gravity controls how fast
// scores decay as items age.
type EngagementScoring struct {
	CommentWeight float64
	ShareWeight   float64
	Gravity       float64
}

func (s EngagementScoring) ApplyScoring(sb *strings.Builder) {
	sb.WriteString(fmt.Sprintf(
		"(likes + %f * comments + %f * shares) / POWER((EXTRACT(EPOCH FROM (NOW() - created_at)) / 3600.0) + 2, %f)",
		s.CommentWeight, s.ShareWeight, s.Gravity,
	))
}
