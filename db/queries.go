package db

import (
	"fmt"
	"time"

	sqlbuilder "github.com/huandu/go-sqlbuilder"
	"github.com/lib/pq"

	"homefeed/feed"
	"homefeed/models"
)

// Query builders are kept separate from execution so the keyset
// predicates can be tested without a database. All pagination is keyset
// ("rows strictly after this rank key"), never offset: offsets shift
// under concurrent inserts, rank keys do not.

const itemColumns = "id, author_id, text, state, likes, comments, shares, score, created_at"

func countPublishedByAuthorsQuery(authorIds []string) (string, []interface{}) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("COUNT(*)").From("items")
	sb.Where(sb.Equal("state", string(models.StatePublished)))
	sb.Where(fmt.Sprintf("author_id = ANY(%s)", sb.Args.Add(pq.Array(authorIds))))
	return sb.Build()
}

// listFollowedQuery orders (created_at DESC, id DESC) and resumes
// strictly after the watermark. The row-comparison is expanded to OR
// form so it can use the partial author/created index.
func listFollowedQuery(authorIds []string, after *feed.RankKey, limit int) (string, []interface{}) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(itemColumns).From("items")
	sb.Where(sb.Equal("state", string(models.StatePublished)))
	sb.Where(fmt.Sprintf("author_id = ANY(%s)", sb.Args.Add(pq.Array(authorIds))))

	if after != nil {
		ts := time.Unix(0, after.CreatedAt).UTC()
		sb.Where(sb.Or(
			sb.LessThan("created_at", ts),
			sb.And(
				sb.Equal("created_at", ts),
				sb.LessThan("id", after.ItemId),
			),
		))
	}

	sb.OrderBy("created_at DESC", "id DESC")
	sb.Limit(limit)
	return sb.Build()
}

// listBackfillQuery orders (score DESC, created_at DESC, id DESC),
// excludes the given authors entirely, and resumes strictly after the
// backfill watermark.
func listBackfillQuery(excludedAuthorIds []string, after *feed.RankKey, limit int) (string, []interface{}) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(itemColumns).From("items")
	sb.Where(sb.Equal("state", string(models.StatePublished)))

	if len(excludedAuthorIds) > 0 {
		sb.Where(fmt.Sprintf("NOT (author_id = ANY(%s))", sb.Args.Add(pq.Array(excludedAuthorIds))))
	}

	if after != nil {
		ts := time.Unix(0, after.CreatedAt).UTC()
		sb.Where(sb.Or(
			sb.LessThan("score", after.Score),
			sb.And(
				sb.Equal("score", after.Score),
				sb.LessThan("created_at", ts),
			),
			sb.And(
				sb.Equal("score", after.Score),
				sb.Equal("created_at", ts),
				sb.LessThan("id", after.ItemId),
			),
		))
	}

	sb.OrderBy("score DESC", "created_at DESC", "id DESC")
	sb.Limit(limit)
	return sb.Build()
}

func followeesOfQuery(viewerId string) (string, []interface{}) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("followee_id").From("follows")
	sb.Where(sb.Equal("follower_id", viewerId))
	sb.OrderBy("followee_id")
	return sb.Build()
}
