// Package feed composes the personalized home feed: items from followed
// authors first, backfilled with popular community items, paginated with
// keyset cursors so a viewer never sees the same item twice in one
// session.
package feed

import (
	"context"

	"homefeed/models"
)

// ContentStore is the read interface the composer consumes for items.
// Both list operations use keyset pagination: they return items strictly
// after the given rank key in their ordering, never at an offset.
type ContentStore interface {
	// CountPublishedByAuthors counts published items authored by the
	// given authors. Count only, no row materialization.
	CountPublishedByAuthors(ctx context.Context, authorIds []string) (int64, error)

	// ListPublishedByAuthorsAfter returns published items by the given
	// authors ordered (created_at DESC, id DESC), strictly after the
	// given rank key. A nil key starts from the top.
	ListPublishedByAuthorsAfter(ctx context.Context, authorIds []string, after *RankKey, limit int) ([]models.Item, error)

	// ListPublishedExcludingAuthorsAfter returns published items NOT
	// authored by the given authors ordered (score DESC, created_at
	// DESC, id DESC), strictly after the given rank key.
	ListPublishedExcludingAuthorsAfter(ctx context.Context, excludedAuthorIds []string, after *RankKey, limit int) ([]models.Item, error)
}

// RelationshipStore resolves the viewer's follow set.
type RelationshipStore interface {
	FolloweesOf(ctx context.Context, viewerId string) ([]string, error)
}
