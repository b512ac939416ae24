package feed

import (
	"context"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"

	"homefeed/models"
)

var (
	feedPages = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "homefeed_pages_total",
		Help: "Feed pages served, labeled by the phase of the last emitted entry",
	}, []string{"phase"})

	invalidCursors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "homefeed_invalid_cursors_total",
		Help: "Cursors that failed decoding or signature verification",
	})
)

// Composer produces feed pages. It is a pure read path: stateless,
// safe for any number of concurrent requests, and never mutates the
// stores. All request state travels in the cursor.
type Composer struct {
	content         ContentStore
	rel             RelationshipStore
	codec           *CursorCodec
	defaultPageSize int
	maxPageSize     int
}

func NewComposer(content ContentStore, rel RelationshipStore, codec *CursorCodec, defaultPageSize int, maxPageSize int) *Composer {
	return &Composer{
		content:         content,
		rel:             rel,
		codec:           codec,
		defaultPageSize: defaultPageSize,
		maxPageSize:     maxPageSize,
	}
}

// GetFeedPage returns one page of the viewer's feed: followed-author
// items in (created_at, id) descending order first, then popular
// community items in (score, created_at, id) descending order, never
// repeating an item across the pages of one cursor chain. A page that
// exhausts the followed phase is filled with backfill entries inline
// rather than leaving the transition to the next request.
//
// Ordering is evaluated against store state at read time, not a
// snapshot: items published after the walk passed their rank, and
// backfill items whose score rises above the watermark mid-session, are
// skipped for that session.
//
// An empty or invalid cursor starts the feed from the top; invalid
// cursors are logged and counted but never surfaced as errors. Every
// error returned is a transient store failure and the identical request
// is safe to retry. A negative limit is a caller contract violation and
// panics; zero uses the configured default and oversized limits are
// clamped.
func (c *Composer) GetFeedPage(ctx context.Context, viewerId string, token string, limit int) (*models.FeedPage, error) {
	if limit < 0 {
		panic("feed: negative page size")
	}
	if limit == 0 {
		limit = c.defaultPageSize
	}
	if limit > c.maxPageSize {
		limit = c.maxPageSize
	}

	cursor, ok := c.codec.Decode(token)
	if token != "" && !ok {
		invalidCursors.Inc()
		log.WithFields(log.Fields{
			"viewer": viewerId,
		}).Warn("Invalid feed cursor, restarting from the top")
		cursor = Cursor{}
	}
	if cursor.Phase == "" {
		cursor.Phase = PhaseFollowed
	}

	followees, err := c.rel.FolloweesOf(ctx, viewerId)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve followees: %w", err)
	}
	followees = lo.Uniq(followees)

	log.WithFields(log.Fields{
		"viewer":    viewerId,
		"phase":     cursor.Phase,
		"limit":     limit,
		"followees": len(followees),
	}).Debug("Composing feed page")

	var entries []models.FeedEntry
	var hasMore bool

	switch cursor.Phase {
	case PhaseFollowed:
		entries, hasMore, err = c.composeFromFollowed(ctx, followees, cursor, limit)
	case PhaseBackfill:
		entries, hasMore, err = c.composeBackfill(ctx, followees, cursor.Mark, limit)
	}
	if err != nil {
		return nil, err
	}

	page := &models.FeedPage{
		Feed:    entries,
		HasMore: hasMore,
	}
	if hasMore && len(entries) > 0 {
		next := c.codec.Encode(cursorAfter(entries[len(entries)-1]))
		page.Cursor = &next
	}

	feedPages.WithLabelValues(pageLabel(entries)).Inc()

	return page, nil
}

// composeFromFollowed walks the followed-author ordering and, when it
// runs out mid-page, continues inline into the backfill ordering. The
// inline continuation is what keeps a page straddling the phase boundary
// free of cross-page duplicates: both halves are composed against the
// same watermarks in one request.
func (c *Composer) composeFromFollowed(ctx context.Context, followees []string, cursor Cursor, limit int) ([]models.FeedEntry, bool, error) {
	skipFollowed := len(followees) == 0

	if !skipFollowed && cursor.Mark.IsZero() {
		count, err := c.content.CountPublishedByAuthors(ctx, followees)
		if err != nil {
			return nil, false, fmt.Errorf("failed to count followed items: %w", err)
		}
		if count == 0 {
			skipFollowed = true
		} else if count < int64(limit) {
			// The count alone proves both phases are needed for this
			// page, so issue both queries at once.
			return c.composeFanout(ctx, followees, limit)
		}
	}

	if skipFollowed {
		return c.composeBackfill(ctx, followees, RankKey{}, limit)
	}

	followed, more, err := c.fetchFollowed(ctx, followees, markPtr(cursor.Mark), limit)
	if err != nil {
		return nil, false, err
	}

	entries := toEntries(followed, models.SourceFollowed)
	if more {
		return entries, true, nil
	}

	// Followed phase exhausted. Fill the remainder of this page from
	// backfill, or probe it when the page is already full so hasMore
	// reflects what the next request will find.
	remaining := limit - len(entries)
	if remaining == 0 {
		probe, _, err := c.fetchBackfill(ctx, followees, nil, 1)
		if err != nil {
			return nil, false, err
		}
		return entries, len(probe) > 0, nil
	}

	backfill, hasMore, err := c.composeBackfill(ctx, followees, RankKey{}, remaining)
	if err != nil {
		return nil, false, err
	}
	return append(entries, backfill...), hasMore, nil
}

// composeFanout issues the followed and backfill queries concurrently.
// Only taken when the followed count already proved the page needs both;
// issuing the second query eagerly otherwise would be wasted work.
func (c *Composer) composeFanout(ctx context.Context, followees []string, limit int) ([]models.FeedEntry, bool, error) {
	var (
		wg       sync.WaitGroup
		followed []models.Item
		fMore    bool
		fErr     error
		backfill []models.Item
		bMore    bool
		bErr     error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		followed, fMore, fErr = c.fetchFollowed(ctx, followees, nil, limit)
	}()
	go func() {
		defer wg.Done()
		backfill, bMore, bErr = c.fetchBackfill(ctx, followees, nil, limit)
	}()
	wg.Wait()

	if fErr != nil {
		return nil, false, fErr
	}
	if bErr != nil {
		return nil, false, bErr
	}

	entries := toEntries(followed, models.SourceFollowed)
	if fMore {
		// Followed items landed between the count and the list query.
		// The page is pure followed after all.
		return entries, true, nil
	}

	remaining := limit - len(entries)
	if len(backfill) > remaining {
		backfill = backfill[:remaining]
		bMore = true
	}
	return append(entries, toEntries(backfill, models.SourceBackfill)...), bMore, nil
}

func (c *Composer) composeBackfill(ctx context.Context, followees []string, mark RankKey, limit int) ([]models.FeedEntry, bool, error) {
	items, more, err := c.fetchBackfill(ctx, followees, markPtr(mark), limit)
	if err != nil {
		return nil, false, err
	}
	return toEntries(items, models.SourceBackfill), more, nil
}

// fetchFollowed queries limit+1 rows to detect whether more follow
// without a second query.
func (c *Composer) fetchFollowed(ctx context.Context, authors []string, after *RankKey, limit int) ([]models.Item, bool, error) {
	items, err := c.content.ListPublishedByAuthorsAfter(ctx, authors, after, limit+1)
	if err != nil {
		return nil, false, fmt.Errorf("failed to list followed items: %w", err)
	}
	more := len(items) > limit
	if more {
		items = items[:limit]
	}
	return items, more, nil
}

// fetchBackfill always excludes followee-authored items: a popular item
// by a followed author belongs to the followed segment and must never
// reappear here.
func (c *Composer) fetchBackfill(ctx context.Context, excludedAuthors []string, after *RankKey, limit int) ([]models.Item, bool, error) {
	items, err := c.content.ListPublishedExcludingAuthorsAfter(ctx, excludedAuthors, after, limit+1)
	if err != nil {
		return nil, false, fmt.Errorf("failed to list backfill items: %w", err)
	}
	more := len(items) > limit
	if more {
		items = items[:limit]
	}
	return items, more, nil
}

func toEntries(items []models.Item, source models.EntrySource) []models.FeedEntry {
	return lo.Map(items, func(item models.Item, _ int) models.FeedEntry {
		return models.FeedEntry{
			ItemId:    item.Id,
			AuthorId:  item.AuthorId,
			Source:    source,
			Score:     item.Score,
			CreatedAt: item.CreatedAt,
		}
	})
}

func markPtr(mark RankKey) *RankKey {
	if mark.IsZero() {
		return nil
	}
	return &mark
}

func pageLabel(entries []models.FeedEntry) string {
	if len(entries) == 0 {
		return "empty"
	}
	return string(entries[len(entries)-1].Source)
}
