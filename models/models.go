package models

import "time"

// ItemState tracks the publication lifecycle of an item. Only published
// items are feed-eligible. Deleted is a tombstone, not a hard delete.
type ItemState string

const (
	StateDraft     ItemState = "draft"
	StatePublished ItemState = "published"
	StateDeleted   ItemState = "deleted"
)

// Item is a content unit. CreatedAt is set at publication and never
// mutated afterwards. Score is recomputed from the counters by the
// rescore job and read here without coordination.
type Item struct {
	Id        int64     `json:"id"`
	AuthorId  string    `json:"authorId"`
	Text      string    `json:"text"`
	State     ItemState `json:"state"`
	Likes     int64     `json:"likes"`
	Comments  int64     `json:"comments"`
	Shares    int64     `json:"shares"`
	Score     float64   `json:"score"`
	CreatedAt time.Time `json:"createdAt"`
}

// FollowEdge is a directed follows relation, unique per pair.
type FollowEdge struct {
	FollowerId string    `json:"followerId"`
	FolloweeId string    `json:"followeeId"`
	CreatedAt  time.Time `json:"createdAt"`
}

// EntrySource tags which phase of the feed an entry came from.
type EntrySource string

const (
	SourceFollowed EntrySource = "followed"
	SourceBackfill EntrySource = "backfill"
)

// FeedEntry is the unit the composer emits.
type FeedEntry struct {
	ItemId    int64       `json:"itemId"`
	AuthorId  string      `json:"authorId"`
	Source    EntrySource `json:"source"`
	Score     float64     `json:"score"`
	CreatedAt time.Time   `json:"createdAt"`
}

// FeedPage is one page of the composed feed. Cursor is nil when the feed
// is exhausted.
type FeedPage struct {
	Feed    []FeedEntry `json:"feed"`
	Cursor  *string     `json:"cursor"`
	HasMore bool        `json:"hasMore"`
}
