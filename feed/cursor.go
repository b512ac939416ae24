package feed

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"strconv"
	"strings"

	"homefeed/models"
)

// Phase names the ordering the cursor is currently walking.
type Phase string

const (
	PhaseFollowed Phase = "followed"
	PhaseBackfill Phase = "backfill"
)

// Cursor is the decoded page cursor: the current phase and its watermark.
// The two phases walk different orderings, so the watermark is
// interpreted against whichever ordering Phase names. Once the cursor
// enters the backfill phase it never returns to followed.
type Cursor struct {
	Phase Phase
	Mark  RankKey
}

// cursorDelimiter follows the payload::signature convention.
const cursorDelimiter = "::"

// CursorCodec encodes cursors into opaque client-held tokens and decodes
// them back. Tokens are HMAC-SHA256 signed so a tampered or forged cursor
// decodes as invalid rather than skipping validation. They are not
// encrypted: no authorization decision depends on cursor contents.
type CursorCodec struct {
	secret string
}

func NewCursorCodec(secret string) *CursorCodec {
	return &CursorCodec{secret: secret}
}

// Encode serializes the cursor, signs it and base64-encodes the result.
func (c *CursorCodec) Encode(cur Cursor) string {
	var payload string
	switch cur.Phase {
	case PhaseBackfill:
		// Format: backfill::score::createdAt::itemId
		payload = strings.Join([]string{
			string(PhaseBackfill),
			strconv.FormatFloat(cur.Mark.Score, 'g', -1, 64),
			strconv.FormatInt(cur.Mark.CreatedAt, 10),
			strconv.FormatInt(cur.Mark.ItemId, 10),
		}, cursorDelimiter)
	default:
		// Format: followed::createdAt::itemId
		payload = strings.Join([]string{
			string(PhaseFollowed),
			strconv.FormatInt(cur.Mark.CreatedAt, 10),
			strconv.FormatInt(cur.Mark.ItemId, 10),
		}, cursorDelimiter)
	}

	signed := payload + cursorDelimiter + c.sign(payload)
	return base64.StdEncoding.EncodeToString([]byte(signed))
}

// Decode parses and verifies a token. It returns false for anything that
// is not a well-formed, correctly signed cursor; the caller decides how
// to fail open. An empty token is not a cursor at all and also returns
// false.
func (c *CursorCodec) Decode(token string) (Cursor, bool) {
	if token == "" {
		return Cursor{}, false
	}

	decoded, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return Cursor{}, false
	}

	parts := strings.Split(string(decoded), cursorDelimiter)
	if len(parts) < 2 {
		return Cursor{}, false
	}

	signature := parts[len(parts)-1]
	payload := strings.Join(parts[:len(parts)-1], cursorDelimiter)
	if !hmac.Equal([]byte(signature), []byte(c.sign(payload))) {
		return Cursor{}, false
	}

	fields := parts[:len(parts)-1]
	switch Phase(fields[0]) {
	case PhaseFollowed:
		if len(fields) != 3 {
			return Cursor{}, false
		}
		createdAt, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return Cursor{}, false
		}
		itemId, err := strconv.ParseInt(fields[2], 10, 64)
		if err != nil {
			return Cursor{}, false
		}
		return Cursor{
			Phase: PhaseFollowed,
			Mark:  RankKey{CreatedAt: createdAt, ItemId: itemId},
		}, true

	case PhaseBackfill:
		if len(fields) != 4 {
			return Cursor{}, false
		}
		score, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return Cursor{}, false
		}
		createdAt, err := strconv.ParseInt(fields[2], 10, 64)
		if err != nil {
			return Cursor{}, false
		}
		itemId, err := strconv.ParseInt(fields[3], 10, 64)
		if err != nil {
			return Cursor{}, false
		}
		return Cursor{
			Phase: PhaseBackfill,
			Mark:  RankKey{Score: score, CreatedAt: createdAt, ItemId: itemId},
		}, true

	default:
		return Cursor{}, false
	}
}

func (c *CursorCodec) sign(payload string) string {
	mac := hmac.New(sha256.New, []byte(c.secret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

// cursorAfter builds the next cursor from the last entry emitted in the
// phase the walk is currently in.
func cursorAfter(entry models.FeedEntry) Cursor {
	item := models.Item{
		Id:        entry.ItemId,
		Score:     entry.Score,
		CreatedAt: entry.CreatedAt,
	}
	if entry.Source == models.SourceBackfill {
		return Cursor{Phase: PhaseBackfill, Mark: Rank(item, models.SourceBackfill)}
	}
	return Cursor{Phase: PhaseFollowed, Mark: Rank(item, models.SourceFollowed)}
}
