package feed_test

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homefeed/feed"
)

func TestCursorRoundtrip(t *testing.T) {
	codec := feed.NewCursorCodec("roundtrip-secret")

	tests := []struct {
		name   string
		cursor feed.Cursor
	}{
		{
			name: "followed phase",
			cursor: feed.Cursor{
				Phase: feed.PhaseFollowed,
				Mark:  feed.RankKey{CreatedAt: 1717243200000000000, ItemId: 42},
			},
		},
		{
			name: "backfill phase",
			cursor: feed.Cursor{
				Phase: feed.PhaseBackfill,
				Mark:  feed.RankKey{Score: 12.625, CreatedAt: 1717243200000000000, ItemId: 99},
			},
		},
		{
			name: "fractional score survives the trip",
			cursor: feed.Cursor{
				Phase: feed.PhaseBackfill,
				Mark:  feed.RankKey{Score: 0.0037592145, CreatedAt: 1, ItemId: 1},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token := codec.Encode(tt.cursor)

			decoded, ok := codec.Decode(token)
			require.True(t, ok)
			assert.Equal(t, tt.cursor, decoded)
		})
	}
}

func TestCursorIsOpaque(t *testing.T) {
	codec := feed.NewCursorCodec("secret")
	token := codec.Encode(feed.Cursor{
		Phase: feed.PhaseBackfill,
		Mark:  feed.RankKey{Score: 5, CreatedAt: 1000, ItemId: 7},
	})

	// The token itself carries no readable field names or delimiters.
	assert.NotContains(t, token, "backfill")
	assert.NotContains(t, token, "::")
}

func TestCursorRejection(t *testing.T) {
	codec := feed.NewCursorCodec("secret")

	valid := codec.Encode(feed.Cursor{
		Phase: feed.PhaseBackfill,
		Mark:  feed.RankKey{Score: 5, CreatedAt: 1000, ItemId: 7},
	})

	// Re-sign a payload pointing at a different item with a different key
	forged := feed.NewCursorCodec("attacker").Encode(feed.Cursor{
		Phase: feed.PhaseBackfill,
		Mark:  feed.RankKey{Score: 5, CreatedAt: 1000, ItemId: 8},
	})

	// Valid signature over a payload whose watermark was then edited
	raw, err := base64.StdEncoding.DecodeString(valid)
	require.NoError(t, err)
	tamperedRaw := strings.Replace(string(raw), "::7::", "::8::", 1)
	require.NotEqual(t, string(raw), tamperedRaw, "the tamper must actually change the payload")
	tampered := base64.StdEncoding.EncodeToString([]byte(tamperedRaw))

	tests := []struct {
		name  string
		token string
	}{
		{name: "empty token", token: ""},
		{name: "not base64", token: "%%%%"},
		{name: "base64 of garbage", token: base64.StdEncoding.EncodeToString([]byte("hello world"))},
		{name: "missing signature", token: base64.StdEncoding.EncodeToString([]byte("backfill::5::1000::7"))},
		{name: "signed with a different secret", token: forged},
		{name: "payload edited after signing", token: tampered},
		{name: "unknown phase", token: base64.StdEncoding.EncodeToString([]byte("sideways::1::2::sig"))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := codec.Decode(tt.token)
			assert.False(t, ok)
		})
	}
}

func TestCursorFieldArity(t *testing.T) {
	const secret = "secret"
	codec := feed.NewCursorCodec(secret)

	sign := func(payload string) string {
		mac := hmac.New(sha256.New, []byte(secret))
		mac.Write([]byte(payload))
		return hex.EncodeToString(mac.Sum(nil))
	}

	// Correctly signed payloads whose field count does not match their
	// phase are still rejected: the phase dictates the arity.
	tests := []struct {
		name    string
		payload string
	}{
		{name: "followed with an extra field", payload: "followed::1::2::3"},
		{name: "backfill missing the score", payload: "backfill::1::2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token := base64.StdEncoding.EncodeToString([]byte(tt.payload + "::" + sign(tt.payload)))

			_, ok := codec.Decode(token)
			assert.False(t, ok)
		})
	}
}
