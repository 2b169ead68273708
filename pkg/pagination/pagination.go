// Package pagination implements the opaque cursor scheme used by listing
// endpoints. Cursors encode a position into a registration-ordered sequence;
// clients treat them as opaque tokens and pass them back verbatim.
package pagination

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
)

const (
	// DefaultLimit is the page size used when a caller does not configure one.
	DefaultLimit = 50

	// MaxLimit caps the page size regardless of configuration.
	MaxLimit = 200
)

// ErrInvalidCursor is returned when a cursor cannot be decoded. Callers map
// it to an invalid-params wire error.
var ErrInvalidCursor = errors.New("invalid pagination cursor")

type cursor struct {
	Offset int `json:"o"`
}

// EncodeCursor builds an opaque cursor for the given offset. Offset zero
// encodes to the empty string, the canonical "start" cursor.
func EncodeCursor(offset int) string {
	if offset <= 0 {
		return ""
	}
	raw, _ := json.Marshal(cursor{Offset: offset})
	return base64.RawURLEncoding.EncodeToString(raw)
}

// DecodeCursor resolves an opaque cursor back to an offset. The empty
// string means the start of the sequence.
func DecodeCursor(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	var c cursor
	if err := json.Unmarshal(raw, &c); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	if c.Offset < 0 {
		return 0, fmt.Errorf("%w: negative offset", ErrInvalidCursor)
	}
	return c.Offset, nil
}

// ClampLimit normalizes a configured page size into the valid range.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// Page slices one page out of a sequence of length total, returning the
// half-open range [start, end) and the cursor for the next page. An empty
// next cursor means the sequence is exhausted.
func Page(total, offset, limit int) (start, end int, next string) {
	if offset > total {
		offset = total
	}
	end = offset + ClampLimit(limit)
	if end >= total {
		return offset, total, ""
	}
	return offset, end, EncodeCursor(end)
}
