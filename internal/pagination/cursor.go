// Package pagination implements keyset pages ordered by (created_at, id)
// descending.
package pagination

import (
	"encoding/base64"
	"errors"
	"strings"
	"time"
)

// Cursor is the position of the last item on a page.
type Cursor struct {
	ID        string
	CreatedAt time.Time
}

// PageResult represents a paginated result set
type PageResult[T any] struct {
	Items   []T    `json:"items"`
	Cursor  string `json:"cursor,omitempty"`
	HasMore bool   `json:"has_more"`
}

var ErrInvalidCursor = errors.New("invalid cursor format")

// Encode returns the cursor as an opaque URL-safe token.
func (c Cursor) Encode() string {
	if c.ID == "" {
		return ""
	}
	raw := c.CreatedAt.UTC().Format(time.RFC3339Nano) + "|" + c.ID
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor parses a token from Encode. An empty token means the first
// page and yields nil.
func DecodeCursor(token string) (*Cursor, error) {
	if token == "" {
		return nil, nil
	}

	decoded, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, ErrInvalidCursor
	}

	ts, id, ok := strings.Cut(string(decoded), "|")
	if !ok || id == "" {
		return nil, ErrInvalidCursor
	}

	createdAt, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return nil, ErrInvalidCursor
	}

	return &Cursor{ID: id, CreatedAt: createdAt}, nil
}

// Limit clamps a requested page size into [1, max], using def for zero or
// negative requests.
func Limit(requested, def, max int) int {
	if requested <= 0 {
		return def
	}
	if requested > max {
		return max
	}
	return requested
}

// Page builds a result from items fetched with limit+1, trimming the extra
// item and pointing the cursor at the last kept item.
func Page[T any](items []T, limit int, position func(T) Cursor) *PageResult[T] {
	page := &PageResult[T]{Items: items}
	if len(items) <= limit {
		return page
	}
	page.Items = items[:limit]
	page.HasMore = true
	page.Cursor = position(page.Items[limit-1]).Encode()
	return page
}
