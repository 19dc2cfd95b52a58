package domain

import (
	"encoding/base64"
	"strconv"
	"strings"
)

// Page sizing for the report list and execution history surfaces.
const (
	DefaultPageSize = 100
	MaxPageSize     = 1000
)

// pageTokenPrefix versions the token layout so a stale or hand-crafted token
// falls back to the first page instead of producing a surprising offset.
const pageTokenPrefix = "o:"

// PageRequest holds the max_results/page_token pair the list endpoints accept.
type PageRequest struct {
	MaxResults int
	PageToken  string // opaque continuation token from a previous page
}

// Offset decodes the continuation token. Empty, malformed, or negative
// tokens all restart from the first page.
func (p PageRequest) Offset() int {
	if p.PageToken == "" {
		return 0
	}
	decoded, err := base64.RawURLEncoding.DecodeString(p.PageToken)
	if err != nil {
		return 0
	}
	raw, ok := strings.CutPrefix(string(decoded), pageTokenPrefix)
	if !ok {
		return 0
	}
	offset, err := strconv.Atoi(raw)
	if err != nil || offset < 0 {
		return 0
	}
	return offset
}

// Limit returns the effective page size, clamped to [1, MaxPageSize].
func (p PageRequest) Limit() int {
	if p.MaxResults <= 0 {
		return DefaultPageSize
	}
	if p.MaxResults > MaxPageSize {
		return MaxPageSize
	}
	return p.MaxResults
}

// EncodePageToken creates a continuation token for the given offset.
// Offsets <= 0 mean the first page, which needs no token.
func EncodePageToken(offset int) string {
	if offset <= 0 {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString([]byte(pageTokenPrefix + strconv.Itoa(offset)))
}

// NextPageToken returns the token for the page after the current one, or ""
// when the listing is exhausted.
func NextPageToken(offset, limit int, total int64) string {
	next := offset + limit
	if int64(next) >= total {
		return ""
	}
	return EncodePageToken(next)
}
