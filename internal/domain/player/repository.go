package player

import (
	"context"
	"strings"
	"time"
)

// Upstream defaults for zero-valued query fields.
const (
	DefaultDatabase = "invasion"
	DefaultSort     = "score"
	DefaultWindow   = 100
)

// Query selects one window of the player table. Zero values fall back to
// upstream defaults; Normalized applies them, and every consumer of a query
// (transport, cache keys) must work from the normalized form so the same
// window always looks the same.
type Query struct {
	Search   string
	Database string
	Sort     string
	Start    int
	Size     int
}

// Normalized trims the text fields and fills upstream defaults.
func (q Query) Normalized() Query {
	q.Search = strings.TrimSpace(q.Search)
	q.Database = strings.TrimSpace(q.Database)
	if q.Database == "" {
		q.Database = DefaultDatabase
	}
	q.Sort = strings.TrimSpace(q.Sort)
	if q.Sort == "" {
		q.Sort = DefaultSort
	}
	if q.Start < 0 {
		q.Start = 0
	}
	if q.Size <= 0 {
		q.Size = DefaultWindow
	}
	return q
}

// Fetcher retrieves one page of player statistics from the upstream list.
type Fetcher interface {
	FetchPlayersPage(ctx context.Context, q Query, timeout time.Duration) (Page, error)
}
