package server

import (
	"context"
	"time"
)

// Lister fetches the live server list from the upstream master list.
type Lister interface {
	ListAllServers(ctx context.Context, timeout time.Duration) ([]Item, error)
}

// SnapshotStore persists the latest fetched list as an offline fallback.
// Implementations must degrade reads to a miss on storage errors.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, items []Item) error
	LoadSnapshot(ctx context.Context, maxAge time.Duration) ([]Item, bool)
}
