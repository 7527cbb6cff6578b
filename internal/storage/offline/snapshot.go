package offline

import (
	"context"
	"time"

	"github.com/rwrpulse/rwrpulse/internal/domain/server"
)

const (
	serversCollection = "servers"
	snapshotKey       = "latest"
)

// ServerSnapshots adapts the generic cache to the server snapshot contract:
// the whole fetched list is one entry, replaced atomically per refresh cycle.
type ServerSnapshots struct {
	store *Store
}

func NewServerSnapshots(store *Store) *ServerSnapshots {
	return &ServerSnapshots{store: store}
}

var _ server.SnapshotStore = (*ServerSnapshots)(nil)

func (s *ServerSnapshots) SaveSnapshot(ctx context.Context, items []server.Item) error {
	return s.store.Set(ctx, serversCollection, snapshotKey, items)
}

// LoadSnapshot returns the stored list when it is younger than maxAge.
// maxAge <= 0 accepts any stored snapshot.
func (s *ServerSnapshots) LoadSnapshot(ctx context.Context, maxAge time.Duration) ([]server.Item, bool) {
	var items []server.Item
	var ok bool
	if maxAge > 0 {
		ok = s.store.GetWithAge(ctx, serversCollection, snapshotKey, maxAge, &items)
	} else {
		ok = s.store.Get(ctx, serversCollection, snapshotKey, &items)
	}
	if !ok {
		return nil, false
	}
	return items, true
}
