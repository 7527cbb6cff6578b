package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/rwrpulse/rwrpulse/internal/domain/gamemap"
	"github.com/rwrpulse/rwrpulse/internal/domain/server"
	"github.com/rwrpulse/rwrpulse/internal/platform/logging"
)

// ServerServiceConfig bounds the live fetch and the acceptable staleness of
// the offline fallback.
type ServerServiceConfig struct {
	ListTimeout    time.Duration
	SnapshotMaxAge time.Duration
}

// ServerService serves the aggregated server list: live upstream first,
// offline snapshot when the upstream is down. Every successful live fetch
// refreshes the snapshot, so the fallback is always the most recent list the
// service ever saw.
type ServerService struct {
	lister    server.Lister
	snapshots server.SnapshotStore
	maps      mapCatalog
	logger    *logging.Logger
	cfg       ServerServiceConfig
}

// mapCatalog is the slice of MapService the server list needs for display
// name enrichment. Catalog failures are tolerated; the list ships without
// resolved names.
type mapCatalog interface {
	Catalog(ctx context.Context) ([]gamemap.Info, error)
}

func NewServerService(
	lister server.Lister,
	snapshots server.SnapshotStore,
	maps mapCatalog,
	logger *logging.Logger,
	cfg ServerServiceConfig,
) *ServerService {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.ListTimeout <= 0 {
		cfg.ListTimeout = 20 * time.Second
	}
	if cfg.SnapshotMaxAge <= 0 {
		cfg.SnapshotMaxAge = 24 * time.Hour
	}
	return &ServerService{
		lister:    lister,
		snapshots: snapshots,
		maps:      maps,
		logger:    logger,
		cfg:       cfg,
	}
}

// ListServers returns the current server list. The live list and the map
// catalog load concurrently; only the live list is load-bearing.
func (s *ServerService) ListServers(ctx context.Context) ([]server.Item, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ServerService.ListServers")
	defer span.End()

	if s.lister == nil {
		return nil, fmt.Errorf("%w: server list source is not configured", ErrDependencyUnavailable)
	}

	var items []server.Item
	var listErr error
	var catalog []gamemap.Info

	grp := pool.New().WithContext(ctx)
	grp.Go(func(ctx context.Context) error {
		items, listErr = s.lister.ListAllServers(ctx, s.cfg.ListTimeout)
		return nil
	})
	grp.Go(func(ctx context.Context) error {
		if s.maps == nil {
			return nil
		}
		fetched, err := s.maps.Catalog(ctx)
		if err != nil {
			s.logger.WarnContext(ctx, "map catalog unavailable, serving servers without map names", "error", err)
			return nil
		}
		catalog = fetched
		return nil
	})
	_ = grp.Wait()

	if listErr != nil {
		return s.loadFallback(ctx, listErr)
	}

	attachMapNames(items, catalog)

	if s.snapshots != nil {
		if err := s.snapshots.SaveSnapshot(ctx, items); err != nil {
			s.logger.WarnContext(ctx, "failed to persist server snapshot", "count", len(items), "error", err)
		}
	}

	return items, nil
}

// GetServer resolves one server by its address:port id from the current list.
func (s *ServerService) GetServer(ctx context.Context, id string) (server.Item, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ServerService.GetServer")
	defer span.End()

	id = strings.TrimSpace(id)
	if id == "" {
		return server.Item{}, fmt.Errorf("%w: server id is required", ErrInvalidInput)
	}

	items, err := s.ListServers(ctx)
	if err != nil {
		return server.Item{}, err
	}

	// Duplicate ids resolve last-write-wins, matching keyed consumers.
	found := false
	var match server.Item
	for _, item := range items {
		if item.ID == id {
			match = item
			found = true
		}
	}
	if !found {
		return server.Item{}, fmt.Errorf("%w: server=%s", ErrNotFound, id)
	}
	return match, nil
}

func (s *ServerService) loadFallback(ctx context.Context, cause error) ([]server.Item, error) {
	if s.snapshots == nil {
		return nil, fmt.Errorf("%w: live server list failed: %v", ErrDependencyUnavailable, cause)
	}

	items, ok := s.snapshots.LoadSnapshot(ctx, s.cfg.SnapshotMaxAge)
	if !ok {
		return nil, fmt.Errorf("%w: live server list failed and no usable snapshot: %v", ErrDependencyUnavailable, cause)
	}

	s.logger.WarnContext(ctx, "serving server list from offline snapshot",
		"count", len(items),
		"max_age", s.cfg.SnapshotMaxAge,
		"error", cause,
	)
	return items, nil
}

// attachMapNames fills missing display names by joining the map id's leaf
// segment against the catalog. Items that already carry an upstream map name
// keep it.
func attachMapNames(items []server.Item, catalog []gamemap.Info) {
	if len(items) == 0 || len(catalog) == 0 {
		return
	}

	byLeaf := make(map[string]string, len(catalog))
	for _, info := range catalog {
		leaf := gamemap.LeafName(info.Path)
		if leaf == "" || info.Name == "" {
			continue
		}
		byLeaf[strings.ToLower(leaf)] = info.Name
	}

	for i := range items {
		if items[i].MapName != nil {
			continue
		}
		leaf := strings.ToLower(gamemap.LeafName(items[i].MapID))
		if name, ok := byLeaf[leaf]; ok {
			resolved := name
			items[i].MapName = &resolved
		}
	}
}
