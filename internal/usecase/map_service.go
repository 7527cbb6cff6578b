package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/rwrpulse/rwrpulse/internal/domain/gamemap"
	"github.com/rwrpulse/rwrpulse/internal/platform/logging"
)

const (
	mapsCollection = "maps"
	mapCatalogKey  = "catalog"
)

type MapServiceConfig struct {
	FetchTimeout time.Duration
	CacheMaxAge  time.Duration
}

// MapService serves the static map catalog. The catalog changes only on game
// updates, so reads are cache-first and the upstream is consulted when the
// cached copy has aged out.
type MapService struct {
	fetcher gamemap.Fetcher
	cache   fallbackCache
	logger  *logging.Logger
	cfg     MapServiceConfig
}

func NewMapService(fetcher gamemap.Fetcher, cache fallbackCache, logger *logging.Logger, cfg MapServiceConfig) *MapService {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 10 * time.Second
	}
	if cfg.CacheMaxAge <= 0 {
		cfg.CacheMaxAge = 6 * time.Hour
	}
	return &MapService{
		fetcher: fetcher,
		cache:   cache,
		logger:  logger,
		cfg:     cfg,
	}
}

// Catalog returns the map catalog: fresh cache, then upstream, then any
// stored copy regardless of age as a last resort.
func (s *MapService) Catalog(ctx context.Context) ([]gamemap.Info, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MapService.Catalog")
	defer span.End()

	if s.cache != nil {
		var cached []gamemap.Info
		if s.cache.GetWithAge(ctx, mapsCollection, mapCatalogKey, s.cfg.CacheMaxAge, &cached) && len(cached) > 0 {
			return cached, nil
		}
	}

	if s.fetcher == nil {
		return nil, fmt.Errorf("%w: map catalog source is not configured", ErrDependencyUnavailable)
	}

	catalog, err := s.fetcher.FetchMaps(ctx, s.cfg.FetchTimeout)
	if err == nil {
		if s.cache != nil {
			if cacheErr := s.cache.Set(ctx, mapsCollection, mapCatalogKey, catalog); cacheErr != nil {
				s.logger.WarnContext(ctx, "failed to cache map catalog", "error", cacheErr)
			}
		}
		return catalog, nil
	}

	if s.cache != nil {
		var stale []gamemap.Info
		if s.cache.Get(ctx, mapsCollection, mapCatalogKey, &stale) && len(stale) > 0 {
			s.logger.WarnContext(ctx, "serving stale map catalog from offline cache", "count", len(stale), "error", err)
			return stale, nil
		}
	}

	return nil, fmt.Errorf("%w: map catalog failed: %v", ErrDependencyUnavailable, err)
}
