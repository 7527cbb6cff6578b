package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rwrpulse/rwrpulse/internal/domain/player"
	"github.com/rwrpulse/rwrpulse/internal/platform/logging"
)

const (
	playersCollection = "players"
	maxPlayerPageSize = 500
)

// fallbackCache is the slice of the offline store the read services need:
// best-effort writes plus age-bounded reads that degrade to a miss.
type fallbackCache interface {
	Set(ctx context.Context, collection, key string, value any) error
	Get(ctx context.Context, collection, key string, out any) bool
	GetWithAge(ctx context.Context, collection, key string, maxAge time.Duration, out any) bool
}

type PlayerServiceConfig struct {
	FetchTimeout time.Duration
	CacheMaxAge  time.Duration
}

// PlayerService serves windows of the player-statistics table with a
// per-query offline fallback.
type PlayerService struct {
	fetcher player.Fetcher
	cache   fallbackCache
	logger  *logging.Logger
	cfg     PlayerServiceConfig
}

func NewPlayerService(fetcher player.Fetcher, cache fallbackCache, logger *logging.Logger, cfg PlayerServiceConfig) *PlayerService {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 10 * time.Second
	}
	if cfg.CacheMaxAge <= 0 {
		cfg.CacheMaxAge = 24 * time.Hour
	}
	return &PlayerService{
		fetcher: fetcher,
		cache:   cache,
		logger:  logger,
		cfg:     cfg,
	}
}

// ListPlayers returns one query window, live first, cached on upstream
// failure. Each distinct query caches under its own key so a fallback never
// answers with rows from a different window or sort order.
func (s *PlayerService) ListPlayers(ctx context.Context, q player.Query) (player.Page, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.PlayerService.ListPlayers")
	defer span.End()

	if s.fetcher == nil {
		return player.Page{}, fmt.Errorf("%w: player list source is not configured", ErrDependencyUnavailable)
	}
	if q.Start < 0 {
		return player.Page{}, fmt.Errorf("%w: start must not be negative", ErrInvalidInput)
	}
	if q.Size > maxPlayerPageSize {
		return player.Page{}, fmt.Errorf("%w: size must not exceed %d", ErrInvalidInput, maxPlayerPageSize)
	}

	// The cache key must be built from the same query the transport sees,
	// otherwise a defaulted query and its explicit twin would warm and read
	// different entries for the same window.
	q = q.Normalized()

	page, err := s.fetcher.FetchPlayersPage(ctx, q, s.cfg.FetchTimeout)
	if err == nil {
		if s.cache != nil {
			if cacheErr := s.cache.Set(ctx, playersCollection, playerCacheKey(q), page); cacheErr != nil {
				s.logger.WarnContext(ctx, "failed to cache player page", "key", playerCacheKey(q), "error", cacheErr)
			}
		}
		return page, nil
	}

	if s.cache != nil {
		var cached player.Page
		if s.cache.GetWithAge(ctx, playersCollection, playerCacheKey(q), s.cfg.CacheMaxAge, &cached) {
			s.logger.WarnContext(ctx, "serving player page from offline cache", "key", playerCacheKey(q), "error", err)
			return cached, nil
		}
	}

	return player.Page{}, fmt.Errorf("%w: player list failed: %v", ErrDependencyUnavailable, err)
}

// playerCacheKey identifies one query window. Field order is fixed; two
// queries share an entry only when every parameter matches.
func playerCacheKey(q player.Query) string {
	return fmt.Sprintf("%s|%s|%s|%d|%d",
		strings.ToLower(strings.TrimSpace(q.Database)),
		strings.ToLower(strings.TrimSpace(q.Sort)),
		strings.ToLower(strings.TrimSpace(q.Search)),
		q.Start,
		q.Size,
	)
}
