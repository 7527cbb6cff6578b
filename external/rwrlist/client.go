// Package rwrlist is the client for the remote master-list API: batched
// server-list aggregation, windowed player statistics, and the static map
// catalog.
package rwrlist

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"

	"github.com/rwrpulse/rwrpulse/internal/domain/gamemap"
	"github.com/rwrpulse/rwrpulse/internal/domain/player"
	"github.com/rwrpulse/rwrpulse/internal/domain/server"
	"github.com/rwrpulse/rwrpulse/internal/platform/logging"
	"github.com/rwrpulse/rwrpulse/internal/platform/resilience"
)

const (
	defaultBaseURL = "https://master.rwrpulse.net"

	serverListPath = "/api/server_list"
	playerListPath = "/api/player_list"
	mapsPath       = "/api/maps"

	serverBatchSize  = 100
	maxServerBatches = 10

	defaultRequestTimeout = 10 * time.Second
	defaultListAllTimeout = 20 * time.Second
)

type ClientConfig struct {
	Transport      Transport
	BaseURL        string
	Timeout        time.Duration
	ListTimeout    time.Duration
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

var (
	_ server.Lister   = (*Client)(nil)
	_ player.Fetcher  = (*Client)(nil)
	_ gamemap.Fetcher = (*Client)(nil)
)

type Client struct {
	transport      Transport
	logger         *logging.Logger
	timeout        time.Duration
	listTimeout    time.Duration
	breaker        *resilience.CircuitBreaker
	circuitEnabled bool
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	transport := cfg.Transport
	if transport == nil {
		baseURL := strings.TrimSpace(cfg.BaseURL)
		if baseURL == "" {
			baseURL = defaultBaseURL
		}
		transport = newHTTPTransport(baseURL, logger)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	listTimeout := cfg.ListTimeout
	if listTimeout <= 0 {
		listTimeout = defaultListAllTimeout
	}

	breakerCfg := resilience.NormalizeCircuitBreakerConfig(cfg.CircuitBreaker)

	return &Client{
		transport:      transport,
		logger:         logger,
		timeout:        timeout,
		listTimeout:    listTimeout,
		breaker:        resilience.NewCircuitBreaker(breakerCfg.FailureThreshold, breakerCfg.OpenTimeout, breakerCfg.HalfOpenMaxReq),
		circuitEnabled: breakerCfg.Enabled,
	}
}

// ListAllServers aggregates the full server list in sequential batches of
// 100. Each batch races its own timeout, so the loop is bounded by
// ceiling x timeout even against a hanging upstream.
//
// Termination: a batch error, an empty batch, a short batch, or the 10-batch
// ceiling. Empty and short batches are distinct end-of-stream signals; the
// transport never reports a total count and its behaviour for the final
// partial page is not contractual, so both checks stay.
//
// Partial results win over strict error signaling: whatever accumulated is
// returned, and the last error propagates only when nothing did.
func (c *Client) ListAllServers(ctx context.Context, timeout time.Duration) ([]server.Item, error) {
	if timeout <= 0 {
		timeout = c.listTimeout
	}

	acc := make([]server.Item, 0, serverBatchSize)
	var lastErr error

	for batch := 0; batch < maxServerBatches; batch++ {
		query := url.Values{}
		query.Set("start", strconv.Itoa(batch*serverBatchSize))
		query.Set("size", strconv.Itoa(serverBatchSize))
		query.Set("names", "1")

		raw, err := c.get(ctx, serverListPath, query, timeout)
		if err != nil {
			lastErr = err
			c.logger.WarnContext(ctx, "server list batch failed, keeping accumulated rows",
				"batch", batch,
				"accumulated", len(acc),
				"error", err,
			)
			break
		}

		rows, blocks := ParseServerList(raw)
		if blocks == 0 {
			break
		}
		for _, row := range rows {
			acc = append(acc, normalizeServer(row))
		}
		// End-of-stream is judged by block count: a full page with a
		// malformed block still means more pages may follow.
		if blocks < serverBatchSize {
			break
		}
	}

	if len(acc) == 0 && lastErr != nil {
		return nil, lastErr
	}
	return acc, nil
}

// FetchPlayers returns one flat query window of player rows.
func (c *Client) FetchPlayers(ctx context.Context, q player.Query, timeout time.Duration) ([]player.Item, error) {
	q = q.Normalized()
	if timeout <= 0 {
		timeout = c.timeout
	}

	query := url.Values{}
	query.Set("search", q.Search)
	query.Set("db", q.Database)
	query.Set("sort", q.Sort)
	query.Set("start", strconv.Itoa(q.Start))
	query.Set("size", strconv.Itoa(q.Size))

	raw, err := c.get(ctx, playerListPath, query, timeout)
	if err != nil {
		return nil, fmt.Errorf("fetch players db=%s start=%d: %w", q.Database, q.Start, err)
	}

	return ParsePlayerList(raw, q.Database, q.Start), nil
}

// FetchPlayersPage wraps the window with prev/next flags derived from the
// window position and fill, since the transport reports no total count.
func (c *Client) FetchPlayersPage(ctx context.Context, q player.Query, timeout time.Duration) (player.Page, error) {
	q = q.Normalized()
	items, err := c.FetchPlayers(ctx, q, timeout)
	if err != nil {
		return player.Page{}, err
	}
	return player.NewPage(items, q.Start, q.Size), nil
}

// FetchMaps loads the static map catalog.
func (c *Client) FetchMaps(ctx context.Context, timeout time.Duration) ([]gamemap.Info, error) {
	if timeout <= 0 {
		timeout = c.timeout
	}

	raw, err := c.get(ctx, mapsPath, url.Values{}, timeout)
	if err != nil {
		return nil, fmt.Errorf("fetch maps: %w", err)
	}

	var maps []gamemap.Info
	if err := sonic.Unmarshal(raw, &maps); err != nil {
		return nil, fmt.Errorf("decode map catalog: %w", err)
	}
	return maps, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, timeout time.Duration) ([]byte, error) {
	if c.circuitEnabled {
		if err := c.breaker.Allow(); err != nil {
			c.logger.WarnContext(ctx, "master list circuit breaker rejected request", "state", c.breaker.State())
			return nil, fmt.Errorf("%w: master list is temporarily unavailable", ErrNetwork)
		}
	}

	raw, err := c.transport.Get(ctx, path, query, timeout)
	if c.circuitEnabled {
		if isCircuitFailure(err) {
			c.breaker.RecordFailure()
		} else {
			c.breaker.RecordSuccess()
		}
	}
	return raw, err
}

// Only connection-level trouble trips the breaker; a served non-2xx answer
// means the upstream is alive.
func isCircuitFailure(err error) bool {
	if err == nil {
		return false
	}
	return stderrors.Is(err, ErrTimeout) || stderrors.Is(err, ErrNetwork)
}
