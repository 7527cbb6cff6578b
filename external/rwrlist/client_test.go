package rwrlist

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/rwrpulse/rwrpulse/internal/domain/player"
	"github.com/rwrpulse/rwrpulse/internal/platform/resilience"
)

type transportFunc func(ctx context.Context, path string, query url.Values, timeout time.Duration) ([]byte, error)

func (f transportFunc) Get(ctx context.Context, path string, query url.Values, timeout time.Duration) ([]byte, error) {
	return f(ctx, path, query, timeout)
}

func newTestClient(t *testing.T, transport Transport) *Client {
	t.Helper()
	return NewClient(ClientConfig{
		Transport:      transport,
		CircuitBreaker: resilience.CircuitBreakerConfig{Enabled: false},
	})
}

func serverBatchPayload(count, offset int) []byte {
	var sb strings.Builder
	sb.WriteString("<result>")
	for i := 0; i < count; i++ {
		fmt.Fprintf(&sb, "<server><name>srv %d</name><address>10.0.0.1</address><port>%d</port></server>", offset+i, offset+i+1)
	}
	sb.WriteString("</result>")
	return []byte(sb.String())
}

func TestListAllServers_AggregatesUntilShortBatch(t *testing.T) {
	t.Parallel()

	var starts []string
	transport := transportFunc(func(_ context.Context, path string, query url.Values, _ time.Duration) ([]byte, error) {
		if path != serverListPath {
			t.Fatalf("unexpected path %q", path)
		}
		if query.Get("size") != "100" || query.Get("names") != "1" {
			t.Fatalf("unexpected query %v", query)
		}
		starts = append(starts, query.Get("start"))
		switch len(starts) {
		case 1, 2:
			return serverBatchPayload(100, (len(starts)-1)*100), nil
		default:
			return serverBatchPayload(47, 200), nil
		}
	})

	items, err := newTestClient(t, transport).ListAllServers(context.Background(), time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 247 {
		t.Fatalf("expected 247 aggregated servers, got=%d", len(items))
	}
	if len(starts) != 3 {
		t.Fatalf("expected 3 batch requests, got=%d", len(starts))
	}
	if starts[0] != "0" || starts[1] != "100" || starts[2] != "200" {
		t.Fatalf("unexpected batch offsets %v", starts)
	}
	if items[0].Name != "srv 0" || items[246].Name != "srv 246" {
		t.Fatalf("aggregation must keep batch order: first=%q last=%q", items[0].Name, items[246].Name)
	}
}

func TestListAllServers_StopsAtBatchCeiling(t *testing.T) {
	t.Parallel()

	calls := 0
	transport := transportFunc(func(_ context.Context, _ string, _ url.Values, _ time.Duration) ([]byte, error) {
		calls++
		return serverBatchPayload(100, (calls-1)*100), nil
	})

	items, err := newTestClient(t, transport).ListAllServers(context.Background(), time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 10 {
		t.Fatalf("expected the loop to stop after 10 batches, got=%d", calls)
	}
	if len(items) != 1000 {
		t.Fatalf("expected 1000 servers at the ceiling, got=%d", len(items))
	}
}

func TestListAllServers_MalformedBlockDoesNotEndPagination(t *testing.T) {
	t.Parallel()

	// A full page of 100 blocks where one fails to decode. The page is still
	// full, so the next page must be requested.
	var sb strings.Builder
	sb.WriteString("<result>")
	for i := 0; i < 99; i++ {
		fmt.Fprintf(&sb, "<server><name>srv %d</name><address>10.0.0.1</address><port>%d</port></server>", i, i+1)
	}
	sb.WriteString("<server><name>broken <address>10.0.0.2</server>")
	sb.WriteString("</result>")
	fullPageWithBrokenBlock := []byte(sb.String())

	calls := 0
	transport := transportFunc(func(_ context.Context, _ string, _ url.Values, _ time.Duration) ([]byte, error) {
		calls++
		if calls == 1 {
			return fullPageWithBrokenBlock, nil
		}
		return serverBatchPayload(50, 100), nil
	})

	items, err := newTestClient(t, transport).ListAllServers(context.Background(), time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 2 {
		t.Fatalf("a full page with one broken block must not end pagination, got %d calls", calls)
	}
	if len(items) != 149 {
		t.Fatalf("expected 99 surviving rows plus the 50-row second page, got=%d", len(items))
	}
}

func TestListAllServers_KeepsPartialResultsOnLaterFailure(t *testing.T) {
	t.Parallel()

	calls := 0
	transport := transportFunc(func(_ context.Context, _ string, _ url.Values, _ time.Duration) ([]byte, error) {
		calls++
		if calls == 1 {
			return serverBatchPayload(100, 0), nil
		}
		return nil, fmt.Errorf("%w: get %s: boom", ErrNetwork, serverListPath)
	})

	items, err := newTestClient(t, transport).ListAllServers(context.Background(), time.Second)
	if err != nil {
		t.Fatalf("a later batch failure must not discard accumulated rows: %v", err)
	}
	if len(items) != 100 {
		t.Fatalf("expected the first full batch to survive, got=%d", len(items))
	}
	if calls != 2 {
		t.Fatalf("expected the loop to stop on the failed batch, got %d calls", calls)
	}
}

func TestListAllServers_PropagatesErrorWhenNothingAccumulated(t *testing.T) {
	t.Parallel()

	transport := transportFunc(func(_ context.Context, _ string, _ url.Values, _ time.Duration) ([]byte, error) {
		return nil, fmt.Errorf("%w: status=500", ErrBadStatus)
	})

	items, err := newTestClient(t, transport).ListAllServers(context.Background(), time.Second)
	if !errors.Is(err, ErrBadStatus) {
		t.Fatalf("expected ErrBadStatus, got=%v", err)
	}
	if items != nil {
		t.Fatalf("expected no items on a first-batch failure, got=%d", len(items))
	}
}

func TestListAllServers_EmptyFirstBatchMeansEmptyList(t *testing.T) {
	t.Parallel()

	calls := 0
	transport := transportFunc(func(_ context.Context, _ string, _ url.Values, _ time.Duration) ([]byte, error) {
		calls++
		return []byte("<result></result>"), nil
	})

	items, err := newTestClient(t, transport).ListAllServers(context.Background(), time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected an empty list, got=%d", len(items))
	}
	if calls != 1 {
		t.Fatalf("an empty batch must end the loop, got %d calls", calls)
	}
}

func TestFetchPlayersPage_DerivesWindowFlags(t *testing.T) {
	t.Parallel()

	transport := transportFunc(func(_ context.Context, path string, query url.Values, _ time.Duration) ([]byte, error) {
		if path != playerListPath {
			t.Fatalf("unexpected path %q", path)
		}
		if query.Get("db") != "invasion" || query.Get("sort") != "score" {
			t.Fatalf("defaults must be applied before the request, got %v", query)
		}
		return []byte(`<table>
			<tr><td>ALPHA</td><td>1</td></tr>
			<tr><td>BRAVO</td><td>2</td></tr>
		</table>`), nil
	})

	page, err := newTestClient(t, transport).FetchPlayersPage(context.Background(), player.Query{Start: 2, Size: 2}, time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page.Items) != 2 {
		t.Fatalf("expected 2 rows, got=%d", len(page.Items))
	}
	if !page.HasPrev {
		t.Fatalf("start beyond 0 must flag a previous window")
	}
	if !page.HasNext {
		t.Fatalf("a full window must flag a next window")
	}
	if page.Items[0].Row != 3 || page.Items[1].Row != 4 {
		t.Fatalf("row numbers must follow the window offset, got %d and %d", page.Items[0].Row, page.Items[1].Row)
	}
}

func TestFetchPlayersPage_PartialWindowHasNoNext(t *testing.T) {
	t.Parallel()

	transport := transportFunc(func(_ context.Context, _ string, _ url.Values, _ time.Duration) ([]byte, error) {
		return []byte(`<table><tr><td>SOLO</td><td>1</td></tr></table>`), nil
	})

	page, err := newTestClient(t, transport).FetchPlayersPage(context.Background(), player.Query{Size: 50}, time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.HasPrev || page.HasNext {
		t.Fatalf("a short first window must flag neither direction: %+v", page)
	}
}

func TestFetchMaps_DecodesCatalog(t *testing.T) {
	t.Parallel()

	transport := transportFunc(func(_ context.Context, path string, _ url.Values, _ time.Duration) ([]byte, error) {
		if path != mapsPath {
			t.Fatalf("unexpected path %q", path)
		}
		return []byte(`[{"name":"Railroad Gap","path":"media/packages/vanilla/maps/map10","image":"map10.png"}]`), nil
	})

	maps, err := newTestClient(t, transport).FetchMaps(context.Background(), time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(maps) != 1 || maps[0].Name != "Railroad Gap" || maps[0].Path != "media/packages/vanilla/maps/map10" {
		t.Fatalf("unexpected catalog %+v", maps)
	}
}

func TestFetchMaps_RejectsInvalidCatalogPayload(t *testing.T) {
	t.Parallel()

	transport := transportFunc(func(_ context.Context, _ string, _ url.Values, _ time.Duration) ([]byte, error) {
		return []byte(`<html>not json</html>`), nil
	})

	if _, err := newTestClient(t, transport).FetchMaps(context.Background(), time.Second); err == nil {
		t.Fatalf("expected a decode error")
	}
}

func TestCircuitBreaker_OpensOnConnectionFailures(t *testing.T) {
	t.Parallel()

	calls := 0
	transport := transportFunc(func(_ context.Context, _ string, _ url.Values, _ time.Duration) ([]byte, error) {
		calls++
		return nil, fmt.Errorf("%w: get %s after 1s", ErrTimeout, mapsPath)
	})

	client := NewClient(ClientConfig{
		Transport: transport,
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          true,
			FailureThreshold: 2,
			OpenTimeout:      time.Minute,
			HalfOpenMaxReq:   1,
		},
	})

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if _, err := client.FetchMaps(ctx, time.Second); !errors.Is(err, ErrTimeout) {
			t.Fatalf("call %d: expected ErrTimeout, got=%v", i, err)
		}
	}

	_, err := client.FetchMaps(ctx, time.Second)
	if !errors.Is(err, ErrNetwork) {
		t.Fatalf("an open breaker must report a network-class rejection, got=%v", err)
	}
	if calls != 2 {
		t.Fatalf("an open breaker must not reach the transport, got %d calls", calls)
	}
}

func TestCircuitBreaker_IgnoresServedErrorResponses(t *testing.T) {
	t.Parallel()

	calls := 0
	transport := transportFunc(func(_ context.Context, _ string, _ url.Values, _ time.Duration) ([]byte, error) {
		calls++
		return nil, fmt.Errorf("%w: status=503", ErrBadStatus)
	})

	client := NewClient(ClientConfig{
		Transport: transport,
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          true,
			FailureThreshold: 2,
			OpenTimeout:      time.Minute,
			HalfOpenMaxReq:   1,
		},
	})

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if _, err := client.FetchMaps(ctx, time.Second); !errors.Is(err, ErrBadStatus) {
			t.Fatalf("call %d: expected ErrBadStatus, got=%v", i, err)
		}
	}
	if calls != 5 {
		t.Fatalf("served non-2xx answers must not trip the breaker, got %d calls", calls)
	}
}
