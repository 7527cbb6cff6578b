package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/stretchr/testify/require"

	"github.com/rwrpulse/rwrpulse/internal/domain/gamemap"
	"github.com/rwrpulse/rwrpulse/internal/domain/player"
	"github.com/rwrpulse/rwrpulse/internal/domain/server"
	"github.com/rwrpulse/rwrpulse/internal/platform/logging"
	"github.com/rwrpulse/rwrpulse/internal/usecase"
)

type stubLister struct {
	items []server.Item
	err   error
}

func (s *stubLister) ListAllServers(_ context.Context, _ time.Duration) ([]server.Item, error) {
	return s.items, s.err
}

type stubPlayerFetcher struct {
	page player.Page
	err  error
}

func (s *stubPlayerFetcher) FetchPlayersPage(_ context.Context, q player.Query, _ time.Duration) (player.Page, error) {
	if s.err != nil {
		return player.Page{}, s.err
	}
	return s.page, nil
}

type stubMapFetcher struct {
	catalog []gamemap.Info
	err     error
}

func (s *stubMapFetcher) FetchMaps(_ context.Context, _ time.Duration) ([]gamemap.Info, error) {
	return s.catalog, s.err
}

func newTestRouter(t *testing.T, lister server.Lister, players player.Fetcher, maps gamemap.Fetcher, adminToken string) http.Handler {
	t.Helper()

	nop := logging.NewNop()
	mapSvc := usecase.NewMapService(maps, nil, nop, usecase.MapServiceConfig{})
	serverSvc := usecase.NewServerService(lister, nil, mapSvc, nop, usecase.ServerServiceConfig{})
	playerSvc := usecase.NewPlayerService(players, nil, nop, usecase.PlayerServiceConfig{})
	refreshSvc := usecase.NewRefreshService(serverSvc, playerSvc, mapSvc, nop, usecase.RefreshServiceConfig{
		PlayerDatabases: []string{"invasion"},
	})

	slogger := slog.New(slog.DiscardHandler)
	handler := NewHandler(serverSvc, playerSvc, mapSvc, refreshSvc, slogger)
	return NewRouter(handler, slogger, []string{"*"}, adminToken)
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestRouter_Healthz(t *testing.T) {
	router := newTestRouter(t, &stubLister{}, &stubPlayerFetcher{}, &stubMapFetcher{}, "")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeEnvelope(t, rec)
	require.Equal(t, "2.0", body["apiVersion"])
}

func TestRouter_ListServers(t *testing.T) {
	lister := &stubLister{items: []server.Item{
		{
			ID:             "31.186.250.67:1235",
			Name:           "Invasion EU 1",
			IPAddress:      "31.186.250.67",
			Port:           1235,
			MapID:          "media/packages/vanilla/maps/map10",
			CurrentPlayers: 16,
			MaxPlayers:     32,
		},
	}}
	maps := &stubMapFetcher{catalog: []gamemap.Info{{Name: "Railroad Gap", Path: "media/packages/vanilla/maps/map10"}}}
	router := newTestRouter(t, lister, &stubPlayerFetcher{}, maps, "")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/servers", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeEnvelope(t, rec)
	data, ok := body["data"].([]any)
	require.True(t, ok, "expected a data array, got %T", body["data"])
	require.Len(t, data, 1)

	row, ok := data[0].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "31.186.250.67:1235", row["id"])
	require.Equal(t, "map10", row["mapLeaf"])
	require.Equal(t, "Railroad Gap", row["mapName"])
	require.InDelta(t, 0.5, row["occupancy"], 0.001)
}

func TestRouter_GetServerNotFound(t *testing.T) {
	router := newTestRouter(t, &stubLister{items: []server.Item{{ID: "10.0.0.1:1"}}}, &stubPlayerFetcher{}, &stubMapFetcher{}, "")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/servers/10.9.9.9:1", nil))

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_ListServersUnavailable(t *testing.T) {
	router := newTestRouter(t, &stubLister{err: errors.New("upstream down")}, &stubPlayerFetcher{}, &stubMapFetcher{}, "")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/servers", nil))

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRouter_ListPlayersValidation(t *testing.T) {
	router := newTestRouter(t, &stubLister{}, &stubPlayerFetcher{}, &stubMapFetcher{}, "")

	for _, target := range []string{
		"/v1/players?start=abc",
		"/v1/players?size=abc",
		"/v1/players?size=900",
		"/v1/players?start=-5",
	} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		require.Equal(t, http.StatusBadRequest, rec.Code, "target %s", target)
	}
}

func TestRouter_ListPlayers(t *testing.T) {
	fetcher := &stubPlayerFetcher{page: player.Page{
		Items:   []player.Item{{ID: "invasion:rifleman", Username: "RIFLEMAN", Row: 1}},
		Size:    100,
		HasNext: false,
	}}
	router := newTestRouter(t, &stubLister{}, fetcher, &stubMapFetcher{}, "")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/players?db=invasion", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeEnvelope(t, rec)
	page, ok := body["data"].(map[string]any)
	require.True(t, ok)
	items, ok := page["items"].([]any)
	require.True(t, ok)
	require.Len(t, items, 1)
}

func TestRouter_RefreshRequiresAdminToken(t *testing.T) {
	router := newTestRouter(t, &stubLister{}, &stubPlayerFetcher{}, &stubMapFetcher{}, "secret")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/internal/refresh", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/v1/internal/refresh", nil)
	req.Header.Set("X-Admin-Token", "secret")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeEnvelope(t, rec)
	result, ok := body["data"].(map[string]any)
	require.True(t, ok)
	require.EqualValues(t, 3, result["task_count"])
}
