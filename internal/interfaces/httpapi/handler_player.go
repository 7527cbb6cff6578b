package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/rwrpulse/rwrpulse/internal/domain/player"
	"github.com/rwrpulse/rwrpulse/internal/usecase"
)

type listPlayersRequest struct {
	Search   string `validate:"max=64"`
	Database string `validate:"max=32"`
	Sort     string `validate:"max=32"`
	Start    int    `validate:"min=0"`
	Size     int    `validate:"min=0,max=500"`
}

func (h *Handler) ListPlayers(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListPlayers")
	defer span.End()

	query := r.URL.Query()
	req := listPlayersRequest{
		Search:   strings.TrimSpace(query.Get("search")),
		Database: strings.TrimSpace(query.Get("db")),
		Sort:     strings.TrimSpace(query.Get("sort")),
	}

	var err error
	req.Start, err = parseQueryInt(query.Get("start"), 0)
	if err != nil {
		writeError(ctx, w, fmt.Errorf("%w: start must be an integer", usecase.ErrInvalidInput))
		return
	}
	req.Size, err = parseQueryInt(query.Get("size"), 0)
	if err != nil {
		writeError(ctx, w, fmt.Errorf("%w: size must be an integer", usecase.ErrInvalidInput))
		return
	}

	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	page, err := h.playerService.ListPlayers(ctx, player.Query{
		Search:   req.Search,
		Database: req.Database,
		Sort:     req.Sort,
		Start:    req.Start,
		Size:     req.Size,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "list players failed", "db", req.Database, "start", req.Start, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, page)
}

func parseQueryInt(raw string, fallback int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}
