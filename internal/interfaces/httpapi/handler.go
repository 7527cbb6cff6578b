package httpapi

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/rwrpulse/rwrpulse/internal/usecase"
)

type Handler struct {
	serverService  *usecase.ServerService
	playerService  *usecase.PlayerService
	mapService     *usecase.MapService
	refreshService *usecase.RefreshService
	logger         *slog.Logger
	validator      *validator.Validate
}

func NewHandler(
	serverService *usecase.ServerService,
	playerService *usecase.PlayerService,
	mapService *usecase.MapService,
	refreshService *usecase.RefreshService,
	logger *slog.Logger,
) *Handler {
	if logger == nil {
		logger = slog.Default()
	}

	return &Handler{
		serverService:  serverService,
		playerService:  playerService,
		mapService:     mapService,
		refreshService: refreshService,
		logger:         logger,
		validator:      validator.New(),
	}
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Healthz")
	defer span.End()

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) RunRefresh(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunRefresh")
	defer span.End()

	result, err := h.refreshService.Refresh(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "manual cache refresh failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, result)
}

func (h *Handler) validateRequest(ctx context.Context, payload any) error {
	ctx, span := startSpan(ctx, "httpapi.Handler.validateRequest")
	defer span.End()

	if err := h.validator.StructCtx(ctx, payload); err != nil {
		return fmt.Errorf("%w: validation failed: %v", usecase.ErrInvalidInput, err)
	}

	return nil
}
