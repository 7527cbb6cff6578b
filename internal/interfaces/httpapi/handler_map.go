package httpapi

import "net/http"

func (h *Handler) ListMaps(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListMaps")
	defer span.End()

	catalog, err := h.mapService.Catalog(ctx)
	if err != nil {
		h.logger.WarnContext(ctx, "list maps failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, catalog)
}
