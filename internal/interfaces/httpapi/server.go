package httpapi

import (
	"log/slog"
	"net/http"
)

func NewRouter(
	handler *Handler,
	logger *slog.Logger,
	corsAllowedOrigins []string,
	adminToken string,
) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()
	registerSystemRoutes(mux, handler)
	registerBrowserRoutes(mux, handler)
	registerAdminRoutes(mux, handler, adminToken)

	return RequestTracing(RequestLogging(logger, CORS(corsAllowedOrigins, recoverPanic(logger, mux))))
}

func registerSystemRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /healthz", handler.Healthz)
}

func registerBrowserRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /v1/servers", handler.ListServers)
	mux.HandleFunc("GET /v1/servers/{serverID}", handler.GetServer)
	mux.HandleFunc("GET /v1/players", handler.ListPlayers)
	mux.HandleFunc("GET /v1/maps", handler.ListMaps)
}

func registerAdminRoutes(mux *http.ServeMux, handler *Handler, adminToken string) {
	mux.Handle("POST /v1/internal/refresh", RequireAdminToken(adminToken, http.HandlerFunc(handler.RunRefresh)))
}

func recoverPanic(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := startSpan(r.Context(), "httpapi.recoverPanic")
		defer span.End()

		defer func() {
			if rec := recover(); rec != nil {
				logger.ErrorContext(ctx, "panic recovered", "panic", rec)
				writeInternalError(ctx, w)
			}
		}()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
