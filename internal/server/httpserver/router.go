package httpserver

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/yndnr/respkv/internal/server/respserver"
)

// RouterConfig holds configuration for the HTTP router.
type RouterConfig struct {
	// Logger for request logging.
	Logger *slog.Logger

	// Metrics serves /metrics. Nil disables the route.
	Metrics http.Handler

	// RESP backs /ready and /ws. Nil reports not ready and disables /ws.
	// /ready returns 503 until the server has started.
	RESP *respserver.Server

	// WebSocket enables the /ws gateway.
	WebSocket bool

	// CheckOrigin validates the Origin header of WebSocket upgrades.
	CheckOrigin func(*http.Request) bool
}

// DefaultRouterConfig returns default router configuration.
func DefaultRouterConfig() *RouterConfig {
	return &RouterConfig{
		Logger:    slog.Default(),
		WebSocket: true,
	}
}

// NewRouter creates the admin router.
func NewRouter(cfg *RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", handleHealth)
	mux.HandleFunc("GET /ready", func(w http.ResponseWriter, r *http.Request) {
		handleReady(w, r, cfg.RESP)
	})
	if cfg.Metrics != nil {
		mux.Handle("GET /metrics", cfg.Metrics)
	}
	if cfg.WebSocket && cfg.RESP != nil {
		mux.Handle("GET /ws", WebSocketHandler(cfg.RESP, cfg.CheckOrigin, logger))
	}

	// Order: Recover -> RequestID -> AccessLog -> mux
	return Chain(mux, Recover(logger), RequestID(), AccessLog(logger))
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func handleReady(w http.ResponseWriter, _ *http.Request, srv *respserver.Server) {
	if srv == nil || !srv.Running() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ready",
		"address": srv.Addr().String(),
		"clients": srv.ClientCount(),
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}
