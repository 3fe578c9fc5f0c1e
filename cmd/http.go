package cmd

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/fx"

	"github.com/Merrick1307/chat-core/config"
	"github.com/Merrick1307/chat-core/internal/domain/registry"
	chathttp "github.com/Merrick1307/chat-core/internal/handler/http"
	"github.com/Merrick1307/chat-core/internal/handler/lp"
	"github.com/Merrick1307/chat-core/internal/handler/ws"
)

// newRootMux mounts the three client-facing surfaces behind one
// listener: the WebSocket upgrade endpoint, the long-poll send/poll
// pair, and the control-plane REST API (spec.md §6.1, SPEC_FULL.md
// §10/§17). The WebSocket and long-poll handlers share the Deliverer
// built by service.Module and each wraps it in its own frame.Router;
// the REST API uses the Message Store and Presence Store directly.
func newRootMux(wsHandler *ws.WSHandler, lpHandler *lp.LPHandler, httpHandler *chathttp.Handler) *chi.Mux {
	r := chi.NewRouter()

	r.Get("/ws", wsHandler.ServeHTTP)

	r.Post("/lp/send", lpHandler.Send)
	r.Get("/lp/poll", lpHandler.Poll)

	r.Route("/api", httpHandler.Routes)

	return r
}

// runHTTPServer starts the client-facing listener (cfg.HTTP.Addr) under
// fx's lifecycle.
func runHTTPServer(lc fx.Lifecycle, cfg *config.Config, mux *chi.Mux, logger *slog.Logger) {
	srv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // long-poll and WS hold connections open
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			ln, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return err
			}
			go func() {
				if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
					logger.Error("HTTP_SERVER_STOPPED", "err", err)
				}
			}()
			logger.Info("HTTP_SERVER_LISTENING", "addr", cfg.HTTP.Addr)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}

// statsPayload is the wire shape the `monitor` subcommand polls — a
// thin JSON view over model.HubStats.
type statsPayload struct {
	TotalUsers       int    `json:"total_users"`
	TotalConnections int    `json:"total_connections"`
	Uptime           string `json:"uptime"`
}

// runMonitorServer exposes the Connection Registry's live stats on a
// separate, unauthenticated listener for the `monitor` subcommand —
// process-internal instrumentation, not the control-plane collaborator
// (spec.md §3 Ownership keeps the Registry out of that collaborator's
// reach; this endpoint lives in the core process itself instead).
func runMonitorServer(lc fx.Lifecycle, cfg *config.Config, hub registry.Hubber, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/stats", func(w http.ResponseWriter, r *http.Request) {
		stats := hub.Stats()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(statsPayload{
			TotalUsers:       stats.TotalUsers,
			TotalConnections: stats.TotalConnections,
			Uptime:           stats.Uptime.Round(time.Second).String(),
		})
	})

	srv := &http.Server{Addr: cfg.Monitor.Addr, Handler: mux}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			ln, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return err
			}
			go func() {
				if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
					logger.Error("MONITOR_SERVER_STOPPED", "err", err)
				}
			}()
			logger.Info("MONITOR_SERVER_LISTENING", "addr", cfg.Monitor.Addr)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}
