package lp

import (
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Merrick1307/chat-core/internal/domain/event"
	"github.com/Merrick1307/chat-core/internal/handler/frame"
	"github.com/Merrick1307/chat-core/internal/service"
)

type LPHandler struct {
	logger    *slog.Logger
	deliverer service.Deliverer
	auth      service.Auther
	heartbeat service.Heartbeat
	flush     service.OfflineFlush
	router    *frame.Router
}

func NewLPHandler(logger *slog.Logger, deliverer service.Deliverer, auth service.Auther, heartbeat service.Heartbeat, flush service.OfflineFlush) *LPHandler {
	return &LPHandler{
		logger:    logger,
		deliverer: deliverer,
		auth:      auth,
		heartbeat: heartbeat,
		flush:     flush,
		router:    frame.NewRouter(deliverer, heartbeat, logger),
	}
}

func (h *LPHandler) identity(r *http.Request) (token string) {
	if tok := chi.URLParam(r, "token"); tok != "" {
		return tok
	}
	if auth := r.Header.Get("Authorization"); auth != "" {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return r.URL.Query().Get("token")
}

// Send handles a single client frame posted out-of-band from Poll — the
// long-poll transport has no persistent socket to read from, so
// message.send/message.group.send/message.read/typing/ping frames
// arrive as individual POST bodies instead (spec.md §10 "Both
// transports... decoded by one shared frame router").
func (h *LPHandler) Send(w http.ResponseWriter, r *http.Request) {
	identity, err := h.auth.Verify(r.Context(), h.identity(r))
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	raw, err := io.ReadAll(io.LimitReader(r.Body, 64*1024))
	if err != nil {
		http.Error(w, "read error", http.StatusBadRequest)
		return
	}

	reply := h.router.Handle(r.Context(), identity.UserID, raw)

	w.Header().Set("Content-Type", "application/json")
	if reply == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	_, _ = w.Write(reply)
}

// Poll handles the long-polling request. It holds the connection until
// an event arrives or timeout occurs.
func (h *LPHandler) Poll(w http.ResponseWriter, r *http.Request) {
	identity, err := h.auth.Verify(r.Context(), h.identity(r))
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	userID := identity.UserID

	ctx := r.Context()
	conn, err := h.deliverer.Subscribe(ctx, userID)
	if err != nil {
		http.Error(w, "failed to subscribe", http.StatusInternalServerError)
		return
	}
	defer conn.Close()

	if err := h.heartbeat.OnConnect(ctx, userID); err != nil {
		h.logger.Error("HEARTBEAT_ON_CONNECT_FAILED", "user_id", userID, "error", err)
	}
	if err := h.flush.Flush(ctx, userID); err != nil {
		h.logger.Error("OFFLINE_FLUSH_FAILED", "user_id", userID, "error", err)
	}

	defer func() {
		wentOffline := h.deliverer.Unsubscribe(userID, conn.GetID())
		if err := h.heartbeat.OnDisconnect(ctx, userID, wentOffline); err != nil {
			h.logger.Error("HEARTBEAT_ON_DISCONNECT_FAILED", "user_id", userID, "error", err)
		}
	}()

	var events []event.Eventer

	select {
	case <-ctx.Done():
		return

	case <-time.After(30 * time.Second):
		w.WriteHeader(http.StatusNoContent)
		return

	case ev, ok := <-conn.Recv():
		if !ok {
			return
		}
		events = append(events, ev)

	drainLoop:
		for range 15 {
			select {
			case nextEv := <-conn.Recv():
				events = append(events, nextEv)
			default:
				break drainLoop
			}
		}
	}

	data, err := frame.MarshalBatch(events)
	if err != nil {
		http.Error(w, "marshal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
