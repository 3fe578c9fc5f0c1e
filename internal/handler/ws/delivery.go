package ws

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Merrick1307/chat-core/internal/domain/event"
	"github.com/Merrick1307/chat-core/internal/domain/model"
	"github.com/Merrick1307/chat-core/internal/domain/registry"
	"github.com/Merrick1307/chat-core/internal/handler/frame"
	"github.com/Merrick1307/chat-core/internal/service"
)

const serverVersion = "v1"

type WSHandler struct {
	logger    *slog.Logger
	deliverer service.Deliverer
	auth      service.Auther
	heartbeat service.Heartbeat
	flush     service.OfflineFlush
	router    *frame.Router
	upgrader  websocket.Upgrader
}

func NewWSHandler(logger *slog.Logger, deliverer service.Deliverer, auth service.Auther, heartbeat service.Heartbeat, flush service.OfflineFlush) *WSHandler {
	return &WSHandler{
		logger:    logger,
		deliverer: deliverer,
		auth:      auth,
		heartbeat: heartbeat,
		flush:     flush,
		router:    frame.NewRouter(deliverer, heartbeat, logger),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true }, // Security: adjust for production
		},
	}
}

func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return r.URL.Query().Get("token")
}

func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	identity, err := h.auth.Verify(r.Context(), bearerToken(r))
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	userID := identity.UserID

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("ws upgrade failed", "error", err)
		return
	}
	defer ws.Close()

	ctx := r.Context()
	conn, err := h.deliverer.Subscribe(ctx, userID)
	if err != nil {
		h.logger.Error("ws subscribe failed", "user_id", userID, "error", err)
		return
	}

	if err := h.heartbeat.OnConnect(ctx, userID); err != nil {
		h.logger.Error("HEARTBEAT_ON_CONNECT_FAILED", "user_id", userID, "error", err)
	}
	if err := h.flush.Flush(ctx, userID); err != nil {
		h.logger.Error("OFFLINE_FLUSH_FAILED", "user_id", userID, "error", err)
	}

	h.logger.Info("ws opened", "user_id", userID, "conn_id", conn.GetID())

	welcome := event.NewConnectedEvent(userID, &model.ConnectedPayload{
		Ok:            true,
		ConnectionID:  conn.GetID().String(),
		ServerVersion: serverVersion,
	})
	if data, err := frame.Marshal(welcome); err == nil {
		_ = ws.WriteMessage(websocket.TextMessage, data)
	}

	done := make(chan struct{})
	go h.readPump(ctx, ws, userID, done)
	h.writePump(ctx, ws, conn, done)

	wentOffline := h.deliverer.Unsubscribe(userID, conn.GetID())
	if err := h.heartbeat.OnDisconnect(ctx, userID, wentOffline); err != nil {
		h.logger.Error("HEARTBEAT_ON_DISCONNECT_FAILED", "user_id", userID, "error", err)
	}

	// Best-effort goodbye: the socket is usually already gone by the time
	// readPump/writePump unwind, so a write error here is expected and
	// silently ignored rather than logged.
	goodbye := event.NewDisconnectedEvent(userID, &model.DisconnectedPayload{Reason: "connection closed"})
	if data, err := frame.Marshal(goodbye); err == nil {
		_ = ws.WriteMessage(websocket.TextMessage, data)
	}
}

// readPump parses and dispatches each inbound client frame through the
// shared Router, writing any direct reply (ack/pong/error) back to the
// same socket. Closes done when the socket goes away so writePump can
// unwind its select loop.
func (h *WSHandler) readPump(ctx context.Context, ws *websocket.Conn, userID uuid.UUID, done chan struct{}) {
	defer close(done)
	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			return
		}

		reply := h.router.Handle(ctx, userID, raw)
		if reply == nil {
			continue
		}
		if err := ws.WriteMessage(websocket.TextMessage, reply); err != nil {
			h.logger.Warn("ws reply send failed", "error", err)
			return
		}
	}
}

func (h *WSHandler) writePump(ctx context.Context, ws *websocket.Conn, conn registry.Connector, done chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		case ev, ok := <-conn.Recv():
			if !ok {
				return
			}

			data, err := frame.Marshal(ev)
			if err != nil {
				h.logger.Error("failed to marshal ws event", "error", err)
				continue
			}

			if err := ws.WriteMessage(websocket.TextMessage, data); err != nil {
				h.logger.Warn("ws send failed", "error", err)
				return
			}
		}
	}
}
