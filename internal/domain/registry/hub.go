package registry

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/Merrick1307/chat-core/internal/domain/event"
	"github.com/Merrick1307/chat-core/internal/domain/model"
)

// Hubber is the Connection Registry's (C3) external API.
type Hubber interface {
	// Attach registers conn under its userID, failing with
	// ErrTooManyConnections if the user is already at the cap.
	Attach(conn Connector) error
	// Detach removes a connection and reports whether this was the
	// user's last live session (a "went offline" signal for C6).
	Detach(userID, connID uuid.UUID) (wentOffline bool)
	Broadcast(ev event.Eventer) bool
	// IsConnected reports whether the user has at least one live
	// session on this process (spec §4.1 "is_local").
	IsConnected(userID uuid.UUID) bool
	// SocketsFor returns a snapshot of the user's live connection ids.
	SocketsFor(userID uuid.UUID) []uuid.UUID
	Stats() model.HubStats
	Shutdown()
}

// Hub implements Hubber using a virtual-cell (actor) architecture: one
// Cell per online user, reclaimed by a periodic idle evictor.
type Hub struct {
	cells sync.Map // userID -> Celler

	// reverse is the Registry's "reverse map" (spec §3 invariant):
	// connID -> userID, maintained in lock-step with cells/sessions so
	// every live socket can be resolved back to its owner.
	reverse sync.Map // connID -> userID

	startedAt time.Time

	evictionInterval time.Duration
	idleTimeout      time.Duration
	mailboxSize      int
	stopCh           chan struct{}

	logger *slog.Logger
}

// NewHub initializes the registry with functional options and starts the
// janitor process.
func NewHub(logger *slog.Logger, opts ...Option) *Hub {
	h := &Hub{
		evictionInterval: 1 * time.Minute,
		idleTimeout:      5 * time.Minute,
		mailboxSize:      1024,
		stopCh:           make(chan struct{}),
		startedAt:        time.Now(),
		logger:           logger,
	}

	for _, opt := range opts {
		opt(h)
	}

	go h.runEvictor()
	return h
}

func (h *Hub) IsConnected(userID uuid.UUID) bool {
	val, ok := h.cells.Load(userID)
	if !ok {
		return false
	}
	cell, ok := val.(Celler)
	return ok && cell.SessionCount() > 0
}

func (h *Hub) Broadcast(ev event.Eventer) bool {
	if val, ok := h.cells.Load(ev.GetUserID()); ok {
		if cell, ok := val.(Celler); ok {
			return cell.Push(ev)
		}
	}
	return false
}

// Attach performs an idempotent registration of a new connection,
// enforcing the per-user connection cap and keeping the forward (cell
// sessions) and reverse (connID -> userID) maps consistent.
func (h *Hub) Attach(conn Connector) error {
	uID := conn.GetUserID()
	val, _ := h.cells.LoadOrStore(uID, NewCell(uID, h.mailboxSize))

	cell, ok := val.(Celler)
	if !ok {
		return ErrTooManyConnections
	}

	if err := cell.Attach(conn); err != nil {
		return err
	}

	h.reverse.Store(conn.GetID(), uID)
	return nil
}

// Detach removes a connection from its user's cell and the reverse map.
// Cell reclamation itself happens asynchronously in the evictor.
func (h *Hub) Detach(userID, connID uuid.UUID) bool {
	h.reverse.Delete(connID)

	if val, ok := h.cells.Load(userID); ok {
		if cell, ok := val.(Celler); ok {
			return cell.Detach(connID)
		}
	}
	return false
}

// SocketsFor returns a snapshot of the user's live connection ids.
func (h *Hub) SocketsFor(userID uuid.UUID) []uuid.UUID {
	if val, ok := h.cells.Load(userID); ok {
		if cell, ok := val.(Celler); ok {
			return cell.Sessions()
		}
	}
	return nil
}

func (h *Hub) runEvictor() {
	ticker := time.NewTicker(h.evictionInterval)
	defer ticker.Stop()

	for {
		select {
		case <-h.stopCh:
			return
		case <-ticker.C:
			h.performEviction()
		}
	}
}

func (h *Hub) performEviction() {
	reaped := 0
	h.cells.Range(func(key, value any) bool {
		if cell, ok := value.(Celler); ok {
			if cell.IsIdle(h.idleTimeout) {
				cell.Stop()
				h.cells.Delete(key)
				reaped++
			}
		}
		return true
	})

	if reaped > 0 && h.logger != nil {
		h.logger.Info("HUB_EVICTION_COMPLETE", "reclaimed_cells", reaped)
	}
}

// Stats returns a point-in-time snapshot for the control-plane/monitor.
func (h *Hub) Stats() model.HubStats {
	stats := model.HubStats{Uptime: time.Since(h.startedAt)}

	h.cells.Range(func(_, value any) bool {
		if cell, ok := value.(Celler); ok {
			n := cell.SessionCount()
			if n == 0 {
				return true
			}
			stats.TotalUsers++
			stats.TotalConnections += n
		}
		return true
	})

	return stats
}

func (h *Hub) Shutdown() {
	close(h.stopCh)
	h.cells.Range(func(key, value any) bool {
		if cell, ok := value.(Celler); ok {
			cell.Stop()
		}
		return true
	})
}
