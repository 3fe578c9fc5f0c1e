/*
Package registry provides a high-performance event distribution system
based on the Actor Model.

Key Architectural Concepts:
  - Virtual Cells: every online user is represented by an isolated 'Cell'
    (Actor) that encapsulates all concurrent connections (sockets) for
    that specific identity.
  - Decoupling & Backpressure: per-user mailboxes ensure that slow network
    consumers do not block global system throughput.
  - Concurrency Management: lock-free lookups via sync.Map and
    fine-grained locking within individual cells eliminate global mutex
    contention.
*/
package registry

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/Merrick1307/chat-core/internal/domain/event"
)

// Celler defines the internal API for user-specific delivery units.
type Celler interface {
	Push(ev event.Eventer) bool
	Attach(conn Connector) error
	Detach(connID uuid.UUID) (wentOffline bool)
	SessionCount() int
	Sessions() []uuid.UUID
	IsIdle(timeout time.Duration) bool
	Stop()
}

// Cell implements isolated delivery logic for a single user.
type Cell struct {
	userID uuid.UUID

	// mailbox decouples the global dispatcher from individual delivery —
	// a shock absorber so slow-consumer latency can't propagate back to
	// the Hub or the AMQP consumers (backpressure).
	mailbox chan event.Eventer

	// sessions holds every live connection (socket) for this user,
	// keyed by connection id — the Registry's "forward map" entry for
	// this user, mirrored by Hub's reverse map.
	sessions map[uuid.UUID]Connector
	mu       sync.RWMutex

	doneCh chan struct{}

	lastActivityUnix int64
}

func NewCell(userID uuid.UUID, bufferSize int) *Cell {
	c := &Cell{
		userID:           userID,
		mailbox:          make(chan event.Eventer, bufferSize),
		sessions:         make(map[uuid.UUID]Connector),
		doneCh:           make(chan struct{}),
		lastActivityUnix: time.Now().Unix(),
	}
	go c.loop()
	return c
}

func (c *Cell) touch() {
	atomic.StoreInt64(&c.lastActivityUnix, time.Now().Unix())
}

// IsIdle reports whether the cell can be reclaimed: no sessions and no
// activity for timeout.
func (c *Cell) IsIdle(timeout time.Duration) bool {
	c.mu.RLock()
	hasSessions := len(c.sessions) > 0
	c.mu.RUnlock()

	if hasSessions {
		return false
	}

	lastActivity := time.Unix(atomic.LoadInt64(&c.lastActivityUnix), 0)
	return time.Since(lastActivity) > timeout
}

func (c *Cell) Push(ev event.Eventer) bool {
	c.touch()
	select {
	case c.mailbox <- ev:
		return true
	default:
		// Mailbox full: drop the event to protect system stability.
		return false
	}
}

// Attach registers a new connection, enforcing MaxConnectionsPerUser
// (spec §4.1 "attach"). Rejection leaves existing sessions untouched.
func (c *Cell) Attach(conn Connector) error {
	c.mu.Lock()
	if len(c.sessions) >= MaxConnectionsPerUser {
		c.mu.Unlock()
		return ErrTooManyConnections
	}
	c.sessions[conn.GetID()] = conn
	c.mu.Unlock()
	c.touch()
	return nil
}

// Detach removes a connection. It reports wentOffline=true when this was
// the last session for the user, the signal C6 (Heartbeat/Presence
// Controller) consumes to decide whether to mark the user offline.
func (c *Cell) Detach(connID uuid.UUID) bool {
	c.mu.Lock()
	delete(c.sessions, connID)
	wentOffline := len(c.sessions) == 0
	c.mu.Unlock()
	c.touch()
	return wentOffline
}

// SessionCount returns the live connection count for this user.
func (c *Cell) SessionCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.sessions)
}

// Sessions returns a snapshot of live connection ids — a copy, so
// iteration never races with concurrent Detach (spec §4.1 "sockets_for").
func (c *Cell) Sessions() []uuid.UUID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := make([]uuid.UUID, 0, len(c.sessions))
	for id := range c.sessions {
		ids = append(ids, id)
	}
	return ids
}

func (c *Cell) loop() {
	for {
		select {
		case <-c.doneCh:
			return
		case ev := <-c.mailbox:
			c.deliver(ev)

			// Batch-draining: once awakened, drain up to 64 pending
			// events before returning to the expensive select — smooths
			// out bursts without starving the scheduler.
			for range 64 {
				select {
				case nextEv := <-c.mailbox:
					c.deliver(nextEv)
				default:
					goto wait
				}
			}
		wait:
		}
	}
}

// deliver fans an event out to every live session of the user.
func (c *Cell) deliver(ev event.Eventer) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(c.sessions) == 0 {
		return
	}

	for _, conn := range c.sessions {
		// Strict window: a slow connection can't stall the actor loop.
		conn.Send(ev, 250*time.Millisecond)
	}
}

func (c *Cell) Stop() {
	close(c.doneCh)

	c.mu.Lock()
	defer c.mu.Unlock()
	for id, conn := range c.sessions {
		conn.Close()
		delete(c.sessions, id)
	}
}
