package registry

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/Merrick1307/chat-core/internal/domain/event"
)

// Interface guard
var _ Connector = (*connect)(nil)

// Connector is the interface external layers (WS/long-poll handlers) use
// to talk to a single live socket's delivery channel.
type Connector interface {
	GetID() uuid.UUID
	GetUserID() uuid.UUID
	Send(ev event.Eventer, timeout time.Duration) bool
	Recv() <-chan event.Eventer
	Close()
}

// ConnectMetadata is exported for transport and analytics layers.
type ConnectMetadata struct {
	Platform  string
	Version   string
	RemoteIP  string
	UserAgent string
}

// connect is the concrete Connector implementation (unexported to force
// interface usage).
type connect struct {
	id        uuid.UUID
	userID    uuid.UUID
	metadata  ConnectMetadata
	createdAt time.Time

	ctx      context.Context
	cancelFn context.CancelFunc

	sendCh chan event.Eventer

	closeOnce      sync.Once
	lastActivityAt int64
	droppedCount   uint64
}

// connectPool reuses connect objects across connect/disconnect cycles to
// cut GC pressure under high connection churn.
var connectPool = sync.Pool{
	New: func() any {
		return &connect{}
	},
}

// NewConnector acquires a pooled connector and resets it for a new socket.
func NewConnector(ctx context.Context, userID uuid.UUID, bufferSize int) Connector {
	c := connectPool.Get().(*connect)
	c.reset(ctx, userID, bufferSize)
	return c
}

func (c *connect) reset(ctx context.Context, userID uuid.UUID, bufferSize int) {
	childCtx, cancel := context.WithCancel(ctx)

	*c = connect{
		id:             uuid.New(),
		userID:         userID,
		createdAt:      time.Now(),
		ctx:            childCtx,
		cancelFn:       cancel,
		sendCh:         make(chan event.Eventer, bufferSize),
		lastActivityAt: time.Now().UnixNano(),
	}
}

func (c *connect) GetID() uuid.UUID     { return c.id }
func (c *connect) GetUserID() uuid.UUID { return c.userID }

// Send attempts to push an event into the channel within timeout. If the
// channel stays full for the whole window, it falls back to smart
// eviction of a lower-priority pending event.
func (c *connect) Send(ev event.Eventer, timeout time.Duration) bool {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	select {
	case <-c.ctx.Done():
		return false
	case c.sendCh <- ev:
		return true
	case <-ctx.Done():
		return c.handleBackpressure(ev, timeout)
	}
}

// handleBackpressure manages full buffers by dropping low-priority events.
func (c *connect) handleBackpressure(ev event.Eventer, timeout time.Duration) bool {
	if ev.GetPriority() <= event.PriorityLow {
		atomic.AddUint64(&c.droppedCount, 1)
		return false
	}

	select {
	case oldEv := <-c.sendCh:
		if oldEv.GetPriority() < ev.GetPriority() {
			c.sendCh <- ev
			return true
		}
		select {
		case c.sendCh <- oldEv:
		default:
		}
	case <-time.After(timeout):
	}

	atomic.AddUint64(&c.droppedCount, 1)
	return false
}

func (c *connect) Recv() <-chan event.Eventer { return c.sendCh }

// Close terminates the connector exactly once, unblocks any pending
// Send, and recycles the object back into the pool.
func (c *connect) Close() {
	c.closeOnce.Do(func() {
		c.cancelFn()

		if c.sendCh != nil {
			close(c.sendCh)
		}

		c.sendCh = nil
		c.metadata = ConnectMetadata{}

		connectPool.Put(c)
	})
}
