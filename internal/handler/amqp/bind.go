package amqp

import (
	"context"
	"encoding/json"
	"runtime/debug"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"

	"github.com/Merrick1307/chat-core/internal/domain/event"
)

// DomainHandler defines the functional signature for business logic: it
// reconstructs the local Eventer from a bus payload for a user this
// node owns a connection for.
type DomainHandler[T any] func(ctx context.Context, userID uuid.UUID, payload *T) (event.Eventer, error)

// Bind connects Watermill to domain logic: panic recovery, the
// per-node locality filter, and local fan-out. Never republishes on
// receipt — publishing only happens at the originating DeliveryService
// call (service.Exporter); republishing here would have every node
// re-export the same event forever.
func Bind[T any](h *MessageHandler, fn DomainHandler[T]) message.NoPublishHandlerFunc {
	return func(msg *message.Message) error {
		defer func() {
			if r := recover(); r != nil {
				h.logger.Error("PANIC_RECOVERED", "err", r, "stack", string(debug.Stack()), "msg_id", msg.UUID)
			}
		}()

		userID, ok := resolveUserID(msg)
		if !ok {
			h.logger.Warn("ROUTING_FAILED: recipient_missing", "msg_id", msg.UUID)
			return nil // ACK: invalid routing is a terminal state.
		}

		// Distributed scaling: only the node that owns this user's
		// local socket acts on the message.
		if !h.hub.IsConnected(userID) {
			return nil // ACK: some other node owns this delivery.
		}

		payload := new(T)
		if err := json.Unmarshal(msg.Payload, payload); err != nil {
			h.logger.Error("DECODE_FAILED", "err", err, "msg_id", msg.UUID)
			return nil // ACK: poison-pill protection.
		}

		ev, err := fn(msg.Context(), userID, payload)
		if err != nil {
			return err // NACK: business failure triggers the retry policy.
		}
		if ev == nil {
			return nil
		}

		h.hub.Broadcast(ev)
		return nil
	}
}

func resolveUserID(msg *message.Message) (uuid.UUID, bool) {
	uid, err := uuid.Parse(msg.Metadata.Get("user_id"))
	if err != nil {
		return uuid.Nil, false
	}
	return uid, true
}
