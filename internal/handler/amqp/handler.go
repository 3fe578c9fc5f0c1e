package amqp

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/Merrick1307/chat-core/internal/domain/event"
	"github.com/Merrick1307/chat-core/internal/domain/model"
	"github.com/Merrick1307/chat-core/internal/domain/registry"
)

// MessageHandler holds the collaborators every Bind[T] handler needs:
// the Registry for the locality filter plus local fan-out.
type MessageHandler struct {
	hub    registry.Hubber
	logger *slog.Logger
}

func NewMessageHandler(hub registry.Hubber, logger *slog.Logger) *MessageHandler {
	return &MessageHandler{hub: hub, logger: logger}
}

// OnMessageNew reconstructs a local "message.new" delivery from a bus
// payload exported by another node's DeliveryService.
func (h *MessageHandler) OnMessageNew(ctx context.Context, userID uuid.UUID, payload *model.MessageNewPayload) (event.Eventer, error) {
	return event.NewMessageNewEvent(userID, *payload), nil
}

// OnGroupMessageNew reconstructs a local "message.group.new" delivery.
func (h *MessageHandler) OnGroupMessageNew(ctx context.Context, userID uuid.UUID, payload *model.GroupMessageNewPayload) (event.Eventer, error) {
	return event.NewGroupMessageNewEvent(userID, *payload), nil
}
