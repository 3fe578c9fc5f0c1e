package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/Merrick1307/chat-core/internal/domain/event"
	"github.com/Merrick1307/chat-core/internal/domain/model"
	"github.com/Merrick1307/chat-core/internal/domain/registry"
	"github.com/Merrick1307/chat-core/internal/presence"
	"github.com/Merrick1307/chat-core/internal/store"
)

// OfflineFlush is C7: on connect, after the Heartbeat controller marks
// the user online, it drains the recipient's queue, resolves each
// pointer through the Message Store, and delivers a single
// "messages.offline" batch frame. No teacher analogue exists for this
// concern (spec §4.6); built fresh in this package's idiom.
type OfflineFlush interface {
	Flush(ctx context.Context, userID uuid.UUID) error
}

type OfflineFlushService struct {
	hub      registry.Hubber
	presence presence.Store
	store    store.MessageStore
	logger   *slog.Logger
}

func NewOfflineFlushService(hub registry.Hubber, presenceStore presence.Store, messageStore store.MessageStore, logger *slog.Logger) *OfflineFlushService {
	return &OfflineFlushService{hub: hub, presence: presenceStore, store: messageStore, logger: logger}
}

// Flush implements spec.md §4.6. If the socket disappears mid-flush
// (the broadcast fails), the queue is deliberately left uncleared so
// redelivery happens on the next connect (at-least-once).
func (f *OfflineFlushService) Flush(ctx context.Context, userID uuid.UUID) error {
	pointers, err := f.presence.Drain(ctx, userID)
	if err != nil {
		return err
	}
	if len(pointers) == 0 {
		return nil
	}

	messages := make([]any, 0, len(pointers))
	var deliveredDirectIDs []uuid.UUID

	for _, ptr := range pointers {
		switch ptr.Kind {
		case "direct":
			msg, err := f.store.GetMessage(ctx, ptr.MessageID)
			if err != nil {
				f.logger.Error("OFFLINE_FLUSH_RESOLVE_FAILED", "message_id", ptr.MessageID, "err", err)
				continue
			}
			if msg == nil {
				// The row is gone (e.g. pruned) — tolerate and skip,
				// per spec §8 invariant 4.
				continue
			}
			messages = append(messages, model.MessageNewPayload{
				MessageID:   msg.ID,
				SenderID:    msg.SenderID,
				Content:     msg.Content,
				MessageType: msg.Kind,
				CreatedAt:   isoMillis(msg.CreatedAt),
			})
			deliveredDirectIDs = append(deliveredDirectIDs, msg.ID)

		case "group":
			msg, err := f.store.GetGroupMessage(ctx, ptr.MessageID)
			if err != nil {
				f.logger.Error("OFFLINE_FLUSH_RESOLVE_FAILED", "message_id", ptr.MessageID, "err", err)
				continue
			}
			if msg == nil {
				continue
			}
			messages = append(messages, model.GroupMessageNewPayload{
				MessageID:   msg.ID,
				GroupID:     msg.GroupID,
				SenderID:    msg.SenderID,
				Content:     msg.Content,
				MessageType: msg.Kind,
				CreatedAt:   isoMillis(msg.CreatedAt),
			})
		}
	}

	batch := model.OfflineBatchPayload{Messages: messages, Count: len(messages)}
	sent := f.hub.Broadcast(event.NewOfflineBatchEvent(userID, batch))
	if !sent {
		return nil
	}

	for _, messageID := range deliveredDirectIDs {
		if _, err := f.store.MarkDelivered(ctx, messageID); err != nil {
			f.logger.Error("OFFLINE_FLUSH_MARK_DELIVERED_FAILED", "message_id", messageID, "err", err)
		}
	}

	return f.presence.Clear(ctx, userID)
}
