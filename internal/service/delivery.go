package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/Merrick1307/chat-core/internal/domain/event"
	"github.com/Merrick1307/chat-core/internal/domain/model"
	"github.com/Merrick1307/chat-core/internal/domain/registry"
	"github.com/Merrick1307/chat-core/internal/presence"
	"github.com/Merrick1307/chat-core/internal/store"
)

const maxContentLength = 10000

// Exporter republishes an event to the cross-process fan-out bus, used
// when the Presence Store reports a recipient online but the local
// Connection Registry has no socket for them — i.e. they're connected
// to a different node (SPEC_FULL.md §16). A nil Exporter simply skips
// this, which is correct for a single-node deployment.
type Exporter interface {
	Publish(ctx context.Context, ev event.Eventer) error
}

// Error values map directly onto the wire-level error codes carried in
// model.ErrorPayload (spec.md §6.1, §7).
var (
	ErrEmptyContent     = fmt.Errorf("service: %s", model.ErrEmptyContent)
	ErrMissingRecipient = fmt.Errorf("service: %s", model.ErrMissingRecipient)
	ErrMissingGroup     = fmt.Errorf("service: %s", model.ErrMissingGroup)
	ErrNotMember        = fmt.Errorf("service: %s", model.ErrNotMember)
	ErrMissingMessageID = fmt.Errorf("service: %s", model.ErrMissingMessageID)
)

// Deliverer is the primary interface transport handlers (WS/long-poll)
// use: connection lifecycle plus the Delivery Engine operations (C5).
type Deliverer interface {
	Subscribe(ctx context.Context, userID uuid.UUID) (registry.Connector, error)
	Unsubscribe(userID, connID uuid.UUID) (wentOffline bool)

	SendDirect(ctx context.Context, senderID, recipientID uuid.UUID, content, kind string) (model.AckPayload, error)
	SendGroup(ctx context.Context, senderID, groupID uuid.UUID, content, kind string) (model.AckPayload, error)
	MarkRead(ctx context.Context, readerID, messageID uuid.UUID) error
	RelayTyping(senderID uuid.UUID, recipientID, groupID *uuid.UUID, isTyping bool)
}

// DeliveryService implements Deliverer over the Connection Registry
// (C3), the Presence Store (C1), and the Message Store (C2).
type DeliveryService struct {
	hub      registry.Hubber
	presence presence.Store
	store    store.MessageStore
	enricher Enricher
	exporter Exporter
	logger   *slog.Logger
	tracer   trace.Tracer
}

// NewDeliveryService returns a production-ready instance of the service.
// exporter may be nil (single-node deployment, spec.md §9).
func NewDeliveryService(hub registry.Hubber, presenceStore presence.Store, messageStore store.MessageStore, enricher Enricher, exporter Exporter, logger *slog.Logger) *DeliveryService {
	return &DeliveryService{
		hub:      hub,
		presence: presenceStore,
		store:    messageStore,
		enricher: enricher,
		exporter: exporter,
		logger:   logger,
		tracer:   otel.Tracer("chat-core/service"),
	}
}

// exportIfRemote republishes ev to the fan-out bus when the local
// Broadcast missed its target — the recipient is online somewhere, just
// not on this node.
func (s *DeliveryService) exportIfRemote(ctx context.Context, ev event.Eventer, deliveredLocally bool) {
	if deliveredLocally || s.exporter == nil {
		return
	}
	if err := s.exporter.Publish(ctx, ev); err != nil {
		s.logger.Error("CROSS_NODE_EXPORT_FAILED", "event_id", ev.GetID(), "err", err)
	}
}

// Subscribe handles connection lifecycle initiation: allocate a
// connector (internal logic uses sync.Pool for zero-allocation) and
// attach it to the Connection Registry (Hub).
func (s *DeliveryService) Subscribe(ctx context.Context, userID uuid.UUID) (registry.Connector, error) {
	const defaultBufferSize = 1024

	conn := registry.NewConnector(ctx, userID, defaultBufferSize)
	if err := s.hub.Attach(conn); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

// Unsubscribe detaches a connection. The returned bool reports whether
// this was the user's last local socket, which the Heartbeat controller
// (C6) uses to decide whether to mark the user offline.
func (s *DeliveryService) Unsubscribe(userID, connID uuid.UUID) bool {
	return s.hub.Detach(userID, connID)
}

// SendDirect implements spec.md §4.3 "Direct send".
func (s *DeliveryService) SendDirect(ctx context.Context, senderID, recipientID uuid.UUID, content, kind string) (model.AckPayload, error) {
	ctx, span := s.tracer.Start(ctx, "DeliveryService.SendDirect")
	defer span.End()

	if content == "" || len(content) > maxContentLength {
		return model.AckPayload{}, ErrEmptyContent
	}
	if recipientID == uuid.Nil {
		return model.AckPayload{}, ErrMissingRecipient
	}
	if kind == "" {
		kind = "text"
	}

	now := time.Now()
	msg := &model.Message{
		ID:          uuid.New(),
		SenderID:    senderID,
		RecipientID: recipientID,
		Content:     content,
		Kind:        kind,
		CreatedAt:   now.UnixMilli(),
	}

	online, err := s.presence.IsOnline(ctx, recipientID)
	if err != nil {
		span.RecordError(err)
		return model.AckPayload{}, fmt.Errorf("service: check recipient presence: %w", err)
	}

	if online {
		delivered := s.fanOutDirect(ctx, msg)
		if delivered {
			msg.DeliveredAt = now.UnixMilli()
		}
		// Asynchronous persist on the online path: live send latency
		// stays close to a single mailbox write (spec §4.3
		// "Correctness notes"). An at-least-once contract, not
		// exactly-once — a failed background persist leaves the
		// recipient's in-memory copy ahead of history.
		go func() {
			persistCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := s.store.SaveDirectMessage(persistCtx, msg); err != nil {
				s.logger.Error("DIRECT_MESSAGE_PERSIST_FAILED", "message_id", msg.ID, "err", err)
			}
		}()

		return model.AckPayload{
			MessageID: msg.ID,
			Delivered: delivered,
			Queued:    false,
			Timestamp: isoMillis(now.UnixMilli()),
		}, nil
	}

	// Offline path: the queue entry is only a pointer, so the row must
	// exist before it can be dereferenced on drain — persist synchronously.
	if err := s.store.SaveDirectMessage(ctx, msg); err != nil {
		span.RecordError(err)
		return model.AckPayload{}, fmt.Errorf("service: persist offline direct message: %w", err)
	}
	if err := s.presence.Enqueue(ctx, recipientID, model.QueuePointer{MessageID: msg.ID, Kind: "direct"}); err != nil {
		span.RecordError(err)
		return model.AckPayload{}, fmt.Errorf("service: enqueue offline pointer: %w", err)
	}

	return model.AckPayload{
		MessageID: msg.ID,
		Delivered: false,
		Queued:    true,
		Timestamp: isoMillis(now.UnixMilli()),
	}, nil
}

func (s *DeliveryService) fanOutDirect(ctx context.Context, msg *model.Message) bool {
	username, _ := s.enricher.ResolveUsername(ctx, msg.SenderID)

	payload := model.MessageNewPayload{
		MessageID:      msg.ID,
		SenderID:       msg.SenderID,
		SenderUsername: username,
		Content:        msg.Content,
		MessageType:    msg.Kind,
		CreatedAt:      isoMillis(msg.CreatedAt),
	}
	ev := event.NewMessageNewEvent(msg.RecipientID, payload)
	delivered := s.hub.Broadcast(ev)
	s.exportIfRemote(ctx, ev, delivered)
	return delivered
}

// SendGroup implements spec.md §4.3 "Group send".
func (s *DeliveryService) SendGroup(ctx context.Context, senderID, groupID uuid.UUID, content, kind string) (model.AckPayload, error) {
	ctx, span := s.tracer.Start(ctx, "DeliveryService.SendGroup")
	defer span.End()

	if content == "" || len(content) > maxContentLength {
		return model.AckPayload{}, ErrEmptyContent
	}
	if groupID == uuid.Nil {
		return model.AckPayload{}, ErrMissingGroup
	}
	if kind == "" {
		kind = "text"
	}

	members, err := s.store.GetGroupMembers(ctx, groupID)
	if err != nil {
		span.RecordError(err)
		return model.AckPayload{}, fmt.Errorf("service: resolve group members: %w", err)
	}

	isMember := false
	recipients := make([]uuid.UUID, 0, len(members))
	for _, m := range members {
		if m == senderID {
			isMember = true
			continue
		}
		recipients = append(recipients, m)
	}
	if !isMember {
		return model.AckPayload{}, ErrNotMember
	}

	now := time.Now()
	msg := &model.GroupMessage{
		ID:        uuid.New(),
		GroupID:   groupID,
		SenderID:  senderID,
		Content:   content,
		Kind:      kind,
		CreatedAt: now.UnixMilli(),
	}

	online, offline, err := s.presence.Partition(ctx, recipients)
	if err != nil {
		span.RecordError(err)
		return model.AckPayload{}, fmt.Errorf("service: partition group members: %w", err)
	}

	payload := model.GroupMessageNewPayload{
		MessageID:   msg.ID,
		GroupID:     groupID,
		SenderID:    senderID,
		Content:     content,
		MessageType: kind,
		CreatedAt:   isoMillis(msg.CreatedAt),
	}

	deliveredCount := 0
	for _, recipientID := range online {
		ev := event.NewGroupMessageNewEvent(recipientID, payload)
		delivered := s.hub.Broadcast(ev)
		s.exportIfRemote(ctx, ev, delivered)
		if delivered {
			deliveredCount++
		}
	}

	for _, recipientID := range offline {
		if err := s.presence.Enqueue(ctx, recipientID, model.QueuePointer{MessageID: msg.ID, Kind: "group", GroupID: groupID}); err != nil {
			s.logger.Error("GROUP_OFFLINE_ENQUEUE_FAILED", "recipient_id", recipientID, "err", err)
		}
	}

	go func() {
		persistCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.store.SaveGroupMessage(persistCtx, msg); err != nil {
			s.logger.Error("GROUP_MESSAGE_PERSIST_FAILED", "message_id", msg.ID, "err", err)
		}
	}()

	count := deliveredCount
	return model.AckPayload{
		MessageID:      msg.ID,
		Delivered:      deliveredCount > 0,
		Queued:         false,
		DeliveredCount: &count,
		Timestamp:      isoMillis(now.UnixMilli()),
	}, nil
}

// MarkRead implements spec.md §4.3 "Read receipts".
func (s *DeliveryService) MarkRead(ctx context.Context, readerID, messageID uuid.UUID) error {
	if messageID == uuid.Nil {
		return ErrMissingMessageID
	}

	marked, err := s.store.MarkRead(ctx, messageID, readerID)
	if err != nil {
		return fmt.Errorf("service: mark read: %w", err)
	}
	if !marked {
		return nil
	}

	msg, err := s.store.GetMessage(ctx, messageID)
	if err != nil || msg == nil {
		return nil
	}

	if s.hub.IsConnected(msg.SenderID) {
		payload := model.ReadReceiptPayload{
			MessageID: messageID,
			ReaderID:  readerID,
			ReadAt:    isoMillis(time.Now().UnixMilli()),
		}
		s.hub.Broadcast(event.NewReadReceiptEvent(msg.SenderID, payload))
	}
	return nil
}

// RelayTyping implements spec.md §4.3 "Typing" — a pure, unpersisted
// relay with no ack and no offline queueing.
func (s *DeliveryService) RelayTyping(senderID uuid.UUID, recipientID, groupID *uuid.UUID, isTyping bool) {
	payload := model.TypingPayload{
		UserID:      senderID,
		IsTyping:    isTyping,
		RecipientID: recipientID,
		GroupID:     groupID,
	}

	if recipientID != nil {
		s.hub.Broadcast(event.NewTypingEvent(*recipientID, payload))
		return
	}
	if groupID == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	members, err := s.store.GetGroupMembers(ctx, *groupID)
	if err != nil {
		return
	}
	for _, memberID := range members {
		if memberID == senderID {
			continue
		}
		s.hub.Broadcast(event.NewTypingEvent(memberID, payload))
	}
}

func isoMillis(unixMilli int64) string {
	return time.UnixMilli(unixMilli).UTC().Format("2006-01-02T15:04:05.000Z07:00")
}
