package service

import (
	"context"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/Merrick1307/chat-core/internal/domain/event"
	"github.com/Merrick1307/chat-core/internal/domain/model"
	"github.com/Merrick1307/chat-core/internal/domain/registry"
)

// fakeHub is a minimal registry.Hubber test double that records
// broadcasts instead of routing through real connections.
type fakeHub struct {
	online     map[uuid.UUID]bool
	broadcasts []event.Eventer
}

func newFakeHub() *fakeHub { return &fakeHub{online: map[uuid.UUID]bool{}} }

func (h *fakeHub) Attach(conn registry.Connector) error { return nil }
func (h *fakeHub) Detach(userID, connID uuid.UUID) bool { return true }
func (h *fakeHub) Broadcast(ev event.Eventer) bool {
	if !h.online[ev.GetUserID()] {
		return false
	}
	h.broadcasts = append(h.broadcasts, ev)
	return true
}
func (h *fakeHub) IsConnected(userID uuid.UUID) bool        { return h.online[userID] }
func (h *fakeHub) SocketsFor(userID uuid.UUID) []uuid.UUID   { return nil }
func (h *fakeHub) Stats() model.HubStats                    { return model.HubStats{} }
func (h *fakeHub) Shutdown()                                {}

// fakePresence is a minimal presence.Store test double.
type fakePresence struct {
	online map[uuid.UUID]bool
	queues map[uuid.UUID][]model.QueuePointer
}

func newFakePresence() *fakePresence {
	return &fakePresence{online: map[uuid.UUID]bool{}, queues: map[uuid.UUID][]model.QueuePointer{}}
}

func (p *fakePresence) MarkOnline(ctx context.Context, userID uuid.UUID) error {
	p.online[userID] = true
	return nil
}
func (p *fakePresence) MarkOffline(ctx context.Context, userID uuid.UUID) error {
	delete(p.online, userID)
	return nil
}
func (p *fakePresence) IsOnline(ctx context.Context, userID uuid.UUID) (bool, error) {
	return p.online[userID], nil
}
func (p *fakePresence) Refresh(ctx context.Context, userID uuid.UUID) error { return nil }
func (p *fakePresence) Partition(ctx context.Context, userIDs []uuid.UUID) (online, offline []uuid.UUID, err error) {
	for _, id := range userIDs {
		if p.online[id] {
			online = append(online, id)
		} else {
			offline = append(offline, id)
		}
	}
	return online, offline, nil
}
func (p *fakePresence) Enqueue(ctx context.Context, userID uuid.UUID, pointer model.QueuePointer) error {
	p.queues[userID] = append(p.queues[userID], pointer)
	return nil
}
func (p *fakePresence) Drain(ctx context.Context, userID uuid.UUID) ([]model.QueuePointer, error) {
	return p.queues[userID], nil
}
func (p *fakePresence) Clear(ctx context.Context, userID uuid.UUID) error {
	delete(p.queues, userID)
	return nil
}

// fakeStore is a minimal store.MessageStore test double backed by maps.
type fakeStore struct {
	messages      map[uuid.UUID]*model.Message
	groupMessages map[uuid.UUID]*model.GroupMessage
	groupMembers  map[uuid.UUID][]uuid.UUID
	usernames     map[uuid.UUID]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		messages:      map[uuid.UUID]*model.Message{},
		groupMessages: map[uuid.UUID]*model.GroupMessage{},
		groupMembers:  map[uuid.UUID][]uuid.UUID{},
		usernames:     map[uuid.UUID]string{},
	}
}

func (s *fakeStore) SaveDirectMessage(ctx context.Context, msg *model.Message) error {
	cp := *msg
	s.messages[msg.ID] = &cp
	return nil
}
func (s *fakeStore) GetMessage(ctx context.Context, messageID uuid.UUID) (*model.Message, error) {
	return s.messages[messageID], nil
}
func (s *fakeStore) GetConversation(ctx context.Context, a, b uuid.UUID, limit, offset int) ([]*model.Message, error) {
	return nil, nil
}
func (s *fakeStore) GetUnreadMessages(ctx context.Context, userID uuid.UUID) ([]*model.Message, error) {
	return nil, nil
}
func (s *fakeStore) MarkDelivered(ctx context.Context, messageID uuid.UUID) (bool, error) {
	msg, ok := s.messages[messageID]
	if !ok || msg.DeliveredAt != 0 {
		return false, nil
	}
	msg.DeliveredAt = 1
	return true, nil
}
func (s *fakeStore) MarkRead(ctx context.Context, messageID, userID uuid.UUID) (bool, error) {
	msg, ok := s.messages[messageID]
	if !ok || msg.RecipientID != userID || msg.ReadAt != 0 {
		return false, nil
	}
	msg.ReadAt = 1
	return true, nil
}
func (s *fakeStore) CreateGroup(ctx context.Context, group *model.Group, memberIDs []uuid.UUID) error {
	return nil
}
func (s *fakeStore) AddMember(ctx context.Context, groupID, userID uuid.UUID, role model.MemberRole) error {
	return nil
}
func (s *fakeStore) RemoveMember(ctx context.Context, groupID, userID uuid.UUID) error { return nil }
func (s *fakeStore) GetGroup(ctx context.Context, groupID uuid.UUID) (*model.Group, error) {
	return nil, nil
}
func (s *fakeStore) GetGroupMembers(ctx context.Context, groupID uuid.UUID) ([]uuid.UUID, error) {
	return s.groupMembers[groupID], nil
}
func (s *fakeStore) IsMember(ctx context.Context, groupID, userID uuid.UUID) (bool, error) {
	for _, m := range s.groupMembers[groupID] {
		if m == userID {
			return true, nil
		}
	}
	return false, nil
}
func (s *fakeStore) SaveGroupMessage(ctx context.Context, msg *model.GroupMessage) error {
	cp := *msg
	s.groupMessages[msg.ID] = &cp
	return nil
}
func (s *fakeStore) GetGroupMessage(ctx context.Context, messageID uuid.UUID) (*model.GroupMessage, error) {
	return s.groupMessages[messageID], nil
}
func (s *fakeStore) GetGroupMessages(ctx context.Context, groupID uuid.UUID, limit, offset int) ([]*model.GroupMessage, error) {
	return nil, nil
}
func (s *fakeStore) MarkGroupMessageRead(ctx context.Context, messageID, userID uuid.UUID) (bool, error) {
	return true, nil
}
func (s *fakeStore) GetUnreadGroupMessages(ctx context.Context, groupID, userID uuid.UUID) ([]*model.GroupMessage, error) {
	return nil, nil
}
func (s *fakeStore) GetUsername(ctx context.Context, userID uuid.UUID) (string, error) {
	return s.usernames[userID], nil
}
func (s *fakeStore) Close() error { return nil }

func newTestDelivery(hub *fakeHub, pres *fakePresence, st *fakeStore) *DeliveryService {
	return NewDeliveryService(hub, pres, st, NewPeerEnricherService(st), nil, slog.Default())
}

// fakeExporter is a minimal Exporter test double.
type fakeExporter struct {
	published []event.Eventer
}

func (e *fakeExporter) Publish(ctx context.Context, ev event.Eventer) error {
	e.published = append(e.published, ev)
	return nil
}

func TestDeliveryService_SendDirect_ExportsWhenOnlineButNotLocal(t *testing.T) {
	hub, pres, st := newFakeHub(), newFakePresence(), newFakeStore()
	sender, recipient := uuid.New(), uuid.New()
	pres.online[recipient] = true // online somewhere, just not on this node

	exporter := &fakeExporter{}
	svc := NewDeliveryService(hub, pres, st, NewPeerEnricherService(st), exporter, slog.Default())

	ack, err := svc.SendDirect(context.Background(), sender, recipient, "hi", "")
	require.NoError(t, err)
	require.False(t, ack.Delivered, "not delivered on this node's local hub")
	require.Len(t, exporter.published, 1, "must export for other nodes to pick up")
}

func TestDeliveryService_SendDirect_OnlineRecipient(t *testing.T) {
	hub, pres, st := newFakeHub(), newFakePresence(), newFakeStore()
	sender, recipient := uuid.New(), uuid.New()
	hub.online[recipient] = true
	pres.online[recipient] = true

	svc := newTestDelivery(hub, pres, st)
	ack, err := svc.SendDirect(context.Background(), sender, recipient, "hi", "")
	require.NoError(t, err)
	require.True(t, ack.Delivered)
	require.False(t, ack.Queued)
	require.Len(t, hub.broadcasts, 1)
}

func TestDeliveryService_SendDirect_OfflineRecipientQueuesAndPersists(t *testing.T) {
	hub, pres, st := newFakeHub(), newFakePresence(), newFakeStore()
	sender, recipient := uuid.New(), uuid.New()

	svc := newTestDelivery(hub, pres, st)
	ack, err := svc.SendDirect(context.Background(), sender, recipient, "hi", "")
	require.NoError(t, err)
	require.False(t, ack.Delivered)
	require.True(t, ack.Queued)

	require.Len(t, pres.queues[recipient], 1)
	require.Equal(t, ack.MessageID, pres.queues[recipient][0].MessageID)

	stored, err := st.GetMessage(context.Background(), ack.MessageID)
	require.NoError(t, err)
	require.NotNil(t, stored, "offline path must persist synchronously before queueing")
}

func TestDeliveryService_SendDirect_RejectsEmptyContentAndMissingRecipient(t *testing.T) {
	hub, pres, st := newFakeHub(), newFakePresence(), newFakeStore()
	svc := newTestDelivery(hub, pres, st)

	_, err := svc.SendDirect(context.Background(), uuid.New(), uuid.New(), "", "")
	require.ErrorIs(t, err, ErrEmptyContent)

	_, err = svc.SendDirect(context.Background(), uuid.New(), uuid.Nil, "hi", "")
	require.ErrorIs(t, err, ErrMissingRecipient)
}

func TestDeliveryService_SendGroup_RejectsNonMember(t *testing.T) {
	hub, pres, st := newFakeHub(), newFakePresence(), newFakeStore()
	groupID := uuid.New()
	st.groupMembers[groupID] = []uuid.UUID{uuid.New(), uuid.New()}

	svc := newTestDelivery(hub, pres, st)
	_, err := svc.SendGroup(context.Background(), uuid.New(), groupID, "hi", "")
	require.ErrorIs(t, err, ErrNotMember)
}

func TestDeliveryService_SendGroup_PartitionsOnlineAndOffline(t *testing.T) {
	hub, pres, st := newFakeHub(), newFakePresence(), newFakeStore()
	sender, onlineMember, offlineMember := uuid.New(), uuid.New(), uuid.New()
	groupID := uuid.New()
	st.groupMembers[groupID] = []uuid.UUID{sender, onlineMember, offlineMember}
	hub.online[onlineMember] = true
	pres.online[onlineMember] = true

	svc := newTestDelivery(hub, pres, st)
	ack, err := svc.SendGroup(context.Background(), sender, groupID, "hi", "")
	require.NoError(t, err)
	require.True(t, ack.Delivered)
	require.NotNil(t, ack.DeliveredCount)
	require.Equal(t, 1, *ack.DeliveredCount)
	require.Len(t, pres.queues[offlineMember], 1)
}

func TestDeliveryService_MarkRead_NotifiesLocalSender(t *testing.T) {
	hub, pres, st := newFakeHub(), newFakePresence(), newFakeStore()
	sender, recipient := uuid.New(), uuid.New()
	msg := &model.Message{ID: uuid.New(), SenderID: sender, RecipientID: recipient, Content: "hi", Kind: "text"}
	st.messages[msg.ID] = msg
	hub.online[sender] = true

	svc := newTestDelivery(hub, pres, st)
	require.NoError(t, svc.MarkRead(context.Background(), recipient, msg.ID))
	require.NotZero(t, msg.ReadAt)
	require.Len(t, hub.broadcasts, 1)
	require.Equal(t, event.KindReadReceipt, hub.broadcasts[0].GetKind())
}

func TestDeliveryService_RelayTyping_DropsWhenRecipientOffline(t *testing.T) {
	hub, pres, st := newFakeHub(), newFakePresence(), newFakeStore()
	sender, recipient := uuid.New(), uuid.New()

	svc := newTestDelivery(hub, pres, st)
	svc.RelayTyping(sender, &recipient, nil, true)
	require.Empty(t, hub.broadcasts, "typing has no ack and is silently dropped for an offline recipient")
}
