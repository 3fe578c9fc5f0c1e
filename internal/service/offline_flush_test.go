package service

import (
	"context"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/Merrick1307/chat-core/internal/domain/model"
)

func TestOfflineFlushService_DeliversAndClearsQueue(t *testing.T) {
	hub, pres, st := newFakeHub(), newFakePresence(), newFakeStore()
	userID, sender := uuid.New(), uuid.New()
	hub.online[userID] = true

	msg := &model.Message{ID: uuid.New(), SenderID: sender, RecipientID: userID, Content: "hi", Kind: "text", CreatedAt: 1}
	st.messages[msg.ID] = msg
	pres.queues[userID] = []model.QueuePointer{{MessageID: msg.ID, Kind: "direct"}}

	flush := NewOfflineFlushService(hub, pres, st, slog.Default())
	require.NoError(t, flush.Flush(context.Background(), userID))

	require.Len(t, hub.broadcasts, 1)
	batch := hub.broadcasts[0].GetPayload().(model.OfflineBatchPayload)
	require.Equal(t, 1, batch.Count)

	require.NotZero(t, msg.DeliveredAt, "flushed direct message must be marked delivered")
	require.Empty(t, pres.queues[userID], "queue must be cleared after a successful flush")
}

func TestOfflineFlushService_SkipsMissingRowAndLeavesQueueOnFailedSend(t *testing.T) {
	hub, pres, st := newFakeHub(), newFakePresence(), newFakeStore()
	userID := uuid.New()
	// user not marked online in hub: the broadcast will fail

	pres.queues[userID] = []model.QueuePointer{{MessageID: uuid.New(), Kind: "direct"}}

	flush := NewOfflineFlushService(hub, pres, st, slog.Default())
	require.NoError(t, flush.Flush(context.Background(), userID))

	require.Empty(t, hub.broadcasts)
	require.Len(t, pres.queues[userID], 1, "queue must survive a mid-flush delivery failure for redelivery")
}

func TestOfflineFlushService_EmptyQueueIsNoop(t *testing.T) {
	hub, pres, st := newFakeHub(), newFakePresence(), newFakeStore()
	userID := uuid.New()

	flush := NewOfflineFlushService(hub, pres, st, slog.Default())
	require.NoError(t, flush.Flush(context.Background(), userID))
	require.Empty(t, hub.broadcasts)
}
