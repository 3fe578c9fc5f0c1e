package store

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/Merrick1307/chat-core/internal/domain/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(":memory:", slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteStore_DirectMessageLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	sender, recipient := uuid.New(), uuid.New()
	msg := &model.Message{
		ID: uuid.New(), SenderID: sender, RecipientID: recipient,
		Content: "hello", Kind: "text", CreatedAt: time.Now().UnixMilli(),
	}
	require.NoError(t, s.SaveDirectMessage(ctx, msg))

	got, err := s.GetMessage(ctx, msg.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, msg.Content, got.Content)
	require.Zero(t, got.DeliveredAt)

	delivered, err := s.MarkDelivered(ctx, msg.ID)
	require.NoError(t, err)
	require.True(t, delivered)

	delivered, err = s.MarkDelivered(ctx, msg.ID)
	require.NoError(t, err)
	require.False(t, delivered, "marking an already-delivered message again is a no-op")

	read, err := s.MarkRead(ctx, msg.ID, recipient)
	require.NoError(t, err)
	require.True(t, read)

	unread, err := s.GetUnreadMessages(ctx, recipient)
	require.NoError(t, err)
	require.Empty(t, unread)

	got, err = s.GetMessage(ctx, msg.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.GreaterOrEqual(t, got.DeliveredAt, got.CreatedAt, "DeliveredAt must be in unix millis, same scale as CreatedAt")
	require.GreaterOrEqual(t, got.ReadAt, got.DeliveredAt)
}

func TestSQLiteStore_ConversationOrdering(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	userA, userB := uuid.New(), uuid.New()
	for i, ts := range []int64{100, 200, 300} {
		msg := &model.Message{
			ID: uuid.New(), SenderID: userA, RecipientID: userB,
			Content: "msg", Kind: "text", CreatedAt: ts,
		}
		if i%2 == 1 {
			msg.SenderID, msg.RecipientID = userB, userA
		}
		require.NoError(t, s.SaveDirectMessage(ctx, msg))
	}

	conv, err := s.GetConversation(ctx, userA, userB, 50, 0)
	require.NoError(t, err)
	require.Len(t, conv, 3)
	require.Equal(t, int64(300), conv[0].CreatedAt, "newest first")
	require.Equal(t, int64(100), conv[2].CreatedAt)
}

func TestSQLiteStore_GroupMembershipAndMessages(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	creator, memberA, memberB := uuid.New(), uuid.New(), uuid.New()
	group := &model.Group{ID: uuid.New(), Name: "squad", CreatorID: creator, CreatedAt: 500}
	require.NoError(t, s.CreateGroup(ctx, group, []uuid.UUID{memberA, memberB}))

	members, err := s.GetGroupMembers(ctx, group.ID)
	require.NoError(t, err)
	require.ElementsMatch(t, []uuid.UUID{creator, memberA, memberB}, members)

	isMember, err := s.IsMember(ctx, group.ID, memberA)
	require.NoError(t, err)
	require.True(t, isMember)

	require.NoError(t, s.RemoveMember(ctx, group.ID, memberA))
	isMember, err = s.IsMember(ctx, group.ID, memberA)
	require.NoError(t, err)
	require.False(t, isMember)

	gmsg := &model.GroupMessage{
		ID: uuid.New(), GroupID: group.ID, SenderID: creator,
		Content: "welcome", Kind: "text", CreatedAt: 600,
	}
	require.NoError(t, s.SaveGroupMessage(ctx, gmsg))

	unread, err := s.GetUnreadGroupMessages(ctx, group.ID, memberB)
	require.NoError(t, err)
	require.Len(t, unread, 1)

	marked, err := s.MarkGroupMessageRead(ctx, gmsg.ID, memberB)
	require.NoError(t, err)
	require.True(t, marked)

	unread, err = s.GetUnreadGroupMessages(ctx, group.ID, memberB)
	require.NoError(t, err)
	require.Empty(t, unread)
}
