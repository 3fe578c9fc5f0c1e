package presence

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/Merrick1307/chat-core/internal/domain/model"
)

func newTestStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client), mr
}

func TestRedisStore_MarkOnlineOfflineRoundTrip(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	userID := uuid.New()

	online, err := store.IsOnline(ctx, userID)
	require.NoError(t, err)
	require.False(t, online)

	require.NoError(t, store.MarkOnline(ctx, userID))

	online, err = store.IsOnline(ctx, userID)
	require.NoError(t, err)
	require.True(t, online)

	require.NoError(t, store.MarkOffline(ctx, userID))

	online, err = store.IsOnline(ctx, userID)
	require.NoError(t, err)
	require.False(t, online)
}

func TestRedisStore_RefreshExtendsTTL(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()
	userID := uuid.New()

	require.NoError(t, store.MarkOnline(ctx, userID))
	mr.FastForward(OnlineTTL - 1)
	require.NoError(t, store.Refresh(ctx, userID))
	mr.FastForward(OnlineTTL - 1)

	online, err := store.IsOnline(ctx, userID)
	require.NoError(t, err)
	require.True(t, online, "refresh should have pushed the TTL out before expiry")
}

func TestRedisStore_Partition(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	onlineUser, offlineUser := uuid.New(), uuid.New()
	require.NoError(t, store.MarkOnline(ctx, onlineUser))

	online, offline, err := store.Partition(ctx, []uuid.UUID{onlineUser, offlineUser})
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{onlineUser}, online)
	require.Equal(t, []uuid.UUID{offlineUser}, offline)
}

func TestRedisStore_EnqueueDrainOldestFirst(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	userID := uuid.New()

	first := model.QueuePointer{MessageID: uuid.New(), Kind: "direct"}
	second := model.QueuePointer{MessageID: uuid.New(), Kind: "direct"}

	require.NoError(t, store.Enqueue(ctx, userID, first))
	require.NoError(t, store.Enqueue(ctx, userID, second))

	pointers, err := store.Drain(ctx, userID)
	require.NoError(t, err)
	require.Len(t, pointers, 2)
	require.Equal(t, first.MessageID, pointers[0].MessageID)
	require.Equal(t, second.MessageID, pointers[1].MessageID)

	require.NoError(t, store.Clear(ctx, userID))
	pointers, err = store.Drain(ctx, userID)
	require.NoError(t, err)
	require.Empty(t, pointers)
}
