package service

import (
	"context"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestPresenceController_ConnectPingDisconnect(t *testing.T) {
	pres := newFakePresence()
	hb := NewPresenceController(pres, slog.Default())
	userID := uuid.New()
	ctx := context.Background()

	require.NoError(t, hb.OnConnect(ctx, userID))
	online, err := pres.IsOnline(ctx, userID)
	require.NoError(t, err)
	require.True(t, online)

	require.NoError(t, hb.OnPing(ctx, userID))

	require.NoError(t, hb.OnDisconnect(ctx, userID, false))
	online, err = pres.IsOnline(ctx, userID)
	require.NoError(t, err)
	require.True(t, online, "not the last socket — must stay online")

	require.NoError(t, hb.OnDisconnect(ctx, userID, true))
	online, err = pres.IsOnline(ctx, userID)
	require.NoError(t, err)
	require.False(t, online, "last socket gone — must go offline")
}
