package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/Merrick1307/chat-core/internal/presence"
)

// Heartbeat is the Presence Controller (C6): it owns the online/offline
// transitions the Delivery Engine and Offline Flush read through the
// Presence Store. No teacher analogue exists for this concern — the
// shape below follows the rest of this package's service-struct-plus-
// interface idiom (spec §4.5).
type Heartbeat interface {
	// OnConnect marks the user online. Call once per accepted socket;
	// repeat connections from the same user simply refresh the TTL.
	OnConnect(ctx context.Context, userID uuid.UUID) error
	// OnPing refreshes the online TTL in response to a client "ping".
	OnPing(ctx context.Context, userID uuid.UUID) error
	// OnDisconnect marks the user offline iff wentOffline is true — the
	// signal the Connection Registry's Detach already computed from its
	// own session count, so no extra presence round trip is needed on
	// the common multi-socket case.
	OnDisconnect(ctx context.Context, userID uuid.UUID, wentOffline bool) error
}

type PresenceController struct {
	presence presence.Store
	logger   *slog.Logger
}

func NewPresenceController(presenceStore presence.Store, logger *slog.Logger) *PresenceController {
	return &PresenceController{presence: presenceStore, logger: logger}
}

func (p *PresenceController) OnConnect(ctx context.Context, userID uuid.UUID) error {
	return p.presence.MarkOnline(ctx, userID)
}

func (p *PresenceController) OnPing(ctx context.Context, userID uuid.UUID) error {
	return p.presence.Refresh(ctx, userID)
}

// OnDisconnect marks the user offline only when this was their last
// local socket. The spec accepts a single-process implementation; a
// multi-process deployment would need an extra presence query here to
// confirm no peer process still holds a live session before clearing
// the marker (spec §4.5, §9 open questions — recorded as a known gap).
func (p *PresenceController) OnDisconnect(ctx context.Context, userID uuid.UUID, wentOffline bool) error {
	if !wentOffline {
		return nil
	}
	return p.presence.MarkOffline(ctx, userID)
}
