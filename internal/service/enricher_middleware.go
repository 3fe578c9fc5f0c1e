package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// enricherMiddleware wraps an Enricher with observability, kept separate
// from PeerEnricher so the cache-aside logic doesn't get tangled with
// logging concerns.
type enricherMiddleware struct {
	next   Enricher
	logger *slog.Logger
}

func (m *enricherMiddleware) ResolveUsername(ctx context.Context, userID uuid.UUID) (string, error) {
	start := time.Now()
	name, err := m.next.ResolveUsername(ctx, userID)
	if err != nil {
		m.logger.Error("PEER_ENRICHMENT_FAILED", "user_id", userID, "err", err, "duration", time.Since(start))
	} else {
		m.logger.Debug("PEER_ENRICHMENT_SUCCESS", "user_id", userID, "duration", time.Since(start))
	}
	return name, err
}

func (m *enricherMiddleware) ResolveUsernames(ctx context.Context, a, b uuid.UUID) (string, string, error) {
	start := time.Now()
	nameA, nameB, err := m.next.ResolveUsernames(ctx, a, b)
	if err != nil {
		m.logger.Error("PEER_ENRICHMENT_FAILED", "err", err, "duration", time.Since(start))
	} else {
		m.logger.Debug("PEER_ENRICHMENT_SUCCESS", "duration", time.Since(start))
	}
	return nameA, nameB, err
}
