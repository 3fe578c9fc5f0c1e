package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"

	"github.com/Merrick1307/chat-core/internal/store"
)

// Enricher resolves a sender's display name for message.new/message.group.new
// frames (spec §6.1 "sender_username"). The lookup is cache-aside over the
// Message Store's users table.
type Enricher interface {
	// ResolveUsername looks up a single user's display name.
	ResolveUsername(ctx context.Context, userID uuid.UUID) (string, error)
	// ResolveUsernames resolves two users concurrently — used when a
	// caller needs both sides of a direct conversation enriched at once.
	ResolveUsernames(ctx context.Context, a, b uuid.UUID) (string, string, error)
}

type PeerEnricher struct {
	store store.MessageStore
	cache *lru.Cache[uuid.UUID, string]
}

// NewPeerEnricherService provides a thread-safe service with an internal
// LRU cache, sized to keep the working set of recently-active identities
// resident without unbounded growth.
func NewPeerEnricherService(messageStore store.MessageStore) *PeerEnricher {
	cache, _ := lru.New[uuid.UUID, string](10000)

	return &PeerEnricher{
		store: messageStore,
		cache: cache,
	}
}

func (e *PeerEnricher) ResolveUsernames(ctx context.Context, a, b uuid.UUID) (string, string, error) {
	g, gCtx := errgroup.WithContext(ctx)

	var nameA, nameB string

	g.Go(func() error {
		var err error
		nameA, err = e.ResolveUsername(gCtx, a)
		return err
	})
	g.Go(func() error {
		var err error
		nameB, err = e.ResolveUsername(gCtx, b)
		return err
	})

	if err := g.Wait(); err != nil {
		return "", "", fmt.Errorf("service: resolve usernames: %w", err)
	}
	return nameA, nameB, nil
}

func (e *PeerEnricher) ResolveUsername(ctx context.Context, userID uuid.UUID) (string, error) {
	if userID == uuid.Nil {
		return "", nil
	}

	if cached, ok := e.cache.Get(userID); ok {
		return cached, nil
	}

	name, err := e.store.GetUsername(ctx, userID)
	if err != nil {
		// Graceful fallback: keep the message moving even if the name
		// lookup failed, the client can still render the message by id.
		return "", nil
	}

	e.cache.Add(userID, name)
	return name, nil
}
