package presence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"github.com/Merrick1307/chat-core/internal/domain/model"
)

var _ Store = (*RedisStore)(nil)

// RedisStore implements Store on top of github.com/redis/go-redis/v9,
// grounded on the original service's redis.asyncio-backed
// WebSocketCacheService (app/cache/websockets.py). Every call is routed
// through a circuit breaker so a stalled Redis degrades to fast failures
// instead of blocking an actor mailbox (spec §5 "Presence Store + Message
// Store: external, thread-safe by construction").
type RedisStore struct {
	rdb     *redis.Client
	breaker *gobreaker.CircuitBreaker
}

// NewRedisStore wraps an existing client. The caller owns the client's
// lifecycle (created in config/app wiring).
func NewRedisStore(rdb *redis.Client) *RedisStore {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "presence-store",
		MaxRequests: 5,
		Interval:    30 * time.Second,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
	})

	return &RedisStore{rdb: rdb, breaker: cb}
}

func (s *RedisStore) MarkOnline(ctx context.Context, userID uuid.UUID) error {
	_, err := s.breaker.Execute(func() (any, error) {
		return nil, s.rdb.Set(ctx, onlineKey(userID), "1", OnlineTTL).Err()
	})
	return err
}

func (s *RedisStore) MarkOffline(ctx context.Context, userID uuid.UUID) error {
	_, err := s.breaker.Execute(func() (any, error) {
		return nil, s.rdb.Del(ctx, onlineKey(userID)).Err()
	})
	return err
}

func (s *RedisStore) IsOnline(ctx context.Context, userID uuid.UUID) (bool, error) {
	v, err := s.breaker.Execute(func() (any, error) {
		n, err := s.rdb.Exists(ctx, onlineKey(userID)).Result()
		return n, err
	})
	if err != nil {
		return false, err
	}
	return v.(int64) > 0, nil
}

func (s *RedisStore) Refresh(ctx context.Context, userID uuid.UUID) error {
	_, err := s.breaker.Execute(func() (any, error) {
		return nil, s.rdb.Expire(ctx, onlineKey(userID), OnlineTTL).Err()
	})
	return err
}

// Partition mirrors the original's get_online_users_from_list, but uses
// a single pipelined EXISTS per batch instead of one round-trip per user
// (spec §4.3 "the core implementation may use a single pipelined query").
func (s *RedisStore) Partition(ctx context.Context, userIDs []uuid.UUID) (online, offline []uuid.UUID, err error) {
	if len(userIDs) == 0 {
		return nil, nil, nil
	}

	v, err := s.breaker.Execute(func() (any, error) {
		pipe := s.rdb.Pipeline()
		cmds := make([]*redis.IntCmd, len(userIDs))
		for i, uid := range userIDs {
			cmds[i] = pipe.Exists(ctx, onlineKey(uid))
		}
		if _, pipeErr := pipe.Exec(ctx); pipeErr != nil && !errors.Is(pipeErr, redis.Nil) {
			return nil, pipeErr
		}
		return cmds, nil
	})
	if err != nil {
		return nil, nil, err
	}

	cmds := v.([]*redis.IntCmd)
	for i, uid := range userIDs {
		if cmds[i].Val() > 0 {
			online = append(online, uid)
		} else {
			offline = append(offline, uid)
		}
	}
	return online, offline, nil
}

func (s *RedisStore) Enqueue(ctx context.Context, userID uuid.UUID, pointer model.QueuePointer) error {
	payload, err := json.Marshal(pointer)
	if err != nil {
		return fmt.Errorf("presence: marshal queue pointer: %w", err)
	}

	_, err = s.breaker.Execute(func() (any, error) {
		key := offlineQueueKey(userID)
		// RPUSH (not the original's LPUSH) so LRANGE 0 -1 below yields
		// oldest-first directly, matching spec §4.4's chosen drain order
		// without a client-side reverse.
		if err := s.rdb.RPush(ctx, key, payload).Err(); err != nil {
			return nil, err
		}
		return nil, s.rdb.Expire(ctx, key, QueueTTL).Err()
	})
	return err
}

func (s *RedisStore) Drain(ctx context.Context, userID uuid.UUID) ([]model.QueuePointer, error) {
	v, err := s.breaker.Execute(func() (any, error) {
		return s.rdb.LRange(ctx, offlineQueueKey(userID), 0, -1).Result()
	})
	if err != nil {
		return nil, err
	}

	raw := v.([]string)
	pointers := make([]model.QueuePointer, 0, len(raw))
	for _, item := range raw {
		var p model.QueuePointer
		if err := json.Unmarshal([]byte(item), &p); err != nil {
			// A corrupt pointer must not sink the rest of the drain
			// (spec §8 property 4 "tolerate and skip it").
			continue
		}
		pointers = append(pointers, p)
	}
	return pointers, nil
}

func (s *RedisStore) Clear(ctx context.Context, userID uuid.UUID) error {
	_, err := s.breaker.Execute(func() (any, error) {
		return nil, s.rdb.Del(ctx, offlineQueueKey(userID)).Err()
	})
	return err
}
