package presence

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Key prefixes and TTLs, pinned from the original service's
// app/cache/keys.py (RedisKeys.ONLINE_PREFIX / OFFLINE_QUEUE_PREFIX /
// ONLINE_TTL / OFFLINE_QUEUE_TTL).
const (
	onlinePrefix       = "online:"
	offlineQueuePrefix = "offline_queue:"

	// OnlineTTL is T_online from spec §3/§4.5 (default 300s).
	OnlineTTL = 300 * time.Second
	// QueueTTL is T_queue from spec §3 (default 30 days).
	QueueTTL = 30 * 24 * time.Hour
)

func onlineKey(userID uuid.UUID) string {
	return fmt.Sprintf("%s%s", onlinePrefix, userID)
}

func offlineQueueKey(userID uuid.UUID) string {
	return fmt.Sprintf("%s%s", offlineQueuePrefix, userID)
}
