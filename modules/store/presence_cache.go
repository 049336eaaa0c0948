package store

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// PresenceCache keeps the presence mirror in Redis hashes keyed
// "<prefix><userID>" with fields is_online and last_seen.
type PresenceCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewPresenceCache creates a new presence cache.
func NewPresenceCache(client *redis.Client, prefix string, ttl time.Duration) *PresenceCache {
	return &PresenceCache{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

// Set stores the presence of a user and refreshes its TTL.
func (c *PresenceCache) Set(ctx context.Context, userID string, isOnline bool, lastSeen time.Time) error {
	key := c.prefix + userID
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key,
			"is_online", strconv.FormatBool(isOnline),
			"last_seen", lastSeen.UTC().Format(time.RFC3339Nano),
		)
		if c.ttl > 0 {
			pipe.Expire(ctx, key, c.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("presence cache set error: %w", err)
	}
	return nil
}

// Get returns the cached presence of a user. found is false on a miss.
func (c *PresenceCache) Get(ctx context.Context, userID string) (presence UserPresence, found bool, err error) {
	fields, err := c.client.HGetAll(ctx, c.prefix+userID).Result()
	if err != nil {
		return UserPresence{}, false, fmt.Errorf("presence cache get error: %w", err)
	}
	if len(fields) == 0 {
		return UserPresence{}, false, nil
	}

	isOnline, err := strconv.ParseBool(fields["is_online"])
	if err != nil {
		return UserPresence{}, false, fmt.Errorf("presence cache decode error: %w", err)
	}
	lastSeen, err := time.Parse(time.RFC3339Nano, fields["last_seen"])
	if err != nil {
		return UserPresence{}, false, fmt.Errorf("presence cache decode error: %w", err)
	}

	return UserPresence{UserID: userID, IsOnline: isOnline, LastSeen: lastSeen}, true, nil
}

// Ping checks the Redis connection.
func (c *PresenceCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
