package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisCache struct {
	rdb *redis.Client
}

func NewRedisCache(rdb *redis.Client) *RedisCache {
	return &RedisCache{rdb: rdb}
}

// GeocodeKey caches city-name lookups; coordinates for a city do not move,
// so entries carry a long TTL.
func GeocodeKey(city, country string) string {
	return fmt.Sprintf("geocode:%s:%s", strings.ToLower(country), strings.ToLower(strings.TrimSpace(city)))
}

func VisitCountKey(userID string) string {
	return "visits:count:" + userID
}

// ConversationChannel is the pub/sub channel carrying newly sent messages
// for a match, consumed by the websocket handler.
func ConversationChannel(matchID string) string {
	return "conversation:" + matchID + ":messages"
}

func (c *RedisCache) GetJSON(ctx context.Context, key string, dst any) (bool, error) {
	s, err := c.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(s), dst); err != nil {
		// data corrupt: treat as miss by deleting
		_ = c.rdb.Del(ctx, key).Err()
		return false, nil
	}
	return true, nil
}

func (c *RedisCache) SetJSON(ctx context.Context, key string, val any, ttl time.Duration) error {
	b, err := json.Marshal(val)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, key, b, ttl).Err()
}

func (c *RedisCache) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.rdb.Del(ctx, keys...).Err()
}

// Subscribe opens a pub/sub subscription on a channel. The caller owns the
// returned subscription and must close it.
func (c *RedisCache) Subscribe(ctx context.Context, channel string) *redis.PubSub {
	return c.rdb.Subscribe(ctx, channel)
}

// PublishJSON fans a payload out on a pub/sub channel; delivery is
// best-effort and failures never block the write path.
func (c *RedisCache) PublishJSON(ctx context.Context, channel string, val any) error {
	b, err := json.Marshal(val)
	if err != nil {
		return err
	}
	return c.rdb.Publish(ctx, channel, b).Err()
}
