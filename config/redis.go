package config

import (
	"context"
	"errors"
	"os"
	"strings"

	"github.com/redis/go-redis/v9"
)

// InitRedis connects to Redis, which backs the geocode/visit-count caches
// and the conversation pub/sub fan-out.
func InitRedis() (*redis.Client, error) {
	val := os.Getenv("REDIS_ADDR")
	if val == "" {
		val = os.Getenv("REDIS_URL")
	}
	if val == "" {
		return nil, errors.New("REDIS_ADDR (or REDIS_URL) environment variable is not set")
	}

	var client *redis.Client
	if strings.HasPrefix(val, "redis://") || strings.HasPrefix(val, "rediss://") {
		opt, err := redis.ParseURL(val)
		if err != nil {
			return nil, err
		}
		client = redis.NewClient(opt)
	} else {
		client = redis.NewClient(&redis.Options{Addr: val})
	}

	if _, err := client.Ping(context.Background()).Result(); err != nil {
		return nil, err
	}
	return client, nil
}
