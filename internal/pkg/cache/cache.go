package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/ManuelReschke/CourseFox/internal/pkg/config"
)

// ErrUnavailable is returned by the helpers when SetupCache was never called.
var ErrUnavailable = errors.New("cache not configured")

var (
	client *redis.Client
	ctx    = context.Background()
)

// SetupCache initializes the connection to the redis compatible cache server
func SetupCache(cfg config.CacheConfig) {
	client = redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       0, // use default DB
	})

	// Test the connection
	pong, err := client.Ping(ctx).Result()
	if err != nil {
		log.WithError(err).Warn("Could not connect to cache")
	} else {
		log.Infof("Successfully connected to cache: %s", pong)
	}
}

// GetClient returns the Redis client instance or nil when not configured
func GetClient() *redis.Client {
	return client
}

// SetClient replaces the client, used by tests and alternative wiring.
func SetClient(c *redis.Client) {
	client = c
}

// Set stores a value in the cache with the given key and expiration time
func Set(key string, value interface{}, expiration time.Duration) error {
	if client == nil {
		return ErrUnavailable
	}
	return client.Set(ctx, key, value, expiration).Err()
}

// Get retrieves a value from the cache by key
func Get(key string) (string, error) {
	if client == nil {
		return "", ErrUnavailable
	}
	return client.Get(ctx, key).Result()
}

// SetJSON stores value encoded as JSON.
func SetJSON(key string, value interface{}, expiration time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return Set(key, raw, expiration)
}

// GetJSON decodes the cached JSON value into dst. A miss returns redis.Nil.
func GetJSON(key string, dst interface{}) error {
	raw, err := Get(key)
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(raw), dst)
}

// Delete removes a value from the cache by key
func Delete(key string) error {
	if client == nil {
		return ErrUnavailable
	}
	return client.Del(ctx, key).Err()
}
