package ratelimit

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	redisstorage "github.com/gofiber/storage/redis"
	log "github.com/sirupsen/logrus"

	"github.com/ManuelReschke/CourseFox/internal/pkg/config"
)

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"

	// redis database used for limiter counters, the cache uses 0
	redisLimiterDB = 2
)

// NewStorage returns the limiter storage selected by RATE_LIMIT_BACKEND. The
// memory store is returned as well so the scheduler can sweep it; it is nil
// for the redis backend where keys expire server side.
func NewStorage(cfg config.RateLimitConfig, cacheCfg config.CacheConfig) (fiber.Storage, *Store) {
	if strings.EqualFold(cfg.Backend, BackendRedis) {
		port := 6379
		if p, err := strconv.Atoi(cacheCfg.Port); err == nil {
			port = p
		}
		log.Info("Rate limiter uses redis storage")
		return redisstorage.New(redisstorage.Config{
			Host:     cacheCfg.Host,
			Port:     port,
			Password: cacheCfg.Password,
			Database: redisLimiterDB,
			Reset:    false,
		}), nil
	}
	store := NewStore(cfg.MaxKeys)
	return store, store
}

// New builds the per client IP limiter. Paths in exempt (prefix match) are
// never limited.
func New(cfg config.RateLimitConfig, storage fiber.Storage, exempt ...string) fiber.Handler {
	window := cfg.Window
	if window <= 0 {
		window = 15 * time.Minute
	}
	max := cfg.Max
	if max <= 0 {
		max = 300
	}

	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: window,
		Storage:    storage,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		Next: func(c *fiber.Ctx) bool {
			for _, p := range exempt {
				if strings.HasPrefix(c.Path(), p) {
					return true
				}
			}
			return false
		},
		LimitReached: func(c *fiber.Ctx) error {
			log.WithField("ip", c.IP()).Warn("Rate limit exceeded")
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"success": false,
				"message": "Too many requests, please try again later.",
			})
		},
	})
}
