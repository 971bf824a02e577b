package domain

import (
	"context"
	"time"
)

// Cache is the read-mostly cache shared across concurrent requests. Keys are
// namespaced (the embedding path uses the sector as namespace and the exact
// input text as key). Entries are never invalidated within a process
// lifetime: identical text always embeds identically, so staleness is
// acceptable.
type Cache interface {
	// Get retrieves a value. Returns nil, nil if the key is not present.
	Get(ctx context.Context, namespace string, key string) ([]byte, error)

	// Set stores a value with expiration.
	Set(ctx context.Context, namespace string, key string, value []byte, ttl time.Duration) error

	// Delete removes a value.
	Delete(ctx context.Context, namespace string, key string) error

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// CacheConfig holds configuration for cache initialization.
type CacheConfig struct {
	// Type is the cache type: "memory" or "redis"
	Type string `yaml:"type"`

	// Local LRU cache settings
	LocalMaxSize int           `yaml:"localMaxSize"`
	LocalTTL     time.Duration `yaml:"localTTL"`

	// Redis settings
	RedisAddr     string `yaml:"redisAddr"`
	RedisPassword string `yaml:"redisPassword"`
	RedisDB       int    `yaml:"redisDB"`

	// EnableTwoPhase checks the local LRU first, then Redis.
	EnableTwoPhase bool `yaml:"enableTwoPhase"`
}
