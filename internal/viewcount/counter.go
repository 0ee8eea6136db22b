// Package viewcount debounces post view counting so repeat views from the
// same viewer inside a short window don't inflate the counter.
package viewcount

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "view:"

// Counter tracks recently counted (post, viewer) pairs in Redis via SetNX
// with a TTL. A nil Counter, or Redis being unreachable, degrades open:
// every view counts and reads are never blocked.
type Counter struct {
	client *redis.Client
	window time.Duration
}

// NewCounter connects to Redis and returns a Counter with the given
// debounce window
func NewCounter(redisURL string, window time.Duration) (*Counter, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &Counter{client: client, window: window}, nil
}

// NewCounterWithClient creates a Counter from an existing Redis client
func NewCounterWithClient(client *redis.Client, window time.Duration) *Counter {
	return &Counter{client: client, window: window}
}

func (c *Counter) key(slug, viewer string) string {
	return keyPrefix + slug + ":" + viewer
}

// ShouldCount reports whether this view of slug by viewer should increment
// the counter. The first view inside the window claims the key; later ones
// inside the window do not count.
func (c *Counter) ShouldCount(ctx context.Context, slug, viewer string) bool {
	if c == nil || c.client == nil {
		return true
	}

	claimed, err := c.client.SetNX(ctx, c.key(slug, viewer), 1, c.window).Result()
	if err != nil {
		log.Printf("view debounce unavailable, counting view: %v", err)
		return true
	}
	return claimed
}

// Ping checks if Redis is reachable
func (c *Counter) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (c *Counter) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}
