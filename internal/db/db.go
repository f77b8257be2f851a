// Package db defines the key-value store behind the query embedding cache.
package db

import (
	"context"
	"time"
)

// Store is the cache store facade used by main.
type Store interface {
	Ping(ctx context.Context) error
	Get(ctx context.Context, key string) ([]byte, error)
	// Put stores value under key. ttl <= 0 keeps the key until evicted.
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
	WaitForReady(ctx context.Context, timeout time.Duration) error
	Close()
}
