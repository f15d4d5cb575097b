package service

import (
	"context"
	"time"
)

// CacheRepository abstracts persistence for cached payloads. The schedule
// generator uses it directly to park evolved proposals between Generate and
// Save without a database round trip.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}
