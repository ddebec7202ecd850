package cache

import (
	"context"
	"time"
)

// Dashboard keys invalidated on every financial mutation
const (
	KeyDashboardStatistics = "dashboard:statistics"
	KeyDashboardOverview   = "dashboard:overview:*"
)

// Cache stores JSON-encoded values with a TTL. SetNX is the primitive the
// idempotency middleware uses to admit a request key exactly once.
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	DeletePattern(ctx context.Context, pattern string) error
	SetNX(ctx context.Context, key string, ttl time.Duration) (bool, error)
}
