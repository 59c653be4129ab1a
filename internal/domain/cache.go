package domain

import (
	"context"
	"time"
)

// ResultBus publishes scan results for external consumers.
type ResultBus interface {
	Publish(ctx context.Context, result *ScanResult) error
}

// Cooldown gates repeated notifications for the same key. Allow returns true
// when the key is outside its cooldown window and marks it sent.
type Cooldown interface {
	Allow(ctx context.Context, key string, ttl time.Duration) (bool, error)
}
