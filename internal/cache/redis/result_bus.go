package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"polyarb/internal/domain"
)

// defaultStreamMaxLen bounds the scan stream via XADD MAXLEN ~ trimming.
const defaultStreamMaxLen int64 = 10000

// ResultBus implements domain.ResultBus by fanning each scan result out to a
// Redis stream (durable, trimmed) and a Pub/Sub channel (live consumers).
type ResultBus struct {
	rdb     *redis.Client
	stream  string
	channel string
	maxLen  int64
}

// NewResultBus creates a ResultBus publishing to the given stream. The live
// Pub/Sub channel is the stream name with a ":live" suffix.
func NewResultBus(c *Client, stream string, maxLen int64) *ResultBus {
	if maxLen <= 0 {
		maxLen = defaultStreamMaxLen
	}
	return &ResultBus{
		rdb:     c.Underlying(),
		stream:  stream,
		channel: stream + ":live",
		maxLen:  maxLen,
	}
}

// Publish appends the result to the stream and mirrors it on the live
// channel.
func (b *ResultBus) Publish(ctx context.Context, result *domain.ScanResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("redis: marshal scan result: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: b.stream,
		MaxLen: b.maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"payload": payload,
		},
	}
	if err := b.rdb.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("redis: stream append %s: %w", b.stream, err)
	}

	if err := b.rdb.Publish(ctx, b.channel, payload).Err(); err != nil {
		return fmt.Errorf("redis: publish %s: %w", b.channel, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.ResultBus = (*ResultBus)(nil)
