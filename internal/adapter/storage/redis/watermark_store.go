package redis

import (
	"context"
	"fmt"
	"strconv"

	goredis "github.com/redis/go-redis/v9"
)

const watermarkKey = "ledger:watermark"

// WatermarkStore implements ports.WatermarkStore on a single Redis key.
// The watermark is an optimization hint for reader restarts, so writes
// are plain SETs with no expiry; a lost or stale value only costs a
// replay from an earlier sequence.
type WatermarkStore struct {
	client *goredis.Client
}

// NewWatermarkStore creates a Redis-backed watermark store.
func NewWatermarkStore(client *goredis.Client) *WatermarkStore {
	return &WatermarkStore{client: client}
}

// Get returns the persisted watermark. The second return is false when
// no watermark has ever been stored.
func (s *WatermarkStore) Get(ctx context.Context) (uint64, bool, error) {
	val, err := s.client.Get(ctx, watermarkKey).Result()
	if err != nil {
		if err == goredis.Nil {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("redis watermark get: %w", err)
	}
	seq, err := strconv.ParseUint(val, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("parse watermark %q: %w", val, err)
	}
	return seq, true, nil
}

// Set persists the watermark.
func (s *WatermarkStore) Set(ctx context.Context, seq uint64) error {
	if err := s.client.Set(ctx, watermarkKey, strconv.FormatUint(seq, 10), 0).Err(); err != nil {
		return fmt.Errorf("redis watermark set: %w", err)
	}
	return nil
}
