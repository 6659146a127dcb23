package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"PromptTrader/internal/domain/models"
	drepo "PromptTrader/internal/domain/repository"
	"PromptTrader/pkg/cache"
)

// RedisCursor persists the executor's last-checked watermark so a restarted
// poller resumes where it left off instead of re-scanning from process
// start. The order store's conflict rule covers the overlap either way;
// the cursor just keeps the overlap small.
type RedisCursor struct {
	cache cache.Service
	key   string
}

// NewRedisCursor creates a cursor stored under the given key.
func NewRedisCursor(c cache.Service, key string) drepo.Cursor {
	return &RedisCursor{cache: c, key: key}
}

// Load returns the persisted watermark. ok is false when none exists yet.
func (c *RedisCursor) Load(ctx context.Context) (time.Time, bool, error) {
	var raw string
	err := c.cache.Get(ctx, c.key, &raw)
	if errors.Is(err, cache.ErrCacheMiss) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("%w: cursor load: %v", models.ErrStoreUnavailable, err)
	}

	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("%w: cursor parse: %v", models.ErrStoreUnavailable, err)
	}
	return t, true, nil
}

// Store persists the watermark. No TTL: the cursor outlives restarts.
func (c *RedisCursor) Store(ctx context.Context, t time.Time) error {
	if err := c.cache.Set(ctx, c.key, t.Format(time.RFC3339Nano), 0); err != nil {
		return fmt.Errorf("%w: cursor store: %v", models.ErrStoreUnavailable, err)
	}
	return nil
}
