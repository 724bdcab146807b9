package application

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
)

// ScheduleCache stores encoded weekly schedules under generation scoped keys.
// Invalidate must make the new generation visible to every later Generation call.
type ScheduleCache interface {
	Generation(ctx context.Context) (int64, error)
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Invalidate(ctx context.Context) error
}

// invalidateSchedules bumps the cache generation after a committed write.
// Failures are logged; the write itself already succeeded.
func invalidateSchedules(ctx context.Context, cache ScheduleCache, logger *slog.Logger) {
	if cache == nil {
		return
	}
	if err := cache.Invalidate(ctx); err != nil {
		logger.WarnContext(ctx, "schedule cache invalidation failed", "error", err)
	}
}

// cachedRead serves key from the cache when present and otherwise loads,
// stores and returns a fresh value. Cache faults fall back to load.
func cachedRead[T any](ctx context.Context, cache ScheduleCache, logger *slog.Logger, key string, load func() (T, error)) (T, error) {
	if cache == nil {
		return load()
	}

	gen, err := cache.Generation(ctx)
	if err != nil {
		logger.WarnContext(ctx, "schedule cache unavailable", "error", err)
		return load()
	}
	scoped := fmt.Sprintf("%d:%s", gen, key)

	if raw, ok, err := cache.Get(ctx, scoped); err != nil {
		logger.WarnContext(ctx, "schedule cache read failed", "key", scoped, "error", err)
	} else if ok {
		var cached T
		if err := json.Unmarshal(raw, &cached); err == nil {
			logger.DebugContext(ctx, "schedule cache hit", "key", scoped)
			return cached, nil
		}
	}

	value, err := load()
	if err != nil {
		return value, err
	}
	if raw, err := json.Marshal(value); err == nil {
		if err := cache.Set(ctx, scoped, raw); err != nil {
			logger.WarnContext(ctx, "schedule cache write failed", "key", scoped, "error", err)
		}
	}
	return value, nil
}
