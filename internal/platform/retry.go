package platform

import (
	"context"
	"log/slog"
	"time"
)

type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// RetryPolicy retries transient failures Attempts more times, Delay apart.
type RetryPolicy struct {
	Attempts int
	Delay    time.Duration
}

// Retry runs fn, re-running it while it fails with a transient error and the
// policy has attempts left. Non-transient errors are returned immediately.
func Retry[T any](ctx context.Context, p RetryPolicy, sleep SleepFunc, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	if sleep == nil {
		sleep = Sleep
	}
	var zero T
	for attempt := 0; ; attempt++ {
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		if !IsTransient(err) || attempt >= p.Attempts {
			return zero, err
		}
		slog.Warn("transient platform error, retrying",
			"op", op, "attempt", attempt+1, "max_retries", p.Attempts, "error", err)
		if serr := sleep(ctx, p.Delay); serr != nil {
			return zero, serr
		}
	}
}
