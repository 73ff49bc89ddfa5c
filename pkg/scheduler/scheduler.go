package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// DefaultInterval is the refresh period used when none is configured.
const DefaultInterval = 30 * time.Second

const (
	maxRetries = 2
	backoff    = 300 * time.Millisecond
)

// Refresher recomputes a view from scratch. It keeps no state between calls.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// RefreshFunc adapts a function to Refresher.
type RefreshFunc func(ctx context.Context) error

func (f RefreshFunc) Refresh(ctx context.Context) error {
	return f(ctx)
}

// Start runs r immediately and then every interval until ctx is cancelled.
// A failed run is retried a few times, then logged and left for the next
// tick; it never stops the loop. Each run is bounded by interval.
func Start(ctx context.Context, r Refresher, interval time.Duration, log *zap.SugaredLogger) error {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		run(ctx, r, interval, log)
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}
	}
}

func run(ctx context.Context, r Refresher, timeout time.Duration, log *zap.SugaredLogger) {
	start := time.Now()
	var err error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		runCtx, cancel := context.WithTimeout(ctx, timeout)
		err = r.Refresh(runCtx)
		cancel()
		if err == nil || ctx.Err() != nil {
			break
		}
		if attempt < maxRetries {
			select {
			case <-ctx.Done():
			case <-time.After(backoff):
			}
		}
	}

	switch {
	case ctx.Err() != nil:
	case err != nil:
		log.Warnw("refresh failed, retrying next interval",
			"error", err,
			"retries", maxRetries,
		)
	default:
		log.Debugw("refresh completed", "duration", time.Since(start))
	}
}
