package db

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// readyInterval is the pause between readiness probes.
const readyInterval = 100 * time.Millisecond

// PollReady probes ping right away and then every readyInterval until it
// succeeds or timeout elapses. On timeout the last probe error is reported
// alongside the context error.
func PollReady(ctx context.Context, timeout time.Duration, ping func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var last error
	for attempt := 1; ; attempt++ {
		if last = ping(ctx); last == nil {
			return nil
		}

		t := time.NewTimer(readyInterval)
		select {
		case <-ctx.Done():
			t.Stop()
			return fmt.Errorf("store not ready after %d attempts: %w", attempt, errors.Join(ctx.Err(), last))
		case <-t.C:
		}
	}
}
