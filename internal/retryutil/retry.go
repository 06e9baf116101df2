package retryutil

import (
	"context"
	"time"
)

// Do calls fn up to attempts times. After a failed call it asks wait how long
// to back off; a false answer returns the error at once. It gives up early
// with ctx's error when ctx finishes during a back-off.
func Do(ctx context.Context, attempts int, wait func(error) (time.Duration, bool), fn func(ctx context.Context) error) error {
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if i == attempts-1 || wait == nil {
			break
		}
		delay, ok := wait(err)
		if !ok {
			break
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return err
}
