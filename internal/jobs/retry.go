package jobs

import (
	"context"
	"time"
)

// Retry runs fn up to attempts times, sleeping backoff*n between tries
// (linear, like the Kafka consumer). Returns nil on the first success,
// otherwise the last error; ctx cancellation stops the waiting.
func Retry(ctx context.Context, attempts int, backoff time.Duration, fn Func) error {
	if attempts <= 0 {
		attempts = 1
	}
	var err error
	for n := 1; ; n++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if n >= attempts || ctx.Err() != nil {
			return err
		}
		t := time.NewTimer(backoff * time.Duration(n))
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return err
		}
	}
}
