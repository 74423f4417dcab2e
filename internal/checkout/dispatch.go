package checkout

import (
	"context"
	"time"

	"github.com/ariefcatur/go-digital-shop/internal/jobs"
)

const (
	defaultInlineAttempts = 4
	defaultInlineBackoff  = 500 * time.Millisecond
)

// InlineDispatcher processes notifications on the in-process job pool.
// The gateway already got its 200, so failures are retried here and the
// admin is told when the last attempt fails.
type InlineDispatcher struct {
	Service  *Service
	Jobs     *jobs.Pool
	Attempts int
	Backoff  time.Duration
}

func (d *InlineDispatcher) Dispatch(ctx context.Context, n Notification) error {
	return d.Jobs.Submit(ctx, "payment_notification", func(ctx context.Context) error {
		err := jobs.Retry(ctx, d.attempts(), d.backoff(), func(ctx context.Context) error {
			_, err := d.Service.HandlePaymentNotification(ctx, n)
			return err
		})
		if err != nil {
			rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
			defer cancel()
			d.Service.ReportUnprocessed(rctx, n, err)
		}
		return err
	})
}

func (d *InlineDispatcher) attempts() int {
	if d.Attempts > 0 {
		return d.Attempts
	}
	return defaultInlineAttempts
}

func (d *InlineDispatcher) backoff() time.Duration {
	if d.Backoff > 0 {
		return d.Backoff
	}
	return defaultInlineBackoff
}
