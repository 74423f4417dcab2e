// Package jobs is the bounded worker pool webhook handlers hand their work to,
// so the HTTP response never waits on the store, the gateway or Telegram.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ariefcatur/go-digital-shop/internal/metrics"
	"go.uber.org/zap"
)

var ErrClosed = errors.New("job pool closed")

type Func func(ctx context.Context) error

type job struct {
	name string
	fn   Func
}

type Pool struct {
	workers int
	timeout time.Duration
	log     *zap.Logger

	queue  chan job
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
}

func New(workers, queueSize int, timeout time.Duration, log *zap.Logger) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 1024
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Pool{workers: workers, timeout: timeout, log: log, queue: make(chan job, queueSize)}
}

// Start launches the workers. Every job runs under base with the pool timeout.
func (p *Pool) Start(base context.Context) {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for j := range p.queue {
				p.run(base, j)
			}
		}()
	}
}

// Submit enqueues fn. Blocks while the queue is full until ctx is done.
func (p *Pool) Submit(ctx context.Context, name string, fn Func) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}
	select {
	case p.queue <- job{name: name, fn: fn}:
		return nil
	case <-ctx.Done():
		metrics.Jobs.WithLabelValues(name, "rejected").Inc()
		return fmt.Errorf("enqueue %s: %w", name, ctx.Err())
	}
}

// Stop stops accepting jobs and waits for queued ones to finish.
func (p *Pool) Stop() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()
	p.wg.Wait()
}

func (p *Pool) run(base context.Context, j job) {
	ctx := base
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(base, p.timeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			metrics.Jobs.WithLabelValues(j.name, "panic").Inc()
			p.log.Error("job_panic", zap.String("job", j.name), zap.Any("panic", r))
		}
	}()

	if err := j.fn(ctx); err != nil {
		metrics.Jobs.WithLabelValues(j.name, "error").Inc()
		p.log.Error("job_failed", zap.String("job", j.name), zap.Error(err))
		return
	}
	metrics.Jobs.WithLabelValues(j.name, "ok").Inc()
}
