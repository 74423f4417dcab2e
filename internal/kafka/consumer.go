package kafka

import (
	"context"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
	"sync"
	"time"
)

// Handler harus return nil hanya jika proses sukses & boleh commit offset.
type Handler func(ctx context.Context, m kafka.Message) error

// DeadLetter parks a message the handler kept failing on. The offset is
// committed only after it returns nil.
type DeadLetter func(ctx context.Context, m kafka.Message, cause error) error

type reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

const maxDeadLetterBackoff = 30 * time.Second

type Consumer struct {
	r          reader
	workers    int
	attempts   int
	backoff    time.Duration
	deadLetter DeadLetter
	log        *zap.Logger
}

func NewConsumer(brokers []string, group, topic string, workers int, log *zap.Logger) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		GroupID:        group,
		Topic:          topic,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0, // manual commit
	})
	if log == nil {
		log = zap.NewNop()
	}
	return newConsumer(r, workers, log.With(zap.String("topic", topic), zap.String("group", group)))
}

func newConsumer(r reader, workers int, log *zap.Logger) *Consumer {
	if workers <= 0 {
		workers = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Consumer{r: r, workers: workers, attempts: 8, backoff: 500 * time.Millisecond, log: log}
}

// WithDeadLetter sets where messages go after the last failed attempt.
// Without one they are logged and committed.
func (c *Consumer) WithDeadLetter(dl DeadLetter) *Consumer {
	c.deadLetter = dl
	return c
}

// Start blocks until ctx is done or the reader fails. Tiap partisi selalu
// jatuh ke lane yang sama, jadi commit per partisi tetap urut.
func (c *Consumer) Start(ctx context.Context, h Handler) error {
	defer c.r.Close()

	lanes := make([]chan kafka.Message, c.workers)
	var wg sync.WaitGroup
	for i := range lanes {
		lanes[i] = make(chan kafka.Message, 4)
		wg.Add(1)
		go func(lane <-chan kafka.Message) {
			defer wg.Done()
			for m := range lane {
				// setelah shutdown jangan commit apa pun lagi, offset sebelumnya belum tentu selesai
				if ctx.Err() != nil {
					continue
				}
				c.process(ctx, h, m)
			}
		}(lanes[i])
	}
	defer wg.Wait()
	defer func() {
		for _, l := range lanes {
			close(l)
		}
	}()

	for {
		m, err := c.r.FetchMessage(ctx)
		if err != nil {
			// kecilkan noise saat shutdown
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		select {
		case lanes[m.Partition%c.workers] <- m:
		case <-ctx.Done():
			return nil
		}
	}
}

func (c *Consumer) process(ctx context.Context, h Handler, m kafka.Message) {
	log := c.log.With(zap.Int("partition", m.Partition), zap.Int64("offset", m.Offset))
	for attempt := 1; ; attempt++ {
		err := h(ctx, m)
		if err == nil {
			break
		}
		if ctx.Err() != nil {
			return // tidak di-commit, akan dibaca ulang setelah restart
		}
		if attempt >= c.attempts {
			if !c.park(ctx, log, m, err) {
				return
			}
			break
		}
		log.Warn("kafka_handler_retry", zap.Int("attempt", attempt), zap.Error(err))
		if !sleep(ctx, c.backoff*time.Duration(attempt)) {
			return
		}
	}
	if err := c.r.CommitMessages(ctx, m); err != nil && ctx.Err() == nil {
		log.Error("kafka_commit_failed", zap.Error(err))
	}
}

// park hands m to the dead letter until it succeeds. false means ctx ended first.
func (c *Consumer) park(ctx context.Context, log *zap.Logger, m kafka.Message, cause error) bool {
	if c.deadLetter == nil {
		log.Error("kafka_message_dropped", zap.Int("attempts", c.attempts), zap.Error(cause))
		return true
	}
	for try := 1; ; try++ {
		err := c.deadLetter(ctx, m, cause)
		if err == nil {
			log.Error("kafka_message_dead_lettered", zap.Int("attempts", c.attempts), zap.Error(cause))
			return true
		}
		if ctx.Err() != nil {
			return false
		}
		log.Error("kafka_dead_letter_failed", zap.Int("try", try), zap.Error(err))
		if !sleep(ctx, min(c.backoff*time.Duration(try), maxDeadLetterBackoff)) {
			return false
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
