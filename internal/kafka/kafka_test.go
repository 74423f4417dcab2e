package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ariefcatur/go-digital-shop/internal/checkout"
	"github.com/ariefcatur/go-digital-shop/internal/orders"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captured struct {
	key     []byte
	value   []byte
	headers []kafka.Header
}

type fakePublisher struct {
	msgs []captured
	err  error
}

func (f *fakePublisher) Publish(_ context.Context, key, value []byte, headers ...kafka.Header) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, captured{key: key, value: value, headers: headers})
	return nil
}

type fakeProcessor struct {
	got      []checkout.Notification
	err      error
	reported []error
}

func (f *fakeProcessor) ReportUnprocessed(_ context.Context, _ checkout.Notification, cause error) {
	f.reported = append(f.reported, cause)
}

func (f *fakeProcessor) HandlePaymentNotification(_ context.Context, n checkout.Notification) (checkout.Outcome, error) {
	f.got = append(f.got, n)
	if f.err != nil {
		return checkout.OutcomeFailed, f.err
	}
	return checkout.OutcomeDelivered, nil
}

func TestEventPublisherEnvelope(t *testing.T) {
	pub := &fakePublisher{}
	ep := &EventPublisher{P: pub, Service: "digital-shop"}

	require.NoError(t, ep.Publish(context.Background(), orders.EventOrderPaid, "O1",
		orders.OrderPaidPayload{OrderID: "O1", GroupID: "A", ItemID: 3, Delivered: true}))
	require.Len(t, pub.msgs, 1)
	m := pub.msgs[0]
	assert.Equal(t, []byte("O1"), m.key)
	assert.Equal(t, "x-event-type", m.headers[0].Key)
	assert.Equal(t, orders.EventOrderPaid, string(m.headers[0].Value))

	env, err := DecodeEnvelope(m.value)
	require.NoError(t, err)
	assert.Equal(t, orders.EventOrderPaid, env.EventType)
	assert.Equal(t, "O1", env.CorrelationID)
	assert.Equal(t, "digital-shop", env.Producer)
	assert.NotEmpty(t, env.EventID)
	p, err := UnwrapPayload[orders.OrderPaidPayload](env.Payload)
	require.NoError(t, err)
	assert.Equal(t, int64(3), p.ItemID)
	assert.True(t, p.Delivered)
}

func TestNotificationRoundTrip(t *testing.T) {
	pub := &fakePublisher{}
	d := &NotificationPublisher{P: pub, Service: "api"}
	n := checkout.Notification{
		OrderID: "O1", Amount: 9000, Status: "completed", Method: "qris",
		CompletedAt: time.Date(2024, 9, 10, 1, 7, 2, 0, time.UTC),
	}
	require.NoError(t, d.Dispatch(context.Background(), n))
	require.Len(t, pub.msgs, 1)

	proc := &fakeProcessor{}
	h := &PaymentHandler{Service: proc}
	require.NoError(t, h.Handle(context.Background(), kafka.Message{Value: pub.msgs[0].value}))
	require.Len(t, proc.got, 1)
	assert.Equal(t, n.OrderID, proc.got[0].OrderID)
	assert.Equal(t, n.Amount, proc.got[0].Amount)
	assert.Equal(t, n.Status, proc.got[0].Status)
	assert.True(t, n.CompletedAt.Equal(proc.got[0].CompletedAt))
}

func TestPaymentHandlerSkipsAndRetries(t *testing.T) {
	proc := &fakeProcessor{}
	h := &PaymentHandler{Service: proc}

	// pesan rusak & event lain: commit tanpa proses
	assert.NoError(t, h.Handle(context.Background(), kafka.Message{Value: []byte("garbage")}))
	assert.NoError(t, h.Handle(context.Background(), kafka.Message{Value: []byte(`{"payload":{}}`)}))
	other, err := Marshal(orders.Envelope{EventType: orders.EventOrderPaid, Payload: []byte(`{}`)})
	require.NoError(t, err)
	assert.NoError(t, h.Handle(context.Background(), kafka.Message{Value: other}))
	assert.Empty(t, proc.got)

	// error dari service diteruskan supaya consumer retry
	pub := &fakePublisher{}
	d := &NotificationPublisher{P: pub}
	require.NoError(t, d.Dispatch(context.Background(), checkout.Notification{OrderID: "O1", Amount: 1, Status: "completed"}))
	proc.err = errors.New("store down")
	assert.Error(t, h.Handle(context.Background(), kafka.Message{Value: pub.msgs[0].value}))
}

func TestPaymentHandlerDeadLetter(t *testing.T) {
	pub := &fakePublisher{}
	require.NoError(t, (&NotificationPublisher{P: pub}).Dispatch(context.Background(),
		checkout.Notification{OrderID: "O1", Amount: 1, Status: "completed"}))
	m := kafka.Message{Topic: "shop.payment.notified", Partition: 2, Offset: 41, Key: pub.msgs[0].key, Value: pub.msgs[0].value}

	dlq := &fakePublisher{err: errors.New("broker down")}
	proc := &fakeProcessor{}
	h := &PaymentHandler{Service: proc, DLQ: dlq}
	cause := errors.New("store down")

	// DLQ gagal: belum boleh commit, admin belum di-alert
	assert.Error(t, h.DeadLetter(context.Background(), m, cause))
	assert.Empty(t, proc.reported)

	dlq.err = nil
	require.NoError(t, h.DeadLetter(context.Background(), m, cause))
	require.Len(t, dlq.msgs, 1)
	assert.Equal(t, m.Value, dlq.msgs[0].value)
	assert.Equal(t, []byte("O1"), dlq.msgs[0].key)
	hdr := map[string]string{}
	for _, h := range dlq.msgs[0].headers {
		hdr[h.Key] = string(h.Value)
	}
	assert.Equal(t, "store down", hdr["x-dead-letter-reason"])
	assert.Equal(t, "2", hdr["x-source-partition"])
	assert.Equal(t, "41", hdr["x-source-offset"])
	assert.Equal(t, []error{cause}, proc.reported)
}

type fakeReader struct {
	msgs chan kafka.Message

	mu      sync.Mutex
	commits []kafka.Message
	closed  bool
}

func newFakeReader(msgs ...kafka.Message) *fakeReader {
	r := &fakeReader{msgs: make(chan kafka.Message, len(msgs))}
	for _, m := range msgs {
		r.msgs <- m
	}
	return r
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	select {
	case m := <-r.msgs:
		return m, nil
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	}
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commits = append(r.commits, msgs...)
	return nil
}

func (r *fakeReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *fakeReader) committed() []kafka.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]kafka.Message(nil), r.commits...)
}

func runConsumer(t *testing.T, c *Consumer, h Handler) (context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx, h) }()
	t.Cleanup(cancel)
	return cancel, done
}

func TestConsumerCommitsInOrderPerPartition(t *testing.T) {
	var msgs []kafka.Message
	for off := int64(0); off < 6; off++ {
		for p := 0; p < 3; p++ {
			msgs = append(msgs, kafka.Message{Partition: p, Offset: off})
		}
	}
	r := newFakeReader(msgs...)
	c := newConsumer(r, 2, nil)
	c.backoff = time.Millisecond

	type pos struct {
		p   int
		off int64
	}
	var mu sync.Mutex
	failed := map[pos]bool{}
	cancel, done := runConsumer(t, c, func(_ context.Context, m kafka.Message) error {
		mu.Lock()
		defer mu.Unlock()
		// offset genap gagal sekali dulu
		k := pos{m.Partition, m.Offset}
		if m.Offset%2 == 0 && !failed[k] {
			failed[k] = true
			return errors.New("transient")
		}
		return nil
	})

	require.Eventually(t, func() bool { return len(r.committed()) == len(msgs) }, 2*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	last := map[int]int64{0: -1, 1: -1, 2: -1}
	for _, m := range r.committed() {
		assert.Equal(t, last[m.Partition]+1, m.Offset, "partition %d", m.Partition)
		last[m.Partition] = m.Offset
	}
	r.mu.Lock()
	assert.True(t, r.closed)
	r.mu.Unlock()
}

func TestConsumerDeadLettersAfterAttempts(t *testing.T) {
	r := newFakeReader(kafka.Message{Partition: 0, Offset: 7})
	var mu sync.Mutex
	calls, dlCalls := 0, 0
	c := newConsumer(r, 1, nil).WithDeadLetter(func(_ context.Context, m kafka.Message, cause error) error {
		mu.Lock()
		defer mu.Unlock()
		dlCalls++
		if dlCalls == 1 {
			return errors.New("dlq down")
		}
		assert.Equal(t, int64(7), m.Offset)
		assert.EqualError(t, cause, "store down")
		return nil
	})
	c.attempts = 3
	c.backoff = time.Millisecond

	cancel, done := runConsumer(t, c, func(context.Context, kafka.Message) error {
		mu.Lock()
		defer mu.Unlock()
		calls++
		return errors.New("store down")
	})

	require.Eventually(t, func() bool { return len(r.committed()) == 1 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 3, calls)
	assert.Equal(t, 2, dlCalls)
}

func TestConsumerNoCommitOnShutdown(t *testing.T) {
	r := newFakeReader(kafka.Message{Partition: 0, Offset: 0}, kafka.Message{Partition: 0, Offset: 1})
	c := newConsumer(r, 1, nil)
	started := make(chan struct{}, 2)
	cancel, done := runConsumer(t, c, func(ctx context.Context, _ kafka.Message) error {
		started <- struct{}{}
		<-ctx.Done()
		return ctx.Err()
	})

	<-started
	cancel()
	require.NoError(t, <-done)
	assert.Empty(t, r.committed())
}
