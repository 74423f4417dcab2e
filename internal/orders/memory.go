package orders

import (
	"context"
	"sync"
	"time"
)

// MemoryLedger keeps orders in a map. Used by STORE_BACKEND=memory and tests.
type MemoryLedger struct {
	mu     sync.Mutex
	orders map[string]*Order
	now    func() time.Time
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{orders: map[string]*Order{}, now: time.Now}
}

func (l *MemoryLedger) Create(ctx context.Context, o *Order) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.orders[o.ID]; ok {
		return ErrDuplicateOrderID
	}
	now := l.now().UTC()
	if o.CreatedAt.IsZero() {
		o.CreatedAt = now
	}
	o.UpdatedAt = now
	if o.Status == "" {
		o.Status = StatusPending
	}
	cp := *o
	l.orders[o.ID] = &cp
	return nil
}

func (l *MemoryLedger) Find(ctx context.Context, id string) (*Order, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	o, ok := l.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (l *MemoryLedger) Transition(ctx context.Context, id string, from, to Status) (bool, error) {
	if err := checkTransition(from, to); err != nil {
		return false, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	o, ok := l.orders[id]
	if !ok {
		return false, ErrNotFound
	}
	if o.Status != from {
		return false, nil
	}
	now := l.now().UTC()
	o.Status = to
	o.UpdatedAt = now
	if to == StatusPaid {
		o.PaidAt = &now
	}
	return true, nil
}

func (l *MemoryLedger) AttachItem(ctx context.Context, id string, itemID int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	o, ok := l.orders[id]
	if !ok {
		return ErrNotFound
	}
	o.ItemID = itemID
	o.UpdatedAt = l.now().UTC()
	return nil
}

func (l *MemoryLedger) Stats(ctx context.Context) (Stats, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var st Stats
	buyers := map[int64]struct{}{}
	for _, o := range l.orders {
		buyers[o.BuyerID] = struct{}{}
		if o.Status == StatusPaid {
			st.CompletedOrders++
		}
	}
	st.Buyers = int64(len(buyers))
	return st, nil
}

func (l *MemoryLedger) DailyPaid(ctx context.Context, since time.Time) ([]DayCount, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var paid []time.Time
	for _, o := range l.orders {
		if o.PaidAt != nil {
			paid = append(paid, *o.PaidAt)
		}
	}
	return groupByDay(paid, since), nil
}
