package inventory

import (
	"context"
	"sync"
	"time"
)

type MemoryPool struct {
	mu        sync.Mutex
	nextID    int64
	available map[string][]*Item
	consumed  map[int64]*Item
}

func NewMemoryPool() *MemoryPool {
	return &MemoryPool{available: map[string][]*Item{}, consumed: map[int64]*Item{}}
}

func (p *MemoryPool) Count(ctx context.Context, groupID string) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.available[groupID]), nil
}

func (p *MemoryPool) TakeOne(ctx context.Context, groupID, orderID string) (*Item, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	q := p.available[groupID]
	if len(q) == 0 {
		return nil, nil
	}
	it := q[0]
	q[0] = nil
	p.available[groupID] = q[1:]

	now := time.Now().UTC()
	it.ConsumedBy = orderID
	it.ConsumedAt = &now
	p.consumed[it.ID] = it
	cp := *it
	return &cp, nil
}

func (p *MemoryPool) Add(ctx context.Context, groupID string, payload Payload) (*Item, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextID++
	it := &Item{
		ID:        p.nextID,
		GroupID:   groupID,
		Payload:   append(Payload(nil), payload...),
		CreatedAt: time.Now().UTC(),
	}
	p.available[groupID] = append(p.available[groupID], it)
	cp := *it
	return &cp, nil
}

// Consumed returns the unit handed out under the given id, if any.
func (p *MemoryPool) Consumed(id int64) (*Item, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	it, ok := p.consumed[id]
	if !ok {
		return nil, false
	}
	cp := *it
	return &cp, true
}
