package orders

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"
)

var (
	ErrDuplicateOrderID  = errors.New("order id already exists")
	ErrNotFound          = errors.New("order not found")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Ledger is the system of record for orders. Transition is the only way a
// status changes and is a compare-and-swap: for a given (id, from) pair at most
// one caller ever gets true.
//
// Backend failures are wrapped with storage.ErrUnavailable.
type Ledger interface {
	Create(ctx context.Context, o *Order) error
	Find(ctx context.Context, id string) (*Order, error)
	Transition(ctx context.Context, id string, from, to Status) (bool, error)
	AttachItem(ctx context.Context, id string, itemID int64) error
	Stats(ctx context.Context) (Stats, error)
	// DailyPaid groups orders with paid_at >= since by UTC day, oldest first.
	// Days without a paid order are left out.
	DailyPaid(ctx context.Context, since time.Time) ([]DayCount, error)
}

func checkTransition(from, to Status) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}

// groupByDay is shared by backends that fetch paid_at values and count in Go.
func groupByDay(paidAt []time.Time, since time.Time) []DayCount {
	m := map[string]int64{}
	for _, t := range paidAt {
		if t.Before(since) {
			continue
		}
		m[t.UTC().Format(DayLayout)]++
	}
	out := make([]DayCount, 0, len(m))
	for d, n := range m {
		out = append(out, DayCount{Day: d, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day < out[j].Day })
	return out
}
