package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/ariefcatur/go-digital-shop/internal/inventory"
	"github.com/ariefcatur/go-digital-shop/internal/orders"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// withdrawPrefix marks units the admin pulled out by hand; they are consumed
// like a sale but no order points at them.
const withdrawPrefix = "ADMIN-"

// AddStock puts one unit into groupID. Admin only.
func (s *Service) AddStock(ctx context.Context, requesterID int64, groupID string, p inventory.Payload) (it *inventory.Item, err error) {
	ctx, span := tracer.Start(ctx, "checkout.AddStock", trace.WithAttributes(attribute.String("group.id", groupID)))
	start := time.Now()
	defer func() { s.finish(span, "add_stock", outcomeOf(err, "added"), start, err) }()

	if err := s.requireAdmin(requesterID); err != nil {
		return nil, err
	}
	if _, ok := s.Catalog.Price(groupID); !ok {
		return nil, ErrUnknownGroup
	}
	if len(p.NonEmpty()) == 0 {
		return nil, ErrEmptyPayload
	}
	if it, err = s.Pool.Add(ctx, groupID, p); err != nil {
		return nil, err
	}
	s.logger(ctx).Info("stock_added", zap.String("group_id", groupID), zap.Int64("item_id", it.ID))
	return it, nil
}

// WithdrawStock takes up to n units out of groupID without an order; n <= 0
// empties the group. The taken units are returned so the admin keeps them.
func (s *Service) WithdrawStock(ctx context.Context, requesterID int64, groupID string, n int) (items []*inventory.Item, err error) {
	ctx, span := tracer.Start(ctx, "checkout.WithdrawStock", trace.WithAttributes(
		attribute.String("group.id", groupID), attribute.Int("n", n)))
	start := time.Now()
	defer func() { s.finish(span, "withdraw_stock", outcomeOf(err, "withdrawn"), start, err) }()

	if err := s.requireAdmin(requesterID); err != nil {
		return nil, err
	}
	if _, ok := s.Catalog.Price(groupID); !ok {
		return nil, ErrUnknownGroup
	}
	by := fmt.Sprintf("%s%d", withdrawPrefix, s.now().UnixMilli())
	for n <= 0 || len(items) < n {
		it, err := s.Pool.TakeOne(ctx, groupID, by)
		if err != nil {
			return items, err
		}
		if it == nil {
			break
		}
		items = append(items, it)
	}
	s.logger(ctx).Info("stock_withdrawn", zap.String("group_id", groupID), zap.Int("units", len(items)))
	return items, nil
}

// SalesByDay counts paid orders per UTC day for the last `days` days, oldest
// first. Days without sales are included with Count 0.
func (s *Service) SalesByDay(ctx context.Context, requesterID int64, days int) (out []orders.DayCount, err error) {
	ctx, span := tracer.Start(ctx, "checkout.SalesByDay")
	start := time.Now()
	defer func() { s.finish(span, "sales_by_day", outcomeOf(err, "ok"), start, err) }()

	if err := s.requireAdmin(requesterID); err != nil {
		return nil, err
	}
	if days <= 0 {
		days = 14
	}
	today := s.now().UTC().Truncate(24 * time.Hour)
	since := today.AddDate(0, 0, -(days - 1))
	counts, err := s.Ledger.DailyPaid(ctx, since)
	if err != nil {
		return nil, err
	}
	byDay := make(map[string]int64, len(counts))
	for _, c := range counts {
		byDay[c.Day] = c.Count
	}
	for d := since; !d.After(today); d = d.AddDate(0, 0, 1) {
		key := d.Format(orders.DayLayout)
		out = append(out, orders.DayCount{Day: key, Count: byDay[key]})
	}
	return out, nil
}

func (s *Service) requireAdmin(requesterID int64) error {
	if s.AdminID == 0 || requesterID != s.AdminID {
		return ErrNotAdmin
	}
	return nil
}
