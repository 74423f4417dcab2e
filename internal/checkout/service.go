// Package checkout runs the order/stock protocol: open an order and invoice,
// cancel it, and turn a completed payment into exactly one delivered unit.
//
// The ledger's PENDING -> PAID compare-and-swap is the only idempotency gate.
// A unit is taken from the pool strictly after that swap succeeded, so
// duplicated or concurrent webhooks for one order can never consume two units.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ariefcatur/go-digital-shop/internal/catalog"
	"github.com/ariefcatur/go-digital-shop/internal/inventory"
	"github.com/ariefcatur/go-digital-shop/internal/logging"
	"github.com/ariefcatur/go-digital-shop/internal/metrics"
	"github.com/ariefcatur/go-digital-shop/internal/orders"
	"github.com/ariefcatur/go-digital-shop/internal/storage"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("github.com/ariefcatur/go-digital-shop/internal/checkout")

// finalizeTimeout bounds the work done after an order was claimed as PAID.
// That work ignores caller cancellation.
const finalizeTimeout = 30 * time.Second

// stuckAlertEvery throttles the "paid but not processed" alert per order, so
// retries of one notification page the admin once.
const stuckAlertEvery = 10 * time.Minute

type Service struct {
	Pool     inventory.Pool
	Ledger   orders.Ledger
	Gateway  Gateway
	Notifier Notifier
	Catalog  *catalog.Catalog
	Events   EventPublisher
	AdminID  int64
	// VerifyPayments: cek ulang status ke gateway sebelum webhook "completed" diproses.
	VerifyPayments bool
	Log            *zap.Logger
	NewOrderID     func() string
	Now            func() time.Time

	alertMu sync.Mutex
	alerted map[string]time.Time
}

type Checkout struct {
	Order   *orders.Order
	Invoice *Invoice
}

type CancelResult struct {
	Order *orders.Order
	// Cancelled=false: order sudah tidak PENDING lagi (mis. sudah dibayar).
	Cancelled bool
}

type StatusReport struct {
	Order *orders.Order
	// GatewayStatus is only filled for PENDING orders; empty if the gateway did not answer.
	GatewayStatus string
}

type GroupStock struct {
	ID        string
	Price     int64
	Available int
}

type Overview struct {
	Groups []GroupStock
	Stats  orders.Stats
}

type Outcome string

const (
	OutcomeIgnored        Outcome = "ignored"
	OutcomeUnknownOrder   Outcome = "unknown_order"
	OutcomeAmountMismatch Outcome = "amount_mismatch"
	OutcomeDuplicate      Outcome = "duplicate"
	OutcomeDelivered      Outcome = "delivered"
	OutcomeNoStock        Outcome = "no_stock"
	OutcomeFailed         Outcome = "failed"
)

// DefaultOrderID: TX<unix ms>-<8 hex>.
func DefaultOrderID() string {
	return fmt.Sprintf("TX%d-%s", time.Now().UnixMilli(), strings.ToUpper(uuid.NewString()[:8]))
}

// StartCheckout opens a PENDING order for one unit of groupID and asks the
// gateway for an invoice. No order is created when the group is empty.
// If the gateway fails the order stays PENDING and the error wraps ErrAdapter.
func (s *Service) StartCheckout(ctx context.Context, buyerID int64, groupID string) (co *Checkout, err error) {
	ctx, span := tracer.Start(ctx, "checkout.StartCheckout", trace.WithAttributes(
		attribute.Int64("buyer.id", buyerID),
		attribute.String("group.id", groupID),
	))
	start := time.Now()
	defer func() { s.finish(span, "start_checkout", outcomeOf(err, "created"), start, err) }()
	log := s.logger(ctx).With(zap.Int64("buyer_id", buyerID), zap.String("group_id", groupID))

	price, ok := s.Catalog.Price(groupID)
	if !ok {
		return nil, ErrUnknownGroup
	}
	n, err := s.Pool.Count(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		log.Info("checkout_out_of_stock")
		return nil, ErrOutOfStock
	}

	o, err := s.createOrder(ctx, buyerID, groupID, price)
	if err != nil {
		return nil, err
	}
	log = log.With(zap.String("order_id", o.ID))
	span.SetAttributes(attribute.String("order.id", o.ID))
	log.Info("order_created", zap.Int64("amount", o.Amount))
	s.publish(ctx, orders.EventOrderCreated, o.ID, orders.OrderCreatedPayload{
		OrderID: o.ID, BuyerID: o.BuyerID, GroupID: o.GroupID, Amount: o.Amount,
	})

	inv, err := s.Gateway.CreateInvoice(ctx, o.ID, o.Amount)
	if err != nil {
		// order tetap PENDING; tidak ada stok yang tersentuh
		log.Error("invoice_create_failed", zap.Error(err))
		if !errors.Is(err, ErrAdapter) {
			err = fmt.Errorf("%w: %w", ErrAdapter, err)
		}
		return &Checkout{Order: o}, fmt.Errorf("invoice for order %s: %w", o.ID, err)
	}
	log.Info("checkout_started", zap.Int64("total", inv.Total))
	s.notifyAdmin(ctx, adminNewOrder(o))
	return &Checkout{Order: o, Invoice: inv}, nil
}

func (s *Service) createOrder(ctx context.Context, buyerID int64, groupID string, price int64) (*orders.Order, error) {
	var err error
	// satu kali retry kalau id kebetulan bentrok
	for attempt := 0; attempt < 2; attempt++ {
		o := &orders.Order{
			ID:      s.newOrderID(),
			BuyerID: buyerID,
			GroupID: groupID,
			Amount:  price,
			Status:  orders.StatusPending,
		}
		if err = s.Ledger.Create(ctx, o); err == nil {
			return o, nil
		}
		if !errors.Is(err, orders.ErrDuplicateOrderID) {
			return nil, err
		}
	}
	return nil, err
}

// CancelCheckout moves a PENDING order to CANCELLED. Only the buyer (or the
// admin) may cancel. An order that already left PENDING is reported with
// Cancelled=false and is not touched.
func (s *Service) CancelCheckout(ctx context.Context, orderID string, requesterID int64) (res *CancelResult, err error) {
	ctx, span := tracer.Start(ctx, "checkout.CancelCheckout", trace.WithAttributes(attribute.String("order.id", orderID)))
	start := time.Now()
	defer func() {
		outcome := "cancelled"
		if res != nil && !res.Cancelled {
			outcome = "already_final"
		}
		s.finish(span, "cancel_checkout", outcomeOf(err, outcome), start, err)
	}()
	log := s.logger(ctx).With(zap.String("order_id", orderID), zap.Int64("requester_id", requesterID))

	o, err := s.Ledger.Find(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !s.mayAccess(o, requesterID) {
		log.Warn("cancel_not_owner")
		return nil, ErrNotOwner
	}

	ok, err := s.Ledger.Transition(ctx, o.ID, orders.StatusPending, orders.StatusCancelled)
	if err != nil {
		return nil, err
	}
	if !ok {
		if cur, ferr := s.Ledger.Find(ctx, o.ID); ferr == nil {
			o = cur
		}
		log.Info("cancel_refused", zap.String("status", string(o.Status)))
		return &CancelResult{Order: o, Cancelled: false}, nil
	}
	o.Status = orders.StatusCancelled
	log.Info("order_cancelled")

	// void di gateway cuma best effort
	if err := s.Gateway.Cancel(ctx, o.ID, o.Amount); err != nil {
		log.Warn("gateway_cancel_failed", zap.Error(err))
	}
	s.publish(ctx, orders.EventOrderCancelled, o.ID, orders.OrderCancelledPayload{OrderID: o.ID, CancelledBy: requesterID})
	return &CancelResult{Order: o, Cancelled: true}, nil
}

// HandlePaymentNotification processes one gateway webhook. It is safe to call
// any number of times, concurrently, for the same notification.
func (s *Service) HandlePaymentNotification(ctx context.Context, n Notification) (out Outcome, err error) {
	ctx, span := tracer.Start(ctx, "checkout.HandlePaymentNotification", trace.WithAttributes(
		attribute.String("order.id", n.OrderID),
		attribute.String("payment.status", n.Status),
	))
	start := time.Now()
	defer func() {
		span.SetAttributes(attribute.String("payment.outcome", string(out)))
		s.finish(span, "payment_notification", string(out), start, err)
	}()
	log := s.logger(ctx).With(zap.String("order_id", n.OrderID), zap.String("status", n.Status), zap.Int64("amount", n.Amount))

	if !strings.EqualFold(n.Status, StatusCompleted) {
		log.Info("payment_ignored")
		return OutcomeIgnored, nil
	}

	o, err := s.Ledger.Find(ctx, n.OrderID)
	if errors.Is(err, orders.ErrNotFound) {
		log.Warn("payment_unknown_order")
		return OutcomeUnknownOrder, nil
	}
	if err != nil {
		s.alertStuckPayment(ctx, n, nil, err)
		return OutcomeFailed, err
	}

	if n.Amount != o.Amount {
		log.Warn("payment_amount_mismatch", zap.Int64("expected", o.Amount))
		s.notifyAdmin(ctx, adminAmountMismatch(o, n))
		s.publish(ctx, orders.EventPaymentAmountMismatch, o.ID, orders.PaymentAmountMismatchPayload{
			OrderID: o.ID, Expected: o.Amount, Received: n.Amount,
		})
		return OutcomeAmountMismatch, nil
	}

	if s.VerifyPayments && o.Status == orders.StatusPending {
		st, err := s.Gateway.QueryStatus(ctx, o.ID, o.Amount)
		if err != nil {
			err = fmt.Errorf("verify payment %s: %w", o.ID, err)
			s.alertStuckPayment(ctx, n, o, err)
			return OutcomeFailed, err
		}
		if !strings.EqualFold(st, StatusCompleted) {
			log.Warn("payment_not_verified", zap.String("gateway_status", st))
			return OutcomeIgnored, nil
		}
	}

	claimed, err := s.Ledger.Transition(ctx, o.ID, orders.StatusPending, orders.StatusPaid)
	if err != nil {
		s.alertStuckPayment(ctx, n, o, err)
		return OutcomeFailed, err
	}
	if !claimed {
		if o.Status == orders.StatusCancelled {
			// dibayar setelah dibatalkan; uang masuk tapi tidak ada delivery
			log.Warn("payment_for_cancelled_order")
			s.notifyAdmin(ctx, adminPaidAfterCancel(o))
		} else {
			log.Info("payment_duplicate")
		}
		return OutcomeDuplicate, nil
	}
	o.Status = orders.StatusPaid
	log.Info("order_paid")

	// Sudah PAID: sisa langkah harus jalan sampai selesai walau caller batal.
	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalizeTimeout)
	defer cancel()
	return s.deliver(fctx, o, log)
}

func (s *Service) deliver(ctx context.Context, o *orders.Order, log *zap.Logger) (Outcome, error) {
	it, err := s.Pool.TakeOne(ctx, o.GroupID, o.ID)
	if err != nil {
		log.Error("stock_take_failed", zap.Error(err))
		s.markNoStock(ctx, o, log)
		s.notifyBuyer(ctx, o.BuyerID, storeErrorBuyerMessage(o))
		s.notifyAdmin(ctx, adminStoreError(o, err))
		s.publish(ctx, orders.EventOrderNoStock, o.ID, orders.OrderNoStockPayload{OrderID: o.ID, GroupID: o.GroupID, Reason: "STORE_ERROR"})
		return OutcomeFailed, err
	}
	if it == nil {
		log.Warn("stock_empty_after_payment")
		s.markNoStock(ctx, o, log)
		s.notifyBuyer(ctx, o.BuyerID, noStockBuyerMessage(o))
		s.notifyAdmin(ctx, adminNoStock(o))
		s.publish(ctx, orders.EventOrderNoStock, o.ID, orders.OrderNoStockPayload{OrderID: o.ID, GroupID: o.GroupID, Reason: "OUT_OF_STOCK"})
		return OutcomeNoStock, nil
	}

	log = log.With(zap.Int64("item_id", it.ID))
	if err := s.Ledger.AttachItem(ctx, o.ID, it.ID); err != nil {
		log.Warn("attach_item_failed", zap.Error(err))
	}
	o.ItemID = it.ID

	delivered := true
	if err := s.Notifier.SendText(ctx, o.BuyerID, deliveryMessage(o, it)); err != nil {
		// item sudah terpakai; admin kirim manual
		delivered = false
		log.Error("delivery_send_failed", zap.Error(err))
		s.notifyAdmin(ctx, adminDeliveryFailed(o, it, err))
	} else {
		log.Info("order_delivered")
		s.notifyAdmin(ctx, adminSale(o, it))
	}
	s.publish(ctx, orders.EventOrderPaid, o.ID, orders.OrderPaidPayload{
		OrderID: o.ID, GroupID: o.GroupID, ItemID: it.ID, Delivered: delivered,
	})
	return OutcomeDelivered, nil
}

// alertStuckPayment: pembeli sudah bayar tapi order belum bisa diproses
// (store/gateway error). o nil kalau order belum sempat dibaca.
func (s *Service) alertStuckPayment(ctx context.Context, n Notification, o *orders.Order, err error) {
	s.logger(ctx).Error("payment_not_processed", zap.String("order_id", n.OrderID), zap.Error(err))
	if !s.firstAlert(n.OrderID) {
		return
	}
	s.notifyAdmin(ctx, adminPaymentStuck(n, err))
	if o != nil {
		s.notifyBuyer(ctx, o.BuyerID, paymentProcessingBuyerMessage(o))
	}
}

// ReportUnprocessed alerts the admin that a completed payment was given up on
// after all retries. Not throttled.
func (s *Service) ReportUnprocessed(ctx context.Context, n Notification, cause error) {
	s.logger(ctx).Error("payment_given_up", zap.String("order_id", n.OrderID), zap.Error(cause))
	s.notifyAdmin(ctx, adminPaymentGivenUp(n, cause))
}

func (s *Service) firstAlert(orderID string) bool {
	s.alertMu.Lock()
	defer s.alertMu.Unlock()
	now := s.now()
	if s.alerted == nil {
		s.alerted = map[string]time.Time{}
	}
	if last, ok := s.alerted[orderID]; ok && now.Sub(last) < stuckAlertEvery {
		return false
	}
	for id, at := range s.alerted {
		if now.Sub(at) >= stuckAlertEvery {
			delete(s.alerted, id)
		}
	}
	s.alerted[orderID] = now
	return true
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) markNoStock(ctx context.Context, o *orders.Order, log *zap.Logger) {
	ok, err := s.Ledger.Transition(ctx, o.ID, orders.StatusPaid, orders.StatusPaidNoStock)
	if err != nil {
		log.Error("mark_no_stock_failed", zap.Error(err))
		return
	}
	if ok {
		o.Status = orders.StatusPaidNoStock
	}
}

// CheckStatus reports an order to its buyer (or the admin), plus the gateway's
// view while the order is still PENDING.
func (s *Service) CheckStatus(ctx context.Context, orderID string, requesterID int64) (rep *StatusReport, err error) {
	ctx, span := tracer.Start(ctx, "checkout.CheckStatus", trace.WithAttributes(attribute.String("order.id", orderID)))
	start := time.Now()
	defer func() { s.finish(span, "check_status", outcomeOf(err, "ok"), start, err) }()

	o, err := s.Ledger.Find(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !s.mayAccess(o, requesterID) {
		return nil, ErrNotOwner
	}
	rep = &StatusReport{Order: o}
	if o.Status == orders.StatusPending && s.Gateway != nil {
		st, err := s.Gateway.QueryStatus(ctx, o.ID, o.Amount)
		if err != nil {
			s.logger(ctx).Warn("gateway_status_failed", zap.String("order_id", o.ID), zap.Error(err))
		} else {
			rep.GatewayStatus = strings.ToLower(st)
		}
	}
	return rep, nil
}

// Overview lists every catalog group with its live stock count, and the ledger stats.
func (s *Service) Overview(ctx context.Context) (ov *Overview, err error) {
	ctx, span := tracer.Start(ctx, "checkout.Overview")
	start := time.Now()
	defer func() { s.finish(span, "overview", outcomeOf(err, "ok"), start, err) }()

	ov = &Overview{}
	for _, g := range s.Catalog.Groups() {
		n, err := s.Pool.Count(ctx, g.ID)
		if err != nil {
			return nil, err
		}
		metrics.StockAvailable.WithLabelValues(g.ID).Set(float64(n))
		ov.Groups = append(ov.Groups, GroupStock{ID: g.ID, Price: g.Price, Available: n})
	}
	if ov.Stats, err = s.Ledger.Stats(ctx); err != nil {
		return nil, err
	}
	return ov, nil
}

func (s *Service) mayAccess(o *orders.Order, requesterID int64) bool {
	return o.BuyerID == requesterID || (s.AdminID != 0 && requesterID == s.AdminID)
}

func (s *Service) newOrderID() string {
	if s.NewOrderID != nil {
		return s.NewOrderID()
	}
	return DefaultOrderID()
}

func (s *Service) logger(ctx context.Context) *zap.Logger {
	return logging.FromContextOr(ctx, s.Log)
}

func (s *Service) notifyBuyer(ctx context.Context, chatID int64, text string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.SendText(ctx, chatID, text); err != nil {
		s.logger(ctx).Warn("notify_buyer_failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (s *Service) notifyAdmin(ctx context.Context, text string) {
	if s.AdminID == 0 || s.Notifier == nil {
		return
	}
	if err := s.Notifier.SendText(ctx, s.AdminID, text); err != nil {
		s.logger(ctx).Warn("notify_admin_failed", zap.Error(err))
	}
}

func (s *Service) publish(ctx context.Context, eventType, orderID string, payload any) {
	if s.Events == nil {
		return
	}
	if err := s.Events.Publish(ctx, eventType, orderID, payload); err != nil {
		s.logger(ctx).Warn("event_publish_failed", zap.String("event_type", eventType), zap.String("order_id", orderID), zap.Error(err))
	}
}

func (s *Service) finish(span trace.Span, useCase, outcome string, start time.Time, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
	metrics.ObserveUseCase(useCase, outcome, start)
}

func outcomeOf(err error, ok string) string {
	switch {
	case err == nil:
		return ok
	case errors.Is(err, ErrOutOfStock):
		return "out_of_stock"
	case errors.Is(err, ErrUnknownGroup):
		return "unknown_group"
	case errors.Is(err, ErrAdapter):
		return "adapter_error"
	case errors.Is(err, ErrNotOwner):
		return "not_owner"
	case errors.Is(err, ErrNotAdmin):
		return "not_admin"
	case errors.Is(err, ErrEmptyPayload):
		return "invalid"
	case errors.Is(err, orders.ErrNotFound):
		return "not_found"
	case errors.Is(err, storage.ErrUnavailable):
		return "store_unavailable"
	default:
		return "error"
	}
}
