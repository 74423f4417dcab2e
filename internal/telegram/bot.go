package telegram

import (
	"context"
	"strconv"
	"strings"

	"github.com/ariefcatur/go-digital-shop/internal/checkout"
	"github.com/ariefcatur/go-digital-shop/internal/inventory"
	"github.com/ariefcatur/go-digital-shop/internal/jobs"
	"github.com/ariefcatur/go-digital-shop/internal/logging"
	"github.com/ariefcatur/go-digital-shop/internal/orders"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Shop is what the bot needs from checkout.Service.
type Shop interface {
	StartCheckout(ctx context.Context, buyerID int64, groupID string) (*checkout.Checkout, error)
	CancelCheckout(ctx context.Context, orderID string, requesterID int64) (*checkout.CancelResult, error)
	CheckStatus(ctx context.Context, orderID string, requesterID int64) (*checkout.StatusReport, error)
	Overview(ctx context.Context) (*checkout.Overview, error)

	AddStock(ctx context.Context, requesterID int64, groupID string, p inventory.Payload) (*inventory.Item, error)
	WithdrawStock(ctx context.Context, requesterID int64, groupID string, n int) ([]*inventory.Item, error)
	SalesByDay(ctx context.Context, requesterID int64, days int) ([]orders.DayCount, error)
}

type Deduper interface {
	Claim(ctx context.Context, scope, id string) (bool, error)
}

type Limiter interface {
	Allow(ctx context.Context, chatID int64) (bool, error)
}

// Bot turns Telegram updates into shop use cases. Dedup and Limiter are optional.
// AdminID 0 disables the admin panel.
type Bot struct {
	API       Sender
	Shop      Shop
	Dedup     Deduper
	Limiter   Limiter
	Jobs      *jobs.Pool
	StoreName string
	AdminID   int64
	Log       *zap.Logger
}

// Enqueue hands the update to the job pool so the webhook can answer right away.
func (b *Bot) Enqueue(ctx context.Context, u tgbotapi.Update) error {
	return b.Jobs.Submit(ctx, "telegram_update", func(ctx context.Context) error {
		return b.HandleUpdate(ctx, u)
	})
}

// HandleUpdate processes one update. Telegram redeliveries (same update_id) are dropped.
func (b *Bot) HandleUpdate(ctx context.Context, u tgbotapi.Update) error {
	log := b.logger().With(zap.Int("update_id", u.UpdateID))
	ctx = logging.WithContext(ctx, log)

	if b.Dedup != nil {
		first, err := b.Dedup.Claim(ctx, "telegram", strconv.Itoa(u.UpdateID))
		switch {
		case err != nil:
			log.Warn("update_dedup_unavailable", zap.Error(err))
		case !first:
			log.Debug("update_duplicate")
			return nil
		}
	}

	switch {
	case u.CallbackQuery != nil:
		return b.handleCallback(ctx, u.CallbackQuery)
	case u.Message != nil && u.Message.Chat != nil:
		return b.handleText(ctx, u.Message.Chat.ID, u.Message.Text)
	}
	return nil
}

func (b *Bot) handleText(ctx context.Context, chatID int64, text string) error {
	if b.isAdmin(chatID) {
		if handled, err := b.handleAdminText(ctx, chatID, text); handled {
			return err
		}
	}
	t := strings.ToLower(strings.TrimSpace(text))
	switch {
	case t == "/start":
		return b.sendDashboard(ctx, chatID)
	case strings.Contains(t, "list produk"), strings.Contains(t, "stock"):
		return b.sendStock(ctx, chatID)
	case strings.Contains(t, "informasi"):
		return b.sendHTML(ctx, chatID, textInfo, nil)
	case strings.Contains(t, "cara order"):
		return b.sendHTML(ctx, chatID, textHowTo, nil)
	}
	return b.sendHTML(ctx, chatID, textFallback, nil)
}

func (b *Bot) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) error {
	if _, err := b.API.Request(tgbotapi.NewCallback(q.ID, "")); err != nil {
		logging.FromContext(ctx).Warn("answer_callback_failed", zap.Error(err))
	}
	if q.Message == nil || q.Message.Chat == nil {
		return nil
	}
	chatID := q.Message.Chat.ID
	action, arg, _ := strings.Cut(q.Data, ":")

	switch action {
	case "buy":
		return b.buy(ctx, chatID, arg)
	case "cancel":
		return b.cancel(ctx, chatID, arg, q.Message.MessageID)
	case "check":
		return b.check(ctx, chatID, arg)
	case "adm":
		if !b.isAdmin(chatID) {
			logging.FromContext(ctx).Warn("admin_callback_denied", zap.Int64("chat_id", chatID))
			return nil
		}
		return b.adminCallback(ctx, chatID, arg)
	}
	return nil // noop / data lama
}

func (b *Bot) buy(ctx context.Context, chatID int64, groupID string) error {
	log := logging.FromContext(ctx).With(zap.Int64("chat_id", chatID), zap.String("group_id", groupID))
	if b.Limiter != nil {
		ok, err := b.Limiter.Allow(ctx, chatID)
		if err != nil {
			log.Warn("rate_limit_unavailable", zap.Error(err))
		}
		if !ok {
			log.Info("buy_rate_limited")
			return b.sendHTML(ctx, chatID, textRateLimit, nil)
		}
	}

	co, err := b.Shop.StartCheckout(ctx, chatID, groupID)
	if err != nil {
		log.Warn("buy_failed", zap.Error(err))
		return b.sendHTML(ctx, chatID, apology(err), nil)
	}

	caption := invoiceCaption(co)
	kb := invoiceKeyboard(co)
	png, err := RenderQR(co.Invoice.QRString)
	if err != nil {
		// tanpa gambar, pembeli masih bisa bayar lewat link web
		log.Error("qr_render_failed", zap.String("order_id", co.Order.ID), zap.Error(err))
		return b.sendHTML(ctx, chatID, caption, kb)
	}
	return b.out().SendImage(ctx, chatID, co.Order.ID+".png", png, caption, kb)
}

func (b *Bot) cancel(ctx context.Context, chatID int64, orderID string, invoiceMsgID int) error {
	res, err := b.Shop.CancelCheckout(ctx, orderID, chatID)
	if err != nil {
		return b.sendHTML(ctx, chatID, apology(err), nil)
	}
	if res.Cancelled && invoiceMsgID != 0 {
		// QR lama dihapus supaya tidak discan lagi
		if _, err := b.API.Request(tgbotapi.NewDeleteMessage(chatID, invoiceMsgID)); err != nil {
			logging.FromContext(ctx).Debug("delete_invoice_failed", zap.Error(err))
		}
	}
	return b.sendHTML(ctx, chatID, cancelText(res), nil)
}

func (b *Bot) check(ctx context.Context, chatID int64, orderID string) error {
	rep, err := b.Shop.CheckStatus(ctx, orderID, chatID)
	if err != nil {
		return b.sendHTML(ctx, chatID, apology(err), nil)
	}
	return b.sendHTML(ctx, chatID, statusText(rep), nil)
}

func (b *Bot) sendDashboard(ctx context.Context, chatID int64) error {
	ov, err := b.Shop.Overview(ctx)
	if err != nil {
		logging.FromContext(ctx).Warn("overview_failed", zap.Error(err))
		return b.sendHTML(ctx, chatID, apology(err), nil)
	}
	store := b.StoreName
	if store == "" {
		store = "Digital Store"
	}
	if err := b.sendHTML(ctx, chatID, dashboardText(store, ov.Stats), nil); err != nil {
		return err
	}
	return b.sendHTML(ctx, chatID, "👇 Pilih Menu:", menuKeyboard())
}

func (b *Bot) sendStock(ctx context.Context, chatID int64) error {
	ov, err := b.Shop.Overview(ctx)
	if err != nil {
		logging.FromContext(ctx).Warn("overview_failed", zap.Error(err))
		return b.sendHTML(ctx, chatID, apology(err), nil)
	}
	text, kb := stockMessage(ov)
	return b.sendHTML(ctx, chatID, text, kb)
}

func (b *Bot) sendHTML(ctx context.Context, chatID int64, text string, markup any) error {
	return b.out().SendMarkup(ctx, chatID, text, markup)
}

func (b *Bot) out() *Channel { return &Channel{API: b.API} }

func (b *Bot) isAdmin(chatID int64) bool { return b.AdminID != 0 && chatID == b.AdminID }

func (b *Bot) logger() *zap.Logger {
	if b.Log == nil {
		return zap.NewNop()
	}
	return b.Log
}
