package httpx

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"github.com/ariefcatur/go-digital-shop/internal/checkout"
	"github.com/ariefcatur/go-digital-shop/internal/logging"
	"github.com/go-chi/chi/v5"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
	"io"
	"net/http"
	"time"
)

const maxBody = 1 << 20

// UpdateSink menerima update Telegram untuk diproses di background.
type UpdateSink interface {
	Enqueue(ctx context.Context, u tgbotapi.Update) error
}

// WebhookHandler serves both inbound webhooks. Neither waits on the store,
// the gateway or Telegram; work is handed to Updates / Payments.
type WebhookHandler struct {
	TelegramSecret string
	PakasirSecret  string
	Updates        UpdateSink
	Payments       checkout.Dispatcher
	ParsePayment   func(body []byte) (checkout.Notification, error)
	// EnqueueTimeout batasi berapa lama request boleh menunggu queue penuh.
	EnqueueTimeout time.Duration
}

var okBody = map[string]bool{"ok": true}

func (h *WebhookHandler) Register(r chi.Router) {
	r.Post("/telegram/webhook/{secret}", h.telegram)
	r.Post("/pakasir/webhook/{secret}", h.pakasir)
}

func (h *WebhookHandler) telegram(w http.ResponseWriter, r *http.Request) {
	if !secretOK(chi.URLParam(r, "secret"), h.TelegramSecret) {
		http.NotFound(w, r)
		return
	}
	log := logging.FromContext(r.Context())

	var u tgbotapi.Update
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBody)).Decode(&u); err != nil {
		// Telegram akan kirim ulang terus kalau bukan 200
		log.Warn("telegram_update_malformed", zap.Error(err))
		writeJSON(w, http.StatusOK, okBody)
		return
	}

	ctx, cancel := h.enqueueCtx(r.Context())
	defer cancel()
	if err := h.Updates.Enqueue(ctx, u); err != nil {
		log.Error("telegram_update_enqueue_failed", zap.Int("update_id", u.UpdateID), zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"ok": false})
		return
	}
	writeJSON(w, http.StatusOK, okBody)
}

func (h *WebhookHandler) pakasir(w http.ResponseWriter, r *http.Request) {
	if !secretOK(chi.URLParam(r, "secret"), h.PakasirSecret) {
		http.NotFound(w, r)
		return
	}
	log := logging.FromContext(r.Context())

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err != nil {
		log.Warn("payment_webhook_read_failed", zap.Error(err))
		writeJSON(w, http.StatusOK, okBody)
		return
	}
	n, err := h.ParsePayment(body)
	if err != nil {
		log.Warn("payment_webhook_rejected", zap.Error(err), zap.ByteString("body", truncate(body)))
		writeJSON(w, http.StatusOK, okBody)
		return
	}

	ctx, cancel := h.enqueueCtx(r.Context())
	defer cancel()
	if err := h.Payments.Dispatch(ctx, n); err != nil {
		// belum tercatat di mana pun: minta gateway kirim ulang
		log.Error("payment_dispatch_failed", zap.String("order_id", n.OrderID), zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"ok": false})
		return
	}
	log.Info("payment_webhook_accepted", zap.String("order_id", n.OrderID), zap.String("status", n.Status))
	writeJSON(w, http.StatusOK, okBody)
}

func (h *WebhookHandler) enqueueCtx(parent context.Context) (context.Context, context.CancelFunc) {
	d := h.EnqueueTimeout
	if d <= 0 {
		d = 2 * time.Second
	}
	return context.WithTimeout(parent, d)
}

func secretOK(got, want string) bool {
	return want != "" && subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

func truncate(b []byte) []byte {
	if len(b) > 512 {
		return b[:512]
	}
	return b
}
