package checkout

import (
	"fmt"
	"html"
	"strings"

	"github.com/ariefcatur/go-digital-shop/internal/inventory"
	"github.com/ariefcatur/go-digital-shop/internal/orders"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// idr groups thousands the Indonesian way (28.000).
var idr = message.NewPrinter(language.Indonesian)

// Rupiah formats 28000 as "Rp28.000".
func Rupiah(n int64) string {
	if n < 0 {
		return "-Rp" + idr.Sprintf("%d", -n)
	}
	return "Rp" + idr.Sprintf("%d", n)
}

func esc(s string) string { return html.EscapeString(s) }

func payloadLines(p inventory.Payload) string {
	var b strings.Builder
	for _, f := range p.NonEmpty() {
		fmt.Fprintf(&b, "%s: <code>%s</code>\n", esc(f.Label), esc(f.Value))
	}
	return b.String()
}

func deliveryMessage(o *orders.Order, it *inventory.Item) string {
	return fmt.Sprintf("✅ <b>Pembayaran berhasil!</b>\n\n"+
		"Order: <code>%s</code>\nProduk: %s\nTotal: %s\n\n"+
		"<b>Detail akun:</b>\n%s\nTerima kasih sudah berbelanja 🙏",
		esc(o.ID), esc(o.GroupID), Rupiah(o.Amount), payloadLines(it.Payload))
}

func noStockBuyerMessage(o *orders.Order) string {
	return fmt.Sprintf("✅ Pembayaran untuk order <code>%s</code> sudah kami terima.\n\n"+
		"⚠️ Stok %s sedang kosong, pesanan kamu akan dikirim manual oleh admin secepatnya.",
		esc(o.ID), esc(o.GroupID))
}

func storeErrorBuyerMessage(o *orders.Order) string {
	return fmt.Sprintf("✅ Pembayaran untuk order <code>%s</code> sudah kami terima.\n\n"+
		"⚠️ Sistem sedang gangguan, admin akan mengirim pesanan kamu secara manual. Mohon maaf atas ketidaknyamanannya.",
		esc(o.ID))
}

func adminNewOrder(o *orders.Order) string {
	return fmt.Sprintf("🆕 <b>Order baru</b>\nOrder: <code>%s</code>\nBuyer: <code>%d</code>\nProduk: %s\nHarga: %s",
		esc(o.ID), o.BuyerID, esc(o.GroupID), Rupiah(o.Amount))
}

func adminSale(o *orders.Order, it *inventory.Item) string {
	return fmt.Sprintf("💰 <b>Order sukses</b>\nOrder: <code>%s</code>\nBuyer: <code>%d</code>\nProduk: %s\nHarga: %s\nItem: #%d",
		esc(o.ID), o.BuyerID, esc(o.GroupID), Rupiah(o.Amount), it.ID)
}

func adminNoStock(o *orders.Order) string {
	return fmt.Sprintf("🚨 <b>Stok habis setelah bayar</b>\nOrder: <code>%s</code>\nBuyer: <code>%d</code>\nProduk: %s\nHarga: %s\nKirim manual ke pembeli.",
		esc(o.ID), o.BuyerID, esc(o.GroupID), Rupiah(o.Amount))
}

func adminStoreError(o *orders.Order, err error) string {
	return fmt.Sprintf("🚨 <b>Gagal ambil stok</b>\nOrder: <code>%s</code>\nBuyer: <code>%d</code>\nProduk: %s\nError: <code>%s</code>\nCek stok lalu kirim manual.",
		esc(o.ID), o.BuyerID, esc(o.GroupID), esc(err.Error()))
}

func adminDeliveryFailed(o *orders.Order, it *inventory.Item, err error) string {
	return fmt.Sprintf("🚨 <b>Gagal kirim item ke pembeli</b>\nOrder: <code>%s</code>\nBuyer: <code>%d</code>\nItem: #%d\nError: <code>%s</code>\n\n%s",
		esc(o.ID), o.BuyerID, it.ID, esc(err.Error()), payloadLines(it.Payload))
}

func adminAmountMismatch(o *orders.Order, n Notification) string {
	return fmt.Sprintf("⚠️ <b>Nominal pembayaran tidak cocok</b>\nOrder: <code>%s</code>\nTercatat: %s\nWebhook: %s\nOrder tidak diproses.",
		esc(o.ID), Rupiah(o.Amount), Rupiah(n.Amount))
}

func adminPaidAfterCancel(o *orders.Order) string {
	return fmt.Sprintf("⚠️ Pembayaran masuk untuk order yang sudah dibatalkan: <code>%s</code> (buyer <code>%d</code>, %s)\nRefund atau kirim manual.",
		esc(o.ID), o.BuyerID, Rupiah(o.Amount))
}

func adminPaymentStuck(n Notification, err error) string {
	return fmt.Sprintf("🚨 <b>Pembayaran belum bisa diproses</b>\nOrder: <code>%s</code>\nNominal: %s\nError: <code>%s</code>\n"+
		"Sistem akan mencoba ulang. Kalau pembeli belum terima item, cek order ini.",
		esc(n.OrderID), Rupiah(n.Amount), esc(err.Error()))
}

func adminPaymentGivenUp(n Notification, err error) string {
	return fmt.Sprintf("🚨 <b>Pembayaran gagal diproses setelah retry</b>\nOrder: <code>%s</code>\nNominal: %s\nError: <code>%s</code>\n"+
		"Sistem berhenti mencoba. Proses order ini manual.",
		esc(n.OrderID), Rupiah(n.Amount), esc(err.Error()))
}

func paymentProcessingBuyerMessage(o *orders.Order) string {
	return fmt.Sprintf("✅ Pembayaran untuk order <code>%s</code> sudah kami terima dan sedang diproses.\n"+
		"Item dikirim otomatis; kalau belum masuk, admin akan mengirim manual.", esc(o.ID))
}
