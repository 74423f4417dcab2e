package telegram

import (
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/ariefcatur/go-digital-shop/internal/checkout"
	"github.com/ariefcatur/go-digital-shop/internal/orders"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	menuProducts = "📦 List Produk"
	menuInfo     = "ℹ️ INFORMASI"
	menuHowTo    = "✨ Cara Order"

	textInfo = "ℹ️ <b>INFORMASI</b>\n\n" +
		"• Produk digital legal\n" +
		"• Proses otomatis setelah pembayaran\n" +
		"• Jika ada kendala, hubungi admin"

	textHowTo = "✨ <b>Cara Order</b>\n\n" +
		"1) Klik 📦 <b>List Produk</b>\n" +
		"2) Pilih ID yang tersedia\n" +
		"3) Bayar via QRIS (scan QR)\n" +
		"4) Setelah status <b>completed</b>, bot kirim detail produk otomatis\n"

	textFallback  = "Ketik /start atau klik menu."
	textRateLimit = "⏳ Terlalu banyak permintaan. Tunggu sebentar lalu coba lagi."
)

func dashboardText(store string, st orders.Stats) string {
	return fmt.Sprintf("👋 <b>Welcome to %s</b>\n"+
		"────────────────────\n"+
		"👥 <b>Total User Bot:</b> %d Orang\n"+
		"✅ <b>Total Transaksi Terselesaikan:</b> %dx\n\n"+
		"Gunakan menu di bawah untuk mulai ✨",
		html.EscapeString(store), st.Buyers, st.CompletedOrders)
}

func menuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(menuProducts)),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuInfo),
			tgbotapi.NewKeyboardButton(menuHowTo),
		),
	)
	kb.ResizeKeyboard = true
	return kb
}

// stockMessage: semua group ditampilkan, tombol beli cuma untuk yang ada stok.
func stockMessage(ov *checkout.Overview) (string, tgbotapi.InlineKeyboardMarkup) {
	var b strings.Builder
	b.WriteString("📦 <b>Stok saat ini (READY saja):</b>\n")
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, g := range ov.Groups {
		dot := "🔴"
		if g.Available > 0 {
			dot = "🟢"
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData(
					fmt.Sprintf("%s (%s)", g.ID, checkout.Rupiah(g.Price)), "buy:"+g.ID),
			))
		}
		fmt.Fprintf(&b, "%s <b>%s</b>: <b>%d</b> stok · %s\n",
			dot, html.EscapeString(g.ID), g.Available, checkout.Rupiah(g.Price))
	}
	b.WriteString("\nPilih ID yang ingin dibeli:")
	if len(rows) == 0 {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Stok habis", "noop"),
		))
	}
	return b.String(), tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func invoiceCaption(co *checkout.Checkout) string {
	inv := co.Invoice
	expired := "-"
	if !inv.ExpiresAt.IsZero() {
		expired = inv.ExpiresAt.Format("02 Jan 2006 15:04 MST")
	}
	return fmt.Sprintf("💳 <b>Invoice Berhasil Dibuat</b>\n\n"+
		"🧾 <b>Informasi Item</b>\n"+
		"1. %s x1 · <b>%s</b>\n\n"+
		"🧾 <b>Informasi Pembayaran</b>\n"+
		"ID Transaksi: <code>%s</code>\n"+
		"Total Dibayar: <b>%s</b>\n"+
		"Metode: <b>%s</b>\n"+
		"Expired: <b>%s</b>\n\n"+
		"Silakan scan QR di atas untuk membayar.",
		html.EscapeString(co.Order.GroupID), checkout.Rupiah(co.Order.Amount),
		html.EscapeString(co.Order.ID), checkout.Rupiah(inv.Total),
		html.EscapeString(inv.Method), html.EscapeString(expired))
}

func invoiceKeyboard(co *checkout.Checkout) tgbotapi.InlineKeyboardMarkup {
	rows := [][]tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔄 Cek Status", "check:"+co.Order.ID),
			tgbotapi.NewInlineKeyboardButtonData("❌ Batalkan Pembelian", "cancel:"+co.Order.ID),
		),
	}
	if co.Invoice.PayURL != "" {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("🌐 Bayar lewat web", co.Invoice.PayURL),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func cancelText(res *checkout.CancelResult) string {
	if res.Cancelled {
		return "✅ Pembelian dibatalkan. Kamu bisa order lagi kapan saja."
	}
	return fmt.Sprintf("Order <code>%s</code> tidak bisa dibatalkan lagi.\n%s",
		html.EscapeString(res.Order.ID), statusLine(res.Order.Status))
}

func statusText(rep *checkout.StatusReport) string {
	o := rep.Order
	s := fmt.Sprintf("🧾 Order <code>%s</code>\nProduk: %s\nHarga: %s\n%s",
		html.EscapeString(o.ID), html.EscapeString(o.GroupID), checkout.Rupiah(o.Amount), statusLine(o.Status))
	if rep.GatewayStatus != "" {
		s += fmt.Sprintf("\nStatus gateway: <b>%s</b>", html.EscapeString(rep.GatewayStatus))
	}
	return s
}

func statusLine(st orders.Status) string {
	switch st {
	case orders.StatusPending:
		return "⏳ Menunggu pembayaran"
	case orders.StatusPaid:
		return "✅ Lunas, item sudah dikirim"
	case orders.StatusPaidNoStock:
		return "✅ Lunas, menunggu pengiriman manual dari admin"
	case orders.StatusCancelled:
		return "❌ Dibatalkan"
	}
	return string(st)
}

// apology maps a use-case error to what the buyer gets to see.
func apology(err error) string {
	switch {
	case errors.Is(err, checkout.ErrOutOfStock):
		return "Maaf, stok habis."
	case errors.Is(err, checkout.ErrUnknownGroup):
		return "ID tidak dikenal."
	case errors.Is(err, checkout.ErrNotOwner):
		return "Order ini bukan milik kamu."
	case errors.Is(err, orders.ErrNotFound):
		return "Order tidak ditemukan."
	case errors.Is(err, checkout.ErrAdapter):
		return "⚠️ Gagal membuat pembayaran. Coba lagi beberapa saat lagi."
	case errors.Is(err, checkout.ErrNotAdmin):
		return "Khusus admin."
	case errors.Is(err, checkout.ErrEmptyPayload):
		return "Isi stok kosong. Format: <code>/addstock ID label=nilai ...</code>"
	}
	return "⚠️ Maaf, sistem sedang gangguan. Coba lagi nanti."
}
