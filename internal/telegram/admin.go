package telegram

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/ariefcatur/go-digital-shop/internal/checkout"
	"github.com/ariefcatur/go-digital-shop/internal/inventory"
	"github.com/ariefcatur/go-digital-shop/internal/orders"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

const (
	chartDays   = 14
	chartMaxBar = 20
)

var errAddStockUsage = errors.New("usage: /addstock ID label=value ...")

// handleAdminText runs /admin and /addstock. handled=false lets the normal
// menu take the message.
func (b *Bot) handleAdminText(ctx context.Context, chatID int64, text string) (handled bool, err error) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return false, nil
	}
	switch strings.ToLower(fields[0]) {
	case "/admin":
		return true, b.sendHTML(ctx, chatID, "🛠 <b>Admin Panel</b>\nPilih menu:", adminPanelKeyboard())
	case "/addstock":
		return true, b.addStock(ctx, chatID, text)
	}
	return false, nil
}

// adminCallback handles "adm:<cmd>[:args]" buttons.
func (b *Bot) adminCallback(ctx context.Context, chatID int64, arg string) error {
	cmd, rest, _ := strings.Cut(arg, ":")
	switch cmd {
	case "stock", "edit", "grp", "members":
		ov, err := b.Shop.Overview(ctx)
		if err != nil {
			return b.sendHTML(ctx, chatID, apology(err), nil)
		}
		switch cmd {
		case "stock":
			return b.sendHTML(ctx, chatID, adminStockText(ov), nil)
		case "edit":
			return b.sendHTML(ctx, chatID, "✏️ <b>Edit Stok</b>\nPilih produk:", adminEditKeyboard(ov))
		case "grp":
			text, kb := adminGroupMenu(ov, rest)
			return b.sendHTML(ctx, chatID, text, kb)
		default:
			return b.sendHTML(ctx, chatID, fmt.Sprintf("👤 Total member (pernah order): <b>%d</b>", ov.Stats.Buyers), nil)
		}
	case "take":
		i := strings.LastIndex(rest, ":")
		if i <= 0 {
			return nil
		}
		n, err := strconv.Atoi(rest[i+1:])
		if err != nil {
			return nil
		}
		return b.withdraw(ctx, chatID, rest[:i], n)
	case "chart":
		days, err := b.Shop.SalesByDay(ctx, chatID, chartDays)
		if err != nil {
			return b.sendHTML(ctx, chatID, apology(err), nil)
		}
		return b.sendHTML(ctx, chatID, salesChart(days), nil)
	}
	return nil
}

func (b *Bot) addStock(ctx context.Context, chatID int64, text string) error {
	groupID, p, err := parseAddStock(text)
	if err != nil {
		return b.sendHTML(ctx, chatID, "Format: <code>/addstock ID label=nilai label=nilai</code>\n"+
			"atau satu <code>label=nilai</code> per baris di bawah <code>/addstock ID</code>.", nil)
	}
	it, err := b.Shop.AddStock(ctx, chatID, groupID, p)
	if err != nil {
		b.logger().Warn("admin_add_stock_failed", zap.String("group_id", groupID), zap.Error(err))
		return b.sendHTML(ctx, chatID, apology(err), nil)
	}
	return b.sendHTML(ctx, chatID, fmt.Sprintf("✅ Stok %s +1 (item #%d)", html.EscapeString(groupID), it.ID), nil)
}

func (b *Bot) withdraw(ctx context.Context, chatID int64, groupID string, n int) error {
	items, err := b.Shop.WithdrawStock(ctx, chatID, groupID, n)
	if err != nil && len(items) == 0 {
		return b.sendHTML(ctx, chatID, apology(err), nil)
	}
	if err != nil {
		b.logger().Warn("admin_withdraw_partial", zap.String("group_id", groupID), zap.Error(err))
	}
	return b.sendHTML(ctx, chatID, withdrawnText(groupID, items), nil)
}

// parseAddStock: "/addstock ID1 email=a@b.c pin=123" atau field per baris
// (nilai per baris boleh mengandung spasi).
func parseAddStock(text string) (string, inventory.Payload, error) {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	head := strings.Fields(lines[0])
	if len(head) < 2 {
		return "", nil, errAddStockUsage
	}
	groupID := head[1]
	parts := append([]string{}, head[2:]...)
	for _, l := range lines[1:] {
		if l = strings.TrimSpace(l); l != "" {
			parts = append(parts, l)
		}
	}
	var p inventory.Payload
	for _, kv := range parts {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return "", nil, errAddStockUsage
		}
		p = append(p, inventory.Field{Label: strings.TrimSpace(k), Value: strings.TrimSpace(v)})
	}
	if len(p) == 0 {
		return "", nil, errAddStockUsage
	}
	return groupID, p, nil
}

func adminPanelKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("📦 Cek Stok", "adm:stock")),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("✏️ Edit Stok", "adm:edit")),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("👤 Cek Member", "adm:members")),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("📊 Grafik Harian", "adm:chart")),
	)
}

func adminStockText(ov *checkout.Overview) string {
	var sb strings.Builder
	sb.WriteString("📦 <b>Stok Produk</b>\n\n")
	for _, g := range ov.Groups {
		fmt.Fprintf(&sb, "• %s: <b>%d</b> · %s\n", html.EscapeString(g.ID), g.Available, checkout.Rupiah(g.Price))
	}
	return sb.String()
}

func adminEditKeyboard(ov *checkout.Overview) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, g := range ov.Groups {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("Edit: %s (%d)", g.ID, g.Available), "adm:grp:"+g.ID)))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// adminGroupMenu: +1 lewat /addstock karena tiap unit butuh isi.
func adminGroupMenu(ov *checkout.Overview, groupID string) (string, any) {
	var g *checkout.GroupStock
	for i := range ov.Groups {
		if ov.Groups[i].ID == groupID {
			g = &ov.Groups[i]
		}
	}
	if g == nil {
		return "Produk tidak ditemukan.", nil
	}
	id := html.EscapeString(g.ID)
	text := fmt.Sprintf("✏️ <b>Edit Stok</b>\n\nProduk: %s\nStok sekarang: <b>%d</b>\n\n"+
		"+1: kirim <code>/addstock %s label=nilai ...</code>\n"+
		"-1 / Set 0: unit ditarik dan isinya dikirim ke sini.", id, g.Available, id)
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("-1", "adm:take:"+g.ID+":1"),
			tgbotapi.NewInlineKeyboardButtonData("Set 0", "adm:take:"+g.ID+":0"),
		),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("⬅️ Kembali", "adm:edit")),
	)
	return text, kb
}

func withdrawnText(groupID string, items []*inventory.Item) string {
	if len(items) == 0 {
		return fmt.Sprintf("Stok %s sudah kosong.", html.EscapeString(groupID))
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "✅ %d unit %s ditarik:\n", len(items), html.EscapeString(groupID))
	for _, it := range items {
		fmt.Fprintf(&sb, "\n#%d\n", it.ID)
		for _, f := range it.Payload.NonEmpty() {
			fmt.Fprintf(&sb, "%s: <code>%s</code>\n", html.EscapeString(f.Label), html.EscapeString(f.Value))
		}
	}
	return sb.String()
}

func salesChart(days []orders.DayCount) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "📊 <b>Grafik penjualan (%d hari, UTC)</b>\n<pre>", len(days))
	for _, d := range days {
		label := d.Day
		if len(label) == len(orders.DayLayout) {
			label = label[5:] // MM-DD
		}
		fmt.Fprintf(&sb, "%s %s %d\n", label, strings.Repeat("█", int(min(d.Count, chartMaxBar))), d.Count)
	}
	sb.WriteString("</pre>")
	return sb.String()
}
