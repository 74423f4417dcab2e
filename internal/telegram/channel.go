// Package telegram is the chat side of the shop: the buyer-facing bot and the
// notification channel the checkout service talks through.
package telegram

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/skip2/go-qrcode"
)

// Sender is the subset of *tgbotapi.BotAPI we use.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Channel implements checkout.Notifier on top of the Bot API. Text is HTML.
type Channel struct {
	API Sender
}

func (c *Channel) SendText(ctx context.Context, chatID int64, html string) error {
	return c.SendMarkup(ctx, chatID, html, nil)
}

// SendMarkup sends HTML text with an optional keyboard (reply or inline).
func (c *Channel) SendMarkup(ctx context.Context, chatID int64, html string, markup any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(chatID, html)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if markup != nil {
		msg.ReplyMarkup = markup
	}
	if _, err := c.API.Send(msg); err != nil {
		return fmt.Errorf("telegram send to %d: %w", chatID, err)
	}
	return nil
}

// SendImage uploads png as a photo with an HTML caption; markup may be nil.
func (c *Channel) SendImage(ctx context.Context, chatID int64, name string, png []byte, caption string, markup any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: name, Bytes: png})
	photo.Caption = caption
	photo.ParseMode = tgbotapi.ModeHTML
	if markup != nil {
		photo.ReplyMarkup = markup
	}
	if _, err := c.API.Send(photo); err != nil {
		return fmt.Errorf("telegram photo to %d: %w", chatID, err)
	}
	return nil
}

// RenderQR turns a QRIS string into a PNG.
func RenderQR(content string) ([]byte, error) {
	png, err := qrcode.Encode(content, qrcode.Medium, 512)
	if err != nil {
		return nil, fmt.Errorf("render qr: %w", err)
	}
	return png, nil
}
