// Package pakasir talks to the Pakasir QRIS gateway and normalizes its webhooks.
package pakasir

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ariefcatur/go-digital-shop/internal/checkout"
	"github.com/go-resty/resty/v2"
)

const DefaultBaseURL = "https://app.pakasir.com"

type Config struct {
	BaseURL string
	Slug    string // "project" di API Pakasir
	APIKey  string
	Timeout time.Duration
}

// Client implements checkout.Gateway.
type Client struct {
	http *resty.Client
	cfg  Config
}

func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	hc := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json")
	return &Client{http: hc, cfg: cfg}
}

type transactionRequest struct {
	Project string `json:"project"`
	OrderID string `json:"order_id"`
	Amount  int64  `json:"amount"`
	APIKey  string `json:"api_key"`
}

type createResponse struct {
	Payment struct {
		Project       string `json:"project"`
		OrderID       string `json:"order_id"`
		Amount        Amount `json:"amount"`
		TotalPayment  Amount `json:"total_payment"`
		PaymentMethod string `json:"payment_method"`
		PaymentNumber string `json:"payment_number"`
		ExpiredAt     string `json:"expired_at"`
	} `json:"payment"`
}

type detailResponse struct {
	Transaction struct {
		OrderID       string `json:"order_id"`
		Amount        Amount `json:"amount"`
		Status        string `json:"status"`
		PaymentMethod string `json:"payment_method"`
		CompletedAt   string `json:"completed_at"`
	} `json:"transaction"`
	Status string `json:"status"`
}

// CreateInvoice opens a QRIS transaction. The QR content is payment_number.
func (c *Client) CreateInvoice(ctx context.Context, orderID string, amount int64) (*checkout.Invoice, error) {
	var out createResponse
	res, err := c.http.R().
		SetContext(ctx).
		SetBody(c.request(orderID, amount)).
		SetResult(&out).
		Post("/api/transactioncreate/qris")
	if err != nil {
		return nil, fmt.Errorf("%w: create qris: %w", checkout.ErrAdapter, err)
	}
	if res.IsError() {
		return nil, fmt.Errorf("%w: create qris: http %d: %s", checkout.ErrAdapter, res.StatusCode(), truncate(res.String()))
	}
	if out.Payment.PaymentNumber == "" {
		return nil, fmt.Errorf("%w: create qris: response without payment_number", checkout.ErrAdapter)
	}

	inv := &checkout.Invoice{
		OrderID:  orderID,
		Amount:   amount,
		Total:    int64(out.Payment.TotalPayment),
		QRString: out.Payment.PaymentNumber,
		PayURL:   c.PayURL(orderID, amount),
		Method:   out.Payment.PaymentMethod,
	}
	if inv.Total == 0 {
		inv.Total = amount
	}
	if inv.Method == "" {
		inv.Method = "qris"
	}
	if t, err := parseTime(out.Payment.ExpiredAt); err == nil {
		inv.ExpiresAt = t
	}
	return inv, nil
}

func (c *Client) Cancel(ctx context.Context, orderID string, amount int64) error {
	res, err := c.http.R().
		SetContext(ctx).
		SetBody(c.request(orderID, amount)).
		Post("/api/transactioncancel")
	if err != nil {
		return fmt.Errorf("%w: cancel: %w", checkout.ErrAdapter, err)
	}
	if res.IsError() {
		return fmt.Errorf("%w: cancel: http %d: %s", checkout.ErrAdapter, res.StatusCode(), truncate(res.String()))
	}
	return nil
}

// QueryStatus returns the lower-cased transaction status, e.g. "completed".
func (c *Client) QueryStatus(ctx context.Context, orderID string, amount int64) (string, error) {
	var out detailResponse
	res, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"project":  c.cfg.Slug,
			"amount":   strconv.FormatInt(amount, 10),
			"order_id": orderID,
			"api_key":  c.cfg.APIKey,
		}).
		SetResult(&out).
		Get("/api/transactiondetail")
	if err != nil {
		return "", fmt.Errorf("%w: transaction detail: %w", checkout.ErrAdapter, err)
	}
	if res.IsError() {
		return "", fmt.Errorf("%w: transaction detail: http %d: %s", checkout.ErrAdapter, res.StatusCode(), truncate(res.String()))
	}
	st := out.Transaction.Status
	if st == "" {
		st = out.Status
	}
	if st == "" {
		return "unknown", nil
	}
	return strings.ToLower(st), nil
}

// PayURL is the hosted payment page for an order.
func (c *Client) PayURL(orderID string, amount int64) string {
	return fmt.Sprintf("%s/pay/%s/%d?order_id=%s",
		c.cfg.BaseURL, url.PathEscape(c.cfg.Slug), amount, url.QueryEscape(orderID))
}

func (c *Client) request(orderID string, amount int64) transactionRequest {
	return transactionRequest{Project: c.cfg.Slug, OrderID: orderID, Amount: amount, APIKey: c.cfg.APIKey}
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", s)
}

func truncate(s string) string {
	if len(s) > 200 {
		return s[:200] + "..."
	}
	return s
}
