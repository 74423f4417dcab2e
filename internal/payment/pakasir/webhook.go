package pakasir

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/ariefcatur/go-digital-shop/internal/checkout"
)

var (
	ErrMalformed      = errors.New("malformed webhook payload")
	ErrForeignProject = errors.New("webhook for another project")
)

// Amount accepts 9000, 9000.0 and "9000".
type Amount int64

func (a *Amount) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*a = 0
		return nil
	}
	s := strings.Trim(string(b), `"`)
	if s == "" {
		*a = 0
		return nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		*a = Amount(n)
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("amount %q: %w", s, err)
	}
	*a = Amount(math.Round(f))
	return nil
}

type webhookBody struct {
	Project       string `json:"project"`
	OrderID       string `json:"order_id"`
	Amount        Amount `json:"amount"`
	Status        string `json:"status"`
	PaymentMethod string `json:"payment_method"`
	CompletedAt   string `json:"completed_at"`
}

// Parser normalizes webhook bodies for one project slug.
type Parser struct{ Slug string }

func (p Parser) Parse(body []byte) (checkout.Notification, error) {
	var w webhookBody
	if err := json.Unmarshal(body, &w); err != nil {
		return checkout.Notification{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	w.OrderID = strings.TrimSpace(w.OrderID)
	if w.OrderID == "" {
		return checkout.Notification{}, fmt.Errorf("%w: missing order_id", ErrMalformed)
	}
	if p.Slug != "" && w.Project != "" && w.Project != p.Slug {
		return checkout.Notification{}, fmt.Errorf("%w: %q", ErrForeignProject, w.Project)
	}
	n := checkout.Notification{
		OrderID: w.OrderID,
		Amount:  int64(w.Amount),
		Status:  strings.ToLower(strings.TrimSpace(w.Status)),
		Method:  w.PaymentMethod,
	}
	if t, err := parseTime(w.CompletedAt); err == nil {
		n.CompletedAt = t
	}
	return n, nil
}
