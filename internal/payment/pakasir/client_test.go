package pakasir

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ariefcatur/go-digital-shop/internal/checkout"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(Config{BaseURL: srv.URL, Slug: "tokoku", APIKey: "secret-key"})
}

func TestCreateInvoice(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/transactioncreate/qris", r.URL.Path)

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "tokoku", req["project"])
		assert.Equal(t, "O1", req["order_id"])
		assert.Equal(t, float64(9000), req["amount"])
		assert.Equal(t, "secret-key", req["api_key"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"payment":{"project":"tokoku","order_id":"O1","amount":9000,
			"total_payment":9063,"payment_method":"qris","payment_number":"00020101021226...",
			"expired_at":"2025-01-01T10:00:00.000Z"}}`))
	})

	inv, err := c.CreateInvoice(context.Background(), "O1", 9000)
	require.NoError(t, err)
	assert.Equal(t, "00020101021226...", inv.QRString)
	assert.Equal(t, int64(9063), inv.Total)
	assert.Equal(t, int64(9000), inv.Amount)
	assert.Equal(t, "qris", inv.Method)
	assert.Equal(t, 2025, inv.ExpiresAt.Year())
	assert.Contains(t, inv.PayURL, "/pay/tokoku/9000?order_id=O1")
}

func TestCreateInvoiceErrors(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"http error": func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "bad api key", http.StatusUnauthorized)
		},
		"no payment number": func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"payment":{"total_payment":9000}}`))
		},
	}
	for name, h := range cases {
		t.Run(name, func(t *testing.T) {
			c := newTestClient(t, h)
			_, err := c.CreateInvoice(context.Background(), "O1", 9000)
			assert.ErrorIs(t, err, checkout.ErrAdapter)
		})
	}
}

func TestCancel(t *testing.T) {
	called := false
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
		assert.Equal(t, "/api/transactioncancel", r.URL.Path)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{}`))
	})
	require.NoError(t, c.Cancel(context.Background(), "O1", 9000))
	assert.True(t, called)
}

func TestQueryStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/transactiondetail", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "tokoku", q.Get("project"))
		assert.Equal(t, "9000", q.Get("amount"))
		assert.Equal(t, "O1", q.Get("order_id"))
		assert.Equal(t, "secret-key", q.Get("api_key"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"transaction":{"order_id":"O1","amount":"9000","status":"Completed"}}`))
	})
	st, err := c.QueryStatus(context.Background(), "O1", 9000)
	require.NoError(t, err)
	assert.Equal(t, "completed", st)
}

func TestParseWebhook(t *testing.T) {
	p := Parser{Slug: "tokoku"}

	n, err := p.Parse([]byte(`{"amount":9000,"order_id":"O1","project":"tokoku","status":"completed",
		"payment_method":"qris","completed_at":"2024-09-10T08:07:02.819+07:00"}`))
	require.NoError(t, err)
	assert.Equal(t, "O1", n.OrderID)
	assert.Equal(t, int64(9000), n.Amount)
	assert.Equal(t, checkout.StatusCompleted, n.Status)
	assert.Equal(t, 2024, n.CompletedAt.Year())

	n, err = p.Parse([]byte(`{"amount":"9000.00","order_id":"O2","status":"COMPLETED"}`))
	require.NoError(t, err)
	assert.Equal(t, int64(9000), n.Amount)
	assert.Equal(t, "completed", n.Status)

	_, err = p.Parse([]byte(`{"amount":9000,"order_id":"O1","project":"other","status":"completed"}`))
	assert.ErrorIs(t, err, ErrForeignProject)

	for _, body := range []string{`not json`, `{"amount":1}`, `{"order_id":"O1","amount":"abc"}`} {
		_, err = p.Parse([]byte(body))
		assert.ErrorIs(t, err, ErrMalformed, body)
	}
}
