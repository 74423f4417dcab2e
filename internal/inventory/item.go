package inventory

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Field is one labelled cell of a stock row, e.g. {"email", "a@b.c"}.
type Field struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Payload is opaque to the shop; order of fields is the order the operator entered them.
type Payload []Field

// NonEmpty drops fields without a value (the delivery message skips blank cells).
func (p Payload) NonEmpty() Payload {
	out := make(Payload, 0, len(p))
	for _, f := range p {
		if strings.TrimSpace(f.Value) != "" {
			out = append(out, f)
		}
	}
	return out
}

func (p Payload) encode() ([]byte, error) {
	if p == nil {
		p = Payload{}
	}
	return json.Marshal(p)
}

func decodePayload(b []byte) (Payload, error) {
	var p Payload
	if len(b) == 0 {
		return p, nil
	}
	err := json.Unmarshal(b, &p)
	return p, err
}

// PayloadFromRow pairs a header row with a data row. Extra cells get
// positional labels; missing cells are empty.
func PayloadFromRow(header, row []string) Payload {
	n := len(header)
	if len(row) > n {
		n = len(row)
	}
	p := make(Payload, 0, n)
	for i := 0; i < n; i++ {
		label := ""
		if i < len(header) {
			label = strings.TrimSpace(header[i])
		}
		if label == "" {
			label = "field" + strconv.Itoa(i+1)
		}
		value := ""
		if i < len(row) {
			value = strings.TrimSpace(row[i])
		}
		p = append(p, Field{Label: label, Value: value})
	}
	return p
}

type Item struct {
	ID         int64 // urutan insert; yang kecil keluar duluan
	GroupID    string
	Payload    Payload
	CreatedAt  time.Time
	ConsumedBy string
	ConsumedAt *time.Time
}

// Pool is the single-use stock of digital goods. Every unit is handed out at
// most once. TakeOne returns (nil, nil) when the group has nothing left.
//
// Backend failures are wrapped with storage.ErrUnavailable and are never
// reported as an empty pool.
type Pool interface {
	Count(ctx context.Context, groupID string) (int, error)
	TakeOne(ctx context.Context, groupID, orderID string) (*Item, error)
	Add(ctx context.Context, groupID string, payload Payload) (*Item, error)
}

// BatchAdder is implemented by pools that can load many units in one transaction.
type BatchAdder interface {
	AddBatch(ctx context.Context, groupID string, payloads []Payload) (int, error)
}
