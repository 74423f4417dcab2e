// Package storage holds the failure vocabulary shared by every ledger and pool backend.
package storage

import (
	"errors"
	"fmt"
)

// ErrUnavailable: backend tidak bisa dijangkau / query gagal. Bukan "data kosong".
var ErrUnavailable = errors.New("store unavailable")

// Unavailable wraps a backend error so callers can match both ErrUnavailable and the cause.
func Unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
}
