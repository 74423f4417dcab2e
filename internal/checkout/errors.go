package checkout

import "errors"

var (
	ErrOutOfStock   = errors.New("out of stock")
	ErrUnknownGroup = errors.New("unknown product group")
	ErrNotOwner     = errors.New("order belongs to another buyer")
	// ErrAdapter: gateway gagal / balasan tidak bisa dipakai.
	ErrAdapter = errors.New("payment gateway error")

	ErrNotAdmin     = errors.New("admin only")
	ErrEmptyPayload = errors.New("stock payload has no values")
)
