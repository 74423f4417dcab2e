package orders

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	allowed := [][2]Status{
		{StatusPending, StatusPaid},
		{StatusPending, StatusCancelled},
		{StatusPaid, StatusPaidNoStock},
	}
	for _, p := range allowed {
		assert.True(t, CanTransition(p[0], p[1]), "%s -> %s", p[0], p[1])
	}

	denied := [][2]Status{
		{StatusPaid, StatusPending},
		{StatusPaid, StatusCancelled},
		{StatusCancelled, StatusPaid},
		{StatusCancelled, StatusPending},
		{StatusPaidNoStock, StatusPaid},
		{StatusPending, StatusPaidNoStock},
		{"BOGUS", StatusPaid},
	}
	for _, p := range denied {
		assert.False(t, CanTransition(p[0], p[1]), "%s -> %s", p[0], p[1])
	}
}

func TestFinal(t *testing.T) {
	assert.False(t, StatusPending.Final())
	assert.False(t, StatusPaid.Final())
	assert.True(t, StatusCancelled.Final())
	assert.True(t, StatusPaidNoStock.Final())
	assert.False(t, Status("X").Final())
}
