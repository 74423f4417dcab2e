package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Count/TakeOne filter on consumed_at IS NULL; partial index harus sama.
func TestSchemaStockIndexMatchesQueries(t *testing.T) {
	assert.Contains(t, schema, "ON stock_items (group_id, id) WHERE consumed_at IS NULL")
	assert.NotContains(t, schema, "consumed_by IS NULL")
}

func TestMigrateIdempotent(t *testing.T) {
	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_DSN not set")
	}
	ctx := context.Background()
	db, err := Connect(ctx, dsn)
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, Migrate(ctx, db))
	require.NoError(t, Migrate(ctx, db))

	var pred string
	err = db.QueryRow(ctx, `
		SELECT pg_get_expr(i.indpred, i.indrelid)
		FROM pg_index i JOIN pg_class c ON c.oid = i.indexrelid
		WHERE c.relname = 'stock_items_unconsumed_idx'`).Scan(&pred)
	require.NoError(t, err)
	assert.Contains(t, pred, "consumed_at IS NULL")
}
