package logging

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoggerWritesJSONToLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "shop.log")
	t.Setenv("LOG_FILE", path)

	log, err := NewLogger("digital-shop", "test")
	require.NoError(t, err)
	log.Info("order_created", zap.String("order_id", "O1"))
	_ = log.Sync()

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	line := strings.TrimSpace(strings.Split(string(raw), "\n")[0])
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &entry))
	assert.Equal(t, "order_created", entry["msg"])
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "digital-shop", entry["service"])
	assert.Equal(t, "O1", entry["order_id"])
	assert.Contains(t, entry, "ts")
}

func TestContextLogger(t *testing.T) {
	l := zap.NewExample()
	ctx := WithContext(context.Background(), l)
	assert.Same(t, l, FromContext(ctx))
	assert.Same(t, l, FromContextOr(ctx, zap.NewNop()))

	fb := zap.NewNop()
	assert.Same(t, fb, FromContextOr(context.Background(), fb))
	assert.NotNil(t, FromContext(context.Background()))
	assert.Equal(t, context.Background(), WithContext(context.Background(), nil))
}
