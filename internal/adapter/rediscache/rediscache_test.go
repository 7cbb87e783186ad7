package rediscache_test

import (
	"context"
	"os"
	"testing"
	"time"

	"go.uber.org/zap"

	"mindtrack/internal/adapter/rediscache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_Integration(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	c, err := rediscache.New(ctx, rediscache.Options{Addr: addr}, zap.NewNop())
	require.NoError(t, err)
	defer c.Close() //nolint:errcheck

	prefix := "mindtrack-test:" + time.Now().Format("150405.000000") + ":"
	c.Set(ctx, prefix+"a", []byte("1"), time.Minute)
	c.Set(ctx, prefix+"b", []byte("2"), time.Minute)

	got, ok := c.Get(ctx, prefix+"a")
	require.True(t, ok)
	assert.Equal(t, "1", string(got))

	c.InvalidatePrefix(ctx, prefix)
	_, ok = c.Get(ctx, prefix+"a")
	assert.False(t, ok)
	_, ok = c.Get(ctx, prefix+"b")
	assert.False(t, ok)
}

func TestNew_UnreachableServer(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := rediscache.New(ctx, rediscache.Options{Addr: "127.0.0.1:1"}, nil)
	assert.Error(t, err)
}
