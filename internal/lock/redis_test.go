package lock

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"uploadstore/internal/config"
)

func newLocker(t *testing.T) (*miniredis.Miniredis, *redis.Client, *RedisLocker) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	logger := slog.New(slog.NewJSONHandler(&bytes.Buffer{}, nil))
	return mr, client, NewRedisLocker(client, "sweep-lock", 30*time.Second, logger)
}

func TestRedisLocker_TryLock(t *testing.T) {
	ctx := context.Background()
	mr, _, l := newLocker(t)

	release, ok, err := l.TryLock(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, mr.Exists("sweep-lock"))
	assert.Equal(t, 30*time.Second, mr.TTL("sweep-lock"))

	_, ok, err = l.TryLock(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	release()
	assert.False(t, mr.Exists("sweep-lock"))

	_, ok, err = l.TryLock(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLocker_LeaseExpires(t *testing.T) {
	ctx := context.Background()
	mr, _, l := newLocker(t)

	_, ok, err := l.TryLock(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(31 * time.Second)

	_, ok, err = l.TryLock(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLocker_ReleaseKeepsForeignLock(t *testing.T) {
	ctx := context.Background()
	mr, _, l := newLocker(t)

	release, ok, err := l.TryLock(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	// lease expired and another replica took over
	require.NoError(t, mr.Set("sweep-lock", "other-holder"))
	release()

	got, err := mr.Get("sweep-lock")
	require.NoError(t, err)
	assert.Equal(t, "other-holder", got)
}

func TestRedisLocker_ReleaseAfterCancel(t *testing.T) {
	mr, _, l := newLocker(t)
	ctx, cancel := context.WithCancel(context.Background())

	release, ok, err := l.TryLock(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	cancel()
	release()
	assert.False(t, mr.Exists("sweep-lock"))
}

func TestRedisLocker_ServerDown(t *testing.T) {
	mr, _, l := newLocker(t)
	mr.Close()

	_, ok, err := l.TryLock(context.Background())
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestConnect(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()

	client, err := Connect(context.Background(), config.RedisConfig{Addr: addr})
	require.NoError(t, err)
	assert.NoError(t, client.Close())

	mr.Close()
	_, err = Connect(context.Background(), config.RedisConfig{Addr: addr})
	assert.ErrorContains(t, err, "failed to connect to Redis")
}
