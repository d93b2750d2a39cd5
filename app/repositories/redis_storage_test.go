package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newRedisStorage(t *testing.T) (*RedisStorage, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisStorage(rdb, zap.NewNop()), mr
}

func TestRedisStorageRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisStorage(t)

	_, err := s.Get(ctx, "cart:1")
	require.ErrorIs(t, err, ErrKeyNotFound)

	require.NoError(t, s.Set(ctx, "view-a", "cart:1", []byte(`{"items":[]}`)))
	got, err := s.Get(ctx, "cart:1")
	require.NoError(t, err)
	assert.Equal(t, `{"items":[]}`, string(got))

	raw, err := mr.Get("axen:cart:1")
	require.NoError(t, err)
	assert.Equal(t, `{"items":[]}`, raw)

	require.NoError(t, s.Delete(ctx, "view-a", "cart:1"))
	_, err = s.Get(ctx, "cart:1")
	require.ErrorIs(t, err, ErrKeyNotFound)
}

func TestRedisStorageTake(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisStorage(t)

	_, err := s.Take(ctx, "view-a", "checkout:1")
	require.ErrorIs(t, err, ErrKeyNotFound)

	require.NoError(t, s.Set(ctx, "view-a", "checkout:1", []byte("payload")))
	got, err := s.Take(ctx, "view-b", "checkout:1")
	require.NoError(t, err)
	assert.Equal(t, "payload", string(got))
	assert.False(t, mr.Exists("axen:checkout:1"))

	_, err = s.Take(ctx, "view-b", "checkout:1")
	require.ErrorIs(t, err, ErrKeyNotFound)
}

func TestRedisStorageSubscribe(t *testing.T) {
	ctx := context.Background()
	s, _ := newRedisStorage(t)

	events := make(chan StorageEvent, 4)
	cancel, err := s.Subscribe(ctx, func(ev StorageEvent) { events <- ev })
	require.NoError(t, err)
	defer cancel()

	require.NoError(t, s.Set(ctx, "view-b", "cart:1", []byte("{}")))

	select {
	case ev := <-events:
		assert.Equal(t, StorageEvent{Key: "cart:1", Origin: "view-b"}, ev)
	case <-time.After(2 * time.Second):
		t.Fatal("no storage event received")
	}
}

func TestRedisStorageUnavailable(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisStorage(t)
	mr.Close()

	_, err := s.Get(ctx, "cart:1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrKeyNotFound)
}
