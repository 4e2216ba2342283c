package session

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"
)

func newTestRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewRedisStore(client), mr
}

func TestRedisStore_MultiDeviceLifecycle(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()

	store, _ := newTestRedisStore(t)

	req.False(store.IsOnline(ctx, "alice"))

	req.EqualValues(1, store.AddSession(ctx, "alice", "conn-a"))
	req.EqualValues(2, store.AddSession(ctx, "alice", "conn-b"))

	// Повторное добавление идемпотентно
	req.EqualValues(2, store.AddSession(ctx, "alice", "conn-b"))

	req.EqualValues(1, store.RemoveSession(ctx, "alice", "conn-a"))
	req.True(store.IsOnline(ctx, "alice"))

	req.EqualValues(0, store.RemoveSession(ctx, "alice", "conn-b"))
	req.False(store.IsOnline(ctx, "alice"))
	req.EqualValues(0, store.SessionCount(ctx, "alice"))
}

func TestRedisStore_KeyExpiresAndSlides(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()

	store, mr := newTestRedisStore(t)

	store.AddSession(ctx, "alice", "conn-a")
	req.Equal(SessionTTL, mr.TTL(sessionKey("alice")))

	// Каждое добавление продлевает окно для всего набора
	mr.FastForward(SessionTTL / 2)
	store.AddSession(ctx, "alice", "conn-b")
	req.Equal(SessionTTL, mr.TTL(sessionKey("alice")))

	// Простой дольше окна — набор исчезает целиком
	mr.FastForward(SessionTTL + 1)
	req.False(store.IsOnline(ctx, "alice"))
}

func TestRedisStore_EmptySetRemoved(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()

	store, mr := newTestRedisStore(t)

	store.AddSession(ctx, "alice", "conn-a")
	store.RemoveSession(ctx, "alice", "conn-a")

	req.False(mr.Exists(sessionKey("alice")))
}

func TestRedisStore_DegradesWhenUnavailable(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()

	store, mr := newTestRedisStore(t)
	mr.Close()

	// Реестр деградирует молча: запись — no-op, чтение — оффлайн
	req.EqualValues(0, store.AddSession(ctx, "alice", "conn-a"))
	req.EqualValues(0, store.RemoveSession(ctx, "alice", "conn-a"))
	req.EqualValues(0, store.SessionCount(ctx, "alice"))
	req.False(store.IsOnline(ctx, "alice"))
}
