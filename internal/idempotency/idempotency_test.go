package idempotency

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(mr.Close)
	return mr, client
}

func stores(t *testing.T) map[string]Store {
	t.Helper()
	_, client := setupRedis(t)
	bs, err := OpenBoltStore(filepath.Join(t.TempDir(), "keys.db"), time.Hour)
	require.NoError(t, err)
	return map[string]Store{
		"memory": NewMemoryStore(time.Hour),
		"redis":  NewRedisStore(client, WithPrefix("test:"), WithTTL(time.Hour)),
		"bolt":   bs,
	}
}

func TestReserve_SecondCallReturnsHeldValue(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			defer s.Close()
			ctx := context.Background()

			held, ok, err := s.Reserve(ctx, "key-1", "tx-1")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "tx-1", held)

			held, ok, err = s.Reserve(ctx, "key-1", "tx-2")
			require.NoError(t, err)
			assert.False(t, ok)
			assert.Equal(t, "tx-1", held)

			require.NoError(t, s.Release(ctx, "key-1"))
			held, ok, err = s.Reserve(ctx, "key-1", "tx-3")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "tx-3", held)

			_, _, err = s.Reserve(ctx, "", "tx-4")
			assert.ErrorIs(t, err, ErrEmptyKey)
		})
	}
}

func TestMemoryStore_Expiry(t *testing.T) {
	s := NewMemoryStore(time.Minute)
	clock := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return clock }
	ctx := context.Background()

	_, ok, _ := s.Reserve(ctx, "k", "a")
	require.True(t, ok)
	clock = clock.Add(2 * time.Minute)
	held, ok, err := s.Reserve(ctx, "k", "b")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "b", held)
}

func TestRedisStore_KeyCarriesTTL(t *testing.T) {
	mr, client := setupRedis(t)
	s := NewRedisStore(client, WithTTL(30*time.Second))
	ctx := context.Background()

	_, ok, err := s.Reserve(ctx, "abc", "tx-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 30*time.Second, mr.TTL(DefaultRedisPrefix+"abc"))

	mr.FastForward(31 * time.Second)
	_, ok, err = s.Reserve(ctx, "abc", "tx-2")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisStore_Unavailable(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	s := NewRedisStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	mr.Close()

	_, _, err = s.Reserve(context.Background(), "abc", "tx-1")
	assert.Error(t, err)
}

func TestBoltStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys.db")
	ctx := context.Background()

	s, err := OpenBoltStore(path, time.Hour)
	require.NoError(t, err)
	_, ok, err := s.Reserve(ctx, "k", "tx-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, s.Close())

	s, err = OpenBoltStore(path, time.Hour)
	require.NoError(t, err)
	defer s.Close()
	held, ok, err := s.Reserve(ctx, "k", "tx-2")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, "tx-1", held)
}
