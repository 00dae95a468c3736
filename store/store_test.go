package store

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plateful/recommender/core"
)

func newRedisStore(t *testing.T) *RedisStore {
	t.Helper()
	mr := miniredis.RunT(t)
	return NewRedisStoreFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
}

func backends(t *testing.T) map[string]core.KeyValueStore {
	return map[string]core.KeyValueStore{
		"memory": NewMemoryStore(),
		"redis":  newRedisStore(t),
	}
}

func TestStore_KeyValue(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			defer s.Close()
			ctx := context.Background()

			_, err := s.Get(ctx, "missing")
			assert.True(t, core.IsStoreNotFound(err))

			require.NoError(t, s.Set(ctx, "k1", []byte("v1")))
			v, err := s.Get(ctx, "k1")
			require.NoError(t, err)
			assert.Equal(t, []byte("v1"), v)

			require.NoError(t, s.BatchSet(ctx, map[string][]byte{"k2": []byte("v2"), "k3": []byte("v3")}))
			got, err := s.BatchGet(ctx, []string{"k1", "k2", "nope"})
			require.NoError(t, err)
			assert.Equal(t, map[string][]byte{"k1": []byte("v1"), "k2": []byte("v2")}, got)

			require.NoError(t, s.Delete(ctx, "k1"))
			_, err = s.Get(ctx, "k1")
			assert.True(t, core.IsStoreNotFound(err))
		})
	}
}

func TestStore_SortedSet(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			defer s.Close()
			ctx := context.Background()

			require.NoError(t, s.ZAdd(ctx, "hot", 3, "a"))
			require.NoError(t, s.ZAdd(ctx, "hot", 1, "b"))
			require.NoError(t, s.ZIncrBy(ctx, "hot", 5, "c"))
			require.NoError(t, s.ZIncrBy(ctx, "hot", -1, "c"))

			members, err := s.ZRange(ctx, "hot", 0, -1)
			require.NoError(t, err)
			assert.Equal(t, []string{"c", "a", "b"}, members)

			top, err := s.ZRange(ctx, "hot", 0, 1)
			require.NoError(t, err)
			assert.Equal(t, []string{"c", "a"}, top)

			score, err := s.ZScore(ctx, "hot", "c")
			require.NoError(t, err)
			assert.Equal(t, 4.0, score)

			_, err = s.ZScore(ctx, "hot", "zzz")
			assert.True(t, core.IsStoreNotFound(err))

			empty, err := s.ZRange(ctx, "none", 0, -1)
			require.NoError(t, err)
			assert.Empty(t, empty)
		})
	}
}

func TestStore_Hash(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			defer s.Close()
			ctx := context.Background()

			require.NoError(t, s.HSet(ctx, "h", "f1", []byte("1")))
			require.NoError(t, s.HSet(ctx, "h", "f2", []byte("2")))

			v, err := s.HGet(ctx, "h", "f1")
			require.NoError(t, err)
			assert.Equal(t, []byte("1"), v)

			_, err = s.HGet(ctx, "h", "nope")
			assert.True(t, core.IsStoreNotFound(err))

			require.NoError(t, s.HDel(ctx, "h", "f1"))
			all, err := s.HGetAll(ctx, "h")
			require.NoError(t, err)
			assert.Equal(t, map[string][]byte{"f2": []byte("2")}, all)

			all, err = s.HGetAll(ctx, "missing")
			require.NoError(t, err)
			assert.Empty(t, all)
		})
	}
}

func TestMemoryStore_CopiesValues(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	ctx := context.Background()

	buf := []byte("abc")
	require.NoError(t, s.Set(ctx, "k", buf))
	buf[0] = 'x'

	v, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(v))
	require.NoError(t, s.Close())
}

func TestNew(t *testing.T) {
	s, err := New(Config{})
	require.NoError(t, err)
	assert.Equal(t, "memory", s.Name())
	require.NoError(t, s.Close())

	_, err = New(Config{Backend: "cassandra"})
	assert.Error(t, err)

	mr := miniredis.RunT(t)
	s, err = New(Config{Backend: "redis", Redis: RedisConfig{Addr: mr.Addr()}})
	require.NoError(t, err)
	assert.Equal(t, "redis", s.Name())
	require.NoError(t, s.Close())
}
