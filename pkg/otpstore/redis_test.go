package otpstore

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisStore(client, "clinic:"), mr
}

func TestRedisStore_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisStore(t)

	require.NoError(t, s.Set(ctx, "otp:phone:0501234567", "hash", time.Minute))
	assert.True(t, mr.Exists("clinic:otp:phone:0501234567"))

	v, ok, err := s.Get(ctx, "otp:phone:0501234567")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "hash", v)

	require.NoError(t, s.Delete(ctx, "otp:phone:0501234567", "missing"))
	_, ok, err = s.Get(ctx, "otp:phone:0501234567")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStore_Expiry(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisStore(t)

	require.NoError(t, s.Set(ctx, "k", "v", 5*time.Minute))
	mr.FastForward(5*time.Minute + time.Second)

	_, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStore_IncrKeepsFirstTTL(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisStore(t)

	n, err := s.Incr(ctx, "attempts", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	mr.FastForward(40 * time.Second)
	n, err = s.Incr(ctx, "attempts", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	// the second Incr must not have pushed the expiry out
	mr.FastForward(21 * time.Second)
	n, err = s.Incr(ctx, "attempts", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestRedisStore_ServerDown(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisStore(t)
	mr.Close()

	_, _, err := s.Get(ctx, "k")
	assert.Error(t, err)
}

func TestRedisStore_IncrSetsTTLOnCreate(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisStore(t)

	_, err := s.Incr(ctx, "attempts", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, time.Minute, mr.TTL("clinic:attempts"))
}

func TestRedisStore_Take(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisStore(t)
	require.NoError(t, s.Set(ctx, "code", "hash-1", time.Minute))

	ok, err := s.Take(ctx, "code", "hash-2")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.True(t, mr.Exists("clinic:code"))

	ok, err = s.Take(ctx, "code", "hash-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.False(t, mr.Exists("clinic:code"))

	ok, err = s.Take(ctx, "code", "hash-1")
	require.NoError(t, err)
	assert.False(t, ok)
}
