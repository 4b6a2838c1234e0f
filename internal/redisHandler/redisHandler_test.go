package redishandler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saxenaaman628/election-observer/internal/models"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestRefreshTokenStoreRoundTrip(t *testing.T) {
	mr, rdb := newTestRedis(t)
	store := NewRefreshTokenStore(rdb)
	ctx := context.Background()

	expires := time.Now().Add(time.Hour).Truncate(time.Second)
	require.NoError(t, store.Save(ctx, models.RefreshToken{
		ID: "t1", UserID: "u1", Token: "signed.jwt.value", ExpiresAt: expires,
	}))
	assert.True(t, mr.Exists("refresh_token:u1:t1"))
	assert.True(t, mr.TTL("refresh_token:u1:t1") > 0)

	tok, err := store.Find(ctx, "u1", "t1")
	require.NoError(t, err)
	assert.Equal(t, "u1", tok.UserID)
	assert.Equal(t, "signed.jwt.value", tok.Token)
	assert.True(t, tok.ExpiresAt.Equal(expires))

	require.NoError(t, store.Delete(ctx, "u1", "t1"))
	_, err = store.Find(ctx, "u1", "t1")
	assert.True(t, errors.Is(err, ErrTokenNotFound))
}

func TestRefreshTokenStoreExpires(t *testing.T) {
	mr, rdb := newTestRedis(t)
	store := NewRefreshTokenStore(rdb)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, models.RefreshToken{
		ID: "t1", UserID: "u1", Token: "x", ExpiresAt: time.Now().Add(time.Minute),
	}))
	mr.FastForward(2 * time.Minute)

	_, err := store.Find(ctx, "u1", "t1")
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func TestRefreshTokenStoreDeleteAllForUser(t *testing.T) {
	_, rdb := newTestRedis(t)
	store := NewRefreshTokenStore(rdb)
	ctx := context.Background()
	exp := time.Now().Add(time.Hour)

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, store.Save(ctx, models.RefreshToken{ID: id, UserID: "u1", Token: id, ExpiresAt: exp}))
	}
	require.NoError(t, store.Save(ctx, models.RefreshToken{ID: "z", UserID: "u2", Token: "z", ExpiresAt: exp}))

	n, err := store.DeleteAllForUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	_, err = store.Find(ctx, "u2", "z")
	assert.NoError(t, err)
}

type stats struct {
	Counties int `json:"counties"`
}

func TestRedisCacheGetOrLoad(t *testing.T) {
	mr, rdb := newTestRedis(t)
	cache := NewRedisCache(rdb)
	ctx := context.Background()

	calls := 0
	load := func(context.Context) (stats, error) {
		calls++
		return stats{Counties: 47}, nil
	}

	got, err := GetOrLoad(ctx, cache, HierarchyStatsKey, 5*time.Minute, load)
	require.NoError(t, err)
	assert.Equal(t, 47, got.Counties)

	got, err = GetOrLoad(ctx, cache, HierarchyStatsKey, 5*time.Minute, load)
	require.NoError(t, err)
	assert.Equal(t, 47, got.Counties)
	assert.Equal(t, 1, calls)

	mr.FastForward(6 * time.Minute)
	_, err = GetOrLoad(ctx, cache, HierarchyStatsKey, 5*time.Minute, load)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)

	require.NoError(t, cache.Delete(ctx, HierarchyStatsKey))
	assert.False(t, mr.Exists("cache:"+HierarchyStatsKey))
}

func TestMemoryCacheLazyExpiry(t *testing.T) {
	cache := NewMemoryCache()
	now := time.Date(2024, 8, 9, 10, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "k", stats{Counties: 1}, 5*time.Minute))

	var out stats
	ok, err := cache.Get(ctx, "k", &out)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, out.Counties)

	now = now.Add(5 * time.Minute)
	assert.Equal(t, 1, cache.Len())
	ok, err = cache.Get(ctx, "k", &out)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, cache.Len())
}

func TestGetOrLoadPropagatesLoadError(t *testing.T) {
	cache := NewMemoryCache()
	boom := errors.New("boom")
	_, err := GetOrLoad(context.Background(), cache, "k", time.Minute, func(context.Context) (stats, error) {
		return stats{}, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, cache.Len())
}

func TestFixedWindowLimiter(t *testing.T) {
	mr, rdb := newTestRedis(t)
	limiter := NewFixedWindowLimiter(rdb, 3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res, err := limiter.Allow(ctx, "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.Equal(t, 2-i, res.Remaining)
	}

	res, err := limiter.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)

	other, err := limiter.Allow(ctx, "10.0.0.2")
	require.NoError(t, err)
	assert.True(t, other.Allowed)

	mr.FastForward(61 * time.Second)
	res, err = limiter.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}
