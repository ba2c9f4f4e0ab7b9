package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cachedPost struct {
	ID    uint   `json:"id"`
	Title string `json:"title"`
}

func withTestRedis(t *testing.T) {
	t.Helper()
	mr := miniredis.RunT(t)
	prev := Client
	Client = redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { Client = prev })
}

func TestGetSetJSON(t *testing.T) {
	withTestRedis(t)
	ctx := context.Background()

	var missing cachedPost
	found, err := GetJSON(ctx, PostKey(1), &missing)
	require.NoError(t, err)
	assert.False(t, found)

	err = SetJSON(ctx, PostKey(1), cachedPost{ID: 1, Title: "vintage bike"}, PostTTL)
	require.NoError(t, err)

	var got cachedPost
	found, err = GetJSON(ctx, PostKey(1), &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "vintage bike", got.Title)
}

func TestAside(t *testing.T) {
	withTestRedis(t)
	ctx := context.Background()

	calls := 0
	fetch := func(dest *cachedPost) func() error {
		return func() error {
			calls++
			dest.ID = 7
			dest.Title = "from db"
			return nil
		}
	}

	var first cachedPost
	require.NoError(t, Aside(ctx, PostKey(7), &first, time.Minute, fetch(&first)))
	assert.Equal(t, 1, calls)
	assert.Equal(t, "from db", first.Title)

	// Second read is served from the cache.
	var second cachedPost
	require.NoError(t, Aside(ctx, PostKey(7), &second, time.Minute, fetch(&second)))
	assert.Equal(t, 1, calls)
	assert.Equal(t, "from db", second.Title)

	// Invalidation forces a refetch.
	InvalidatePost(ctx, 7)
	var third cachedPost
	require.NoError(t, Aside(ctx, PostKey(7), &third, time.Minute, fetch(&third)))
	assert.Equal(t, 2, calls)
}

func TestHelpersNilClient(t *testing.T) {
	prev := Client
	Client = nil
	t.Cleanup(func() { Client = prev })

	ctx := context.Background()
	var dest cachedPost
	found, err := GetJSON(ctx, PostKey(1), &dest)
	assert.NoError(t, err)
	assert.False(t, found)

	assert.NoError(t, SetJSON(ctx, PostKey(1), dest, time.Minute))

	// Aside always falls through to fetch.
	called := false
	require.NoError(t, Aside(ctx, PostKey(1), &dest, time.Minute, func() error {
		called = true
		return nil
	}))
	assert.True(t, called)
}
