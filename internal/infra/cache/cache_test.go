package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return mr, client
}

func TestRedisCoverageCache(t *testing.T) {
	mr, client := setupTestRedis(t)
	c := NewRedisCoverageCache(client, time.Minute)
	ctx := context.Background()

	read, err := c.Get(ctx, 1)
	require.NoError(t, err)
	assert.False(t, read.Hit)
	assert.Zero(t, read.Gen)

	stored, err := c.Set(ctx, 1, read.Gen, []string{"75201", "75202"})
	require.NoError(t, err)
	assert.True(t, stored)
	assert.True(t, mr.Exists("coverage:worker:1"))

	read, err = c.Get(ctx, 1)
	require.NoError(t, err)
	assert.True(t, read.Hit)
	assert.Equal(t, []string{"75201", "75202"}, read.Codes)

	mr.FastForward(2 * time.Minute)
	read, err = c.Get(ctx, 1)
	require.NoError(t, err)
	assert.False(t, read.Hit, "expired")

	_, err = c.Set(ctx, 1, read.Gen, nil)
	require.NoError(t, err)
	read, err = c.Get(ctx, 1)
	require.NoError(t, err)
	assert.True(t, read.Hit, "empty coverage is cached too")
	assert.Empty(t, read.Codes)

	require.NoError(t, c.Invalidate(ctx, 1))
	assert.False(t, mr.Exists("coverage:worker:1"))
	gen, err := mr.Get("coverage:worker:1:gen")
	require.NoError(t, err)
	assert.Equal(t, "1", gen)
}

func TestRedisCoverageCache_StaleFillRejected(t *testing.T) {
	mr, client := setupTestRedis(t)
	c := NewRedisCoverageCache(client, time.Minute)
	ctx := context.Background()

	miss, err := c.Get(ctx, 1)
	require.NoError(t, err)
	require.False(t, miss.Hit)

	// a mutation commits while the reader is still loading from storage
	require.NoError(t, c.Invalidate(ctx, 1))

	stored, err := c.Set(ctx, 1, miss.Gen, []string{"75201"})
	require.NoError(t, err)
	assert.False(t, stored)
	assert.False(t, mr.Exists("coverage:worker:1"))

	fresh, err := c.Get(ctx, 1)
	require.NoError(t, err)
	assert.False(t, fresh.Hit)
	assert.Equal(t, miss.Gen+1, fresh.Gen)

	stored, err = c.Set(ctx, 1, fresh.Gen, []string{"76102"})
	require.NoError(t, err)
	assert.True(t, stored)
	read, err := c.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"76102"}, read.Codes)
}

func TestRedisCoverageCache_Unavailable(t *testing.T) {
	mr, client := setupTestRedis(t)
	c := NewRedisCoverageCache(client, time.Minute)
	mr.Close()

	_, err := c.Get(context.Background(), 1)
	assert.Error(t, err)
	_, err = c.Set(context.Background(), 1, 0, []string{"75201"})
	assert.Error(t, err)
}

func TestMemoryCoverageCache(t *testing.T) {
	c := NewMemoryCoverageCache(time.Minute)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	stored, err := c.Set(ctx, 9, 0, []string{"76102"})
	require.NoError(t, err)
	assert.True(t, stored)
	read, _ := c.Get(ctx, 9)
	assert.True(t, read.Hit)
	assert.Equal(t, []string{"76102"}, read.Codes)

	now = now.Add(2 * time.Minute)
	read, _ = c.Get(ctx, 9)
	assert.False(t, read.Hit)

	_, err = c.Set(ctx, 9, read.Gen, []string{"76102"})
	require.NoError(t, err)
	require.NoError(t, c.Invalidate(ctx, 9))
	read, _ = c.Get(ctx, 9)
	assert.False(t, read.Hit)
	assert.Equal(t, uint64(1), read.Gen)
}

func TestMemoryCoverageCache_StaleFillRejected(t *testing.T) {
	c := NewMemoryCoverageCache(time.Minute)
	ctx := context.Background()

	miss, _ := c.Get(ctx, 9)
	require.NoError(t, c.Invalidate(ctx, 9))

	stored, err := c.Set(ctx, 9, miss.Gen, []string{"75201"})
	require.NoError(t, err)
	assert.False(t, stored)

	read, _ := c.Get(ctx, 9)
	assert.False(t, read.Hit)
}
