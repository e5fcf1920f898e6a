package local

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) *LocalCache {
	c, err := NewCache(Config{GCInterval: time.Minute})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestGetSet(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "session:Aria", "jti-1", 0))
	v, err := c.Get(ctx, "session:Aria")
	require.NoError(t, err)
	assert.Equal(t, "jti-1", v)

	_, err = c.Get(ctx, "session:Bo")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTTLExpiry(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "ttl_key", "val", 10*time.Millisecond))
	time.Sleep(20 * time.Millisecond)
	_, err := c.Get(ctx, "ttl_key")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDel_AllKinds(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()
	_ = c.Set(ctx, "k", "v", 0)
	_ = c.ZAdd(ctx, "k", 1, "m")
	_ = c.LPush(ctx, "k", "x")

	require.NoError(t, c.Del(ctx, "k"))
	_, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = c.ZScore(ctx, "k", "m")
	assert.ErrorIs(t, err, ErrNotFound)
	items, _ := c.LRange(ctx, "k", 0, -1)
	assert.Empty(t, items)
}

func TestSetNX(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	ok, err := c.SetNX(ctx, "lock", "owner", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.SetNX(ctx, "lock", "other", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok) // already held

	ok, err = c.SetNX(ctx, "short", "a", time.Millisecond)
	require.NoError(t, err)
	assert.True(t, ok)
	time.Sleep(5 * time.Millisecond)
	ok, _ = c.SetNX(ctx, "short", "b", time.Minute)
	assert.True(t, ok, "expired lock can be retaken")
}

func TestZSet(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.ZAdd(ctx, "z", 100, "alice"))
	require.NoError(t, c.ZAdd(ctx, "z", 200, "bob"))
	require.NoError(t, c.ZAdd(ctx, "z", 50, "carol"))
	require.NoError(t, c.ZAdd(ctx, "z", 300, "carol")) // update

	rows, err := c.ZRevRange(ctx, "z", 0, -1)
	require.NoError(t, err)
	assert.Equal(t, []ZMember{{"carol", 300}, {"bob", 200}, {"alice", 100}}, rows)

	top, err := c.ZRevRange(ctx, "z", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, []ZMember{{"carol", 300}}, top)

	score, err := c.ZScore(ctx, "z", "alice")
	require.NoError(t, err)
	assert.Equal(t, float64(100), score)

	rank, err := c.ZRevRank(ctx, "z", "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(1), rank)

	_, err = c.ZRevRank(ctx, "z", "dave")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestZAddGT_OnlyRaises(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.ZAddGT(ctx, "z", 120, "alice"))
	require.NoError(t, c.ZAddGT(ctx, "z", 80, "alice"))
	score, err := c.ZScore(ctx, "z", "alice")
	require.NoError(t, err)
	assert.Equal(t, float64(120), score)

	require.NoError(t, c.ZAddGT(ctx, "z", 150, "alice"))
	score, err = c.ZScore(ctx, "z", "alice")
	require.NoError(t, err)
	assert.Equal(t, float64(150), score)
}

func TestList(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.LPush(ctx, "l", "c", "b", "a"))
	items, err := c.LRange(ctx, "l", 0, -1)
	require.NoError(t, err)
	// LPush "c" then "b" then "a" → head = a, b, c
	assert.Equal(t, []string{"a", "b", "c"}, items)

	require.NoError(t, c.LPush(ctx, "l", "z"))
	require.NoError(t, c.LTrim(ctx, "l", 0, 1))
	items, _ = c.LRange(ctx, "l", 0, -1)
	assert.Equal(t, []string{"z", "a"}, items)

	items, _ = c.LRange(ctx, "l", -1, -1)
	assert.Equal(t, []string{"a"}, items)
}

func TestSpan(t *testing.T) {
	lo, hi, ok := span(5, 0, -1)
	assert.True(t, ok)
	assert.Equal(t, int64(0), lo)
	assert.Equal(t, int64(4), hi)

	_, _, ok = span(5, 7, 9)
	assert.False(t, ok)
	_, _, ok = span(0, 0, -1)
	assert.False(t, ok)
}
