package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCache_GetSetDelete(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	var out map[string]int
	hit, err := c.Get(ctx, "missing", &out)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, c.Set(ctx, KeyDashboardStatistics, map[string]int{"customers": 3}, time.Minute))
	hit, err = c.Get(ctx, KeyDashboardStatistics, &out)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 3, out["customers"])

	require.NoError(t, c.Delete(ctx, KeyDashboardStatistics))
	hit, _ = c.Get(ctx, KeyDashboardStatistics, &out)
	assert.False(t, hit)
}

func TestMemoryCache_Expiry(t *testing.T) {
	c := NewMemoryCache()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", 1, time.Minute))
	now = now.Add(2 * time.Minute)

	var v int
	hit, err := c.Get(ctx, "k", &v)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestMemoryCache_SetNXAdmitsOnce(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	ok, err := c.SetNX(ctx, "idem:abc", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.SetNX(ctx, "idem:abc", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryCache_DeletePattern(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "dashboard:overview:2026-01", 1, 0))
	require.NoError(t, c.Set(ctx, "dashboard:overview:2026-02", 1, 0))
	require.NoError(t, c.Set(ctx, KeyDashboardStatistics, 1, 0))

	require.NoError(t, c.DeletePattern(ctx, KeyDashboardOverview))

	var v int
	hit, _ := c.Get(ctx, KeyDashboardStatistics, &v)
	assert.True(t, hit)
	hit, _ = c.Get(ctx, "dashboard:overview:2026-01", &v)
	assert.False(t, hit)
}
