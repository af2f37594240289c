package envcache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/allergy-risk/internal/domain/features"
)

func TestMemoryCacheExpires(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cache := NewMemoryCache()
	cache.now = func() time.Time { return now }

	snapshot := features.EnvironmentalSnapshot{Pollen: &features.Pollen{TotalCount: features.Float(35)}}
	require.NoError(t, cache.Set(context.Background(), "1.35:103.82", snapshot, time.Minute))

	got, ok, err := cache.Get(context.Background(), "1.35:103.82")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 35.0, *got.Pollen.TotalCount)

	now = now.Add(time.Minute)
	_, ok, err = cache.Get(context.Background(), "1.35:103.82")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMemoryCacheWithoutTTL(t *testing.T) {
	cache := NewMemoryCache()
	require.NoError(t, cache.Set(context.Background(), "k", features.EnvironmentalSnapshot{}, 0))
	cache.now = func() time.Time { return time.Now().Add(24 * 365 * time.Hour) }

	_, ok, err := cache.Get(context.Background(), "k")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestValkeyCacheKey(t *testing.T) {
	require.Equal(t, "env:snapshot:1.35:103.82", NewValkeyCache(nil, "").entryKey("1.35:103.82"))
}

func TestMemoryCacheKeepsEntryRefreshedDuringExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cache := NewMemoryCache()
	cache.now = func() time.Time { return now }

	stale := features.EnvironmentalSnapshot{Pollen: &features.Pollen{TotalCount: features.Float(10)}}
	fresh := features.EnvironmentalSnapshot{Pollen: &features.Pollen{TotalCount: features.Float(90)}}
	require.NoError(t, cache.Set(ctx, "k", stale, time.Minute))
	now = now.Add(2 * time.Minute)

	// A writer refreshes the key between the expiry check and the eviction.
	refreshed := false
	cache.now = func() time.Time {
		if !refreshed {
			refreshed = true
			require.NoError(t, cache.Set(ctx, "k", fresh, time.Hour))
		}
		return now
	}

	got, ok, err := cache.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 90.0, *got.Pollen.TotalCount)

	got, ok, err = cache.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 90.0, *got.Pollen.TotalCount)
}
