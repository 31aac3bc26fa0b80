package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/zeecm/parking/internal/carpark"
)

// setupMiniRedis starts an in-process Redis and returns a cache backed
// by it.
func setupMiniRedis(t *testing.T) (*miniredis.Miniredis, *RedisCache) {
	t.Helper()

	mr := miniredis.NewMiniRedis()
	if err := mr.Start(); err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	cache := &RedisCache{
		client: client,
		logger: zerolog.Nop(),
	}

	return mr, cache
}

func TestRedisCache_SnapshotRoundtrip(t *testing.T) {
	mr, cache := setupMiniRedis(t)
	defer mr.Close()

	cache.SetSnapshot(SnapshotKey, sampleSnapshot(), 5*time.Minute)

	snap, found := cache.GetSnapshot(SnapshotKey)
	if !found {
		t.Fatal("expected snapshot to be found")
	}
	if snap.RefreshID != "r-1" {
		t.Errorf("expected refresh id r-1, got %s", snap.RefreshID)
	}
	if len(snap.Lots) != 1 || snap.Lots[0].CarparkID != "A0004" {
		t.Errorf("unexpected lots: %+v", snap.Lots)
	}
	if !snap.FetchedAt.Equal(time.Date(2026, 2, 10, 8, 0, 0, 0, time.UTC)) {
		t.Errorf("fetched_at did not survive the roundtrip: %v", snap.FetchedAt)
	}

	stats := cache.Stats()
	if stats.Sets != 1 {
		t.Errorf("expected 1 set, got %d", stats.Sets)
	}
	if stats.Hits != 1 {
		t.Errorf("expected 1 hit, got %d", stats.Hits)
	}
}

func TestRedisCache_GetMissing(t *testing.T) {
	mr, cache := setupMiniRedis(t)
	defer mr.Close()

	if _, found := cache.GetSnapshot("nonexistent"); found {
		t.Error("expected value to not be found")
	}

	stats := cache.Stats()
	if stats.Misses != 1 {
		t.Errorf("expected 1 miss, got %d", stats.Misses)
	}
}

func TestRedisCache_TTL(t *testing.T) {
	mr, cache := setupMiniRedis(t)
	defer mr.Close()

	cache.SetSnapshot(SnapshotKey, sampleSnapshot(), 100*time.Millisecond)

	if _, found := cache.GetSnapshot(SnapshotKey); !found {
		t.Fatal("expected snapshot immediately after set")
	}

	mr.FastForward(200 * time.Millisecond)

	if _, found := cache.GetSnapshot(SnapshotKey); found {
		t.Error("expected snapshot to be expired")
	}
}

func TestRedisCache_Details(t *testing.T) {
	mr, cache := setupMiniRedis(t)
	defer mr.Close()

	details := []carpark.Detail{
		{CarparkID: "A0004", Name: "Aliwal Street", VehicleCategory: "Car", WeekdayRate: "$0.50", Capacity: 69},
	}
	cache.SetDetails(DetailsKey, details, 5*time.Minute)

	got, found := cache.GetDetails(DetailsKey)
	if !found {
		t.Fatal("expected details to be found")
	}
	if len(got) != 1 || got[0].WeekdayRate != "$0.50" {
		t.Errorf("unexpected details: %+v", got)
	}
}

func TestRedisCache_Delete(t *testing.T) {
	mr, cache := setupMiniRedis(t)
	defer mr.Close()

	cache.SetSnapshot(SnapshotKey, sampleSnapshot(), 5*time.Minute)
	cache.Delete(SnapshotKey)

	if _, found := cache.GetSnapshot(SnapshotKey); found {
		t.Error("expected snapshot to be deleted")
	}
}

func TestRedisCache_Clear(t *testing.T) {
	mr, cache := setupMiniRedis(t)
	defer mr.Close()

	cache.SetSnapshot(SnapshotKey, sampleSnapshot(), 5*time.Minute)
	cache.SetDetails(DetailsKey, []carpark.Detail{{CarparkID: "A0004"}}, 5*time.Minute)

	cache.Clear()

	if stats := cache.Stats(); stats.CurrentSize != 0 {
		t.Errorf("expected 0 items after clear, got %d", stats.CurrentSize)
	}
}

func TestRedisCache_HealthCheck(t *testing.T) {
	mr, cache := setupMiniRedis(t)
	defer mr.Close()

	ctx := context.Background()
	if err := cache.HealthCheck(ctx); err != nil {
		t.Errorf("expected healthy Redis, got error: %v", err)
	}

	mr.Close()

	if err := cache.HealthCheck(ctx); err == nil {
		t.Error("expected health check to fail after Redis shutdown")
	}
}
