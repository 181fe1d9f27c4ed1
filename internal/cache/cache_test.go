package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"rackwise-topology/internal/capacity"
	"rackwise-topology/internal/config"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *Manager) {
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	cfg := &config.Config{}
	cfg.Cache.RackKeyPrefix = "rackwise:rack:"
	cfg.Cache.RackSuffix = ":capacity"
	cfg.Cache.PoEKeyPrefix = "rackwise:equipment:"
	cfg.Cache.PoESuffix = ":poe"
	cfg.Cache.TTL = 30

	return mr, NewManager(cfg, redisClient, zap.NewNop())
}

func TestRackCapacityCache_RoundTrip(t *testing.T) {
	mr, m := setupTestRedis(t)
	ctx := context.Background()

	rc := &capacity.RackCapacity{
		RackID:       "rack-1",
		RackName:     "R1",
		SizeU:        42,
		OccupiedU:    13,
		AvailableU:   29,
		OccupancyPct: 30.95,
	}
	require.NoError(t, m.SetRackCapacity(ctx, rc))

	got, err := m.GetRackCapacity(ctx, "rack-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 13, got.OccupiedU)
	assert.Equal(t, "R1", got.RackName)

	// TTL 已设置
	ttl := mr.TTL("rackwise:rack:rack-1:capacity")
	assert.Equal(t, 30*time.Second, ttl)
}

func TestRackCapacityCache_MissIsNotAnError(t *testing.T) {
	_, m := setupTestRedis(t)

	got, err := m.GetRackCapacity(context.Background(), "rack-missing")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRackCapacityCache_Expiry(t *testing.T) {
	mr, m := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, m.SetRackCapacity(ctx, &capacity.RackCapacity{RackID: "rack-1"}))
	mr.FastForward(31 * time.Second)

	got, err := m.GetRackCapacity(ctx, "rack-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestPoEUsageCache_RoundTrip(t *testing.T) {
	_, m := setupTestRedis(t)
	ctx := context.Background()

	pu := &capacity.PoEUsage{
		EquipmentID:     "sw-1",
		UsedWatts:       45.4,
		TotalBudget:     100,
		AvailableWatts:  54.6,
		UsagePercentage: 45.4,
		PoEPortCount:    2,
	}
	require.NoError(t, m.SetPoEUsage(ctx, pu))

	got, err := m.GetPoEUsage(ctx, "sw-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.InDelta(t, 45.4, got.UsedWatts, 0.001)
	assert.True(t, got.Tracked())
}

func TestInvalidateRack(t *testing.T) {
	_, m := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, m.SetRackCapacity(ctx, &capacity.RackCapacity{RackID: "rack-1"}))
	m.InvalidateRack(ctx, "rack-1")

	got, err := m.GetRackCapacity(ctx, "rack-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}
