package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"rackwise-topology/internal/capacity"
	"rackwise-topology/internal/config"
)

// Manager Redis 缓存管理器（容量视图的短 TTL 缓存）
// 缓存未命中或 Redis 故障都不是错误路径的一部分：调用方回退到现算。
type Manager struct {
	config      *config.Config
	redisClient *redis.Client
	logger      *zap.Logger
}

// NewManager 创建缓存管理器
func NewManager(cfg *config.Config, redisClient *redis.Client, logger *zap.Logger) *Manager {
	return &Manager{
		config:      cfg,
		redisClient: redisClient,
		logger:      logger,
	}
}

func (m *Manager) rackKey(rackID string) string {
	return fmt.Sprintf("%s%s%s", m.config.Cache.RackKeyPrefix, rackID, m.config.Cache.RackSuffix)
}

func (m *Manager) poeKey(equipmentID string) string {
	return fmt.Sprintf("%s%s%s", m.config.Cache.PoEKeyPrefix, equipmentID, m.config.Cache.PoESuffix)
}

// GetRackCapacity 读机柜容量缓存；未命中返回 (nil, nil)
func (m *Manager) GetRackCapacity(ctx context.Context, rackID string) (*capacity.RackCapacity, error) {
	val, err := m.redisClient.Get(ctx, m.rackKey(rackID)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get rack capacity cache: %w", err)
	}
	var rc capacity.RackCapacity
	if err := json.Unmarshal([]byte(val), &rc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal rack capacity cache: %w", err)
	}
	return &rc, nil
}

// SetRackCapacity 写机柜容量缓存（短 TTL）
func (m *Manager) SetRackCapacity(ctx context.Context, rc *capacity.RackCapacity) error {
	jsonData, err := json.Marshal(rc)
	if err != nil {
		return fmt.Errorf("failed to marshal rack capacity: %w", err)
	}
	ttl := time.Duration(m.config.Cache.TTL) * time.Second
	if err := m.redisClient.Set(ctx, m.rackKey(rc.RackID), jsonData, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set rack capacity cache: %w", err)
	}
	return nil
}

// GetPoEUsage 读 PoE 功耗缓存；未命中返回 (nil, nil)
func (m *Manager) GetPoEUsage(ctx context.Context, equipmentID string) (*capacity.PoEUsage, error) {
	val, err := m.redisClient.Get(ctx, m.poeKey(equipmentID)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get poe usage cache: %w", err)
	}
	var pu capacity.PoEUsage
	if err := json.Unmarshal([]byte(val), &pu); err != nil {
		return nil, fmt.Errorf("failed to unmarshal poe usage cache: %w", err)
	}
	return &pu, nil
}

// SetPoEUsage 写 PoE 功耗缓存（短 TTL）
func (m *Manager) SetPoEUsage(ctx context.Context, pu *capacity.PoEUsage) error {
	jsonData, err := json.Marshal(pu)
	if err != nil {
		return fmt.Errorf("failed to marshal poe usage: %w", err)
	}
	ttl := time.Duration(m.config.Cache.TTL) * time.Second
	if err := m.redisClient.Set(ctx, m.poeKey(pu.EquipmentID), jsonData, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set poe usage cache: %w", err)
	}
	return nil
}

// InvalidateRack 设备变更后主动失效机柜缓存
func (m *Manager) InvalidateRack(ctx context.Context, rackID string) {
	if err := m.redisClient.Del(ctx, m.rackKey(rackID)).Err(); err != nil {
		m.logger.Warn("failed to invalidate rack capacity cache",
			zap.String("rack_id", rackID),
			zap.Error(err),
		)
	}
}
