package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rackwise-topology/internal/domain"
)

func TestLoad_DefaultValues(t *testing.T) {
	// 清除环境变量
	os.Clearenv()

	cfg, err := Load()
	require.NoError(t, err)
	assert.NotNil(t, cfg)

	// 验证默认值
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "postgres", cfg.Database.User)
	assert.Equal(t, "rackwise", cfg.Database.Database)
	assert.Equal(t, "disable", cfg.Database.SSLMode)

	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 0, cfg.Redis.DB)

	assert.Equal(t, float64(80), cfg.Capacity.Thresholds.Rack.WarningPct)
	assert.Equal(t, float64(95), cfg.Capacity.Thresholds.Rack.CriticalPct)
	assert.Equal(t, float64(90), cfg.Capacity.Thresholds.PoE.CriticalPct)

	assert.Equal(t, 3, cfg.Suggest.MaxPerPort)
	assert.Equal(t, "rackwise:rack:", cfg.Cache.RackKeyPrefix)
	assert.Equal(t, ":capacity", cfg.Cache.RackSuffix)
	assert.Equal(t, 30, cfg.Cache.TTL)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	os.Setenv("DB_HOST", "test-host")
	os.Setenv("DB_NAME", "test-db")
	os.Setenv("RACK_WARNING_PCT", "70")
	os.Setenv("SUGGEST_MAX_PER_PORT", "5")
	os.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "test-host", cfg.Database.Host)
	assert.Equal(t, "test-db", cfg.Database.Database)
	assert.Equal(t, float64(70), cfg.Capacity.Thresholds.Rack.WarningPct)
	assert.Equal(t, 5, cfg.Suggest.MaxPerPort)
	assert.Equal(t, "debug", cfg.Log.Level)

	// 清理环境变量
	os.Clearenv()
}

func TestLoad_WattageOverride(t *testing.T) {
	os.Clearenv()
	os.Setenv("POE_WATTAGE_JSON", `{"camera": 15.5, "made_up_kind": 3}`)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 15.5, cfg.Capacity.Wattage.DrawFor(domain.EquipmentCamera))
	// 未知类型归入 other
	assert.Equal(t, float64(3), cfg.Capacity.Wattage.DrawFor(domain.EquipmentOther))
	// 未覆盖的默认值保留
	assert.Equal(t, 25.5, cfg.Capacity.Wattage.DrawFor(domain.EquipmentAccessPt))

	os.Clearenv()
}

func TestLoad_WattageOverride_Invalid(t *testing.T) {
	os.Clearenv()
	os.Setenv("POE_WATTAGE_JSON", `{not json`)

	cfg, err := Load()
	assert.Error(t, err)
	assert.Nil(t, cfg)

	os.Clearenv()
}

func TestWattageTable_UnknownType(t *testing.T) {
	table := DefaultWattageTable()
	// 缺失键走显式默认分支：0W
	assert.Equal(t, float64(0), table.DrawFor(domain.EquipmentServer))
}

func TestCompatibilityTable(t *testing.T) {
	table := DefaultCompatibilityTable()

	assert.True(t, table.Compatible(domain.PortRJ45, domain.PortRJ45PoE))
	assert.True(t, table.Compatible(domain.PortFiberLC, domain.PortFiberSC))
	assert.True(t, table.Compatible(domain.PortSFP, domain.PortSFP))
	assert.False(t, table.Compatible(domain.PortRJ45, domain.PortSFP))
	// 缺失键返回空集合而非错误
	assert.Empty(t, table.MatesFor(domain.PortUnknown))
	assert.False(t, table.Compatible(domain.PortUnknown, domain.PortRJ45))
}

func TestGetEnv(t *testing.T) {
	os.Clearenv()
	value := getEnv("TEST_KEY", "default-value")
	assert.Equal(t, "default-value", value)

	os.Setenv("TEST_KEY", "env-value")
	value = getEnv("TEST_KEY", "default-value")
	assert.Equal(t, "env-value", value)

	os.Unsetenv("TEST_KEY")
}
