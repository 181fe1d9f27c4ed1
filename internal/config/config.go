package config

import (
	"encoding/json"
	"fmt"
	"os"

	"rackwise-topology/internal/domain"
)

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MaxIdle  int
}

// GetDSN 获取数据库连接字符串
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// RedisConfig Redis配置
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// MQTTConfig MQTT配置（告警通知发布）
type MQTTConfig struct {
	Enabled  bool
	Broker   string
	ClientID string
	Username string
	Password string
	QoS      byte
}

// GatewayConfig 外部消息网关配置（窄接口，投递语义在网关侧）
type GatewayConfig struct {
	Enabled        bool
	BaseURL        string
	APIKey         string
	TimeoutSeconds int
}

// Thresholds 单个指标的告警阈值（百分比）
type Thresholds struct {
	WarningPct  float64
	CriticalPct float64
}

// AlertThresholds 按指标类型独立配置的阈值
type AlertThresholds struct {
	Rack Thresholds
	Port Thresholds
	PoE  Thresholds
}

// PoEWattageTable 设备类型 → 单端口供电瓦数
// 未知类型走显式默认分支（0W），不报错。
type PoEWattageTable map[domain.EquipmentType]float64

// DrawFor 查询设备类型的单端口功耗；缺失键返回 0
func (t PoEWattageTable) DrawFor(et domain.EquipmentType) float64 {
	if w, ok := t[et]; ok {
		return w
	}
	return 0
}

// CompatibilityTable 端口类型 → 可物理对接的端口类型集合（双向表）
// 缺失键返回空集合，不报错。
type CompatibilityTable map[domain.PortType][]domain.PortType

// MatesFor 查询端口类型的兼容集合；缺失键返回空集合
func (t CompatibilityTable) MatesFor(pt domain.PortType) []domain.PortType {
	if mates, ok := t[pt]; ok {
		return mates
	}
	return nil
}

// Compatible 判断两个端口类型是否可对接
func (t CompatibilityTable) Compatible(a, b domain.PortType) bool {
	for _, m := range t.MatesFor(a) {
		if m == b {
			return true
		}
	}
	return false
}

// Config 拓扑服务配置
type Config struct {
	Database DatabaseConfig
	Redis    RedisConfig
	MQTT     MQTTConfig
	Gateway  GatewayConfig

	HTTP struct {
		Addr string
	}

	// 容量/告警配置
	Capacity struct {
		Thresholds          AlertThresholds
		Wattage             PoEWattageTable
		EvalIntervalSeconds int // 周期评估间隔；<= 0 关闭定时评估
	}

	// 布线建议配置
	Suggest struct {
		Compatibility  CompatibilityTable
		MaxPerPort     int // 每个源端口保留的候选数，默认 3
		TimeoutSeconds int // 大端口集遍历的超时上限
	}

	// Redis 缓存配置
	Cache struct {
		RackKeyPrefix string // 机柜容量缓存键前缀，如 "rackwise:rack:"
		RackSuffix    string // 如 ":capacity"
		PoEKeyPrefix  string // PoE 缓存键前缀，如 "rackwise:equipment:"
		PoESuffix     string // 如 ":poe"
		TTL           int    // 缓存 TTL（秒）
	}

	Log struct {
		Level  string
		Format string
	}
}

// DefaultWattageTable 默认 PoE 功耗表（按对端设备类型，瓦）
// 可经 POE_WATTAGE_JSON 覆盖，无需改代码。
func DefaultWattageTable() PoEWattageTable {
	return PoEWattageTable{
		domain.EquipmentCamera:   12.95,
		domain.EquipmentAccessPt: 25.5,
		domain.EquipmentPhone:    7.0,
		domain.EquipmentSwitch:   15.4,
	}
}

// DefaultCompatibilityTable 默认端口兼容表
// 可经 PORT_COMPAT_JSON 覆盖，无需改代码。
func DefaultCompatibilityTable() CompatibilityTable {
	rj45Family := []domain.PortType{domain.PortRJ45, domain.PortRJ45PoE, domain.PortRJ45PoEPlus, domain.PortRJ45PoEPP}
	return CompatibilityTable{
		domain.PortRJ45:        rj45Family,
		domain.PortRJ45PoE:     rj45Family,
		domain.PortRJ45PoEPlus: rj45Family,
		domain.PortRJ45PoEPP:   rj45Family,
		domain.PortSFP:         {domain.PortSFP},
		domain.PortSFPPlus:     {domain.PortSFPPlus, domain.PortSFP},
		domain.PortQSFP:        {domain.PortQSFP},
		// 同一收发器家族内 LC/SC 可经跳线互转
		domain.PortFiberLC: {domain.PortFiberLC, domain.PortFiberSC},
		domain.PortFiberSC: {domain.PortFiberSC, domain.PortFiberLC},
		domain.PortFiberST: {domain.PortFiberST},
		domain.PortBNC:     {domain.PortBNC},
	}
}

// Load 加载配置
func Load() (*Config, error) {
	cfg := &Config{}

	// 从环境变量加载（默认值）
	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = getEnvInt("DB_PORT", 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "rackwise")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = getEnvInt("DB_MAX_CONNS", 10)
	cfg.Database.MaxIdle = getEnvInt("DB_MAX_IDLE", 5)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvInt("REDIS_DB", 0)

	cfg.MQTT.Enabled = getEnv("MQTT_ENABLED", "false") == "true"
	cfg.MQTT.Broker = getEnv("MQTT_BROKER", "tcp://localhost:1883")
	cfg.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", "rackwise-topology")
	cfg.MQTT.Username = getEnv("MQTT_USERNAME", "")
	cfg.MQTT.Password = getEnv("MQTT_PASSWORD", "")
	cfg.MQTT.QoS = byte(getEnvInt("MQTT_QOS", 1))

	cfg.Gateway.Enabled = getEnv("GATEWAY_ENABLED", "false") == "true"
	cfg.Gateway.BaseURL = getEnv("GATEWAY_BASE_URL", "http://localhost:9090")
	cfg.Gateway.APIKey = getEnv("GATEWAY_API_KEY", "")
	cfg.Gateway.TimeoutSeconds = getEnvInt("GATEWAY_TIMEOUT", 10)

	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")

	// 告警阈值（按指标类型独立配置）
	cfg.Capacity.Thresholds.Rack.WarningPct = getEnvFloat("RACK_WARNING_PCT", 80)
	cfg.Capacity.Thresholds.Rack.CriticalPct = getEnvFloat("RACK_CRITICAL_PCT", 95)
	cfg.Capacity.Thresholds.Port.WarningPct = getEnvFloat("PORT_WARNING_PCT", 80)
	cfg.Capacity.Thresholds.Port.CriticalPct = getEnvFloat("PORT_CRITICAL_PCT", 95)
	cfg.Capacity.Thresholds.PoE.WarningPct = getEnvFloat("POE_WARNING_PCT", 80)
	cfg.Capacity.Thresholds.PoE.CriticalPct = getEnvFloat("POE_CRITICAL_PCT", 90)
	cfg.Capacity.EvalIntervalSeconds = getEnvInt("CAPACITY_EVAL_INTERVAL", 300)

	// 查找表：默认值 + 可选 JSON 覆盖
	cfg.Capacity.Wattage = DefaultWattageTable()
	if raw := os.Getenv("POE_WATTAGE_JSON"); raw != "" {
		var override map[string]float64
		if err := json.Unmarshal([]byte(raw), &override); err != nil {
			return nil, fmt.Errorf("invalid POE_WATTAGE_JSON: %w", err)
		}
		for k, v := range override {
			cfg.Capacity.Wattage[domain.ParseEquipmentType(k)] = v
		}
	}

	cfg.Suggest.Compatibility = DefaultCompatibilityTable()
	if raw := os.Getenv("PORT_COMPAT_JSON"); raw != "" {
		var override map[string][]string
		if err := json.Unmarshal([]byte(raw), &override); err != nil {
			return nil, fmt.Errorf("invalid PORT_COMPAT_JSON: %w", err)
		}
		for k, vs := range override {
			mates := make([]domain.PortType, 0, len(vs))
			for _, v := range vs {
				mates = append(mates, domain.ParsePortType(v))
			}
			cfg.Suggest.Compatibility[domain.ParsePortType(k)] = mates
		}
	}
	cfg.Suggest.MaxPerPort = getEnvInt("SUGGEST_MAX_PER_PORT", 3)
	cfg.Suggest.TimeoutSeconds = getEnvInt("SUGGEST_TIMEOUT", 10)

	cfg.Cache.RackKeyPrefix = getEnv("CACHE_RACK_PREFIX", "rackwise:rack:")
	cfg.Cache.RackSuffix = ":capacity"
	cfg.Cache.PoEKeyPrefix = getEnv("CACHE_POE_PREFIX", "rackwise:equipment:")
	cfg.Cache.PoESuffix = ":poe"
	cfg.Cache.TTL = getEnvInt("CACHE_TTL", 30)

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var n int
		if _, err := fmt.Sscanf(value, "%d", &n); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		var f float64
		if _, err := fmt.Sscanf(value, "%f", &f); err == nil {
			return f
		}
	}
	return defaultValue
}
