package capacity

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"rackwise-topology/internal/config"
	"rackwise-topology/internal/domain"
	"rackwise-topology/internal/topology"
)

func testThresholds() config.AlertThresholds {
	return config.AlertThresholds{
		Rack: config.Thresholds{WarningPct: 80, CriticalPct: 95},
		Port: config.Thresholds{WarningPct: 80, CriticalPct: 95},
		PoE:  config.Thresholds{WarningPct: 80, CriticalPct: 90},
	}
}

func newTestEngine() *Engine {
	return NewEngine(testThresholds(), config.DefaultWattageTable(), zap.NewNop())
}

func nullFloat(v float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v, Valid: true}
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: true}
}

func TestRackCapacity_OccupiedU(t *testing.T) {
	// 42U 机柜，跨度 [1,2] 和 [10,20] → 占用 2 + 11 = 13U
	snap := topology.Build(
		nil, nil,
		[]*domain.Room{{RoomID: "room-1"}},
		[]*domain.Rack{{RackID: "rack-1", RoomID: "room-1", RackName: "R1", SizeU: 42}},
		[]*domain.Equipment{
			{EquipmentID: "eq-1", RackID: "rack-1", PositionUStart: 1, PositionUEnd: 2},
			{EquipmentID: "eq-2", RackID: "rack-1", PositionUStart: 10, PositionUEnd: 20},
		},
		nil, nil,
	)

	rc, err := newTestEngine().RackCapacity(snap, "rack-1")
	require.NoError(t, err)
	assert.Equal(t, 13, rc.OccupiedU)
	assert.Equal(t, 29, rc.AvailableU)
	assert.Equal(t, 2, rc.EquipmentCount)
	assert.InDelta(t, 30.95, rc.OccupancyPct, 0.01)
}

func TestRackCapacity_MalformedSpanCountsZero(t *testing.T) {
	snap := topology.Build(
		nil, nil, nil,
		[]*domain.Rack{{RackID: "rack-1", RackName: "R1", SizeU: 42}},
		[]*domain.Equipment{
			{EquipmentID: "good", RackID: "rack-1", PositionUStart: 1, PositionUEnd: 4},
			{EquipmentID: "bad", RackID: "rack-1", PositionUStart: 9, PositionUEnd: 3},
		},
		nil, nil,
	)

	rc, err := newTestEngine().RackCapacity(snap, "rack-1")
	require.NoError(t, err)
	assert.Equal(t, 4, rc.OccupiedU, "malformed span must not pollute the total")
	assert.Equal(t, 2, rc.EquipmentCount)
}

func TestRackCapacity_RackNotFound(t *testing.T) {
	snap := topology.Build(nil, nil, nil, nil, nil, nil, nil)
	_, err := newTestEngine().RackCapacity(snap, "rack-missing")
	assert.Error(t, err)
}

func TestPortUsage(t *testing.T) {
	snap := topology.Build(
		nil, nil, nil,
		[]*domain.Rack{{RackID: "rack-1", SizeU: 42}},
		[]*domain.Equipment{{EquipmentID: "sw-1", RackID: "rack-1", PositionUStart: 1, PositionUEnd: 1}},
		[]*domain.Port{
			{PortID: "p1", EquipmentID: "sw-1", Status: "in_use"},
			{PortID: "p2", EquipmentID: "sw-1", Status: "in_use"},
			{PortID: "p3", EquipmentID: "sw-1", Status: "available"},
			{PortID: "p4", EquipmentID: "sw-1", Status: "reserved"},
		},
		nil,
	)

	pu, err := newTestEngine().PortUsage(snap, "sw-1")
	require.NoError(t, err)
	assert.Equal(t, 4, pu.TotalPorts)
	assert.Equal(t, 2, pu.UsedPorts, "reserved does not count as in_use")
	assert.InDelta(t, 50.0, pu.UsagePct, 0.001)
}

func TestPoEUsage_ExplicitDrawMap(t *testing.T) {
	// 预算 100W，显式功耗表 {p1: 30, p2: 15.4} → 已用 45.4W
	eq := &domain.Equipment{
		EquipmentID:    "sw-1",
		RackID:         "rack-1",
		EquipmentType:  "switch",
		PositionUStart: 1, PositionUEnd: 1,
		PoEBudgetWatts: nullFloat(100),
		PortDraws:      nullString(`{"p1": 30, "p2": 15.4}`),
	}
	snap := topology.Build(
		nil, nil, nil,
		[]*domain.Rack{{RackID: "rack-1", SizeU: 42}},
		[]*domain.Equipment{eq},
		[]*domain.Port{
			{PortID: "p1", EquipmentID: "sw-1", PortName: "p1", PortType: "rj45_poe", Status: "in_use"},
			{PortID: "p2", EquipmentID: "sw-1", PortName: "p2", PortType: "rj45_poe", Status: "in_use"},
		},
		nil,
	)

	pu, err := newTestEngine().PoEUsage(snap, "sw-1")
	require.NoError(t, err)
	assert.True(t, pu.Tracked())
	assert.InDelta(t, 45.4, pu.UsedWatts, 0.001)
	assert.InDelta(t, 54.6, pu.AvailableWatts, 0.001)
	assert.InDelta(t, 45.4, pu.UsagePercentage, 0.001)
	assert.Equal(t, 2, pu.PoEPortCount)
}

func TestPoEUsage_InferredFromPeers(t *testing.T) {
	// 无显式功耗表：沿 active 连接按对端设备类型查功耗表
	// camera 12.95W + access_point 25.5W = 38.45W
	snap := topology.Build(
		nil, nil, nil,
		[]*domain.Rack{{RackID: "rack-1", SizeU: 42}},
		[]*domain.Equipment{
			{EquipmentID: "sw-1", RackID: "rack-1", EquipmentType: "switch", PositionUStart: 1, PositionUEnd: 1, PoEBudgetWatts: nullFloat(370)},
			{EquipmentID: "cam-1", RackID: "rack-1", EquipmentType: "camera", PositionUStart: 2, PositionUEnd: 2},
			{EquipmentID: "ap-1", RackID: "rack-1", EquipmentType: "access_point", PositionUStart: 3, PositionUEnd: 3},
		},
		[]*domain.Port{
			{PortID: "sw1-p1", EquipmentID: "sw-1", PortType: "rj45_poe", Status: "in_use"},
			{PortID: "sw1-p2", EquipmentID: "sw-1", PortType: "rj45_poe", Status: "in_use"},
			{PortID: "sw1-p3", EquipmentID: "sw-1", PortType: "sfp", Status: "in_use"}, // 非 PoE 口不计
			{PortID: "cam1-p1", EquipmentID: "cam-1", PortType: "rj45_poe", Status: "in_use"},
			{PortID: "ap1-p1", EquipmentID: "ap-1", PortType: "rj45_poe", Status: "in_use"},
		},
		[]*domain.Connection{
			{ConnectionID: "c1", Code: "CON-1", PortAID: "sw1-p1", PortBID: "cam1-p1", Status: "active"},
			{ConnectionID: "c2", Code: "CON-2", PortAID: "sw1-p2", PortBID: "ap1-p1", Status: "active"},
		},
	)

	pu, err := newTestEngine().PoEUsage(snap, "sw-1")
	require.NoError(t, err)
	assert.InDelta(t, 38.45, pu.UsedWatts, 0.001)
	assert.Equal(t, 2, pu.PoEPortCount)
}

func TestPoEUsage_NoBudgetNotTracked(t *testing.T) {
	snap := topology.Build(
		nil, nil, nil,
		[]*domain.Rack{{RackID: "rack-1", SizeU: 42}},
		[]*domain.Equipment{{EquipmentID: "srv-1", RackID: "rack-1", EquipmentType: "server", PositionUStart: 1, PositionUEnd: 1}},
		nil, nil,
	)

	pu, err := newTestEngine().PoEUsage(snap, "srv-1")
	require.NoError(t, err)
	assert.False(t, pu.Tracked())
	assert.Zero(t, pu.TotalBudget)
	assert.Nil(t, newTestEngine().EvaluatePoE(pu), "untracked equipment never alerts")
}

func TestSeverityThresholds(t *testing.T) {
	e := newTestEngine()

	cases := []struct {
		pct      float64
		severity domain.AlertSeverity
		breach   bool
	}{
		{79.9, "", false},
		{80.0, domain.SeverityWarning, true}, // 阈值相等取闭区间
		{94.9, domain.SeverityWarning, true},
		{95.0, domain.SeverityCritical, true}, // critical 优先于 warning
		{120.0, domain.SeverityCritical, true},
	}
	for _, tc := range cases {
		f := e.EvaluateRack(&RackCapacity{RackID: "rack-1", RackName: "R1", SizeU: 100, OccupancyPct: tc.pct})
		if !tc.breach {
			assert.Nil(t, f, "pct=%.1f", tc.pct)
			continue
		}
		require.NotNil(t, f, "pct=%.1f", tc.pct)
		assert.Equal(t, tc.severity, f.Severity, "pct=%.1f", tc.pct)
		assert.Equal(t, domain.AlertRackCapacity, f.AlertType)
	}
}

func TestEvaluatePorts_EmptyEquipmentNeverAlerts(t *testing.T) {
	f := newTestEngine().EvaluatePorts(&PortUsage{EquipmentID: "sw-1", TotalPorts: 0})
	assert.Nil(t, f)
}

func TestEvaluateAll(t *testing.T) {
	// rack-1 42U 中 41U 占用（97.6% → critical），sw-1 端口 1/1（100% → critical）
	snap := topology.Build(
		nil, nil, nil,
		[]*domain.Rack{{RackID: "rack-1", RackName: "R1", SizeU: 42}},
		[]*domain.Equipment{{EquipmentID: "sw-1", RackID: "rack-1", EquipmentType: "switch", PositionUStart: 1, PositionUEnd: 41}},
		[]*domain.Port{{PortID: "p1", EquipmentID: "sw-1", PortType: "rj45", Status: "in_use"}},
		nil,
	)

	findings := newTestEngine().EvaluateAll(snap)
	require.Len(t, findings, 2)

	byType := map[domain.AlertType]Finding{}
	for _, f := range findings {
		byType[f.AlertType] = f
	}
	assert.Equal(t, domain.SeverityCritical, byType[domain.AlertRackCapacity].Severity)
	assert.Equal(t, domain.SeverityCritical, byType[domain.AlertPortCapacity].Severity)
}
