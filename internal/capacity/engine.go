package capacity

import (
	"fmt"

	"go.uber.org/zap"

	"rackwise-topology/internal/config"
	"rackwise-topology/internal/domain"
	"rackwise-topology/internal/topology"
)

// RackCapacity 机柜 U 位占用视图
type RackCapacity struct {
	RackID         string  `json:"rack_id"`
	RackName       string  `json:"rack_name"`
	SizeU          int     `json:"size_u"`
	OccupiedU      int     `json:"occupied_u"`
	AvailableU     int     `json:"available_u"`
	OccupancyPct   float64 `json:"occupancy_pct"`
	EquipmentCount int     `json:"equipment_count"`
}

// PortUsage 设备端口占用视图
type PortUsage struct {
	EquipmentID string  `json:"equipment_id"`
	TotalPorts  int     `json:"total_ports"`
	UsedPorts   int     `json:"used_ports"`
	UsagePct    float64 `json:"usage_pct"`
}

// PoEUsage 设备 PoE 功耗视图
// 预算 <= 0 的设备不参与 PoE 核算：返回零值记录，不报错，也绝不触发告警。
type PoEUsage struct {
	EquipmentID     string  `json:"equipment_id"`
	UsedWatts       float64 `json:"used_watts"`
	TotalBudget     float64 `json:"total_budget"`
	AvailableWatts  float64 `json:"available_watts"`
	UsagePercentage float64 `json:"usage_percentage"`
	PoEPortCount    int     `json:"poe_port_count"`
}

// Tracked PoE 设备是否参与核算
func (u *PoEUsage) Tracked() bool { return u.TotalBudget > 0 }

// Finding 阈值突破结果（交给告警评估器落库）
type Finding struct {
	AlertType   domain.AlertType
	Severity    domain.AlertSeverity
	EntityKind  string
	EntityID    string
	MeasuredPct float64
	Thresholds  config.Thresholds
	Message     string
}

// Engine 容量引擎
// 全部计算为快照上的纯同步函数；阈值与功耗表由调用方显式传入。
type Engine struct {
	thresholds config.AlertThresholds
	wattage    config.PoEWattageTable
	logger     *zap.Logger
}

// NewEngine 创建容量引擎
func NewEngine(thresholds config.AlertThresholds, wattage config.PoEWattageTable, logger *zap.Logger) *Engine {
	return &Engine{
		thresholds: thresholds,
		wattage:    wattage,
		logger:     logger,
	}
}

// RackCapacity 计算机柜 U 位占用
// occupied_u = Σ(end−start+1)；跨度非法的设备按零宽计入（记日志，不中断），
// 单条坏数据不污染整柜计算。
func (e *Engine) RackCapacity(snap *topology.Snapshot, rackID string) (*RackCapacity, error) {
	rack := snap.Rack(rackID)
	if rack == nil {
		return nil, fmt.Errorf("rack not found: %s", rackID)
	}

	equipment := snap.EquipmentOfRack(rackID)
	occupied := 0
	for _, eq := range equipment {
		w := eq.SpanWidth()
		if w == 0 {
			e.logger.Warn("equipment has malformed u-span, counted as zero width",
				zap.String("equipment_id", eq.EquipmentID),
				zap.Int("position_u_start", eq.PositionUStart),
				zap.Int("position_u_end", eq.PositionUEnd),
			)
			continue
		}
		occupied += w
	}

	rc := &RackCapacity{
		RackID:         rack.RackID,
		RackName:       rack.RackName,
		SizeU:          rack.SizeU,
		OccupiedU:      occupied,
		AvailableU:     rack.SizeU - occupied,
		EquipmentCount: len(equipment),
	}
	if rack.SizeU > 0 {
		rc.OccupancyPct = float64(occupied) / float64(rack.SizeU) * 100
	}
	return rc, nil
}

// PortUsage 计算设备端口占用（in_use / 总端口数）
func (e *Engine) PortUsage(snap *topology.Snapshot, equipmentID string) (*PortUsage, error) {
	if snap.Equipment(equipmentID) == nil {
		return nil, fmt.Errorf("equipment not found: %s", equipmentID)
	}

	ports := snap.PortsOfEquipment(equipmentID)
	used := 0
	for _, p := range ports {
		if domain.PortStatus(p.Status) == domain.PortInUse {
			used++
		}
	}
	pu := &PortUsage{
		EquipmentID: equipmentID,
		TotalPorts:  len(ports),
		UsedPorts:   used,
	}
	if len(ports) > 0 {
		pu.UsagePct = float64(used) / float64(len(ports)) * 100
	}
	return pu, nil
}

// PoEUsage 计算设备 PoE 功耗
// 优先使用显式每端口功耗表（直接求和）；否则对每个占用中的 PoE 供电口，
// 沿其 active 连接找到对端端口的归属设备类型，查功耗表（未知类型 0W）。
// 非 PoE 端口不进分子也不进分母。
func (e *Engine) PoEUsage(snap *topology.Snapshot, equipmentID string) (*PoEUsage, error) {
	eq := snap.Equipment(equipmentID)
	if eq == nil {
		return nil, fmt.Errorf("equipment not found: %s", equipmentID)
	}

	usage := &PoEUsage{EquipmentID: equipmentID}

	// 预算缺失或 <= 0：整机排除在 PoE 核算之外
	if !eq.PoEBudgetWatts.Valid || eq.PoEBudgetWatts.Float64 <= 0 {
		return usage, nil
	}
	usage.TotalBudget = eq.PoEBudgetWatts.Float64

	for _, p := range snap.PortsOfEquipment(equipmentID) {
		if p.Type().IsPoECapable() {
			usage.PoEPortCount++
		}
	}

	if draws, ok := eq.DrawMap(); ok {
		// 显式功耗表直接求和
		for _, w := range draws {
			usage.UsedWatts += w
		}
	} else {
		for _, p := range snap.PortsOfEquipment(equipmentID) {
			if !p.Type().IsPoECapable() {
				continue
			}
			conn := snap.OccupyingConnection(p.PortID)
			if conn == nil || domain.ConnectionStatus(conn.Status) != domain.ConnectionActive {
				continue
			}
			peer := snap.PeerPort(conn, p.PortID)
			if peer == nil {
				continue
			}
			peerEq := snap.Equipment(peer.EquipmentID)
			if peerEq == nil {
				continue
			}
			usage.UsedWatts += e.wattage.DrawFor(peerEq.Type())
		}
	}

	usage.AvailableWatts = usage.TotalBudget - usage.UsedWatts
	usage.UsagePercentage = usage.UsedWatts / usage.TotalBudget * 100
	return usage, nil
}

// severityFor 阈值比较：critical 优先，相等取闭区间
func severityFor(pct float64, th config.Thresholds) (domain.AlertSeverity, bool) {
	if pct >= th.CriticalPct {
		return domain.SeverityCritical, true
	}
	if pct >= th.WarningPct {
		return domain.SeverityWarning, true
	}
	return "", false
}

// EvaluateRack 机柜占用的阈值评估；未突破返回 nil
func (e *Engine) EvaluateRack(rc *RackCapacity) *Finding {
	sev, ok := severityFor(rc.OccupancyPct, e.thresholds.Rack)
	if !ok {
		return nil
	}
	return &Finding{
		AlertType:   domain.AlertRackCapacity,
		Severity:    sev,
		EntityKind:  "rack",
		EntityID:    rc.RackID,
		MeasuredPct: rc.OccupancyPct,
		Thresholds:  e.thresholds.Rack,
		Message: fmt.Sprintf("rack %s at %.1f%% capacity (%d/%dU occupied)",
			rc.RackName, rc.OccupancyPct, rc.OccupiedU, rc.SizeU),
	}
}

// EvaluatePorts 端口占用的阈值评估；未突破返回 nil
func (e *Engine) EvaluatePorts(pu *PortUsage) *Finding {
	if pu.TotalPorts == 0 {
		return nil
	}
	sev, ok := severityFor(pu.UsagePct, e.thresholds.Port)
	if !ok {
		return nil
	}
	return &Finding{
		AlertType:   domain.AlertPortCapacity,
		Severity:    sev,
		EntityKind:  "equipment",
		EntityID:    pu.EquipmentID,
		MeasuredPct: pu.UsagePct,
		Thresholds:  e.thresholds.Port,
		Message: fmt.Sprintf("equipment %s at %.1f%% port usage (%d/%d in use)",
			pu.EquipmentID, pu.UsagePct, pu.UsedPorts, pu.TotalPorts),
	}
}

// EvaluatePoE PoE 功耗的阈值评估；未核算设备和未突破均返回 nil
// 超额是软约束：导入数据导致的瞬时超限要打告警而非拒绝。
func (e *Engine) EvaluatePoE(pu *PoEUsage) *Finding {
	if !pu.Tracked() {
		return nil
	}
	sev, ok := severityFor(pu.UsagePercentage, e.thresholds.PoE)
	if !ok {
		return nil
	}
	return &Finding{
		AlertType:   domain.AlertPoECapacity,
		Severity:    sev,
		EntityKind:  "equipment",
		EntityID:    pu.EquipmentID,
		MeasuredPct: pu.UsagePercentage,
		Thresholds:  e.thresholds.PoE,
		Message: fmt.Sprintf("equipment %s at %.1f%% PoE budget (%.1f/%.1fW)",
			pu.EquipmentID, pu.UsagePercentage, pu.UsedWatts, pu.TotalBudget),
	}
}

// EvaluateAll 全图阈值评估（机柜占用 + 端口占用 + PoE）
// 逐实体评估，单实体失败只记日志不中断。
func (e *Engine) EvaluateAll(snap *topology.Snapshot) []Finding {
	var findings []Finding

	for _, rack := range snap.Racks() {
		rc, err := e.RackCapacity(snap, rack.RackID)
		if err != nil {
			e.logger.Warn("failed to compute rack capacity", zap.String("rack_id", rack.RackID), zap.Error(err))
			continue
		}
		if f := e.EvaluateRack(rc); f != nil {
			findings = append(findings, *f)
		}
	}

	for _, eq := range snap.AllEquipment() {
		pu, err := e.PortUsage(snap, eq.EquipmentID)
		if err == nil {
			if f := e.EvaluatePorts(pu); f != nil {
				findings = append(findings, *f)
			}
		}
		poe, err := e.PoEUsage(snap, eq.EquipmentID)
		if err != nil {
			e.logger.Warn("failed to compute poe usage", zap.String("equipment_id", eq.EquipmentID), zap.Error(err))
			continue
		}
		if f := e.EvaluatePoE(poe); f != nil {
			findings = append(findings, *f)
		}
	}

	return findings
}
