package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"rackwise-topology/internal/cache"
	"rackwise-topology/internal/capacity"
	"rackwise-topology/internal/config"
	"rackwise-topology/internal/domain"
	"rackwise-topology/internal/evaluator"
	"rackwise-topology/internal/importer"
	"rackwise-topology/internal/repository"
	"rackwise-topology/internal/resolver"
	"rackwise-topology/internal/suggest"
	"rackwise-topology/internal/topology"
)

// BuildingCapacity 楼栋容量汇总（按机柜逐一累加）
type BuildingCapacity struct {
	BuildingID   string                   `json:"building_id"`
	BuildingName string                   `json:"building_name"`
	RackCount    int                      `json:"rack_count"`
	TotalU       int                      `json:"total_u"`
	OccupiedU    int                      `json:"occupied_u"`
	OccupancyPct float64                  `json:"occupancy_pct"`
	Racks        []*capacity.RackCapacity `json:"racks"`
}

// ImportSummary 清单导入结果汇总
type ImportSummary struct {
	Total        int                 `json:"total"`
	SuccessCount int                 `json:"success_count"`
	FailedCount  int                 `json:"failed_count"`
	Errors       []importer.RowError `json:"errors"`
}

// TopologyService 拓扑服务：快照装配 + 引擎调度 + 缓存
type TopologyService struct {
	config *config.Config
	logger *zap.Logger

	locations   *repository.LocationsRepository
	racks       *repository.RacksRepository
	equipment   *repository.EquipmentRepository
	ports       *repository.PortsRepository
	connections *repository.ConnectionsRepository
	alerts      *repository.AlertsRepository

	engine    *capacity.Engine
	ranker    *suggest.Ranker
	resolver  *resolver.Resolver
	evaluator *evaluator.Evaluator

	cache *cache.Manager // 可为 nil（Redis 未配置时直接现算）
}

// NewTopologyService 创建拓扑服务
func NewTopologyService(
	cfg *config.Config,
	logger *zap.Logger,
	locations *repository.LocationsRepository,
	racks *repository.RacksRepository,
	equipment *repository.EquipmentRepository,
	ports *repository.PortsRepository,
	connections *repository.ConnectionsRepository,
	alerts *repository.AlertsRepository,
	cacheManager *cache.Manager,
	notifiers ...evaluator.Notifier,
) *TopologyService {
	return &TopologyService{
		config:      cfg,
		logger:      logger,
		locations:   locations,
		racks:       racks,
		equipment:   equipment,
		ports:       ports,
		connections: connections,
		alerts:      alerts,
		engine:      capacity.NewEngine(cfg.Capacity.Thresholds, cfg.Capacity.Wattage, logger),
		ranker:      suggest.NewRanker(cfg.Suggest.Compatibility, cfg.Suggest.MaxPerPort, logger),
		resolver:    resolver.NewResolver(connections, logger),
		evaluator:   evaluator.NewEvaluator(alerts, logger, notifiers...),
		cache:       cacheManager,
	}
}

// LoadSnapshot 装配实体图快照（全量查询，切片顺序即发现顺序）
func (s *TopologyService) LoadSnapshot(ctx context.Context) (*topology.Snapshot, error) {
	buildings, err := s.locations.ListBuildings(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load buildings: %w", err)
	}
	floors, err := s.locations.ListAllFloors(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load floors: %w", err)
	}
	rooms, err := s.locations.ListAllRooms(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load rooms: %w", err)
	}
	racks, err := s.racks.ListRacks(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load racks: %w", err)
	}
	equipment, err := s.equipment.ListEquipment(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load equipment: %w", err)
	}
	ports, err := s.ports.ListPorts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load ports: %w", err)
	}
	connections, err := s.connections.ListConnections(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load connections: %w", err)
	}

	return topology.Build(buildings, floors, rooms, racks, equipment, ports, connections), nil
}

// RackCapacity 机柜容量视图：缓存优先，未命中现算并回填
// 缓存读写失败只记日志，不阻断现算路径。
func (s *TopologyService) RackCapacity(ctx context.Context, rackID string) (*capacity.RackCapacity, error) {
	if s.cache != nil {
		if cached, err := s.cache.GetRackCapacity(ctx, rackID); err != nil {
			s.logger.Warn("rack capacity cache read failed", zap.String("rack_id", rackID), zap.Error(err))
		} else if cached != nil {
			return cached, nil
		}
	}

	snap, err := s.LoadSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	rc, err := s.engine.RackCapacity(snap, rackID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetRackCapacity(ctx, rc); err != nil {
			s.logger.Warn("rack capacity cache write failed", zap.String("rack_id", rackID), zap.Error(err))
		}
	}
	return rc, nil
}

// BuildingCapacity 楼栋容量汇总视图
func (s *TopologyService) BuildingCapacity(ctx context.Context, buildingID string) (*BuildingCapacity, error) {
	snap, err := s.LoadSnapshot(ctx)
	if err != nil {
		return nil, err
	}

	b := snap.Building(buildingID)
	if b == nil {
		return nil, fmt.Errorf("building not found: %s", buildingID)
	}

	bc := &BuildingCapacity{
		BuildingID:   b.BuildingID,
		BuildingName: b.BuildingName,
		Racks:        []*capacity.RackCapacity{},
	}
	for _, rack := range snap.RacksOfBuilding(buildingID) {
		rc, err := s.engine.RackCapacity(snap, rack.RackID)
		if err != nil {
			s.logger.Warn("failed to compute rack capacity for building rollup",
				zap.String("rack_id", rack.RackID), zap.Error(err))
			continue
		}
		bc.RackCount++
		bc.TotalU += rc.SizeU
		bc.OccupiedU += rc.OccupiedU
		bc.Racks = append(bc.Racks, rc)
	}
	if bc.TotalU > 0 {
		bc.OccupancyPct = float64(bc.OccupiedU) / float64(bc.TotalU) * 100
	}
	return bc, nil
}

// PortUsage 设备端口占用视图
func (s *TopologyService) PortUsage(ctx context.Context, equipmentID string) (*capacity.PortUsage, error) {
	snap, err := s.LoadSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	return s.engine.PortUsage(snap, equipmentID)
}

// PoEUsage 设备 PoE 功耗视图：缓存优先，未命中现算并回填
func (s *TopologyService) PoEUsage(ctx context.Context, equipmentID string) (*capacity.PoEUsage, error) {
	if s.cache != nil {
		if cached, err := s.cache.GetPoEUsage(ctx, equipmentID); err != nil {
			s.logger.Warn("poe usage cache read failed", zap.String("equipment_id", equipmentID), zap.Error(err))
		} else if cached != nil {
			return cached, nil
		}
	}

	snap, err := s.LoadSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	pu, err := s.engine.PoEUsage(snap, equipmentID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetPoEUsage(ctx, pu); err != nil {
			s.logger.Warn("poe usage cache write failed", zap.String("equipment_id", equipmentID), zap.Error(err))
		}
	}
	return pu, nil
}

// Suggestions 孤立设备的布线建议
// 孤立集为空时直接返回空结果，不装配快照。
func (s *TopologyService) Suggestions(ctx context.Context) ([]suggest.Suggestion, error) {
	isolated, err := s.equipment.ListIsolatedEquipment(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list isolated equipment: %w", err)
	}
	if len(isolated) == 0 {
		return []suggest.Suggestion{}, nil
	}

	snap, err := s.LoadSnapshot(ctx)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(isolated))
	for _, eq := range isolated {
		ids = append(ids, eq.EquipmentID)
	}

	if s.config.Suggest.TimeoutSeconds > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(s.config.Suggest.TimeoutSeconds)*time.Second)
		defer cancel()
	}
	return s.ranker.Suggest(ctx, snap, ids), nil
}

// ResolveScan 扫码/输入解析：识别 → 规范化 → 查库
func (s *TopologyService) ResolveScan(ctx context.Context, raw string) (*resolver.Resolution, error) {
	return s.resolver.Resolve(ctx, raw)
}

// CreateConnection 建立连接；连接码先规范化再落库
func (s *TopologyService) CreateConnection(ctx context.Context, c *domain.Connection) error {
	c.Code = resolver.Canonicalize(c.Code)
	if err := s.connections.CreateConnection(ctx, c); err != nil {
		return err
	}
	s.invalidateRackOfPorts(ctx, c.PortAID, c.PortBID)
	return nil
}

// ListConnections 全部连接
func (s *TopologyService) ListConnections(ctx context.Context) ([]*domain.Connection, error) {
	return s.connections.ListConnections(ctx)
}

// RetireConnection 连接退役（状态流转，端口回归 available）
func (s *TopologyService) RetireConnection(ctx context.Context, connectionID string, status domain.ConnectionStatus) error {
	detail, err := s.connections.GetConnectionByID(ctx, connectionID)
	if err != nil {
		return err
	}
	if err := s.connections.RetireConnection(ctx, connectionID, status); err != nil {
		return err
	}
	if detail != nil {
		s.invalidateRackOfPorts(ctx, detail.PortAID, detail.PortBID)
	}
	return nil
}

// invalidateRackOfPorts 连接变更后失效涉事机柜的容量缓存（尽力而为）
func (s *TopologyService) invalidateRackOfPorts(ctx context.Context, portIDs ...string) {
	if s.cache == nil {
		return
	}
	seen := map[string]bool{}
	for _, portID := range portIDs {
		p, err := s.ports.GetPort(ctx, portID)
		if err != nil || p == nil {
			continue
		}
		eq, err := s.equipment.GetEquipment(ctx, p.EquipmentID)
		if err != nil || eq == nil {
			continue
		}
		if !seen[eq.RackID] {
			seen[eq.RackID] = true
			s.cache.InvalidateRack(ctx, eq.RackID)
		}
	}
}

// EvaluateCapacity 全图阈值评估并落库告警（定时任务与手动触发共用）
func (s *TopologyService) EvaluateCapacity(ctx context.Context) ([]*domain.Alert, error) {
	snap, err := s.LoadSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	findings := s.engine.EvaluateAll(snap)
	alerts := s.evaluator.Apply(ctx, findings)
	s.logger.Info("capacity evaluation completed",
		zap.Int("findings", len(findings)),
		zap.Int("alerts", len(alerts)),
	)
	return alerts, nil
}

// AcknowledgeAlert 确认告警
func (s *TopologyService) AcknowledgeAlert(ctx context.Context, alertID, actor string) error {
	return s.evaluator.Acknowledge(ctx, alertID, actor)
}

// ResolveAlert 解决告警
func (s *TopologyService) ResolveAlert(ctx context.Context, alertID, actor string) error {
	return s.evaluator.Resolve(ctx, alertID, actor)
}

// ListAlerts 查询告警（status 可为空）
func (s *TopologyService) ListAlerts(ctx context.Context, status domain.AlertStatus) ([]*domain.Alert, error) {
	return s.alerts.ListAlerts(ctx, status)
}

// ImportInventory 导入设备/端口清单
// 逐行落库，单行失败进错误清单不中断；端口按设备名关联本次导入的设备。
func (s *TopologyService) ImportInventory(ctx context.Context, fileBytes []byte) (*ImportSummary, error) {
	parsed, err := importer.ParseInventory(fileBytes)
	if err != nil {
		return nil, err
	}

	summary := &ImportSummary{
		Total:  len(parsed.Equipment) + len(parsed.Ports),
		Errors: append([]importer.RowError{}, parsed.Errors...),
	}
	summary.Total += len(parsed.Errors)

	createdByName := make(map[string]string, len(parsed.Equipment))
	for _, row := range parsed.Equipment {
		rack, err := s.racks.GetRack(ctx, row.Equipment.RackID)
		if err != nil {
			return nil, err
		}
		if rack == nil {
			summary.Errors = append(summary.Errors, importer.RowError{
				Sheet: importer.EquipmentSheetName, Row: row.RowNumber,
				Reason: fmt.Sprintf("rack not found: %s", row.Equipment.RackID),
			})
			continue
		}
		eq := row.Equipment
		if err := s.equipment.CreateEquipment(ctx, rack, &eq); err != nil {
			summary.Errors = append(summary.Errors, importer.RowError{
				Sheet: importer.EquipmentSheetName, Row: row.RowNumber, Reason: err.Error(),
			})
			continue
		}
		createdByName[eq.EquipmentName] = eq.EquipmentID
		summary.SuccessCount++
		if s.cache != nil {
			s.cache.InvalidateRack(ctx, eq.RackID)
		}
	}

	for _, row := range parsed.Ports {
		eqID, ok := createdByName[row.EquipmentName]
		if !ok {
			summary.Errors = append(summary.Errors, importer.RowError{
				Sheet: importer.PortSheetName, Row: row.RowNumber,
				Reason: fmt.Sprintf("equipment not in this import: %s", row.EquipmentName),
			})
			continue
		}
		p := row.Port
		p.EquipmentID = eqID
		if err := s.ports.CreatePort(ctx, &p); err != nil {
			summary.Errors = append(summary.Errors, importer.RowError{
				Sheet: importer.PortSheetName, Row: row.RowNumber, Reason: err.Error(),
			})
			continue
		}
		summary.SuccessCount++
	}

	summary.FailedCount = len(summary.Errors)
	return summary, nil
}

// ExportInventory 导出设备/端口清单 Excel
func (s *TopologyService) ExportInventory(ctx context.Context) ([]byte, error) {
	equipment, err := s.equipment.ListEquipment(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list equipment: %w", err)
	}

	nameByID := make(map[string]string, len(equipment))
	eqData := make([]map[string]any, 0, len(equipment))
	for _, eq := range equipment {
		nameByID[eq.EquipmentID] = eq.EquipmentName
		eqData = append(eqData, eq.ToJSON())
	}

	ports, err := s.ports.ListPorts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list ports: %w", err)
	}
	portData := make([]map[string]any, 0, len(ports))
	for _, p := range ports {
		m := p.ToJSON()
		m["equipment_name"] = nameByID[p.EquipmentID]
		portData = append(portData, m)
	}

	return importer.GenerateInventoryExport(eqData, portData)
}
