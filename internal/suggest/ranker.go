package suggest

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"rackwise-topology/internal/config"
	"rackwise-topology/internal/domain"
	"rackwise-topology/internal/topology"
)

// Suggestion 重新布线建议记录
type Suggestion struct {
	SourceEquipmentID   string                 `json:"source_equipment_id"`
	SourceEquipmentName string                 `json:"source_equipment_name"`
	SourcePortID        string                 `json:"source_port_id"`
	SourcePortName      string                 `json:"source_port_name"`
	TargetEquipmentID   string                 `json:"target_equipment_id"`
	TargetEquipmentName string                 `json:"target_equipment_name"`
	TargetPortID        string                 `json:"target_port_id"`
	TargetPortName      string                 `json:"target_port_name"`
	ProximityTier       topology.ProximityTier `json:"proximity_tier"`
	Reason              string                 `json:"reason"`
	RecommendedCable    string                 `json:"recommended_cable"`
}

// Ranker 端口兼容性与建议排序器
type Ranker struct {
	compat     config.CompatibilityTable
	maxPerPort int
	logger     *zap.Logger
}

// NewRanker 创建排序器
func NewRanker(compat config.CompatibilityTable, maxPerPort int, logger *zap.Logger) *Ranker {
	if maxPerPort <= 0 {
		maxPerPort = 3
	}
	return &Ranker{
		compat:     compat,
		maxPerPort: maxPerPort,
		logger:     logger,
	}
}

// Suggest 为孤立设备集合生成排序后的布线建议
// 排序规则：按邻近层级分档（same_rack > same_room > different_room），
// 档内保持发现顺序（稳定偏序，无次级排序键），每个源端口截断前 maxPerPort 条。
// ctx 取消/超时中止遍历并返回已收集的部分结果，不阻塞。
func (r *Ranker) Suggest(ctx context.Context, snap *topology.Snapshot, isolatedEquipmentIDs []string) []Suggestion {
	if len(isolatedEquipmentIDs) == 0 {
		return []Suggestion{}
	}

	isolated := make(map[string]bool, len(isolatedEquipmentIDs))
	for _, id := range isolatedEquipmentIDs {
		isolated[id] = true
	}

	suggestions := []Suggestion{}
	for _, srcEqID := range isolatedEquipmentIDs {
		srcEq := snap.Equipment(srcEqID)
		if srcEq == nil {
			r.logger.Warn("isolated equipment not in snapshot, skipped", zap.String("equipment_id", srcEqID))
			continue
		}

		for _, srcPort := range snap.PortsOfEquipment(srcEqID) {
			if !srcPort.IsAvailable() {
				continue
			}
			if err := ctx.Err(); err != nil {
				r.logger.Warn("suggestion traversal aborted, returning partial result", zap.Error(err))
				return suggestions
			}
			suggestions = append(suggestions, r.rankTargets(ctx, snap, isolated, srcEq, srcPort)...)
		}
	}
	return suggestions
}

// rankTargets 为单个源端口收集并分档兼容目标
func (r *Ranker) rankTargets(ctx context.Context, snap *topology.Snapshot, isolated map[string]bool, srcEq *domain.Equipment, srcPort *domain.Port) []Suggestion {
	var sameRack, sameRoom, otherRoom []Suggestion

	for _, targetEq := range snap.AllEquipment() {
		if err := ctx.Err(); err != nil {
			break
		}
		// 目标必须是非孤立设备，且不是源设备自身
		if targetEq.EquipmentID == srcEq.EquipmentID || isolated[targetEq.EquipmentID] {
			continue
		}
		for _, targetPort := range snap.PortsOfEquipment(targetEq.EquipmentID) {
			if !targetPort.IsAvailable() {
				continue
			}
			if !r.compat.Compatible(srcPort.Type(), targetPort.Type()) {
				continue
			}

			tier := snap.Proximity(srcEq.EquipmentID, targetEq.EquipmentID)
			s := Suggestion{
				SourceEquipmentID:   srcEq.EquipmentID,
				SourceEquipmentName: srcEq.EquipmentName,
				SourcePortID:        srcPort.PortID,
				SourcePortName:      srcPort.PortName,
				TargetEquipmentID:   targetEq.EquipmentID,
				TargetEquipmentName: targetEq.EquipmentName,
				TargetPortID:        targetPort.PortID,
				TargetPortName:      targetPort.PortName,
				ProximityTier:       tier,
				Reason:              reasonFor(tier, targetEq.EquipmentName, targetPort.PortName),
				RecommendedCable:    CableLabel(srcPort.Type()),
			}
			switch tier {
			case topology.TierSameRack:
				sameRack = append(sameRack, s)
			case topology.TierSameRoom:
				sameRoom = append(sameRoom, s)
			default:
				otherRoom = append(otherRoom, s)
			}
		}
	}

	ranked := append(append(sameRack, sameRoom...), otherRoom...)
	if len(ranked) > r.maxPerPort {
		ranked = ranked[:r.maxPerPort]
	}
	return ranked
}

// CableLabel 线缆建议标签，仅由源端口类型推导（提示性质，不对目标校验）
func CableLabel(pt domain.PortType) string {
	switch pt.Family() {
	case domain.CableCopper:
		return "cat6 copper patch cable"
	case domain.CableFiber:
		return "fiber patch cable (match transceiver)"
	case domain.CableCoax:
		return "coax cable"
	}
	return "verify cable specification"
}

func reasonFor(tier topology.ProximityTier, eqName, portName string) string {
	switch tier {
	case topology.TierSameRack:
		return fmt.Sprintf("same rack: patch to %s port %s", eqName, portName)
	case topology.TierSameRoom:
		return fmt.Sprintf("same room: run to %s port %s", eqName, portName)
	}
	return fmt.Sprintf("different room: cross-room run to %s port %s", eqName, portName)
}
