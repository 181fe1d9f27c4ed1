package topology

import (
	"fmt"

	"rackwise-topology/internal/domain"
)

// ValidateSpan 写入时的 U 位跨度校验（硬失败，与容量计算的容错不同）：
// 跨度必须落在 [1, size_u] 内，且不得与同机柜同安装面的既有设备重叠。
// siblings 为同机柜既有设备（调用方负责排除被更新的设备自身）。
func ValidateSpan(rack *domain.Rack, start, end int, side domain.MountSide, siblings []*domain.Equipment) error {
	if rack == nil {
		return fmt.Errorf("rack is required")
	}
	if start < 1 || end < start {
		return fmt.Errorf("invalid u-span [%d, %d]: start must be >= 1 and end >= start", start, end)
	}
	if end > rack.SizeU {
		return fmt.Errorf("u-span [%d, %d] exceeds rack size %dU", start, end, rack.SizeU)
	}
	for _, sib := range siblings {
		if domain.MountSide(sib.MountSide) != side {
			continue
		}
		// 兄弟设备自身跨度非法时按零宽处理，不参与重叠判断
		if sib.SpanWidth() == 0 {
			continue
		}
		if start <= sib.PositionUEnd && sib.PositionUStart <= end {
			return fmt.Errorf("u-span [%d, %d] overlaps equipment %s at [%d, %d]",
				start, end, sib.EquipmentName, sib.PositionUStart, sib.PositionUEnd)
		}
	}
	return nil
}
