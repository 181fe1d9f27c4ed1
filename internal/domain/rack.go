package domain

import (
	"database/sql"
	"encoding/json"
)

// Rack 机柜领域模型（对应 racks 表）
type Rack struct {
	RackID   string       `db:"rack_id"`
	RoomID   string       `db:"room_id"`  // NOT NULL, FK rooms
	RackName string       `db:"rack_name"`
	SizeU    int          `db:"size_u"` // NOT NULL, 正整数（常见 6/12/24/42）
	CreatedAt sql.NullTime `db:"created_at"`
	UpdatedAt sql.NullTime `db:"updated_at"`
}

// ToJSON 转换为JSON格式
func (r *Rack) ToJSON() map[string]any {
	return map[string]any{
		"rack_id":   r.RackID,
		"room_id":   r.RoomID,
		"rack_name": r.RackName,
		"size_u":    r.SizeU,
	}
}

// Equipment 设备领域模型（对应 equipment 表）
type Equipment struct {
	EquipmentID   string `db:"equipment_id"`
	RackID        string `db:"rack_id"` // NOT NULL, FK racks
	EquipmentName string `db:"equipment_name"`
	EquipmentType string `db:"equipment_type"` // 闭合枚举字符串，见 ParseEquipmentType

	Manufacturer sql.NullString `db:"manufacturer"` // nullable
	Model        sql.NullString `db:"model"`        // nullable

	// U 位跨度（1-indexed，闭区间，end >= start）
	PositionUStart int    `db:"position_u_start"`
	PositionUEnd   int    `db:"position_u_end"`
	MountSide      string `db:"mount_side"` // NOT NULL, default 'front'

	// PoE 预算（瓦），<= 0 或 NULL 表示不参与 PoE 核算
	PoEBudgetWatts sql.NullFloat64 `db:"poe_budget_watts"`
	// 显式每端口功耗表，JSONB {"port_name": watts}，nullable
	PortDraws sql.NullString `db:"port_draws"`

	CreatedAt sql.NullTime `db:"created_at"`
	UpdatedAt sql.NullTime `db:"updated_at"`
}

// Type 返回解析后的设备类型枚举
func (e *Equipment) Type() EquipmentType {
	return ParseEquipmentType(e.EquipmentType)
}

// SpanWidth 占用的 U 数；跨度非法时返回 0（坏数据不污染整柜计算）
func (e *Equipment) SpanWidth() int {
	if e.PositionUStart < 1 || e.PositionUEnd < e.PositionUStart {
		return 0
	}
	return e.PositionUEnd - e.PositionUStart + 1
}

// DrawMap 解析显式每端口功耗表；无表或解析失败返回 (nil, false)
func (e *Equipment) DrawMap() (map[string]float64, bool) {
	if !e.PortDraws.Valid || e.PortDraws.String == "" {
		return nil, false
	}
	var m map[string]float64
	if err := json.Unmarshal([]byte(e.PortDraws.String), &m); err != nil {
		return nil, false
	}
	return m, true
}

// ToJSON 转换为JSON格式
func (e *Equipment) ToJSON() map[string]any {
	m := map[string]any{
		"equipment_id":     e.EquipmentID,
		"rack_id":          e.RackID,
		"equipment_name":   e.EquipmentName,
		"equipment_type":   string(e.Type()),
		"position_u_start": e.PositionUStart,
		"position_u_end":   e.PositionUEnd,
		"mount_side":       e.MountSide,
	}
	if e.Manufacturer.Valid {
		m["manufacturer"] = e.Manufacturer.String
	}
	if e.Model.Valid {
		m["model"] = e.Model.String
	}
	if e.PoEBudgetWatts.Valid {
		m["poe_budget_watts"] = e.PoEBudgetWatts.Float64
	}
	if draws, ok := e.DrawMap(); ok {
		m["port_draws"] = draws
	}
	return m
}
