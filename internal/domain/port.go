package domain

import (
	"database/sql"
)

// Port 端口领域模型（对应 ports 表）
type Port struct {
	PortID      string `db:"port_id"`
	EquipmentID string `db:"equipment_id"` // NOT NULL, FK equipment
	PortName    string `db:"port_name"`    // 名称/编号，如 "ge-0/0/1", "p24"
	PortType    string `db:"port_type"`    // 闭合枚举字符串，见 ParsePortType
	Status      string `db:"status"`       // NOT NULL, default 'available'
}

// Type 返回解析后的端口类型枚举
func (p *Port) Type() PortType {
	return ParsePortType(p.PortType)
}

// IsAvailable 端口可用（可作为连接/建议的目标）
func (p *Port) IsAvailable() bool {
	return PortStatus(p.Status) == PortAvailable
}

// ToJSON 转换为JSON格式
func (p *Port) ToJSON() map[string]any {
	return map[string]any{
		"port_id":      p.PortID,
		"equipment_id": p.EquipmentID,
		"port_name":    p.PortName,
		"port_type":    string(p.Type()),
		"status":       p.Status,
	}
}

// Connection 连接领域模型（对应 connections 表）
// 连接码一经签发不可变更；连接退役走状态流转而非删除（保留历史占用）。
type Connection struct {
	ConnectionID string `db:"connection_id"`
	Code         string `db:"code"`   // UNIQUE, 规范化大写中划线格式
	PortAID      string `db:"port_a_id"` // NOT NULL, FK ports
	PortBID      string `db:"port_b_id"` // NOT NULL, FK ports
	Status       string `db:"status"`    // NOT NULL, default 'active'

	CableType   sql.NullString  `db:"cable_type"`   // nullable, 如 "cat6", "om4_lc"
	CableLength sql.NullFloat64 `db:"cable_length"` // nullable, 米
	CableColor  sql.NullString  `db:"cable_color"`  // nullable

	CreatedAt sql.NullTime `db:"created_at"`
	UpdatedAt sql.NullTime `db:"updated_at"`
}

// ToJSON 转换为JSON格式
func (c *Connection) ToJSON() map[string]any {
	m := map[string]any{
		"connection_id": c.ConnectionID,
		"code":          c.Code,
		"port_a_id":     c.PortAID,
		"port_b_id":     c.PortBID,
		"status":        c.Status,
	}
	if c.CableType.Valid {
		m["cable_type"] = c.CableType.String
	}
	if c.CableLength.Valid {
		m["cable_length"] = c.CableLength.Float64
	}
	if c.CableColor.Valid {
		m["cable_color"] = c.CableColor.String
	}
	return m
}

// ConnectionDetail 连接 + 两端标签的扁平记录（单次 JOIN 取回，供扫码后直接展示）
type ConnectionDetail struct {
	Connection
	EquipmentAName string `db:"equipment_a_name"`
	PortAName      string `db:"port_a_name"`
	EquipmentBName string `db:"equipment_b_name"`
	PortBName      string `db:"port_b_name"`
}

// ToJSON 转换为JSON格式
func (d *ConnectionDetail) ToJSON() map[string]any {
	m := d.Connection.ToJSON()
	m["a"] = map[string]any{"eq": d.EquipmentAName, "p": d.PortAName}
	m["b"] = map[string]any{"eq": d.EquipmentBName, "p": d.PortBName}
	return m
}
