package domain

import (
	"database/sql"
	"time"
)

// Alert 告警领域模型（对应 alerts 表）
// 状态机：active → acknowledged → resolved（允许 active → resolved 跳过确认）。
// 确认/解决一经落章（actor + 时间戳）即只增不改。
type Alert struct {
	AlertID   string `db:"alert_id"`
	AlertType string `db:"alert_type"` // rack_capacity / port_capacity / poe_capacity / equipment_failure
	Severity  string `db:"severity"`   // info / warning / critical
	Status    string `db:"status"`     // active / acknowledged / resolved

	// 关联实体（rack / equipment / port）
	EntityKind string `db:"entity_kind"`
	EntityID   string `db:"entity_id"`

	// 触发时的阈值快照
	MeasuredPct float64 `db:"measured_pct"`
	WarningPct  float64 `db:"warning_pct"`
	CriticalPct float64 `db:"critical_pct"`

	Message sql.NullString `db:"message"`

	CreatedAt      time.Time      `db:"created_at"`
	AcknowledgedAt sql.NullTime   `db:"acknowledged_at"`
	AcknowledgedBy sql.NullString `db:"acknowledged_by"`
	ResolvedAt     sql.NullTime   `db:"resolved_at"`
	ResolvedBy     sql.NullString `db:"resolved_by"`
	UpdatedAt      time.Time      `db:"updated_at"`
}

// ToJSON 转换为JSON格式
func (a *Alert) ToJSON() map[string]any {
	m := map[string]any{
		"alert_id":     a.AlertID,
		"alert_type":   a.AlertType,
		"severity":     a.Severity,
		"status":       a.Status,
		"entity_kind":  a.EntityKind,
		"entity_id":    a.EntityID,
		"measured_pct": a.MeasuredPct,
		"warning_pct":  a.WarningPct,
		"critical_pct": a.CriticalPct,
		"created_at":   a.CreatedAt,
	}
	if a.Message.Valid {
		m["message"] = a.Message.String
	}
	if a.AcknowledgedAt.Valid {
		m["acknowledged_at"] = a.AcknowledgedAt.Time
		m["acknowledged_by"] = a.AcknowledgedBy.String
	}
	if a.ResolvedAt.Valid {
		m["resolved_at"] = a.ResolvedAt.Time
		m["resolved_by"] = a.ResolvedBy.String
	}
	return m
}
