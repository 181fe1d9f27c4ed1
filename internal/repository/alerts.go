package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"rackwise-topology/internal/domain"
)

// AlertsRepository 告警仓库
// 每个 (实体, 告警类型) 至多一条 active 告警：重复触发就地更新阈值快照，
// 不产生重复记录。确认/解决章一经落下只增不改。
type AlertsRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAlertsRepository 创建告警仓库
func NewAlertsRepository(db *sql.DB, logger *zap.Logger) *AlertsRepository {
	return &AlertsRepository{
		db:     db,
		logger: logger,
	}
}

const alertColumns = `alert_id, alert_type, severity, status, entity_kind, entity_id,
	measured_pct, warning_pct, critical_pct, message,
	created_at, acknowledged_at, acknowledged_by, resolved_at, resolved_by, updated_at`

func scanAlert(scanner interface{ Scan(...any) error }) (*domain.Alert, error) {
	var a domain.Alert
	err := scanner.Scan(
		&a.AlertID, &a.AlertType, &a.Severity, &a.Status, &a.EntityKind, &a.EntityID,
		&a.MeasuredPct, &a.WarningPct, &a.CriticalPct, &a.Message,
		&a.CreatedAt, &a.AcknowledgedAt, &a.AcknowledgedBy, &a.ResolvedAt, &a.ResolvedBy, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// GetAlert 按 ID 查告警；查不到返回 (nil, nil)
func (r *AlertsRepository) GetAlert(ctx context.Context, alertID string) (*domain.Alert, error) {
	if alertID == "" {
		return nil, fmt.Errorf("alert_id is required")
	}
	query := fmt.Sprintf(`SELECT %s FROM alerts WHERE alert_id = $1`, alertColumns)
	a, err := scanAlert(r.db.QueryRowContext(ctx, query, alertID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get alert: %w", err)
	}
	return a, nil
}

// GetActiveAlert 查 (实体, 类型) 上的 active 告警；无则返回 (nil, nil)
func (r *AlertsRepository) GetActiveAlert(ctx context.Context, entityKind, entityID string, alertType domain.AlertType) (*domain.Alert, error) {
	if entityKind == "" || entityID == "" {
		return nil, fmt.Errorf("entity_kind and entity_id are required")
	}
	query := fmt.Sprintf(`
		SELECT %s FROM alerts
		WHERE entity_kind = $1 AND entity_id = $2 AND alert_type = $3 AND status = 'active'
		ORDER BY created_at DESC
		LIMIT 1
	`, alertColumns)
	a, err := scanAlert(r.db.QueryRowContext(ctx, query, entityKind, entityID, string(alertType)))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get active alert: %w", err)
	}
	return a, nil
}

// CreateAlert 创建告警（none → active，由容量引擎驱动）
func (r *AlertsRepository) CreateAlert(ctx context.Context, a *domain.Alert) error {
	if a == nil {
		return fmt.Errorf("alert is required")
	}
	if a.EntityKind == "" || a.EntityID == "" {
		return fmt.Errorf("entity_kind and entity_id are required")
	}
	query := `
		INSERT INTO alerts (
			alert_id, alert_type, severity, status, entity_kind, entity_id,
			measured_pct, warning_pct, critical_pct, message, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	`
	_, err := r.db.ExecContext(ctx, query,
		a.AlertID, a.AlertType, a.Severity, a.Status, a.EntityKind, a.EntityID,
		a.MeasuredPct, a.WarningPct, a.CriticalPct, a.Message,
	)
	if err != nil {
		return fmt.Errorf("failed to create alert: %w", err)
	}
	return nil
}

// RefreshActiveAlert 重复触发时就地更新 active 告警的级别与阈值快照
func (r *AlertsRepository) RefreshActiveAlert(ctx context.Context, alertID string, severity domain.AlertSeverity, measuredPct float64, message string) error {
	if alertID == "" {
		return fmt.Errorf("alert_id is required")
	}
	query := `
		UPDATE alerts
		SET severity = $1, measured_pct = $2, message = $3, updated_at = CURRENT_TIMESTAMP
		WHERE alert_id = $4 AND status = 'active'
	`
	result, err := r.db.ExecContext(ctx, query, string(severity), measuredPct, message, alertID)
	if err != nil {
		return fmt.Errorf("failed to refresh alert: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("active alert not found: %s", alertID)
	}
	return nil
}

// AcknowledgeAlert 确认告警（active → acknowledged），落 actor + 时间戳章
func (r *AlertsRepository) AcknowledgeAlert(ctx context.Context, alertID, actor string) error {
	if alertID == "" {
		return fmt.Errorf("alert_id is required")
	}
	if actor == "" {
		return fmt.Errorf("actor is required")
	}
	query := `
		UPDATE alerts
		SET status = 'acknowledged',
		    acknowledged_at = CURRENT_TIMESTAMP,
		    acknowledged_by = $1,
		    updated_at = CURRENT_TIMESTAMP
		WHERE alert_id = $2 AND status = 'active' AND acknowledged_at IS NULL
	`
	result, err := r.db.ExecContext(ctx, query, actor, alertID)
	if err != nil {
		return fmt.Errorf("failed to acknowledge alert: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("alert not found or not active: %s", alertID)
	}
	return nil
}

// ResolveAlert 解决告警（active/acknowledged → resolved），落 actor + 时间戳章
// 允许跳过确认直接解决。
func (r *AlertsRepository) ResolveAlert(ctx context.Context, alertID, actor string) error {
	if alertID == "" {
		return fmt.Errorf("alert_id is required")
	}
	if actor == "" {
		return fmt.Errorf("actor is required")
	}
	query := `
		UPDATE alerts
		SET status = 'resolved',
		    resolved_at = CURRENT_TIMESTAMP,
		    resolved_by = $1,
		    updated_at = CURRENT_TIMESTAMP
		WHERE alert_id = $2 AND status IN ('active', 'acknowledged') AND resolved_at IS NULL
	`
	result, err := r.db.ExecContext(ctx, query, actor, alertID)
	if err != nil {
		return fmt.Errorf("failed to resolve alert: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("alert not found or already resolved: %s", alertID)
	}
	return nil
}

// ListAlerts 按状态列告警（status 为空列全部）
func (r *AlertsRepository) ListAlerts(ctx context.Context, status domain.AlertStatus) ([]*domain.Alert, error) {
	query := fmt.Sprintf(`SELECT %s FROM alerts`, alertColumns)
	args := []any{}
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, string(status))
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	alerts := []*domain.Alert{}
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		alerts = append(alerts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate alerts: %w", err)
	}
	return alerts, nil
}
