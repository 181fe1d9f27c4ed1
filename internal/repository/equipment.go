package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"rackwise-topology/internal/domain"
	"rackwise-topology/internal/topology"
)

// EquipmentRepository 设备仓库
// U 位跨度重叠在写入时硬拒绝（与容量计算对坏存量数据的容错相对）。
type EquipmentRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewEquipmentRepository 创建设备仓库
func NewEquipmentRepository(db *sql.DB, logger *zap.Logger) *EquipmentRepository {
	return &EquipmentRepository{
		db:     db,
		logger: logger,
	}
}

const equipmentColumns = `equipment_id, rack_id, equipment_name, equipment_type, manufacturer, model,
	position_u_start, position_u_end, mount_side, poe_budget_watts, port_draws, created_at, updated_at`

func scanEquipment(scanner interface{ Scan(...any) error }) (*domain.Equipment, error) {
	var e domain.Equipment
	err := scanner.Scan(
		&e.EquipmentID, &e.RackID, &e.EquipmentName, &e.EquipmentType,
		&e.Manufacturer, &e.Model,
		&e.PositionUStart, &e.PositionUEnd, &e.MountSide,
		&e.PoEBudgetWatts, &e.PortDraws,
		&e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// GetEquipment 按 ID 查设备；查不到返回 (nil, nil)
func (r *EquipmentRepository) GetEquipment(ctx context.Context, equipmentID string) (*domain.Equipment, error) {
	if equipmentID == "" {
		return nil, fmt.Errorf("equipment_id is required")
	}
	query := fmt.Sprintf(`SELECT %s FROM equipment WHERE equipment_id = $1`, equipmentColumns)
	e, err := scanEquipment(r.db.QueryRowContext(ctx, query, equipmentID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get equipment: %w", err)
	}
	return e, nil
}

// ListEquipment 全部设备（快照装配用）
func (r *EquipmentRepository) ListEquipment(ctx context.Context) ([]*domain.Equipment, error) {
	query := fmt.Sprintf(`SELECT %s FROM equipment ORDER BY equipment_name, equipment_id`, equipmentColumns)
	return r.queryEquipment(ctx, query)
}

// ListEquipmentByRack 机柜内设备（按 U 位起点排序）
func (r *EquipmentRepository) ListEquipmentByRack(ctx context.Context, rackID string) ([]*domain.Equipment, error) {
	if rackID == "" {
		return nil, fmt.Errorf("rack_id is required")
	}
	query := fmt.Sprintf(`SELECT %s FROM equipment WHERE rack_id = $1 ORDER BY position_u_start`, equipmentColumns)
	return r.queryEquipment(ctx, query, rackID)
}

// ListIsolatedEquipment 孤立设备：任一端口上都没有 active 连接的设备
func (r *EquipmentRepository) ListIsolatedEquipment(ctx context.Context) ([]*domain.Equipment, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM equipment e
		WHERE NOT EXISTS (
			SELECT 1
			FROM ports p
			JOIN connections c ON (c.port_a_id = p.port_id OR c.port_b_id = p.port_id)
			WHERE p.equipment_id = e.equipment_id
			  AND c.status = 'active'
		)
		ORDER BY equipment_name, equipment_id
	`, equipmentColumns)
	return r.queryEquipment(ctx, query)
}

func (r *EquipmentRepository) queryEquipment(ctx context.Context, query string, args ...any) ([]*domain.Equipment, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query equipment: %w", err)
	}
	defer rows.Close()

	equipment := []*domain.Equipment{}
	for rows.Next() {
		e, err := scanEquipment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan equipment: %w", err)
		}
		equipment = append(equipment, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate equipment: %w", err)
	}
	return equipment, nil
}

// CreateEquipment 创建设备（写入前校验 U 位跨度合法且不与同柜同面设备重叠）
func (r *EquipmentRepository) CreateEquipment(ctx context.Context, rack *domain.Rack, e *domain.Equipment) error {
	if e == nil {
		return fmt.Errorf("equipment is required")
	}
	if rack == nil || e.RackID != rack.RackID {
		return fmt.Errorf("equipment.rack_id must match rack parameter")
	}

	siblings, err := r.ListEquipmentByRack(ctx, e.RackID)
	if err != nil {
		return err
	}
	if err := topology.ValidateSpan(rack, e.PositionUStart, e.PositionUEnd, domain.MountSide(e.MountSide), siblings); err != nil {
		return err
	}

	query := `
		INSERT INTO equipment (
			equipment_id, rack_id, equipment_name, equipment_type, manufacturer, model,
			position_u_start, position_u_end, mount_side, poe_budget_watts, port_draws,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	`
	_, err = r.db.ExecContext(ctx, query,
		e.EquipmentID, e.RackID, e.EquipmentName, string(e.Type()), e.Manufacturer, e.Model,
		e.PositionUStart, e.PositionUEnd, e.MountSide, e.PoEBudgetWatts, e.PortDraws,
	)
	if err != nil {
		return fmt.Errorf("failed to create equipment: %w", err)
	}
	return nil
}

// UpdateEquipment 部分更新（白名单字段）
func (r *EquipmentRepository) UpdateEquipment(ctx context.Context, equipmentID string, updates map[string]any) error {
	if equipmentID == "" {
		return fmt.Errorf("equipment_id is required")
	}
	if len(updates) == 0 {
		return fmt.Errorf("updates cannot be empty")
	}

	allowedFields := map[string]bool{
		"equipment_name":   true,
		"equipment_type":   true,
		"manufacturer":     true,
		"model":            true,
		"poe_budget_watts": true,
		"port_draws":       true,
	}

	setParts := []string{}
	args := []any{}
	argN := 1
	for field, value := range updates {
		if !allowedFields[field] {
			return fmt.Errorf("field '%s' is not allowed to update", field)
		}
		setParts = append(setParts, fmt.Sprintf("%s = $%d", field, argN))
		args = append(args, value)
		argN++
	}
	setParts = append(setParts, "updated_at = CURRENT_TIMESTAMP")

	args = append(args, equipmentID)
	query := fmt.Sprintf(`UPDATE equipment SET %s WHERE equipment_id = $%d`, strings.Join(setParts, ", "), argN)

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update equipment: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("equipment not found: %s", equipmentID)
	}
	return nil
}

// DeleteEquipment 删除设备；仍有端口时拒绝（附子实体数量）
func (r *EquipmentRepository) DeleteEquipment(ctx context.Context, equipmentID string) error {
	if equipmentID == "" {
		return fmt.Errorf("equipment_id is required")
	}

	var children int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM ports WHERE equipment_id = $1`, equipmentID,
	).Scan(&children)
	if err != nil {
		return fmt.Errorf("failed to count ports: %w", err)
	}
	if children > 0 {
		return fmt.Errorf("%w: equipment %s has %d port(s)", ErrNotEmpty, equipmentID, children)
	}

	result, err := r.db.ExecContext(ctx, `DELETE FROM equipment WHERE equipment_id = $1`, equipmentID)
	if err != nil {
		return fmt.Errorf("failed to delete equipment: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("equipment not found: %s", equipmentID)
	}
	return nil
}
