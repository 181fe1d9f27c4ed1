package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"rackwise-topology/internal/domain"
)

// PortsRepository 端口仓库
type PortsRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPortsRepository 创建端口仓库
func NewPortsRepository(db *sql.DB, logger *zap.Logger) *PortsRepository {
	return &PortsRepository{
		db:     db,
		logger: logger,
	}
}

const portColumns = `port_id, equipment_id, port_name, port_type, status`

func scanPort(scanner interface{ Scan(...any) error }) (*domain.Port, error) {
	var p domain.Port
	if err := scanner.Scan(&p.PortID, &p.EquipmentID, &p.PortName, &p.PortType, &p.Status); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetPort 按 ID 查端口；查不到返回 (nil, nil)
func (r *PortsRepository) GetPort(ctx context.Context, portID string) (*domain.Port, error) {
	if portID == "" {
		return nil, fmt.Errorf("port_id is required")
	}
	query := fmt.Sprintf(`SELECT %s FROM ports WHERE port_id = $1`, portColumns)
	p, err := scanPort(r.db.QueryRowContext(ctx, query, portID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get port: %w", err)
	}
	return p, nil
}

// ListPorts 全部端口（快照装配用）
func (r *PortsRepository) ListPorts(ctx context.Context) ([]*domain.Port, error) {
	query := fmt.Sprintf(`SELECT %s FROM ports ORDER BY equipment_id, port_name, port_id`, portColumns)
	return r.queryPorts(ctx, query)
}

// ListPortsByEquipment 设备的端口
func (r *PortsRepository) ListPortsByEquipment(ctx context.Context, equipmentID string) ([]*domain.Port, error) {
	if equipmentID == "" {
		return nil, fmt.Errorf("equipment_id is required")
	}
	query := fmt.Sprintf(`SELECT %s FROM ports WHERE equipment_id = $1 ORDER BY port_name, port_id`, portColumns)
	return r.queryPorts(ctx, query, equipmentID)
}

func (r *PortsRepository) queryPorts(ctx context.Context, query string, args ...any) ([]*domain.Port, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query ports: %w", err)
	}
	defer rows.Close()

	ports := []*domain.Port{}
	for rows.Next() {
		p, err := scanPort(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan port: %w", err)
		}
		ports = append(ports, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate ports: %w", err)
	}
	return ports, nil
}

// CreatePort 创建端口（默认状态 available）
func (r *PortsRepository) CreatePort(ctx context.Context, p *domain.Port) error {
	if p == nil {
		return fmt.Errorf("port is required")
	}
	if p.EquipmentID == "" {
		return fmt.Errorf("equipment_id is required")
	}
	if p.Status == "" {
		p.Status = string(domain.PortAvailable)
	}
	query := `INSERT INTO ports (port_id, equipment_id, port_name, port_type, status) VALUES ($1, $2, $3, $4, $5)`
	if _, err := r.db.ExecContext(ctx, query, p.PortID, p.EquipmentID, p.PortName, string(p.Type()), p.Status); err != nil {
		return fmt.Errorf("failed to create port: %w", err)
	}
	return nil
}

// UpdatePortStatus 端口状态流转
// in_use/available 由连接生命周期驱动；reserved/disabled 是管理员侧写，
// 与连接存在性无关。
func (r *PortsRepository) UpdatePortStatus(ctx context.Context, portID string, status domain.PortStatus) error {
	if portID == "" {
		return fmt.Errorf("port_id is required")
	}
	switch status {
	case domain.PortAvailable, domain.PortInUse, domain.PortReserved, domain.PortDisabled:
	default:
		return fmt.Errorf("invalid port status: %s", status)
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE ports SET status = $1 WHERE port_id = $2`, string(status), portID)
	if err != nil {
		return fmt.Errorf("failed to update port status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("port not found: %s", portID)
	}
	return nil
}

// DeletePort 删除端口；被连接引用时拒绝
func (r *PortsRepository) DeletePort(ctx context.Context, portID string) error {
	if portID == "" {
		return fmt.Errorf("port_id is required")
	}

	var refs int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM connections WHERE port_a_id = $1 OR port_b_id = $1`, portID,
	).Scan(&refs)
	if err != nil {
		return fmt.Errorf("failed to count connections: %w", err)
	}
	if refs > 0 {
		return fmt.Errorf("%w: port %s is referenced by %d connection(s)", ErrNotEmpty, portID, refs)
	}

	result, err := r.db.ExecContext(ctx, `DELETE FROM ports WHERE port_id = $1`, portID)
	if err != nil {
		return fmt.Errorf("failed to delete port: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("port not found: %s", portID)
	}
	return nil
}
