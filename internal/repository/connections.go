package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"rackwise-topology/internal/domain"
)

// ConnectionsRepository 连接仓库
// "单端口至多一条 active 连接"由存储层的部分唯一索引保证；本层只做写前
// 状态校验，并把存储层的冲突拒绝原样转达给调用方。
// 连接退役走状态流转而非删除（保留历史占用）。
type ConnectionsRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewConnectionsRepository 创建连接仓库
func NewConnectionsRepository(db *sql.DB, logger *zap.Logger) *ConnectionsRepository {
	return &ConnectionsRepository{
		db:     db,
		logger: logger,
	}
}

const connectionColumns = `c.connection_id, c.code, c.port_a_id, c.port_b_id, c.status,
	c.cable_type, c.cable_length, c.cable_color, c.created_at, c.updated_at`

// detailQuery 连接 + 两端设备名/端口名的扁平 JOIN（扫码后一次取回即可展示）
const detailQuery = `
	SELECT ` + connectionColumns + `,
		ea.equipment_name AS equipment_a_name,
		pa.port_name AS port_a_name,
		eb.equipment_name AS equipment_b_name,
		pb.port_name AS port_b_name
	FROM connections c
	JOIN ports pa ON c.port_a_id = pa.port_id
	JOIN equipment ea ON pa.equipment_id = ea.equipment_id
	JOIN ports pb ON c.port_b_id = pb.port_id
	JOIN equipment eb ON pb.equipment_id = eb.equipment_id
`

func scanConnectionDetail(scanner interface{ Scan(...any) error }) (*domain.ConnectionDetail, error) {
	var d domain.ConnectionDetail
	err := scanner.Scan(
		&d.ConnectionID, &d.Code, &d.PortAID, &d.PortBID, &d.Status,
		&d.CableType, &d.CableLength, &d.CableColor, &d.CreatedAt, &d.UpdatedAt,
		&d.EquipmentAName, &d.PortAName, &d.EquipmentBName, &d.PortBName,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// GetConnectionByID 按记录 ID 查连接详情；查不到返回 (nil, nil)
func (r *ConnectionsRepository) GetConnectionByID(ctx context.Context, id string) (*domain.ConnectionDetail, error) {
	if id == "" {
		return nil, fmt.Errorf("connection_id is required")
	}
	d, err := scanConnectionDetail(r.db.QueryRowContext(ctx, detailQuery+` WHERE c.connection_id = $1`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get connection: %w", err)
	}
	return d, nil
}

// GetConnectionByCode 按唯一 code 查连接详情（大小写不敏感输入已在解析层规范化）；
// 查不到返回 (nil, nil)
func (r *ConnectionsRepository) GetConnectionByCode(ctx context.Context, code string) (*domain.ConnectionDetail, error) {
	if code == "" {
		return nil, fmt.Errorf("code is required")
	}
	d, err := scanConnectionDetail(r.db.QueryRowContext(ctx, detailQuery+` WHERE c.code = $1`, code))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get connection by code: %w", err)
	}
	return d, nil
}

// ListConnections 全部连接（快照装配用）
func (r *ConnectionsRepository) ListConnections(ctx context.Context) ([]*domain.Connection, error) {
	query := `
		SELECT connection_id, code, port_a_id, port_b_id, status,
			cable_type, cable_length, cable_color, created_at, updated_at
		FROM connections
		ORDER BY created_at, connection_id
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query connections: %w", err)
	}
	defer rows.Close()

	connections := []*domain.Connection{}
	for rows.Next() {
		var c domain.Connection
		err := rows.Scan(
			&c.ConnectionID, &c.Code, &c.PortAID, &c.PortBID, &c.Status,
			&c.CableType, &c.CableLength, &c.CableColor, &c.CreatedAt, &c.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan connection: %w", err)
		}
		connections = append(connections, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate connections: %w", err)
	}
	return connections, nil
}

// CreateConnection 创建连接
// 校验：两端口互异、分属不同设备、均为 available；code 非空且已规范化。
// 并发下两次写同一端口只会有一个成功，最终由存储层唯一索引裁决，
// 冲突以 ErrPortConflict / ErrDuplicateCode 转达。
func (r *ConnectionsRepository) CreateConnection(ctx context.Context, c *domain.Connection) error {
	if c == nil {
		return fmt.Errorf("connection is required")
	}
	if c.Code == "" {
		return fmt.Errorf("code is required")
	}
	if c.PortAID == "" || c.PortBID == "" {
		return fmt.Errorf("both port_a_id and port_b_id are required")
	}
	if c.PortAID == c.PortBID {
		return fmt.Errorf("connection cannot link a port to itself")
	}
	if c.Status == "" {
		c.Status = string(domain.ConnectionActive)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// 写前状态校验（最终保证在存储层）
	var equipA, equipB, statusA, statusB string
	err = tx.QueryRowContext(ctx,
		`SELECT equipment_id, status FROM ports WHERE port_id = $1`, c.PortAID,
	).Scan(&equipA, &statusA)
	if err != nil {
		if err == sql.ErrNoRows {
			return fmt.Errorf("port not found: %s", c.PortAID)
		}
		return fmt.Errorf("failed to check port_a: %w", err)
	}
	err = tx.QueryRowContext(ctx,
		`SELECT equipment_id, status FROM ports WHERE port_id = $1`, c.PortBID,
	).Scan(&equipB, &statusB)
	if err != nil {
		if err == sql.ErrNoRows {
			return fmt.Errorf("port not found: %s", c.PortBID)
		}
		return fmt.Errorf("failed to check port_b: %w", err)
	}
	if equipA == equipB {
		return fmt.Errorf("connection must link ports on two distinct equipment records")
	}
	if domain.PortStatus(statusA) != domain.PortAvailable {
		return fmt.Errorf("%w: port %s is %s", ErrPortConflict, c.PortAID, statusA)
	}
	if domain.PortStatus(statusB) != domain.PortAvailable {
		return fmt.Errorf("%w: port %s is %s", ErrPortConflict, c.PortBID, statusB)
	}

	query := `
		INSERT INTO connections (
			connection_id, code, port_a_id, port_b_id, status,
			cable_type, cable_length, cable_color, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	`
	_, err = tx.ExecContext(ctx, query,
		c.ConnectionID, c.Code, c.PortAID, c.PortBID, c.Status,
		c.CableType, c.CableLength, c.CableColor,
	)
	if err != nil {
		if pqErr, ok := uniqueViolation(err); ok {
			if strings.Contains(pqErr.Constraint, "code") {
				return fmt.Errorf("%w: %s", ErrDuplicateCode, c.Code)
			}
			return fmt.Errorf("%w: %s", ErrPortConflict, pqErr.Detail)
		}
		return fmt.Errorf("failed to create connection: %w", err)
	}

	// 连接占用端口 → in_use
	if domain.ConnectionStatus(c.Status).Occupies() {
		_, err = tx.ExecContext(ctx,
			`UPDATE ports SET status = $1 WHERE port_id IN ($2, $3)`,
			string(domain.PortInUse), c.PortAID, c.PortBID,
		)
		if err != nil {
			return fmt.Errorf("failed to mark ports in_use: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit connection: %w", err)
	}
	return nil
}

// RetireConnection 软退役：状态流转（inactive/faulty/testing），连接码不变，
// 释放的端口回到 available（管理员侧写的 reserved/disabled 不动）。
func (r *ConnectionsRepository) RetireConnection(ctx context.Context, connectionID string, status domain.ConnectionStatus) error {
	if connectionID == "" {
		return fmt.Errorf("connection_id is required")
	}
	switch status {
	case domain.ConnectionInactive, domain.ConnectionFaulty, domain.ConnectionTesting:
	default:
		return fmt.Errorf("invalid retirement status: %s", status)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var portA, portB string
	err = tx.QueryRowContext(ctx,
		`SELECT port_a_id, port_b_id FROM connections WHERE connection_id = $1`, connectionID,
	).Scan(&portA, &portB)
	if err != nil {
		if err == sql.ErrNoRows {
			return fmt.Errorf("connection not found: %s", connectionID)
		}
		return fmt.Errorf("failed to get connection ports: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE connections SET status = $1, updated_at = CURRENT_TIMESTAMP WHERE connection_id = $2`,
		string(status), connectionID,
	)
	if err != nil {
		return fmt.Errorf("failed to retire connection: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE ports SET status = $1 WHERE port_id IN ($2, $3) AND status = $4`,
		string(domain.PortAvailable), portA, portB, string(domain.PortInUse),
	)
	if err != nil {
		return fmt.Errorf("failed to release ports: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit retirement: %w", err)
	}
	return nil
}
