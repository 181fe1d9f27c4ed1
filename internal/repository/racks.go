package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"rackwise-topology/internal/domain"
)

// RacksRepository 机柜仓库
type RacksRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewRacksRepository 创建机柜仓库
func NewRacksRepository(db *sql.DB, logger *zap.Logger) *RacksRepository {
	return &RacksRepository{
		db:     db,
		logger: logger,
	}
}

const rackColumns = `rack_id, room_id, rack_name, size_u, created_at, updated_at`

func scanRack(scanner interface{ Scan(...any) error }) (*domain.Rack, error) {
	var rk domain.Rack
	if err := scanner.Scan(&rk.RackID, &rk.RoomID, &rk.RackName, &rk.SizeU, &rk.CreatedAt, &rk.UpdatedAt); err != nil {
		return nil, err
	}
	return &rk, nil
}

// GetRack 按 ID 查机柜；查不到返回 (nil, nil)
func (r *RacksRepository) GetRack(ctx context.Context, rackID string) (*domain.Rack, error) {
	if rackID == "" {
		return nil, fmt.Errorf("rack_id is required")
	}
	query := fmt.Sprintf(`SELECT %s FROM racks WHERE rack_id = $1`, rackColumns)
	rk, err := scanRack(r.db.QueryRowContext(ctx, query, rackID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get rack: %w", err)
	}
	return rk, nil
}

// ListRacks 全部机柜（快照装配用，保持稳定顺序）
func (r *RacksRepository) ListRacks(ctx context.Context) ([]*domain.Rack, error) {
	query := fmt.Sprintf(`SELECT %s FROM racks ORDER BY rack_name, rack_id`, rackColumns)
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query racks: %w", err)
	}
	defer rows.Close()

	racks := []*domain.Rack{}
	for rows.Next() {
		rk, err := scanRack(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rack: %w", err)
		}
		racks = append(racks, rk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate racks: %w", err)
	}
	return racks, nil
}

// ListRacksByRoom 房间内的机柜
func (r *RacksRepository) ListRacksByRoom(ctx context.Context, roomID string) ([]*domain.Rack, error) {
	if roomID == "" {
		return nil, fmt.Errorf("room_id is required")
	}
	query := fmt.Sprintf(`SELECT %s FROM racks WHERE room_id = $1 ORDER BY rack_name, rack_id`, rackColumns)
	rows, err := r.db.QueryContext(ctx, query, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to query racks by room: %w", err)
	}
	defer rows.Close()

	racks := []*domain.Rack{}
	for rows.Next() {
		rk, err := scanRack(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rack: %w", err)
		}
		racks = append(racks, rk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate racks: %w", err)
	}
	return racks, nil
}

// CreateRack 创建机柜（size_u 必须为正整数）
func (r *RacksRepository) CreateRack(ctx context.Context, rk *domain.Rack) error {
	if rk == nil {
		return fmt.Errorf("rack is required")
	}
	if rk.RoomID == "" {
		return fmt.Errorf("room_id is required")
	}
	if rk.SizeU < 1 {
		return fmt.Errorf("size_u must be a positive integer, got %d", rk.SizeU)
	}
	query := `
		INSERT INTO racks (rack_id, room_id, rack_name, size_u, created_at, updated_at)
		VALUES ($1, $2, $3, $4, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	`
	if _, err := r.db.ExecContext(ctx, query, rk.RackID, rk.RoomID, rk.RackName, rk.SizeU); err != nil {
		return fmt.Errorf("failed to create rack: %w", err)
	}
	return nil
}

// DeleteRack 删除机柜；仍有设备时拒绝（附子实体数量）
func (r *RacksRepository) DeleteRack(ctx context.Context, rackID string) error {
	if rackID == "" {
		return fmt.Errorf("rack_id is required")
	}

	var children int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM equipment WHERE rack_id = $1`, rackID,
	).Scan(&children)
	if err != nil {
		return fmt.Errorf("failed to count equipment: %w", err)
	}
	if children > 0 {
		return fmt.Errorf("%w: rack %s has %d equipment item(s)", ErrNotEmpty, rackID, children)
	}

	result, err := r.db.ExecContext(ctx, `DELETE FROM racks WHERE rack_id = $1`, rackID)
	if err != nil {
		return fmt.Errorf("failed to delete rack: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("rack not found: %s", rackID)
	}
	return nil
}
