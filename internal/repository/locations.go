package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"rackwise-topology/internal/domain"
)

// LocationsRepository 楼栋/楼层/房间仓库
type LocationsRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewLocationsRepository 创建位置仓库
func NewLocationsRepository(db *sql.DB, logger *zap.Logger) *LocationsRepository {
	return &LocationsRepository{
		db:     db,
		logger: logger,
	}
}

// ListBuildings 全部楼栋（按名称排序）
func (r *LocationsRepository) ListBuildings(ctx context.Context) ([]*domain.Building, error) {
	query := `
		SELECT building_id, building_name, address, latitude, longitude, classification, created_at, updated_at
		FROM buildings
		ORDER BY building_name
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query buildings: %w", err)
	}
	defer rows.Close()

	buildings := []*domain.Building{}
	for rows.Next() {
		var b domain.Building
		if err := rows.Scan(&b.BuildingID, &b.BuildingName, &b.Address, &b.Latitude, &b.Longitude, &b.Classification, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan building: %w", err)
		}
		buildings = append(buildings, &b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate buildings: %w", err)
	}
	return buildings, nil
}

// GetBuilding 按 ID 查楼栋；查不到返回 (nil, nil)
func (r *LocationsRepository) GetBuilding(ctx context.Context, buildingID string) (*domain.Building, error) {
	if buildingID == "" {
		return nil, fmt.Errorf("building_id is required")
	}
	query := `
		SELECT building_id, building_name, address, latitude, longitude, classification, created_at, updated_at
		FROM buildings
		WHERE building_id = $1
	`
	var b domain.Building
	err := r.db.QueryRowContext(ctx, query, buildingID).Scan(
		&b.BuildingID, &b.BuildingName, &b.Address, &b.Latitude, &b.Longitude, &b.Classification, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get building: %w", err)
	}
	return &b, nil
}

// CreateBuilding 创建楼栋
func (r *LocationsRepository) CreateBuilding(ctx context.Context, b *domain.Building) error {
	if b == nil {
		return fmt.Errorf("building is required")
	}
	if b.BuildingName == "" {
		return fmt.Errorf("building_name is required")
	}
	query := `
		INSERT INTO buildings (building_id, building_name, address, latitude, longitude, classification, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	`
	_, err := r.db.ExecContext(ctx, query, b.BuildingID, b.BuildingName, b.Address, b.Latitude, b.Longitude, b.Classification)
	if err != nil {
		return fmt.Errorf("failed to create building: %w", err)
	}
	return nil
}

// DeleteBuilding 删除楼栋；仍有楼层时拒绝（附子实体数量）
func (r *LocationsRepository) DeleteBuilding(ctx context.Context, buildingID string) error {
	if buildingID == "" {
		return fmt.Errorf("building_id is required")
	}

	var children int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM floors WHERE building_id = $1`, buildingID,
	).Scan(&children)
	if err != nil {
		return fmt.Errorf("failed to count floors: %w", err)
	}
	if children > 0 {
		return fmt.Errorf("%w: building %s has %d floor(s)", ErrNotEmpty, buildingID, children)
	}

	result, err := r.db.ExecContext(ctx, `DELETE FROM buildings WHERE building_id = $1`, buildingID)
	if err != nil {
		return fmt.Errorf("failed to delete building: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("building not found: %s", buildingID)
	}
	return nil
}

// ListAllFloors 全部楼层（快照装配用）
func (r *LocationsRepository) ListAllFloors(ctx context.Context) ([]*domain.Floor, error) {
	query := `SELECT floor_id, building_id, ordinal FROM floors ORDER BY building_id, ordinal`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query floors: %w", err)
	}
	defer rows.Close()

	floors := []*domain.Floor{}
	for rows.Next() {
		var f domain.Floor
		if err := rows.Scan(&f.FloorID, &f.BuildingID, &f.Ordinal); err != nil {
			return nil, fmt.Errorf("failed to scan floor: %w", err)
		}
		floors = append(floors, &f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate floors: %w", err)
	}
	return floors, nil
}

// ListAllRooms 全部房间（快照装配用）
func (r *LocationsRepository) ListAllRooms(ctx context.Context) ([]*domain.Room, error) {
	query := `SELECT room_id, floor_id, room_name, room_type FROM rooms ORDER BY floor_id, room_name`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query rooms: %w", err)
	}
	defer rows.Close()

	rooms := []*domain.Room{}
	for rows.Next() {
		var rm domain.Room
		if err := rows.Scan(&rm.RoomID, &rm.FloorID, &rm.RoomName, &rm.RoomType); err != nil {
			return nil, fmt.Errorf("failed to scan room: %w", err)
		}
		rooms = append(rooms, &rm)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rooms: %w", err)
	}
	return rooms, nil
}

// ListFloors 楼栋下的楼层（按序号）
func (r *LocationsRepository) ListFloors(ctx context.Context, buildingID string) ([]*domain.Floor, error) {
	if buildingID == "" {
		return nil, fmt.Errorf("building_id is required")
	}
	query := `
		SELECT floor_id, building_id, ordinal
		FROM floors
		WHERE building_id = $1
		ORDER BY ordinal
	`
	rows, err := r.db.QueryContext(ctx, query, buildingID)
	if err != nil {
		return nil, fmt.Errorf("failed to query floors: %w", err)
	}
	defer rows.Close()

	floors := []*domain.Floor{}
	for rows.Next() {
		var f domain.Floor
		if err := rows.Scan(&f.FloorID, &f.BuildingID, &f.Ordinal); err != nil {
			return nil, fmt.Errorf("failed to scan floor: %w", err)
		}
		floors = append(floors, &f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate floors: %w", err)
	}
	return floors, nil
}

// CreateFloor 创建楼层
func (r *LocationsRepository) CreateFloor(ctx context.Context, f *domain.Floor) error {
	if f == nil {
		return fmt.Errorf("floor is required")
	}
	if f.BuildingID == "" {
		return fmt.Errorf("building_id is required")
	}
	query := `INSERT INTO floors (floor_id, building_id, ordinal) VALUES ($1, $2, $3)`
	if _, err := r.db.ExecContext(ctx, query, f.FloorID, f.BuildingID, f.Ordinal); err != nil {
		return fmt.Errorf("failed to create floor: %w", err)
	}
	return nil
}

// DeleteFloor 删除楼层；仍有房间时拒绝
func (r *LocationsRepository) DeleteFloor(ctx context.Context, floorID string) error {
	if floorID == "" {
		return fmt.Errorf("floor_id is required")
	}

	var children int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM rooms WHERE floor_id = $1`, floorID,
	).Scan(&children)
	if err != nil {
		return fmt.Errorf("failed to count rooms: %w", err)
	}
	if children > 0 {
		return fmt.Errorf("%w: floor %s has %d room(s)", ErrNotEmpty, floorID, children)
	}

	result, err := r.db.ExecContext(ctx, `DELETE FROM floors WHERE floor_id = $1`, floorID)
	if err != nil {
		return fmt.Errorf("failed to delete floor: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("floor not found: %s", floorID)
	}
	return nil
}

// ListRooms 楼层下的房间
func (r *LocationsRepository) ListRooms(ctx context.Context, floorID string) ([]*domain.Room, error) {
	if floorID == "" {
		return nil, fmt.Errorf("floor_id is required")
	}
	query := `
		SELECT room_id, floor_id, room_name, room_type
		FROM rooms
		WHERE floor_id = $1
		ORDER BY room_name
	`
	rows, err := r.db.QueryContext(ctx, query, floorID)
	if err != nil {
		return nil, fmt.Errorf("failed to query rooms: %w", err)
	}
	defer rows.Close()

	rooms := []*domain.Room{}
	for rows.Next() {
		var rm domain.Room
		if err := rows.Scan(&rm.RoomID, &rm.FloorID, &rm.RoomName, &rm.RoomType); err != nil {
			return nil, fmt.Errorf("failed to scan room: %w", err)
		}
		rooms = append(rooms, &rm)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rooms: %w", err)
	}
	return rooms, nil
}

// CreateRoom 创建房间
func (r *LocationsRepository) CreateRoom(ctx context.Context, rm *domain.Room) error {
	if rm == nil {
		return fmt.Errorf("room is required")
	}
	if rm.FloorID == "" {
		return fmt.Errorf("floor_id is required")
	}
	query := `INSERT INTO rooms (room_id, floor_id, room_name, room_type) VALUES ($1, $2, $3, $4)`
	if _, err := r.db.ExecContext(ctx, query, rm.RoomID, rm.FloorID, rm.RoomName, rm.RoomType); err != nil {
		return fmt.Errorf("failed to create room: %w", err)
	}
	return nil
}

// DeleteRoom 删除房间；仍有机柜时拒绝
func (r *LocationsRepository) DeleteRoom(ctx context.Context, roomID string) error {
	if roomID == "" {
		return fmt.Errorf("room_id is required")
	}

	var children int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM racks WHERE room_id = $1`, roomID,
	).Scan(&children)
	if err != nil {
		return fmt.Errorf("failed to count racks: %w", err)
	}
	if children > 0 {
		return fmt.Errorf("%w: room %s has %d rack(s)", ErrNotEmpty, roomID, children)
	}

	result, err := r.db.ExecContext(ctx, `DELETE FROM rooms WHERE room_id = $1`, roomID)
	if err != nil {
		return fmt.Errorf("failed to delete room: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("room not found: %s", roomID)
	}
	return nil
}
