package domain

import (
	"database/sql"
)

// Building 楼栋领域模型（对应 buildings 表）
type Building struct {
	BuildingID     string          `db:"building_id"`
	BuildingName   string          `db:"building_name"` // NOT NULL
	Address        sql.NullString  `db:"address"`       // nullable
	Latitude       sql.NullFloat64 `db:"latitude"`      // nullable
	Longitude      sql.NullFloat64 `db:"longitude"`     // nullable
	Classification sql.NullString  `db:"classification"` // nullable, 如 "datacenter", "office"
	CreatedAt      sql.NullTime    `db:"created_at"`
	UpdatedAt      sql.NullTime    `db:"updated_at"`
}

// ToJSON 转换为JSON格式（用于HTTP响应）
func (b *Building) ToJSON() map[string]any {
	m := map[string]any{
		"building_id":   b.BuildingID,
		"building_name": b.BuildingName,
	}
	if b.Address.Valid {
		m["address"] = b.Address.String
	}
	if b.Latitude.Valid && b.Longitude.Valid {
		m["latitude"] = b.Latitude.Float64
		m["longitude"] = b.Longitude.Float64
	}
	if b.Classification.Valid {
		m["classification"] = b.Classification.String
	}
	return m
}

// Floor 楼层领域模型（对应 floors 表）
type Floor struct {
	FloorID    string `db:"floor_id"`
	BuildingID string `db:"building_id"` // NOT NULL, FK buildings
	Ordinal    int    `db:"ordinal"`     // 楼层序号
}

// ToJSON 转换为JSON格式
func (f *Floor) ToJSON() map[string]any {
	return map[string]any{
		"floor_id":    f.FloorID,
		"building_id": f.BuildingID,
		"ordinal":     f.Ordinal,
	}
}

// Room 房间领域模型（对应 rooms 表）
type Room struct {
	RoomID   string         `db:"room_id"`
	FloorID  string         `db:"floor_id"` // NOT NULL, FK floors
	RoomName string         `db:"room_name"`
	RoomType sql.NullString `db:"room_type"` // nullable, 如 "server_room", "mdf", "idf"
}

// ToJSON 转换为JSON格式
func (r *Room) ToJSON() map[string]any {
	m := map[string]any{
		"room_id":   r.RoomID,
		"floor_id":  r.FloorID,
		"room_name": r.RoomName,
	}
	if r.RoomType.Valid {
		m["room_type"] = r.RoomType.String
	}
	return m
}
