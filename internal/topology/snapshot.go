package topology

import (
	"rackwise-topology/internal/domain"
)

// ProximityTier 物理邻近层级（same_rack > same_room > different_room）
type ProximityTier string

const (
	TierSameRack      ProximityTier = "same_rack"
	TierSameRoom      ProximityTier = "same_room"
	TierDifferentRoom ProximityTier = "different_room"
)

// Snapshot 实体图的时点快照
// 包含归属边（父持子集合：Building→Floor→Room→Rack→Equipment→Port）
// 与引用边（Connection→Port、Port→Equipment）的中心索引。
// 核心计算都是对快照的纯同步函数，快照本身构建后只读。
type Snapshot struct {
	buildings   map[string]*domain.Building
	floors      map[string]*domain.Floor
	rooms       map[string]*domain.Room
	racks       map[string]*domain.Rack
	equipment   map[string]*domain.Equipment
	ports       map[string]*domain.Port
	connections map[string]*domain.Connection

	// 父持子集合（保持加载顺序，候选发现顺序依赖它）
	floorsByBuilding map[string][]string
	roomsByFloor     map[string][]string
	racksByRoom      map[string][]string
	equipByRack      map[string][]string
	portsByEquip     map[string][]string

	// 引用边反查索引
	occupyingConnByPort map[string]*domain.Connection // port_id → active/reserved 连接

	rackOrder  []string
	equipOrder []string
}

// Build 从各实体切片装配快照（切片顺序即发现顺序）
func Build(
	buildings []*domain.Building,
	floors []*domain.Floor,
	rooms []*domain.Room,
	racks []*domain.Rack,
	equipment []*domain.Equipment,
	ports []*domain.Port,
	connections []*domain.Connection,
) *Snapshot {
	s := &Snapshot{
		buildings:           make(map[string]*domain.Building, len(buildings)),
		floors:              make(map[string]*domain.Floor, len(floors)),
		rooms:               make(map[string]*domain.Room, len(rooms)),
		racks:               make(map[string]*domain.Rack, len(racks)),
		equipment:           make(map[string]*domain.Equipment, len(equipment)),
		ports:               make(map[string]*domain.Port, len(ports)),
		connections:         make(map[string]*domain.Connection, len(connections)),
		floorsByBuilding:    make(map[string][]string),
		roomsByFloor:        make(map[string][]string),
		racksByRoom:         make(map[string][]string),
		equipByRack:         make(map[string][]string),
		portsByEquip:        make(map[string][]string),
		occupyingConnByPort: make(map[string]*domain.Connection),
	}

	for _, b := range buildings {
		s.buildings[b.BuildingID] = b
	}
	for _, f := range floors {
		s.floors[f.FloorID] = f
		s.floorsByBuilding[f.BuildingID] = append(s.floorsByBuilding[f.BuildingID], f.FloorID)
	}
	for _, r := range rooms {
		s.rooms[r.RoomID] = r
		s.roomsByFloor[r.FloorID] = append(s.roomsByFloor[r.FloorID], r.RoomID)
	}
	for _, r := range racks {
		s.racks[r.RackID] = r
		s.racksByRoom[r.RoomID] = append(s.racksByRoom[r.RoomID], r.RackID)
		s.rackOrder = append(s.rackOrder, r.RackID)
	}
	for _, e := range equipment {
		s.equipment[e.EquipmentID] = e
		s.equipByRack[e.RackID] = append(s.equipByRack[e.RackID], e.EquipmentID)
		s.equipOrder = append(s.equipOrder, e.EquipmentID)
	}
	for _, p := range ports {
		s.ports[p.PortID] = p
		s.portsByEquip[p.EquipmentID] = append(s.portsByEquip[p.EquipmentID], p.PortID)
	}
	for _, c := range connections {
		s.connections[c.ConnectionID] = c
		if domain.ConnectionStatus(c.Status).Occupies() {
			s.occupyingConnByPort[c.PortAID] = c
			s.occupyingConnByPort[c.PortBID] = c
		}
	}

	return s
}

// Building 按 ID 查楼栋
func (s *Snapshot) Building(id string) *domain.Building { return s.buildings[id] }

// Room 按 ID 查房间
func (s *Snapshot) Room(id string) *domain.Room { return s.rooms[id] }

// Rack 按 ID 查机柜
func (s *Snapshot) Rack(id string) *domain.Rack { return s.racks[id] }

// Equipment 按 ID 查设备
func (s *Snapshot) Equipment(id string) *domain.Equipment { return s.equipment[id] }

// Port 按 ID 查端口
func (s *Snapshot) Port(id string) *domain.Port { return s.ports[id] }

// Connection 按 ID 查连接
func (s *Snapshot) Connection(id string) *domain.Connection { return s.connections[id] }

// Racks 按加载顺序返回全部机柜
func (s *Snapshot) Racks() []*domain.Rack {
	out := make([]*domain.Rack, 0, len(s.rackOrder))
	for _, id := range s.rackOrder {
		out = append(out, s.racks[id])
	}
	return out
}

// AllEquipment 按加载顺序返回全部设备
func (s *Snapshot) AllEquipment() []*domain.Equipment {
	out := make([]*domain.Equipment, 0, len(s.equipOrder))
	for _, id := range s.equipOrder {
		out = append(out, s.equipment[id])
	}
	return out
}

// EquipmentOfRack 机柜内设备（加载顺序）
func (s *Snapshot) EquipmentOfRack(rackID string) []*domain.Equipment {
	ids := s.equipByRack[rackID]
	out := make([]*domain.Equipment, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.equipment[id])
	}
	return out
}

// PortsOfEquipment 设备的端口（加载顺序）
func (s *Snapshot) PortsOfEquipment(equipmentID string) []*domain.Port {
	ids := s.portsByEquip[equipmentID]
	out := make([]*domain.Port, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.ports[id])
	}
	return out
}

// RacksOfBuilding 楼栋下全部机柜（楼层→房间→机柜，加载顺序）
func (s *Snapshot) RacksOfBuilding(buildingID string) []*domain.Rack {
	var out []*domain.Rack
	for _, floorID := range s.floorsByBuilding[buildingID] {
		for _, roomID := range s.roomsByFloor[floorID] {
			for _, rackID := range s.racksByRoom[roomID] {
				out = append(out, s.racks[rackID])
			}
		}
	}
	return out
}

// OccupyingConnection 端口上的 active/reserved 连接；无则返回 nil
func (s *Snapshot) OccupyingConnection(portID string) *domain.Connection {
	return s.occupyingConnByPort[portID]
}

// PeerPort 连接另一端的端口；portID 不属于该连接时返回 nil
func (s *Snapshot) PeerPort(c *domain.Connection, portID string) *domain.Port {
	switch portID {
	case c.PortAID:
		return s.ports[c.PortBID]
	case c.PortBID:
		return s.ports[c.PortAID]
	}
	return nil
}

// IsIsolated 孤立设备：任一端口上都没有 active 连接
func (s *Snapshot) IsIsolated(equipmentID string) bool {
	for _, portID := range s.portsByEquip[equipmentID] {
		if c := s.occupyingConnByPort[portID]; c != nil && domain.ConnectionStatus(c.Status) == domain.ConnectionActive {
			return false
		}
	}
	return true
}

// RoomOfEquipment 设备所在房间 ID；链路断裂返回空串
func (s *Snapshot) RoomOfEquipment(equipmentID string) string {
	e := s.equipment[equipmentID]
	if e == nil {
		return ""
	}
	r := s.racks[e.RackID]
	if r == nil {
		return ""
	}
	return r.RoomID
}

// Proximity 两台设备的物理邻近层级（严格由归属图推导）
func (s *Snapshot) Proximity(srcEquipmentID, dstEquipmentID string) ProximityTier {
	src := s.equipment[srcEquipmentID]
	dst := s.equipment[dstEquipmentID]
	if src != nil && dst != nil && src.RackID == dst.RackID {
		return TierSameRack
	}
	srcRoom := s.RoomOfEquipment(srcEquipmentID)
	dstRoom := s.RoomOfEquipment(dstEquipmentID)
	if srcRoom != "" && srcRoom == dstRoom {
		return TierSameRoom
	}
	return TierDifferentRoom
}
