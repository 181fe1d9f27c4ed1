package domain

// 闭合枚举 + 显式 unknown/other 变体。
// 未知字符串不会报错，而是落到显式的默认分支（0W、空兼容集）。

// EquipmentType 设备类型（closed enumeration）
type EquipmentType string

const (
	EquipmentSwitch     EquipmentType = "switch"
	EquipmentRouter     EquipmentType = "router"
	EquipmentServer     EquipmentType = "server"
	EquipmentPatchPanel EquipmentType = "patch_panel"
	EquipmentFirewall   EquipmentType = "firewall"
	EquipmentPDU        EquipmentType = "pdu"
	EquipmentUPS        EquipmentType = "ups"
	EquipmentCamera     EquipmentType = "camera"
	EquipmentAccessPt   EquipmentType = "access_point"
	EquipmentPhone      EquipmentType = "ip_phone"
	EquipmentStorage    EquipmentType = "storage"
	EquipmentKVM        EquipmentType = "kvm"
	EquipmentOther      EquipmentType = "other"
)

var equipmentTypes = map[EquipmentType]bool{
	EquipmentSwitch: true, EquipmentRouter: true, EquipmentServer: true,
	EquipmentPatchPanel: true, EquipmentFirewall: true, EquipmentPDU: true,
	EquipmentUPS: true, EquipmentCamera: true, EquipmentAccessPt: true,
	EquipmentPhone: true, EquipmentStorage: true, EquipmentKVM: true,
	EquipmentOther: true,
}

// ParseEquipmentType 解析设备类型，未知值归入 other（不报错）
func ParseEquipmentType(s string) EquipmentType {
	t := EquipmentType(s)
	if equipmentTypes[t] {
		return t
	}
	return EquipmentOther
}

// PortType 端口类型（closed enumeration）
type PortType string

const (
	PortRJ45        PortType = "rj45"
	PortRJ45PoE     PortType = "rj45_poe"
	PortRJ45PoEPlus PortType = "rj45_poe_plus"
	PortRJ45PoEPP   PortType = "rj45_poe_plus_plus"
	PortSFP         PortType = "sfp"
	PortSFPPlus     PortType = "sfp_plus"
	PortQSFP        PortType = "qsfp"
	PortFiberLC     PortType = "fiber_lc"
	PortFiberSC     PortType = "fiber_sc"
	PortFiberST     PortType = "fiber_st"
	PortBNC         PortType = "bnc"
	PortUnknown     PortType = "unknown"
)

var portTypes = map[PortType]bool{
	PortRJ45: true, PortRJ45PoE: true, PortRJ45PoEPlus: true, PortRJ45PoEPP: true,
	PortSFP: true, PortSFPPlus: true, PortQSFP: true,
	PortFiberLC: true, PortFiberSC: true, PortFiberST: true,
	PortBNC: true, PortUnknown: true,
}

// ParsePortType 解析端口类型，未知值归入 unknown（不报错）
func ParsePortType(s string) PortType {
	t := PortType(s)
	if portTypes[t] {
		return t
	}
	return PortUnknown
}

// IsPoECapable PoE 供电口固定允许列表（rj45 及其 PoE 变体）
func (t PortType) IsPoECapable() bool {
	switch t {
	case PortRJ45, PortRJ45PoE, PortRJ45PoEPlus, PortRJ45PoEPP:
		return true
	}
	return false
}

// CableFamily 线缆家族（用于布线建议的线缆提示）
type CableFamily string

const (
	CableCopper  CableFamily = "copper"
	CableFiber   CableFamily = "fiber"
	CableCoax    CableFamily = "coax"
	CableUnknown CableFamily = "unknown"
)

// Family 端口类型所属线缆家族
func (t PortType) Family() CableFamily {
	switch t {
	case PortRJ45, PortRJ45PoE, PortRJ45PoEPlus, PortRJ45PoEPP:
		return CableCopper
	case PortSFP, PortSFPPlus, PortQSFP, PortFiberLC, PortFiberSC, PortFiberST:
		return CableFiber
	case PortBNC:
		return CableCoax
	}
	return CableUnknown
}

// PortStatus 端口状态
type PortStatus string

const (
	PortAvailable PortStatus = "available"
	PortInUse     PortStatus = "in_use"
	PortReserved  PortStatus = "reserved"
	PortDisabled  PortStatus = "disabled"
)

// ConnectionStatus 连接状态
type ConnectionStatus string

const (
	ConnectionActive   ConnectionStatus = "active"
	ConnectionInactive ConnectionStatus = "inactive"
	ConnectionReserved ConnectionStatus = "reserved"
	ConnectionTesting  ConnectionStatus = "testing"
	ConnectionFaulty   ConnectionStatus = "faulty"
)

// Occupies active 或 reserved 的连接占用端口（决定端口 in_use）
func (s ConnectionStatus) Occupies() bool {
	return s == ConnectionActive || s == ConnectionReserved
}

// AlertType 告警类型
type AlertType string

const (
	AlertRackCapacity     AlertType = "rack_capacity"
	AlertPortCapacity     AlertType = "port_capacity"
	AlertPoECapacity      AlertType = "poe_capacity"
	AlertEquipmentFailure AlertType = "equipment_failure"
)

// AlertSeverity 告警级别
type AlertSeverity string

const (
	SeverityInfo     AlertSeverity = "info"
	SeverityWarning  AlertSeverity = "warning"
	SeverityCritical AlertSeverity = "critical"
)

// AlertStatus 告警生命周期状态
type AlertStatus string

const (
	AlertActive       AlertStatus = "active"
	AlertAcknowledged AlertStatus = "acknowledged"
	AlertResolved     AlertStatus = "resolved"
)

// MountSide 设备安装面（同一面内的 U 位跨度不得重叠）
type MountSide string

const (
	MountFront MountSide = "front"
	MountRear  MountSide = "rear"
)
