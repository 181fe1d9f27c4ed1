package evaluator

import (
	"rackwise-topology/internal/domain"
)

// CanTransition 告警状态机合法流转判定
// none → active 由系统（容量引擎）驱动；其余流转由操作者驱动。
// active → resolved 允许跳过 acknowledged。
func CanTransition(from, to domain.AlertStatus) bool {
	switch from {
	case "":
		return to == domain.AlertActive
	case domain.AlertActive:
		return to == domain.AlertAcknowledged || to == domain.AlertResolved
	case domain.AlertAcknowledged:
		return to == domain.AlertResolved
	}
	return false
}
