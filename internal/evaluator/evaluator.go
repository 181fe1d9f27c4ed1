package evaluator

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"rackwise-topology/internal/capacity"
	"rackwise-topology/internal/domain"
	"rackwise-topology/internal/repository"
)

// Notifier 告警通知的窄接口（MQTT / 消息网关实现；投递失败不影响落库）
type Notifier interface {
	NotifyAlert(ctx context.Context, alert *domain.Alert) error
}

// Evaluator 告警评估器
// 把容量引擎的阈值突破结果落为告警记录。幂等：同一 (实体, 类型) 已有
// active 告警时就地刷新阈值快照，绝不产生第二条 active 记录。
type Evaluator struct {
	alertsRepo *repository.AlertsRepository
	notifiers  []Notifier
	logger     *zap.Logger
}

// NewEvaluator 创建评估器
func NewEvaluator(alertsRepo *repository.AlertsRepository, logger *zap.Logger, notifiers ...Notifier) *Evaluator {
	return &Evaluator{
		alertsRepo: alertsRepo,
		notifiers:  notifiers,
		logger:     logger,
	}
}

// Apply 将阈值突破结果写入告警存储（none → active 由系统驱动）
// 单条失败只记日志不中断，其余结果继续处理。
func (e *Evaluator) Apply(ctx context.Context, findings []capacity.Finding) []*domain.Alert {
	applied := []*domain.Alert{}
	for i := range findings {
		f := &findings[i]
		alert, err := e.applyOne(ctx, f)
		if err != nil {
			e.logger.Error("failed to apply capacity finding",
				zap.String("alert_type", string(f.AlertType)),
				zap.String("entity_id", f.EntityID),
				zap.Error(err),
			)
			continue
		}
		applied = append(applied, alert)
	}
	return applied
}

func (e *Evaluator) applyOne(ctx context.Context, f *capacity.Finding) (*domain.Alert, error) {
	existing, err := e.alertsRepo.GetActiveAlert(ctx, f.EntityKind, f.EntityID, f.AlertType)
	if err != nil {
		return nil, err
	}

	if existing != nil {
		// 重复触发：就地刷新，不新建
		if err := e.alertsRepo.RefreshActiveAlert(ctx, existing.AlertID, f.Severity, f.MeasuredPct, f.Message); err != nil {
			return nil, err
		}
		existing.Severity = string(f.Severity)
		existing.MeasuredPct = f.MeasuredPct
		return existing, nil
	}

	alert := &domain.Alert{
		AlertID:     uuid.NewString(),
		AlertType:   string(f.AlertType),
		Severity:    string(f.Severity),
		Status:      string(domain.AlertActive),
		EntityKind:  f.EntityKind,
		EntityID:    f.EntityID,
		MeasuredPct: f.MeasuredPct,
		WarningPct:  f.Thresholds.WarningPct,
		CriticalPct: f.Thresholds.CriticalPct,
	}
	alert.Message.String = f.Message
	alert.Message.Valid = f.Message != ""

	if err := e.alertsRepo.CreateAlert(ctx, alert); err != nil {
		return nil, err
	}
	e.logger.Info("alert created",
		zap.String("alert_id", alert.AlertID),
		zap.String("alert_type", alert.AlertType),
		zap.String("severity", alert.Severity),
		zap.String("entity_id", alert.EntityID),
	)
	e.notify(ctx, alert)
	return alert, nil
}

// Acknowledge 确认告警（actor 驱动）
func (e *Evaluator) Acknowledge(ctx context.Context, alertID, actor string) error {
	return e.alertsRepo.AcknowledgeAlert(ctx, alertID, actor)
}

// Resolve 解决告警（actor 驱动，允许跳过确认）
func (e *Evaluator) Resolve(ctx context.Context, alertID, actor string) error {
	return e.alertsRepo.ResolveAlert(ctx, alertID, actor)
}

// notify 通知失败只记日志，不影响告警落库
func (e *Evaluator) notify(ctx context.Context, alert *domain.Alert) {
	for _, n := range e.notifiers {
		if err := n.NotifyAlert(ctx, alert); err != nil {
			e.logger.Warn("alert notification failed",
				zap.String("alert_id", alert.AlertID),
				zap.Error(err),
			)
		}
	}
}
