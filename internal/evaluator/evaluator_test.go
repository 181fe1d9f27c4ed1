package evaluator

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"rackwise-topology/internal/capacity"
	"rackwise-topology/internal/config"
	"rackwise-topology/internal/domain"
	"rackwise-topology/internal/repository"
)

// recordingNotifier 记录投递并可注入失败
type recordingNotifier struct {
	delivered []*domain.Alert
	err       error
}

func (n *recordingNotifier) NotifyAlert(ctx context.Context, alert *domain.Alert) error {
	if n.err != nil {
		return n.err
	}
	n.delivered = append(n.delivered, alert)
	return nil
}

func setupEvaluator(t *testing.T, notifiers ...Notifier) (*sql.DB, sqlmock.Sqlmock, *Evaluator) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	repo := repository.NewAlertsRepository(db, zap.NewNop())
	return db, mock, NewEvaluator(repo, zap.NewNop(), notifiers...)
}

func rackFinding(pct float64, severity domain.AlertSeverity) capacity.Finding {
	return capacity.Finding{
		AlertType:   domain.AlertRackCapacity,
		Severity:    severity,
		EntityKind:  "rack",
		EntityID:    "rack-1",
		MeasuredPct: pct,
		Thresholds:  config.Thresholds{WarningPct: 80, CriticalPct: 95},
		Message:     fmt.Sprintf("rack R1 at %.1f%% capacity", pct),
	}
}

func activeAlertRows(alertID string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"alert_id", "alert_type", "severity", "status", "entity_kind", "entity_id",
		"measured_pct", "warning_pct", "critical_pct", "message",
		"created_at", "acknowledged_at", "acknowledged_by", "resolved_at", "resolved_by", "updated_at",
	}).AddRow(
		alertID, "rack_capacity", "warning", "active", "rack", "rack-1",
		85.0, 80.0, 95.0, "rack R1 at 85.0% capacity",
		now, nil, nil, nil, nil, now,
	)
}

func TestApply_CreatesAlertAndNotifies(t *testing.T) {
	notifier := &recordingNotifier{}
	db, mock, e := setupEvaluator(t, notifier)
	defer db.Close()

	// 无 active 告警 → 新建
	mock.ExpectQuery(`SELECT`).
		WithArgs("rack", "rack-1", "rack_capacity").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(`INSERT INTO alerts`).
		WillReturnResult(sqlmock.NewResult(1, 1))

	alerts := e.Apply(context.Background(), []capacity.Finding{rackFinding(85, domain.SeverityWarning)})

	require.Len(t, alerts, 1)
	assert.Equal(t, string(domain.AlertActive), alerts[0].Status)
	assert.Equal(t, "rack-1", alerts[0].EntityID)
	assert.NotEmpty(t, alerts[0].AlertID)

	require.Len(t, notifier.delivered, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApply_RetriggerRefreshesInPlace(t *testing.T) {
	db, mock, e := setupEvaluator(t)
	defer db.Close()

	// 已有 active 告警 → 就地刷新，不 INSERT
	mock.ExpectQuery(`SELECT`).
		WithArgs("rack", "rack-1", "rack_capacity").
		WillReturnRows(activeAlertRows("alert-1"))
	mock.ExpectExec(`UPDATE alerts`).
		WithArgs("critical", 96.5, "rack R1 at 96.5% capacity", "alert-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	alerts := e.Apply(context.Background(), []capacity.Finding{rackFinding(96.5, domain.SeverityCritical)})

	require.Len(t, alerts, 1)
	assert.Equal(t, "alert-1", alerts[0].AlertID, "re-trigger must not mint a second active alert")
	assert.Equal(t, string(domain.SeverityCritical), alerts[0].Severity)
	assert.Equal(t, 96.5, alerts[0].MeasuredPct)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApply_NotifierFailureDoesNotBlockPersistence(t *testing.T) {
	failing := &recordingNotifier{err: fmt.Errorf("broker down")}
	db, mock, e := setupEvaluator(t, failing)
	defer db.Close()

	mock.ExpectQuery(`SELECT`).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(`INSERT INTO alerts`).
		WillReturnResult(sqlmock.NewResult(1, 1))

	alerts := e.Apply(context.Background(), []capacity.Finding{rackFinding(85, domain.SeverityWarning)})

	require.Len(t, alerts, 1, "delivery failure must not affect persistence")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApply_SingleFailureDoesNotAbortBatch(t *testing.T) {
	db, mock, e := setupEvaluator(t)
	defer db.Close()

	// 第一条落库失败，第二条照常处理
	mock.ExpectQuery(`SELECT`).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(`INSERT INTO alerts`).
		WillReturnError(fmt.Errorf("disk full"))
	mock.ExpectQuery(`SELECT`).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(`INSERT INTO alerts`).
		WillReturnResult(sqlmock.NewResult(1, 1))

	second := rackFinding(85, domain.SeverityWarning)
	second.EntityID = "rack-2"

	alerts := e.Apply(context.Background(), []capacity.Finding{
		rackFinding(85, domain.SeverityWarning),
		second,
	})

	require.Len(t, alerts, 1)
	assert.Equal(t, "rack-2", alerts[0].EntityID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to domain.AlertStatus
		ok       bool
	}{
		{"", domain.AlertActive, true},
		{domain.AlertActive, domain.AlertAcknowledged, true},
		{domain.AlertActive, domain.AlertResolved, true}, // 允许跳过确认
		{domain.AlertAcknowledged, domain.AlertResolved, true},
		{domain.AlertResolved, domain.AlertActive, false},
		{domain.AlertAcknowledged, domain.AlertActive, false},
		{domain.AlertResolved, domain.AlertAcknowledged, false},
		{domain.AlertActive, domain.AlertActive, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.ok, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}
