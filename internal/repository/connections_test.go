package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"rackwise-topology/internal/domain"
)

func setupMockConnectionsDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *ConnectionsRepository) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	repo := NewConnectionsRepository(db, zap.NewNop())
	return db, mock, repo
}

func detailRows() *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"connection_id", "code", "port_a_id", "port_b_id", "status",
		"cable_type", "cable_length", "cable_color", "created_at", "updated_at",
		"equipment_a_name", "port_a_name", "equipment_b_name", "port_b_name",
	}).AddRow(
		"conn-1", "CON-00042", "p-a", "p-b", "active",
		"cat6", 3.0, "blue", now, now,
		"core-sw-1", "ge-0/0/1", "cam-lobby", "eth0",
	)
}

func TestGetConnectionByCode_Success(t *testing.T) {
	db, mock, repo := setupMockConnectionsDB(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT`).
		WithArgs("CON-00042").
		WillReturnRows(detailRows())

	d, err := repo.GetConnectionByCode(context.Background(), "CON-00042")

	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, "CON-00042", d.Code)
	assert.Equal(t, "core-sw-1", d.EquipmentAName)
	assert.Equal(t, "eth0", d.PortBName)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetConnectionByCode_NotFound(t *testing.T) {
	db, mock, repo := setupMockConnectionsDB(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT`).
		WithArgs("CON-99999").
		WillReturnError(sql.ErrNoRows)

	d, err := repo.GetConnectionByCode(context.Background(), "CON-99999")

	// not-found 是正常值
	require.NoError(t, err)
	assert.Nil(t, d)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateConnection_Success(t *testing.T) {
	db, mock, repo := setupMockConnectionsDB(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT equipment_id, status FROM ports`).
		WithArgs("p-a").
		WillReturnRows(sqlmock.NewRows([]string{"equipment_id", "status"}).AddRow("eq-1", "available"))
	mock.ExpectQuery(`SELECT equipment_id, status FROM ports`).
		WithArgs("p-b").
		WillReturnRows(sqlmock.NewRows([]string{"equipment_id", "status"}).AddRow("eq-2", "available"))
	mock.ExpectExec(`INSERT INTO connections`).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`UPDATE ports SET status`).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	err := repo.CreateConnection(context.Background(), &domain.Connection{
		ConnectionID: "conn-1",
		Code:         "CON-00042",
		PortAID:      "p-a",
		PortBID:      "p-b",
	})

	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateConnection_DuplicateCode(t *testing.T) {
	db, mock, repo := setupMockConnectionsDB(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT equipment_id, status FROM ports`).
		WithArgs("p-a").
		WillReturnRows(sqlmock.NewRows([]string{"equipment_id", "status"}).AddRow("eq-1", "available"))
	mock.ExpectQuery(`SELECT equipment_id, status FROM ports`).
		WithArgs("p-b").
		WillReturnRows(sqlmock.NewRows([]string{"equipment_id", "status"}).AddRow("eq-2", "available"))
	mock.ExpectExec(`INSERT INTO connections`).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "connections_code_key"})
	mock.ExpectRollback()

	err := repo.CreateConnection(context.Background(), &domain.Connection{
		ConnectionID: "conn-2",
		Code:         "CON-00042",
		PortAID:      "p-a",
		PortBID:      "p-b",
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicateCode))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateConnection_PortAlreadyOccupied(t *testing.T) {
	db, mock, repo := setupMockConnectionsDB(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT equipment_id, status FROM ports`).
		WithArgs("p-a").
		WillReturnRows(sqlmock.NewRows([]string{"equipment_id", "status"}).AddRow("eq-1", "in_use"))
	mock.ExpectRollback()

	err := repo.CreateConnection(context.Background(), &domain.Connection{
		ConnectionID: "conn-3",
		Code:         "CON-00043",
		PortAID:      "p-a",
		PortBID:      "p-b",
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPortConflict))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateConnection_SameEquipmentRejected(t *testing.T) {
	db, mock, repo := setupMockConnectionsDB(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT equipment_id, status FROM ports`).
		WithArgs("p-a").
		WillReturnRows(sqlmock.NewRows([]string{"equipment_id", "status"}).AddRow("eq-1", "available"))
	mock.ExpectQuery(`SELECT equipment_id, status FROM ports`).
		WithArgs("p-b").
		WillReturnRows(sqlmock.NewRows([]string{"equipment_id", "status"}).AddRow("eq-1", "available"))
	mock.ExpectRollback()

	err := repo.CreateConnection(context.Background(), &domain.Connection{
		ConnectionID: "conn-4",
		Code:         "CON-00044",
		PortAID:      "p-a",
		PortBID:      "p-b",
	})

	assert.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateConnection_SelfLinkRejected(t *testing.T) {
	db, _, repo := setupMockConnectionsDB(t)
	defer db.Close()

	err := repo.CreateConnection(context.Background(), &domain.Connection{
		ConnectionID: "conn-5",
		Code:         "CON-00045",
		PortAID:      "p-a",
		PortBID:      "p-a",
	})
	assert.Error(t, err)
}

func TestRetireConnection_ReleasesPorts(t *testing.T) {
	db, mock, repo := setupMockConnectionsDB(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT port_a_id, port_b_id FROM connections`).
		WithArgs("conn-1").
		WillReturnRows(sqlmock.NewRows([]string{"port_a_id", "port_b_id"}).AddRow("p-a", "p-b"))
	mock.ExpectExec(`UPDATE connections SET status`).
		WithArgs("inactive", "conn-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE ports SET status`).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	err := repo.RetireConnection(context.Background(), "conn-1", domain.ConnectionInactive)

	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRetireConnection_InvalidStatus(t *testing.T) {
	db, _, repo := setupMockConnectionsDB(t)
	defer db.Close()

	err := repo.RetireConnection(context.Background(), "conn-1", domain.ConnectionActive)
	assert.Error(t, err)
}
