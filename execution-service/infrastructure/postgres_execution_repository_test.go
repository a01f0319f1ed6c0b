package infrastructure

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/grupo99/execution-system/execution-service/domain"
	"github.com/grupo99/execution-system/shared/models"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockRepository(t *testing.T) (*PostgresExecutionRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewPostgresExecutionRepository(sqlx.NewDb(db, "postgres")), mock
}

func newTestExecution(t *testing.T) *domain.Execution {
	t.Helper()
	execution, err := domain.NewExecution(models.GenerateUUID(), "joao")
	require.NoError(t, err)
	return execution
}

func TestPostgresExecutionRepository_SaveInsertsNewExecution(t *testing.T) {
	repo, mock := newMockRepository(t)
	execution := newTestExecution(t)
	diagnosis, err := domain.NewDiagnosis("worn brake pads", "joao", "")
	require.NoError(t, err)
	require.NoError(t, execution.AddDiagnosis(diagnosis))

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO executions").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO execution_diagnoses").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Save(context.Background(), execution))

	assert.Equal(t, 1, execution.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresExecutionRepository_SaveRejectsSecondExecutionForOrder(t *testing.T) {
	repo, mock := newMockRepository(t)
	execution := newTestExecution(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO executions").
		WillReturnError(&pq.Error{Code: "23505", Constraint: orderIDUniqueConstraint})
	mock.ExpectRollback()

	err := repo.Save(context.Background(), execution)

	assert.ErrorIs(t, err, domain.ErrExecutionExists)
	assert.Equal(t, 0, execution.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresExecutionRepository_SaveDetectsConcurrentUpdate(t *testing.T) {
	repo, mock := newMockRepository(t)
	execution := newTestExecution(t)
	execution.Version = 2
	require.NoError(t, execution.Start())

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE executions").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Save(context.Background(), execution)

	require.Error(t, err)
	assert.True(t, domain.IsConflict(err))
	assert.Equal(t, 2, execution.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresExecutionRepository_SaveUpdatesWithVersionCheck(t *testing.T) {
	repo, mock := newMockRepository(t)
	execution := newTestExecution(t)
	execution.Version = 1
	require.NoError(t, execution.Start())

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE executions").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Save(context.Background(), execution))

	assert.Equal(t, 2, execution.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresExecutionRepository_FindByIDNotFound(t *testing.T) {
	repo, mock := newMockRepository(t)
	id := models.GenerateUUID()

	mock.ExpectQuery("FROM executions WHERE id").WithArgs(id.String()).WillReturnError(sql.ErrNoRows)

	execution, err := repo.FindByID(context.Background(), id)

	require.NoError(t, err)
	assert.Nil(t, execution)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresExecutionRepository_FindByOrderIDLoadsChildren(t *testing.T) {
	repo, mock := newMockRepository(t)
	now := time.Now().UTC()
	executionID := models.GenerateUUID().String()
	orderID := models.GenerateUUID()
	budgetID := "B1"

	mock.ExpectQuery("FROM executions WHERE order_id").WithArgs(orderID.String()).WillReturnRows(
		sqlmock.NewRows([]string{
			"id", "order_id", "budget_id", "status", "mechanic", "started_at", "finished_at",
			"notes", "pending_event", "version", "created_at", "updated_at",
		}).AddRow(executionID, orderID.String(), budgetID, "IN_PROGRESS", "joao", now, nil,
			"", "", 3, now, now),
	)
	mock.ExpectQuery("FROM execution_diagnoses").WillReturnRows(
		sqlmock.NewRows([]string{"id", "execution_id", "description", "mechanic", "notes", "diagnosed_at"}).
			AddRow(models.GenerateUUID().String(), executionID, "worn brake pads", "joao", "", now),
	)
	mock.ExpectQuery("FROM execution_tasks").WillReturnRows(
		sqlmock.NewRows([]string{
			"id", "execution_id", "description", "mechanic", "estimated_minutes", "actual_minutes",
			"status", "started_at", "finished_at", "created_at",
		}),
	)
	mock.ExpectQuery("FROM execution_parts").WillReturnRows(
		sqlmock.NewRows([]string{
			"id", "execution_id", "part_id", "description", "quantity", "unit_price", "total_price", "currency", "used_at",
		}).AddRow(models.GenerateUUID().String(), executionID, "P-10", "brake pad", 2, 1250, 2500, "BRL", now),
	)

	execution, err := repo.FindByOrderID(context.Background(), orderID)

	require.NoError(t, err)
	require.NotNil(t, execution)
	assert.Equal(t, domain.StatusInProgress, execution.Status)
	assert.Equal(t, models.ID(budgetID), execution.BudgetID)
	assert.Equal(t, 3, execution.Version)
	assert.Len(t, execution.Diagnoses, 1)
	assert.Empty(t, execution.Tasks)
	require.Len(t, execution.Parts, 1)
	assert.Equal(t, models.NewMoney(2500, "BRL"), execution.EstimatedValue())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresExecutionRepository_ExistsByOrderID(t *testing.T) {
	repo, mock := newMockRepository(t)
	orderID := models.GenerateUUID()

	mock.ExpectQuery("SELECT EXISTS").WithArgs(orderID.String()).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	found, err := repo.ExistsByOrderID(context.Background(), orderID)

	require.NoError(t, err)
	assert.True(t, found)
	assert.NoError(t, mock.ExpectationsWereMet())
}
