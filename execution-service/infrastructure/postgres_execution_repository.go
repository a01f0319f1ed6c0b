package infrastructure

import (
	"context"
	"database/sql"
	"time"

	"github.com/grupo99/execution-system/execution-service/domain"
	"github.com/grupo99/execution-system/shared/models"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
)

var _ domain.ExecutionRepository = (*PostgresExecutionRepository)(nil)

const (
	uniqueViolation         = "23505"
	orderIDUniqueConstraint = "executions_order_id_key"
)

// PostgresExecutionRepository implements ExecutionRepository using PostgreSQL
type PostgresExecutionRepository struct {
	db *sqlx.DB
}

// NewPostgresExecutionRepository creates a new PostgresExecutionRepository
func NewPostgresExecutionRepository(db *sqlx.DB) *PostgresExecutionRepository {
	return &PostgresExecutionRepository{db: db}
}

// postgresExecution represents execution in database
type postgresExecution struct {
	ID           string     `db:"id"`
	OrderID      string     `db:"order_id"`
	BudgetID     *string    `db:"budget_id"`
	Status       string     `db:"status"`
	Mechanic     string     `db:"mechanic"`
	StartedAt    *time.Time `db:"started_at"`
	FinishedAt   *time.Time `db:"finished_at"`
	Notes        string     `db:"notes"`
	PendingEvent string     `db:"pending_event"`
	Version      int        `db:"version"`
	CreatedAt    time.Time  `db:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at"`
}

type postgresDiagnosis struct {
	ID          string    `db:"id"`
	ExecutionID string    `db:"execution_id"`
	Description string    `db:"description"`
	Mechanic    string    `db:"mechanic"`
	Notes       string    `db:"notes"`
	DiagnosedAt time.Time `db:"diagnosed_at"`
}

type postgresTask struct {
	ID               string     `db:"id"`
	ExecutionID      string     `db:"execution_id"`
	Description      string     `db:"description"`
	Mechanic         string     `db:"mechanic"`
	EstimatedMinutes int        `db:"estimated_minutes"`
	ActualMinutes    int        `db:"actual_minutes"`
	Status           string     `db:"status"`
	StartedAt        *time.Time `db:"started_at"`
	FinishedAt       *time.Time `db:"finished_at"`
	CreatedAt        time.Time  `db:"created_at"`
}

type postgresPart struct {
	ID          string    `db:"id"`
	ExecutionID string    `db:"execution_id"`
	PartID      string    `db:"part_id"`
	Description string    `db:"description"`
	Quantity    int       `db:"quantity"`
	UnitPrice   int64     `db:"unit_price"`
	TotalPrice  int64     `db:"total_price"`
	Currency    string    `db:"currency"`
	UsedAt      time.Time `db:"used_at"`
}

const selectExecution = `
	SELECT id, order_id, budget_id, status, mechanic, started_at, finished_at,
		   notes, pending_event, version, created_at, updated_at
	FROM executions`

// Save inserts a new execution (version 0) or updates it guarded by its version.
// The execution's Version is advanced only once the transaction commits.
func (r *PostgresExecutionRepository) Save(ctx context.Context, execution *domain.Execution) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	row := r.toPostgres(execution)
	row.Version = execution.Version + 1

	if execution.Version == 0 {
		err = r.insertExecution(ctx, tx, row)
	} else {
		err = r.updateExecution(ctx, tx, row, execution.Version)
	}
	if err != nil {
		return err
	}

	if err := r.saveChildren(ctx, tx, execution); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit execution")
	}

	execution.Version = row.Version
	return nil
}

func (r *PostgresExecutionRepository) insertExecution(ctx context.Context, tx *sqlx.Tx, row *postgresExecution) error {
	query := `
		INSERT INTO executions (
			id, order_id, budget_id, status, mechanic, started_at, finished_at,
			notes, pending_event, version, created_at, updated_at
		) VALUES (
			:id, :order_id, :budget_id, :status, :mechanic, :started_at, :finished_at,
			:notes, :pending_event, :version, :created_at, :updated_at
		)`

	if _, err := tx.NamedExecContext(ctx, query, row); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation && pqErr.Constraint == orderIDUniqueConstraint {
			return errors.Wrapf(domain.ErrExecutionExists, "order %s", row.OrderID)
		}
		return errors.Wrap(err, "failed to insert execution")
	}

	return nil
}

func (r *PostgresExecutionRepository) updateExecution(ctx context.Context, tx *sqlx.Tx, row *postgresExecution, expected int) error {
	query := `
		UPDATE executions
		SET budget_id = :budget_id, status = :status, mechanic = :mechanic,
			started_at = :started_at, finished_at = :finished_at, notes = :notes,
			pending_event = :pending_event, version = :version, updated_at = :updated_at
		WHERE id = :id AND version = :old_version`

	res, err := tx.NamedExecContext(ctx, query, map[string]interface{}{
		"id":            row.ID,
		"budget_id":     row.BudgetID,
		"status":        row.Status,
		"mechanic":      row.Mechanic,
		"started_at":    row.StartedAt,
		"finished_at":   row.FinishedAt,
		"notes":         row.Notes,
		"pending_event": row.PendingEvent,
		"version":       row.Version,
		"updated_at":    row.UpdatedAt,
		"old_version":   expected,
	})
	if err != nil {
		return errors.Wrap(err, "failed to update execution")
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to read affected rows")
	}
	if affected == 0 {
		return &domain.ConflictError{ExecutionID: models.ID(row.ID), Version: expected}
	}

	return nil
}

// saveChildren writes child rows. Diagnoses never change once written; tasks and parts are upserted.
func (r *PostgresExecutionRepository) saveChildren(ctx context.Context, tx *sqlx.Tx, execution *domain.Execution) error {
	for _, d := range execution.Diagnoses {
		_, err := tx.NamedExecContext(ctx, `
			INSERT INTO execution_diagnoses (id, execution_id, description, mechanic, notes, diagnosed_at)
			VALUES (:id, :execution_id, :description, :mechanic, :notes, :diagnosed_at)
			ON CONFLICT (id) DO NOTHING`,
			&postgresDiagnosis{
				ID:          d.ID.String(),
				ExecutionID: execution.ID.String(),
				Description: d.Description,
				Mechanic:    d.Mechanic,
				Notes:       d.Notes,
				DiagnosedAt: d.DiagnosedAt,
			})
		if err != nil {
			return errors.Wrap(err, "failed to save diagnosis")
		}
	}

	for _, t := range execution.Tasks {
		_, err := tx.NamedExecContext(ctx, `
			INSERT INTO execution_tasks (
				id, execution_id, description, mechanic, estimated_minutes, actual_minutes,
				status, started_at, finished_at, created_at
			) VALUES (
				:id, :execution_id, :description, :mechanic, :estimated_minutes, :actual_minutes,
				:status, :started_at, :finished_at, :created_at
			)
			ON CONFLICT (id) DO UPDATE SET
				actual_minutes = EXCLUDED.actual_minutes, status = EXCLUDED.status,
				started_at = EXCLUDED.started_at, finished_at = EXCLUDED.finished_at`,
			&postgresTask{
				ID:               t.ID.String(),
				ExecutionID:      execution.ID.String(),
				Description:      t.Description,
				Mechanic:         t.Mechanic,
				EstimatedMinutes: t.EstimatedMinutes,
				ActualMinutes:    t.ActualMinutes,
				Status:           string(t.Status),
				StartedAt:        t.StartedAt,
				FinishedAt:       t.FinishedAt,
				CreatedAt:        t.CreatedAt,
			})
		if err != nil {
			return errors.Wrap(err, "failed to save task")
		}
	}

	for _, p := range execution.Parts {
		_, err := tx.NamedExecContext(ctx, `
			INSERT INTO execution_parts (
				id, execution_id, part_id, description, quantity, unit_price, total_price, currency, used_at
			) VALUES (
				:id, :execution_id, :part_id, :description, :quantity, :unit_price, :total_price, :currency, :used_at
			)
			ON CONFLICT (id) DO UPDATE SET
				quantity = EXCLUDED.quantity, unit_price = EXCLUDED.unit_price, total_price = EXCLUDED.total_price`,
			&postgresPart{
				ID:          p.ID.String(),
				ExecutionID: execution.ID.String(),
				PartID:      p.PartID,
				Description: p.Description,
				Quantity:    p.Quantity,
				UnitPrice:   p.UnitPrice.Amount,
				TotalPrice:  p.TotalPrice.Amount,
				Currency:    p.TotalPrice.Currency,
				UsedAt:      p.UsedAt,
			})
		if err != nil {
			return errors.Wrap(err, "failed to save part usage")
		}
	}

	return nil
}

// FindByID finds an execution by ID
func (r *PostgresExecutionRepository) FindByID(ctx context.Context, id models.ID) (*domain.Execution, error) {
	return r.findOne(ctx, selectExecution+` WHERE id = $1`, id.String())
}

// FindByOrderID finds the execution of an order
func (r *PostgresExecutionRepository) FindByOrderID(ctx context.Context, orderID models.ID) (*domain.Execution, error) {
	return r.findOne(ctx, selectExecution+` WHERE order_id = $1`, orderID.String())
}

func (r *PostgresExecutionRepository) FindByStatus(ctx context.Context, status domain.Status) ([]*domain.Execution, error) {
	return r.findMany(ctx, selectExecution+` WHERE status = $1 ORDER BY created_at DESC`, status.String())
}

func (r *PostgresExecutionRepository) FindByMechanic(ctx context.Context, mechanic string) ([]*domain.Execution, error) {
	return r.findMany(ctx, selectExecution+` WHERE mechanic = $1 ORDER BY created_at DESC`, mechanic)
}

func (r *PostgresExecutionRepository) FindAll(ctx context.Context) ([]*domain.Execution, error) {
	return r.findMany(ctx, selectExecution+` ORDER BY created_at DESC`)
}

// DeleteByID removes an execution and, through the foreign keys, its children
func (r *PostgresExecutionRepository) DeleteByID(ctx context.Context, id models.ID) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM executions WHERE id = $1`, id.String()); err != nil {
		return errors.Wrap(err, "failed to delete execution")
	}
	return nil
}

func (r *PostgresExecutionRepository) ExistsByOrderID(ctx context.Context, orderID models.ID) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM executions WHERE order_id = $1)`, orderID.String())
}

func (r *PostgresExecutionRepository) ExistsByID(ctx context.Context, id models.ID) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM executions WHERE id = $1)`, id.String())
}

func (r *PostgresExecutionRepository) exists(ctx context.Context, query string, arg string) (bool, error) {
	var found bool
	if err := r.db.GetContext(ctx, &found, query, arg); err != nil {
		return false, errors.Wrap(err, "failed to check execution existence")
	}
	return found, nil
}

func (r *PostgresExecutionRepository) findOne(ctx context.Context, query string, arg string) (*domain.Execution, error) {
	var row postgresExecution
	err := r.db.GetContext(ctx, &row, query, arg)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Execution not found
		}
		return nil, errors.Wrap(err, "failed to find execution")
	}

	executions, err := r.withChildren(ctx, []postgresExecution{row})
	if err != nil {
		return nil, err
	}
	return executions[0], nil
}

func (r *PostgresExecutionRepository) findMany(ctx context.Context, query string, args ...interface{}) ([]*domain.Execution, error) {
	var rows []postgresExecution
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "failed to find executions")
	}

	return r.withChildren(ctx, rows)
}

// withChildren loads the child collections of all rows with one query per table
func (r *PostgresExecutionRepository) withChildren(ctx context.Context, rows []postgresExecution) ([]*domain.Execution, error) {
	executions := make([]*domain.Execution, len(rows))
	if len(rows) == 0 {
		return executions, nil
	}

	byID := make(map[string]*domain.Execution, len(rows))
	ids := make([]string, len(rows))
	for i := range rows {
		executions[i] = r.toDomain(&rows[i])
		byID[rows[i].ID] = executions[i]
		ids[i] = rows[i].ID
	}

	var diagnoses []postgresDiagnosis
	if err := r.db.SelectContext(ctx, &diagnoses, `
		SELECT id, execution_id, description, mechanic, notes, diagnosed_at
		FROM execution_diagnoses WHERE execution_id = ANY($1) ORDER BY diagnosed_at`, pq.Array(ids)); err != nil {
		return nil, errors.Wrap(err, "failed to load diagnoses")
	}
	for _, d := range diagnoses {
		e := byID[d.ExecutionID]
		e.Diagnoses = append(e.Diagnoses, &domain.Diagnosis{
			ID:          models.ID(d.ID),
			Description: d.Description,
			Mechanic:    d.Mechanic,
			Notes:       d.Notes,
			DiagnosedAt: d.DiagnosedAt,
		})
	}

	var tasks []postgresTask
	if err := r.db.SelectContext(ctx, &tasks, `
		SELECT id, execution_id, description, mechanic, estimated_minutes, actual_minutes,
			   status, started_at, finished_at, created_at
		FROM execution_tasks WHERE execution_id = ANY($1) ORDER BY created_at`, pq.Array(ids)); err != nil {
		return nil, errors.Wrap(err, "failed to load tasks")
	}
	for _, t := range tasks {
		e := byID[t.ExecutionID]
		e.Tasks = append(e.Tasks, &domain.Task{
			ID:               models.ID(t.ID),
			Description:      t.Description,
			Mechanic:         t.Mechanic,
			EstimatedMinutes: t.EstimatedMinutes,
			ActualMinutes:    t.ActualMinutes,
			Status:           domain.TaskStatus(t.Status),
			StartedAt:        t.StartedAt,
			FinishedAt:       t.FinishedAt,
			CreatedAt:        t.CreatedAt,
		})
	}

	var parts []postgresPart
	if err := r.db.SelectContext(ctx, &parts, `
		SELECT id, execution_id, part_id, description, quantity, unit_price, total_price, currency, used_at
		FROM execution_parts WHERE execution_id = ANY($1) ORDER BY used_at`, pq.Array(ids)); err != nil {
		return nil, errors.Wrap(err, "failed to load parts")
	}
	for _, p := range parts {
		e := byID[p.ExecutionID]
		e.Parts = append(e.Parts, &domain.PartUsage{
			ID:          models.ID(p.ID),
			PartID:      p.PartID,
			Description: p.Description,
			Quantity:    p.Quantity,
			UnitPrice:   models.NewMoney(p.UnitPrice, p.Currency),
			TotalPrice:  models.NewMoney(p.TotalPrice, p.Currency),
			UsedAt:      p.UsedAt,
		})
	}

	return executions, nil
}

// toPostgres converts domain execution to postgres model
func (r *PostgresExecutionRepository) toPostgres(execution *domain.Execution) *postgresExecution {
	var budgetID *string
	if !execution.BudgetID.IsEmpty() {
		id := execution.BudgetID.String()
		budgetID = &id
	}

	return &postgresExecution{
		ID:           execution.ID.String(),
		OrderID:      execution.OrderID.String(),
		BudgetID:     budgetID,
		Status:       execution.Status.String(),
		Mechanic:     execution.Mechanic,
		StartedAt:    execution.StartedAt,
		FinishedAt:   execution.FinishedAt,
		Notes:        execution.Notes,
		PendingEvent: execution.PendingEvent,
		Version:      execution.Version,
		CreatedAt:    execution.Timestamps.CreatedAt,
		UpdatedAt:    execution.Timestamps.UpdatedAt,
	}
}

// toDomain converts postgres model to domain execution
func (r *PostgresExecutionRepository) toDomain(row *postgresExecution) *domain.Execution {
	execution := &domain.Execution{
		ID:           models.ID(row.ID),
		OrderID:      models.ID(row.OrderID),
		Status:       domain.Status(row.Status),
		Mechanic:     row.Mechanic,
		StartedAt:    row.StartedAt,
		FinishedAt:   row.FinishedAt,
		Notes:        row.Notes,
		PendingEvent: row.PendingEvent,
		Version:      row.Version,
		Diagnoses:    []*domain.Diagnosis{},
		Tasks:        []*domain.Task{},
		Parts:        []*domain.PartUsage{},
		Timestamps: models.Timestamps{
			CreatedAt: row.CreatedAt,
			UpdatedAt: row.UpdatedAt,
		},
	}
	if row.BudgetID != nil {
		execution.BudgetID = models.ID(*row.BudgetID)
	}

	return execution
}
