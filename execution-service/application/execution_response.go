package application

import (
	"context"
	"time"

	"github.com/grupo99/execution-system/execution-service/domain"
	"github.com/grupo99/execution-system/shared/models"
	"github.com/pkg/errors"
)

const timestampLayout = "2006-01-02T15:04:05Z07:00"

// ExecutionResponse represents an execution returned by the admin API
type ExecutionResponse struct {
	ExecutionID    string              `json:"execution_id"`
	OrderID        string              `json:"order_id"`
	BudgetID       string              `json:"budget_id,omitempty"`
	Status         string              `json:"status"`
	NextStatuses   []string            `json:"next_statuses"`
	Mechanic       string              `json:"mechanic"`
	StartedAt      string              `json:"started_at,omitempty"`
	FinishedAt     string              `json:"finished_at,omitempty"`
	Notes          string              `json:"notes,omitempty"`
	EstimatedValue models.Money        `json:"estimated_value"`
	Diagnoses      []*domain.Diagnosis `json:"diagnoses"`
	Tasks          []*domain.Task      `json:"tasks"`
	Parts          []*domain.PartUsage `json:"parts"`
	Version        int                 `json:"version"`
	CreatedAt      string              `json:"created_at"`
	UpdatedAt      string              `json:"updated_at"`
}

// NewExecutionResponse converts an execution to its response
func NewExecutionResponse(e *domain.Execution) *ExecutionResponse {
	next := make([]string, 0, 2)
	for _, s := range e.Status.NextAllowed() {
		next = append(next, s.String())
	}

	return &ExecutionResponse{
		ExecutionID:    e.ID.String(),
		OrderID:        e.OrderID.String(),
		BudgetID:       e.BudgetID.String(),
		Status:         e.Status.String(),
		NextStatuses:   next,
		Mechanic:       e.Mechanic,
		StartedAt:      formatTime(e.StartedAt),
		FinishedAt:     formatTime(e.FinishedAt),
		Notes:          e.Notes,
		EstimatedValue: e.EstimatedValue(),
		Diagnoses:      e.Diagnoses,
		Tasks:          e.Tasks,
		Parts:          e.Parts,
		Version:        e.Version,
		CreatedAt:      e.Timestamps.CreatedAt.Format(timestampLayout),
		UpdatedAt:      e.Timestamps.UpdatedAt.Format(timestampLayout),
	}
}

func newExecutionResponses(executions []*domain.Execution) []*ExecutionResponse {
	out := make([]*ExecutionResponse, 0, len(executions))
	for _, e := range executions {
		out = append(out, NewExecutionResponse(e))
	}
	return out
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(timestampLayout)
}

// loadExecution finds an execution by id or fails with NotFoundError
func loadExecution(ctx context.Context, repo domain.ExecutionRepository, rawID string) (*domain.Execution, error) {
	id, err := requireID("execution id", rawID)
	if err != nil {
		return nil, err
	}

	execution, err := repo.FindByID(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find execution")
	}
	if execution == nil {
		return nil, &domain.NotFoundError{Key: "id", Value: id.String()}
	}
	return execution, nil
}
