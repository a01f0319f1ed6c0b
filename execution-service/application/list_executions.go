package application

import (
	"context"
	"strings"

	"github.com/grupo99/execution-system/execution-service/domain"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
)

// ListExecutionsQuery filters executions by status or mechanic; empty lists everything
type ListExecutionsQuery struct {
	Status   string `json:"status,omitempty"`
	Mechanic string `json:"mechanic,omitempty"`
}

// ListExecutions use case
type ListExecutions struct {
	executionRepository domain.ExecutionRepository
}

func NewListExecutions(executionRepository domain.ExecutionRepository) *ListExecutions {
	return &ListExecutions{executionRepository: executionRepository}
}

func (uc *ListExecutions) Execute(ctx context.Context, query *ListExecutionsQuery) (resp []*ExecutionResponse, err error) {
	ctx, op := startOperation(ctx, "list_executions",
		attribute.String("status", query.Status),
		attribute.String("mechanic", query.Mechanic),
	)
	defer func() { op.end(err) }()

	var executions []*domain.Execution

	switch {
	case query.Status != "":
		status, err := domain.ParseStatus(strings.ToUpper(query.Status))
		if err != nil {
			return nil, err
		}
		executions, err = uc.executionRepository.FindByStatus(ctx, status)
		if err != nil {
			return nil, errors.Wrap(err, "failed to list executions by status")
		}
	case strings.TrimSpace(query.Mechanic) != "":
		executions, err = uc.executionRepository.FindByMechanic(ctx, query.Mechanic)
		if err != nil {
			return nil, errors.Wrap(err, "failed to list executions by mechanic")
		}
	default:
		executions, err = uc.executionRepository.FindAll(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "failed to list executions")
		}
	}

	return newExecutionResponses(executions), nil
}
