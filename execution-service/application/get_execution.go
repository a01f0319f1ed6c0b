package application

import (
	"context"

	"github.com/grupo99/execution-system/execution-service/domain"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
)

// GetExecutionQuery looks an execution up by its id or by its order id
type GetExecutionQuery struct {
	ExecutionID string `json:"execution_id,omitempty"`
	OrderID     string `json:"order_id,omitempty"`
}

// GetExecution use case
type GetExecution struct {
	executionRepository domain.ExecutionRepository
}

func NewGetExecution(executionRepository domain.ExecutionRepository) *GetExecution {
	return &GetExecution{executionRepository: executionRepository}
}

func (uc *GetExecution) Execute(ctx context.Context, query *GetExecutionQuery) (resp *ExecutionResponse, err error) {
	ctx, op := startOperation(ctx, "get_execution",
		attribute.String("execution_id", query.ExecutionID),
		attribute.String("order_id", query.OrderID),
	)
	defer func() { op.end(err) }()

	var execution *domain.Execution

	switch {
	case query.ExecutionID != "":
		execution, err = loadExecution(ctx, uc.executionRepository, query.ExecutionID)
		if err != nil {
			return nil, err
		}
	case query.OrderID != "":
		orderID, err := requireID("order id", query.OrderID)
		if err != nil {
			return nil, err
		}
		execution, err = uc.executionRepository.FindByOrderID(ctx, orderID)
		if err != nil {
			return nil, errors.Wrap(err, "failed to find execution by order")
		}
		if execution == nil {
			return nil, &domain.NotFoundError{Key: "order_id", Value: orderID.String()}
		}
	default:
		return nil, &domain.InvalidArgumentError{Field: "query", Reason: "either execution id or order id is required"}
	}

	return NewExecutionResponse(execution), nil
}
