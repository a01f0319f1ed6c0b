package application

import (
	"context"

	"github.com/grupo99/execution-system/execution-service/domain"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// CreateExecutionCommand represents the admin command to open an execution
type CreateExecutionCommand struct {
	OrderID  string `json:"order_id"`
	Mechanic string `json:"mechanic"`
}

// CreateExecution use case
type CreateExecution struct {
	executionRepository domain.ExecutionRepository
	logger              *zap.SugaredLogger
}

func NewCreateExecution(executionRepository domain.ExecutionRepository, logger *zap.SugaredLogger) *CreateExecution {
	return &CreateExecution{
		executionRepository: executionRepository,
		logger:              logger,
	}
}

// Execute creates an execution; a second one for the same order fails with ErrExecutionExists
func (uc *CreateExecution) Execute(ctx context.Context, cmd *CreateExecutionCommand) (resp *ExecutionResponse, err error) {
	ctx, op := startOperation(ctx, "create_execution",
		attribute.String("order_id", cmd.OrderID),
		attribute.String("mechanic", cmd.Mechanic),
	)
	defer func() { op.end(err) }()

	orderID, err := requireID("order id", cmd.OrderID)
	if err != nil {
		return nil, err
	}

	execution, err := domain.NewExecution(orderID, cmd.Mechanic)
	if err != nil {
		return nil, err
	}

	exists, err := uc.executionRepository.ExistsByOrderID(ctx, orderID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to check execution")
	}
	if exists {
		return nil, errors.Wrapf(domain.ErrExecutionExists, "order %s", orderID)
	}

	if err := uc.executionRepository.Save(ctx, execution); err != nil {
		return nil, errors.Wrap(err, "failed to save execution")
	}

	uc.logger.Infow("execution created", "order_id", orderID, "execution_id", execution.ID, "mechanic", execution.Mechanic)
	return NewExecutionResponse(execution), nil
}
