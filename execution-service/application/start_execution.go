package application

import (
	"context"

	"github.com/grupo99/execution-system/execution-service/domain"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// StartExecutionCommand starts the repair work from the admin API
type StartExecutionCommand struct {
	ExecutionID string `json:"execution_id"`
}

// StartExecution use case
type StartExecution struct {
	executionRepository domain.ExecutionRepository
	logger              *zap.SugaredLogger
}

func NewStartExecution(executionRepository domain.ExecutionRepository, logger *zap.SugaredLogger) *StartExecution {
	return &StartExecution{
		executionRepository: executionRepository,
		logger:              logger,
	}
}

func (uc *StartExecution) Execute(ctx context.Context, cmd *StartExecutionCommand) (resp *ExecutionResponse, err error) {
	ctx, op := startOperation(ctx, "start_execution", attribute.String("execution_id", cmd.ExecutionID))
	defer func() { op.end(err) }()

	execution, err := loadExecution(ctx, uc.executionRepository, cmd.ExecutionID)
	if err != nil {
		return nil, err
	}

	if err := execution.Start(); err != nil {
		return nil, err
	}

	if err := uc.executionRepository.Save(ctx, execution); err != nil {
		return nil, errors.Wrap(err, "failed to save execution")
	}

	uc.logger.Infow("execution started", "order_id", execution.OrderID, "execution_id", execution.ID)
	return NewExecutionResponse(execution), nil
}
