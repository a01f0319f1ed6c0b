package application

import (
	"context"

	"github.com/grupo99/execution-system/execution-service/domain"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// DeleteExecutionCommand hard-deletes an execution and its children
type DeleteExecutionCommand struct {
	ExecutionID string `json:"execution_id"`
}

// DeleteExecution use case
type DeleteExecution struct {
	executionRepository domain.ExecutionRepository
	logger              *zap.SugaredLogger
}

func NewDeleteExecution(executionRepository domain.ExecutionRepository, logger *zap.SugaredLogger) *DeleteExecution {
	return &DeleteExecution{
		executionRepository: executionRepository,
		logger:              logger,
	}
}

func (uc *DeleteExecution) Execute(ctx context.Context, cmd *DeleteExecutionCommand) (err error) {
	ctx, op := startOperation(ctx, "delete_execution", attribute.String("execution_id", cmd.ExecutionID))
	defer func() { op.end(err) }()

	id, err := requireID("execution id", cmd.ExecutionID)
	if err != nil {
		return err
	}

	exists, err := uc.executionRepository.ExistsByID(ctx, id)
	if err != nil {
		return errors.Wrap(err, "failed to check execution")
	}
	if !exists {
		return &domain.NotFoundError{Key: "id", Value: id.String()}
	}

	if err := uc.executionRepository.DeleteByID(ctx, id); err != nil {
		return errors.Wrap(err, "failed to delete execution")
	}

	uc.logger.Infow("execution deleted", "execution_id", id)
	return nil
}
