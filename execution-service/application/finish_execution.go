package application

import (
	"context"

	"github.com/grupo99/execution-system/execution-service/domain"
	"github.com/grupo99/execution-system/shared/events"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// FinishExecutionCommand completes the repair work from the admin API
type FinishExecutionCommand struct {
	ExecutionID string `json:"execution_id"`
	Notes       string `json:"notes,omitempty"`
}

// FinishExecution completes an execution and announces it downstream
type FinishExecution struct {
	executionRepository domain.ExecutionRepository
	eventPublisher      domain.EventPublisher
	logger              *zap.SugaredLogger
}

func NewFinishExecution(
	executionRepository domain.ExecutionRepository,
	eventPublisher domain.EventPublisher,
	logger *zap.SugaredLogger,
) *FinishExecution {
	return &FinishExecution{
		executionRepository: executionRepository,
		eventPublisher:      eventPublisher,
		logger:              logger,
	}
}

// Execute saves the completion with the event marked pending, publishes it, then clears the mark.
// Retrying a completion whose publish failed publishes again instead of failing the transition.
func (uc *FinishExecution) Execute(ctx context.Context, cmd *FinishExecutionCommand) (resp *ExecutionResponse, err error) {
	ctx, op := startOperation(ctx, "finish_execution", attribute.String("execution_id", cmd.ExecutionID))
	defer func() { op.end(err) }()

	execution, err := loadExecution(ctx, uc.executionRepository, cmd.ExecutionID)
	if err != nil {
		return nil, err
	}

	republish := execution.Status == domain.StatusCompleted && execution.HasPending(events.ExecutionCompletedEvent)
	if !republish {
		if err := execution.Finish(cmd.Notes); err != nil {
			return nil, err
		}
		execution.MarkPending(events.ExecutionCompletedEvent)
		if err := uc.executionRepository.Save(ctx, execution); err != nil {
			return nil, errors.Wrap(err, "failed to save execution")
		}
	}

	if err := uc.eventPublisher.Publish(ctx, execution.Completed()); err != nil {
		return nil, errors.Wrap(err, "failed to publish execution completed")
	}

	execution.ClearPending()
	if err := uc.executionRepository.Save(ctx, execution); err != nil {
		return nil, errors.Wrap(err, "failed to clear pending completion")
	}

	uc.logger.Infow("execution finished",
		"order_id", execution.OrderID,
		"execution_id", execution.ID,
		"republished", republish,
	)
	return NewExecutionResponse(execution), nil
}
