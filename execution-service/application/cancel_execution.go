package application

import (
	"context"
	"strings"

	"github.com/grupo99/execution-system/execution-service/domain"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const defaultCancelNotes = "cancelled by operator"

// CancelExecutionCommand cancels an execution from the admin API
type CancelExecutionCommand struct {
	ExecutionID string `json:"execution_id"`
	Reason      string `json:"reason,omitempty"`
}

// CancelExecution use case. Operator cancellations emit no compensation.
type CancelExecution struct {
	executionRepository domain.ExecutionRepository
	logger              *zap.SugaredLogger
}

func NewCancelExecution(executionRepository domain.ExecutionRepository, logger *zap.SugaredLogger) *CancelExecution {
	return &CancelExecution{
		executionRepository: executionRepository,
		logger:              logger,
	}
}

func (uc *CancelExecution) Execute(ctx context.Context, cmd *CancelExecutionCommand) (resp *ExecutionResponse, err error) {
	ctx, op := startOperation(ctx, "cancel_execution", attribute.String("execution_id", cmd.ExecutionID))
	defer func() { op.end(err) }()

	execution, err := loadExecution(ctx, uc.executionRepository, cmd.ExecutionID)
	if err != nil {
		return nil, err
	}

	reason := strings.TrimSpace(cmd.Reason)
	if reason == "" {
		reason = defaultCancelNotes
	}

	if err := execution.Cancel(reason); err != nil {
		return nil, err
	}

	if err := uc.executionRepository.Save(ctx, execution); err != nil {
		return nil, errors.Wrap(err, "failed to save execution")
	}

	uc.logger.Infow("execution cancelled", "order_id", execution.OrderID, "execution_id", execution.ID, "reason", reason)
	return NewExecutionResponse(execution), nil
}
