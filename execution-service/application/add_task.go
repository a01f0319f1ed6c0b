package application

import (
	"context"

	"github.com/grupo99/execution-system/execution-service/domain"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// AddTaskCommand appends a repair task to an execution
type AddTaskCommand struct {
	ExecutionID      string `json:"execution_id"`
	Description      string `json:"description"`
	Mechanic         string `json:"mechanic"`
	EstimatedMinutes int    `json:"estimated_minutes,omitempty"`
}

// AddTask use case
type AddTask struct {
	executionRepository domain.ExecutionRepository
	logger              *zap.SugaredLogger
}

func NewAddTask(executionRepository domain.ExecutionRepository, logger *zap.SugaredLogger) *AddTask {
	return &AddTask{
		executionRepository: executionRepository,
		logger:              logger,
	}
}

func (uc *AddTask) Execute(ctx context.Context, cmd *AddTaskCommand) (resp *ExecutionResponse, err error) {
	ctx, op := startOperation(ctx, "add_task", attribute.String("execution_id", cmd.ExecutionID))
	defer func() { op.end(err) }()

	task, err := domain.NewTask(cmd.Description, cmd.Mechanic, cmd.EstimatedMinutes)
	if err != nil {
		return nil, err
	}

	execution, err := loadExecution(ctx, uc.executionRepository, cmd.ExecutionID)
	if err != nil {
		return nil, err
	}

	if err := execution.AddTask(task); err != nil {
		return nil, err
	}

	if err := uc.executionRepository.Save(ctx, execution); err != nil {
		return nil, errors.Wrap(err, "failed to save execution")
	}

	uc.logger.Infow("task added", "execution_id", execution.ID, "task_id", task.ID)
	return NewExecutionResponse(execution), nil
}
