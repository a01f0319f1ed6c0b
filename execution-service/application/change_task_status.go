package application

import (
	"context"

	"github.com/grupo99/execution-system/execution-service/domain"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Task actions accepted by ChangeTaskStatus
const (
	TaskActionStart  = "start"
	TaskActionFinish = "finish"
	TaskActionCancel = "cancel"
)

var taskActions = map[string]func(*domain.Task) error{
	TaskActionStart:  (*domain.Task).Start,
	TaskActionFinish: (*domain.Task).Finish,
	TaskActionCancel: (*domain.Task).Cancel,
}

// ChangeTaskStatusCommand moves a task through its own lifecycle
type ChangeTaskStatusCommand struct {
	ExecutionID string `json:"execution_id"`
	TaskID      string `json:"task_id"`
	Action      string `json:"action"`
}

// ChangeTaskStatus use case
type ChangeTaskStatus struct {
	executionRepository domain.ExecutionRepository
	logger              *zap.SugaredLogger
}

func NewChangeTaskStatus(executionRepository domain.ExecutionRepository, logger *zap.SugaredLogger) *ChangeTaskStatus {
	return &ChangeTaskStatus{
		executionRepository: executionRepository,
		logger:              logger,
	}
}

func (uc *ChangeTaskStatus) Execute(ctx context.Context, cmd *ChangeTaskStatusCommand) (resp *ExecutionResponse, err error) {
	ctx, op := startOperation(ctx, "change_task_status",
		attribute.String("execution_id", cmd.ExecutionID),
		attribute.String("task_id", cmd.TaskID),
		attribute.String("action", cmd.Action),
	)
	defer func() { op.end(err) }()

	action, ok := taskActions[cmd.Action]
	if !ok {
		return nil, &domain.InvalidArgumentError{Field: "action", Reason: "unknown task action " + cmd.Action}
	}

	taskID, err := requireID("task id", cmd.TaskID)
	if err != nil {
		return nil, err
	}

	execution, err := loadExecution(ctx, uc.executionRepository, cmd.ExecutionID)
	if err != nil {
		return nil, err
	}

	if err := execution.UpdateTask(taskID, action); err != nil {
		return nil, err
	}

	if err := uc.executionRepository.Save(ctx, execution); err != nil {
		return nil, errors.Wrap(err, "failed to save execution")
	}

	uc.logger.Infow("task updated", "execution_id", execution.ID, "task_id", taskID, "action", cmd.Action)
	return NewExecutionResponse(execution), nil
}
