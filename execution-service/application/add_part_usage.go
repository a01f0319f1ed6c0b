package application

import (
	"context"

	"github.com/grupo99/execution-system/execution-service/domain"
	"github.com/grupo99/execution-system/shared/models"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// AddPartUsageCommand records parts consumed by an execution
type AddPartUsageCommand struct {
	ExecutionID string `json:"execution_id"`
	PartID      string `json:"part_id"`
	Description string `json:"description"`
	Quantity    int    `json:"quantity"`
	UnitPrice   int64  `json:"unit_price"` // cents
	Currency    string `json:"currency,omitempty"`
}

// AddPartUsage use case
type AddPartUsage struct {
	executionRepository domain.ExecutionRepository
	logger              *zap.SugaredLogger
}

func NewAddPartUsage(executionRepository domain.ExecutionRepository, logger *zap.SugaredLogger) *AddPartUsage {
	return &AddPartUsage{
		executionRepository: executionRepository,
		logger:              logger,
	}
}

func (uc *AddPartUsage) Execute(ctx context.Context, cmd *AddPartUsageCommand) (resp *ExecutionResponse, err error) {
	ctx, op := startOperation(ctx, "add_part_usage",
		attribute.String("execution_id", cmd.ExecutionID),
		attribute.String("part_id", cmd.PartID),
		attribute.Int("quantity", cmd.Quantity),
	)
	defer func() { op.end(err) }()

	part, err := domain.NewPartUsage(cmd.PartID, cmd.Description, cmd.Quantity, models.NewMoney(cmd.UnitPrice, cmd.Currency))
	if err != nil {
		return nil, err
	}

	execution, err := loadExecution(ctx, uc.executionRepository, cmd.ExecutionID)
	if err != nil {
		return nil, err
	}

	if err := execution.AddPartUsage(part); err != nil {
		return nil, err
	}

	if err := uc.executionRepository.Save(ctx, execution); err != nil {
		return nil, errors.Wrap(err, "failed to save execution")
	}

	uc.logger.Infow("part usage recorded",
		"execution_id", execution.ID,
		"part_id", part.PartID,
		"total", part.TotalPrice.Amount,
	)
	return NewExecutionResponse(execution), nil
}
