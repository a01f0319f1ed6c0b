package application

import (
	"context"

	"github.com/grupo99/execution-system/execution-service/domain"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// OrderCreatedCommand carries an order created upstream
type OrderCreatedCommand struct {
	OrderID       string `json:"order_id"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

// HandleOrderCreated opens an execution for a new order
type HandleOrderCreated struct {
	executionRepository domain.ExecutionRepository
	logger              *zap.SugaredLogger
}

func NewHandleOrderCreated(executionRepository domain.ExecutionRepository, logger *zap.SugaredLogger) *HandleOrderCreated {
	return &HandleOrderCreated{
		executionRepository: executionRepository,
		logger:              logger,
	}
}

// Execute creates the execution once; duplicates of the event are no-ops
func (uc *HandleOrderCreated) Execute(ctx context.Context, cmd *OrderCreatedCommand) (err error) {
	ctx, op := startOperation(ctx, "handle_order_created", attribute.String("order_id", cmd.OrderID))
	defer func() { op.end(err) }()

	orderID, err := requireID("order id", cmd.OrderID)
	if err != nil {
		return err
	}

	exists, err := uc.executionRepository.ExistsByOrderID(ctx, orderID)
	if err != nil {
		return errors.Wrap(err, "failed to check execution")
	}
	if exists {
		uc.logger.Infow("execution already exists, ignoring duplicate order", "order_id", orderID)
		return nil
	}

	execution, err := domain.NewExecution(orderID, domain.PlaceholderMechanic)
	if err != nil {
		return err
	}

	if err := uc.executionRepository.Save(ctx, execution); err != nil {
		if errors.Is(err, domain.ErrExecutionExists) {
			uc.logger.Infow("execution created concurrently, ignoring duplicate order", "order_id", orderID)
			return nil
		}
		return errors.Wrap(err, "failed to save execution")
	}

	uc.logger.Infow("execution created",
		"order_id", orderID,
		"execution_id", execution.ID,
		"correlation_id", cmd.CorrelationID,
	)
	return nil
}
