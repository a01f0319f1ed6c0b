package application

import (
	"context"
	"strings"

	"github.com/grupo99/execution-system/execution-service/domain"
	"github.com/grupo99/execution-system/shared/events"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// OrderCancelledCommand carries an order cancelled upstream
type OrderCancelledCommand struct {
	OrderID     string `json:"order_id"`
	Reason      string `json:"reason,omitempty"`
	FailedStage string `json:"failed_stage,omitempty"`
}

// HandleOrderCancelled cancels the execution and, when work was under way,
// emits the ExecutionFailed compensation.
type HandleOrderCancelled struct {
	executionRepository domain.ExecutionRepository
	eventPublisher      domain.EventPublisher
	logger              *zap.SugaredLogger
}

func NewHandleOrderCancelled(
	executionRepository domain.ExecutionRepository,
	eventPublisher domain.EventPublisher,
	logger *zap.SugaredLogger,
) *HandleOrderCancelled {
	return &HandleOrderCancelled{
		executionRepository: executionRepository,
		eventPublisher:      eventPublisher,
		logger:              logger,
	}
}

// Execute persists the pending compensation before publishing it, so a redelivery
// after a failed publish finds the execution CANCELLED and publishes again.
func (uc *HandleOrderCancelled) Execute(ctx context.Context, cmd *OrderCancelledCommand) (err error) {
	ctx, op := startOperation(ctx, "handle_order_cancelled",
		attribute.String("order_id", cmd.OrderID),
		attribute.String("failed_stage", cmd.FailedStage),
	)
	defer func() { op.end(err) }()

	orderID, err := requireID("order id", cmd.OrderID)
	if err != nil {
		return err
	}

	execution, err := uc.executionRepository.FindByOrderID(ctx, orderID)
	if err != nil {
		return errors.Wrap(err, "failed to find execution")
	}
	if execution == nil {
		uc.logger.Infow("no execution to cancel", "order_id", orderID)
		return nil
	}

	reason := cancellationReason(cmd.Reason, cmd.FailedStage)

	switch execution.Status {
	case domain.StatusAwaitingStart:
		if err := execution.Cancel(reason); err != nil {
			return err
		}
		if err := uc.executionRepository.Save(ctx, execution); err != nil {
			return errors.Wrap(err, "failed to save execution")
		}
		uc.logger.Infow("execution cancelled before start", "order_id", orderID, "execution_id", execution.ID)
		return nil

	case domain.StatusInProgress:
		if err := execution.Cancel(reason); err != nil {
			return err
		}
		execution.MarkPending(events.ExecutionFailedEvent)
		if err := uc.executionRepository.Save(ctx, execution); err != nil {
			return errors.Wrap(err, "failed to save execution")
		}

	case domain.StatusCancelled:
		if !execution.HasPending(events.ExecutionFailedEvent) {
			uc.logger.Infow("execution already cancelled", "order_id", orderID, "execution_id", execution.ID)
			return nil
		}
		reason = execution.Notes

	default:
		uc.logger.Warnw("order cancelled after execution completed, nothing to unwind",
			"order_id", orderID,
			"execution_id", execution.ID,
		)
		return nil
	}

	return uc.compensate(ctx, execution, reason)
}

func (uc *HandleOrderCancelled) compensate(ctx context.Context, execution *domain.Execution, reason string) error {
	failed := execution.Failed(reason, domain.StatusInProgress, false)
	if err := uc.eventPublisher.Publish(ctx, failed); err != nil {
		return errors.Wrap(err, "failed to publish execution failed")
	}

	execution.ClearPending()
	if err := uc.executionRepository.Save(ctx, execution); err != nil {
		return errors.Wrap(err, "failed to clear pending compensation")
	}

	uc.logger.Infow("execution cancelled and compensation published",
		"order_id", execution.OrderID,
		"execution_id", execution.ID,
		"reason", reason,
	)
	return nil
}

// cancellationReason keeps the upstream stage that failed, e.g.
// "order cancelled at billing: customer gave up"
func cancellationReason(reason, failedStage string) string {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "no reason given"
	}
	if stage := strings.TrimSpace(failedStage); stage != "" {
		return "order cancelled at " + stage + ": " + reason
	}
	return "order cancelled: " + reason
}
