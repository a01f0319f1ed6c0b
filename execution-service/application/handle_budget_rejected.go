package application

import (
	"context"
	"strings"

	"github.com/grupo99/execution-system/execution-service/domain"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// BudgetRejectedCommand carries a budget refused by the customer
type BudgetRejectedCommand struct {
	OrderID  string `json:"order_id"`
	BudgetID string `json:"budget_id,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// HandleBudgetRejected cancels the execution of a rejected order
type HandleBudgetRejected struct {
	executionRepository domain.ExecutionRepository
	logger              *zap.SugaredLogger
}

func NewHandleBudgetRejected(executionRepository domain.ExecutionRepository, logger *zap.SugaredLogger) *HandleBudgetRejected {
	return &HandleBudgetRejected{
		executionRepository: executionRepository,
		logger:              logger,
	}
}

func (uc *HandleBudgetRejected) Execute(ctx context.Context, cmd *BudgetRejectedCommand) (err error) {
	ctx, op := startOperation(ctx, "handle_budget_rejected", attribute.String("order_id", cmd.OrderID))
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
		uc.logger.Infow("no execution to cancel for rejected budget", "order_id", orderID)
		return nil
	}
	if execution.Status == domain.StatusCancelled {
		uc.logger.Infow("execution already cancelled", "order_id", orderID, "execution_id", execution.ID)
		return nil
	}

	if err := execution.Cancel(rejectionNotes(cmd.Reason)); err != nil {
		return err
	}

	if err := uc.executionRepository.Save(ctx, execution); err != nil {
		return errors.Wrap(err, "failed to save execution")
	}

	uc.logger.Infow("execution cancelled by budget rejection", "order_id", orderID, "execution_id", execution.ID)
	return nil
}

func rejectionNotes(reason string) string {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "no reason given"
	}
	return "budget rejected: " + reason
}
