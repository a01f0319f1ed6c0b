package application

import (
	"context"

	"github.com/grupo99/execution-system/execution-service/domain"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// BudgetApprovedCommand carries a budget approved by the customer
type BudgetApprovedCommand struct {
	OrderID  string `json:"order_id"`
	BudgetID string `json:"budget_id"`
}

// HandleBudgetApproved starts the repair work of an approved order
type HandleBudgetApproved struct {
	executionRepository domain.ExecutionRepository
	logger              *zap.SugaredLogger
}

func NewHandleBudgetApproved(executionRepository domain.ExecutionRepository, logger *zap.SugaredLogger) *HandleBudgetApproved {
	return &HandleBudgetApproved{
		executionRepository: executionRepository,
		logger:              logger,
	}
}

// Execute fails with NotFoundError when the order has no execution yet, so the
// message is redelivered until the order event catches up.
func (uc *HandleBudgetApproved) Execute(ctx context.Context, cmd *BudgetApprovedCommand) (err error) {
	ctx, op := startOperation(ctx, "handle_budget_approved",
		attribute.String("order_id", cmd.OrderID),
		attribute.String("budget_id", cmd.BudgetID),
	)
	defer func() { op.end(err) }()

	orderID, err := requireID("order id", cmd.OrderID)
	if err != nil {
		return err
	}
	budgetID, err := requireID("budget id", cmd.BudgetID)
	if err != nil {
		return err
	}

	execution, err := uc.executionRepository.FindByOrderID(ctx, orderID)
	if err != nil {
		return errors.Wrap(err, "failed to find execution")
	}
	if execution == nil {
		return &domain.NotFoundError{Key: "order_id", Value: orderID.String()}
	}

	if execution.Status == domain.StatusInProgress {
		if execution.BudgetID == budgetID {
			uc.logger.Infow("budget already applied", "order_id", orderID, "budget_id", budgetID)
			return nil
		}
	} else if err := execution.Start(); err != nil {
		return err
	}

	if err := execution.AttachBudget(budgetID); err != nil {
		return err
	}

	if err := uc.executionRepository.Save(ctx, execution); err != nil {
		return errors.Wrap(err, "failed to save execution")
	}

	uc.logger.Infow("execution started", "order_id", orderID, "execution_id", execution.ID, "budget_id", budgetID)
	return nil
}
