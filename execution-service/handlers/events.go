package handlers

import (
	"context"
	"strings"

	"github.com/grupo99/execution-system/execution-service/application"
	"github.com/grupo99/execution-system/shared/events"
	"github.com/grupo99/execution-system/shared/saga"
	"github.com/pkg/errors"
)

// Inbound channels consumed by the execution service
const (
	OrderLifecycleChannel   = "order-lifecycle"
	BillingLifecycleChannel = "billing-lifecycle"
)

// Source topics of the inbound channels
const (
	OrderEventsTopic   events.Topic = "os-events"
	BillingEventsTopic events.Topic = "billing-events"
)

// inboundPayload holds the fields the saga reads from upstream payloads.
// Headers take precedence over the payload.
type inboundPayload struct {
	OrderID       string `json:"order_id"`
	BudgetID      string `json:"budget_id"`
	Reason        string `json:"reason"`
	FailedStage   string `json:"failed_stage"`
	CorrelationID string `json:"correlation_id"`
}

// ExecutionEventHandlers turns upstream lifecycle events into saga commands
type ExecutionEventHandlers struct {
	orderCreated   *application.HandleOrderCreated
	orderCancelled *application.HandleOrderCancelled
	budgetApproved *application.HandleBudgetApproved
	budgetRejected *application.HandleBudgetRejected
}

func NewExecutionEventHandlers(
	orderCreated *application.HandleOrderCreated,
	orderCancelled *application.HandleOrderCancelled,
	budgetApproved *application.HandleBudgetApproved,
	budgetRejected *application.HandleBudgetRejected,
) *ExecutionEventHandlers {
	return &ExecutionEventHandlers{
		orderCreated:   orderCreated,
		orderCancelled: orderCancelled,
		budgetApproved: budgetApproved,
		budgetRejected: budgetRejected,
	}
}

// Register binds every handled and ignored event type to its channel
func (h *ExecutionEventHandlers) Register(router *saga.Router) {
	router.RegisterHandler(OrderLifecycleChannel, events.OrderCreatedEvent, h.HandleOrderCreated)
	router.RegisterHandler(OrderLifecycleChannel, events.OrderCancelledEvent, h.HandleOrderCancelled)
	router.Ignore(OrderLifecycleChannel, events.OrderStatusChangedEvent)

	router.RegisterHandler(BillingLifecycleChannel, events.BudgetApprovedEvent, h.HandleBudgetApproved)
	router.RegisterHandler(BillingLifecycleChannel, events.BudgetRejectedEvent, h.HandleBudgetRejected)
	router.Ignore(BillingLifecycleChannel, events.BudgetReadyEvent)
}

func (h *ExecutionEventHandlers) HandleOrderCreated(ctx context.Context, event *events.Event) error {
	p, err := decodeInbound(event)
	if err != nil {
		return err
	}

	return h.orderCreated.Execute(ctx, &application.OrderCreatedCommand{
		OrderID:       p.OrderID,
		CorrelationID: p.CorrelationID,
	})
}

func (h *ExecutionEventHandlers) HandleOrderCancelled(ctx context.Context, event *events.Event) error {
	p, err := decodeInbound(event)
	if err != nil {
		return err
	}

	return h.orderCancelled.Execute(ctx, &application.OrderCancelledCommand{
		OrderID:     p.OrderID,
		Reason:      p.Reason,
		FailedStage: p.FailedStage,
	})
}

func (h *ExecutionEventHandlers) HandleBudgetApproved(ctx context.Context, event *events.Event) error {
	p, err := decodeInbound(event)
	if err != nil {
		return err
	}
	if p.BudgetID == "" {
		return errors.Wrap(saga.ErrMalformedPayload, "budget_id is required")
	}

	return h.budgetApproved.Execute(ctx, &application.BudgetApprovedCommand{
		OrderID:  p.OrderID,
		BudgetID: p.BudgetID,
	})
}

func (h *ExecutionEventHandlers) HandleBudgetRejected(ctx context.Context, event *events.Event) error {
	p, err := decodeInbound(event)
	if err != nil {
		return err
	}

	return h.budgetRejected.Execute(ctx, &application.BudgetRejectedCommand{
		OrderID:  p.OrderID,
		BudgetID: p.BudgetID,
		Reason:   p.Reason,
	})
}

// decodeInbound merges payload fields with headers; order_id is mandatory
func decodeInbound(event *events.Event) (*inboundPayload, error) {
	p := &inboundPayload{}
	if event.Data != nil {
		if err := event.UnmarshalPayload(p); err != nil {
			return nil, errors.Wrapf(saga.ErrMalformedPayload, "%s payload: %v", event.EventType, err)
		}
	}

	p.OrderID = header(event, events.HeaderOrderID, p.OrderID)
	if p.OrderID == "" {
		p.OrderID = event.PartitionKey
	}
	p.BudgetID = header(event, events.HeaderBudgetID, p.BudgetID)
	p.Reason = header(event, events.HeaderReason, p.Reason)
	p.FailedStage = header(event, events.HeaderFailedStage, p.FailedStage)
	p.CorrelationID = header(event, events.HeaderCorrelationID, p.CorrelationID)
	if p.CorrelationID == "" {
		p.CorrelationID = event.CorrelationID.String()
	}

	if strings.TrimSpace(p.OrderID) == "" {
		return nil, errors.Wrapf(saga.ErrMalformedPayload, "%s without order_id", event.EventType)
	}
	return p, nil
}

func header(event *events.Event, key, fallback string) string {
	if v := strings.TrimSpace(event.Metadata.GetOr(key, "")); v != "" {
		return v
	}
	return strings.TrimSpace(fallback)
}
