package infrastructure

import (
	"context"
	"strconv"

	"github.com/grupo99/execution-system/execution-service/domain"
	"github.com/grupo99/execution-system/shared/events"
)

var _ domain.EventPublisher = (*ExecutionEventPublisher)(nil)

// ExecutionEventTopic is the outbound execution lifecycle channel
const ExecutionEventTopic events.Topic = "execution-events"

// ExecutionEventPublisher turns outbound domain events into broker events partitioned by order id
type ExecutionEventPublisher struct {
	publisher events.Publisher
}

func NewExecutionEventPublisher(publisher events.Publisher) *ExecutionEventPublisher {
	return &ExecutionEventPublisher{publisher: publisher}
}

func (p *ExecutionEventPublisher) Publish(ctx context.Context, event domain.OutboundEvent) error {
	return p.publisher.Publish(ctx, ToEvent(event))
}

// ToEvent builds the broker event with the headers consumers filter on
func ToEvent(event domain.OutboundEvent) *events.Event {
	evt := events.NewEvent(event.ExecutionRef(), event.EventType(), event).
		WithTopic(ExecutionEventTopic).
		WithPartitionKey(event.OrderRef().String()).
		WithCorrelationID(event.OrderRef()).
		WithMetadata(events.HeaderOrderID, event.OrderRef().String()).
		WithMetadata(events.HeaderExecutionID, event.ExecutionRef().String())

	switch e := event.(type) {
	case domain.DiagnosisCompletedData:
		evt.WithMetadata(events.HeaderEstimatedValue, strconv.FormatInt(e.EstimatedValue.Amount, 10))
	case domain.ExecutionFailedData:
		evt.WithMetadata(events.HeaderReason, e.Reason).
			WithMetadata(events.HeaderFailedStage, e.FailedStage.String()).
			WithMetadata(events.HeaderReworkRequired, strconv.FormatBool(e.ReworkRequired))
	}

	return evt
}
