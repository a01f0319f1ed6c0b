package events

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"time"

	"github.com/grupo99/execution-system/shared/models"
)

var (
	ErrInvalidTopic    = errors.New("invalid topic")
	ErrInvalidPayload  = errors.New("invalid payload")
	ErrInvalidReceiver = errors.New("receiver should be a pointer")
	ErrMissingType     = errors.New("event type is required")
)

// Topic names a broker channel (an SNS topic or the queue subscribed to it)
type Topic string

func (t Topic) String() string {
	return string(t)
}

// DeadLetter returns the overflow destination for the topic
func (t Topic) DeadLetter() Topic {
	return t + DeadLetterSuffix
}

// DeadLetterSuffix is appended to a source topic to name its dead-letter destination
const DeadLetterSuffix = ".DLT"

// Metadata represents event headers
type Metadata map[string]string

func (m Metadata) Get(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

// GetOr returns the header value or fallback when absent or empty
func (m Metadata) GetOr(key, fallback string) string {
	if v, ok := m[key]; ok && v != "" {
		return v
	}
	return fallback
}

func (m Metadata) Set(key string, value string) {
	if m == nil {
		return
	}
	m[key] = value
}

func (m Metadata) Merge(metadata Metadata) Metadata {
	if m == nil {
		m = make(Metadata)
	}
	for k, v := range metadata {
		m[k] = v
	}
	return m
}

func (m Metadata) Clone() Metadata {
	clone := Metadata{}
	for k, v := range m {
		clone[k] = v
	}
	return clone
}

// Header keys shared by producers and consumers
const (
	HeaderEventType      = "event_type"
	HeaderOrderID        = "order_id"
	HeaderExecutionID    = "execution_id"
	HeaderBudgetID       = "budget_id"
	HeaderReason         = "reason"
	HeaderFailedStage    = "failed_stage"
	HeaderEstimatedValue = "estimated_value"
	HeaderReworkRequired = "rework_required"
	HeaderCorrelationID  = "correlation_id"
)

// Event represents a domain event travelling through the broker
type Event struct {
	ID            models.ID `json:"id"`
	AggregateID   models.ID `json:"aggregate_id"`
	Topic         Topic     `json:"topic"`
	EventType     string    `json:"event_type"`
	PartitionKey  string    `json:"partition_key"`
	Version       string    `json:"version"`
	Data          any       `json:"data"`
	Metadata      Metadata  `json:"metadata"`
	Timestamp     time.Time `json:"timestamp"`
	CorrelationID models.ID `json:"correlation_id"`
}

// Publisher publishes events
type Publisher interface {
	Publish(ctx context.Context, events ...*Event) error
}

// NewEvent creates a new domain event
func NewEvent(aggregateID models.ID, eventType string, data any) *Event {
	return &Event{
		ID:          models.GenerateUUID(),
		AggregateID: aggregateID,
		EventType:   eventType,
		Version:     "1.0",
		Data:        data,
		Metadata:    Metadata{HeaderEventType: eventType},
		Timestamp:   time.Now().UTC(),
	}
}

// WithCorrelationID sets correlation ID
func (e *Event) WithCorrelationID(correlationID models.ID) *Event {
	e.CorrelationID = correlationID
	return e
}

// WithPartitionKey sets the key that keeps same-keyed events ordered on the wire
func (e *Event) WithPartitionKey(key string) *Event {
	e.PartitionKey = key
	return e
}

// WithTopic sets the destination topic
func (e *Event) WithTopic(topic Topic) *Event {
	e.Topic = topic
	return e
}

// WithMetadata adds metadata
func (e *Event) WithMetadata(key string, value string) *Event {
	if e.Metadata == nil {
		e.Metadata = make(Metadata)
	}
	e.Metadata.Set(key, value)
	return e
}

// MarshalPayload marshals the event payload
func (e *Event) MarshalPayload() (json.RawMessage, error) {
	if e.Data == nil {
		return json.RawMessage("null"), nil
	}

	if b, ok := e.Data.([]byte); ok {
		return b, nil
	}

	if b, ok := e.Data.(json.RawMessage); ok {
		return b, nil
	}

	return json.Marshal(e.Data)
}

// UnmarshalPayload unmarshals the event payload into the given interface
func (e *Event) UnmarshalPayload(v any) error {
	vValue := reflect.ValueOf(v)
	if vValue.Kind() != reflect.Ptr {
		return ErrInvalidReceiver
	}

	if e.Data == nil {
		return ErrInvalidPayload
	}

	vValue = vValue.Elem()
	payloadValue := reflect.ValueOf(e.Data)
	if vValue.Type() == payloadValue.Type() {
		vValue.Set(payloadValue)
		return nil
	}

	raw, err := e.MarshalPayload()
	if err != nil {
		return err
	}

	return json.Unmarshal(raw, v)
}

// Event Types Constants
const (
	// Order Events (consumed)
	OrderCreatedEvent       = "order.created"
	OrderCancelledEvent     = "order.cancelled"
	OrderStatusChangedEvent = "order.status.changed"

	// Budget Events (consumed)
	BudgetApprovedEvent = "budget.approved"
	BudgetRejectedEvent = "budget.rejected"
	BudgetReadyEvent    = "budget.ready"

	// Execution Events (produced)
	ExecutionDiagnosisCompletedEvent = "execution.diagnosis.completed"
	ExecutionCompletedEvent          = "execution.completed"
	ExecutionFailedEvent             = "execution.failed"
)
