package domain

import (
	"context"
	"time"

	"github.com/grupo99/execution-system/shared/events"
	"github.com/grupo99/execution-system/shared/models"
)

// OutboundEvent is one of the events this service emits on the execution lifecycle channel
type OutboundEvent interface {
	EventType() string
	ExecutionRef() models.ID
	OrderRef() models.ID
}

// EventPublisher emits outbound events keyed by order id
type EventPublisher interface {
	Publish(ctx context.Context, event OutboundEvent) error
}

// DiagnosisCompletedData is emitted when a diagnosis is recorded
type DiagnosisCompletedData struct {
	ExecutionID    models.ID    `json:"execution_id"`
	OrderID        models.ID    `json:"order_id"`
	Diagnosis      string       `json:"diagnosis"`
	EstimatedValue models.Money `json:"estimated_value"`
	OccurredAt     time.Time    `json:"occurred_at"`
}

func (d DiagnosisCompletedData) EventType() string       { return events.ExecutionDiagnosisCompletedEvent }
func (d DiagnosisCompletedData) ExecutionRef() models.ID { return d.ExecutionID }
func (d DiagnosisCompletedData) OrderRef() models.ID     { return d.OrderID }

// ExecutionCompletedData is emitted when the repair work is finished
type ExecutionCompletedData struct {
	ExecutionID models.ID `json:"execution_id"`
	OrderID     models.ID `json:"order_id"`
	Mechanic    string    `json:"mechanic"`
	Notes       string    `json:"notes"`
	OccurredAt  time.Time `json:"occurred_at"`
}

func (d ExecutionCompletedData) EventType() string       { return events.ExecutionCompletedEvent }
func (d ExecutionCompletedData) ExecutionRef() models.ID { return d.ExecutionID }
func (d ExecutionCompletedData) OrderRef() models.ID     { return d.OrderID }

// ExecutionFailedData is the compensation signal for downstream services
type ExecutionFailedData struct {
	ExecutionID    models.ID `json:"execution_id"`
	OrderID        models.ID `json:"order_id"`
	Reason         string    `json:"reason"`
	FailedStage    Status    `json:"failed_stage"`
	ReworkRequired bool      `json:"rework_required"`
	OccurredAt     time.Time `json:"occurred_at"`
}

func (d ExecutionFailedData) EventType() string       { return events.ExecutionFailedEvent }
func (d ExecutionFailedData) ExecutionRef() models.ID { return d.ExecutionID }
func (d ExecutionFailedData) OrderRef() models.ID     { return d.OrderID }

// DiagnosisCompleted builds the event for the given diagnosis
func (e *Execution) DiagnosisCompleted(d *Diagnosis) DiagnosisCompletedData {
	return DiagnosisCompletedData{
		ExecutionID:    e.ID,
		OrderID:        e.OrderID,
		Diagnosis:      d.Description,
		EstimatedValue: e.EstimatedValue(),
		OccurredAt:     time.Now().UTC(),
	}
}

// Completed builds the completion event
func (e *Execution) Completed() ExecutionCompletedData {
	return ExecutionCompletedData{
		ExecutionID: e.ID,
		OrderID:     e.OrderID,
		Mechanic:    e.Mechanic,
		Notes:       e.Notes,
		OccurredAt:  time.Now().UTC(),
	}
}

// Failed builds the compensation event
func (e *Execution) Failed(reason string, stage Status, reworkRequired bool) ExecutionFailedData {
	return ExecutionFailedData{
		ExecutionID:    e.ID,
		OrderID:        e.OrderID,
		Reason:         reason,
		FailedStage:    stage,
		ReworkRequired: reworkRequired,
		OccurredAt:     time.Now().UTC(),
	}
}
