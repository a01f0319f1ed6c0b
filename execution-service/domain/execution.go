package domain

import (
	"context"
	"strings"
	"time"

	"github.com/grupo99/execution-system/shared/models"
	"github.com/pkg/errors"
)

const (
	// PlaceholderMechanic is assigned to executions created from an order event
	PlaceholderMechanic = "unassigned"

	defaultFinishNotes = "execution finished"
)

// Execution aggregate root
type Execution struct {
	ID         models.ID  `json:"id"`
	OrderID    models.ID  `json:"order_id"`
	BudgetID   models.ID  `json:"budget_id,omitempty"`
	Status     Status     `json:"status"`
	Mechanic   string     `json:"mechanic"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Notes      string     `json:"notes,omitempty"`
	// Version is 0 until the execution is first persisted
	Version int `json:"version"`
	// PendingEvent names an outbound event decided but not yet confirmed by the broker
	PendingEvent string       `json:"-"`
	Diagnoses    []*Diagnosis `json:"diagnoses"`
	Tasks        []*Task      `json:"tasks"`
	Parts        []*PartUsage `json:"parts"`
	Timestamps   models.Timestamps
}

// ExecutionRepository is the execution store port.
// Find methods return (nil, nil) when nothing matches.
type ExecutionRepository interface {
	Save(ctx context.Context, execution *Execution) error
	FindByID(ctx context.Context, id models.ID) (*Execution, error)
	FindByOrderID(ctx context.Context, orderID models.ID) (*Execution, error)
	FindByStatus(ctx context.Context, status Status) ([]*Execution, error)
	FindByMechanic(ctx context.Context, mechanic string) ([]*Execution, error)
	FindAll(ctx context.Context) ([]*Execution, error)
	DeleteByID(ctx context.Context, id models.ID) error
	ExistsByOrderID(ctx context.Context, orderID models.ID) (bool, error)
	ExistsByID(ctx context.Context, id models.ID) (bool, error)
}

// NewExecution factory method
func NewExecution(orderID models.ID, mechanic string) (*Execution, error) {
	if orderID.IsEmpty() {
		return nil, invalid("order id", "is required")
	}
	if strings.TrimSpace(mechanic) == "" {
		return nil, invalid("mechanic", "must not be blank")
	}

	return &Execution{
		ID:         models.GenerateUUID(),
		OrderID:    orderID,
		Status:     StatusAwaitingStart,
		Mechanic:   mechanic,
		Diagnoses:  []*Diagnosis{},
		Tasks:      []*Task{},
		Parts:      []*PartUsage{},
		Timestamps: models.NewTimestamps(),
	}, nil
}

// Start begins the repair work
func (e *Execution) Start() error {
	if err := e.fire(TriggerStart); err != nil {
		return err
	}

	now := time.Now().UTC()
	e.StartedAt = &now
	e.touch()
	return nil
}

// Finish completes the repair work
func (e *Execution) Finish(notes string) error {
	if err := e.fire(TriggerFinish); err != nil {
		return err
	}

	if strings.TrimSpace(notes) == "" {
		notes = defaultFinishNotes
	}

	now := time.Now().UTC()
	e.FinishedAt = &now
	e.Notes = notes
	e.touch()
	return nil
}

// Cancel stops the execution and records why
func (e *Execution) Cancel(reason string) error {
	if err := e.fire(TriggerCancel); err != nil {
		return err
	}

	now := time.Now().UTC()
	e.FinishedAt = &now
	e.Notes = reason
	e.touch()
	return nil
}

// AttachBudget records the approved budget
func (e *Execution) AttachBudget(budgetID models.ID) error {
	if budgetID.IsEmpty() {
		return invalid("budget id", "is required")
	}

	if e.BudgetID != budgetID {
		e.BudgetID = budgetID
		e.touch()
	}
	return nil
}

func (e *Execution) AddDiagnosis(d *Diagnosis) error {
	if d == nil {
		return invalid("diagnosis", "is required")
	}
	e.Diagnoses = append(e.Diagnoses, d)
	e.touch()
	return nil
}

func (e *Execution) AddTask(t *Task) error {
	if t == nil {
		return invalid("task", "is required")
	}
	e.Tasks = append(e.Tasks, t)
	e.touch()
	return nil
}

func (e *Execution) AddPartUsage(p *PartUsage) error {
	if p == nil {
		return invalid("part usage", "is required")
	}
	e.Parts = append(e.Parts, p)
	e.touch()
	return nil
}

// UpdateTask applies change to the task with the given id
func (e *Execution) UpdateTask(taskID models.ID, change func(*Task) error) error {
	for _, t := range e.Tasks {
		if t.ID != taskID {
			continue
		}
		if err := change(t); err != nil {
			return err
		}
		e.touch()
		return nil
	}
	return &NotFoundError{Key: "task_id", Value: taskID.String()}
}

// EstimatedValue sums the parts used so far
func (e *Execution) EstimatedValue() models.Money {
	if len(e.Parts) == 0 {
		return models.NewMoney(0, "")
	}

	// parts priced in another currency than the first one are left out
	total := models.NewMoney(0, e.Parts[0].TotalPrice.Currency)
	for _, p := range e.Parts {
		if sum, err := total.Add(p.TotalPrice); err == nil {
			total = sum
		}
	}
	return total
}

// MarkPending records that an outbound event must be emitted before the work is done
func (e *Execution) MarkPending(eventType string) {
	e.PendingEvent = eventType
}

func (e *Execution) ClearPending() {
	e.PendingEvent = ""
}

func (e *Execution) HasPending(eventType string) bool {
	return e.PendingEvent != "" && e.PendingEvent == eventType
}

func (e *Execution) fire(trigger Trigger) error {
	if !e.Status.Permits(trigger) {
		return &StateConflictError{
			Attempted: trigger.Target().String(),
			Current:   e.Status.String(),
		}
	}

	if err := newLifecycle(e).Fire(trigger); err != nil {
		return errors.Wrapf(err, "failed to apply %s", trigger)
	}
	return nil
}

func (e *Execution) touch() {
	e.Timestamps = e.Timestamps.Update()
}
