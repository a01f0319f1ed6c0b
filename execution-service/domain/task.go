package domain

import (
	"strings"
	"time"

	"github.com/grupo99/execution-system/shared/models"
)

// TaskStatus represents the progress of a single task
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "PENDING"
	TaskStatusInProgress TaskStatus = "IN_PROGRESS"
	TaskStatusDone       TaskStatus = "DONE"
	TaskStatusCancelled  TaskStatus = "CANCELLED"
)

// Task is a unit of repair work
type Task struct {
	ID               models.ID  `json:"id"`
	Description      string     `json:"description"`
	Mechanic         string     `json:"mechanic"`
	EstimatedMinutes int        `json:"estimated_minutes,omitempty"`
	ActualMinutes    int        `json:"actual_minutes,omitempty"`
	Status           TaskStatus `json:"status"`
	StartedAt        *time.Time `json:"started_at,omitempty"`
	FinishedAt       *time.Time `json:"finished_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

// NewTask creates a pending task. estimatedMinutes of zero means no estimate.
func NewTask(description, mechanic string, estimatedMinutes int) (*Task, error) {
	if strings.TrimSpace(description) == "" {
		return nil, invalid("task description", "must not be blank")
	}
	if strings.TrimSpace(mechanic) == "" {
		return nil, invalid("task mechanic", "must not be blank")
	}
	if estimatedMinutes < 0 {
		return nil, invalid("estimated minutes", "must be positive")
	}

	return &Task{
		ID:               models.GenerateUUID(),
		Description:      description,
		Mechanic:         mechanic,
		EstimatedMinutes: estimatedMinutes,
		Status:           TaskStatusPending,
		CreatedAt:        time.Now().UTC(),
	}, nil
}

// Start moves a pending task into progress
func (t *Task) Start() error {
	if t.Status != TaskStatusPending {
		return t.conflict(TaskStatusInProgress)
	}

	now := time.Now().UTC()
	t.Status = TaskStatusInProgress
	t.StartedAt = &now
	return nil
}

// Finish completes a task in progress and records the time spent
func (t *Task) Finish() error {
	if t.Status != TaskStatusInProgress {
		return t.conflict(TaskStatusDone)
	}

	now := time.Now().UTC()
	t.Status = TaskStatusDone
	t.FinishedAt = &now
	if t.StartedAt != nil {
		t.ActualMinutes = int(now.Sub(*t.StartedAt).Minutes())
	}
	return nil
}

// Cancel abandons a task that has not been finished
func (t *Task) Cancel() error {
	if t.Status == TaskStatusDone || t.Status == TaskStatusCancelled {
		return t.conflict(TaskStatusCancelled)
	}

	now := time.Now().UTC()
	t.Status = TaskStatusCancelled
	t.FinishedAt = &now
	return nil
}

func (t *Task) conflict(attempted TaskStatus) error {
	return &StateConflictError{
		Entity:    "task",
		Attempted: string(attempted),
		Current:   string(t.Status),
	}
}
