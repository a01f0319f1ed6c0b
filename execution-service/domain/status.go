package domain

import (
	"context"

	"github.com/qmuntal/stateless"
)

// Status represents the lifecycle status of an execution
type Status string

const (
	StatusAwaitingStart Status = "AWAITING_START"
	StatusInProgress    Status = "IN_PROGRESS"
	StatusCompleted     Status = "COMPLETED"
	StatusCancelled     Status = "CANCELLED"
)

// Statuses lists every status in lifecycle order
var Statuses = []Status{StatusAwaitingStart, StatusInProgress, StatusCompleted, StatusCancelled}

// Trigger is a lifecycle command applied to an execution
type Trigger string

const (
	TriggerStart  Trigger = "start"
	TriggerFinish Trigger = "finish"
	TriggerCancel Trigger = "cancel"
)

// Triggers lists every lifecycle trigger
var Triggers = []Trigger{TriggerStart, TriggerFinish, TriggerCancel}

// transitions is the single source of truth for the lifecycle.
// Terminal statuses have no outgoing edges.
var transitions = map[Status]map[Trigger]Status{
	StatusAwaitingStart: {
		TriggerStart:  StatusInProgress,
		TriggerCancel: StatusCancelled,
	},
	StatusInProgress: {
		TriggerFinish: StatusCompleted,
		TriggerCancel: StatusCancelled,
	},
	StatusCompleted: {},
	StatusCancelled: {},
}

// Target returns the status a trigger leads to when it is permitted
func (t Trigger) Target() Status {
	switch t {
	case TriggerStart:
		return StatusInProgress
	case TriggerFinish:
		return StatusCompleted
	case TriggerCancel:
		return StatusCancelled
	}
	return ""
}

// ParseStatus validates a status name
func ParseStatus(s string) (Status, error) {
	status := Status(s)
	if _, ok := transitions[status]; !ok {
		return "", &InvalidArgumentError{Field: "status", Reason: "unknown status " + s}
	}
	return status, nil
}

func (s Status) String() string {
	return string(s)
}

// IsTerminal reports whether no transition leaves the status
func (s Status) IsTerminal() bool {
	return len(transitions[s]) == 0
}

// CanTransitionTo reports whether some trigger moves s to target
func (s Status) CanTransitionTo(target Status) bool {
	for _, dest := range transitions[s] {
		if dest == target {
			return true
		}
	}
	return false
}

// NextAllowed returns the statuses reachable in one step, in lifecycle order
func (s Status) NextAllowed() []Status {
	next := make([]Status, 0, 2)
	for _, candidate := range Statuses {
		if s.CanTransitionTo(candidate) {
			next = append(next, candidate)
		}
	}
	return next
}

// Permits reports whether the trigger is allowed from s
func (s Status) Permits(trigger Trigger) bool {
	_, ok := transitions[s][trigger]
	return ok
}

// newLifecycle builds a state machine whose state lives in the execution itself
func newLifecycle(e *Execution) *stateless.StateMachine {
	sm := stateless.NewStateMachineWithExternalStorage(
		func(_ context.Context) (stateless.State, error) {
			return e.Status, nil
		},
		func(_ context.Context, state stateless.State) error {
			e.Status = state.(Status)
			return nil
		},
		stateless.FiringImmediate,
	)

	for from, edges := range transitions {
		cfg := sm.Configure(from)
		for trigger, to := range edges {
			cfg.Permit(trigger, to)
		}
	}

	return sm
}
