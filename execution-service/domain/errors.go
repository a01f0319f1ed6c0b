package domain

import (
	"fmt"

	"github.com/grupo99/execution-system/shared/models"
	"github.com/pkg/errors"
)

// ErrExecutionExists is returned by the store when an order already has an execution
var ErrExecutionExists = errors.New("execution already exists for order")

// InvalidArgumentError reports malformed command input
type InvalidArgumentError struct {
	Field  string
	Reason string
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// StateConflictError reports an illegal lifecycle transition
type StateConflictError struct {
	Entity    string
	Attempted string
	Current   string
}

func (e *StateConflictError) Error() string {
	entity := e.Entity
	if entity == "" {
		entity = "execution"
	}
	return fmt.Sprintf("%s cannot move from %s to %s", entity, e.Current, e.Attempted)
}

// NotFoundError reports that a referenced execution does not exist
type NotFoundError struct {
	Key   string
	Value string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("execution not found: %s=%s", e.Key, e.Value)
}

// ConflictError reports a concurrent write detected by the version check
type ConflictError struct {
	ExecutionID models.ID
	Version     int
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("execution %s was modified concurrently (expected version %d)", e.ExecutionID, e.Version)
}

func IsInvalidArgument(err error) bool {
	var target *InvalidArgumentError
	return errors.As(err, &target)
}

func IsStateConflict(err error) bool {
	var target *StateConflictError
	return errors.As(err, &target)
}

func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

func IsConflict(err error) bool {
	var target *ConflictError
	return errors.As(err, &target)
}

func invalid(field, reason string) error {
	return &InvalidArgumentError{Field: field, Reason: reason}
}
