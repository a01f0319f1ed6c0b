package application

import (
	"context"
	"testing"

	"github.com/grupo99/execution-system/execution-service/domain"
	"github.com/grupo99/execution-system/execution-service/mocks"
	"github.com/grupo99/execution-system/shared/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestHandleBudgetApproved_Execute(t *testing.T) {
	command := &BudgetApprovedCommand{OrderID: testOrderID.String(), BudgetID: testBudgetID.String()}

	tests := []struct {
		name       string
		command    *BudgetApprovedCommand
		setupMocks func(*testing.T, *mocks.MockExecutionRepository)
		errorCheck func(error) bool
	}{
		{
			name:    "starts an execution awaiting start",
			command: command,
			setupMocks: func(t *testing.T, repo *mocks.MockExecutionRepository) {
				repo.EXPECT().FindByOrderID(mock.Anything, testOrderID).
					Return(persistedExecution(t, domain.StatusAwaitingStart), nil).Once()
				repo.EXPECT().Save(mock.Anything, savedWith(func(e *domain.Execution) bool {
					return e.Status == domain.StatusInProgress && e.BudgetID == testBudgetID && e.StartedAt != nil
				})).Return(nil).Once()
			},
		},
		{
			name:    "same budget on a running execution is a no-op",
			command: command,
			setupMocks: func(t *testing.T, repo *mocks.MockExecutionRepository) {
				running := persistedExecution(t, domain.StatusInProgress)
				running.BudgetID = testBudgetID
				repo.EXPECT().FindByOrderID(mock.Anything, testOrderID).Return(running, nil).Once()
			},
		},
		{
			name:    "new budget on a running execution is re-attached",
			command: command,
			setupMocks: func(t *testing.T, repo *mocks.MockExecutionRepository) {
				running := persistedExecution(t, domain.StatusInProgress)
				running.BudgetID = models.ID("old-budget")
				repo.EXPECT().FindByOrderID(mock.Anything, testOrderID).Return(running, nil).Once()
				repo.EXPECT().Save(mock.Anything, savedWith(func(e *domain.Execution) bool {
					return e.Status == domain.StatusInProgress && e.BudgetID == testBudgetID
				})).Return(nil).Once()
			},
		},
		{
			name:    "approval before the order is known",
			command: command,
			setupMocks: func(t *testing.T, repo *mocks.MockExecutionRepository) {
				repo.EXPECT().FindByOrderID(mock.Anything, testOrderID).Return(nil, nil).Once()
			},
			errorCheck: domain.IsNotFound,
		},
		{
			name:    "approval of a completed execution",
			command: command,
			setupMocks: func(t *testing.T, repo *mocks.MockExecutionRepository) {
				repo.EXPECT().FindByOrderID(mock.Anything, testOrderID).
					Return(persistedExecution(t, domain.StatusCompleted), nil).Once()
			},
			errorCheck: domain.IsStateConflict,
		},
		{
			name:       "missing budget id",
			command:    &BudgetApprovedCommand{OrderID: testOrderID.String()},
			setupMocks: func(t *testing.T, repo *mocks.MockExecutionRepository) {},
			errorCheck: domain.IsInvalidArgument,
		},
		{
			name:    "version conflict surfaces for redelivery",
			command: command,
			setupMocks: func(t *testing.T, repo *mocks.MockExecutionRepository) {
				repo.EXPECT().FindByOrderID(mock.Anything, testOrderID).
					Return(persistedExecution(t, domain.StatusAwaitingStart), nil).Once()
				repo.EXPECT().Save(mock.Anything, mock.Anything).
					Return(&domain.ConflictError{ExecutionID: testExecutionID, Version: 1}).Once()
			},
			errorCheck: domain.IsConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := mocks.NewMockExecutionRepository(t)
			tt.setupMocks(t, mockRepo)

			err := NewHandleBudgetApproved(mockRepo, nopLogger).Execute(context.Background(), tt.command)

			if tt.errorCheck != nil {
				assert.True(t, tt.errorCheck(err), "unexpected error %v", err)
				return
			}
			assert.NoError(t, err)
		})
	}
}
