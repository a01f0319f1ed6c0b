package application

import (
	"context"
	"testing"

	"github.com/grupo99/execution-system/execution-service/domain"
	"github.com/grupo99/execution-system/execution-service/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestHandleBudgetRejected_Execute(t *testing.T) {
	command := &BudgetRejectedCommand{OrderID: testOrderID.String(), Reason: "too expensive"}

	tests := []struct {
		name       string
		setupMocks func(*testing.T, *mocks.MockExecutionRepository)
		errorCheck func(error) bool
	}{
		{
			name: "cancels an execution awaiting start",
			setupMocks: func(t *testing.T, repo *mocks.MockExecutionRepository) {
				repo.EXPECT().FindByOrderID(mock.Anything, testOrderID).
					Return(persistedExecution(t, domain.StatusAwaitingStart), nil).Once()
				repo.EXPECT().Save(mock.Anything, savedWith(func(e *domain.Execution) bool {
					return e.Status == domain.StatusCancelled && e.Notes == "budget rejected: too expensive"
				})).Return(nil).Once()
			},
		},
		{
			name: "unknown order is a no-op",
			setupMocks: func(t *testing.T, repo *mocks.MockExecutionRepository) {
				repo.EXPECT().FindByOrderID(mock.Anything, testOrderID).Return(nil, nil).Once()
			},
		},
		{
			name: "already cancelled is a no-op",
			setupMocks: func(t *testing.T, repo *mocks.MockExecutionRepository) {
				repo.EXPECT().FindByOrderID(mock.Anything, testOrderID).
					Return(persistedExecution(t, domain.StatusCancelled), nil).Once()
			},
		},
		{
			name: "completed execution cannot be cancelled",
			setupMocks: func(t *testing.T, repo *mocks.MockExecutionRepository) {
				repo.EXPECT().FindByOrderID(mock.Anything, testOrderID).
					Return(persistedExecution(t, domain.StatusCompleted), nil).Once()
			},
			errorCheck: domain.IsStateConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := mocks.NewMockExecutionRepository(t)
			tt.setupMocks(t, mockRepo)

			err := NewHandleBudgetRejected(mockRepo, nopLogger).Execute(context.Background(), command)

			if tt.errorCheck != nil {
				assert.True(t, tt.errorCheck(err), "unexpected error %v", err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestRejectionNotes(t *testing.T) {
	assert.Equal(t, "budget rejected: no reason given", rejectionNotes(" "))
	assert.Equal(t, "budget rejected: price", rejectionNotes("price"))
}
