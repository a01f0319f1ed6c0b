package application

import (
	"context"
	"testing"

	"github.com/grupo99/execution-system/execution-service/domain"
	"github.com/grupo99/execution-system/execution-service/mocks"
	"github.com/grupo99/execution-system/shared/events"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func completedEvent() interface{} {
	return mock.MatchedBy(func(evt domain.OutboundEvent) bool {
		completed, ok := evt.(domain.ExecutionCompletedData)
		return ok && completed.ExecutionID == testExecutionID && completed.OrderID == testOrderID
	})
}

func TestFinishExecution_Execute(t *testing.T) {
	tests := []struct {
		name           string
		command        *FinishExecutionCommand
		setupMocks     func(*testing.T, *mocks.MockExecutionRepository, *mocks.MockEventPublisher)
		expectedError  string
		errorCheck     func(error) bool
		validateResult func(*testing.T, *ExecutionResponse)
	}{
		{
			name:    "finishes and publishes completion",
			command: &FinishExecutionCommand{ExecutionID: testExecutionID.String(), Notes: "pads replaced"},
			setupMocks: func(t *testing.T, repo *mocks.MockExecutionRepository, publisher *mocks.MockEventPublisher) {
				repo.EXPECT().FindByID(mock.Anything, testExecutionID).
					Return(persistedExecution(t, domain.StatusInProgress), nil).Once()
				repo.EXPECT().Save(mock.Anything, savedWith(func(e *domain.Execution) bool {
					return e.Status == domain.StatusCompleted && e.HasPending(events.ExecutionCompletedEvent)
				})).Return(nil).Once()
				publisher.EXPECT().Publish(mock.Anything, completedEvent()).Return(nil).Once()
				repo.EXPECT().Save(mock.Anything, savedWith(func(e *domain.Execution) bool {
					return e.Status == domain.StatusCompleted && e.PendingEvent == ""
				})).Return(nil).Once()
			},
			validateResult: func(t *testing.T, resp *ExecutionResponse) {
				assert.Equal(t, "COMPLETED", resp.Status)
				assert.Equal(t, "pads replaced", resp.Notes)
				assert.Empty(t, resp.NextStatuses)
				assert.NotEmpty(t, resp.FinishedAt)
			},
		},
		{
			name:    "retry after a failed publish republishes",
			command: &FinishExecutionCommand{ExecutionID: testExecutionID.String()},
			setupMocks: func(t *testing.T, repo *mocks.MockExecutionRepository, publisher *mocks.MockEventPublisher) {
				completed := persistedExecution(t, domain.StatusCompleted)
				completed.MarkPending(events.ExecutionCompletedEvent)
				repo.EXPECT().FindByID(mock.Anything, testExecutionID).Return(completed, nil).Once()
				publisher.EXPECT().Publish(mock.Anything, completedEvent()).Return(nil).Once()
				repo.EXPECT().Save(mock.Anything, mock.Anything).Return(nil).Once()
			},
			validateResult: func(t *testing.T, resp *ExecutionResponse) {
				assert.Equal(t, "COMPLETED", resp.Status)
			},
		},
		{
			name:    "cannot finish before starting",
			command: &FinishExecutionCommand{ExecutionID: testExecutionID.String()},
			setupMocks: func(t *testing.T, repo *mocks.MockExecutionRepository, publisher *mocks.MockEventPublisher) {
				repo.EXPECT().FindByID(mock.Anything, testExecutionID).
					Return(persistedExecution(t, domain.StatusAwaitingStart), nil).Once()
			},
			errorCheck: domain.IsStateConflict,
		},
		{
			name:    "unknown execution",
			command: &FinishExecutionCommand{ExecutionID: testExecutionID.String()},
			setupMocks: func(t *testing.T, repo *mocks.MockExecutionRepository, publisher *mocks.MockEventPublisher) {
				repo.EXPECT().FindByID(mock.Anything, testExecutionID).Return(nil, nil).Once()
			},
			errorCheck: domain.IsNotFound,
		},
		{
			name:    "publish failure leaves completion pending",
			command: &FinishExecutionCommand{ExecutionID: testExecutionID.String()},
			setupMocks: func(t *testing.T, repo *mocks.MockExecutionRepository, publisher *mocks.MockEventPublisher) {
				repo.EXPECT().FindByID(mock.Anything, testExecutionID).
					Return(persistedExecution(t, domain.StatusInProgress), nil).Once()
				repo.EXPECT().Save(mock.Anything, mock.Anything).Return(nil).Once()
				publisher.EXPECT().Publish(mock.Anything, mock.Anything).Return(errors.New("broker down")).Once()
			},
			expectedError: "failed to publish execution completed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := mocks.NewMockExecutionRepository(t)
			mockPublisher := mocks.NewMockEventPublisher(t)
			tt.setupMocks(t, mockRepo, mockPublisher)

			resp, err := NewFinishExecution(mockRepo, mockPublisher, nopLogger).Execute(context.Background(), tt.command)

			switch {
			case tt.expectedError != "":
				assert.ErrorContains(t, err, tt.expectedError)
				assert.Nil(t, resp)
			case tt.errorCheck != nil:
				assert.True(t, tt.errorCheck(err), "unexpected error %v", err)
				assert.Nil(t, resp)
			default:
				require.NoError(t, err)
				tt.validateResult(t, resp)
			}
		})
	}
}
