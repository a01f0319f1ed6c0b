package application

import (
	"testing"

	"github.com/grupo99/execution-system/execution-service/domain"
	"github.com/grupo99/execution-system/shared/models"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	testOrderID     = models.ID("550e8400-e29b-41d4-a716-446655440001")
	testExecutionID = models.ID("550e8400-e29b-41d4-a716-446655440002")
	testBudgetID    = models.ID("550e8400-e29b-41d4-a716-446655440003")
)

var nopLogger = zap.NewNop().Sugar()

// persistedExecution returns a stored execution in the given status
func persistedExecution(t *testing.T, status domain.Status) *domain.Execution {
	t.Helper()
	e, err := domain.NewExecution(testOrderID, "joao")
	require.NoError(t, err)
	e.ID = testExecutionID
	e.Status = status
	e.Version = 1
	return e
}

func savedWith(match func(*domain.Execution) bool) interface{} {
	return mock.MatchedBy(match)
}
