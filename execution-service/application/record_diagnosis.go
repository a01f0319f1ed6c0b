package application

import (
	"context"

	"github.com/grupo99/execution-system/execution-service/domain"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// RecordDiagnosisCommand appends a diagnosis to an execution
type RecordDiagnosisCommand struct {
	ExecutionID string `json:"execution_id"`
	Description string `json:"description"`
	Mechanic    string `json:"mechanic"`
	Notes       string `json:"notes,omitempty"`
}

// RecordDiagnosis stores the diagnosis and announces it with the current estimate
type RecordDiagnosis struct {
	executionRepository domain.ExecutionRepository
	eventPublisher      domain.EventPublisher
	logger              *zap.SugaredLogger
}

func NewRecordDiagnosis(
	executionRepository domain.ExecutionRepository,
	eventPublisher domain.EventPublisher,
	logger *zap.SugaredLogger,
) *RecordDiagnosis {
	return &RecordDiagnosis{
		executionRepository: executionRepository,
		eventPublisher:      eventPublisher,
		logger:              logger,
	}
}

func (uc *RecordDiagnosis) Execute(ctx context.Context, cmd *RecordDiagnosisCommand) (resp *ExecutionResponse, err error) {
	ctx, op := startOperation(ctx, "record_diagnosis", attribute.String("execution_id", cmd.ExecutionID))
	defer func() { op.end(err) }()

	diagnosis, err := domain.NewDiagnosis(cmd.Description, cmd.Mechanic, cmd.Notes)
	if err != nil {
		return nil, err
	}

	execution, err := loadExecution(ctx, uc.executionRepository, cmd.ExecutionID)
	if err != nil {
		return nil, err
	}

	if err := execution.AddDiagnosis(diagnosis); err != nil {
		return nil, err
	}

	if err := uc.executionRepository.Save(ctx, execution); err != nil {
		return nil, errors.Wrap(err, "failed to save execution")
	}

	// the diagnosis is already stored, a lost notification does not fail the request
	if err := uc.eventPublisher.Publish(ctx, execution.DiagnosisCompleted(diagnosis)); err != nil {
		uc.logger.Warnw("diagnosis completed event not published",
			"order_id", execution.OrderID,
			"execution_id", execution.ID,
			"error", err,
		)
	}

	uc.logger.Infow("diagnosis recorded", "execution_id", execution.ID, "diagnosis_id", diagnosis.ID)
	return NewExecutionResponse(execution), nil
}
