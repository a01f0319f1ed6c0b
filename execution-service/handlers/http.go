package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/grupo99/execution-system/execution-service/application"
	"github.com/grupo99/execution-system/execution-service/domain"
	"github.com/grupo99/execution-system/shared/resilience"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ExecutionHandlers contains the execution admin HTTP handlers
type ExecutionHandlers struct {
	createExecution  *application.CreateExecution
	getExecution     *application.GetExecution
	listExecutions   *application.ListExecutions
	startExecution   *application.StartExecution
	finishExecution  *application.FinishExecution
	cancelExecution  *application.CancelExecution
	deleteExecution  *application.DeleteExecution
	recordDiagnosis  *application.RecordDiagnosis
	addTask          *application.AddTask
	changeTaskStatus *application.ChangeTaskStatus
	addPartUsage     *application.AddPartUsage
	logger           *zap.SugaredLogger
}

// UseCases groups the admin use cases served over HTTP
type UseCases struct {
	CreateExecution  *application.CreateExecution
	GetExecution     *application.GetExecution
	ListExecutions   *application.ListExecutions
	StartExecution   *application.StartExecution
	FinishExecution  *application.FinishExecution
	CancelExecution  *application.CancelExecution
	DeleteExecution  *application.DeleteExecution
	RecordDiagnosis  *application.RecordDiagnosis
	AddTask          *application.AddTask
	ChangeTaskStatus *application.ChangeTaskStatus
	AddPartUsage     *application.AddPartUsage
}

func NewExecutionHandlers(uc UseCases, logger *zap.SugaredLogger) *ExecutionHandlers {
	return &ExecutionHandlers{
		createExecution:  uc.CreateExecution,
		getExecution:     uc.GetExecution,
		listExecutions:   uc.ListExecutions,
		startExecution:   uc.StartExecution,
		finishExecution:  uc.FinishExecution,
		cancelExecution:  uc.CancelExecution,
		deleteExecution:  uc.DeleteExecution,
		recordDiagnosis:  uc.RecordDiagnosis,
		addTask:          uc.AddTask,
		changeTaskStatus: uc.ChangeTaskStatus,
		addPartUsage:     uc.AddPartUsage,
		logger:           logger,
	}
}

// RegisterRoutes registers execution routes
func (h *ExecutionHandlers) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/executions", func(r chi.Router) {
		r.Post("/", h.CreateExecution)
		r.Get("/", h.ListExecutions)
		r.Get("/order/{orderID}", h.GetExecutionByOrder)
		r.Get("/status/{status}", h.ListByStatus)
		r.Get("/mechanic/{name}", h.ListByMechanic)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetExecution)
			r.Delete("/", h.DeleteExecution)
			r.Put("/start", h.StartExecution)
			r.Put("/finish", h.FinishExecution)
			r.Put("/cancel", h.CancelExecution)
			r.Post("/diagnoses", h.RecordDiagnosis)
			r.Post("/tasks", h.AddTask)
			r.Put("/tasks/{taskID}/{action}", h.ChangeTaskStatus)
			r.Post("/parts", h.AddPartUsage)
		})
	})
}

func (h *ExecutionHandlers) CreateExecution(w http.ResponseWriter, r *http.Request) {
	var cmd application.CreateExecutionCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	response, err := h.createExecution.Execute(r.Context(), &cmd)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, response)
}

func (h *ExecutionHandlers) GetExecution(w http.ResponseWriter, r *http.Request) {
	response, err := h.getExecution.Execute(r.Context(), &application.GetExecutionQuery{
		ExecutionID: chi.URLParam(r, "id"),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, response)
}

func (h *ExecutionHandlers) GetExecutionByOrder(w http.ResponseWriter, r *http.Request) {
	response, err := h.getExecution.Execute(r.Context(), &application.GetExecutionQuery{
		OrderID: chi.URLParam(r, "orderID"),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, response)
}

func (h *ExecutionHandlers) ListExecutions(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, &application.ListExecutionsQuery{})
}

func (h *ExecutionHandlers) ListByStatus(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, &application.ListExecutionsQuery{Status: chi.URLParam(r, "status")})
}

func (h *ExecutionHandlers) ListByMechanic(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, &application.ListExecutionsQuery{Mechanic: chi.URLParam(r, "name")})
}

func (h *ExecutionHandlers) list(w http.ResponseWriter, r *http.Request, query *application.ListExecutionsQuery) {
	response, err := h.listExecutions.Execute(r.Context(), query)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, response)
}

func (h *ExecutionHandlers) StartExecution(w http.ResponseWriter, r *http.Request) {
	response, err := h.startExecution.Execute(r.Context(), &application.StartExecutionCommand{
		ExecutionID: chi.URLParam(r, "id"),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, response)
}

func (h *ExecutionHandlers) FinishExecution(w http.ResponseWriter, r *http.Request) {
	response, err := h.finishExecution.Execute(r.Context(), &application.FinishExecutionCommand{
		ExecutionID: chi.URLParam(r, "id"),
		Notes:       r.URL.Query().Get("notes"),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, response)
}

func (h *ExecutionHandlers) CancelExecution(w http.ResponseWriter, r *http.Request) {
	response, err := h.cancelExecution.Execute(r.Context(), &application.CancelExecutionCommand{
		ExecutionID: chi.URLParam(r, "id"),
		Reason:      r.URL.Query().Get("reason"),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, response)
}

func (h *ExecutionHandlers) DeleteExecution(w http.ResponseWriter, r *http.Request) {
	err := h.deleteExecution.Execute(r.Context(), &application.DeleteExecutionCommand{
		ExecutionID: chi.URLParam(r, "id"),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *ExecutionHandlers) RecordDiagnosis(w http.ResponseWriter, r *http.Request) {
	var cmd application.RecordDiagnosisCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	cmd.ExecutionID = chi.URLParam(r, "id")

	response, err := h.recordDiagnosis.Execute(r.Context(), &cmd)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, response)
}

func (h *ExecutionHandlers) AddTask(w http.ResponseWriter, r *http.Request) {
	var cmd application.AddTaskCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	cmd.ExecutionID = chi.URLParam(r, "id")

	response, err := h.addTask.Execute(r.Context(), &cmd)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, response)
}

func (h *ExecutionHandlers) ChangeTaskStatus(w http.ResponseWriter, r *http.Request) {
	response, err := h.changeTaskStatus.Execute(r.Context(), &application.ChangeTaskStatusCommand{
		ExecutionID: chi.URLParam(r, "id"),
		TaskID:      chi.URLParam(r, "taskID"),
		Action:      chi.URLParam(r, "action"),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, response)
}

func (h *ExecutionHandlers) AddPartUsage(w http.ResponseWriter, r *http.Request) {
	var cmd application.AddPartUsageCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	cmd.ExecutionID = chi.URLParam(r, "id")

	response, err := h.addPartUsage.Execute(r.Context(), &cmd)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, response)
}

// writeError maps domain errors to status codes; unexpected errors are logged and hidden
func (h *ExecutionHandlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case domain.IsInvalidArgument(err):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case domain.IsNotFound(err):
		http.Error(w, err.Error(), http.StatusNotFound)
	case domain.IsStateConflict(err), domain.IsConflict(err), errors.Is(err, domain.ErrExecutionExists):
		http.Error(w, err.Error(), http.StatusConflict)
	case resilience.IsPublishFailure(err):
		http.Error(w, "event publishing unavailable, retry later", http.StatusServiceUnavailable)
	default:
		h.logger.Errorw("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
