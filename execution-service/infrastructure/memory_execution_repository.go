package infrastructure

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/grupo99/execution-system/execution-service/domain"
	"github.com/grupo99/execution-system/shared/models"
	"github.com/pkg/errors"
)

var _ domain.ExecutionRepository = (*MemoryExecutionRepository)(nil)

// MemoryExecutionRepository keeps executions in process memory.
// It applies the same uniqueness and version rules as the Postgres store.
type MemoryExecutionRepository struct {
	mu         sync.RWMutex
	executions map[models.ID]*domain.Execution
	byOrder    map[models.ID]models.ID
}

func NewMemoryExecutionRepository() *MemoryExecutionRepository {
	return &MemoryExecutionRepository{
		executions: make(map[models.ID]*domain.Execution),
		byOrder:    make(map[models.ID]models.ID),
	}
}

func (r *MemoryExecutionRepository) Save(_ context.Context, execution *domain.Execution) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, exists := r.executions[execution.ID]

	if execution.Version == 0 {
		if exists {
			return &domain.ConflictError{ExecutionID: execution.ID, Version: 0}
		}
		if _, taken := r.byOrder[execution.OrderID]; taken {
			return errors.Wrapf(domain.ErrExecutionExists, "order %s", execution.OrderID)
		}
	} else if !exists || current.Version != execution.Version {
		return &domain.ConflictError{ExecutionID: execution.ID, Version: execution.Version}
	}

	stored := cloneExecution(execution)
	stored.Version = execution.Version + 1
	r.executions[stored.ID] = stored
	r.byOrder[stored.OrderID] = stored.ID

	execution.Version = stored.Version
	return nil
}

func (r *MemoryExecutionRepository) FindByID(_ context.Context, id models.ID) (*domain.Execution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if e, ok := r.executions[id]; ok {
		return cloneExecution(e), nil
	}
	return nil, nil
}

func (r *MemoryExecutionRepository) FindByOrderID(_ context.Context, orderID models.ID) (*domain.Execution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if id, ok := r.byOrder[orderID]; ok {
		return cloneExecution(r.executions[id]), nil
	}
	return nil, nil
}

func (r *MemoryExecutionRepository) FindByStatus(_ context.Context, status domain.Status) ([]*domain.Execution, error) {
	return r.filter(func(e *domain.Execution) bool { return e.Status == status }), nil
}

func (r *MemoryExecutionRepository) FindByMechanic(_ context.Context, mechanic string) ([]*domain.Execution, error) {
	return r.filter(func(e *domain.Execution) bool { return e.Mechanic == mechanic }), nil
}

func (r *MemoryExecutionRepository) FindAll(_ context.Context) ([]*domain.Execution, error) {
	return r.filter(func(*domain.Execution) bool { return true }), nil
}

func (r *MemoryExecutionRepository) DeleteByID(_ context.Context, id models.ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.executions[id]; ok {
		delete(r.byOrder, e.OrderID)
		delete(r.executions, id)
	}
	return nil
}

func (r *MemoryExecutionRepository) ExistsByOrderID(_ context.Context, orderID models.ID) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.byOrder[orderID]
	return ok, nil
}

func (r *MemoryExecutionRepository) ExistsByID(_ context.Context, id models.ID) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.executions[id]
	return ok, nil
}

// filter returns matching executions newest first
func (r *MemoryExecutionRepository) filter(match func(*domain.Execution) bool) []*domain.Execution {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Execution, 0, len(r.executions))
	for _, e := range r.executions {
		if match(e) {
			out = append(out, cloneExecution(e))
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamps.CreatedAt.After(out[j].Timestamps.CreatedAt)
	})
	return out
}

func cloneExecution(e *domain.Execution) *domain.Execution {
	c := *e
	c.StartedAt = cloneTime(e.StartedAt)
	c.FinishedAt = cloneTime(e.FinishedAt)

	c.Diagnoses = make([]*domain.Diagnosis, len(e.Diagnoses))
	for i, d := range e.Diagnoses {
		dc := *d
		c.Diagnoses[i] = &dc
	}

	c.Tasks = make([]*domain.Task, len(e.Tasks))
	for i, t := range e.Tasks {
		tc := *t
		tc.StartedAt = cloneTime(t.StartedAt)
		tc.FinishedAt = cloneTime(t.FinishedAt)
		c.Tasks[i] = &tc
	}

	c.Parts = make([]*domain.PartUsage, len(e.Parts))
	for i, p := range e.Parts {
		pc := *p
		c.Parts[i] = &pc
	}

	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
