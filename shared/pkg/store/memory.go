package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/psantana5/execreaper/pkg/models"
)

// MemoryStore is an in-memory implementation of the registry
type MemoryStore struct {
	mu     sync.RWMutex
	states map[models.WorkflowInstance]*models.ActiveState

	// call counters, read by tests
	listCalls int
	getCalls  int
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		states: make(map[models.WorkflowInstance]*models.ActiveState),
	}
}

// ListActiveInstances returns all active instances ordered by key
func (s *MemoryStore) ListActiveInstances(ctx context.Context) ([]models.WorkflowInstance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listCalls++

	instances := make([]models.WorkflowInstance, 0, len(s.states))
	for wi := range s.states {
		instances = append(instances, wi)
	}
	sort.Slice(instances, func(i, j int) bool {
		return instances[i].Key() < instances[j].Key()
	})
	return instances, nil
}

// GetActiveState returns a copy of the active state for wi
func (s *MemoryStore) GetActiveState(ctx context.Context, wi models.WorkflowInstance) (*models.ActiveState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getCalls++

	state, ok := s.states[wi]
	if !ok {
		return nil, ErrInstanceNotActive
	}
	return copyState(state), nil
}

// Activate marks wi active
func (s *MemoryStore) Activate(ctx context.Context, wi models.WorkflowInstance, state string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.states[wi]; ok {
		existing.State = state
		existing.UpdatedAt = time.Now()
		return nil
	}
	s.states[wi] = &models.ActiveState{
		Instance:  wi,
		State:     state,
		UpdatedAt: time.Now(),
	}
	return nil
}

// BindExecution records the owning execution id of an active instance
func (s *MemoryStore) BindExecution(ctx context.Context, wi models.WorkflowInstance, executionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.states[wi]
	if !ok {
		return ErrInstanceNotActive
	}
	state.ExecutionID = models.StringPtr(executionID)
	state.UpdatedAt = time.Now()
	return nil
}

// Deactivate removes wi from the active set; removing an inactive instance is a no-op
func (s *MemoryStore) Deactivate(ctx context.Context, wi models.WorkflowInstance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.states, wi)
	return nil
}

// Calls returns how many times ListActiveInstances and GetActiveState were called
func (s *MemoryStore) Calls() (list, get int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listCalls, s.getCalls
}

// Close is a no-op for the in-memory store
func (s *MemoryStore) Close() error {
	return nil
}

// HealthCheck always succeeds for the in-memory store
func (s *MemoryStore) HealthCheck() error {
	return nil
}

func copyState(state *models.ActiveState) *models.ActiveState {
	cp := *state
	if state.ExecutionID != nil {
		cp.ExecutionID = models.StringPtr(*state.ExecutionID)
	}
	return &cp
}
