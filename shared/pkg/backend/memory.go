package backend

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/psantana5/execreaper/pkg/models"
)

// TerminateCall records one TerminateExecution invocation
type TerminateCall struct {
	Ref   models.ExecutionRef
	Cause string
}

// MemoryClient is an in-memory execution backend for tests and dry runs
type MemoryClient struct {
	mu         sync.Mutex
	scopes     []models.Scope
	executions map[models.Scope][]models.ExecutionSnapshot

	listScopesErr     error
	listExecutionsErr map[models.Scope]error
	terminateErr      map[string]error

	listScopesCalls     int
	listExecutionsCalls int
	terminateCalls      []TerminateCall
}

// NewMemoryClient creates an empty in-memory backend
func NewMemoryClient() *MemoryClient {
	return &MemoryClient{
		executions:        make(map[models.Scope][]models.ExecutionSnapshot),
		listExecutionsErr: make(map[models.Scope]error),
		terminateErr:      make(map[string]error),
	}
}

// AddScope registers a scope; adding an existing scope is a no-op
func (c *MemoryClient) AddScope(scope models.Scope) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.addScopeLocked(scope)
}

func (c *MemoryClient) addScopeLocked(scope models.Scope) {
	for _, s := range c.scopes {
		if s == scope {
			return
		}
	}
	c.scopes = append(c.scopes, scope)
}

// AddExecution stores a snapshot, registering its scope if needed.
// An execution with the same name in the same scope is replaced.
func (c *MemoryClient) AddExecution(snap models.ExecutionSnapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.addScopeLocked(snap.Scope)
	snap = copySnapshot(snap)
	list := c.executions[snap.Scope]
	for i := range list {
		if list[i].Name == snap.Name {
			list[i] = snap
			return
		}
	}
	c.executions[snap.Scope] = append(list, snap)
}

// FailListScopes makes ListScopes return err; nil clears it
func (c *MemoryClient) FailListScopes(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listScopesErr = err
}

// FailListExecutions makes ListExecutions for scope return err; nil clears it
func (c *MemoryClient) FailListExecutions(scope models.Scope, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err == nil {
		delete(c.listExecutionsErr, scope)
		return
	}
	c.listExecutionsErr[scope] = err
}

// FailTerminate makes TerminateExecution for the named execution return err; nil clears it
func (c *MemoryClient) FailTerminate(name string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err == nil {
		delete(c.terminateErr, name)
		return
	}
	c.terminateErr[name] = err
}

// ListScopes returns the registered scopes in insertion order
func (c *MemoryClient) ListScopes(ctx context.Context) ([]models.Scope, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.listScopesCalls++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.listScopesErr != nil {
		return nil, c.listScopesErr
	}
	scopes := make([]models.Scope, len(c.scopes))
	copy(scopes, c.scopes)
	return scopes, nil
}

// ListExecutions pages through a scope. Page tokens are decimal offsets.
func (c *MemoryClient) ListExecutions(ctx context.Context, req ListRequest) (*ExecutionPage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.listExecutionsCalls++
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	scope := models.Scope{Project: req.Project, Domain: req.Domain}
	if err := c.listExecutionsErr[scope]; err != nil {
		return nil, err
	}
	if !c.hasScopeLocked(scope) {
		return nil, fmt.Errorf("scope %s: %w", scope, ErrNotFound)
	}

	var filtered []models.ExecutionSnapshot
	for _, snap := range c.executions[scope] {
		if matchesPhase(snap.Phase, req.PhaseFilter) {
			filtered = append(filtered, snap)
		}
	}

	offset := 0
	if req.PageToken != "" {
		n, err := strconv.Atoi(req.PageToken)
		if err != nil || n < 0 || n > len(filtered) {
			return nil, fmt.Errorf("invalid page token %q", req.PageToken)
		}
		offset = n
	}

	end := len(filtered)
	if req.PageSize > 0 && offset+req.PageSize < end {
		end = offset + req.PageSize
	}

	page := &ExecutionPage{Executions: make([]models.ExecutionSnapshot, 0, end-offset)}
	for _, snap := range filtered[offset:end] {
		page.Executions = append(page.Executions, copySnapshot(snap))
	}
	if end < len(filtered) {
		page.NextPageToken = strconv.Itoa(end)
	}
	return page, nil
}

// TerminateExecution records the call and marks the execution aborted.
// Unknown executions are treated as already gone.
func (c *MemoryClient) TerminateExecution(ctx context.Context, project, domain, name, cause string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	scope := models.Scope{Project: project, Domain: domain}
	c.terminateCalls = append(c.terminateCalls, TerminateCall{
		Ref:   models.ExecutionRef{Scope: scope, Name: name},
		Cause: cause,
	})
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := c.terminateErr[name]; err != nil {
		return err
	}

	list := c.executions[scope]
	for i := range list {
		if list[i].Name == name {
			list[i].Phase = models.PhaseAborted
		}
	}
	return nil
}

// Execution returns a copy of a stored snapshot
func (c *MemoryClient) Execution(ref models.ExecutionRef) (models.ExecutionSnapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, snap := range c.executions[ref.Scope] {
		if snap.Name == ref.Name {
			return copySnapshot(snap), true
		}
	}
	return models.ExecutionSnapshot{}, false
}

// TerminateCalls returns every terminate call so far, sorted by execution
func (c *MemoryClient) TerminateCalls() []TerminateCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	calls := make([]TerminateCall, len(c.terminateCalls))
	copy(calls, c.terminateCalls)
	sort.Slice(calls, func(i, j int) bool {
		return calls[i].Ref.String() < calls[j].Ref.String()
	})
	return calls
}

// ListScopesCalls returns how many times ListScopes was called
func (c *MemoryClient) ListScopesCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.listScopesCalls
}

// ListExecutionsCalls returns how many times ListExecutions was called
func (c *MemoryClient) ListExecutionsCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.listExecutionsCalls
}

func (c *MemoryClient) hasScopeLocked(scope models.Scope) bool {
	for _, s := range c.scopes {
		if s == scope {
			return true
		}
	}
	return false
}

func matchesPhase(phase models.Phase, filter []models.Phase) bool {
	if len(filter) == 0 {
		return true
	}
	for _, p := range filter {
		if p == phase {
			return true
		}
	}
	return false
}

func copySnapshot(snap models.ExecutionSnapshot) models.ExecutionSnapshot {
	if snap.Annotations != nil {
		annotations := make(models.Annotations, len(snap.Annotations))
		for k, v := range snap.Annotations {
			annotations[k] = v
		}
		snap.Annotations = annotations
	}
	return snap
}
