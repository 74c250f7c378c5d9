package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/psantana5/execreaper/pkg/models"
)

// ErrNotFound is matched by errors that report an unknown scope or execution
var ErrNotFound = errors.New("not found")

// Client is the subset of the execution backend's admin API the reconciler uses
type Client interface {
	// ListScopes returns every (project, domain) pair known to the backend
	ListScopes(ctx context.Context) ([]models.Scope, error)
	// ListExecutions returns one page of executions in a scope
	ListExecutions(ctx context.Context, req ListRequest) (*ExecutionPage, error)
	// TerminateExecution asks the backend to abort an execution, recording cause
	TerminateExecution(ctx context.Context, project, domain, name, cause string) error
}

// ListRequest selects one page of executions
type ListRequest struct {
	Project  string
	Domain   string
	PageSize int
	// PhaseFilter restricts results to the given phases; empty means all phases
	PhaseFilter []models.Phase
	// PageToken continues a previous listing; empty starts from the beginning
	PageToken string
}

// ExecutionPage is one page of a listing
type ExecutionPage struct {
	Executions []models.ExecutionSnapshot
	// NextPageToken is empty on the last page
	NextPageToken string
}

// StatusError is returned when the backend answers with a non-success status
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s failed with status %d: %s", e.Op, e.StatusCode, e.Body)
}

// Unwrap lets errors.Is match ErrNotFound on 404 responses
func (e *StatusError) Unwrap() error {
	if e.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	return nil
}
