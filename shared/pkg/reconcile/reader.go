package reconcile

import (
	"context"
	"fmt"

	"github.com/psantana5/execreaper/pkg/backend"
	"github.com/psantana5/execreaper/pkg/models"
)

// DefaultPageSize is the list-executions page size used when none is configured
const DefaultPageSize = 200

// SnapshotReader collects every backend execution across all scopes
type SnapshotReader struct {
	client   backend.Client
	pageSize int
}

// NewSnapshotReader creates a reader; pageSize <= 0 uses DefaultPageSize
func NewSnapshotReader(client backend.Client, pageSize int) *SnapshotReader {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &SnapshotReader{client: client, pageSize: pageSize}
}

// ReadAll lists scopes and pages through each of them. Any failure discards
// the whole read so that no scope is acted on while another was skipped.
func (r *SnapshotReader) ReadAll(ctx context.Context) ([]models.ExecutionSnapshot, error) {
	scopes, err := r.client.ListScopes(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list scopes: %w", err)
	}

	var snapshots []models.ExecutionSnapshot
	for _, scope := range scopes {
		scoped, err := r.readScope(ctx, scope)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, scoped...)
	}
	return snapshots, nil
}

func (r *SnapshotReader) readScope(ctx context.Context, scope models.Scope) ([]models.ExecutionSnapshot, error) {
	var snapshots []models.ExecutionSnapshot
	seen := make(map[string]bool)
	token := ""

	for {
		page, err := r.client.ListExecutions(ctx, backend.ListRequest{
			Project:   scope.Project,
			Domain:    scope.Domain,
			PageSize:  r.pageSize,
			PageToken: token,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list executions in %s: %w", scope, err)
		}

		for _, snap := range page.Executions {
			// Backends key executions by scope; fill it in when a page omits it.
			if snap.Scope == (models.Scope{}) {
				snap.Scope = scope
			}
			snapshots = append(snapshots, snap)
		}

		if page.NextPageToken == "" {
			return snapshots, nil
		}
		if seen[page.NextPageToken] {
			return nil, fmt.Errorf("failed to list executions in %s: page token %q repeated", scope, page.NextPageToken)
		}
		seen[page.NextPageToken] = true
		token = page.NextPageToken
	}
}
