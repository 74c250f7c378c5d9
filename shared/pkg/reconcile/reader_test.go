package reconcile

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/psantana5/execreaper/pkg/backend"
	"github.com/psantana5/execreaper/pkg/models"
)

func TestSnapshotReaderReadsAllScopesAndPages(t *testing.T) {
	client := backend.NewMemoryClient()
	scopes := []models.Scope{
		{Project: "a", Domain: "development"},
		{Project: "a", Domain: "production"},
		{Project: "b", Domain: "production"},
	}
	for _, scope := range scopes {
		for i := 0; i < 5; i++ {
			client.AddExecution(models.ExecutionSnapshot{
				Scope: scope,
				Name:  fmt.Sprintf("exec-%d", i),
				Phase: models.PhaseRunning,
			})
		}
	}
	client.AddScope(models.Scope{Project: "c", Domain: "empty"})

	reader := NewSnapshotReader(client, 2)
	snapshots, err := reader.ReadAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, snapshots, 15)

	// 3 pages for each populated scope, 1 for the empty one
	assert.Equal(t, 10, client.ListExecutionsCalls())
	assert.Equal(t, 1, client.ListScopesCalls())
}

func TestSnapshotReaderDefaultPageSize(t *testing.T) {
	reader := NewSnapshotReader(backend.NewMemoryClient(), 0)
	assert.Equal(t, DefaultPageSize, reader.pageSize)
}

func TestSnapshotReaderDiscardsPartialReads(t *testing.T) {
	client := backend.NewMemoryClient()
	ok := models.Scope{Project: "a", Domain: "d"}
	broken := models.Scope{Project: "b", Domain: "d"}
	client.AddExecution(models.ExecutionSnapshot{Scope: ok, Name: "e1", Phase: models.PhaseRunning})
	client.AddExecution(models.ExecutionSnapshot{Scope: broken, Name: "e2", Phase: models.PhaseRunning})

	boom := errors.New("page fetch failed")
	client.FailListExecutions(broken, boom)

	snapshots, err := NewSnapshotReader(client, 10).ReadAll(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "b/d")
	assert.Nil(t, snapshots)
}

func TestSnapshotReaderScopeListingError(t *testing.T) {
	client := backend.NewMemoryClient()
	boom := errors.New("unavailable")
	client.FailListScopes(boom)

	_, err := NewSnapshotReader(client, 10).ReadAll(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, client.ListExecutionsCalls())
}

// loopingClient hands out the same continuation token forever
type loopingClient struct {
	backend.Client
}

func (loopingClient) ListScopes(ctx context.Context) ([]models.Scope, error) {
	return []models.Scope{{Project: "p", Domain: "d"}}, nil
}

func (loopingClient) ListExecutions(ctx context.Context, req backend.ListRequest) (*backend.ExecutionPage, error) {
	return &backend.ExecutionPage{
		Executions:    []models.ExecutionSnapshot{{Name: "e", Phase: models.PhaseRunning}},
		NextPageToken: "same",
	}, nil
}

func TestSnapshotReaderRejectsRepeatedToken(t *testing.T) {
	_, err := NewSnapshotReader(loopingClient{}, 1).ReadAll(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "repeated")
}

func TestSnapshotReaderFillsMissingScope(t *testing.T) {
	client := &stubClient{
		scopes: []models.Scope{{Project: "p", Domain: "d"}},
		executions: []models.ExecutionSnapshot{
			{Name: "e", Phase: models.PhaseRunning},
		},
	}
	snapshots, err := NewSnapshotReader(client, 10).ReadAll(context.Background())
	require.NoError(t, err)
	require.Len(t, snapshots, 1)
	assert.Equal(t, models.Scope{Project: "p", Domain: "d"}, snapshots[0].Scope)
}
