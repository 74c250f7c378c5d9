package store

import (
	"context"
	"testing"

	"github.com/psantana5/execreaper/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ctx() context.Context {
	return context.Background()
}

func instance(name string) models.WorkflowInstance {
	return models.NewWorkflowInstance("component", name, "2020-10-24")
}

func TestMemoryStore(t *testing.T) {
	testRegistryContract(t, NewMemoryStore())
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	st := NewMemoryStore()
	wi := instance("copy")
	require.NoError(t, st.Activate(ctx(), wi, "RUNNING"))
	require.NoError(t, st.BindExecution(ctx(), wi, "r1"))

	state, err := st.GetActiveState(ctx(), wi)
	require.NoError(t, err)
	*state.ExecutionID = "mutated"

	again, err := st.GetActiveState(ctx(), wi)
	require.NoError(t, err)
	id, _ := again.BoundExecutionID()
	assert.Equal(t, "r1", id)

	list, get := st.Calls()
	assert.Equal(t, 0, list)
	assert.Equal(t, 2, get)
}

// testRegistryContract exercises behavior every Store implementation shares.
// The store must be empty when called.
func testRegistryContract(t *testing.T, st Store) {
	t.Helper()

	a := instance("a")
	b := instance("b")

	instances, err := st.ListActiveInstances(ctx())
	require.NoError(t, err)
	assert.Empty(t, instances)

	_, err = st.GetActiveState(ctx(), a)
	assert.ErrorIs(t, err, ErrInstanceNotActive)

	assert.ErrorIs(t, st.BindExecution(ctx(), a, "r1"), ErrInstanceNotActive)

	require.NoError(t, st.Activate(ctx(), b, "QUEUED"))
	require.NoError(t, st.Activate(ctx(), a, "SUBMITTED"))

	instances, err = st.ListActiveInstances(ctx())
	require.NoError(t, err)
	assert.Equal(t, []models.WorkflowInstance{a, b}, instances)

	// Active but not yet bound
	state, err := st.GetActiveState(ctx(), a)
	require.NoError(t, err)
	assert.Equal(t, a, state.Instance)
	assert.Equal(t, "SUBMITTED", state.State)
	_, bound := state.BoundExecutionID()
	assert.False(t, bound)

	require.NoError(t, st.BindExecution(ctx(), a, "r1"))

	// Re-activating keeps the binding
	require.NoError(t, st.Activate(ctx(), a, "RUNNING"))
	state, err = st.GetActiveState(ctx(), a)
	require.NoError(t, err)
	assert.Equal(t, "RUNNING", state.State)
	id, bound := state.BoundExecutionID()
	assert.True(t, bound)
	assert.Equal(t, "r1", id)

	// Rebinding supersedes the old id
	require.NoError(t, st.BindExecution(ctx(), a, "r2"))
	state, err = st.GetActiveState(ctx(), a)
	require.NoError(t, err)
	id, _ = state.BoundExecutionID()
	assert.Equal(t, "r2", id)

	require.NoError(t, st.Deactivate(ctx(), a))
	require.NoError(t, st.Deactivate(ctx(), a))

	_, err = st.GetActiveState(ctx(), a)
	assert.ErrorIs(t, err, ErrInstanceNotActive)

	instances, err = st.ListActiveInstances(ctx())
	require.NoError(t, err)
	assert.Equal(t, []models.WorkflowInstance{b}, instances)
}
