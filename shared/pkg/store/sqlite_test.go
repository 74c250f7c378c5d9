package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSQLiteStore(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "registry.db")

	st, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer st.Close()

	require.NoError(t, st.HealthCheck())
	testRegistryContract(t, st)
}

func TestSQLiteStoreReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "registry.db")

	st, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	wi := instance("persisted")
	require.NoError(t, st.Activate(ctx(), wi, "RUNNING"))
	require.NoError(t, st.BindExecution(ctx(), wi, "exec-1"))
	require.NoError(t, st.Close())

	reopened, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer reopened.Close()

	state, err := reopened.GetActiveState(ctx(), wi)
	require.NoError(t, err)
	id, ok := state.BoundExecutionID()
	require.True(t, ok)
	require.Equal(t, "exec-1", id)
}

func TestNewStoreUnsupported(t *testing.T) {
	_, err := NewStore(Config{Type: "cassandra"})
	require.ErrorIs(t, err, ErrUnsupportedDatabase)
}

func TestNewStoreMemory(t *testing.T) {
	st, err := NewStore(Config{Type: "memory"})
	require.NoError(t, err)
	require.IsType(t, &MemoryStore{}, st)
}
