package store

import (
	"context"
	"errors"
	"time"

	"github.com/psantana5/execreaper/pkg/models"
)

var (
	// ErrInstanceNotActive is returned by GetActiveState when the instance has no active state
	ErrInstanceNotActive   = errors.New("workflow instance not active")
	ErrUnsupportedDatabase = errors.New("unsupported database type")
)

// Registry is the read-only view of the scheduler's active-state registry.
// The reconciler only ever reads through this interface.
type Registry interface {
	ListActiveInstances(ctx context.Context) ([]models.WorkflowInstance, error)
	GetActiveState(ctx context.Context, wi models.WorkflowInstance) (*models.ActiveState, error)
}

// Store is a Registry that can also be written. The scheduler owns the writes;
// they exist here so adapters can be seeded and tested.
type Store interface {
	Registry

	// Activate marks wi active in the given run state, keeping any bound execution id
	Activate(ctx context.Context, wi models.WorkflowInstance, state string) error
	// BindExecution records executionID as the owning backend execution of an active wi
	BindExecution(ctx context.Context, wi models.WorkflowInstance, executionID string) error
	// Deactivate removes wi from the active set
	Deactivate(ctx context.Context, wi models.WorkflowInstance) error

	// Lifecycle
	Close() error
	HealthCheck() error
}

// Config holds registry backend configuration
type Config struct {
	Type string `mapstructure:"type" yaml:"type"` // "memory", "sqlite" or "postgres"
	DSN  string `mapstructure:"dsn" yaml:"dsn"`

	// PostgreSQL specific
	MaxOpenConns    int           `mapstructure:"max_open_conns" yaml:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time" yaml:"conn_max_idle_time"`

	// SQLite specific
	Path string `mapstructure:"path" yaml:"path"`
}

// NewStore creates a store based on configuration
func NewStore(config Config) (Store, error) {
	switch config.Type {
	case "memory":
		return NewMemoryStore(), nil
	case "postgres", "postgresql":
		return NewPostgreSQLStore(config)
	case "sqlite", "":
		path := config.Path
		if path == "" {
			path = config.DSN
		}
		if path == "" {
			path = "registry.db"
		}
		return NewSQLiteStore(path)
	default:
		return nil, ErrUnsupportedDatabase
	}
}
