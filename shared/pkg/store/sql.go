package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/psantana5/execreaper/pkg/models"
)

// sqlRegistry holds the queries shared by the SQLite and PostgreSQL stores.
// Queries are written with "?" placeholders and rebound per dialect.
type sqlRegistry struct {
	db         *sql.DB
	numbered   bool // use $1, $2 ... placeholders
	driverName string
}

func (r *sqlRegistry) bind(query string) string {
	if !r.numbered {
		return query
	}
	var b strings.Builder
	n := 0
	for _, c := range query {
		if c == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}

// ListActiveInstances returns all active instances ordered by key
func (r *sqlRegistry) ListActiveInstances(ctx context.Context) ([]models.WorkflowInstance, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT component, workflow_id, parameter
		FROM active_states
		ORDER BY workflow_instance`)
	if err != nil {
		return nil, fmt.Errorf("failed to list active instances: %w", err)
	}
	defer rows.Close()

	var instances []models.WorkflowInstance
	for rows.Next() {
		var component, workflowID, parameter string
		if err := rows.Scan(&component, &workflowID, &parameter); err != nil {
			return nil, fmt.Errorf("failed to scan active instance: %w", err)
		}
		instances = append(instances, models.NewWorkflowInstance(component, workflowID, parameter))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate active instances: %w", err)
	}
	return instances, nil
}

// GetActiveState returns the active state for wi or ErrInstanceNotActive
func (r *sqlRegistry) GetActiveState(ctx context.Context, wi models.WorkflowInstance) (*models.ActiveState, error) {
	var (
		state       string
		executionID sql.NullString
		updatedAt   time.Time
	)
	err := r.db.QueryRowContext(ctx, r.bind(`
		SELECT state, execution_id, updated_at
		FROM active_states
		WHERE workflow_instance = ?`), wi.Key()).Scan(&state, &executionID, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInstanceNotActive
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active state for %s: %w", wi, err)
	}

	result := &models.ActiveState{
		Instance:  wi,
		State:     state,
		UpdatedAt: updatedAt,
	}
	if executionID.Valid {
		result.ExecutionID = models.StringPtr(executionID.String)
	}
	return result, nil
}

// Activate upserts wi as active, keeping any bound execution id
func (r *sqlRegistry) Activate(ctx context.Context, wi models.WorkflowInstance, state string) error {
	_, err := r.db.ExecContext(ctx, r.bind(`
		INSERT INTO active_states (workflow_instance, component, workflow_id, parameter, state, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (workflow_instance) DO UPDATE SET
			state = excluded.state,
			updated_at = excluded.updated_at`),
		wi.Key(), wi.Workflow.Component, wi.Workflow.ID, wi.Parameter, state, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to activate %s: %w", wi, err)
	}
	return nil
}

// BindExecution records the owning execution id of an active instance
func (r *sqlRegistry) BindExecution(ctx context.Context, wi models.WorkflowInstance, executionID string) error {
	result, err := r.db.ExecContext(ctx, r.bind(`
		UPDATE active_states SET execution_id = ?, updated_at = ?
		WHERE workflow_instance = ?`),
		executionID, time.Now().UTC(), wi.Key())
	if err != nil {
		return fmt.Errorf("failed to bind execution for %s: %w", wi, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to bind execution for %s: %w", wi, err)
	}
	if n == 0 {
		return ErrInstanceNotActive
	}
	return nil
}

// Deactivate removes wi from the active set
func (r *sqlRegistry) Deactivate(ctx context.Context, wi models.WorkflowInstance) error {
	_, err := r.db.ExecContext(ctx, r.bind(`DELETE FROM active_states WHERE workflow_instance = ?`), wi.Key())
	if err != nil {
		return fmt.Errorf("failed to deactivate %s: %w", wi, err)
	}
	return nil
}

// HealthCheck pings the database
func (r *sqlRegistry) HealthCheck() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%s health check failed: %w", r.driverName, err)
	}
	return nil
}

// Close closes the database connection
func (r *sqlRegistry) Close() error {
	return r.db.Close()
}
