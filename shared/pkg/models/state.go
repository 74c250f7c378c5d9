package models

import "time"

// ActiveState is the registry's record for one active workflow instance
type ActiveState struct {
	Instance WorkflowInstance `json:"instance"`
	// State is the scheduler's run state name, informational only
	State string `json:"state"`
	// ExecutionID is the backend execution the scheduler currently owns for
	// this instance; nil until the scheduler records one.
	ExecutionID *string   `json:"execution_id,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// BoundExecutionID returns the bound execution id and whether one is set
func (s *ActiveState) BoundExecutionID() (string, bool) {
	if s == nil || s.ExecutionID == nil {
		return "", false
	}
	return *s.ExecutionID, true
}

// StringPtr returns a pointer to s
func StringPtr(s string) *string {
	return &s
}
