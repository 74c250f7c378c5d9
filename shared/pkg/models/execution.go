package models

import (
	"fmt"
	"time"
)

// Annotation keys attached to a backend execution at launch
const (
	AnnotationWorkflowInstance = "workflow-instance"
	AnnotationExecutionID      = "execution-id"
)

// Scope is an organizational partition of backend executions
type Scope struct {
	Project string `json:"project"`
	Domain  string `json:"domain"`
}

func (s Scope) String() string {
	return s.Project + "/" + s.Domain
}

// Annotations is the string map a backend execution carries from launch
type Annotations map[string]string

// Lookup returns the value for key and whether it was present.
// A present empty value is reported as ("", true).
func (a Annotations) Lookup(key string) (string, bool) {
	if a == nil {
		return "", false
	}
	v, ok := a[key]
	return v, ok
}

// WorkflowInstance returns the serialized workflow instance key, if annotated
func (a Annotations) WorkflowInstance() (string, bool) {
	return a.Lookup(AnnotationWorkflowInstance)
}

// ExecutionID returns the scheduler-assigned execution id, if annotated
func (a Annotations) ExecutionID() (string, bool) {
	return a.Lookup(AnnotationExecutionID)
}

// ExecutionRef identifies an execution for termination and logging
type ExecutionRef struct {
	Scope Scope  `json:"scope"`
	Name  string `json:"name"`
}

func (r ExecutionRef) String() string {
	return fmt.Sprintf("%s/%s", r.Scope, r.Name)
}

// ExecutionSnapshot is a point-in-time view of one backend execution.
// Snapshots are produced fresh on every pass and never modified afterwards.
type ExecutionSnapshot struct {
	Scope       Scope       `json:"scope"`
	Name        string      `json:"name"`
	Phase       Phase       `json:"phase"`
	Annotations Annotations `json:"annotations,omitempty"`
	CreatedAt   time.Time   `json:"created_at,omitempty"`
}

// Ref returns the (scope, name) identity of the snapshot
func (s ExecutionSnapshot) Ref() ExecutionRef {
	return ExecutionRef{Scope: s.Scope, Name: s.Name}
}

// BuildAnnotations returns the annotations a scheduler attaches when launching
// an execution for wi with the given execution id.
func BuildAnnotations(wi WorkflowInstance, executionID string) Annotations {
	return Annotations{
		AnnotationWorkflowInstance: wi.Key(),
		AnnotationExecutionID:      executionID,
	}
}
