package models

import (
	"errors"
	"fmt"
	"strings"
)

// keySeparator joins the parts of a workflow instance key
const keySeparator = "#"

// ErrInvalidKey is returned when a workflow instance key cannot be parsed
var ErrInvalidKey = errors.New("invalid workflow instance key")

// WorkflowID identifies a workflow within a component
type WorkflowID struct {
	Component string `json:"component"`
	ID        string `json:"id"`
}

// Key returns the "component#id" form of the workflow id
func (w WorkflowID) Key() string {
	return w.Component + keySeparator + w.ID
}

func (w WorkflowID) String() string {
	return w.Key()
}

// WorkflowInstance is one run of a workflow, identified by its workflow and
// run parameter (usually the run date).
type WorkflowInstance struct {
	Workflow  WorkflowID `json:"workflow"`
	Parameter string     `json:"parameter"`
}

// NewWorkflowInstance builds a WorkflowInstance
func NewWorkflowInstance(component, id, parameter string) WorkflowInstance {
	return WorkflowInstance{
		Workflow:  WorkflowID{Component: component, ID: id},
		Parameter: parameter,
	}
}

// Key serializes the instance to "component#id#parameter".
// Valid instances have no separator in Component or Parameter; ID may contain it.
func (w WorkflowInstance) Key() string {
	return w.Workflow.Key() + keySeparator + w.Parameter
}

func (w WorkflowInstance) String() string {
	return w.Key()
}

// Validate checks that the instance survives a Key/ParseWorkflowInstance round trip
func (w WorkflowInstance) Validate() error {
	switch {
	case w.Workflow.Component == "" || w.Workflow.ID == "" || w.Parameter == "":
		return fmt.Errorf("%w: empty component, id or parameter", ErrInvalidKey)
	case strings.Contains(w.Workflow.Component, keySeparator):
		return fmt.Errorf("%w: component %q contains %q", ErrInvalidKey, w.Workflow.Component, keySeparator)
	case strings.Contains(w.Parameter, keySeparator):
		return fmt.Errorf("%w: parameter %q contains %q", ErrInvalidKey, w.Parameter, keySeparator)
	}
	return nil
}

// ParseWorkflowInstance parses a key produced by WorkflowInstance.Key.
// The component ends at the first separator and the parameter starts after the last one.
func ParseWorkflowInstance(key string) (WorkflowInstance, error) {
	first := strings.Index(key, keySeparator)
	last := strings.LastIndex(key, keySeparator)
	if first < 0 || first == last {
		return WorkflowInstance{}, fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}

	wi := WorkflowInstance{
		Workflow: WorkflowID{
			Component: key[:first],
			ID:        key[first+1 : last],
		},
		Parameter: key[last+1:],
	}
	if err := wi.Validate(); err != nil {
		return WorkflowInstance{}, fmt.Errorf("%w (key %q)", err, key)
	}
	return wi, nil
}
