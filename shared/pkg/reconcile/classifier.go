package reconcile

import (
	"context"
	"errors"
	"fmt"

	"github.com/psantana5/execreaper/pkg/models"
	"github.com/psantana5/execreaper/pkg/store"
)

// Action is what the reconciler does with one execution
type Action string

const (
	ActionKeep      Action = "keep"
	ActionTerminate Action = "terminate"
)

// Reason explains a verdict
type Reason string

const (
	ReasonTerminalPhase Reason = "terminal-phase"
	ReasonNotManaged    Reason = "not-managed"
	ReasonMalformedKey  Reason = "malformed-instance-key"
	ReasonOwned         Reason = "owned"

	ReasonInstanceNotActive   Reason = "instance-not-active"
	ReasonNoBoundID           Reason = "state-has-no-bound-id"
	ReasonMissingExecutionID  Reason = "annotation-missing-execution-id"
	ReasonExecutionIDMismatch Reason = "execution-id-mismatch"
)

// Verdict is the classifier's decision for one execution
type Verdict struct {
	Action Action `json:"action"`
	Reason Reason `json:"reason"`
}

// Dangling reports whether the execution should be terminated
func (v Verdict) Dangling() bool {
	return v.Action == ActionTerminate
}

func (v Verdict) String() string {
	return fmt.Sprintf("%s(%s)", v.Action, v.Reason)
}

func keep(reason Reason) Verdict      { return Verdict{Action: ActionKeep, Reason: reason} }
func terminate(reason Reason) Verdict { return Verdict{Action: ActionTerminate, Reason: reason} }

// StateView is an immutable snapshot of the active-state registry taken once
// per pass. Every decision within a pass is made against the same view.
type StateView struct {
	states map[models.WorkflowInstance]models.ActiveState
}

// NewStateView builds a view from active states. Later entries for the same
// instance replace earlier ones.
func NewStateView(states ...models.ActiveState) StateView {
	m := make(map[models.WorkflowInstance]models.ActiveState, len(states))
	for _, s := range states {
		if s.ExecutionID != nil {
			s.ExecutionID = models.StringPtr(*s.ExecutionID)
		}
		m[s.Instance] = s
	}
	return StateView{states: m}
}

// LoadStateView reads every active instance and its state from the registry.
// An instance that stops being active between the two reads is left out.
func LoadStateView(ctx context.Context, registry store.Registry) (StateView, error) {
	instances, err := registry.ListActiveInstances(ctx)
	if err != nil {
		return StateView{}, fmt.Errorf("failed to list active instances: %w", err)
	}

	states := make([]models.ActiveState, 0, len(instances))
	for _, wi := range instances {
		state, err := registry.GetActiveState(ctx, wi)
		if errors.Is(err, store.ErrInstanceNotActive) || (err == nil && state == nil) {
			continue
		}
		if err != nil {
			return StateView{}, fmt.Errorf("failed to get active state for %s: %w", wi, err)
		}
		state.Instance = wi
		states = append(states, *state)
	}
	return NewStateView(states...), nil
}

// Lookup returns the active state of wi, if it is active
func (v StateView) Lookup(wi models.WorkflowInstance) (models.ActiveState, bool) {
	s, ok := v.states[wi]
	return s, ok
}

// Len returns the number of active instances in the view
func (v StateView) Len() int {
	return len(v.states)
}

// Classify decides whether snap is still owned by the scheduler. It is a pure
// function of its inputs and covers every combination of phase, annotation
// presence, activity and id equality.
func Classify(snap models.ExecutionSnapshot, view StateView) Verdict {
	if snap.Phase.IsTerminal() {
		return keep(ReasonTerminalPhase)
	}

	key, ok := snap.Annotations.WorkflowInstance()
	if !ok {
		return keep(ReasonNotManaged)
	}

	wi, err := models.ParseWorkflowInstance(key)
	if err != nil {
		return keep(ReasonMalformedKey)
	}

	state, active := view.Lookup(wi)
	if !active {
		return terminate(ReasonInstanceNotActive)
	}

	boundID, ok := state.BoundExecutionID()
	if !ok {
		return terminate(ReasonNoBoundID)
	}

	annotatedID, ok := snap.Annotations.ExecutionID()
	if !ok {
		return terminate(ReasonMissingExecutionID)
	}
	if annotatedID != boundID {
		return terminate(ReasonExecutionIDMismatch)
	}
	return keep(ReasonOwned)
}
