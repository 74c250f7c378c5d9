package models

import "strings"

// Phase is the lifecycle phase of a backend execution
type Phase string

const (
	PhaseUndefined  Phase = "undefined"
	PhasePending    Phase = "pending"
	PhaseQueued     Phase = "queued"
	PhaseRunning    Phase = "running"
	PhaseSucceeding Phase = "succeeding"
	PhaseSucceeded  Phase = "succeeded"
	PhaseFailing    Phase = "failing"
	PhaseFailed     Phase = "failed"
	PhaseAborting   Phase = "aborting"
	PhaseAborted    Phase = "aborted"
	PhaseTimedOut   Phase = "timed_out"
)

// activePhases are the phases in which an execution may still be consuming
// resources. Every other phase, including unknown ones, is terminal.
// Aborting is terminal because a termination is already in flight.
var activePhases = map[Phase]bool{
	PhasePending:    true,
	PhaseQueued:     true,
	PhaseRunning:    true,
	PhaseSucceeding: true,
	PhaseFailing:    true,
}

// ParsePhase maps a backend phase string ("RUNNING", "timed_out", "TimedOut") to a Phase.
// Unrecognized values are returned lower-cased and are therefore terminal.
func ParsePhase(s string) Phase {
	normalized := strings.ToLower(strings.TrimSpace(s))
	switch normalized {
	case "", "undefined":
		return PhaseUndefined
	case "timedout", "timed-out":
		return PhaseTimedOut
	}
	return Phase(normalized)
}

// IsActive returns true if the execution may still be running on the backend
func (p Phase) IsActive() bool {
	return activePhases[p]
}

// IsTerminal returns true if the execution is finished (or finishing by abort)
func (p Phase) IsTerminal() bool {
	return !p.IsActive()
}

// ActivePhases returns the active phases in a stable order
func ActivePhases() []Phase {
	return []Phase{PhasePending, PhaseQueued, PhaseRunning, PhaseSucceeding, PhaseFailing}
}
