package models

import "testing"

func TestAnnotationsLookup(t *testing.T) {
	a := Annotations{
		AnnotationWorkflowInstance: "c#w#p",
		AnnotationExecutionID:      "",
	}

	if v, ok := a.WorkflowInstance(); !ok || v != "c#w#p" {
		t.Errorf("WorkflowInstance() = (%q, %v), want (\"c#w#p\", true)", v, ok)
	}

	// Present but empty is not the same as absent
	if v, ok := a.ExecutionID(); !ok || v != "" {
		t.Errorf("ExecutionID() = (%q, %v), want (\"\", true)", v, ok)
	}

	if _, ok := a.Lookup("missing"); ok {
		t.Error("Lookup(missing) reported present")
	}

	var nilAnnotations Annotations
	if _, ok := nilAnnotations.WorkflowInstance(); ok {
		t.Error("nil annotations reported a workflow instance")
	}
}

func TestBuildAnnotations(t *testing.T) {
	wi := NewWorkflowInstance("c", "w", "p")
	a := BuildAnnotations(wi, "exec-1")

	key, _ := a.WorkflowInstance()
	parsed, err := ParseWorkflowInstance(key)
	if err != nil || parsed != wi {
		t.Errorf("annotation key %q did not round trip: %v", key, err)
	}
	if id, ok := a.ExecutionID(); !ok || id != "exec-1" {
		t.Errorf("ExecutionID() = (%q, %v)", id, ok)
	}
}

func TestActiveStateBoundExecutionID(t *testing.T) {
	var nilState *ActiveState
	if _, ok := nilState.BoundExecutionID(); ok {
		t.Error("nil state reported a bound id")
	}

	unbound := &ActiveState{}
	if _, ok := unbound.BoundExecutionID(); ok {
		t.Error("unbound state reported a bound id")
	}

	bound := &ActiveState{ExecutionID: StringPtr("r1")}
	if id, ok := bound.BoundExecutionID(); !ok || id != "r1" {
		t.Errorf("BoundExecutionID() = (%q, %v), want (\"r1\", true)", id, ok)
	}
}
