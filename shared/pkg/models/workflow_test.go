package models

import (
	"errors"
	"testing"
)

func TestWorkflowInstanceKeyRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		wi   WorkflowInstance
		key  string
	}{
		{"simple", NewWorkflowInstance("component", "daily", "2020-10-24"), "component#daily#2020-10-24"},
		{"hourly parameter", NewWorkflowInstance("c", "w", "2020-10-24T05"), "c#w#2020-10-24T05"},
		{"id with separator", NewWorkflowInstance("comp", "a#b", "2021-01-01"), "comp#a#b#2021-01-01"},
		{"unicode", NewWorkflowInstance("kompönent", "wörkflow", "p"), "kompönent#wörkflow#p"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.wi.Key(); got != tt.key {
				t.Fatalf("Key() = %q, want %q", got, tt.key)
			}
			parsed, err := ParseWorkflowInstance(tt.key)
			if err != nil {
				t.Fatalf("ParseWorkflowInstance(%q) error = %v", tt.key, err)
			}
			if parsed != tt.wi {
				t.Errorf("ParseWorkflowInstance(%q) = %+v, want %+v", tt.key, parsed, tt.wi)
			}
		})
	}
}

func TestParseWorkflowInstanceInvalid(t *testing.T) {
	keys := []string{
		"",
		"no-separator",
		"only#one",
		"#id#param",
		"comp##param",
		"comp#id#",
	}

	for _, key := range keys {
		t.Run(key, func(t *testing.T) {
			_, err := ParseWorkflowInstance(key)
			if !errors.Is(err, ErrInvalidKey) {
				t.Errorf("ParseWorkflowInstance(%q) error = %v, want ErrInvalidKey", key, err)
			}
		})
	}
}

func TestWorkflowInstanceValidate(t *testing.T) {
	if err := NewWorkflowInstance("a#b", "id", "p").Validate(); err == nil {
		t.Error("expected error for separator in component")
	}
	if err := NewWorkflowInstance("a", "id", "p#q").Validate(); err == nil {
		t.Error("expected error for separator in parameter")
	}
	if err := NewWorkflowInstance("a", "id", "p").Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestWorkflowInstanceComparable(t *testing.T) {
	a := NewWorkflowInstance("c", "w", "2020-10-24")
	b := NewWorkflowInstance("c", "w", "2020-10-24")
	set := map[WorkflowInstance]bool{a: true}
	if !set[b] {
		t.Error("structurally equal instances should be the same map key")
	}
}
