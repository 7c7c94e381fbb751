package engine

import "testing"

func TestPlanFSM_LegalPath(t *testing.T) {
	for _, path := range [][]PlanState{
		{StateValidated, StateSimulated, StateTerminal},
		{StateValidated, StateCommitted, StateTerminal},
	} {
		f := newPlanFSM()
		for _, next := range path {
			if err := f.to(next); err != nil {
				t.Fatalf("to(%s): %v", next, err)
			}
		}
		if f.current() != StateTerminal {
			t.Errorf("current = %s, want %s", f.current(), StateTerminal)
		}
	}
}

func TestPlanFSM_IllegalTransitions(t *testing.T) {
	tests := []struct {
		name string
		walk []PlanState
		bad  PlanState
	}{
		{"draft to simulated", nil, StateSimulated},
		{"draft to committed", nil, StateCommitted},
		{"draft to terminal", nil, StateTerminal},
		{"simulated to committed", []PlanState{StateValidated, StateSimulated}, StateCommitted},
		{"committed to simulated", []PlanState{StateValidated, StateCommitted}, StateSimulated},
		{"terminal is final", []PlanState{StateValidated, StateSimulated, StateTerminal}, StateValidated},
		{"no revalidation", []PlanState{StateValidated}, StateValidated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newPlanFSM()
			for _, next := range tt.walk {
				if err := f.to(next); err != nil {
					t.Fatalf("setup to(%s): %v", next, err)
				}
			}
			before := f.current()
			if err := f.to(tt.bad); err == nil {
				t.Fatalf("to(%s) from %s succeeded", tt.bad, before)
			}
			if f.current() != before {
				t.Errorf("failed transition moved state to %s", f.current())
			}
		})
	}
}
