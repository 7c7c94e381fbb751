package engine

import "fmt"

// PlanState tracks a plan through the mode controller.
//
//	Draft -> Validated -> {Simulated | Committed} -> Terminal
//
// The Draft -> Validated edge fails closed: any rejection leaves the plan in
// Draft and nothing downstream ever sees a partially validated descriptor.
type PlanState string

const (
	StateDraft     PlanState = "DRAFT"
	StateValidated PlanState = "VALIDATED"
	StateSimulated PlanState = "SIMULATED"
	StateCommitted PlanState = "COMMITTED"
	StateTerminal  PlanState = "TERMINAL"
)

var legalTransitions = map[PlanState][]PlanState{
	StateDraft:     {StateValidated},
	StateValidated: {StateSimulated, StateCommitted},
	StateSimulated: {StateTerminal},
	StateCommitted: {StateTerminal},
}

// planFSM enforces the plan lifecycle. One instance per pipeline call;
// never shared.
type planFSM struct {
	state PlanState
}

func newPlanFSM() *planFSM {
	return &planFSM{state: StateDraft}
}

func (f *planFSM) current() PlanState {
	return f.state
}

func (f *planFSM) to(next PlanState) error {
	for _, allowed := range legalTransitions[f.state] {
		if allowed == next {
			f.state = next
			return nil
		}
	}
	return fmt.Errorf("illegal plan transition %s -> %s", f.state, next)
}
