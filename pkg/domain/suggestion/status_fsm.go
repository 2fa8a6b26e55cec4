package suggestion

import (
	"fmt"

	"github.com/felixgeelhaar/statekit"
)

// State constants for statekit. They stay untyped so they convert to
// statekit.StateID, and must equal the Status values.
const (
	StatePending  = "pending"
	StateAccepted = "accepted"
	StateRejected = "rejected"
)

func init() {
	stateMap := map[string]Status{
		StatePending:  StatusPending,
		StateAccepted: StatusAccepted,
		StateRejected: StatusRejected,
	}

	for fsmState, status := range stateMap {
		if fsmState != string(status) {
			panic(fmt.Sprintf("FSM state %q does not match Status %q - constants are out of sync", fsmState, status))
		}
	}
}

// StatusContext carries the suggestion being transitioned.
type StatusContext struct {
	SuggestionID string
}

// StatusMachine drives a single suggestion through its one-way lifecycle:
// pending -> accepted or pending -> rejected.
type StatusMachine struct {
	id          string
	interpreter *statekit.Interpreter[StatusContext]
}

// NewStatusMachine builds a machine positioned at the given status.
func NewStatusMachine(initial Status, suggestionID string) (*StatusMachine, error) {
	if !initial.IsValid() {
		return nil, fmt.Errorf("invalid initial status %q for suggestion %s", initial, suggestionID)
	}

	builder := statekit.NewMachine[StatusContext]("suggestion-status").
		WithInitial(statekit.StateID(initial)).
		WithContext(StatusContext{SuggestionID: suggestionID})

	builder.State(StatePending).
		On(EventAccept).Target(StateAccepted).
		On(EventReject).Target(StateRejected).
		Done()

	// Decisions are terminal.
	builder.State(StateAccepted).Done()
	builder.State(StateRejected).Done()

	machine, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build status machine: %w", err)
	}

	interpreter := statekit.NewInterpreter(machine)
	interpreter.Start()

	return &StatusMachine{id: suggestionID, interpreter: interpreter}, nil
}

// Transition applies event, returning a *TransitionError when the current
// state does not allow it.
func (sm *StatusMachine) Transition(event string) error {
	before := sm.Current()
	if !before.CanTransitionWith(event) {
		return &TransitionError{SuggestionID: sm.id, From: before, Event: event}
	}

	sm.interpreter.Send(statekit.Event{Type: statekit.EventType(event)})
	if after := sm.Current(); after == before {
		return &TransitionError{SuggestionID: sm.id, From: before, Event: event}
	}
	return nil
}

// Current returns the machine's status.
func (sm *StatusMachine) Current() Status {
	return Status(sm.interpreter.State().Value)
}

// CanTransition checks whether event is valid from the current status.
func (sm *StatusMachine) CanTransition(event string) bool {
	return sm.Current().CanTransitionWith(event)
}

// IsFinal returns true once the suggestion has been decided.
func (sm *StatusMachine) IsFinal() bool {
	return sm.Current().IsFinal()
}
