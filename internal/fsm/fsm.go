// SPDX-License-Identifier: MIT

// Package fsm defines the fixed session-lifecycle state machine as an
// explicit transition table plus a pure transition function. The topology is
// small and closed; unknown transitions are errors, terminal states absorb.
package fsm

import (
	"fmt"

	"github.com/payflowd/payflow/internal/model"
)

// ErrTerminal is returned when an event is fired at a terminal state.
type ErrTerminal struct {
	State model.SessionState
}

func (e *ErrTerminal) Error() string {
	return fmt.Sprintf("fsm: state %s is terminal", e.State)
}

var transitions = map[string]model.SessionState{
	key(model.StateStart, model.EventDocumentReceived): model.StateExtracting,
	key(model.StateStart, model.EventCommandReceived):  model.StateDrafting,

	key(model.StateExtracting, model.EventExtracted):     model.StateDrafting,
	key(model.StateExtracting, model.EventUnprocessable): model.StateFailed,
	key(model.StateExtracting, model.EventExtractFailed): model.StateFailed,

	key(model.StateDrafting, model.EventDrafted):     model.StateAwaitingConfirmation,
	key(model.StateDrafting, model.EventDraftFailed): model.StateFailed,

	key(model.StateAwaitingConfirmation, model.EventConfirmed): model.StateFinalizing,
	key(model.StateAwaitingConfirmation, model.EventRejected):  model.StateAbandoned,

	key(model.StateFinalizing, model.EventSubmitOK):     model.StateSubmitted,
	key(model.StateFinalizing, model.EventScheduleOK):   model.StateScheduled,
	key(model.StateFinalizing, model.EventSubmitFailed): model.StateFailed,

	// Cancellation is honored strictly before Finalizing; an in-flight
	// submission must reach a terminal outcome on its own.
	key(model.StateStart, model.EventCancelled):                model.StateAbandoned,
	key(model.StateExtracting, model.EventCancelled):           model.StateAbandoned,
	key(model.StateDrafting, model.EventCancelled):             model.StateAbandoned,
	key(model.StateAwaitingConfirmation, model.EventCancelled): model.StateAbandoned,
}

// Next computes the successor state for (from, event). It is strict: firing
// an event with no edge from the current state is an error, and terminal
// states reject every event.
func Next(from model.SessionState, event model.Event) (model.SessionState, error) {
	if from.IsTerminal() {
		return from, &ErrTerminal{State: from}
	}
	to, ok := transitions[key(from, event)]
	if !ok {
		return from, fmt.Errorf("fsm: invalid transition: state=%s event=%s", from, event)
	}
	return to, nil
}

// CanFire reports whether event is legal in state from.
func CanFire(from model.SessionState, event model.Event) bool {
	if from.IsTerminal() {
		return false
	}
	_, ok := transitions[key(from, event)]
	return ok
}

func key(from model.SessionState, event model.Event) string {
	return string(from) + "|" + string(event)
}
