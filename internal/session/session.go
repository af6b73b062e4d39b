// Package session holds the per-game state machine that poll results and
// player actions drive.
package session

import (
	"errors"
	"fmt"
)

var ErrInvalidTransition = errors.New("invalid transition")

type State string

const (
	StateLoading   State = "loading"
	StatePreview   State = "preview"
	StatePlaying   State = "playing"
	StateArrived   State = "arrived"
	StateQuestion  State = "question"
	StateSuccess   State = "success"
	StateCompleted State = "completed"
	StateError     State = "error"
)

// Terminal reports whether the session has ended. Only a restart moves a
// completed session back to preview; error is final.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateError
}

type Event string

const (
	EventLoaded          Event = "loaded"
	EventStart           Event = "start"
	EventArrivedQuestion Event = "arrived_question"
	EventArrivedCollect  Event = "arrived_collect"
	EventCollected       Event = "collected"
	EventCollect         Event = "collect"
	EventAnswerCorrect   Event = "answer_correct"
	EventAnswerWrong     Event = "answer_wrong"
	EventDismiss         Event = "dismiss"
	EventContinue        Event = "continue"
	EventComplete        Event = "complete"
	EventFail            Event = "fail"
	EventRestart         Event = "restart"
)

type transition struct {
	from  State
	event Event
}

var transitions = map[transition]State{
	{StateLoading, EventLoaded}: StatePreview,

	{StatePreview, EventStart}: StatePlaying,

	{StatePlaying, EventArrivedQuestion}: StateQuestion,
	{StatePlaying, EventArrivedCollect}:  StateArrived,
	{StatePlaying, EventCollected}:       StateSuccess,

	{StateArrived, EventCollect}: StateSuccess,
	{StateArrived, EventDismiss}: StatePlaying,

	{StateQuestion, EventAnswerCorrect}: StateSuccess,
	{StateQuestion, EventAnswerWrong}:   StateQuestion,
	{StateQuestion, EventDismiss}:       StatePlaying,

	{StateSuccess, EventContinue}: StatePlaying,

	{StatePlaying, EventRestart}:   StatePreview,
	{StateSuccess, EventRestart}:   StatePreview,
	{StateCompleted, EventRestart}: StatePreview,
}

// Next returns the state reached by firing e in s. Complete and Fail apply
// to every non-terminal state. ok is false when the pair is not part of the
// table; next is then s unchanged.
func Next(s State, e Event) (next State, ok bool) {
	if next, ok = transitions[transition{s, e}]; ok {
		return next, true
	}
	if s.Terminal() {
		return s, false
	}
	switch e {
	case EventComplete:
		return StateCompleted, true
	case EventFail:
		return StateError, true
	}
	return s, false
}

// Machine tracks the current state. It is not safe for concurrent use; the
// owner serializes access.
type Machine struct {
	state State
}

func NewMachine() *Machine {
	return &Machine{state: StateLoading}
}

func (m *Machine) State() State {
	return m.state
}

// Fire applies e and returns the resulting state. An unlisted pair leaves
// the state as it was and returns ErrInvalidTransition.
func (m *Machine) Fire(e Event) (State, error) {
	next, ok := Next(m.state, e)
	if !ok {
		return m.state, fmt.Errorf("%w: %s in %s", ErrInvalidTransition, e, m.state)
	}
	m.state = next
	return next, nil
}
