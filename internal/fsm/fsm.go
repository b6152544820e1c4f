// Package fsm defines the turn-taking state machine and its legal transitions.
package fsm

import "fmt"

type State string

type Event string

const (
	StateIdle      State = "idle"
	StateListening State = "listening"
	StateThinking  State = "thinking"
	StateSpeaking  State = "speaking"
	StateErrored   State = "errored"
)

const (
	EventListen    Event = "listen"
	EventCancel    Event = "cancel"
	EventUtterance Event = "utterance"
	EventReply     Event = "reply"
	EventSpoken    Event = "spoken"
	EventBargeIn   Event = "barge-in"
	EventFail      Event = "fail"
	EventReset     Event = "reset"
)

// Transition returns the state reached by applying event to current.
func Transition(current State, event Event) (State, error) {
	switch current {
	case StateIdle:
		switch event {
		case EventListen:
			return StateListening, nil
		case EventUtterance:
			return StateThinking, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateListening:
		switch event {
		case EventCancel:
			return StateIdle, nil
		case EventUtterance:
			return StateThinking, nil
		case EventFail:
			return StateErrored, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateThinking:
		switch event {
		case EventReply:
			return StateSpeaking, nil
		case EventFail:
			return StateErrored, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateSpeaking:
		switch event {
		case EventSpoken, EventBargeIn:
			return StateIdle, nil
		case EventFail:
			return StateErrored, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateErrored:
		switch event {
		case EventReset:
			return StateIdle, nil
		default:
			return current, invalidTransition(current, event)
		}
	default:
		return current, fmt.Errorf("unknown state %q", current)
	}
}

// AcceptsInput reports whether a new user activation can start from state.
func AcceptsInput(state State) bool {
	return state != StateThinking
}

func invalidTransition(state State, event Event) error {
	return fmt.Errorf("invalid transition: %s --(%s)--> ?", state, event)
}
