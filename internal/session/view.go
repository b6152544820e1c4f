package session

import (
	"github.com/aryan-manish-vaidya/Aurora/internal/fsm"
	"github.com/aryan-manish-vaidya/Aurora/internal/transcript"
)

// Fixed assistant texts.
const (
	PendingText       = "Processing..."
	MissingKeyMessage = "Please enter a valid Gemini API Key in settings."
	FailureTurnText   = "I apologize, I am unable to connect to my knowledge base right now."
	FailureSpokenText = "I apologize, I encountered an error processing your request."

	greetingReady      = "Greetings. I am Aurora. I am ready to assist you."
	greetingUnprepared = "Greetings. I am Aurora. Please configure my API key in settings to begin."
)

// Greeting returns the opening assistant turn for the credential state.
func Greeting(credentialConfigured bool) string {
	if credentialConfigured {
		return greetingReady
	}
	return greetingUnprepared
}

// View is the presentation projection of the controller.
type View struct {
	State                fsm.State
	Status               string
	ErrorMessage         string
	Transcript           []transcript.Turn
	InputLocked          bool
	CredentialConfigured bool
}

// StatusText maps a state to its user-facing label.
func StatusText(state fsm.State) string {
	switch state {
	case fsm.StateListening:
		return "Listening..."
	case fsm.StateThinking:
		return "Thinking..."
	case fsm.StateSpeaking:
		return "Speaking..."
	case fsm.StateErrored:
		return "Error"
	default:
		return "Ready"
	}
}
