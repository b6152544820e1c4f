package capture

import (
	"errors"
	"fmt"
)

var (
	// ErrUnavailable reports that no recognizer, device, or credential is available for the backend.
	ErrUnavailable = errors.New("speech recognition unavailable")
	// ErrStartFailed reports that the recognizer refused to start.
	ErrStartFailed = errors.New("speech recognition failed to start")
)

// ErrorKind classifies an asynchronous recognition failure.
type ErrorKind string

const (
	KindPermissionDenied ErrorKind = "permission-denied"
	KindNetwork          ErrorKind = "network"
	KindNoSpeech         ErrorKind = "no-speech"
	KindOther            ErrorKind = "other"
)

// Error is a classified recognition failure reported through the sink.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return "capture " + string(e.Kind)
	}
	return fmt.Sprintf("capture %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// classify wraps err as an *Error, keeping an existing classification.
func classify(err error) *Error {
	var ce *Error
	if errors.As(err, &ce) {
		return ce
	}
	return &Error{Kind: KindOther, Err: err}
}

// Message returns the user-facing text for a recognition failure kind.
func Message(kind ErrorKind) string {
	switch kind {
	case KindPermissionDenied:
		return "Microphone access denied. Please use text input."
	case KindNetwork:
		return "Network error with Voice API. Please check connection or use text input."
	default:
		return "Microphone error: " + string(kind)
	}
}

// StartMessage returns the user-facing text for a synchronous start failure.
func StartMessage(err error) string {
	if errors.Is(err, ErrUnavailable) {
		return "Speech recognition is not available. Please use text input."
	}
	return "Could not start microphone. Try again."
}
