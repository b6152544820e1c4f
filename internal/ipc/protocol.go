// Package ipc carries newline-delimited JSON commands between aurora clients and the running assistant.
package ipc

import "time"

// Commands served by the running assistant.
const (
	CommandStatus     = "status"
	CommandListen     = "listen"
	CommandSay        = "say"
	CommandDismiss    = "dismiss"
	CommandTranscript = "transcript"
	CommandCredential = "credential"
)

type Request struct {
	Command string `json:"command"`
	Text    string `json:"text,omitempty"`
}

// Turn is the wire view of one transcript entry.
type Turn struct {
	ID        string    `json:"id"`
	Speaker   string    `json:"speaker"`
	Text      string    `json:"text"`
	Pending   bool      `json:"pending,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type Response struct {
	OK           bool   `json:"ok"`
	State        string `json:"state,omitempty"`
	Status       string `json:"status,omitempty"`
	Message      string `json:"message,omitempty"`
	Error        string `json:"error,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
	InputLocked  bool   `json:"input_locked,omitempty"`
	Turns        []Turn `json:"turns,omitempty"`
}
