package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/aryan-manish-vaidya/Aurora/internal/ipc"
	"github.com/aryan-manish-vaidya/Aurora/internal/transcript"
	"github.com/jinzhu/copier"
)

// Handle serves IPC commands for the running assistant.
func (c *Controller) Handle(ctx context.Context, req ipc.Request) ipc.Response {
	switch req.Command {
	case ipc.CommandStatus:
		return c.respond("status", nil, false)
	case ipc.CommandTranscript:
		return c.respond("transcript", nil, true)
	case ipc.CommandListen:
		return c.respond("listen requested", c.ActivateVoice(ctx), false)
	case ipc.CommandSay:
		return c.respond("text submitted", c.SubmitText(ctx, req.Text), false)
	case ipc.CommandDismiss:
		return c.respond("error dismissed", c.DismissError(ctx), false)
	case ipc.CommandCredential:
		return c.respond("credential updated", c.SetCredential(ctx, req.Text), false)
	default:
		view := c.View()
		return ipc.Response{OK: false, State: string(view.State), Status: view.Status, Error: fmt.Sprintf("unknown command: %s", req.Command)}
	}
}

func (c *Controller) respond(message string, err error, withTurns bool) ipc.Response {
	view := c.View()
	resp := ipc.Response{
		OK:           err == nil,
		State:        string(view.State),
		Status:       view.Status,
		Message:      message,
		ErrorMessage: view.ErrorMessage,
		InputLocked:  view.InputLocked,
	}
	if err != nil {
		resp.Message = ""
		resp.Error = err.Error()
		if errors.Is(err, ErrInputLocked) {
			resp.Error = "input locked: " + view.Status
		}
	}
	if withTurns {
		turns, convErr := WireTurns(view.Transcript)
		if convErr != nil {
			return ipc.Response{OK: false, State: resp.State, Status: resp.Status, Error: convErr.Error()}
		}
		resp.Turns = turns
	}
	return resp
}

// WireTurns converts transcript turns to their IPC form.
func WireTurns(turns []transcript.Turn) ([]ipc.Turn, error) {
	out := make([]ipc.Turn, 0, len(turns))
	if err := copier.Copy(&out, &turns); err != nil {
		return nil, fmt.Errorf("convert transcript: %w", err)
	}
	return out, nil
}
