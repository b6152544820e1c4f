package session

import (
	"context"
	"testing"
	"time"

	"github.com/aryan-manish-vaidya/Aurora/internal/fsm"
	"github.com/aryan-manish-vaidya/Aurora/internal/ipc"
	"github.com/aryan-manish-vaidya/Aurora/internal/transcript"
	"github.com/stretchr/testify/require"
)

func TestHandleStatusAndUnknownCommand(t *testing.T) {
	h := newHarness(t, "key")

	status := h.ctrl.Handle(context.Background(), ipc.Request{Command: ipc.CommandStatus})
	require.True(t, status.OK)
	require.Equal(t, string(fsm.StateIdle), status.State)
	require.Equal(t, "Ready", status.Status)
	require.Empty(t, status.Turns)

	unknown := h.ctrl.Handle(context.Background(), ipc.Request{Command: "definitely-unknown"})
	require.False(t, unknown.OK)
	require.Contains(t, unknown.Error, "unknown command")
}

func TestHandleSayAndTranscript(t *testing.T) {
	h := newHarness(t, "key")
	ctx := context.Background()

	say := h.ctrl.Handle(ctx, ipc.Request{Command: ipc.CommandSay, Text: "hello"})
	require.True(t, say.OK, say.Error)
	require.Equal(t, string(fsm.StateThinking), say.State)
	require.True(t, say.InputLocked)

	locked := h.ctrl.Handle(ctx, ipc.Request{Command: ipc.CommandListen})
	require.False(t, locked.OK)
	require.Equal(t, "input locked: Thinking...", locked.Error)

	blank := h.ctrl.Handle(ctx, ipc.Request{Command: ipc.CommandSay, Text: " "})
	require.False(t, blank.OK)

	resp := h.ctrl.Handle(ctx, ipc.Request{Command: ipc.CommandTranscript})
	require.True(t, resp.OK)
	require.Len(t, resp.Turns, 3)
	require.Equal(t, "assistant", resp.Turns[0].Speaker)
	require.Equal(t, "user", resp.Turns[1].Speaker)
	require.Equal(t, "hello", resp.Turns[1].Text)
	require.True(t, resp.Turns[2].Pending)
	require.NotEmpty(t, resp.Turns[2].ID)
}

func TestHandleCredentialAndDismiss(t *testing.T) {
	h := newHarness(t, "")
	ctx := context.Background()

	resp := h.ctrl.Handle(ctx, ipc.Request{Command: ipc.CommandCredential, Text: "k"})
	require.True(t, resp.OK)
	require.True(t, h.ctrl.View().CredentialConfigured)

	resp = h.ctrl.Handle(ctx, ipc.Request{Command: ipc.CommandDismiss})
	require.True(t, resp.OK)
	require.Equal(t, "error dismissed", resp.Message)
}

func TestWireTurnsCopiesFields(t *testing.T) {
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	turns, err := WireTurns([]transcript.Turn{
		{ID: "a", Speaker: transcript.SpeakerAssistant, Text: "hi", CreatedAt: created},
		{ID: "b", Speaker: transcript.SpeakerAssistant, Text: PendingText, Pending: true, CreatedAt: created},
	})
	require.NoError(t, err)
	require.Equal(t, []ipc.Turn{
		{ID: "a", Speaker: "assistant", Text: "hi", CreatedAt: created},
		{ID: "b", Speaker: "assistant", Text: PendingText, Pending: true, CreatedAt: created},
	}, turns)
}

func TestStatusText(t *testing.T) {
	require.Equal(t, "Ready", StatusText(fsm.StateIdle))
	require.Equal(t, "Listening...", StatusText(fsm.StateListening))
	require.Equal(t, "Thinking...", StatusText(fsm.StateThinking))
	require.Equal(t, "Speaking...", StatusText(fsm.StateSpeaking))
	require.Equal(t, "Error", StatusText(fsm.StateErrored))
}
