// Package tui renders the assistant in a terminal and forwards keyboard
// input to the controller.
package tui

import (
	"context"
	"errors"
	"strings"

	"github.com/aryan-manish-vaidya/Aurora/internal/fsm"
	"github.com/aryan-manish-vaidya/Aurora/internal/session"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

// Controller is the subset of the session controller the UI drives.
type Controller interface {
	View() session.View
	ActivateVoice(ctx context.Context) error
	SubmitText(ctx context.Context, text string) error
	DismissError(ctx context.Context) error
}

type viewMsg session.View

type commandDoneMsg struct {
	err error
}

// ViewMsg wraps a controller view for delivery to a running program.
func ViewMsg(view session.View) tea.Msg { return viewMsg(view) }

// Model is the bubbletea model for the assistant screen.
type Model struct {
	ctx  context.Context
	ctrl Controller

	view   session.View
	notice string

	input      textinput.Model
	transcript viewport.Model
	spinner    spinner.Model
	theme      theme

	width  int
	height int
}

// New builds a model seeded with the controller's current view.
func New(ctx context.Context, ctrl Controller) Model {
	input := textinput.New()
	input.Prompt = "> "
	input.CharLimit = 2000
	input.Placeholder = "Type a message, or press F2 to speak"
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Points

	th := newTheme()
	sp.Style = th.spinner

	return Model{
		ctx:        ctx,
		ctrl:       ctrl,
		view:       ctrl.View(),
		input:      input,
		transcript: viewport.New(0, 0),
		spinner:    sp,
		theme:      th,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		textinput.Blink,
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	switch msg := msg.(type) {
	case viewMsg:
		m.view = session.View(msg)
		m.resize()
		m.renderTranscript()
	case commandDoneMsg:
		m.notice = noticeFor(msg.err)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		m.renderTranscript()
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "enter":
			return m.submit()
		case "f2", "ctrl+@":
			m.notice = ""
			return m, m.run(m.ctrl.ActivateVoice)
		case "esc":
			if m.view.ErrorMessage == "" {
				return m, nil
			}
			m.notice = ""
			return m, m.run(m.ctrl.DismissError)
		case "pgup", "pgdown":
			var cmd tea.Cmd
			m.transcript, cmd = m.transcript.Update(msg)
			return m, cmd
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if text == "" || m.view.InputLocked {
		return m, nil
	}
	m.input.Reset()
	m.notice = ""
	ctrl, ctx := m.ctrl, m.ctx
	return m, func() tea.Msg {
		return commandDoneMsg{err: ctrl.SubmitText(ctx, text)}
	}
}

func (m Model) run(fn func(context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return commandDoneMsg{err: fn(ctx)}
	}
}

func noticeFor(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, session.ErrInputLocked):
		return "Busy, wait for the current turn to finish"
	case errors.Is(err, session.ErrStopped), errors.Is(err, context.Canceled):
		return "Assistant stopped"
	default:
		return err.Error()
	}
}

func (m *Model) resize() {
	chrome := 1 + 3 + 1 + 2
	if m.view.ErrorMessage != "" {
		chrome += 3
	}
	m.transcript.Width = max(m.width-2, 10)
	m.transcript.Height = max(m.height-chrome, 3)
	m.input.Width = max(m.width-6, 10)
}

func (m Model) busy() bool {
	switch m.view.State {
	case fsm.StateListening, fsm.StateThinking, fsm.StateSpeaking:
		return true
	default:
		return false
	}
}

// Run starts the terminal program and feeds it every view the controller
// publishes until the user quits or ctx is cancelled.
func Run(ctx context.Context, ctrl Controller, subscribe func(func(session.View)) func()) error {
	program := tea.NewProgram(New(ctx, ctrl), tea.WithAltScreen(), tea.WithContext(ctx))

	unsubscribe := subscribe(func(view session.View) {
		program.Send(ViewMsg(view))
	})
	defer unsubscribe()

	if _, err := program.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return err
	}
	return nil
}
