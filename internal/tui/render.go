package tui

import (
	"fmt"
	"strings"

	"github.com/aryan-manish-vaidya/Aurora/internal/fsm"
	"github.com/aryan-manish-vaidya/Aurora/internal/transcript"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
)

type theme struct {
	header    lipgloss.Style
	title     lipgloss.Style
	status    lipgloss.Style
	errored   lipgloss.Style
	spinner   lipgloss.Style
	user      lipgloss.Style
	assistant lipgloss.Style
	pending   lipgloss.Style
	banner    lipgloss.Style
	input     lipgloss.Style
	footer    lipgloss.Style
}

func newTheme() theme {
	blue := lipgloss.Color("#89b4fa")
	mauve := lipgloss.Color("#cba6f7")
	green := lipgloss.Color("#a6e3a1")
	red := lipgloss.Color("#f38ba8")
	muted := lipgloss.Color("#7f849c")

	return theme{
		header:    lipgloss.NewStyle().Padding(0, 1),
		title:     lipgloss.NewStyle().Foreground(mauve).Bold(true),
		status:    lipgloss.NewStyle().Foreground(blue).Bold(true),
		errored:   lipgloss.NewStyle().Foreground(red).Bold(true),
		spinner:   lipgloss.NewStyle().Foreground(green),
		user:      lipgloss.NewStyle().Foreground(blue).Bold(true),
		assistant: lipgloss.NewStyle().Foreground(green).Bold(true),
		pending:   lipgloss.NewStyle().Foreground(muted).Italic(true),
		banner: lipgloss.NewStyle().
			Foreground(red).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(red).
			Padding(0, 1),
		input: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(mauve).
			Padding(0, 1),
		footer: lipgloss.NewStyle().Foreground(muted).Padding(0, 1),
	}
}

func (m Model) View() string {
	sections := []string{m.renderHeader(), m.transcript.View()}
	if m.view.ErrorMessage != "" {
		sections = append(sections, m.theme.banner.Render(m.view.ErrorMessage+"  (esc to dismiss)"))
	}
	sections = append(sections,
		m.theme.input.Render(m.input.View()),
		m.renderFooter(),
	)
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderHeader() string {
	statusStyle := m.theme.status
	if m.view.State == fsm.StateErrored {
		statusStyle = m.theme.errored
	}
	status := statusStyle.Render(m.view.Status)
	if m.busy() {
		status = lipgloss.JoinHorizontal(lipgloss.Top, m.spinner.View(), " ", status)
	}
	return m.theme.header.Render(lipgloss.JoinHorizontal(lipgloss.Top, m.theme.title.Render("Aurora"), "  ", status))
}

func (m Model) renderFooter() string {
	help := "enter send · f2 voice · esc dismiss · pgup/pgdown scroll · ctrl+c quit"
	if !m.view.CredentialConfigured {
		help = "no API key: run `aurora credential KEY` · " + help
	}
	if m.notice != "" {
		help = m.notice + " · " + help
	}
	return m.theme.footer.Render(help)
}

func (m *Model) renderTranscript() {
	width := m.transcript.Width
	if width <= 0 {
		width = 80
	}
	m.transcript.SetContent(renderTurns(m.view.Transcript, width, m.theme))
	m.transcript.GotoBottom()
}

func renderTurns(turns []transcript.Turn, width int, th theme) string {
	var b strings.Builder
	for i, turn := range turns {
		if i > 0 {
			b.WriteString("\n\n")
		}
		label := th.assistant.Render("Aurora")
		if turn.Speaker == transcript.SpeakerUser {
			label = th.user.Render("You")
		}
		body := wordwrap.String(turn.Text, max(width-2, 10))
		if turn.Pending {
			body = th.pending.Render(body)
		}
		fmt.Fprintf(&b, "%s\n%s", label, body)
	}
	return b.String()
}
