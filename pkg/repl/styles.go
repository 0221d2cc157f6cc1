package repl

import (
	"io"

	"github.com/charmbracelet/lipgloss"
)

// Color palette for REPL output.
const (
	colorPrimary   = lipgloss.Color("#7C3AED")
	colorMuted     = lipgloss.Color("#6B7280")
	colorSuccess   = lipgloss.Color("#10B981")
	colorError     = lipgloss.Color("#EF4444")
	colorHighlight = lipgloss.Color("#3B82F6")
)

// styles holds the lipgloss styles bound to one output's renderer, so color
// is only emitted when that output is a terminal.
type styles struct {
	renderer *lipgloss.Renderer
	title    lipgloss.Style
	muted    lipgloss.Style
	result   lipgloss.Style
	err      lipgloss.Style
	cmd      lipgloss.Style
	border   lipgloss.Style
	header   lipgloss.Style
}

func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		renderer: r,
		title:    r.NewStyle().Bold(true).Foreground(colorPrimary),
		muted:    r.NewStyle().Foreground(colorMuted),
		result:   r.NewStyle().Bold(true).Foreground(colorSuccess),
		err:      r.NewStyle().Bold(true).Foreground(colorError),
		cmd:      r.NewStyle().Foreground(colorHighlight),
		border:   r.NewStyle().Foreground(colorMuted),
		header:   r.NewStyle().Bold(true).Foreground(colorPrimary).Padding(0, 1),
	}
}
