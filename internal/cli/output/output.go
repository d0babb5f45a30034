// Package output styles human-facing CLI messages. Styling is applied only
// when the destination is a terminal and NO_COLOR is unset, so piped output
// and tests see plain text.
package output

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/leapstack-labs/leapfake/pkg/core"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// Styles are the lipgloss styles used by the CLI.
type Styles struct {
	Success lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
	Muted   lipgloss.Style
	Bold    lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) Styles {
	return Styles{
		Success: r.NewStyle().Foreground(lipgloss.Color("2")),
		Error:   r.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
		Warning: r.NewStyle().Foreground(lipgloss.Color("3")),
		Muted:   r.NewStyle().Foreground(lipgloss.Color("8")),
		Bold:    r.NewStyle().Bold(true),
	}
}

// Renderer writes messages to w, styled when w is a terminal.
type Renderer struct {
	w      io.Writer
	styled bool
	styles Styles
}

// NewRenderer detects whether w is a color-capable terminal.
func NewRenderer(w io.Writer) *Renderer {
	return NewRendererWithTTY(w, IsTerminal(w) && !termenv.EnvNoColor())
}

// NewRendererWithTTY is NewRenderer with terminal detection overridden.
func NewRendererWithTTY(w io.Writer, tty bool) *Renderer {
	lr := lipgloss.NewRenderer(w)
	if tty {
		if lr.ColorProfile() == termenv.Ascii {
			lr.SetColorProfile(termenv.ANSI)
		}
	} else {
		lr.SetColorProfile(termenv.Ascii)
	}
	return &Renderer{w: w, styled: tty, styles: newStyles(lr)}
}

// Styles returns the renderer's styles.
func (r *Renderer) Styles() Styles { return r.styles }

func (r *Renderer) render(s lipgloss.Style, text string) string {
	if !r.styled {
		return text
	}
	return s.Render(text)
}

func (r *Renderer) Success(text string) string { return r.render(r.styles.Success, text) }
func (r *Renderer) Error(text string) string   { return r.render(r.styles.Error, text) }
func (r *Renderer) Warning(text string) string { return r.render(r.styles.Warning, text) }
func (r *Renderer) Muted(text string) string   { return r.render(r.styles.Muted, text) }
func (r *Renderer) Bold(text string) string    { return r.render(r.styles.Bold, text) }

// Status renders a run status in its color.
func (r *Renderer) Status(s core.RunStatus) string {
	switch s {
	case core.RunStatusCompleted:
		return r.Success(string(s))
	case core.RunStatusFailed:
		return r.Error(string(s))
	case core.RunStatusCancelled:
		return r.Warning(string(s))
	default:
		return r.Muted(string(s))
	}
}

// Printf writes a formatted message.
func (r *Renderer) Printf(format string, args ...any) {
	_, _ = fmt.Fprintf(r.w, format, args...)
}

// Println writes a line.
func (r *Renderer) Println(args ...any) {
	_, _ = fmt.Fprintln(r.w, args...)
}

// Errorf writes "Error: <err>" with the prefix styled.
func (r *Renderer) Errorf(err error) {
	r.Printf("%s %v\n", r.Error("Error:"), err)
}

// IsTerminal reports whether w is a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd())) //nolint:gosec // G115: file descriptors fit in int
}
