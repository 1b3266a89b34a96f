package tui

import (
	"context"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vvka-141/pgload/internal/tui/components"
)

// Select shows a selector on the terminal and returns the chosen option's
// value. It returns "" when the user quits without choosing.
func Select(ctx context.Context, title string, options []components.Option) (string, error) {
	model := components.NewSelector(title, options)

	p := tea.NewProgram(model,
		tea.WithContext(ctx),
		tea.WithOutput(os.Stderr),
	)
	final, err := p.Run()
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("selector: %w", err)
	}

	s, ok := final.(components.Selector)
	if !ok || s.Cancelled() {
		return "", nil
	}
	return s.Value(), nil
}

// StatusPrinter writes one-line status messages, coloured when interactive.
type StatusPrinter struct {
	out    io.Writer
	styled bool
}

// NewStatusPrinter creates a printer on out.
func NewStatusPrinter(out io.Writer, styled bool) *StatusPrinter {
	return &StatusPrinter{out: out, styled: styled}
}

func (p *StatusPrinter) Success(format string, args ...any) {
	p.line(SuccessStyle, SymbolCheck, format, args...)
}

func (p *StatusPrinter) Warning(format string, args ...any) {
	p.line(WarningStyle, SymbolWarning, format, args...)
}

func (p *StatusPrinter) Error(format string, args ...any) {
	p.line(ErrorStyle, SymbolCross, format, args...)
}

func (p *StatusPrinter) line(style lipgloss.Style, symbol, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	prefix := symbol
	if p.styled {
		prefix = style.Render(symbol)
	}
	fmt.Fprintf(p.out, "%s %s\n", prefix, msg)
}

// Title writes a bold heading line.
func (p *StatusPrinter) Title(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if p.styled {
		msg = TitleStyle.Render(msg)
	}
	fmt.Fprintln(p.out, msg)
}
