package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/vvka-141/pgload/internal/tui"
	"github.com/vvka-141/pgload/internal/tui/components"
	"github.com/vvka-141/pgload/pkg/pgload"
)

// selectFunc shows a selector and returns the chosen value ("" when quit).
type selectFunc func(ctx context.Context, title string, options []components.Option) (string, error)

// SelectorPrompter implements pgload.Prompter with an arrow-key selector.
// Use it only when tui.IsInteractive() reports a terminal.
type SelectorPrompter struct {
	sel selectFunc
}

// NewSelectorPrompter creates a prompter drawing on the terminal.
func NewSelectorPrompter() *SelectorPrompter {
	return &SelectorPrompter{sel: tui.Select}
}

func (p *SelectorPrompter) ConfirmHeader(ctx context.Context, header []string) (bool, error) {
	title := fmt.Sprintf("First line: %s\nDoes the file have a header?", strings.Join(header, " | "))
	value, err := p.sel(ctx, title, []components.Option{
		{Label: "Yes", Description: "Use the first line as column names", Value: "y", Shortcut: "y"},
		{Label: "No", Description: "The first line is data", Value: "n", Shortcut: "n"},
	})
	if err != nil {
		return false, err
	}
	return value == "y", nil
}

func (p *SelectorPrompter) ChooseResume(ctx context.Context, table string, rows int64) (pgload.ResumeDecision, error) {
	title := fmt.Sprintf("%d entries detected in %s", rows, table)
	value, err := p.sel(ctx, title, []components.Option{
		{Label: "Continue", Description: "Keep existing rows and load from where the last run stopped", Value: "continue", Shortcut: "y"},
		{Label: "Restart", Description: "Empty the table and load from the first record", Value: "restart", Shortcut: "n"},
	})
	if err != nil {
		return pgload.ResumeUndecided, err
	}
	switch value {
	case "continue":
		return pgload.ResumeContinue, nil
	case "restart":
		return pgload.ResumeRestart, nil
	default:
		return pgload.ResumeUndecided, nil
	}
}

var _ pgload.Prompter = (*SelectorPrompter)(nil)
