package ui

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/vvka-141/pgload/pkg/pgload"
)

// FlagPrompter implements pgload.Prompter for answers fixed up front by
// --has-header and --resume/--restart (CI/CD, cron).
//
// A question without a preset answer goes to the fallback prompter when one
// is set. Without a fallback, a missing header answer means the first line is
// data and a missing resume answer is ResumeUndecided.
type FlagPrompter struct {
	hasHeader *bool
	resume    pgload.ResumeDecision
	fallback  pgload.Prompter
	out       io.Writer
}

// NewFlagPrompter creates a prompter with fixed answers.
func NewFlagPrompter(hasHeader *bool, resume pgload.ResumeDecision) *FlagPrompter {
	return &FlagPrompter{hasHeader: hasHeader, resume: resume, out: os.Stderr}
}

// WithFallback asks p whatever the flags left open.
func (f *FlagPrompter) WithFallback(p pgload.Prompter) *FlagPrompter {
	f.fallback = p
	return f
}

func (f *FlagPrompter) ConfirmHeader(ctx context.Context, header []string) (bool, error) {
	if f.hasHeader != nil {
		return *f.hasHeader, nil
	}
	if f.fallback != nil {
		return f.fallback.ConfirmHeader(ctx, header)
	}
	return false, nil
}

func (f *FlagPrompter) ChooseResume(ctx context.Context, table string, rows int64) (pgload.ResumeDecision, error) {
	if f.resume != pgload.ResumeUndecided {
		return f.resume, nil
	}
	if f.fallback != nil {
		return f.fallback.ChooseResume(ctx, table, rows)
	}
	fmt.Fprintf(f.out, "%s already holds %d rows; pass --resume or --restart to choose how to proceed.\n", table, rows)
	return pgload.ResumeUndecided, nil
}

var _ pgload.Prompter = (*FlagPrompter)(nil)
