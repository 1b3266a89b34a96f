package pgload

import "context"

// Prompter supplies the two operator decisions taken at startup, before the
// batch loop begins.
//
// Implementations:
//   - ui.InteractivePrompter: y/n questions on the console
//   - ui.SelectorPrompter: arrow-key selector for interactive terminals
//   - ui.FlagPrompter: answers fixed by command line flags (CI/CD)
type Prompter interface {
	// ConfirmHeader reports whether the first line of the source is a header.
	// header is the first line split on the delimiter.
	ConfirmHeader(ctx context.Context, header []string) (bool, error)

	// ChooseResume decides what to do when the destination table already
	// holds rows. ResumeUndecided means the operator gave no usable answer.
	ChooseResume(ctx context.Context, table string, rows int64) (ResumeDecision, error)
}
