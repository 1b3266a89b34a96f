package ui

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/vvka-141/pgload/pkg/pgload"
)

// InteractivePrompter implements pgload.Prompter with y/n questions on the
// console. Input is read line by line; a blocked read is abandoned when the
// context is cancelled.
type InteractivePrompter struct {
	in  *bufio.Reader
	out io.Writer
}

// NewInteractivePrompter creates a prompter reading stdin and writing stderr.
func NewInteractivePrompter() *InteractivePrompter {
	return NewInteractivePrompterWithIO(os.Stdin, os.Stderr)
}

// NewInteractivePrompterWithIO creates a prompter on arbitrary streams.
func NewInteractivePrompterWithIO(in io.Reader, out io.Writer) *InteractivePrompter {
	return &InteractivePrompter{in: bufio.NewReader(in), out: out}
}

// ConfirmHeader asks whether the first line is a header. Only "y" means yes.
func (p *InteractivePrompter) ConfirmHeader(ctx context.Context, header []string) (bool, error) {
	fmt.Fprintf(p.out, "\nFirst line: %s\n", strings.Join(header, " | "))
	answer, err := p.ask(ctx, "Does the file have a header? [y/n]: ")
	if err != nil {
		return false, err
	}
	return strings.EqualFold(answer, "y"), nil
}

// ChooseResume asks whether to continue after rows already in the table.
// "y" continues, "n" restarts; anything else leaves the decision open.
func (p *InteractivePrompter) ChooseResume(ctx context.Context, table string, rows int64) (pgload.ResumeDecision, error) {
	answer, err := p.ask(ctx, fmt.Sprintf("%d entries detected in %s, continue where you left off? [y/n]: ", rows, table))
	if err != nil {
		return pgload.ResumeUndecided, err
	}
	switch strings.ToLower(answer) {
	case "y":
		return pgload.ResumeContinue, nil
	case "n":
		return pgload.ResumeRestart, nil
	default:
		fmt.Fprintf(p.out, "✗ Unrecognised answer %q.\n", answer)
		return pgload.ResumeUndecided, nil
	}
}

// ask prints question and waits for one line of input or ctx cancellation.
func (p *InteractivePrompter) ask(ctx context.Context, question string) (string, error) {
	fmt.Fprint(p.out, question)

	inputChan := make(chan string, 1)
	errChan := make(chan error, 1)

	go func() {
		input, err := p.in.ReadString('\n')
		if err != nil && (err != io.EOF || input == "") {
			errChan <- err
			return
		}
		inputChan <- strings.TrimSpace(input)
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case err := <-errChan:
		return "", fmt.Errorf("failed to read input: %w", err)
	case input := <-inputChan:
		return input, nil
	}
}

var _ pgload.Prompter = (*InteractivePrompter)(nil)
