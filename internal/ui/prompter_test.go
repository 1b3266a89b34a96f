package ui

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vvka-141/pgload/internal/tui/components"
	"github.com/vvka-141/pgload/pkg/pgload"
)

func TestInteractivePrompter_ConfirmHeader(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"Y\n", true},
		{"  y  \n", true},
		{"n\n", false},
		{"yes\n", false},
		{"\n", false},
		{"y", true},
	}

	for _, tt := range tests {
		t.Run(strings.TrimSpace(tt.input), func(t *testing.T) {
			var out bytes.Buffer
			p := NewInteractivePrompterWithIO(strings.NewReader(tt.input), &out)

			got, err := p.ConfirmHeader(context.Background(), []string{"id", "name"})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Contains(t, out.String(), "id | name")
		})
	}
}

func TestInteractivePrompter_ChooseResume(t *testing.T) {
	tests := []struct {
		input string
		want  pgload.ResumeDecision
	}{
		{"y\n", pgload.ResumeContinue},
		{"N\n", pgload.ResumeRestart},
		{"maybe\n", pgload.ResumeUndecided},
		{"\n", pgload.ResumeUndecided},
	}

	for _, tt := range tests {
		t.Run(strings.TrimSpace(tt.input), func(t *testing.T) {
			var out bytes.Buffer
			p := NewInteractivePrompterWithIO(strings.NewReader(tt.input), &out)

			got, err := p.ChooseResume(context.Background(), "people", 10)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Contains(t, out.String(), "10 entries detected in people")
		})
	}
}

func TestInteractivePrompter_TwoQuestionsShareInput(t *testing.T) {
	p := NewInteractivePrompterWithIO(strings.NewReader("y\nn\n"), io.Discard)

	header, err := p.ConfirmHeader(context.Background(), []string{"a"})
	require.NoError(t, err)
	assert.True(t, header)

	decision, err := p.ChooseResume(context.Background(), "t", 5)
	require.NoError(t, err)
	assert.Equal(t, pgload.ResumeRestart, decision)
}

func TestInteractivePrompter_EOF(t *testing.T) {
	p := NewInteractivePrompterWithIO(strings.NewReader(""), io.Discard)
	_, err := p.ChooseResume(context.Background(), "t", 5)
	assert.Error(t, err)
}

func TestInteractivePrompter_ContextCancellation(t *testing.T) {
	r, w := io.Pipe()
	defer w.Close()

	p := NewInteractivePrompterWithIO(r, io.Discard)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := p.ConfirmHeader(ctx, []string{"a"})
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

type recordingPrompter struct {
	headerCalls int
	resumeCalls int
}

func (r *recordingPrompter) ConfirmHeader(context.Context, []string) (bool, error) {
	r.headerCalls++
	return true, nil
}

func (r *recordingPrompter) ChooseResume(context.Context, string, int64) (pgload.ResumeDecision, error) {
	r.resumeCalls++
	return pgload.ResumeContinue, nil
}

func TestFlagPrompter(t *testing.T) {
	ctx := context.Background()
	no := false

	t.Run("preset answers", func(t *testing.T) {
		p := NewFlagPrompter(&no, pgload.ResumeRestart)
		header, err := p.ConfirmHeader(ctx, nil)
		require.NoError(t, err)
		assert.False(t, header)

		decision, err := p.ChooseResume(ctx, "t", 3)
		require.NoError(t, err)
		assert.Equal(t, pgload.ResumeRestart, decision)
	})

	t.Run("missing answers without fallback", func(t *testing.T) {
		var out bytes.Buffer
		p := NewFlagPrompter(nil, pgload.ResumeUndecided)
		p.out = &out

		header, err := p.ConfirmHeader(ctx, []string{"a"})
		require.NoError(t, err)
		assert.False(t, header)

		decision, err := p.ChooseResume(ctx, "t", 3)
		require.NoError(t, err)
		assert.Equal(t, pgload.ResumeUndecided, decision)
		assert.Contains(t, out.String(), "--resume or --restart")
	})

	t.Run("missing answers go to the fallback", func(t *testing.T) {
		rec := &recordingPrompter{}
		p := NewFlagPrompter(nil, pgload.ResumeUndecided).WithFallback(rec)

		header, err := p.ConfirmHeader(ctx, nil)
		require.NoError(t, err)
		assert.True(t, header)

		decision, err := p.ChooseResume(ctx, "t", 3)
		require.NoError(t, err)
		assert.Equal(t, pgload.ResumeContinue, decision)
		assert.Equal(t, 1, rec.headerCalls)
		assert.Equal(t, 1, rec.resumeCalls)
	})

	t.Run("preset answers bypass the fallback", func(t *testing.T) {
		rec := &recordingPrompter{}
		p := NewFlagPrompter(&no, pgload.ResumeContinue).WithFallback(rec)
		_, _ = p.ConfirmHeader(ctx, nil)
		_, _ = p.ChooseResume(ctx, "t", 3)
		assert.Zero(t, rec.headerCalls)
		assert.Zero(t, rec.resumeCalls)
	})
}

func TestSelectorPrompter(t *testing.T) {
	ctx := context.Background()

	answer := func(v string) *SelectorPrompter {
		return &SelectorPrompter{sel: func(context.Context, string, []components.Option) (string, error) {
			return v, nil
		}}
	}

	header, err := answer("y").ConfirmHeader(ctx, []string{"a"})
	require.NoError(t, err)
	assert.True(t, header)

	decision, err := answer("restart").ChooseResume(ctx, "t", 1)
	require.NoError(t, err)
	assert.Equal(t, pgload.ResumeRestart, decision)

	decision, err = answer("").ChooseResume(ctx, "t", 1)
	require.NoError(t, err)
	assert.Equal(t, pgload.ResumeUndecided, decision, "quitting the selector leaves the decision open")

	failing := &SelectorPrompter{sel: func(context.Context, string, []components.Option) (string, error) {
		return "", context.Canceled
	}}
	_, err = failing.ChooseResume(ctx, "t", 1)
	assert.ErrorIs(t, err, context.Canceled)
}
