package tui

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusPrinter_Plain(t *testing.T) {
	var buf bytes.Buffer
	p := NewStatusPrinter(&buf, false)

	p.Success("loaded %d rows", 25)
	p.Warning("batch %d retried", 2)
	p.Error("batch %d failed", 3)

	assert.Equal(t, "✓ loaded 25 rows\n! batch 2 retried\n✗ batch 3 failed\n", buf.String())
}
