package insert

import (
	"fmt"
	"strings"

	"github.com/vvka-141/pgload/internal/dialect"
	"github.com/vvka-141/pgload/pkg/pgload"
)

// Template describes where and how records are inserted.
type Template struct {
	// Table is the destination table, optionally schema-qualified.
	Table string

	// Columns are the destination columns in record field order.
	Columns []string

	Dialect dialect.Dialect

	// Mode selects multi-row INSERT or bulk copy. Empty means InsertModeValues.
	Mode pgload.InsertMode
}

func (t Template) validate() error {
	if t.Table == "" {
		return fmt.Errorf("insert template has no table: %w", pgload.ErrInvalidConfig)
	}
	if len(t.Columns) == 0 {
		return fmt.Errorf("insert template for %s has no columns: %w", t.Table, pgload.ErrInvalidConfig)
	}
	if t.Dialect.Driver == "" {
		return fmt.Errorf("insert template for %s has no dialect: %w", t.Table, pgload.ErrInvalidConfig)
	}
	if t.Mode != "" && !t.Mode.IsValid() {
		return fmt.Errorf("unknown insert mode %q: %w", t.Mode, pgload.ErrInvalidConfig)
	}
	return nil
}

// statementBuilder renders multi-row INSERT statements and caches them by row count.
type statementBuilder struct {
	prefix  string
	columns int
	dialect dialect.Dialect
	cache   map[int]string
}

func newStatementBuilder(t Template) *statementBuilder {
	quoted := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		quoted[i] = t.Dialect.QuoteIdent(c)
	}
	return &statementBuilder{
		prefix:  fmt.Sprintf("INSERT INTO %s (%s) VALUES ", t.Dialect.QuoteTable(t.Table), strings.Join(quoted, ", ")),
		columns: len(t.Columns),
		dialect: t.Dialect,
		cache:   make(map[int]string),
	}
}

// rowsPerStatement is the chunk size that keeps each statement within the
// dialect's parameter and row limits.
func (b *statementBuilder) rowsPerStatement() int {
	return b.dialect.RowsPerStatement(b.columns)
}

// sql returns the statement for rows records.
func (b *statementBuilder) sql(rows int) string {
	if s, ok := b.cache[rows]; ok {
		return s
	}

	var sb strings.Builder
	sb.WriteString(b.prefix)
	n := 1
	for r := 0; r < rows; r++ {
		if r > 0 {
			sb.WriteString(", ")
		}
		sb.WriteByte('(')
		for c := 0; c < b.columns; c++ {
			if c > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(b.dialect.Placeholder(n))
			n++
		}
		sb.WriteByte(')')
	}

	s := sb.String()
	b.cache[rows] = s
	return s
}

// args flattens records into bind arguments in row-major order.
func args(records []pgload.Record) []any {
	if len(records) == 0 {
		return nil
	}
	out := make([]any, 0, len(records)*len(records[0]))
	for _, rec := range records {
		for _, field := range rec {
			out = append(out, field)
		}
	}
	return out
}

// rows converts records for the bulk copy protocol.
func rows(records []pgload.Record) [][]any {
	out := make([][]any, len(records))
	for i, rec := range records {
		row := make([]any, len(rec))
		for j, field := range rec {
			row[j] = field
		}
		out[i] = row
	}
	return out
}
