// Package schema derives destination column names from a source file and
// renders the DDL that creates the destination table.
package schema

import (
	"fmt"
	"strings"

	"github.com/vvka-141/pgload/internal/dialect"
	"github.com/vvka-141/pgload/pkg/pgload"
)

// ColumnsFromHeader turns header cells into column names. Surrounding
// whitespace and a byte order mark are removed, inner spaces become
// underscores, blank cells fall back to their positional name and repeated
// names get a numeric suffix.
func ColumnsFromHeader(header []string) []string {
	cols := make([]string, len(header))
	seen := make(map[string]int, len(header))
	for i, cell := range header {
		name := strings.TrimSpace(strings.TrimPrefix(cell, "\uFEFF"))
		name = strings.Join(strings.Fields(name), "_")
		if name == "" {
			name = positional(i)
		}
		key := strings.ToLower(name)
		if n := seen[key]; n > 0 {
			name = fmt.Sprintf("%s_%d", name, n+1)
		}
		seen[key]++
		cols[i] = name
	}
	return cols
}

// PositionalColumns returns col0..col(n-1) for files without a header.
func PositionalColumns(n int) []string {
	cols := make([]string, n)
	for i := range cols {
		cols[i] = positional(i)
	}
	return cols
}

func positional(i int) string {
	return fmt.Sprintf("col%d", i)
}

// BuildCreateTable returns a statement creating table with one text column per
// name, doing nothing when the table already exists.
func BuildCreateTable(d dialect.Dialect, table string, columns []string) (string, error) {
	if table == "" {
		return "", fmt.Errorf("table name is required: %w", pgload.ErrInvalidConfig)
	}
	if len(columns) == 0 {
		return "", fmt.Errorf("table %s needs at least one column: %w", table, pgload.ErrInvalidConfig)
	}

	defs := make([]string, len(columns))
	for i, c := range columns {
		defs[i] = d.QuoteIdent(c) + " " + d.TextType
	}
	body := fmt.Sprintf("%s (\n    %s\n)", d.QuoteTable(table), strings.Join(defs, ",\n    "))

	if d.Driver == pgload.DriverSQLServer {
		// SQL Server has no CREATE TABLE IF NOT EXISTS.
		return fmt.Sprintf("IF OBJECT_ID(N'%s', N'U') IS NULL\nCREATE TABLE %s",
			strings.ReplaceAll(d.QuoteTable(table), "'", "''"), body), nil
	}
	return "CREATE TABLE IF NOT EXISTS " + body, nil
}

// DefaultTableName derives a table name from a source path: the base name
// without its extension.
func DefaultTableName(path string) string {
	base := path
	if i := strings.LastIndexAny(base, `/\`); i >= 0 {
		base = base[i+1:]
	}
	if i := strings.LastIndex(base, "."); i > 0 {
		base = base[:i]
	}
	return base
}
