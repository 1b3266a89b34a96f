// Package dialect describes the SQL differences between destination databases
// that the loader has to care about: bind placeholders, identifier quoting,
// statement size limits and the column type used for loaded text.
package dialect

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/vvka-141/pgload/pkg/pgload"
)

// Dialect is the SQL flavour of one destination driver.
type Dialect struct {
	Driver pgload.Driver

	// MaxParams is the largest number of bind parameters a single statement may carry.
	MaxParams int

	// MaxRowsPerStatement limits the rows in one VALUES list. Zero means no limit
	// beyond MaxParams.
	MaxRowsPerStatement int

	// TextType is the column type used for derived tables.
	TextType string

	placeholder func(n int) string
	quoteOpen   string
	quoteClose  string
}

var (
	Postgres = Dialect{
		Driver:      pgload.DriverPostgres,
		MaxParams:   65535,
		TextType:    "text",
		placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
		quoteOpen:   `"`,
		quoteClose:  `"`,
	}

	MySQL = Dialect{
		Driver:      pgload.DriverMySQL,
		MaxParams:   65535,
		TextType:    "TEXT",
		placeholder: func(int) string { return "?" },
		quoteOpen:   "`",
		quoteClose:  "`",
	}

	SQLite = Dialect{
		Driver:      pgload.DriverSQLite,
		MaxParams:   32766,
		TextType:    "TEXT",
		placeholder: func(int) string { return "?" },
		quoteOpen:   `"`,
		quoteClose:  `"`,
	}

	SQLServer = Dialect{
		Driver:              pgload.DriverSQLServer,
		MaxParams:           2100,
		MaxRowsPerStatement: 1000,
		TextType:            "NVARCHAR(MAX)",
		placeholder:         func(n int) string { return "@p" + strconv.Itoa(n) },
		quoteOpen:           "[",
		quoteClose:          "]",
	}
)

// For returns the dialect of a driver.
func For(d pgload.Driver) (Dialect, error) {
	switch d {
	case pgload.DriverPostgres:
		return Postgres, nil
	case pgload.DriverMySQL:
		return MySQL, nil
	case pgload.DriverSQLite:
		return SQLite, nil
	case pgload.DriverSQLServer:
		return SQLServer, nil
	default:
		return Dialect{}, fmt.Errorf("%q: %w", d, pgload.ErrUnsupportedDriver)
	}
}

// Placeholder returns the n-th (1-based) bind placeholder.
func (d Dialect) Placeholder(n int) string {
	return d.placeholder(n)
}

// QuoteIdent quotes a single identifier, doubling any embedded closing quote.
func (d Dialect) QuoteIdent(name string) string {
	return d.quoteOpen + strings.ReplaceAll(name, d.quoteClose, d.quoteClose+d.quoteClose) + d.quoteClose
}

// QuoteTable quotes a possibly schema-qualified table name.
func (d Dialect) QuoteTable(table string) string {
	parts := SplitTable(table)
	quoted := make([]string, len(parts))
	for i, p := range parts {
		quoted[i] = d.QuoteIdent(p)
	}
	return strings.Join(quoted, ".")
}

// RowsPerStatement returns how many rows of the given width fit into one statement.
func (d Dialect) RowsPerStatement(columns int) int {
	if columns <= 0 {
		return 0
	}
	rows := d.MaxParams / columns
	if d.MaxRowsPerStatement > 0 && rows > d.MaxRowsPerStatement {
		rows = d.MaxRowsPerStatement
	}
	if rows < 1 {
		rows = 1
	}
	return rows
}

// CountSQL returns a statement counting the rows of a table.
func (d Dialect) CountSQL(table string) string {
	return "SELECT COUNT(*) FROM " + d.QuoteTable(table)
}

// TruncateSQL returns a statement removing every row of a table.
// SQLite has no TRUNCATE; an unqualified DELETE is optimised to the same effect.
func (d Dialect) TruncateSQL(table string) string {
	if d.Driver == pgload.DriverSQLite {
		return "DELETE FROM " + d.QuoteTable(table)
	}
	return "TRUNCATE TABLE " + d.QuoteTable(table)
}

// SplitTable splits "schema.table" into its parts. Unqualified names yield one part.
func SplitTable(table string) []string {
	if schema, name, ok := strings.Cut(table, "."); ok && schema != "" && name != "" {
		return []string{schema, name}
	}
	return []string{table}
}
