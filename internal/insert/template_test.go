package insert

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vvka-141/pgload/internal/dialect"
	"github.com/vvka-141/pgload/pkg/pgload"
)

func TestStatementBuilder(t *testing.T) {
	tests := []struct {
		name    string
		dialect dialect.Dialect
		table   string
		rows    int
		want    string
	}{
		{"postgres qualified", dialect.Postgres, "staging.people", 2,
			`INSERT INTO "staging"."people" ("id", "name") VALUES ($1, $2), ($3, $4)`},
		{"mysql", dialect.MySQL, "people", 2,
			"INSERT INTO `people` (`id`, `name`) VALUES (?, ?), (?, ?)"},
		{"sqlite", dialect.SQLite, "people", 1,
			`INSERT INTO "people" ("id", "name") VALUES (?, ?)`},
		{"sqlserver", dialect.SQLServer, "dbo.people", 2,
			"INSERT INTO [dbo].[people] ([id], [name]) VALUES (@p1, @p2), (@p3, @p4)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newStatementBuilder(Template{Table: tt.table, Columns: []string{"id", "name"}, Dialect: tt.dialect})
			assert.Equal(t, tt.want, b.sql(tt.rows))
			assert.Equal(t, tt.want, b.sql(tt.rows), "cached statement is identical")
		})
	}
}

func TestArgsAreRowMajor(t *testing.T) {
	got := args([]pgload.Record{{"1", "a"}, {"2", "b"}})
	assert.Equal(t, []any{"1", "a", "2", "b"}, got)
	assert.Nil(t, args(nil))
}
