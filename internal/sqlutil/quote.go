// Package sqlutil provides SQL dialect helpers: identifier quoting and the
// placeholder format each supported driver expects.
package sqlutil

import (
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
)

// Dialect captures the per-driver SQL differences the store cares about.
type Dialect struct {
	// Driver is the database/sql driver name.
	Driver      string
	quote       string
	placeholder sq.PlaceholderFormat
}

var (
	// MySQL quotes with backticks and uses ? placeholders.
	MySQL = Dialect{Driver: "mysql", quote: "`", placeholder: sq.Question}
	// SQLite quotes with double quotes and uses ? placeholders.
	SQLite = Dialect{Driver: "sqlite3", quote: `"`, placeholder: sq.Question}
	// Postgres quotes with double quotes and uses $n placeholders.
	Postgres = Dialect{Driver: "postgres", quote: `"`, placeholder: sq.Dollar}
)

// DialectFor returns the dialect for a configured driver name.
func DialectFor(driver string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "mysql", "tidb":
		return MySQL, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	case "postgres", "postgresql":
		return Postgres, nil
	default:
		return Dialect{}, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// QuoteIdentifier quotes a SQL identifier (table name, column name, etc.)
// and escapes any quote characters within it.
func (d Dialect) QuoteIdentifier(name string) string {
	q := d.quote
	if q == "" {
		q = "`"
	}
	return q + strings.ReplaceAll(name, q, q+q) + q
}

// QuoteIdentifiers quotes each name.
func (d Dialect) QuoteIdentifiers(names []string) []string {
	out := make([]string, len(names))
	for i, name := range names {
		out[i] = d.QuoteIdentifier(name)
	}
	return out
}

// Placeholder returns the squirrel placeholder format for the dialect.
func (d Dialect) Placeholder() sq.PlaceholderFormat {
	if d.placeholder == nil {
		return sq.Question
	}
	return d.placeholder
}

// StatementBuilder returns a squirrel builder preconfigured for the dialect.
func (d Dialect) StatementBuilder() sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(d.Placeholder())
}
