package storage

import (
	"strings"

	"songplays/internal/schema"
)

// Dialect renders SQL for one backend from schema definitions. Table and
// column names are passed unquoted; the dialect quotes them.
type Dialect interface {
	Name() string

	// QuoteIdent quotes a possibly schema-qualified name.
	QuoteIdent(name string) string

	// Placeholder returns the bind marker of the i-th (1-based) argument.
	Placeholder(i int) string

	// StagingTable maps a staging base name to the backend's transient table
	// name (for example a #temp name on SQL Server).
	StagingTable(base string) string

	// CreateStagingSQL creates an empty transaction-scoped table shaped like
	// the insert columns of target.
	CreateStagingSQL(staging string, target schema.Table) string

	// MergeSQL moves every staging row into target honoring its conflict
	// policy.
	MergeSQL(staging string, target schema.Table) string

	// InsertIgnoreSQL inserts one row into t unless its key already exists.
	InsertIgnoreSQL(t schema.Table) string

	CreateTableSQL(t schema.Table) string
	DropTableSQL(name string) string
}

// Placeholders returns n bind markers starting at from, joined by ", ".
func Placeholders(d Dialect, from, n int) string {
	out := make([]string, n)
	for i := range out {
		out[i] = d.Placeholder(from + i)
	}
	return strings.Join(out, ", ")
}

// QuoteAll quotes each name with d.
func QuoteAll(d Dialect, names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = d.QuoteIdent(n)
	}
	return out
}

// QualifyAll quotes each column and prefixes it with alias.
func QualifyAll(d Dialect, alias string, names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = alias + "." + d.QuoteIdent(n)
	}
	return out
}

// QuoteWith quotes every dot-separated segment of name with quote.
func QuoteWith(name string, quote func(string) string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = quote(p)
	}
	return strings.Join(parts, ".")
}
