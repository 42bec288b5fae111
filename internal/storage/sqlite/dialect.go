package sqlite

import (
	"fmt"
	"strings"

	"songplays/internal/schema"
	"songplays/internal/storage"
)

// Dialect renders SQLite SQL. Upserts use the same ON CONFLICT clause as
// Postgres; the WHERE true in INSERT ... SELECT is required by SQLite's
// parser to tell the upsert clause apart from a join constraint.
type Dialect struct{}

var _ storage.Dialect = Dialect{}

func (Dialect) Name() string { return "sqlite" }

func (Dialect) QuoteIdent(name string) string { return storage.QuoteWith(name, quoteIdent) }

func (Dialect) Placeholder(int) string { return "?" }

func (Dialect) StagingTable(base string) string { return base }

func (d Dialect) CreateStagingSQL(staging string, target schema.Table) string {
	return fmt.Sprintf(
		"CREATE TEMP TABLE %s AS SELECT %s FROM %s WHERE false",
		quoteIdent(staging),
		strings.Join(storage.QuoteAll(d, target.InsertColumns()), ", "),
		d.QuoteIdent(target.Name),
	)
}

func (d Dialect) MergeSQL(staging string, t schema.Table) string {
	cols := strings.Join(storage.QuoteAll(d, t.InsertColumns()), ", ")
	action := "DO NOTHING"
	if !t.Conflict.IsDoNothing() {
		sets := make([]string, len(t.Conflict.Update))
		for i, c := range t.Conflict.Update {
			sets[i] = fmt.Sprintf("%s = excluded.%s", quoteIdent(c), quoteIdent(c))
		}
		action = "DO UPDATE SET " + strings.Join(sets, ", ")
	}
	return fmt.Sprintf(
		"INSERT INTO %s (%s) SELECT %s FROM %s WHERE true ON CONFLICT (%s) %s",
		d.QuoteIdent(t.Name), cols, cols, d.QuoteIdent(staging),
		strings.Join(storage.QuoteAll(d, t.Key), ", "), action,
	)
}

func (d Dialect) InsertIgnoreSQL(t schema.Table) string {
	cols := t.InsertColumns()
	return fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO NOTHING",
		d.QuoteIdent(t.Name),
		strings.Join(storage.QuoteAll(d, cols), ", "),
		storage.Placeholders(d, 1, len(cols)),
		strings.Join(storage.QuoteAll(d, t.Key), ", "),
	)
}

// CreateTableSQL builds a CREATE TABLE IF NOT EXISTS statement. A serial
// column becomes an inline INTEGER PRIMARY KEY AUTOINCREMENT, the only form
// SQLite auto-populates.
func (d Dialect) CreateTableSQL(t schema.Table) string {
	defs := make([]string, 0, len(t.Columns)+1)
	var pks []string
	for _, c := range t.Columns {
		if c.Type == schema.Serial {
			defs = append(defs, quoteIdent(c.Name)+" INTEGER PRIMARY KEY AUTOINCREMENT")
			continue
		}
		def := quoteIdent(c.Name) + " " + sqlType(c.Type)
		if !c.Nullable || c.PrimaryKey {
			def += " NOT NULL"
		}
		defs = append(defs, def)
		if c.PrimaryKey {
			pks = append(pks, quoteIdent(c.Name))
		}
	}
	if len(pks) > 0 {
		defs = append(defs, "PRIMARY KEY ("+strings.Join(pks, ", ")+")")
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n  %s\n)", d.QuoteIdent(t.Name), strings.Join(defs, ",\n  "))
}

func (d Dialect) DropTableSQL(name string) string {
	return "DROP TABLE IF EXISTS " + d.QuoteIdent(name)
}

func sqlType(t schema.Type) string {
	switch t {
	case schema.Int, schema.BigInt:
		return "INTEGER"
	case schema.Float:
		return "REAL"
	case schema.Timestamp:
		return "TIMESTAMP"
	default:
		return "TEXT"
	}
}

func quoteIdent(id string) string { return `"` + strings.ReplaceAll(id, `"`, `""`) + `"` }
