package postgres

import (
	"fmt"
	"strconv"
	"strings"

	"songplays/internal/schema"
	"songplays/internal/storage"
)

// Dialect renders Postgres SQL.
type Dialect struct{}

var _ storage.Dialect = Dialect{}

func (Dialect) Name() string { return "postgres" }

// QuoteIdent quotes a possibly schema-qualified name like "public.users" to
// "public"."users".
func (Dialect) QuoteIdent(name string) string { return storage.QuoteWith(name, pgIdent) }

func (Dialect) Placeholder(i int) string { return "$" + strconv.Itoa(i) }

// StagingTable returns base unchanged; TEMP tables live in the session's
// pg_temp schema and cannot collide across sessions.
func (Dialect) StagingTable(base string) string { return base }

func (d Dialect) CreateStagingSQL(staging string, target schema.Table) string {
	return fmt.Sprintf(
		"CREATE TEMP TABLE %s ON COMMIT DROP AS SELECT %s FROM %s WHERE false",
		pgIdent(staging),
		strings.Join(storage.QuoteAll(d, target.InsertColumns()), ","),
		d.QuoteIdent(target.Name),
	)
}

// MergeSQL renders INSERT ... SELECT ... ON CONFLICT with the table's
// conflict policy.
func (d Dialect) MergeSQL(staging string, target schema.Table) string {
	return onConflictMerge(d, staging, target)
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

// CreateTableSQL builds a CREATE TABLE IF NOT EXISTS statement. Primary-key
// columns are always NOT NULL; the key is rendered as a separate constraint.
func (d Dialect) CreateTableSQL(t schema.Table) string {
	defs := make([]string, 0, len(t.Columns)+1)
	var pks []string
	for _, c := range t.Columns {
		def := pgIdent(c.Name) + " " + sqlType(c.Type)
		if !c.Nullable || c.PrimaryKey {
			def += " NOT NULL"
		}
		defs = append(defs, def)
		if c.PrimaryKey {
			pks = append(pks, pgIdent(c.Name))
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
	case schema.Int:
		return "INTEGER"
	case schema.BigInt:
		return "BIGINT"
	case schema.Float:
		return "DOUBLE PRECISION"
	case schema.Timestamp:
		return "TIMESTAMP"
	case schema.Serial:
		return "BIGSERIAL"
	default:
		return "TEXT"
	}
}

func onConflictMerge(d storage.Dialect, staging string, t schema.Table) string {
	cols := strings.Join(storage.QuoteAll(d, t.InsertColumns()), ", ")
	action := "DO NOTHING"
	if !t.Conflict.IsDoNothing() {
		sets := make([]string, len(t.Conflict.Update))
		for i, c := range t.Conflict.Update {
			sets[i] = fmt.Sprintf("%s = excluded.%s", d.QuoteIdent(c), d.QuoteIdent(c))
		}
		action = "DO UPDATE SET " + strings.Join(sets, ", ")
	}
	return fmt.Sprintf(
		"INSERT INTO %s (%s) SELECT %s FROM %s WHERE true ON CONFLICT (%s) %s",
		d.QuoteIdent(t.Name), cols, cols, d.QuoteIdent(staging),
		strings.Join(storage.QuoteAll(d, t.Key), ", "), action,
	)
}

// pgIdent safely quotes a single identifier segment for Postgres.
func pgIdent(id string) string { return `"` + strings.ReplaceAll(id, `"`, `""`) + `"` }
