package mysql

import (
	"fmt"
	"strings"

	"songplays/internal/schema"
	"songplays/internal/storage"
)

// stagingPrefix marks temporary staging tables. '$' never survives the
// table prefix check, so no permanent table carries it.
const stagingPrefix = "tmp$"

// Dialect renders MySQL SQL. Staging tables are TEMPORARY, which MySQL
// creates and drops without an implicit commit; only statements spelled with
// the TEMPORARY keyword keep the file transaction open, so DropTableSQL
// recognizes staging names by their prefix.
type Dialect struct{}

var _ storage.Dialect = Dialect{}

func (Dialect) Name() string { return "mysql" }

func (Dialect) QuoteIdent(name string) string { return storage.QuoteWith(name, quoteIdent) }

func (Dialect) Placeholder(int) string { return "?" }

func (Dialect) StagingTable(base string) string {
	if strings.HasPrefix(base, stagingPrefix) {
		return base
	}
	return stagingPrefix + base
}

func (d Dialect) CreateStagingSQL(staging string, target schema.Table) string {
	return fmt.Sprintf(
		"CREATE TEMPORARY TABLE %s AS SELECT %s FROM %s WHERE false",
		quoteIdent(staging),
		strings.Join(storage.QuoteAll(d, target.InsertColumns()), ", "),
		d.QuoteIdent(target.Name),
	)
}

// MergeSQL uses INSERT IGNORE for insert-if-absent and ON DUPLICATE KEY
// UPDATE otherwise. MySQL reports an updated row as two affected rows.
func (d Dialect) MergeSQL(staging string, t schema.Table) string {
	cols := strings.Join(storage.QuoteAll(d, t.InsertColumns()), ", ")
	if t.Conflict.IsDoNothing() {
		return fmt.Sprintf("INSERT IGNORE INTO %s (%s) SELECT %s FROM %s",
			d.QuoteIdent(t.Name), cols, cols, quoteIdent(staging))
	}
	sets := make([]string, len(t.Conflict.Update))
	for i, c := range t.Conflict.Update {
		sets[i] = fmt.Sprintf("%s = VALUES(%s)", quoteIdent(c), quoteIdent(c))
	}
	return fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s ON DUPLICATE KEY UPDATE %s",
		d.QuoteIdent(t.Name), cols, cols, quoteIdent(staging), strings.Join(sets, ", "))
}

// InsertIgnoreSQL turns a duplicate key into a no-op update, which MySQL
// reports as zero affected rows. Unlike INSERT IGNORE it keeps every other
// error.
func (d Dialect) InsertIgnoreSQL(t schema.Table) string {
	cols := t.InsertColumns()
	k := quoteIdent(t.Key[0])
	return fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON DUPLICATE KEY UPDATE %s = %s",
		d.QuoteIdent(t.Name),
		strings.Join(storage.QuoteAll(d, cols), ", "),
		storage.Placeholders(d, 1, len(cols)),
		k, k,
	)
}

func (d Dialect) CreateTableSQL(t schema.Table) string {
	defs := make([]string, 0, len(t.Columns)+1)
	var pks []string
	for _, c := range t.Columns {
		def := quoteIdent(c.Name) + " " + sqlType(c)
		if !c.Nullable || c.PrimaryKey || c.Type == schema.Serial {
			def += " NOT NULL"
		}
		if c.Type == schema.Serial {
			def += " AUTO_INCREMENT"
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
	parts := strings.Split(name, ".")
	if strings.HasPrefix(parts[len(parts)-1], stagingPrefix) {
		return "DROP TEMPORARY TABLE IF EXISTS " + d.QuoteIdent(name)
	}
	return "DROP TABLE IF EXISTS " + d.QuoteIdent(name)
}

// sqlType maps a column onto MySQL. Key text columns become VARCHAR because
// InnoDB cannot index an unbounded TEXT column.
func sqlType(c schema.Column) string {
	switch c.Type {
	case schema.Int:
		return "INT"
	case schema.BigInt, schema.Serial:
		return "BIGINT"
	case schema.Float:
		return "DOUBLE"
	case schema.Timestamp:
		return "DATETIME(3)"
	}
	if c.PrimaryKey {
		return "VARCHAR(255)"
	}
	return "TEXT"
}

func quoteIdent(id string) string { return "`" + strings.ReplaceAll(id, "`", "``") + "`" }
