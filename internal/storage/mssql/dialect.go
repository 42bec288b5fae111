package mssql

import (
	"fmt"
	"strconv"
	"strings"

	"songplays/internal/schema"
	"songplays/internal/storage"
)

// Dialect renders T-SQL. T-SQL has neither CREATE TABLE IF NOT EXISTS nor
// ON CONFLICT, so DDL is guarded with OBJECT_ID and merges use MERGE.
type Dialect struct{}

var _ storage.Dialect = Dialect{}

func (Dialect) Name() string { return "mssql" }

// QuoteIdent quotes a possibly schema-qualified name like "dbo.users" to
// "[dbo].[users]".
func (Dialect) QuoteIdent(name string) string { return storage.QuoteWith(name, msIdent) }

func (Dialect) Placeholder(i int) string { return "@p" + strconv.Itoa(i) }

// StagingTable turns base into a session-local #temp name.
func (Dialect) StagingTable(base string) string {
	if strings.HasPrefix(base, "#") {
		return base
	}
	return "#" + base
}

func (d Dialect) CreateStagingSQL(staging string, target schema.Table) string {
	return fmt.Sprintf(
		"SELECT TOP 0 %s INTO %s FROM %s",
		strings.Join(storage.QuoteAll(d, target.InsertColumns()), ","),
		msIdent(staging),
		d.QuoteIdent(target.Name),
	)
}

func (d Dialect) MergeSQL(staging string, t schema.Table) string {
	cols := t.InsertColumns()
	on := make([]string, len(t.Key))
	for i, k := range t.Key {
		on[i] = fmt.Sprintf("T.%s = S.%s", msIdent(k), msIdent(k))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "MERGE INTO %s WITH (HOLDLOCK) AS T USING %s AS S ON %s",
		d.QuoteIdent(t.Name), msIdent(staging), strings.Join(on, " AND "))
	if !t.Conflict.IsDoNothing() {
		sets := make([]string, len(t.Conflict.Update))
		for i, c := range t.Conflict.Update {
			sets[i] = fmt.Sprintf("T.%s = S.%s", msIdent(c), msIdent(c))
		}
		sb.WriteString(" WHEN MATCHED THEN UPDATE SET " + strings.Join(sets, ", "))
	}
	fmt.Fprintf(&sb, " WHEN NOT MATCHED THEN INSERT (%s) VALUES (%s);",
		strings.Join(storage.QuoteAll(d, cols), ", "),
		strings.Join(storage.QualifyAll(d, "S", cols), ", "))
	return sb.String()
}

// InsertIgnoreSQL renders an IF NOT EXISTS guarded INSERT. Key columns reuse
// the bind markers of the VALUES list.
func (d Dialect) InsertIgnoreSQL(t schema.Table) string {
	cols := t.InsertColumns()
	pos := make(map[string]int, len(cols))
	for i, c := range cols {
		pos[c] = i + 1
	}
	conds := make([]string, len(t.Key))
	for i, k := range t.Key {
		conds[i] = fmt.Sprintf("%s = %s", msIdent(k), d.Placeholder(pos[k]))
	}
	return fmt.Sprintf(
		"IF NOT EXISTS (SELECT 1 FROM %s WHERE %s) INSERT INTO %s (%s) VALUES (%s)",
		d.QuoteIdent(t.Name), strings.Join(conds, " AND "),
		d.QuoteIdent(t.Name),
		strings.Join(storage.QuoteAll(d, cols), ", "),
		storage.Placeholders(d, 1, len(cols)),
	)
}

// CreateTableSQL returns a T-SQL script that creates t if it does not
// already exist.
func (d Dialect) CreateTableSQL(t schema.Table) string {
	defs := make([]string, 0, len(t.Columns)+1)
	var pks []string
	for _, c := range t.Columns {
		def := msIdent(c.Name) + " " + sqlType(c)
		if !c.Nullable || c.PrimaryKey {
			def += " NOT NULL"
		} else {
			def += " NULL"
		}
		defs = append(defs, def)
		if c.PrimaryKey {
			pks = append(pks, msIdent(c.Name))
		}
	}
	if len(pks) > 0 {
		defs = append(defs, "PRIMARY KEY ("+strings.Join(pks, ", ")+")")
	}
	fqn := d.QuoteIdent(t.Name)
	return fmt.Sprintf("IF OBJECT_ID(N'%s', N'U') IS NULL\nBEGIN\n  CREATE TABLE %s (\n    %s\n  );\nEND",
		strings.ReplaceAll(fqn, "'", "''"), fqn, strings.Join(defs, ",\n    "))
}

func (d Dialect) DropTableSQL(name string) string {
	return "DROP TABLE IF EXISTS " + d.QuoteIdent(name)
}

// sqlType maps logical types. Key text columns get a bounded NVARCHAR since
// NVARCHAR(MAX) cannot be indexed.
func sqlType(c schema.Column) string {
	switch c.Type {
	case schema.Int:
		return "INT"
	case schema.BigInt:
		return "BIGINT"
	case schema.Float:
		return "FLOAT"
	case schema.Timestamp:
		return "DATETIME2(3)"
	case schema.Serial:
		return "BIGINT IDENTITY(1,1)"
	default:
		if c.PrimaryKey {
			return "NVARCHAR(256)"
		}
		return "NVARCHAR(MAX)"
	}
}

// msIdent safely quotes a SQL Server identifier using [brackets], escaping ].
func msIdent(id string) string { return `[` + strings.ReplaceAll(id, `]`, `]]`) + `]` }
