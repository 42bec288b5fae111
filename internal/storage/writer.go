package storage

import (
	"context"
	"fmt"

	"songplays/internal/schema"
)

// Inserter writes single rows into a table with insert-if-absent semantics on
// the table key. It is used where rows arrive one at a time (song files, the
// file ledger) and a staging round-trip would cost more than it saves.
type Inserter struct {
	table   string
	columns int
	sql     string
}

// NewInserter renders the insert statement for t once.
func NewInserter(d Dialect, t schema.Table) *Inserter {
	return &Inserter{table: t.Name, columns: len(t.InsertColumns()), sql: d.InsertIgnoreSQL(t)}
}

// Insert writes values (aligned to the table's insert columns) unless a row
// with the same key exists. It reports how many rows were inserted.
func (i *Inserter) Insert(ctx context.Context, tx Tx, values []any) (int64, error) {
	if len(values) != i.columns {
		return 0, &LoadError{Table: i.table, Err: fmt.Errorf("row has %d values, want %d", len(values), i.columns)}
	}
	n, err := tx.Exec(ctx, i.sql, values...)
	if err != nil {
		return 0, &LoadError{Table: i.table, Err: err}
	}
	return n, nil
}
