package storage

import (
	"context"
	"fmt"

	"songplays/internal/schema"
	"songplays/pkg/records"
)

// Ledger records processed input files by content checksum so that a re-run
// skips files already loaded. Both operations run on the file's transaction,
// which makes the ledger entry commit or roll back with the file's rows.
type Ledger struct {
	seenSQL string
	ins     *Inserter
}

// NewLedger returns a ledger over t (normally Schema.Files).
func NewLedger(d Dialect, t schema.Table) *Ledger {
	return &Ledger{
		seenSQL: fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s = %s",
			d.QuoteIdent(t.Name), d.QuoteIdent("checksum"), d.Placeholder(1)),
		ins: NewInserter(d, t),
	}
}

// Seen reports whether checksum was recorded by a committed run.
func (l *Ledger) Seen(ctx context.Context, tx Tx, checksum string) (bool, error) {
	var n int64
	if err := tx.QueryRow(ctx, l.seenSQL, checksum).Scan(&n); err != nil {
		return false, fmt.Errorf("ledger lookup: %w", err)
	}
	return n > 0, nil
}

// Record stores row.
func (l *Ledger) Record(ctx context.Context, tx Tx, row records.FileRow) error {
	_, err := l.ins.Insert(ctx, tx, row.Values())
	return err
}
