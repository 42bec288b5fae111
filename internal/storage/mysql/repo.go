// Package mysql implements a MySQL-backed storage.Repository on database/sql
// and github.com/go-sql-driver/mysql. CopyFrom sends multi-row INSERT
// statements sized to stay under the server's placeholder limit.
package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"songplays/internal/storage"
)

// maxPlaceholders is MySQL's limit on bind parameters per prepared statement.
const maxPlaceholders = 65535

// Config holds MySQL repository configuration.
type Config struct {
	// DSN is a go-sql-driver DSN, e.g.
	//   "student:student@tcp(localhost:3306)/sparkifydb"
	DSN string
}

// Repository is a MySQL-backed implementation of storage.Repository.
type Repository struct {
	db *sql.DB
}

// parseDSN validates dsn and forces the options the loader depends on.
func parseDSN(dsn string) (*mysql.Config, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("mysql: DSN must not be empty")
	}
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("mysql: parse DSN: %w", err)
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	return cfg, nil
}

// NewRepository opens a pool and pings it.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	mc, err := parseDSN(cfg.DSN)
	if err != nil {
		return nil, nil, err
	}
	conn, err := mysql.NewConnector(mc)
	if err != nil {
		return nil, nil, fmt.Errorf("mysql: connector: %w", err)
	}
	db := sql.OpenDB(conn)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("mysql: ping: %w", err)
	}

	return &Repository{db: db}, func() { db.Close() }, nil
}

func (r *Repository) Dialect() storage.Dialect { return Dialect{} }

func (r *Repository) Begin(ctx context.Context) (storage.Tx, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("mysql: begin tx: %w", err)
	}
	return &myTx{tx: tx}, nil
}

// Exec runs one statement outside any transaction, typically DDL.
func (r *Repository) Exec(ctx context.Context, sql string) error {
	if strings.TrimSpace(sql) == "" {
		return nil
	}
	if _, err := r.db.ExecContext(ctx, sql); err != nil {
		return fmt.Errorf("mysql: exec: %w", wrapErr(err))
	}
	return nil
}

type myTx struct {
	tx *sql.Tx
}

func (t *myTx) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := t.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("mysql: exec: %w", wrapErr(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("mysql: rows affected: %w", err)
	}
	return n, nil
}

func (t *myTx) QueryRow(ctx context.Context, query string, args ...any) storage.Row {
	return sqlRow{row: t.tx.QueryRowContext(ctx, query, args...)}
}

// CopyFrom inserts rows with multi-row INSERT statements.
func (t *myTx) CopyFrom(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	if len(columns) == 0 {
		return 0, fmt.Errorf("mysql: CopyFrom: columns must not be empty")
	}
	chunk := maxPlaceholders / len(columns)

	var inserted int64
	for start := 0; start < len(rows); start += chunk {
		end := min(start+chunk, len(rows))
		query, args, err := insertValues(table, columns, rows[start:end])
		if err != nil {
			return inserted, err
		}
		if _, err := t.tx.ExecContext(ctx, query, args...); err != nil {
			return inserted, fmt.Errorf("mysql: insert: %w", wrapErr(err))
		}
		inserted += int64(end - start)
	}
	return inserted, nil
}

func insertValues(table string, columns []string, rows [][]any) (string, []any, error) {
	d := Dialect{}
	tuple := "(" + storage.Placeholders(d, 1, len(columns)) + ")"

	var sb strings.Builder
	fmt.Fprintf(&sb, "INSERT INTO %s (%s) VALUES ",
		d.QuoteIdent(table), strings.Join(storage.QuoteAll(d, columns), ", "))
	args := make([]any, 0, len(rows)*len(columns))
	for i, row := range rows {
		if len(row) != len(columns) {
			return "", nil, fmt.Errorf("mysql: CopyFrom: row length %d != columns length %d", len(row), len(columns))
		}
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(tuple)
		args = append(args, row...)
	}
	return sb.String(), args, nil
}

func (t *myTx) Commit(context.Context) error { return t.tx.Commit() }

func (t *myTx) Rollback(context.Context) error { return t.tx.Rollback() }

type sqlRow struct {
	row *sql.Row
}

func (r sqlRow) Scan(dest ...any) error {
	err := r.row.Scan(dest...)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrNoRows
	}
	return err
}

// wrapErr adds the server error number, which the message omits.
func wrapErr(err error) error {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return fmt.Errorf("error %d (%s): %w", me.Number, string(me.SQLState[:]), err)
	}
	return err
}
