package storage

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"songplays/internal/schema"
)

// BatchWriter buffers rows for one table and bulk-writes them with
// Tx.CopyFrom whenever the buffer reaches the batch size, and once more on
// Flush. All writes go through the same transaction, so a file's load is
// atomic no matter how many batches it takes.
//
// On every successful flush a progress line is logged with running totals and
// the rows/sec since the previous flush.
type BatchWriter struct {
	tx      Tx
	table   string
	columns []string
	size    int
	log     *zap.Logger

	batch     [][]any
	total     int64
	batches   int64
	start     time.Time
	lastFlush time.Time
	lastTotal int64
}

// NewBatchWriter returns a writer into t. Rows passed to Write must be aligned
// to t.InsertColumns().
func NewBatchWriter(tx Tx, t schema.Table, batchSize int, log *zap.Logger) (*BatchWriter, error) {
	if batchSize <= 0 {
		return nil, fmt.Errorf("batchSize must be > 0")
	}
	if tx == nil {
		return nil, fmt.Errorf("tx must not be nil")
	}
	if log == nil {
		log = zap.NewNop()
	}
	now := time.Now()
	return &BatchWriter{
		tx:        tx,
		table:     t.Name,
		columns:   t.InsertColumns(),
		size:      batchSize,
		log:       log,
		batch:     make([][]any, 0, min(batchSize, 1024)),
		start:     now,
		lastFlush: now,
	}, nil
}

// Write buffers row and flushes when the batch is full.
func (w *BatchWriter) Write(ctx context.Context, row []any) error {
	if len(row) != len(w.columns) {
		return &LoadError{Table: w.table, Err: fmt.Errorf("row has %d values, want %d", len(row), len(w.columns))}
	}
	w.batch = append(w.batch, row)
	if len(w.batch) >= w.size {
		return w.Flush(ctx)
	}
	return nil
}

// Flush writes any buffered rows.
func (w *BatchWriter) Flush(ctx context.Context) error {
	if len(w.batch) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	n, err := w.tx.CopyFrom(ctx, w.table, w.columns, w.batch)
	w.total += n
	pending := len(w.batch)
	// Keep capacity to avoid churn.
	w.batch = w.batch[:0]

	if err != nil {
		w.log.Error("bulk write failed",
			zap.String("table", w.table),
			zap.Int("pending", pending),
			zap.Int64("total_inserted", w.total),
			zap.Error(err),
		)
		return &LoadError{Table: w.table, Err: err}
	}

	w.batches++
	now := time.Now()
	sinceLast := now.Sub(w.lastFlush)
	rps := float64(0)
	if sinceLast > 0 {
		rps = float64(w.total-w.lastTotal) / sinceLast.Seconds()
	}
	w.log.Debug(fmt.Sprintf("batch #%d", w.batches),
		zap.String("table", w.table),
		zap.Float64("rps", rps),
		zap.Int64("inserted", n),
		zap.Int64("total_inserted", w.total),
		zap.Duration("elapsed", now.Sub(w.start).Truncate(time.Millisecond)),
		zap.Duration("since_last", sinceLast.Truncate(time.Millisecond)),
	)
	w.lastFlush = now
	w.lastTotal = w.total
	return nil
}

// Total returns the number of rows written so far.
func (w *BatchWriter) Total() int64 { return w.total }

// Batches returns the number of successful flushes.
func (w *BatchWriter) Batches() int64 { return w.batches }
