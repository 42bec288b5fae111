package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"songplays/internal/schema"
)

// Stager loads dimension rows set-based: bulk copy into a transient staging
// table, one merge statement into the permanent table, then drop the staging
// table. It never deletes rows from permanent tables.
type Stager struct {
	d   Dialect
	log *zap.Logger
}

// NewStager returns a Stager rendering SQL with d.
func NewStager(d Dialect, log *zap.Logger) *Stager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Stager{d: d, log: log}
}

// Merge stages rows (aligned to t.InsertColumns()) and merges them into t
// inside tx. It returns the number of rows the merge affected. The staging
// table is dropped even when copy or merge fail; a drop failure is joined to
// the original error. An empty row set is a no-op.
func (s *Stager) Merge(ctx context.Context, tx Tx, t schema.Table, rows [][]any) (merged int64, err error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if t.Staging == "" {
		return 0, &StagingError{Table: t.Name, Phase: PhaseCreate, Err: fmt.Errorf("table has no staging name")}
	}

	staging := s.d.StagingTable(t.Staging)
	start := time.Now()

	if _, err := tx.Exec(ctx, s.d.CreateStagingSQL(staging, t)); err != nil {
		return 0, &StagingError{Table: t.Name, Phase: PhaseCreate, Err: err}
	}
	defer func() {
		if _, derr := tx.Exec(ctx, s.d.DropTableSQL(staging)); derr != nil {
			serr := &StagingError{Table: t.Name, Phase: PhaseDrop, Err: derr}
			if err != nil {
				err = errors.Join(err, serr)
				return
			}
			err = serr
		}
	}()

	copied, err := tx.CopyFrom(ctx, staging, t.InsertColumns(), rows)
	if err != nil {
		return 0, &StagingError{Table: t.Name, Phase: PhaseCopy, Err: err}
	}

	merged, err = tx.Exec(ctx, s.d.MergeSQL(staging, t))
	if err != nil {
		return 0, &StagingError{Table: t.Name, Phase: PhaseMerge, Err: err}
	}

	s.log.Debug("staged",
		zap.String("table", t.Name),
		zap.String("staging", staging),
		zap.Int64("copied", copied),
		zap.Int64("merged", merged),
		zap.Duration("elapsed", time.Since(start)),
	)
	return merged, nil
}
