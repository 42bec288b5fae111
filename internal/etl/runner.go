// Package etl drives the songplays load: it discovers song and log files,
// processes each one inside its own transaction and reports per-file results
// and a run summary.
package etl

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/xxh3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"songplays/internal/datasource"
	"songplays/internal/datasource/file"
	"songplays/internal/metrics"
	"songplays/internal/schema"
	"songplays/internal/storage"
	"songplays/pkg/records"
)

// File kinds.
const (
	KindSong = "song"
	KindLog  = "log"
)

// Options configures a Runner.
type Options struct {
	// Job labels metrics.
	Job     string
	SongDir string
	LogDir  string
	// Pattern selects files by base name; empty means *.json.
	Pattern string

	Schema   schema.Schema
	Location *time.Location

	BatchSize        int
	CatalogCacheSize int
	MaxErrorSamples  int

	FailFast bool
	// Ledger skips files whose content checksum was already loaded.
	Ledger bool
}

// Result describes one processed file.
type Result struct {
	Path     string
	Kind     string
	Checksum string
	// AlreadyLoaded is set when the ledger skipped the file.
	AlreadyLoaded bool

	// Records is the number of parsed objects (events or songs).
	Records int
	// NextSong counts song-play events in a log file.
	NextSong int

	Songs   int64
	Artists int64
	Times   int64
	Users   int64

	SongPlays int64
	Batches   int64
	Resolved  int
	NullUser  int
	NullStart int
	// SkippedRows counts events excluded from a dimension.
	SkippedRows int

	Duration time.Duration
}

// Summary aggregates a run.
type Summary struct {
	RunID string

	SongFiles int
	LogFiles  int
	Processed int
	// Skipped counts files the ledger had already seen.
	Skipped int
	Failed  int

	Records     int64
	Songs       int64
	Artists     int64
	Times       int64
	Users       int64
	SongPlays   int64
	Resolved    int64
	SkippedRows int64

	Errors   []*FileError
	Duration time.Duration
}

func (s *Summary) add(r Result) {
	if r.AlreadyLoaded {
		s.Skipped++
		return
	}
	s.Processed++
	s.Records += int64(r.Records)
	s.Songs += r.Songs
	s.Artists += r.Artists
	s.Times += r.Times
	s.Users += r.Users
	s.SongPlays += r.SongPlays
	s.Resolved += int64(r.Resolved)
	s.SkippedRows += int64(r.SkippedRows)
}

// Runner executes the load against one repository.
type Runner struct {
	repo   storage.Repository
	opts   Options
	log    *zap.Logger
	ledger *storage.Ledger

	now func() time.Time
}

// NewRunner validates opts and fills defaults.
func NewRunner(repo storage.Repository, opts Options, log *zap.Logger) (*Runner, error) {
	if repo == nil {
		return nil, errors.New("etl: repository is required")
	}
	if opts.BatchSize <= 0 {
		return nil, fmt.Errorf("etl: batch size must be > 0, got %d", opts.BatchSize)
	}
	if err := opts.Schema.Validate(); err != nil {
		return nil, fmt.Errorf("etl: %w", err)
	}
	if opts.Job == "" {
		opts.Job = "songplays"
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if log == nil {
		log = zap.NewNop()
	}

	r := &Runner{repo: repo, opts: opts, log: log, now: time.Now}
	if opts.Ledger {
		r.ledger = storage.NewLedger(repo.Dialect(), opts.Schema.Files)
	}
	return r, nil
}

// Discover lists song and log files concurrently.
func (r *Runner) Discover(ctx context.Context) (songs, logs []string, err error) {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		songs, err = file.List(gctx, r.opts.SongDir, r.opts.Pattern)
		return err
	})
	g.Go(func() error {
		var err error
		logs, err = file.List(gctx, r.opts.LogDir, r.opts.Pattern)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, fmt.Errorf("discover: %w", err)
	}
	return songs, logs, nil
}

// Run processes every song file, then every log file. A failed file is
// rolled back and recorded in the summary; the run continues unless FailFast
// is set. The returned error is non-nil only for discovery failures,
// cancellation and FailFast stops.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	start := r.now()
	sum := Summary{RunID: uuid.NewString()}
	log := r.log.With(zap.String("run_id", sum.RunID), zap.String("job", r.opts.Job))

	songs, logs, err := r.Discover(ctx)
	if err != nil {
		return sum, err
	}
	sum.SongFiles, sum.LogFiles = len(songs), len(logs)
	log.Info("discovered files",
		zap.String("song_dir", r.opts.SongDir), zap.Int("song_files", len(songs)),
		zap.String("log_dir", r.opts.LogDir), zap.Int("log_files", len(logs)),
	)

	// Song files are never written during the log phase, so one cache is
	// valid for the whole phase.
	cache, err := storage.NewCatalogCache(r.opts.CatalogCacheSize)
	if err != nil {
		return sum, err
	}
	proc := NewProcessor(r.repo.Dialect(), r.opts.Schema, r.opts.Location,
		r.opts.BatchSize, r.opts.MaxErrorSamples, cache, log)

	phases := []struct {
		kind  string
		paths []string
	}{
		{KindSong, songs},
		{KindLog, logs},
	}
	for _, ph := range phases {
		for i, src := range file.Sources(ph.paths) {
			path := src.Path()
			if err := ctx.Err(); err != nil {
				sum.Duration = r.now().Sub(start)
				return sum, err
			}

			res, err := r.ProcessFile(ctx, proc, ph.kind, src)
			if err != nil {
				sum.Failed++
				fe := &FileError{Path: path, Kind: ph.kind, Err: err}
				sum.Errors = append(sum.Errors, fe)
				log.Error("file failed", zap.String("kind", ph.kind), zap.String("file", path), zap.Error(err))
				if r.opts.FailFast || ctx.Err() != nil {
					sum.Duration = r.now().Sub(start)
					if ctx.Err() != nil {
						return sum, ctx.Err()
					}
					return sum, fe
				}
				continue
			}
			sum.add(res)
			log.Info(fmt.Sprintf("%s file %d/%d", ph.kind, i+1, len(ph.paths)), resultFields(res)...)
		}
	}

	sum.Duration = r.now().Sub(start)
	log.Info("run complete",
		zap.Int("processed", sum.Processed),
		zap.Int("skipped", sum.Skipped),
		zap.Int("failed", sum.Failed),
		zap.Int64("songplays", sum.SongPlays),
		zap.Int64("resolved", sum.Resolved),
		zap.Int("catalog_cache", cache.Len()),
		zap.Duration("elapsed", sum.Duration.Truncate(time.Millisecond)),
	)
	return sum, nil
}

// ProcessFile loads one file in its own transaction, committing on success
// and rolling back on any error.
func (r *Runner) ProcessFile(ctx context.Context, proc *Processor, kind string, src datasource.Source) (res Result, err error) {
	start := r.now()
	path := src.Path()
	res = Result{Path: path, Kind: kind}
	defer func() {
		res.Duration = r.now().Sub(start)
		r.record(kind, res, err)
	}()

	data, err := datasource.ReadAll(ctx, src)
	if err != nil {
		return res, err
	}
	if r.ledger != nil {
		sum := xxh3.Hash128(data).Bytes()
		res.Checksum = hex.EncodeToString(sum[:])
	}

	tx, err := r.repo.Begin(ctx)
	if err != nil {
		return res, fmt.Errorf("begin: %w", err)
	}
	committed := false
	defer func() {
		if committed {
			return
		}
		// The run context may already be canceled.
		if rbErr := tx.Rollback(context.WithoutCancel(ctx)); rbErr != nil {
			r.log.Warn("rollback failed", zap.String("file", path), zap.Error(rbErr))
		}
	}()

	if r.ledger != nil {
		seen, err := r.ledger.Seen(ctx, tx, res.Checksum)
		if err != nil {
			return res, err
		}
		if seen {
			res.AlreadyLoaded = true
			return res, nil
		}
	}

	switch kind {
	case KindSong:
		err = proc.SongFile(ctx, tx, path, data, &res)
	case KindLog:
		err = proc.LogFile(ctx, tx, path, data, &res)
	default:
		err = fmt.Errorf("unknown file kind %q", kind)
	}
	if err != nil {
		return res, err
	}

	if r.ledger != nil {
		n := int64(res.Records)
		if kind == KindLog {
			n = res.SongPlays
		}
		row := records.FileRow{
			Checksum:    res.Checksum,
			Path:        path,
			Kind:        kind,
			Rows:        n,
			ProcessedAt: records.NaiveTime(r.now().UTC()),
		}
		if err := r.ledger.Record(ctx, tx, row); err != nil {
			return res, fmt.Errorf("ledger: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return res, fmt.Errorf("commit: %w", err)
	}
	committed = true
	return res, nil
}

func (r *Runner) record(kind string, res Result, err error) {
	job := r.opts.Job
	metrics.RecordStep(job, kind+"_file", err, res.Duration)
	switch {
	case err != nil:
		metrics.RecordFile(job, kind, "failed")
		return
	case res.AlreadyLoaded:
		metrics.RecordFile(job, kind, "skipped")
		return
	}
	metrics.RecordFile(job, kind, "processed")
	metrics.RecordRow(job, "records", int64(res.Records))
	metrics.RecordRow(job, "songs", res.Songs)
	metrics.RecordRow(job, "artists", res.Artists)
	metrics.RecordRow(job, "times", res.Times)
	metrics.RecordRow(job, "users", res.Users)
	metrics.RecordRow(job, "songplays", res.SongPlays)
	metrics.RecordRow(job, "resolved", int64(res.Resolved))
	metrics.RecordRow(job, "skipped", int64(res.SkippedRows))
	metrics.RecordBatches(job, res.Batches)
}

func resultFields(r Result) []zap.Field {
	if r.AlreadyLoaded {
		return []zap.Field{zap.String("file", r.Path), zap.Bool("already_loaded", true), zap.String("checksum", r.Checksum)}
	}
	f := []zap.Field{
		zap.String("file", r.Path),
		zap.Int("records", r.Records),
		zap.Duration("elapsed", r.Duration.Truncate(time.Millisecond)),
	}
	if r.Kind == KindSong {
		return append(f, zap.Int64("songs", r.Songs), zap.Int64("artists", r.Artists))
	}
	return append(f,
		zap.Int("nextsong", r.NextSong),
		zap.Int64("times", r.Times),
		zap.Int64("users", r.Users),
		zap.Int64("songplays", r.SongPlays),
		zap.Int("resolved", r.Resolved),
		zap.Int("null_user", r.NullUser),
		zap.Int("null_start", r.NullStart),
		zap.Int("skipped_rows", r.SkippedRows),
	)
}
