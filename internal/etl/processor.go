package etl

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	jsonparser "songplays/internal/parser/json"
	"songplays/internal/schema"
	"songplays/internal/storage"
	"songplays/internal/transformer"
	"songplays/pkg/records"
)

// Processor loads one file's content on a caller-owned transaction. It never
// commits or rolls back.
type Processor struct {
	schema    schema.Schema
	dialect   storage.Dialect
	loc       *time.Location
	batchSize int
	samples   int
	log       *zap.Logger

	stager  *storage.Stager
	songs   *storage.Inserter
	artists *storage.Inserter
	cache   *storage.CatalogCache
}

// NewProcessor renders the statements for s once. cache may be nil.
func NewProcessor(d storage.Dialect, s schema.Schema, loc *time.Location, batchSize, maxSamples int, cache *storage.CatalogCache, log *zap.Logger) *Processor {
	if log == nil {
		log = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Processor{
		schema:    s,
		dialect:   d,
		loc:       loc,
		batchSize: batchSize,
		samples:   maxSamples,
		log:       log,
		stager:    storage.NewStager(d, log),
		songs:     storage.NewInserter(d, s.Songs),
		artists:   storage.NewInserter(d, s.Artists),
		cache:     cache,
	}
}

// SongFile inserts the song and artist of every object in data unless they
// already exist.
func (p *Processor) SongFile(ctx context.Context, tx storage.Tx, name string, data []byte, res *Result) error {
	recs, err := jsonparser.DecodeSongs(bytes.NewReader(data), name)
	if err != nil {
		return err
	}
	res.Records = len(recs)

	for _, r := range recs {
		n, err := p.songs.Insert(ctx, tx, r.Song().Values())
		if err != nil {
			return fmt.Errorf("insert song %s: %w", r.SongID, err)
		}
		res.Songs += n

		n, err = p.artists.Insert(ctx, tx, r.Artist().Values())
		if err != nil {
			return fmt.Errorf("insert artist %s: %w", r.ArtistID, err)
		}
		res.Artists += n
	}
	return nil
}

// LogFile runs the log pipeline over data: derive the time and user
// dimensions, merge them through staging tables, then resolve and bulk-load
// one songplay per NextSong event.
func (p *Processor) LogFile(ctx context.Context, tx storage.Tx, name string, data []byte, res *Result) error {
	log := p.log.With(zap.String("file", name))

	events, err := jsonparser.DecodeEvents(bytes.NewReader(data), name)
	if err != nil {
		return err
	}
	res.Records = len(events)
	for _, e := range events {
		if e.IsNextSong() {
			res.NextSong++
		}
	}

	times, badTS := transformer.ExtractTimes(events, p.loc)
	users, badUser := transformer.ExtractUsers(events)

	skipped := newSamples(p.samples)
	for _, e := range badTS {
		skipped.add(e)
	}
	for _, e := range badUser {
		skipped.add(e)
	}
	res.SkippedRows = skipped.count
	skipped.log(log, "skipped rows")

	timeRows := make([][]any, len(times))
	for i, t := range times {
		timeRows[i] = t.Values()
	}
	if res.Times, err = p.stager.Merge(ctx, tx, p.schema.Times, timeRows); err != nil {
		return fmt.Errorf("stage times: %w", err)
	}

	userRows := make([][]any, len(users))
	for i, u := range users {
		userRows[i] = u.Values()
	}
	if res.Users, err = p.stager.Merge(ctx, tx, p.schema.Users, userRows); err != nil {
		return fmt.Errorf("stage users: %w", err)
	}

	w, err := storage.NewBatchWriter(tx, p.schema.SongPlays, p.batchSize, log)
	if err != nil {
		return err
	}
	catalog := p.cache.Wrap(storage.NewSQLCatalog(tx, p.dialect, p.schema))
	resolver := transformer.NewResolver(catalog, p.loc, log)

	sink := transformer.FactSinkFunc(func(ctx context.Context, row records.SongPlayRow) error {
		return w.Write(ctx, row.Values())
	})
	st, err := resolver.Resolve(ctx, events, sink)
	if err != nil {
		return fmt.Errorf("resolve songplays: %w", err)
	}
	if err := w.Flush(ctx); err != nil {
		return fmt.Errorf("load songplays: %w", err)
	}

	res.SongPlays = w.Total()
	res.Batches = w.Batches()
	res.Resolved = st.Resolved
	res.NullUser = st.NullUser
	res.NullStart = st.NullStart
	return nil
}
