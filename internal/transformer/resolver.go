package transformer

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"songplays/pkg/records"
)

// Catalog resolves a played track to its song and artist ids. No match is
// reported as (zero, false, nil).
type Catalog interface {
	Lookup(ctx context.Context, key records.SongKey) (records.SongMatch, bool, error)
}

// FactSink receives resolved fact rows in input order.
type FactSink interface {
	WriteFact(ctx context.Context, row records.SongPlayRow) error
}

// FactSinkFunc adapts a function to FactSink.
type FactSinkFunc func(ctx context.Context, row records.SongPlayRow) error

func (f FactSinkFunc) WriteFact(ctx context.Context, row records.SongPlayRow) error {
	return f(ctx, row)
}

// ResolveStats summarizes one Resolve call.
type ResolveStats struct {
	// Facts is the number of rows pushed to the sink (one per NextSong event).
	Facts int
	// Resolved counts facts whose song and artist ids were found.
	Resolved int
	// NullUser counts facts written with a NULL user_id because the event's
	// userId was absent or not numeric.
	NullUser int
	// NullStart counts facts written with a NULL start_time.
	NullStart int
}

// Resolver turns NextSong events into fact rows.
type Resolver struct {
	catalog Catalog
	loc     *time.Location
	log     *zap.Logger
}

// NewResolver returns a Resolver converting timestamps into loc (UTC if nil).
func NewResolver(c Catalog, loc *time.Location, log *zap.Logger) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Resolver{catalog: c, loc: zone(loc), log: log}
}

// Resolve emits exactly one SongPlayRow per NextSong event, in input order.
// A catalog miss, or an event lacking song, artist or length, yields NULL
// song_id and artist_id. Catalog and sink errors abort the call.
func (r *Resolver) Resolve(ctx context.Context, events []records.EventRecord, sink FactSink) (ResolveStats, error) {
	var st ResolveStats
	for _, e := range events {
		if !e.IsNextSong() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return st, err
		}

		row := records.SongPlayRow{
			Level:     e.Level,
			SessionID: e.SessionID,
			Location:  e.Location,
			UserAgent: e.UserAgent,
		}

		if ms, err := ParseTS(e.TS); err == nil {
			ts := StartTime(ms, r.loc)
			row.StartTime = &ts
		} else {
			st.NullStart++
		}

		if e.UserID != nil {
			if id, err := ParseUserID(*e.UserID); err == nil {
				row.UserID = &id
			}
		}
		if row.UserID == nil {
			st.NullUser++
		}

		if e.Song != nil && e.Artist != nil && e.Length != nil {
			key := records.SongKey{Title: *e.Song, Artist: *e.Artist, Duration: *e.Length}
			m, ok, err := r.catalog.Lookup(ctx, key)
			if err != nil {
				return st, fmt.Errorf("line %d: %w", e.Line, err)
			}
			if ok {
				row.SongID = &m.SongID
				row.ArtistID = &m.ArtistID
				st.Resolved++
			}
		}

		if err := sink.WriteFact(ctx, row); err != nil {
			return st, err
		}
		st.Facts++
	}
	r.log.Debug("resolved facts",
		zap.Int("facts", st.Facts),
		zap.Int("resolved", st.Resolved),
		zap.Int("null_user", st.NullUser),
		zap.Int("null_start", st.NullStart),
	)
	return st, nil
}
