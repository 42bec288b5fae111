// Package records defines the typed rows that flow through the songplays
// pipeline: parsed input records (events and songs) and the dimension/fact
// rows derived from them.
//
// Nullable values are modelled as pointers. A nil pointer is written as SQL
// NULL by every storage backend, so the conversion helpers below (Values)
// never have to re-interpret empty strings.
package records

import "time"

// PageNextSong is the page tag of events that represent a song play. Only
// these events contribute to dimensions and facts.
const PageNextSong = "NextSong"

// Record is a loosely typed JSON object as produced by the decoder before it
// is mapped onto one of the typed records below.
type Record map[string]any

// EventRecord is one line of a user activity log file.
type EventRecord struct {
	// Line is the 1-based line number within the source file.
	Line int

	Page string

	// TS is the raw epoch-milliseconds value as text. It is validated by the
	// normalizer, not the parser, so a bad timestamp never aborts a file.
	TS string

	// UserID is nil when the field is absent or an empty string.
	UserID *string

	FirstName *string
	LastName  *string
	Gender    *string
	Level     *string
	Song      *string
	Artist    *string
	Length    *float64
	SessionID *int64
	Location  *string
	UserAgent *string
}

// IsNextSong reports whether the event is a song play.
func (e EventRecord) IsNextSong() bool { return e.Page == PageNextSong }

// SongRecord is one object of a song metadata file. A song file carries both
// the song and its performing artist.
type SongRecord struct {
	SongID          string
	Title           *string
	ArtistID        string
	Year            *int64
	Duration        *float64
	ArtistName      *string
	ArtistLocation  *string
	ArtistLatitude  *float64
	ArtistLongitude *float64
	NumSongs        *int64
}

// Song returns the songs table row for the record.
func (s SongRecord) Song() SongRow {
	return SongRow{
		SongID:   s.SongID,
		Title:    s.Title,
		ArtistID: s.ArtistID,
		Year:     s.Year,
		Duration: s.Duration,
	}
}

// Artist returns the artists table row for the record.
func (s SongRecord) Artist() ArtistRow {
	return ArtistRow{
		ArtistID:  s.ArtistID,
		Name:      s.ArtistName,
		Location:  s.ArtistLocation,
		Latitude:  s.ArtistLatitude,
		Longitude: s.ArtistLongitude,
	}
}

// SongKey identifies a played track the way log events describe it. All three
// parts are compared exactly, duration included.
type SongKey struct {
	Title    string
	Artist   string
	Duration float64
}

// SongMatch is the catalog answer for a SongKey.
type SongMatch struct {
	SongID   string
	ArtistID string
}

// TimeRow is one row of the time dimension. StartTime is a zone-less wall
// clock value (see NaiveTime) and is the row's identity.
type TimeRow struct {
	StartTime  time.Time
	Hour       int
	Day        int
	WeekOfYear int
	Month      int
	Year       int
	// Weekday uses Monday=0 through Sunday=6.
	Weekday int
}

// Values returns the row aligned to the times table columns.
func (t TimeRow) Values() []any {
	return []any{t.StartTime, t.Hour, t.Day, t.WeekOfYear, t.Month, t.Year, t.Weekday}
}

// UserRow is one row of the user dimension.
type UserRow struct {
	UserID    int64
	FirstName *string
	LastName  *string
	Gender    *string
	Level     *string
}

// Values returns the row aligned to the users table columns.
func (u UserRow) Values() []any {
	return []any{u.UserID, nullable(u.FirstName), nullable(u.LastName), nullable(u.Gender), nullable(u.Level)}
}

// SongPlayRow is one row of the songplays fact table. The surrogate
// songplay_id is assigned by the database.
type SongPlayRow struct {
	StartTime *time.Time
	UserID    *int64
	Level     *string
	SongID    *string
	ArtistID  *string
	SessionID *int64
	Location  *string
	UserAgent *string
}

// Values returns the row aligned to the songplays load columns:
// start_time, user_id, level, song_id, artist_id, session_id, location,
// user_agent.
func (s SongPlayRow) Values() []any {
	return []any{
		nullable(s.StartTime),
		nullable(s.UserID),
		nullable(s.Level),
		nullable(s.SongID),
		nullable(s.ArtistID),
		nullable(s.SessionID),
		nullable(s.Location),
		nullable(s.UserAgent),
	}
}

// SongRow is one row of the songs table.
type SongRow struct {
	SongID   string
	Title    *string
	ArtistID string
	Year     *int64
	Duration *float64
}

// Values returns the row aligned to the songs table columns.
func (s SongRow) Values() []any {
	return []any{s.SongID, nullable(s.Title), s.ArtistID, nullable(s.Year), nullable(s.Duration)}
}

// ArtistRow is one row of the artists table.
type ArtistRow struct {
	ArtistID  string
	Name      *string
	Location  *string
	Latitude  *float64
	Longitude *float64
}

// Values returns the row aligned to the artists table columns.
func (a ArtistRow) Values() []any {
	return []any{a.ArtistID, nullable(a.Name), nullable(a.Location), nullable(a.Latitude), nullable(a.Longitude)}
}

// FileRow is one row of the processed-files ledger.
type FileRow struct {
	Checksum    string
	Path        string
	Kind        string
	Rows        int64
	ProcessedAt time.Time
}

// Values returns the row aligned to the ledger table columns.
func (f FileRow) Values() []any {
	return []any{f.Checksum, f.Path, f.Kind, f.Rows, f.ProcessedAt}
}

// NaiveTime drops the location of t while keeping its wall clock, so that
// every backend stores the same "timestamp without time zone" value.
func NaiveTime(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

// nullable unwraps typed pointers so drivers receive an untyped nil for SQL
// NULL and a plain value otherwise.
func nullable[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}
