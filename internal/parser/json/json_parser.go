// Package json decodes newline-delimited JSON (NDJSON) input files into
// typed records:
//
//	{"page":"NextSong","ts":1541121934796,"userId":"10",...}
//	{"page":"Home","ts":1541121940000,"userId":"",...}
//
// Each non-blank line must hold exactly one JSON object. A malformed line
// aborts the whole file with a *ParseError carrying the 1-based line number.
// Field-level type mismatches never fail the parse: optional values that do
// not have the expected type decode as nil and are left for downstream
// validation.
package json

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"songplays/pkg/records"
)

// maxLineBytes bounds a single NDJSON line.
const maxLineBytes = 16 << 20

const utf8BOM = "\uFEFF"

// ParseError reports a malformed input line. The file it belongs to is
// rejected as a whole.
type ParseError struct {
	File string
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	if e.File == "" {
		return fmt.Sprintf("json parser: line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("json parser: %s:%d: %v", e.File, e.Line, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Decoder reads one JSON object per line.
type Decoder struct {
	sc   *bufio.Scanner
	name string
	line int
}

// NewDecoder constructs a Decoder over r. name is only used in errors.
func NewDecoder(r io.Reader, name string) *Decoder {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	return &Decoder{sc: sc, name: name}
}

// Line returns the line number of the record last returned by Next.
func (d *Decoder) Line() int { return d.line }

// Next reads the next JSON object and returns it as a records.Record. Blank
// lines are skipped. io.EOF is returned when the stream is exhausted.
func (d *Decoder) Next() (records.Record, error) {
	for d.sc.Scan() {
		d.line++
		raw := d.sc.Bytes()
		if d.line == 1 {
			raw = bytes.TrimPrefix(raw, []byte(utf8BOM))
		}
		if len(bytes.TrimSpace(raw)) == 0 {
			continue
		}

		dec := json.NewDecoder(bytes.NewReader(raw))
		// UseNumber so integers such as ts keep full precision.
		dec.UseNumber()

		var v any
		if err := dec.Decode(&v); err != nil {
			return nil, d.errorf("decode: %w", err)
		}
		if dec.More() {
			return nil, d.errorf("trailing data after object")
		}
		m, ok := v.(map[string]any)
		if !ok {
			return nil, d.errorf("expected a JSON object, got %s", kindOf(v))
		}
		return records.Record(m), nil
	}
	if err := d.sc.Err(); err != nil {
		return nil, &ParseError{File: d.name, Line: d.line + 1, Err: err}
	}
	return nil, io.EOF
}

func (d *Decoder) errorf(format string, args ...any) error {
	return &ParseError{File: d.name, Line: d.line, Err: fmt.Errorf(format, args...)}
}

// DecodeEvents reads a log file into EventRecords in input order. No
// filtering happens here; non-NextSong pages are returned as well.
func DecodeEvents(r io.Reader, name string) ([]records.EventRecord, error) {
	d := NewDecoder(r, name)
	var out []records.EventRecord
	for {
		rec, err := d.Next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, eventFrom(d.Line(), rec))
	}
}

// DecodeSongs reads a song metadata file. A file without any object, or an
// object without song_id or artist_id, is a *ParseError.
func DecodeSongs(r io.Reader, name string) ([]records.SongRecord, error) {
	d := NewDecoder(r, name)
	var out []records.SongRecord
	for {
		rec, err := d.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		s := songFrom(rec)
		if s.SongID == "" {
			return nil, d.errorf("missing song_id")
		}
		if s.ArtistID == "" {
			return nil, d.errorf("missing artist_id")
		}
		out = append(out, s)
	}
	if len(out) == 0 {
		return nil, &ParseError{File: name, Line: d.Line(), Err: errors.New("no song objects")}
	}
	return out, nil
}

func eventFrom(line int, rec records.Record) records.EventRecord {
	e := records.EventRecord{
		Line:      line,
		Length:    floatField(rec, "length"),
		SessionID: intField(rec, "sessionId"),
		FirstName: stringField(rec, "firstName"),
		LastName:  stringField(rec, "lastName"),
		Gender:    stringField(rec, "gender"),
		Level:     stringField(rec, "level"),
		Song:      stringField(rec, "song"),
		Artist:    stringField(rec, "artist"),
		Location:  stringField(rec, "location"),
		UserAgent: stringField(rec, "userAgent"),
	}
	if p := stringField(rec, "page"); p != nil {
		e.Page = *p
	}
	if ts := stringField(rec, "ts"); ts != nil {
		e.TS = *ts
	}
	// An empty userId (logged-out sessions) is the same as an absent one.
	if u := stringField(rec, "userId"); u != nil && *u != "" {
		e.UserID = u
	}
	return e
}

func songFrom(rec records.Record) records.SongRecord {
	s := records.SongRecord{
		Title:           stringField(rec, "title"),
		Year:            intField(rec, "year"),
		Duration:        floatField(rec, "duration"),
		ArtistName:      stringField(rec, "artist_name"),
		ArtistLocation:  stringField(rec, "artist_location"),
		ArtistLatitude:  floatField(rec, "artist_latitude"),
		ArtistLongitude: floatField(rec, "artist_longitude"),
		NumSongs:        intField(rec, "num_songs"),
	}
	if id := stringField(rec, "song_id"); id != nil {
		s.SongID = *id
	}
	if id := stringField(rec, "artist_id"); id != nil {
		s.ArtistID = *id
	}
	return s
}

// stringField returns strings as-is and numbers in their literal form.
func stringField(rec records.Record, key string) *string {
	switch v := rec[key].(type) {
	case string:
		return &v
	case json.Number:
		s := v.String()
		return &s
	default:
		return nil
	}
}

func floatField(rec records.Record, key string) *float64 {
	n, ok := rec[key].(json.Number)
	if !ok {
		return nil
	}
	f, err := n.Float64()
	if err != nil {
		return nil
	}
	return &f
}

func intField(rec records.Record, key string) *int64 {
	n, ok := rec[key].(json.Number)
	if !ok {
		return nil
	}
	i, err := n.Int64()
	if err != nil {
		return nil
	}
	return &i
}

func kindOf(v any) string {
	switch v.(type) {
	case []any:
		return "array"
	case string:
		return "string"
	case json.Number:
		return "number"
	case bool:
		return "boolean"
	case nil:
		return "null"
	default:
		return fmt.Sprintf("%T", v)
	}
}
