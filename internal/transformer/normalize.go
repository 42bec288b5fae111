package transformer

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"songplays/pkg/records"
)

var errEmpty = errors.New("empty value")

// ParseTS parses an epoch-milliseconds timestamp.
func ParseTS(raw string) (int64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, errEmpty
	}
	return strconv.ParseInt(s, 10, 64)
}

// ParseUserID parses a numeric user id.
func ParseUserID(raw string) (int64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, errEmpty
	}
	return strconv.ParseInt(s, 10, 64)
}

// StartTime converts epoch milliseconds to the zone-less wall clock in loc.
func StartTime(ms int64, loc *time.Location) time.Time {
	return records.NaiveTime(time.UnixMilli(ms).In(zone(loc)))
}

// TimeRowAt derives the time dimension row for epoch milliseconds ms as seen
// in loc. Weekday counts from Monday=0 to Sunday=6 and the week is the ISO
// week of year.
func TimeRowAt(ms int64, loc *time.Location) records.TimeRow {
	local := time.UnixMilli(ms).In(zone(loc))
	_, week := local.ISOWeek()
	return records.TimeRow{
		StartTime:  records.NaiveTime(local),
		Hour:       local.Hour(),
		Day:        local.Day(),
		WeekOfYear: week,
		Month:      int(local.Month()),
		Year:       local.Year(),
		Weekday:    (int(local.Weekday()) + 6) % 7,
	}
}

// ExtractTimes returns one time row per distinct start_time among NextSong
// events, keeping the first occurrence, in first-occurrence order. Distinct
// instants that share a local wall clock (a DST fall-back hour) collapse into
// one row since start_time is the table key. Events with a malformed ts are
// excluded and reported.
func ExtractTimes(events []records.EventRecord, loc *time.Location) ([]records.TimeRow, []*SkippedRowError) {
	var (
		rows    = make([]records.TimeRow, 0, len(events))
		skipped []*SkippedRowError
	)
	for _, e := range events {
		if !e.IsNextSong() {
			continue
		}
		ms, err := ParseTS(e.TS)
		if err != nil {
			skipped = append(skipped, &SkippedRowError{Line: e.Line, Field: "ts", Value: e.TS, Err: err})
			continue
		}
		rows = append(rows, TimeRowAt(ms, loc))
	}
	return DeDup(rows, func(r records.TimeRow) int64 { return r.StartTime.UnixNano() }, KeepFirst), skipped
}

// ExtractUsers returns one user row per distinct user id among NextSong
// events, keeping the last occurrence. Events without a user id are dropped
// silently; a non-numeric id is reported.
func ExtractUsers(events []records.EventRecord) ([]records.UserRow, []*SkippedRowError) {
	var (
		rows    = make([]records.UserRow, 0, len(events))
		skipped []*SkippedRowError
	)
	for _, e := range events {
		if !e.IsNextSong() || e.UserID == nil {
			continue
		}
		id, err := ParseUserID(*e.UserID)
		if err != nil {
			skipped = append(skipped, &SkippedRowError{Line: e.Line, Field: "userId", Value: *e.UserID, Err: err})
			continue
		}
		rows = append(rows, records.UserRow{
			UserID:    id,
			FirstName: e.FirstName,
			LastName:  e.LastName,
			Gender:    e.Gender,
			Level:     e.Level,
		})
	}
	return DeDup(rows, func(u records.UserRow) int64 { return u.UserID }, KeepLast), skipped
}

func zone(loc *time.Location) *time.Location {
	if loc == nil {
		return time.UTC
	}
	return loc
}
