package records

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func ptr[T any](v T) *T { return &v }

func TestNaiveTimeKeepsWallClock(t *testing.T) {
	t.Parallel()

	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	in := time.UnixMilli(1541121934796).In(ny)
	got := NaiveTime(in)

	assert.Equal(t, time.UTC, got.Location())
	assert.Equal(t, time.Date(2018, 11, 1, 21, 25, 34, 796_000_000, time.UTC), got)
}

func TestSongPlayValuesUseUntypedNil(t *testing.T) {
	t.Parallel()

	row := SongPlayRow{Level: ptr("free"), SessionID: ptr(int64(818))}
	v := row.Values()

	assert.Len(t, v, 8)
	assert.Nil(t, v[0], "start_time")
	assert.Nil(t, v[1], "user_id")
	assert.Equal(t, "free", v[2])
	assert.Nil(t, v[3], "song_id")
	assert.Equal(t, int64(818), v[5])
}

func TestSongRecordSplitsIntoSongAndArtist(t *testing.T) {
	t.Parallel()

	rec := SongRecord{
		SongID:         "SOZCTXZ12AB0182364",
		Title:          ptr("Setanta matins"),
		ArtistID:       "AR5KOSW1187FB35FF4",
		Year:           ptr(int64(0)),
		Duration:       ptr(269.58322),
		ArtistName:     ptr("Elena"),
		ArtistLocation: ptr("Dubai UAE"),
		ArtistLatitude: ptr(49.80388),
	}

	assert.Equal(t, []any{"SOZCTXZ12AB0182364", "Setanta matins", "AR5KOSW1187FB35FF4", int64(0), 269.58322}, rec.Song().Values())
	assert.Equal(t, []any{"AR5KOSW1187FB35FF4", "Elena", "Dubai UAE", 49.80388, nil}, rec.Artist().Values())
}

func TestUserAndTimeValues(t *testing.T) {
	t.Parallel()

	u := UserRow{UserID: 15, FirstName: ptr("Lily"), Level: ptr("paid")}
	assert.Equal(t, []any{int64(15), "Lily", nil, nil, "paid"}, u.Values())

	ts := time.Date(2018, 11, 1, 21, 25, 34, 0, time.UTC)
	tr := TimeRow{StartTime: ts, Hour: 21, Day: 1, WeekOfYear: 44, Month: 11, Year: 2018, Weekday: 3}
	assert.Equal(t, []any{ts, 21, 1, 44, 11, 2018, 3}, tr.Values())

	assert.True(t, EventRecord{Page: PageNextSong}.IsNextSong())
	assert.False(t, EventRecord{Page: "Home"}.IsNextSong())
}
