package main

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"golang.org/x/text/language"

	"songplays/internal/etl"
)

func TestPrintSummary(t *testing.T) {
	t.Parallel()

	s := etl.Summary{
		RunID:     "run-1",
		SongFiles: 71, LogFiles: 30,
		Processed: 100, Skipped: 0, Failed: 1,
		Songs: 71, Artists: 69, Times: 6813, Users: 96,
		SongPlays: 6820, Resolved: 1, SkippedRows: 2,
		Errors:   []*etl.FileError{{Path: "log_data/bad.json", Kind: etl.KindLog, Err: errors.New("boom")}},
		Duration: 1500 * time.Millisecond,
	}

	var buf bytes.Buffer
	printSummary(&buf, s, language.English)
	out := buf.String()

	assert.Contains(t, out, "run run-1 finished in 1.5s")
	assert.Contains(t, out, "71 song, 30 log; 100 processed, 0 already loaded, 1 failed")
	assert.Contains(t, out, "times:      6,813")
	assert.Contains(t, out, "songplays:  6,820 (1 resolved)")
	assert.Contains(t, out, "failed:     log_data/bad.json (log): boom")
}

func TestPrintSummaryGermanGrouping(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	printSummary(&buf, etl.Summary{SongPlays: 12345}, language.German)
	assert.Contains(t, buf.String(), "songplays:  12.345")
}

func TestSummaryLanguage(t *testing.T) {
	tests := []struct {
		lcAll, lang string
		want        language.Tag
	}{
		{"", "", language.English},
		{"C", "", language.English},
		{"", "de_DE.UTF-8", language.MustParse("de-DE")},
		{"fr_FR.UTF-8", "de_DE.UTF-8", language.MustParse("fr-FR")},
	}
	for _, tc := range tests {
		t.Run(tc.lcAll+"/"+tc.lang, func(t *testing.T) {
			t.Setenv("LC_ALL", tc.lcAll)
			t.Setenv("LC_NUMERIC", "")
			t.Setenv("LANG", tc.lang)
			assert.Equal(t, tc.want.String(), summaryLanguage().String())
		})
	}
}
