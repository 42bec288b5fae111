package main

import (
	"io"
	"os"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"songplays/internal/etl"
)

// summaryLanguage picks the number format from LC_ALL, LC_NUMERIC or LANG,
// falling back to English.
func summaryLanguage() language.Tag {
	for _, k := range []string{"LC_ALL", "LC_NUMERIC", "LANG"} {
		v := os.Getenv(k)
		if v == "" || v == "C" || v == "POSIX" {
			continue
		}
		if i := strings.IndexAny(v, ".@"); i >= 0 {
			v = v[:i]
		}
		if tag, err := language.Parse(v); err == nil {
			return tag
		}
	}
	return language.English
}

func printSummary(w io.Writer, s etl.Summary, lang language.Tag) {
	p := message.NewPrinter(lang)
	p.Fprintf(w, "run %s finished in %s\n", s.RunID, s.Duration.Truncate(time.Millisecond))
	p.Fprintf(w, "  files:      %d song, %d log; %d processed, %d already loaded, %d failed\n",
		s.SongFiles, s.LogFiles, s.Processed, s.Skipped, s.Failed)
	p.Fprintf(w, "  songs:      %d\n", s.Songs)
	p.Fprintf(w, "  artists:    %d\n", s.Artists)
	p.Fprintf(w, "  times:      %d\n", s.Times)
	p.Fprintf(w, "  users:      %d\n", s.Users)
	p.Fprintf(w, "  songplays:  %d (%d resolved)\n", s.SongPlays, s.Resolved)
	p.Fprintf(w, "  skipped:    %d rows\n", s.SkippedRows)
	for _, fe := range s.Errors {
		p.Fprintf(w, "  failed:     %s (%s): %v\n", fe.Path, fe.Kind, fe.Err)
	}
}
