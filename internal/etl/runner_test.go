package etl

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"songplays/internal/schema"
	"songplays/internal/storage"
	_ "songplays/internal/storage/sqlite"
)

const songElena = `{"num_songs": 1, "artist_id": "AR5KOSW1187FB35FF4", "artist_latitude": 49.80388, "artist_longitude": 15.47491, "artist_location": "Dubai UAE", "artist_name": "Elena", "song_id": "SOZCTXZ12AB0182364", "title": "Setanta matins", "duration": 269.58322, "year": 0}`

const songCasual = `{"num_songs": 1, "artist_id": "ARD7TVE1187B99BFB1", "artist_latitude": null, "artist_longitude": null, "artist_location": "California - LA", "artist_name": "Casual", "song_id": "SOMZWCG12A8C13C480", "title": "I Didn't Mean To", "duration": 218.93179, "year": 0}`

// Five NextSong plays around one Home page view. The third line has an empty
// userId, the fourth a malformed ts, the fifth a near-miss duration, and the
// last one moves user 15 to the paid level.
var logLines = []string{
	`{"artist":"Elena","auth":"Logged In","firstName":"Lily","gender":"F","itemInSession":5,"lastName":"Koch","length":269.58322,"level":"free","location":"Chicago-Naperville-Elgin, IL-IN-WI","method":"PUT","page":"NextSong","sessionId":818,"song":"Setanta matins","status":200,"ts":1541121934796,"userAgent":"Mozilla/5.0","userId":"15"}`,
	`{"artist":null,"auth":"Logged In","firstName":"Lily","gender":"F","itemInSession":6,"lastName":"Koch","length":null,"level":"free","location":"Chicago-Naperville-Elgin, IL-IN-WI","method":"GET","page":"Home","sessionId":818,"song":null,"status":200,"ts":1541121934999,"userAgent":"Mozilla/5.0","userId":"15"}`,
	`{"artist":"Casual","auth":"Logged Out","firstName":null,"gender":null,"itemInSession":0,"lastName":null,"length":218.93179,"level":"free","location":null,"method":"PUT","page":"NextSong","sessionId":52,"song":"I Didn't Mean To","status":200,"ts":1541121935796,"userAgent":null,"userId":""}`,
	`{"artist":"Casual","auth":"Logged In","firstName":"Kaylee","gender":"F","itemInSession":1,"lastName":"Summers","length":218.93179,"level":"free","location":"Phoenix-Mesa-Scottsdale, AZ","method":"PUT","page":"NextSong","sessionId":139,"song":"I Didn't Mean To","status":200,"ts":"not-a-ts","userAgent":"Mozilla/5.0","userId":"8"}`,
	`{"artist":"Elena","auth":"Logged In","firstName":"Kaylee","gender":"F","itemInSession":2,"lastName":"Summers","length":269.58321,"level":"free","location":"Phoenix-Mesa-Scottsdale, AZ","method":"PUT","page":"NextSong","sessionId":139,"song":"Setanta matins","status":200,"ts":1541121936796,"userAgent":"Mozilla/5.0","userId":"8"}`,
	`{"artist":"Elena","auth":"Logged In","firstName":"Lily","gender":"F","itemInSession":7,"lastName":"Koch","length":269.58322,"level":"paid","location":"Chicago-Naperville-Elgin, IL-IN-WI","method":"PUT","page":"NextSong","sessionId":818,"song":"Setanta matins","status":200,"ts":1541121937796,"userAgent":"Mozilla/5.0","userId":"15"}`,
}

type fixture struct {
	songDir string
	logDir  string
}

func writeData(t *testing.T, files map[string]string) fixture {
	t.Helper()
	root := t.TempDir()
	for rel, body := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	}
	return fixture{songDir: filepath.Join(root, "song_data"), logDir: filepath.Join(root, "log_data")}
}

func defaultData(t *testing.T) fixture {
	return writeData(t, map[string]string{
		"song_data/A/R/E/TRAREL128F42A9CB88.json": songElena + "\n",
		"song_data/A/A/A/TRAAAAW128F429D538.json": songCasual + "\n",
		"log_data/2018/11/2018-11-01-events.json": strings.Join(logLines, "\n") + "\n",
	})
}

func openRepo(t *testing.T, s schema.Schema) storage.Repository {
	t.Helper()
	ctx := context.Background()
	repo, err := storage.New(ctx, storage.Config{Kind: "sqlite", DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(repo.Close)
	require.NoError(t, storage.EnsureSchema(ctx, repo, s))
	return repo
}

func newRunner(t *testing.T, repo storage.Repository, fx fixture, mutate func(*Options)) *Runner {
	t.Helper()
	opts := Options{
		SongDir:          fx.songDir,
		LogDir:           fx.logDir,
		Schema:           schema.Default(),
		BatchSize:        2,
		CatalogCacheSize: 16,
		MaxErrorSamples:  3,
	}
	if mutate != nil {
		mutate(&opts)
	}
	r, err := NewRunner(repo, opts, nil)
	require.NoError(t, err)
	return r
}

func scalar(t *testing.T, repo storage.Repository, query string, args ...any) int64 {
	t.Helper()
	ctx := context.Background()
	tx, err := repo.Begin(ctx)
	require.NoError(t, err)
	defer func() { _ = tx.Rollback(ctx) }()
	var n int64
	require.NoError(t, tx.QueryRow(ctx, query, args...).Scan(&n))
	return n
}

func TestRunLoadsSongsThenLogs(t *testing.T) {
	t.Parallel()

	repo := openRepo(t, schema.Default())
	sum, err := newRunner(t, repo, defaultData(t), nil).Run(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, sum.RunID)
	assert.Equal(t, 2, sum.SongFiles)
	assert.Equal(t, 1, sum.LogFiles)
	assert.Equal(t, 3, sum.Processed)
	assert.Zero(t, sum.Failed)
	assert.EqualValues(t, 2, sum.Songs)
	assert.EqualValues(t, 2, sum.Artists)
	assert.EqualValues(t, 5, sum.SongPlays, "one fact per NextSong event")
	assert.EqualValues(t, 4, sum.Resolved, "the near-miss duration does not resolve")
	assert.EqualValues(t, 1, sum.SkippedRows, "bad ts")

	assert.EqualValues(t, 2, scalar(t, repo, `SELECT COUNT(*) FROM "songs"`))
	assert.EqualValues(t, 4, scalar(t, repo, `SELECT COUNT(*) FROM "times"`))
	assert.EqualValues(t, 2, scalar(t, repo, `SELECT COUNT(*) FROM "users"`))
	assert.EqualValues(t, 1, scalar(t, repo, `SELECT COUNT(*) FROM "users" WHERE "user_id" = 15 AND "level" = 'paid'`), "last row wins")
	assert.EqualValues(t, 5, scalar(t, repo, `SELECT COUNT(*) FROM "songplays"`))
	assert.EqualValues(t, 1, scalar(t, repo, `SELECT COUNT(*) FROM "songplays" WHERE "user_id" IS NULL`))
	assert.EqualValues(t, 1, scalar(t, repo, `SELECT COUNT(*) FROM "songplays" WHERE "start_time" IS NULL`))
	assert.EqualValues(t, 2, scalar(t, repo, `SELECT COUNT(*) FROM "songplays" WHERE "song_id" = 'SOZCTXZ12AB0182364' AND "artist_id" = 'AR5KOSW1187FB35FF4'`))
	assert.EqualValues(t, 2, scalar(t, repo, `SELECT COUNT(*) FROM "songplays" WHERE "song_id" = 'SOMZWCG12A8C13C480'`), "resolution does not depend on user or ts")
	assert.EqualValues(t, 1, scalar(t, repo, `SELECT COUNT(*) FROM "songplays" WHERE "song_id" IS NULL AND "artist_id" IS NULL`))
}

func TestRunRerunIsIdempotentForDimensions(t *testing.T) {
	t.Parallel()

	repo := openRepo(t, schema.Default())
	fx := defaultData(t)
	for range 2 {
		_, err := newRunner(t, repo, fx, nil).Run(context.Background())
		require.NoError(t, err)
	}
	assert.EqualValues(t, 2, scalar(t, repo, `SELECT COUNT(*) FROM "songs"`))
	assert.EqualValues(t, 4, scalar(t, repo, `SELECT COUNT(*) FROM "times"`))
	assert.EqualValues(t, 2, scalar(t, repo, `SELECT COUNT(*) FROM "users"`))
	// Facts are appended again without the ledger.
	assert.EqualValues(t, 10, scalar(t, repo, `SELECT COUNT(*) FROM "songplays"`))
}

func TestRunLedgerSkipsLoadedFiles(t *testing.T) {
	t.Parallel()

	repo := openRepo(t, schema.Default())
	fx := defaultData(t)
	withLedger := func(o *Options) { o.Ledger = true }

	first, err := newRunner(t, repo, fx, withLedger).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, first.Processed)

	second, err := newRunner(t, repo, fx, withLedger).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, second.Processed)
	assert.Equal(t, 3, second.Skipped)

	assert.EqualValues(t, 5, scalar(t, repo, `SELECT COUNT(*) FROM "songplays"`), "facts written once")
	assert.EqualValues(t, 3, scalar(t, repo, `SELECT COUNT(*) FROM "etl_files"`))
	assert.EqualValues(t, 1, scalar(t, repo, `SELECT COUNT(*) FROM "etl_files" WHERE "kind" = 'log' AND "rows" = 5`))
}

func TestRunFailedFileRollsBackAndContinues(t *testing.T) {
	t.Parallel()

	fx := writeData(t, map[string]string{
		"song_data/a.json":                songElena + "\n",
		"log_data/2018-11-01-events.json": logLines[0] + "\n{not json\n",
		"log_data/2018-11-02-events.json": logLines[5] + "\n",
	})
	repo := openRepo(t, schema.Default())

	sum, err := newRunner(t, repo, fx, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Processed)
	assert.Equal(t, 1, sum.Failed)
	require.Len(t, sum.Errors, 1)
	assert.Equal(t, KindLog, sum.Errors[0].Kind)

	var pe *ParseError
	require.ErrorAs(t, sum.Errors[0], &pe)
	assert.Equal(t, 2, pe.Line)

	// Only the second log file's play was committed.
	assert.EqualValues(t, 1, scalar(t, repo, `SELECT COUNT(*) FROM "songplays"`))
	assert.EqualValues(t, 1, scalar(t, repo, `SELECT COUNT(*) FROM "times"`))
}

func TestRunFailFast(t *testing.T) {
	t.Parallel()

	fx := writeData(t, map[string]string{
		"song_data/a.json":     "\n",
		"song_data/b.json":     songElena + "\n",
		"log_data/events.json": logLines[0] + "\n",
	})
	repo := openRepo(t, schema.Default())

	sum, err := newRunner(t, repo, fx, func(o *Options) { o.FailFast = true }).Run(context.Background())
	var fe *FileError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, KindSong, fe.Kind)
	var pe *ParseError
	require.ErrorAs(t, err, &pe, "an empty song file is a parse error")
	assert.Equal(t, 1, sum.Failed)
	assert.Zero(t, sum.Processed)
	assert.EqualValues(t, 0, scalar(t, repo, `SELECT COUNT(*) FROM "songs"`))
}

func TestRunCanceled(t *testing.T) {
	t.Parallel()

	repo := openRepo(t, schema.Default())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newRunner(t, repo, defaultData(t), nil).Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestRunMissingDirFails(t *testing.T) {
	t.Parallel()

	repo := openRepo(t, schema.Default())
	fx := fixture{songDir: filepath.Join(t.TempDir(), "none"), logDir: t.TempDir()}
	_, err := newRunner(t, repo, fx, nil).Run(context.Background())
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestRunTimeZoneWallClock(t *testing.T) {
	t.Parallel()

	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	fx := writeData(t, map[string]string{
		"song_data/a.json":     songElena + "\n",
		"log_data/events.json": logLines[0] + "\n",
	})
	repo := openRepo(t, schema.Default())

	_, err = newRunner(t, repo, fx, func(o *Options) { o.Location = loc }).Run(context.Background())
	require.NoError(t, err)

	assert.EqualValues(t, 1, scalar(t, repo, `SELECT COUNT(*) FROM "times" WHERE "hour" = 21 AND "day" = 1 AND "month" = 11 AND "year" = 2018 AND "weekday" = 3`))
	// The fact joins to the time dimension.
	assert.EqualValues(t, 1, scalar(t, repo, `SELECT COUNT(*) FROM "songplays" s JOIN "times" t ON s."start_time" = t."start_time"`))
}

func TestRunPrefixedSchema(t *testing.T) {
	t.Parallel()

	s := schema.Default().WithPrefix("it_")
	repo := openRepo(t, s)
	_, err := newRunner(t, repo, defaultData(t), func(o *Options) { o.Schema = s }).Run(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 5, scalar(t, repo, `SELECT COUNT(*) FROM "it_songplays"`))
}

func TestNewRunnerValidates(t *testing.T) {
	t.Parallel()

	repo := openRepo(t, schema.Default())
	_, err := NewRunner(repo, Options{Schema: schema.Default()}, nil)
	require.Error(t, err, "zero batch size")
	_, err = NewRunner(nil, Options{Schema: schema.Default(), BatchSize: 1}, nil)
	require.Error(t, err)
	_, err = NewRunner(repo, Options{BatchSize: 1}, nil)
	require.Error(t, err, "empty schema")
}
