package postgres

import (
	"strings"
	"testing"

	"songplays/internal/schema"
)

func TestDialectMergeSQL(t *testing.T) {
	t.Parallel()

	s := schema.Default()
	d := Dialect{}

	tests := []struct {
		name  string
		table schema.Table
		want  string
	}{
		{
			name:  "times insert-if-absent",
			table: s.Times,
			want: `INSERT INTO "times" ("start_time", "hour", "day", "week", "month", "year", "weekday") ` +
				`SELECT "start_time", "hour", "day", "week", "month", "year", "weekday" FROM "staging_times" ` +
				`WHERE true ON CONFLICT ("start_time") DO NOTHING`,
		},
		{
			name:  "users overwrite level",
			table: s.Users,
			want: `INSERT INTO "users" ("user_id", "first_name", "last_name", "gender", "level") ` +
				`SELECT "user_id", "first_name", "last_name", "gender", "level" FROM "staging_users" ` +
				`WHERE true ON CONFLICT ("user_id") DO UPDATE SET "level" = excluded."level"`,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := d.MergeSQL(d.StagingTable(tc.table.Staging), tc.table)
			if got != tc.want {
				t.Fatalf("MergeSQL:\n got: %s\nwant: %s", got, tc.want)
			}
		})
	}
}

func TestDialectCreateStagingSQL(t *testing.T) {
	t.Parallel()

	d := Dialect{}
	got := d.CreateStagingSQL("staging_users", schema.Default().WithPrefix("t_").Users)
	want := `CREATE TEMP TABLE "staging_users" ON COMMIT DROP AS SELECT "user_id","first_name","last_name","gender","level" FROM "t_users" WHERE false`
	if got != want {
		t.Fatalf("got  %s\nwant %s", got, want)
	}
}

func TestDialectCreateTableSQL(t *testing.T) {
	t.Parallel()

	d := Dialect{}
	got := d.CreateTableSQL(schema.Default().SongPlays)
	for _, frag := range []string{
		`CREATE TABLE IF NOT EXISTS "songplays"`,
		`"songplay_id" BIGSERIAL NOT NULL`,
		`"start_time" TIMESTAMP,`,
		`"user_agent" TEXT`,
		`PRIMARY KEY ("songplay_id")`,
	} {
		if !strings.Contains(got, frag) {
			t.Errorf("CREATE TABLE missing %q:\n%s", frag, got)
		}
	}
}

func TestDialectInsertIgnoreAndQuoting(t *testing.T) {
	t.Parallel()

	d := Dialect{}
	got := d.InsertIgnoreSQL(schema.Default().Artists)
	want := `INSERT INTO "artists" ("artist_id", "name", "location", "latitude", "longitude") VALUES ($1, $2, $3, $4, $5) ON CONFLICT ("artist_id") DO NOTHING`
	if got != want {
		t.Fatalf("got  %s\nwant %s", got, want)
	}
	if q := d.QuoteIdent(`public.we"ird`); q != `"public"."we""ird"` {
		t.Fatalf("QuoteIdent = %s", q)
	}
	if id := splitFQN("public.songplays"); len(id) != 2 || id[0] != "public" || id[1] != "songplays" {
		t.Fatalf("splitFQN = %#v", id)
	}
}
