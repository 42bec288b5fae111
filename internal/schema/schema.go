// Package schema describes the warehouse tables the pipeline writes to.
//
// A Schema is an explicit value handed to the stager, the fact loader, the
// catalog and the DDL helpers. None of them hold SQL text of their own; each
// storage dialect renders statements from these definitions. Swapping the
// target schema (for example a prefixed test schema) therefore never touches
// the pipeline code.
package schema

import (
	"fmt"
	"strings"
)

// Type is a logical column type. Dialects map it onto a concrete SQL type.
type Type string

const (
	Text      Type = "text"
	Int       Type = "int"
	BigInt    Type = "bigint"
	Float     Type = "float"
	Timestamp Type = "timestamp"
	// Serial is an auto-incrementing surrogate key populated by the database.
	Serial Type = "serial"
)

// Column describes a single column.
type Column struct {
	Name       string
	Type       Type
	Nullable   bool
	PrimaryKey bool
}

// Conflict selects how a merge treats rows whose key already exists.
type Conflict struct {
	// Update lists the columns overwritten from the incoming row. Empty means
	// insert-if-absent (do nothing on conflict).
	Update []string
}

// DoNothing is the insert-if-absent policy.
func DoNothing() Conflict { return Conflict{} }

// Update overwrites the named columns on conflict.
func Update(cols ...string) Conflict { return Conflict{Update: cols} }

// IsDoNothing reports whether the policy leaves existing rows untouched.
func (c Conflict) IsDoNothing() bool { return len(c.Update) == 0 }

// Table is one warehouse table.
type Table struct {
	// Name is the table name, optionally schema-qualified ("public.users").
	Name    string
	Columns []Column

	// Key is the conflict target used by merges and insert-if-absent writes.
	Key      []string
	Conflict Conflict

	// Staging is the base name of the transient staging table used when the
	// table is loaded through the stager. Empty for tables never staged.
	Staging string
}

// InsertColumns returns the columns a writer supplies values for, which is
// every column except database-generated serial keys.
func (t Table) InsertColumns() []string {
	out := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		if c.Type == Serial {
			continue
		}
		out = append(out, c.Name)
	}
	return out
}

// Validate checks the structural invariants dialects rely on.
func (t Table) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("schema: table name must not be empty")
	}
	if len(t.Columns) == 0 {
		return fmt.Errorf("schema: table %s has no columns", t.Name)
	}
	seen := make(map[string]struct{}, len(t.Columns))
	for _, c := range t.Columns {
		if strings.TrimSpace(c.Name) == "" {
			return fmt.Errorf("schema: table %s has a column with an empty name", t.Name)
		}
		if c.Type == "" {
			return fmt.Errorf("schema: column %s.%s has no type", t.Name, c.Name)
		}
		if _, dup := seen[c.Name]; dup {
			return fmt.Errorf("schema: column %s.%s declared twice", t.Name, c.Name)
		}
		seen[c.Name] = struct{}{}
	}
	for _, k := range t.Key {
		if _, ok := seen[k]; !ok {
			return fmt.Errorf("schema: key column %s not in table %s", k, t.Name)
		}
	}
	for _, u := range t.Conflict.Update {
		if _, ok := seen[u]; !ok {
			return fmt.Errorf("schema: conflict column %s not in table %s", u, t.Name)
		}
	}
	return nil
}

// Schema groups the warehouse tables.
type Schema struct {
	SongPlays Table
	Users     Table
	Songs     Table
	Artists   Table
	Times     Table
	// Files is the processed-files ledger.
	Files Table
}

// Default returns the production schema.
func Default() Schema {
	return Schema{
		SongPlays: Table{
			Name: "songplays",
			Columns: []Column{
				{Name: "songplay_id", Type: Serial, PrimaryKey: true},
				{Name: "start_time", Type: Timestamp, Nullable: true},
				{Name: "user_id", Type: BigInt, Nullable: true},
				{Name: "level", Type: Text, Nullable: true},
				{Name: "song_id", Type: Text, Nullable: true},
				{Name: "artist_id", Type: Text, Nullable: true},
				{Name: "session_id", Type: BigInt, Nullable: true},
				{Name: "location", Type: Text, Nullable: true},
				{Name: "user_agent", Type: Text, Nullable: true},
			},
		},
		Users: Table{
			Name: "users",
			Columns: []Column{
				{Name: "user_id", Type: BigInt, PrimaryKey: true},
				{Name: "first_name", Type: Text, Nullable: true},
				{Name: "last_name", Type: Text, Nullable: true},
				{Name: "gender", Type: Text, Nullable: true},
				{Name: "level", Type: Text, Nullable: true},
			},
			Key:      []string{"user_id"},
			Conflict: Update("level"),
			Staging:  "staging_users",
		},
		Songs: Table{
			Name: "songs",
			Columns: []Column{
				{Name: "song_id", Type: Text, PrimaryKey: true},
				{Name: "title", Type: Text, Nullable: true},
				{Name: "artist_id", Type: Text},
				{Name: "year", Type: Int, Nullable: true},
				{Name: "duration", Type: Float, Nullable: true},
			},
			Key:      []string{"song_id"},
			Conflict: DoNothing(),
		},
		Artists: Table{
			Name: "artists",
			Columns: []Column{
				{Name: "artist_id", Type: Text, PrimaryKey: true},
				{Name: "name", Type: Text, Nullable: true},
				{Name: "location", Type: Text, Nullable: true},
				{Name: "latitude", Type: Float, Nullable: true},
				{Name: "longitude", Type: Float, Nullable: true},
			},
			Key:      []string{"artist_id"},
			Conflict: DoNothing(),
		},
		Times: Table{
			Name: "times",
			Columns: []Column{
				{Name: "start_time", Type: Timestamp, PrimaryKey: true},
				{Name: "hour", Type: Int},
				{Name: "day", Type: Int},
				{Name: "week", Type: Int},
				{Name: "month", Type: Int},
				{Name: "year", Type: Int},
				{Name: "weekday", Type: Int},
			},
			Key:      []string{"start_time"},
			Conflict: DoNothing(),
			Staging:  "staging_times",
		},
		Files: Table{
			Name: "etl_files",
			Columns: []Column{
				{Name: "checksum", Type: Text, PrimaryKey: true},
				{Name: "path", Type: Text},
				{Name: "kind", Type: Text},
				{Name: "rows", Type: BigInt},
				{Name: "processed_at", Type: Timestamp},
			},
			Key:      []string{"checksum"},
			Conflict: DoNothing(),
		},
	}
}

// WithPrefix returns a copy of s whose table and staging names carry the
// given prefix. An empty prefix returns s unchanged.
func (s Schema) WithPrefix(prefix string) Schema {
	if prefix == "" {
		return s
	}
	rename := func(t Table) Table {
		t.Name = prefixName(prefix, t.Name)
		if t.Staging != "" {
			t.Staging = prefix + t.Staging
		}
		return t
	}
	return Schema{
		SongPlays: rename(s.SongPlays),
		Users:     rename(s.Users),
		Songs:     rename(s.Songs),
		Artists:   rename(s.Artists),
		Times:     rename(s.Times),
		Files:     rename(s.Files),
	}
}

// Tables returns every table in creation order: referenced tables first,
// facts last.
func (s Schema) Tables() []Table {
	return []Table{s.Users, s.Songs, s.Artists, s.Times, s.SongPlays, s.Files}
}

// Validate validates every table.
func (s Schema) Validate() error {
	for _, t := range s.Tables() {
		if err := t.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// prefixName prefixes the last segment of a possibly schema-qualified name.
func prefixName(prefix, name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[:i+1] + prefix + name[i+1:]
	}
	return prefix + name
}
