package storage

import (
	"context"
	"fmt"

	"songplays/internal/schema"
)

// EnsureSchema creates every table of s that does not exist yet. The dialect
// renders idempotent statements, so running it twice is harmless.
func EnsureSchema(ctx context.Context, repo Repository, s schema.Schema) error {
	if err := s.Validate(); err != nil {
		return err
	}
	d := repo.Dialect()
	for _, t := range s.Tables() {
		if err := repo.Exec(ctx, d.CreateTableSQL(t)); err != nil {
			return fmt.Errorf("create table %s: %w", t.Name, err)
		}
	}
	return nil
}

// DropSchema drops every table of s, facts first.
func DropSchema(ctx context.Context, repo Repository, s schema.Schema) error {
	d := repo.Dialect()
	tables := s.Tables()
	for i := len(tables) - 1; i >= 0; i-- {
		if err := repo.Exec(ctx, d.DropTableSQL(tables[i].Name)); err != nil {
			return fmt.Errorf("drop table %s: %w", tables[i].Name, err)
		}
	}
	return nil
}
