package storage

import (
	"context"
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"songplays/internal/schema"
	"songplays/pkg/records"
)

// Catalog resolves a played track to its song and artist ids.
type Catalog interface {
	Lookup(ctx context.Context, key records.SongKey) (records.SongMatch, bool, error)
}

// SQLCatalog looks tracks up with a join of songs and artists on the file's
// transaction. Title, artist name and duration must all match exactly.
type SQLCatalog struct {
	tx    Tx
	query string
}

// NewSQLCatalog builds the lookup query for s once.
func NewSQLCatalog(tx Tx, d Dialect, s schema.Schema) *SQLCatalog {
	q := fmt.Sprintf(
		"SELECT s.%[1]s, s.%[2]s FROM %[3]s s JOIN %[4]s a ON s.%[2]s = a.%[2]s "+
			"WHERE s.%[5]s = %[6]s AND a.%[7]s = %[8]s AND s.%[9]s = %[10]s ORDER BY s.%[1]s",
		d.QuoteIdent("song_id"),
		d.QuoteIdent("artist_id"),
		d.QuoteIdent(s.Songs.Name),
		d.QuoteIdent(s.Artists.Name),
		d.QuoteIdent("title"), d.Placeholder(1),
		d.QuoteIdent("name"), d.Placeholder(2),
		d.QuoteIdent("duration"), d.Placeholder(3),
	)
	return &SQLCatalog{tx: tx, query: q}
}

// Lookup implements Catalog. No match is (zero, false, nil).
func (c *SQLCatalog) Lookup(ctx context.Context, key records.SongKey) (records.SongMatch, bool, error) {
	var m records.SongMatch
	err := c.tx.QueryRow(ctx, c.query, key.Title, key.Artist, key.Duration).Scan(&m.SongID, &m.ArtistID)
	if errors.Is(err, ErrNoRows) {
		return records.SongMatch{}, false, nil
	}
	if err != nil {
		return records.SongMatch{}, false, fmt.Errorf("catalog lookup: %w", err)
	}
	return m, true, nil
}

type catalogEntry struct {
	match records.SongMatch
	found bool
}

// CatalogCache memoizes catalog answers, misses included, across files. It is
// only valid while the catalog does not change, which holds for the log phase
// of a run.
type CatalogCache struct {
	cache *lru.Cache[records.SongKey, catalogEntry]
}

// NewCatalogCache returns a cache holding up to size keys. A size <= 0 yields
// a disabled cache whose Wrap returns the inner catalog unchanged.
func NewCatalogCache(size int) (*CatalogCache, error) {
	if size <= 0 {
		return &CatalogCache{}, nil
	}
	c, err := lru.New[records.SongKey, catalogEntry](size)
	if err != nil {
		return nil, fmt.Errorf("catalog cache: %w", err)
	}
	return &CatalogCache{cache: c}, nil
}

// Wrap returns a Catalog answering from the cache and falling back to inner.
func (c *CatalogCache) Wrap(inner Catalog) Catalog {
	if c == nil || c.cache == nil {
		return inner
	}
	return &CachedCatalog{inner: inner, cache: c.cache}
}

// Len returns the number of cached keys.
func (c *CatalogCache) Len() int {
	if c == nil || c.cache == nil {
		return 0
	}
	return c.cache.Len()
}

// CachedCatalog is a Catalog backed by a CatalogCache.
type CachedCatalog struct {
	inner Catalog
	cache *lru.Cache[records.SongKey, catalogEntry]
}

// Lookup implements Catalog. Errors are never cached.
func (c *CachedCatalog) Lookup(ctx context.Context, key records.SongKey) (records.SongMatch, bool, error) {
	if e, ok := c.cache.Get(key); ok {
		return e.match, e.found, nil
	}
	m, found, err := c.inner.Lookup(ctx, key)
	if err != nil {
		return records.SongMatch{}, false, err
	}
	c.cache.Add(key, catalogEntry{match: m, found: found})
	return m, found, nil
}
