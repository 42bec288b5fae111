// Package file implements local filesystem data sources and discovery of the
// song and log data files.
package file

import (
	"context"
	"fmt"
	"io"
	"os"

	"songplays/internal/datasource"
)

// Local is a file on the local disk.
type Local struct{ path string }

var _ datasource.Source = (*Local)(nil)

// NewLocal returns a Local bound to path.
func NewLocal(path string) *Local { return &Local{path: path} }

// Path returns the file path.
func (l *Local) Path() string { return l.path }

// Open opens the file for reading. A done ctx is reported before the
// filesystem is touched; filesystem errors wrap the path and keep errors.Is
// working (e.g. os.ErrNotExist).
func (l *Local) Open(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", l.path, err)
	}
	return f, nil
}
