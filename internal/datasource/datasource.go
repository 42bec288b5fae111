// Package datasource defines where pipeline input comes from.
package datasource

import (
	"context"
	"fmt"
	"io"
)

// Source is one named input file.
type Source interface {
	// Path identifies the input in logs, errors and the file ledger.
	Path() string
	Open(ctx context.Context) (io.ReadCloser, error)
}

// ReadAll opens src and returns its whole content.
func ReadAll(ctx context.Context, src Source) ([]byte, error) {
	rc, err := src.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	b, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", src.Path(), err)
	}
	return b, nil
}
