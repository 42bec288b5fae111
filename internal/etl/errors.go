package etl

import (
	jsonparser "songplays/internal/parser/json"
	"songplays/internal/storage"
	"songplays/internal/transformer"
)

// Error kinds produced while processing a file, re-exported so callers can
// use errors.As without importing every stage package.
type (
	ParseError      = jsonparser.ParseError
	SkippedRowError = transformer.SkippedRowError
	StagingError    = storage.StagingError
	LoadError       = storage.LoadError
)

// FileError ties a failed file to its error.
type FileError struct {
	Path string
	Kind string
	Err  error
}

func (e *FileError) Error() string { return e.Kind + " file " + e.Path + ": " + e.Err.Error() }

func (e *FileError) Unwrap() error { return e.Err }
