package transformer

import "fmt"

// SkippedRowError reports an event excluded from a dimension. It never aborts
// the file; callers count and sample these.
type SkippedRowError struct {
	Line  int
	Field string
	Value string
	Err   error
}

func (e *SkippedRowError) Error() string {
	return fmt.Sprintf("line %d: skipped: invalid %s %q: %v", e.Line, e.Field, e.Value, e.Err)
}

func (e *SkippedRowError) Unwrap() error { return e.Err }
