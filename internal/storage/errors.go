package storage

import "fmt"

// Phase names the step of a staging merge that failed.
type Phase string

const (
	PhaseCreate Phase = "create"
	PhaseCopy   Phase = "copy"
	PhaseMerge  Phase = "merge"
	PhaseDrop   Phase = "drop"
)

// StagingError reports a failure while bulk-staging a dimension.
type StagingError struct {
	Table string
	Phase Phase
	Err   error
}

func (e *StagingError) Error() string {
	return fmt.Sprintf("stage %s: %s: %v", e.Table, e.Phase, e.Err)
}

func (e *StagingError) Unwrap() error { return e.Err }

// LoadError reports a failed write into a permanent table.
type LoadError struct {
	Table string
	Err   error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Table, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }
