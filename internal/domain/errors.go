package domain

import "fmt"

// StorageError marks a durability/IO failure in the memory store. Fatal to
// the operation, not to the process; callers must not assume partial writes
// are visible.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// GenerationError is returned when the LLM gateway exhausted its retries or
// hit a non-transient fault. Attempts records how many attempts were made.
type GenerationError struct {
	Cause    error
	Attempts int
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed after %d attempts: %v", e.Attempts, e.Cause)
}

func (e *GenerationError) Unwrap() error { return e.Cause }

// CompileError means both identity summaries failed for a scope and nothing
// was persisted.
type CompileError struct {
	Scope ReportScope
	Err   error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("compile %s %s: %v", e.Scope.Kind, e.Scope.Date, e.Err)
}

func (e *CompileError) Unwrap() error { return e.Err }

// ValidationError marks malformed caller input (bad date, unknown identity,
// empty question).
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
