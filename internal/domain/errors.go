package domain

import "errors"

// Pipeline error taxonomy. Errors are wrapped with the offending config
// field or transaction ID so callers can fix input rather than retry:
// the pipeline is deterministic, a failing run fails identically again.
var (
	// ErrInvalidConfig means the detection config failed validation.
	// Raised before any computation starts.
	ErrInvalidConfig = errors.New("invalid detection config")

	// ErrInvalidTransaction means the batch contains a malformed record.
	// The whole batch is rejected.
	ErrInvalidTransaction = errors.New("invalid transaction")

	// ErrMissingVerdictInput means the combiner received flag maps that
	// do not cover every transaction. This is a pipeline wiring bug,
	// never a data problem, and is always fatal.
	ErrMissingVerdictInput = errors.New("missing verdict input")
)
