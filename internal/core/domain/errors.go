package domain

import (
	"errors"
	"fmt"
)

// Error taxonomy for the schema subsystem. Callers branch with errors.Is;
// the HTTP layer maps each class to a status code.
var (
	// ErrNotFound marks a missing table, column, or constraint.
	ErrNotFound = errors.New("not found")

	// ErrValidationFailed marks a pre-flight rejection: orphan rows,
	// missing unique target, incompatible definition, or a bad action keyword.
	// Never retried.
	ErrValidationFailed = errors.New("validation failed")

	// ErrTransientIO marks a failed remote execution API call
	// (network, rate limit, 5xx). The caller may retry the whole operation.
	ErrTransientIO = errors.New("transient io failure")

	// ErrPartialGraph marks a graph build where at least one table's
	// metadata query failed. The graph is still returned, annotated incomplete.
	ErrPartialGraph = errors.New("partial graph")

	// ErrConstraintNameMalformed marks a constraint identifier that does not
	// parse into its four components.
	ErrConstraintNameMalformed = errors.New("constraint name malformed")
)

// NotFoundf wraps ErrNotFound with a human-readable message.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// ValidationFailedf wraps ErrValidationFailed with a human-readable message.
func ValidationFailedf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidationFailed, fmt.Sprintf(format, args...))
}

// TransientIOf wraps an underlying remote call failure as ErrTransientIO.
func TransientIOf(err error, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %w", ErrTransientIO, fmt.Sprintf(format, args...), err)
}
