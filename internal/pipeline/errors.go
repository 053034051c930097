package pipeline

import (
	"fmt"

	"github.com/pkg/errors"

	"go-pgcopy-export/internal/value"
)

// ErrorKind classifies failures by how far they propagate.
type ErrorKind string

const (
	// KindConnection covers connect, session, query and cursor failures.
	// Fatal to the job.
	KindConnection ErrorKind = "connection"
	// KindLifecycle covers opening, closing and publishing the output file.
	// Fatal to the job.
	KindLifecycle ErrorKind = "lifecycle"
	// KindSinkWrite is an I/O failure while flushing a row. The row is lost
	// and the job goes on.
	KindSinkWrite ErrorKind = "sink_write"
	// KindUnsupportedType is a column value that could not be classified.
	// The row is lost and the job goes on.
	KindUnsupportedType ErrorKind = "unsupported_type"
	// KindSourceRead is a failure reading a streamed large object.
	KindSourceRead ErrorKind = "source_read"
)

// Error is a pipeline failure tagged with its kind and the operation that
// failed.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Cause lets errors.Cause see through an Error.
func (e *Error) Cause() error { return e.Err }

func newError(kind ErrorKind, op string, err error) error {
	return errors.WithStack(&Error{Kind: kind, Op: op, Err: err})
}

// KindOf returns the kind of err, or "" when err is not a pipeline failure.
func KindOf(err error) ErrorKind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	var ute *value.UnsupportedTypeError
	if errors.As(err, &ute) {
		return KindUnsupportedType
	}
	return ""
}
