// Package source reads rows from the database a table is exported from.
package source

import (
	"context"

	"go-pgcopy-export/internal/model"
)

// Column is one result column as reported by the driver.
type Column struct {
	Name         string
	DatabaseType string
}

// Cursor is a forward-only result set. It is only ever used by one
// goroutine.
type Cursor interface {
	Columns() []Column
	// Next advances to the next row and reports whether there is one.
	Next() bool
	// Values returns the current row. The slice and everything in it are
	// owned by the caller.
	Values() ([]any, error)
	Err() error
	Close() error
}

// Conn is one source session.
type Conn interface {
	// ApplySession runs the driver specific session directives and any
	// configured session SQL. It must be called before Query.
	ApplySession(ctx context.Context) error
	Query(ctx context.Context, query string) (Cursor, error)
	Close() error
}

// Opener creates source sessions.
type Opener interface {
	Open(ctx context.Context, spec model.SourceSpec) (Conn, error)
}
