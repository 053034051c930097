// Package value classifies source column values into a closed set of
// categories and serializes them into PostgreSQL COPY text format.
package value

import (
	"fmt"
	"io"
	"time"

	"github.com/cockroachdb/apd/v3"
)

// Kind identifies the category of a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindText
	KindDecimal
	KindTimestamp
	KindBinary
	KindTextStream
	KindBinaryStream
	KindWrapped
)

var kindNames = [...]string{
	KindNull:         "null",
	KindText:         "text",
	KindDecimal:      "decimal",
	KindTimestamp:    "timestamp",
	KindBinary:       "binary",
	KindTextStream:   "text_stream",
	KindBinaryStream: "binary_stream",
	KindWrapped:      "wrapped",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Value is one classified column value. Only the types declared in this
// package implement it.
type Value interface {
	Kind() Kind
	isValue()
}

type (
	// Null is SQL NULL.
	Null struct{}

	// Text is free character data.
	Text string

	// Decimal is an exact decimal number. Trailing zeros in the coefficient
	// are significant and preserved on output.
	Decimal struct {
		D *apd.Decimal
	}

	// Timestamp is a point in time. Native, when set, is the canonical
	// rendering for the column's type and takes precedence over Time.
	Timestamp struct {
		Time   time.Time
		Native string
	}

	// Binary is a fixed, fully materialized byte string.
	Binary []byte

	// TextStream is large character data consumed in chunks.
	TextStream struct {
		R io.Reader
	}

	// BinaryStream is large binary data consumed in chunks.
	BinaryStream struct {
		R io.Reader
	}

	// Wrapped is a dynamically typed container holding exactly one value.
	Wrapped struct {
		Inner Value
	}
)

func (Null) Kind() Kind         { return KindNull }
func (Text) Kind() Kind         { return KindText }
func (Decimal) Kind() Kind      { return KindDecimal }
func (Timestamp) Kind() Kind    { return KindTimestamp }
func (Binary) Kind() Kind       { return KindBinary }
func (TextStream) Kind() Kind   { return KindTextStream }
func (BinaryStream) Kind() Kind { return KindBinaryStream }
func (Wrapped) Kind() Kind      { return KindWrapped }

func (Null) isValue()         {}
func (Text) isValue()         {}
func (Decimal) isValue()      {}
func (Timestamp) isValue()    {}
func (Binary) isValue()       {}
func (TextStream) isValue()   {}
func (BinaryStream) isValue() {}
func (Wrapped) isValue()      {}

// UnsupportedTypeError reports a source value that matches no category.
type UnsupportedTypeError struct {
	GoType       string
	DatabaseType string
}

func (e *UnsupportedTypeError) Error() string {
	if e.DatabaseType != "" {
		return fmt.Sprintf("unsupported value type %s (column type %s)", e.GoType, e.DatabaseType)
	}
	return fmt.Sprintf("unsupported value type %s", e.GoType)
}
