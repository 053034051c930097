package value

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
)

// ChunkSize is the read size for streamed large objects.
const ChunkSize = 16 * 1024

// NullMarker is the COPY text representation of NULL.
const NullMarker = `\N`

// Appender receives serialized text. Every call may trigger a flush of the
// receiver's pending output. Implementations must not retain p.
type Appender interface {
	Append(p []byte) error
	AppendString(s string) error
}

// Serialize writes the COPY text form of v to a.
func Serialize(a Appender, v Value) error {
	switch v := v.(type) {
	case Null:
		return a.AppendString(NullMarker)
	case Text:
		return appendText(a, string(v))
	case Decimal:
		return a.AppendString(v.String())
	case Timestamp:
		if v.Native != "" {
			return a.AppendString(v.Native)
		}
		return a.AppendString(v.Time.Format(layoutFixed))
	case Binary:
		buf := make([]byte, 0, len(HexPrefix)+2*len(v))
		buf = append(buf, HexPrefix...)
		return a.Append(AppendHex(buf, v))
	case TextStream:
		return streamText(a, v.R)
	case BinaryStream:
		return streamBinary(a, v.R)
	case Wrapped:
		if v.Inner == nil {
			return a.AppendString(NullMarker)
		}
		return Serialize(a, v.Inner)
	case nil:
		return errors.New("serialize: nil value")
	}
	return errors.WithStack(&UnsupportedTypeError{GoType: fmt.Sprintf("%T", v)})
}

func appendText(a Appender, s string) error {
	if s == "" {
		return nil
	}
	i := escapeIndex(s)
	if i < 0 {
		return a.AppendString(s)
	}
	return a.Append(appendEscaped(make([]byte, 0, len(s)+8), s, i))
}

func streamText(a Appender, r io.Reader) error {
	chunk := make([]byte, ChunkSize)
	var out []byte
	return readChunks(r, chunk, func(p []byte) error {
		out = AppendEscaped(out[:0], string(p))
		return a.Append(out)
	})
}

func streamBinary(a Appender, r io.Reader) error {
	chunk := make([]byte, ChunkSize)
	out := make([]byte, 0, len(HexPrefix)+2*ChunkSize)
	first := true
	err := readChunks(r, chunk, func(p []byte) error {
		out = out[:0]
		if first {
			out = append(out, HexPrefix...)
			first = false
		}
		return a.Append(AppendHex(out, p))
	})
	if err == nil && first {
		return a.AppendString(HexPrefix)
	}
	return err
}

// readChunks calls fn with each non-empty read from r until EOF. Closers
// are closed once the stream is consumed.
func readChunks(r io.Reader, chunk []byte, fn func([]byte) error) error {
	if c, ok := r.(io.Closer); ok {
		defer c.Close()
	}
	for {
		n, err := io.ReadFull(r, chunk)
		if n > 0 {
			if werr := fn(chunk[:n]); werr != nil {
				return werr
			}
		}
		switch err {
		case nil:
		case io.EOF, io.ErrUnexpectedEOF:
			return nil
		default:
			return errors.Wrap(err, "read large object")
		}
	}
}
