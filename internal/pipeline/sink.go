package pipeline

import (
	"bufio"
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
)

const sinkBufferSize = 64 * 1024

// locker is the sink lock as the row writers see it.
type locker interface {
	Lock()
	Unlock()
	TryLockFor(d time.Duration) bool
}

// Sink is the one compressed output stream of a job. Every write to the
// stream happens with the lock held.
type Sink struct {
	lock locker

	text *bufio.Writer // accumulates text in front of the compressor
	gz   *gzip.Writer
	raw  *bufio.Writer // batches compressed output in front of the file
	dst  io.Writer

	target  string
	metrics *Metrics
	written atomic.Int64
	closed  bool
}

// NewSink wraps w in buffered gzip compression. If w is an io.Closer it is
// closed with the sink.
func NewSink(w io.Writer, clk clock.Clock) *Sink {
	raw := bufio.NewWriterSize(w, sinkBufferSize)
	gz := gzip.NewWriter(raw)
	return &Sink{
		lock: newSinkLock(clk),
		text: bufio.NewWriterSize(gz, sinkBufferSize),
		gz:   gz,
		raw:  raw,
		dst:  w,
	}
}

// CreateSink creates (or truncates) the file at path and returns a sink
// writing into it.
func CreateSink(path string, clk clock.Clock) (*Sink, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, errors.Wrap(err, "create output file")
	}
	return NewSink(f, clk), nil
}

// instrument attaches byte counting to target's series.
func (s *Sink) instrument(target string, m *Metrics) {
	s.target = target
	s.metrics = m
}

// writeLocked writes p into the stream. The caller holds the lock.
func (s *Sink) writeLocked(p []byte) (int, error) {
	n, err := s.text.Write(p)
	s.written.Add(int64(n))
	s.metrics.wrote(s.target, n)
	if err != nil {
		return n, newError(KindSinkWrite, "write output", err)
	}
	return n, nil
}

// WriteString writes s under the lock.
func (s *Sink) WriteString(str string) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	n, err := s.text.WriteString(str)
	s.written.Add(int64(n))
	s.metrics.wrote(s.target, n)
	if err != nil {
		return newError(KindSinkWrite, "write output", err)
	}
	return nil
}

// BytesWritten returns the uncompressed byte count so far.
func (s *Sink) BytesWritten() int64 {
	return s.written.Load()
}

// Close flushes every buffer, finishes the gzip stream and closes the
// underlying writer. Calling Close more than once is a no-op.
func (s *Sink) Close() error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	var err error
	if ferr := s.text.Flush(); ferr != nil {
		err = errors.Wrap(ferr, "flush text buffer")
	}
	if cerr := s.gz.Close(); cerr != nil && err == nil {
		err = errors.Wrap(cerr, "finish gzip stream")
	}
	if ferr := s.raw.Flush(); ferr != nil && err == nil {
		err = errors.Wrap(ferr, "flush output buffer")
	}
	if c, ok := s.dst.(io.Closer); ok {
		if cerr := c.Close(); cerr != nil && err == nil {
			err = errors.Wrap(cerr, "close output file")
		}
	}
	return err
}
