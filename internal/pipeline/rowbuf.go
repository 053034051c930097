package pipeline

const flushSkipped = "skipped"

// rowWriter is a task's private buffer for one row. It implements
// value.Appender and applies the flush policy after every append. Once it
// takes the sink lock it keeps it until the row is finished, so the parts
// of a large row reach the stream contiguously.
type rowWriter struct {
	sink    *Sink
	policy  FlushPolicy
	metrics *Metrics

	buf     []byte
	locked  bool
	partial bool // some of this row already reached the stream
}

func newRowWriter(sink *Sink, policy FlushPolicy, m *Metrics) *rowWriter {
	return &rowWriter{
		sink:    sink,
		policy:  policy,
		metrics: m,
		buf:     make([]byte, 0, 1024),
	}
}

func (w *rowWriter) Append(p []byte) error {
	w.buf = append(w.buf, p...)
	return w.check()
}

func (w *rowWriter) AppendString(s string) error {
	w.buf = append(w.buf, s...)
	return w.check()
}

func (w *rowWriter) appendByte(c byte) error {
	w.buf = append(w.buf, c)
	return w.check()
}

func (w *rowWriter) pending() int { return len(w.buf) }

func (w *rowWriter) check() error {
	mode := w.policy.Mode(len(w.buf))
	switch mode {
	case FlushNone:
		return nil
	case FlushBestEffort:
		if !w.locked {
			if !w.sink.lock.TryLockFor(w.policy.Wait) {
				w.metrics.flushed(flushSkipped)
				return nil
			}
			w.locked = true
		}
	case FlushMandatory:
		w.acquire()
	}
	w.metrics.flushed(mode.String())
	return w.flush()
}

// finish pushes whatever is left of the row into the stream.
func (w *rowWriter) finish() error {
	w.acquire()
	return w.flush()
}

// abort drops the unflushed part of the row. If an earlier part already
// reached the stream the row is terminated there, so the next row starts
// on a line of its own.
func (w *rowWriter) abort() {
	w.buf = w.buf[:0]
	if !w.partial {
		return
	}
	w.acquire()
	w.sink.writeLocked([]byte{'\n'}) //nolint:errcheck
}

func (w *rowWriter) release() {
	if w.locked {
		w.locked = false
		w.sink.lock.Unlock()
	}
}

func (w *rowWriter) acquire() {
	if !w.locked {
		w.sink.lock.Lock()
		w.locked = true
	}
}

func (w *rowWriter) flush() error {
	if len(w.buf) == 0 {
		return nil
	}
	n, err := w.sink.writeLocked(w.buf)
	if n > 0 {
		w.partial = true
	}
	w.buf = w.buf[:0]
	return err
}
