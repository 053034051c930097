package pipeline

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"go-pgcopy-export/internal/model"
	"go-pgcopy-export/internal/source"
)

// fakeOpener hands out fakeConns keyed by SourceSpec.Database.
type fakeOpener struct {
	conns map[string]*fakeConn
}

func (o *fakeOpener) Open(_ context.Context, spec model.SourceSpec) (source.Conn, error) {
	c, ok := o.conns[spec.Database]
	if !ok {
		return nil, errors.Errorf("no such database %q", spec.Database)
	}
	return c, nil
}

type fakeConn struct {
	cols       []source.Column
	rows       [][]any
	sessionErr error
	queryErr   error
	cursorErr  error // returned by Err once the rows are exhausted

	mu     sync.Mutex
	closed bool
}

func (c *fakeConn) ApplySession(context.Context) error { return c.sessionErr }

func (c *fakeConn) Query(context.Context, string) (source.Cursor, error) {
	if c.queryErr != nil {
		return nil, c.queryErr
	}
	return &fakeCursor{cols: c.cols, rows: c.rows, err: c.cursorErr}, nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

type fakeCursor struct {
	cols []source.Column
	rows [][]any
	i    int
	err  error
}

func (c *fakeCursor) Columns() []source.Column { return c.cols }

func (c *fakeCursor) Next() bool {
	if c.i >= len(c.rows) {
		return false
	}
	c.i++
	return true
}

func (c *fakeCursor) Values() ([]any, error) {
	return append([]any(nil), c.rows[c.i-1]...), nil
}

func (c *fakeCursor) Err() error {
	if c.i >= len(c.rows) {
		return c.err
	}
	return nil
}

func (c *fakeCursor) Close() error { return nil }

// syncPool runs every task on the submitting goroutine.
type syncPool struct{}

func (syncPool) Submit(task func()) { task() }

// fakeLock records how the row writer uses the sink lock.
type fakeLock struct {
	refuse  bool
	held    bool
	locks   int
	tries   int
	unlocks int
}

func (l *fakeLock) Lock() {
	l.locks++
	l.held = true
}

func (l *fakeLock) Unlock() {
	l.unlocks++
	l.held = false
}

func (l *fakeLock) TryLockFor(time.Duration) bool {
	l.tries++
	if l.refuse {
		return false
	}
	l.held = true
	return true
}

// gunzip returns the decompressed content of the file at path.
func gunzip(t *testing.T, r io.Reader) string {
	t.Helper()
	zr, err := gzip.NewReader(r)
	require.NoError(t, err)
	defer zr.Close()
	b, err := io.ReadAll(zr)
	require.NoError(t, err)
	return string(b)
}

// splitOutput separates an output script into its skeleton (header and
// trailer) and its row lines.
func splitOutput(t *testing.T, out string) (skeleton string, rows []string) {
	t.Helper()
	const copyEnd = " FROM stdin;\n"
	i := strings.Index(out, copyEnd)
	require.GreaterOrEqual(t, i, 0, "no COPY statement in output")
	i += len(copyEnd)

	j := strings.LastIndex(out, "\\.\n")
	require.GreaterOrEqual(t, j, i, "no terminator in output")

	payload := out[i:j]
	if payload != "" {
		require.True(t, strings.HasSuffix(payload, "\n"), "payload does not end with a newline")
		rows = strings.Split(strings.TrimSuffix(payload, "\n"), "\n")
	}
	return out[:i] + out[j:], rows
}
