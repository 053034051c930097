package pipeline

import (
	"sync/atomic"

	"go-pgcopy-export/internal/source"
)

// submitter is the part of WorkerPool the producer uses.
type submitter interface {
	Submit(task func())
}

// RowProducer reads the cursor on a single goroutine and dispatches one
// task per row. The completion queue bounds the rows in flight: Put
// blocks when it is full.
type RowProducer struct {
	cursor  source.Cursor
	tracker *CompletionTracker
	pool    submitter
	run     func(task)

	dispatched *atomic.Int64
	onDispatch func()
}

// Run dispatches every row and then exactly one sentinel. The sentinel is
// dispatched even when the cursor fails, so the watcher always stops. It
// returns the number of rows dispatched.
func (p *RowProducer) Run() (n int64, err error) {
	defer p.dispatch(task{sentinel: true})

	for p.cursor.Next() {
		vals, err := p.cursor.Values()
		if err != nil {
			return n, newError(KindConnection, "read row", err)
		}
		n++
		p.dispatch(task{row: Row{Seq: n, Values: vals}})
		p.dispatched.Add(1)
		if p.onDispatch != nil {
			p.onDispatch()
		}
	}
	if err := p.cursor.Err(); err != nil {
		return n, newError(KindConnection, "fetch rows", err)
	}
	return n, nil
}

func (p *RowProducer) dispatch(t task) {
	t.handle = newHandle()
	p.tracker.Put(t.handle)
	p.pool.Submit(func() { p.run(t) })
}
