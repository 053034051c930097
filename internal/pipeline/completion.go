package pipeline

import (
	"sync"
	"sync/atomic"
)

// DefaultQueueSize is the capacity of the completion queue, and therefore
// the maximum number of rows in flight per job.
const DefaultQueueSize = 25000

// Outcome is the resolution value of a Handle.
type Outcome uint8

const (
	OutcomeRow Outcome = iota + 1
	OutcomeSentinel
)

// Handle is the eventual outcome of one dispatched task.
type Handle struct {
	once    sync.Once
	done    chan struct{}
	outcome Outcome
}

func newHandle() *Handle {
	return &Handle{done: make(chan struct{})}
}

// resolve sets the outcome. Only the first call has an effect.
func (h *Handle) resolve(o Outcome) {
	h.once.Do(func() {
		h.outcome = o
		close(h.done)
	})
}

// Wait blocks until h is resolved.
func (h *Handle) Wait() Outcome {
	<-h.done
	return h.outcome
}

// CompletionTracker holds the handles of a job in dispatch order. Its
// watcher consumes them one by one and stops at the sentinel, which is
// dispatched after every row, so the job is drained when the watcher
// stops.
type CompletionTracker struct {
	queue   chan *Handle
	done    chan struct{}
	start   sync.Once
	drained atomic.Int64
}

// NewCompletionTracker returns a tracker whose queue holds capacity
// handles.
func NewCompletionTracker(capacity int) *CompletionTracker {
	if capacity <= 0 {
		capacity = DefaultQueueSize
	}
	return &CompletionTracker{
		queue: make(chan *Handle, capacity),
		done:  make(chan struct{}),
	}
}

// Put appends h, blocking while the queue is full.
func (t *CompletionTracker) Put(h *Handle) {
	t.queue <- h
}

// Start launches the watcher.
func (t *CompletionTracker) Start() {
	t.start.Do(func() {
		go t.watch()
	})
}

func (t *CompletionTracker) watch() {
	defer close(t.done)
	for h := range t.queue {
		if h.Wait() == OutcomeSentinel {
			return
		}
		t.drained.Add(1)
	}
}

// Done is closed once the watcher has seen the sentinel.
func (t *CompletionTracker) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the watcher has seen the sentinel.
func (t *CompletionTracker) Wait() {
	<-t.done
}

// Drained returns the number of row handles consumed so far.
func (t *CompletionTracker) Drained() int64 {
	return t.drained.Load()
}

// Pending returns the number of handles waiting in the queue.
func (t *CompletionTracker) Pending() int {
	return len(t.queue)
}
