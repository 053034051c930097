package pipeline

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertNotDone(t *testing.T, tr *CompletionTracker) {
	t.Helper()
	select {
	case <-tr.Done():
		t.Fatal("tracker finished early")
	case <-time.After(20 * time.Millisecond):
	}
}

func TestCompletionTrackerStopsAfterAllRows(t *testing.T) {
	tr := NewCompletionTracker(10)
	tr.Start()

	rows := []*Handle{newHandle(), newHandle(), newHandle()}
	for _, h := range rows {
		tr.Put(h)
	}
	sentinel := newHandle()
	tr.Put(sentinel)

	// the sentinel resolves first, the watcher must still wait for the rows
	sentinel.resolve(OutcomeSentinel)
	assertNotDone(t, tr)

	rows[1].resolve(OutcomeRow)
	rows[2].resolve(OutcomeRow)
	assertNotDone(t, tr)

	rows[0].resolve(OutcomeRow)
	select {
	case <-tr.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("tracker did not finish")
	}
	assert.EqualValues(t, 3, tr.Drained())

	// the watcher is gone: nothing after the sentinel is consumed
	tr.Put(newHandle())
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, 1, tr.Pending())
}

func TestHandleResolvesOnce(t *testing.T) {
	h := newHandle()
	h.resolve(OutcomeSentinel)
	h.resolve(OutcomeRow)
	assert.Equal(t, OutcomeSentinel, h.Wait())
}

func TestCompletionTrackerDefaultsCapacity(t *testing.T) {
	tr := NewCompletionTracker(0)
	assert.Equal(t, DefaultQueueSize, cap(tr.queue))
}

func TestWorkerPoolShutdownWaitsForTasks(t *testing.T) {
	const workers = 3
	pool := NewWorkerPool(workers, 10)

	var running, peak, finished atomic.Int64
	var mu sync.Mutex
	for i := 0; i < 30; i++ {
		pool.Submit(func() {
			n := running.Add(1)
			mu.Lock()
			if n > peak.Load() {
				peak.Store(n)
			}
			mu.Unlock()
			time.Sleep(time.Millisecond)
			running.Add(-1)
			finished.Add(1)
		})
	}
	pool.Shutdown()

	assert.EqualValues(t, 30, finished.Load())
	assert.LessOrEqual(t, peak.Load(), int64(workers))

	// a second shutdown is harmless
	pool.Shutdown()
}

func TestRowProducerBackpressure(t *testing.T) {
	rows := make([][]any, 5)
	for i := range rows {
		rows[i] = []any{int64(i)}
	}
	tr := NewCompletionTracker(2)
	var dispatched atomic.Int64
	p := &RowProducer{
		cursor:  &fakeCursor{rows: rows},
		tracker: tr,
		pool:    syncPool{},
		run: func(t task) {
			if t.sentinel {
				t.handle.resolve(OutcomeSentinel)
				return
			}
			t.handle.resolve(OutcomeRow)
		},
		dispatched: &dispatched,
	}

	done := make(chan struct{})
	var n int64
	var err error
	go func() {
		defer close(done)
		n, err = p.Run()
	}()

	// without a watcher the queue fills up and the producer stalls
	require.Eventually(t, func() bool { return dispatched.Load() == 2 }, 5*time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.EqualValues(t, 2, dispatched.Load())
	select {
	case <-done:
		t.Fatal("producer did not block on a full queue")
	default:
	}

	tr.Start()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("producer did not resume")
	}
	tr.Wait()
	require.NoError(t, err)
	assert.EqualValues(t, 5, n)
	assert.EqualValues(t, 5, tr.Drained())
}

func TestRowProducerSentinelAfterCursorError(t *testing.T) {
	tr := NewCompletionTracker(10)
	tr.Start()
	var dispatched atomic.Int64
	var sentinels atomic.Int64
	p := &RowProducer{
		cursor:  &fakeCursor{rows: [][]any{{1}, {2}}, err: assert.AnError},
		tracker: tr,
		pool:    syncPool{},
		run: func(t task) {
			if t.sentinel {
				sentinels.Add(1)
				t.handle.resolve(OutcomeSentinel)
				return
			}
			t.handle.resolve(OutcomeRow)
		},
		dispatched: &dispatched,
	}

	n, err := p.Run()
	require.Error(t, err)
	assert.Equal(t, KindConnection, KindOf(err))
	assert.EqualValues(t, 2, n)

	select {
	case <-tr.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("watcher never saw the sentinel")
	}
	assert.EqualValues(t, 1, sentinels.Load())
	assert.EqualValues(t, 2, tr.Drained())
}
