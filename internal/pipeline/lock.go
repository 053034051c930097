package pipeline

import (
	"time"

	"github.com/benbjohnson/clock"
)

// sinkLock is a mutex that also supports a bounded wait. The timed wait
// runs on clk so tests can drive it.
type sinkLock struct {
	ch  chan struct{}
	clk clock.Clock
}

func newSinkLock(clk clock.Clock) *sinkLock {
	if clk == nil {
		clk = clock.New()
	}
	return &sinkLock{ch: make(chan struct{}, 1), clk: clk}
}

func (l *sinkLock) Lock() {
	l.ch <- struct{}{}
}

func (l *sinkLock) Unlock() {
	select {
	case <-l.ch:
	default:
		panic("pipeline: unlock of unlocked sink")
	}
}

// TryLock acquires the lock if it is free right now.
func (l *sinkLock) TryLock() bool {
	select {
	case l.ch <- struct{}{}:
		return true
	default:
		return false
	}
}

// TryLockFor acquires the lock if it is free now or becomes free within d.
func (l *sinkLock) TryLockFor(d time.Duration) bool {
	if l.TryLock() {
		return true
	}
	if d <= 0 {
		return false
	}
	t := l.clk.Timer(d)
	defer t.Stop()
	select {
	case l.ch <- struct{}{}:
		return true
	case <-t.C:
		return false
	}
}
