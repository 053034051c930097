package pipeline

import (
	"sort"
	"sync"

	"github.com/benbjohnson/clock"

	"go-pgcopy-export/internal/model"
)

// maxTrackedErrors caps the error details kept per job.
const maxTrackedErrors = 100

type trackedJob struct {
	job      *Job
	snapshot model.JobSnapshot
}

// RunTracker keeps the live state of every job of a run for the status
// API. It implements Observer.
type RunTracker struct {
	RunID string

	mu    sync.RWMutex
	clock clock.Clock
	jobs  map[string]*trackedJob
	order []string
}

// NewRunTracker creates a new run tracker
func NewRunTracker(runID string, clk clock.Clock) *RunTracker {
	if clk == nil {
		clk = clock.New()
	}
	return &RunTracker{
		RunID: runID,
		clock: clk,
		jobs:  make(map[string]*trackedJob),
	}
}

// Track registers j. Its row counters are read live on every snapshot.
func (rt *RunTracker) Track(j *Job) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	spec := j.Spec()
	if _, ok := rt.jobs[spec.ID]; !ok {
		rt.order = append(rt.order, spec.ID)
	}
	rt.jobs[spec.ID] = &trackedJob{
		job: j,
		snapshot: model.JobSnapshot{
			JobID:  spec.ID,
			Target: spec.Target,
			State:  model.StateInit,
			Errors: make([]model.ErrorDetail, 0),
		},
	}
}

// JobStateChanged implements Observer.
func (rt *RunTracker) JobStateChanged(spec model.JobSpec, state model.JobState, err error) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	tj, ok := rt.jobs[spec.ID]
	if !ok {
		return
	}
	now := rt.clock.Now()
	s := &tj.snapshot
	s.State = state
	if state == model.StateInit && s.StartTime.IsZero() {
		s.StartTime = now
	}
	if state.Terminal() {
		s.EndTime = &now
	}
	if err != nil {
		rt.appendError(s, model.ErrorDetail{
			Timestamp: now,
			Kind:      string(KindOf(err)),
			Message:   err.Error(),
		})
	}
}

// RowFailed implements Observer.
func (rt *RunTracker) RowFailed(spec model.JobSpec, seq int64, err error) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	tj, ok := rt.jobs[spec.ID]
	if !ok {
		return
	}
	rt.appendError(&tj.snapshot, model.ErrorDetail{
		Timestamp: rt.clock.Now(),
		Kind:      string(KindOf(err)),
		Message:   err.Error(),
		RowSeq:    seq,
	})
}

func (rt *RunTracker) appendError(s *model.JobSnapshot, d model.ErrorDetail) {
	if len(s.Errors) < maxTrackedErrors {
		s.Errors = append(s.Errors, d)
	}
}

// Snapshot returns a copy of one job's current state.
func (rt *RunTracker) Snapshot(jobID string) (model.JobSnapshot, bool) {
	rt.mu.RLock()
	defer rt.mu.RUnlock()

	tj, ok := rt.jobs[jobID]
	if !ok {
		return model.JobSnapshot{}, false
	}
	return rt.snapshotLocked(tj), true
}

// Snapshots returns copies of every job in registration order.
func (rt *RunTracker) Snapshots() []model.JobSnapshot {
	rt.mu.RLock()
	defer rt.mu.RUnlock()

	out := make([]model.JobSnapshot, 0, len(rt.order))
	for _, id := range rt.order {
		out = append(out, rt.snapshotLocked(rt.jobs[id]))
	}
	return out
}

// Active returns the jobs that have started and not yet finished, ordered
// by ID.
func (rt *RunTracker) Active() []*Job {
	rt.mu.RLock()
	defer rt.mu.RUnlock()

	var out []*Job
	for _, tj := range rt.jobs {
		s := tj.snapshot
		if !s.StartTime.IsZero() && !s.State.Terminal() {
			out = append(out, tj.job)
		}
	}
	sort.Slice(out, func(i, k int) bool { return out[i].Spec().ID < out[k].Spec().ID })
	return out
}

func (rt *RunTracker) snapshotLocked(tj *trackedJob) model.JobSnapshot {
	s := tj.snapshot
	s.Errors = append([]model.ErrorDetail(nil), s.Errors...)
	s.RowsDispatched = tj.job.Rows()
	s.RowErrors = tj.job.RowErrors()

	switch {
	case s.StartTime.IsZero():
		s.Duration = 0
	case s.EndTime != nil:
		s.Duration = s.EndTime.Sub(s.StartTime)
	default:
		s.Duration = rt.clock.Since(s.StartTime)
	}
	if s.Duration > 0 {
		s.RowsPerSecond = float64(s.RowsDispatched) / s.Duration.Seconds()
	}
	if s.EndTime != nil {
		end := *s.EndTime
		s.EndTime = &end
	}
	return s
}
