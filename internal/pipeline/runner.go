package pipeline

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"go-pgcopy-export/internal/model"
	"go-pgcopy-export/internal/source"
	"go-pgcopy-export/pkg/utils"
)

// Default run settings.
const (
	DefaultSessions         = 7
	DefaultJobStagger       = 250 * time.Millisecond
	DefaultProgressInterval = time.Second
)

// Ledger records runs and jobs. internal/store provides the SQLite one.
type Ledger interface {
	SaveRun(runID string, spec model.RunSpec, startedAt time.Time) error
	SaveJob(runID string, spec model.JobSpec) error
	UpdateJobStatus(jobID string, state model.JobState) error
	SaveJobError(jobID string, err error) error
	SaveJobResult(res model.JobResult) error
	FinishRun(summary model.RunSummary) error
}

// RunnerOptions wire a Runner to its collaborators. Everything is
// optional.
type RunnerOptions struct {
	RunID    string
	Clock    clock.Clock
	Log      logrus.FieldLogger
	Metrics  *Metrics
	Tracker  *RunTracker
	Ledger   Ledger
	Progress io.Writer // console progress, nil disables
}

// Runner executes the jobs of a run, at most Sessions at a time.
type Runner struct {
	spec    model.RunSpec
	opener  source.Opener
	opts    RunnerOptions
	log     logrus.FieldLogger
	tracker *RunTracker
}

// NewRunner creates a runner for spec.
func NewRunner(spec model.RunSpec, opener source.Opener, opts RunnerOptions) *Runner {
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.Log == nil {
		opts.Log = logrus.StandardLogger()
	}
	if opts.Tracker == nil {
		opts.Tracker = NewRunTracker(opts.RunID, opts.Clock)
	}
	if spec.Sessions <= 0 {
		spec.Sessions = DefaultSessions
	}
	return &Runner{
		spec:    spec,
		opener:  opener,
		opts:    opts,
		log:     opts.Log.WithField("run_id", opts.RunID),
		tracker: opts.Tracker,
	}
}

// RunID returns the identifier of this run.
func (r *Runner) RunID() string { return r.opts.RunID }

// Tracker returns the live view of the run's jobs.
func (r *Runner) Tracker() *RunTracker { return r.tracker }

// Run executes every job and returns once all of them finished or failed.
// A failed job never stops the others.
func (r *Runner) Run(ctx context.Context) model.RunSummary {
	clk := r.opts.Clock
	start := clk.Now()

	observers := []Observer{r.tracker}
	if r.opts.Ledger != nil {
		if err := r.opts.Ledger.SaveRun(r.opts.RunID, r.spec, start); err != nil {
			r.log.WithError(err).Warn("recording run in ledger")
		}
		observers = append(observers, newLedgerObserver(r.opts.Ledger, r.log))
	}

	jobs := make([]*Job, len(r.spec.Jobs))
	for i, js := range r.spec.Jobs {
		jobs[i] = NewJob(js, r.opener, JobOptions{
			Workers:   r.spec.Workers,
			QueueSize: r.spec.QueueSize,
			Flush: FlushPolicy{
				SoftLimit: r.spec.Flush.SoftLimit,
				HardLimit: r.spec.Flush.HardLimit,
				Wait:      r.spec.Flush.Wait,
			},
			Clock:     clk,
			Log:       r.log,
			Metrics:   r.opts.Metrics,
			Observers: observers,
		})
		r.tracker.Track(jobs[i])
		if r.opts.Ledger != nil {
			if err := r.opts.Ledger.SaveJob(r.opts.RunID, js); err != nil {
				r.log.WithError(err).WithField("job_id", js.ID).Warn("recording job in ledger")
			}
		}
	}
	r.log.WithFields(logrus.Fields{
		"jobs":     len(jobs),
		"sessions": r.spec.Sessions,
	}).Info("run started")

	var reporterDone chan struct{}
	stop := make(chan struct{})
	if r.opts.Progress != nil && r.spec.ProgressInterval > 0 {
		reporterDone = make(chan struct{})
		rep := newProgressReporter(r.opts.Progress, r.spec.ProgressInterval, clk, jobs)
		go rep.run(stop, reporterDone)
	}

	results := make([]model.JobResult, len(jobs))
	sem := make(chan struct{}, r.spec.Sessions)
	var wg sync.WaitGroup
	for i, j := range jobs {
		if i > 0 && r.spec.JobStagger > 0 {
			clk.Sleep(r.spec.JobStagger)
		}
		sem <- struct{}{}
		wg.Add(1)
		go func(i int, j *Job) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = j.Run(ctx)
			if r.opts.Ledger != nil {
				if err := r.opts.Ledger.SaveJobResult(results[i]); err != nil {
					r.log.WithError(err).WithField("job_id", j.Spec().ID).Warn("recording job result in ledger")
				}
			}
		}(i, j)
	}
	wg.Wait()

	close(stop)
	if reporterDone != nil {
		<-reporterDone
		fmt.Fprintln(r.opts.Progress)
	}

	summary := model.RunSummary{RunID: r.opts.RunID}
	for _, res := range results {
		summary.Add(res)
	}
	summary.Elapsed = clk.Since(start)

	if r.opts.Ledger != nil {
		if err := r.opts.Ledger.FinishRun(summary); err != nil {
			r.log.WithError(err).Warn("recording run summary in ledger")
		}
	}
	r.log.WithFields(logrus.Fields{
		"succeeded":  summary.Succeeded,
		"failed":     summary.Failed,
		"rows":       summary.RowsDispatched,
		"row_errors": summary.RowErrors,
		"elapsed":    utils.FormatElapsed(summary.Elapsed),
	}).Info("run complete")
	return summary
}

// ledgerObserver forwards job events to a Ledger. Row failures beyond
// maxTrackedErrors per job are only counted, not recorded.
type ledgerObserver struct {
	ledger Ledger
	log    logrus.FieldLogger

	mu        sync.Mutex
	rowErrors map[string]int
}

func newLedgerObserver(l Ledger, log logrus.FieldLogger) *ledgerObserver {
	return &ledgerObserver{ledger: l, log: log, rowErrors: make(map[string]int)}
}

func (o *ledgerObserver) JobStateChanged(spec model.JobSpec, state model.JobState, err error) {
	if lerr := o.ledger.UpdateJobStatus(spec.ID, state); lerr != nil {
		o.log.WithError(lerr).WithField("job_id", spec.ID).Warn("recording job state in ledger")
	}
	if err != nil {
		if lerr := o.ledger.SaveJobError(spec.ID, err); lerr != nil {
			o.log.WithError(lerr).WithField("job_id", spec.ID).Warn("recording job error in ledger")
		}
	}
}

func (o *ledgerObserver) RowFailed(spec model.JobSpec, seq int64, err error) {
	o.mu.Lock()
	o.rowErrors[spec.ID]++
	n := o.rowErrors[spec.ID]
	o.mu.Unlock()
	if n > maxTrackedErrors {
		return
	}
	if lerr := o.ledger.SaveJobError(spec.ID, errors.Wrapf(err, "row %d", seq)); lerr != nil {
		o.log.WithError(lerr).WithField("job_id", spec.ID).Warn("recording row error in ledger")
	}
}
