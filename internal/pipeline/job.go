package pipeline

import (
	"context"
	"os"
	"sync/atomic"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"go-pgcopy-export/internal/model"
	"go-pgcopy-export/internal/source"
	"go-pgcopy-export/pkg/utils"
)

// Observer is told about a job's progress. Implementations must be safe
// for concurrent use.
type Observer interface {
	JobStateChanged(spec model.JobSpec, state model.JobState, err error)
	RowFailed(spec model.JobSpec, seq int64, err error)
}

// JobOptions tune one job. Zero values pick the defaults.
type JobOptions struct {
	Workers   int
	QueueSize int
	Flush     FlushPolicy
	Clock     clock.Clock
	Log       logrus.FieldLogger
	Metrics   *Metrics
	Observers []Observer
}

// Job exports one table end to end.
type Job struct {
	spec   model.JobSpec
	opener source.Opener
	opts   JobOptions
	log    logrus.FieldLogger

	rows      atomic.Int64
	rowErrors atomic.Int64
	state     atomic.Value // model.JobState
}

// NewJob prepares the export of spec. Nothing happens until Run.
func NewJob(spec model.JobSpec, opener source.Opener, opts JobOptions) *Job {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}
	if opts.Flush == (FlushPolicy{}) {
		opts.Flush = DefaultFlushPolicy()
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.Log == nil {
		opts.Log = logrus.StandardLogger()
	}
	j := &Job{
		spec:   spec,
		opener: opener,
		opts:   opts,
		log: opts.Log.WithFields(logrus.Fields{
			"job_id": spec.ID,
			"target": spec.Target,
		}),
	}
	j.state.Store(model.StateInit)
	return j
}

// Spec returns the job's specification.
func (j *Job) Spec() model.JobSpec { return j.spec }

// Rows returns the rows dispatched so far.
func (j *Job) Rows() int64 { return j.rows.Load() }

// RowErrors returns the rows whose output is missing or incomplete.
func (j *Job) RowErrors() int64 { return j.rowErrors.Load() }

// State returns the current lifecycle state.
func (j *Job) State() model.JobState { return j.state.Load().(model.JobState) }

func (j *Job) setState(s model.JobState, err error) {
	j.state.Store(s)
	j.log.WithField("state", s).Debug("job state changed")
	for _, o := range j.opts.Observers {
		o.JobStateChanged(j.spec, s, err)
	}
}

// Run performs the export. Failures are reported in the result, never
// returned: a failed job leaves its work file behind and does not touch
// the final file.
func (j *Job) Run(ctx context.Context) model.JobResult {
	clk := j.opts.Clock
	start := clk.Now()
	j.opts.Metrics.jobStarted()
	j.setState(model.StateInit, nil)
	j.log.Info("job started")

	res := model.JobResult{JobID: j.spec.ID, Target: j.spec.Target}
	err := j.run(ctx, &res)

	res.Elapsed = clk.Since(start)
	res.RowsDispatched = j.rows.Load()
	res.RowErrors = j.rowErrors.Load()
	res.RowsPerSecond = utils.RowsPerSecond(res.RowsDispatched, res.Elapsed)

	entry := j.log.WithFields(logrus.Fields{
		"rows":            res.RowsDispatched,
		"row_errors":      res.RowErrors,
		"elapsed":         utils.FormatElapsed(res.Elapsed),
		"rows_per_second": res.RowsPerSecond,
	})
	if err != nil {
		res.State = model.StateFailed
		res.Err = err
		j.setState(model.StateFailed, err)
		entry.WithError(err).Errorf("job failed: %+v", err)
	} else {
		res.State = model.StateDone
		j.setState(model.StateDone, nil)
		entry.Info("job finished")
	}
	j.opts.Metrics.jobFinished(res.State, res.Elapsed)
	return res
}

func (j *Job) run(ctx context.Context, res *model.JobResult) error {
	conn, err := j.opener.Open(ctx, j.spec.Source)
	if err != nil {
		return newError(KindConnection, "connect", err)
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			j.log.WithError(cerr).Warn("closing source connection")
		}
	}()
	j.setState(model.StateConnected, nil)

	if err := conn.ApplySession(ctx); err != nil {
		return newError(KindConnection, "apply session", err)
	}
	j.setState(model.StateSessionConfigured, nil)

	workPath := utils.WorkPath(j.spec.OutFile)
	finalPath := utils.FinalPath(j.spec.OutFile)
	if err := utils.EnsureParentDir(workPath); err != nil {
		return newError(KindLifecycle, "prepare output directory", err)
	}
	if err := utils.RemoveIfExists(workPath); err != nil {
		return newError(KindLifecycle, "remove stale work file", err)
	}
	sink, err := CreateSink(workPath, j.opts.Clock)
	if err != nil {
		return newError(KindLifecycle, "open work file", err)
	}
	sink.instrument(j.spec.Target, j.opts.Metrics)
	defer func() {
		res.BytesWritten = sink.BytesWritten()
		// no-op after a successful close
		if cerr := sink.Close(); cerr != nil {
			j.log.WithError(cerr).Warn("closing work file")
		}
	}()

	if err := sink.WriteString(header(j.spec.Target, j.spec.Truncate)); err != nil {
		return newError(KindLifecycle, "write header", err)
	}

	cursor, err := conn.Query(ctx, j.spec.Query)
	if err != nil {
		return newError(KindConnection, "query", err)
	}
	defer cursor.Close()

	if err := sink.WriteString(copyStatement(j.spec.Target, cursor.Columns())); err != nil {
		return newError(KindLifecycle, "write copy statement", err)
	}
	j.setState(model.StateStreaming, nil)

	if err := j.stream(cursor, sink); err != nil {
		return err
	}

	j.setState(model.StateFinalizing, nil)
	if err := sink.WriteString(trailer); err != nil {
		return newError(KindLifecycle, "write trailer", err)
	}
	res.BytesWritten = sink.BytesWritten()
	if err := sink.Close(); err != nil {
		return newError(KindLifecycle, "close work file", err)
	}
	if err := utils.RemoveIfExists(finalPath); err != nil {
		return newError(KindLifecycle, "remove stale output file", err)
	}
	if err := os.Rename(workPath, finalPath); err != nil {
		return newError(KindLifecycle, "publish output file", errors.WithStack(err))
	}
	res.OutputPath = finalPath
	if size, err := utils.GetFileSize(finalPath); err == nil {
		j.log.WithFields(logrus.Fields{
			"path":             finalPath,
			"compressed_bytes": size,
		}).Debug("output published")
	}
	return nil
}

// stream runs the producer against a fresh worker pool and waits until
// every dispatched row is written, whether or not the cursor failed.
func (j *Job) stream(cursor source.Cursor, sink *Sink) error {
	tracker := NewCompletionTracker(j.opts.QueueSize)
	tracker.Start()
	pool := NewWorkerPool(j.opts.Workers, j.opts.QueueSize+j.opts.Workers)

	f := &formatter{
		target:    j.spec.Target,
		columns:   cursor.Columns(),
		sink:      sink,
		policy:    j.opts.Flush,
		metrics:   j.opts.Metrics,
		log:       j.log,
		rowErrors: &j.rowErrors,
		onError: func(seq int64, err error) {
			for _, o := range j.opts.Observers {
				o.RowFailed(j.spec, seq, err)
			}
		},
	}
	p := &RowProducer{
		cursor:     cursor,
		tracker:    tracker,
		pool:       pool,
		run:        f.run,
		dispatched: &j.rows,
		onDispatch: func() { j.opts.Metrics.rowDispatched(j.spec.Target) },
	}

	_, err := p.Run()
	tracker.Wait()
	pool.Shutdown()
	j.log.WithField("drained", tracker.Drained()).Debug("all rows drained")
	return err
}
