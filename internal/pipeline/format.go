package pipeline

import (
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"go-pgcopy-export/internal/source"
	"go-pgcopy-export/internal/value"
)

// Row is one source row. Seq is its position in dispatch order and is
// only used for diagnostics; rows may reach the output in any order.
type Row struct {
	Seq    int64
	Values []any
}

// task is one unit of work for the worker pool. A sentinel carries no row.
type task struct {
	row      Row
	sentinel bool
	handle   *Handle
}

// formatter turns rows of one job into COPY text lines.
type formatter struct {
	target  string
	columns []source.Column
	sink    *Sink
	policy  FlushPolicy
	metrics *Metrics
	log     logrus.FieldLogger

	rowErrors *atomic.Int64
	onError   func(seq int64, err error)
}

// run executes t and always resolves its handle.
func (f *formatter) run(t task) {
	if t.sentinel {
		t.handle.resolve(OutcomeSentinel)
		return
	}
	defer t.handle.resolve(OutcomeRow)

	if err := f.format(t.row); err != nil {
		f.rowErrors.Add(1)
		kind := KindOf(err)
		f.metrics.rowFailed(f.target, kind)
		f.log.WithFields(logrus.Fields{
			"row":  t.row.Seq,
			"kind": kind,
		}).WithError(err).Warn("row output is missing or incomplete")
		if f.onError != nil {
			f.onError(t.row.Seq, err)
		}
	}
}

func (f *formatter) format(row Row) (err error) {
	w := newRowWriter(f.sink, f.policy, f.metrics)
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("format row %d: panic: %v", row.Seq, r)
		}
		if err != nil {
			w.abort()
		}
		w.release()
	}()

	if len(row.Values) != len(f.columns) {
		return errors.Errorf("row %d has %d values for %d columns", row.Seq, len(row.Values), len(f.columns))
	}
	for i, raw := range row.Values {
		col := f.columns[i]
		if i > 0 {
			if err := w.appendByte('\t'); err != nil {
				return err
			}
		}
		v, err := value.Classify(raw, col.DatabaseType)
		if err != nil {
			return newError(KindUnsupportedType, "classify column "+col.Name, err)
		}
		if err := value.Serialize(w, v); err != nil {
			if KindOf(err) != "" {
				return err
			}
			return newError(KindSourceRead, "serialize column "+col.Name, err)
		}
	}
	if err := w.appendByte('\n'); err != nil {
		return err
	}
	return w.finish()
}
