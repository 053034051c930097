package pipeline

import (
	"io"
	"time"

	"github.com/benbjohnson/clock"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// progressReporter prints, once per interval, how many rows all jobs of
// the run dispatched since the previous tick. It reads the per-job
// counters of the jobs it was given.
type progressReporter struct {
	out      io.Writer
	interval time.Duration
	clock    clock.Clock
	jobs     []*Job
	printer  *message.Printer

	last int64
}

func newProgressReporter(out io.Writer, interval time.Duration, clk clock.Clock, jobs []*Job) *progressReporter {
	return &progressReporter{
		out:      out,
		interval: interval,
		clock:    clk,
		jobs:     jobs,
		printer:  message.NewPrinter(language.English),
	}
}

func (p *progressReporter) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	t := p.clock.Ticker(p.interval)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			p.tick()
		}
	}
}

func (p *progressReporter) tick() {
	var total int64
	for _, j := range p.jobs {
		total += j.Rows()
	}
	p.printer.Fprintf(p.out, "%12d\r", total-p.last)
	p.last = total
}
