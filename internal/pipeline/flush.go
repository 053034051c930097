package pipeline

import "time"

// Default flush thresholds.
const (
	DefaultSoftLimit = 1 << 20 // 1 MiB
	DefaultHardLimit = 2 << 20 // 2 MiB
	DefaultFlushWait = time.Second
)

// FlushMode is what a row's pending buffer must do after an append.
type FlushMode uint8

const (
	// FlushNone keeps accumulating.
	FlushNone FlushMode = iota
	// FlushBestEffort flushes only if the sink lock is already held, free,
	// or frees up within FlushPolicy.Wait.
	FlushBestEffort
	// FlushMandatory blocks on the sink lock and flushes.
	FlushMandatory
)

func (m FlushMode) String() string {
	switch m {
	case FlushNone:
		return "none"
	case FlushBestEffort:
		return "best_effort"
	case FlushMandatory:
		return "mandatory"
	}
	return "unknown"
}

// FlushPolicy bounds the memory a row may hold before it is pushed into
// the shared output stream.
type FlushPolicy struct {
	SoftLimit int
	HardLimit int
	Wait      time.Duration
}

// DefaultFlushPolicy returns the 1 MiB / 2 MiB / 1 s policy.
func DefaultFlushPolicy() FlushPolicy {
	return FlushPolicy{
		SoftLimit: DefaultSoftLimit,
		HardLimit: DefaultHardLimit,
		Wait:      DefaultFlushWait,
	}
}

// Mode returns the action for a pending buffer of the given size.
func (p FlushPolicy) Mode(pending int) FlushMode {
	switch {
	case pending < p.SoftLimit:
		return FlushNone
	case pending < p.HardLimit:
		return FlushBestEffort
	}
	return FlushMandatory
}
