// Package schedule decides when buffered entries are due for summarization.
package schedule

import "time"

// Trigger is the outcome of one evaluation.
type Trigger int

const (
	None Trigger = iota
	Size
	Time
	Explicit
)

func (t Trigger) String() string {
	switch t {
	case Size:
		return "size"
	case Time:
		return "time"
	case Explicit:
		return "explicit"
	default:
		return "none"
	}
}

// Scheduler evaluates the size, time and explicit triggers. A BatchSize of
// zero disables the size trigger; a non-positive Interval disables the time
// trigger.
type Scheduler struct {
	BatchSize int
	Interval  time.Duration

	now  func() time.Time
	last time.Time
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// New returns a Scheduler whose time-trigger clock starts now.
func New(batchSize int, interval time.Duration, opts ...Option) *Scheduler {
	s := &Scheduler{BatchSize: batchSize, Interval: interval, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	s.last = s.now()
	return s
}

// Evaluate returns the single trigger that fires for a buffer of the given
// length. An explicit request wins, then size, then time. An empty buffer
// never fires on time.
func (s *Scheduler) Evaluate(buffered int, explicit bool) Trigger {
	switch {
	case explicit:
		return Explicit
	case s.BatchSize > 0 && buffered >= s.BatchSize:
		return Size
	case s.Interval > 0 && buffered > 0 && s.now().Sub(s.last) >= s.Interval:
		return Time
	}
	return None
}

// Take returns how many buffered entries a trigger consumes: a size trigger
// takes exactly one batch, the others drain everything.
func (s *Scheduler) Take(t Trigger, buffered int) int {
	switch t {
	case None:
		return 0
	case Size:
		if s.BatchSize < buffered {
			return s.BatchSize
		}
	}
	return buffered
}

// Fired restarts the time-trigger clock.
func (s *Scheduler) Fired() {
	s.last = s.now()
}
