// Package engine runs the per-session publication loop: tail the session log,
// mirror new entries to every sink, and publish digests when the scheduler
// fires.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/fakeyudi/termtrace/internal/entry"
	"github.com/fakeyudi/termtrace/internal/schedule"
	"github.com/fakeyudi/termtrace/internal/sink"
	"github.com/fakeyudi/termtrace/internal/summarize"
	"github.com/fakeyudi/termtrace/internal/tail"
)

const (
	DefaultTickPeriod  = time.Second
	DefaultStopTimeout = 5 * time.Second
)

var (
	ErrStopTimeout    = errors.New("engine: worker did not stop in time")
	ErrAlreadyStarted = errors.New("engine: already started")
)

// Config holds the per-session settings.
type Config struct {
	LogPath     string
	BatchSize   int           // 0 disables the size trigger
	Interval    time.Duration // 0 disables the time trigger
	TickPeriod  time.Duration
	StopTimeout time.Duration
}

// Stats is a point-in-time view of the worker's counters.
type Stats struct {
	Mirrored  int
	Digests   int
	Dropped   int // digests lost to a failed summarization call
	Malformed int
	Buffered  int
	Backend   summarize.Mode
	Disabled  []string
}

// Engine owns the tailer, buffer, and scheduler of one session. Everything
// except Stats and Stop is touched only by the worker goroutine.
type Engine struct {
	cfg     Config
	backend summarize.Backend
	sinks   []sink.Sink
	tailer  *tail.Tailer
	sched   *schedule.Scheduler
	logger  *slog.Logger

	buffer   []entry.Entry
	explicit bool

	mu    sync.Mutex
	stats Stats

	started  bool
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// Option configures an Engine.
type Option func(*options)

type options struct {
	logger *slog.Logger
	clock  func() time.Time
}

// WithLogger sets the logger for the side channel. Defaults to slog.Default.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithClock replaces time.Now for the scheduler's time trigger.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.clock = now }
}

// New builds an engine. A nil backend means Markdown digests.
func New(cfg Config, backend summarize.Backend, sinks []sink.Sink, opts ...Option) (*Engine, error) {
	if strings.TrimSpace(cfg.LogPath) == "" {
		return nil, errors.New("engine: log path is required")
	}
	if cfg.BatchSize < 0 {
		return nil, fmt.Errorf("engine: batch size must not be negative, got %d", cfg.BatchSize)
	}
	if cfg.TickPeriod <= 0 {
		cfg.TickPeriod = DefaultTickPeriod
	}
	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = DefaultStopTimeout
	}
	if backend == nil {
		backend = summarize.Markdown{}
	}
	o := options{logger: slog.Default(), clock: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	e := &Engine{
		cfg:     cfg,
		backend: backend,
		sinks:   append([]sink.Sink(nil), sinks...),
		sched:   schedule.New(cfg.BatchSize, cfg.Interval, schedule.WithClock(o.clock)),
		logger:  o.logger,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	e.tailer = tail.New(cfg.LogPath, tail.WithMalformedHandler(e.malformed))
	e.stats.Backend = backend.Mode()
	return e, nil
}

// Start launches the worker. It runs until Stop is called or ctx ends.
func (e *Engine) Start(ctx context.Context) error {
	if e.started {
		return ErrAlreadyStarted
	}
	e.started = true
	e.logger.Info("publication engine started",
		"log", e.cfg.LogPath, "batch_size", e.cfg.BatchSize, "interval", e.cfg.Interval,
		"backend", e.backend.Mode(), "sinks", len(e.sinks))
	go e.run(ctx)
	return nil
}

// Stop asks the worker to exit after its current tick and waits up to
// StopTimeout. An in-flight external call is not interrupted.
func (e *Engine) Stop() error {
	e.stopOnce.Do(func() { close(e.stop) })
	if !e.started {
		return nil
	}
	select {
	case <-e.done:
		return nil
	case <-time.After(e.cfg.StopTimeout):
		return ErrStopTimeout
	}
}

// Done is closed when the worker has exited.
func (e *Engine) Done() <-chan struct{} { return e.done }

// Stats returns a snapshot of the counters.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.stats
	s.Disabled = append([]string(nil), e.stats.Disabled...)
	return s
}

func (e *Engine) run(ctx context.Context) {
	defer close(e.done)
	ticker := time.NewTicker(e.cfg.TickPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-e.stop:
			return
		default:
		}
		e.tick(ctx)
		select {
		case <-ctx.Done():
			return
		case <-e.stop:
			return
		case <-ticker.C:
		}
	}
}

// tick is one pass of the loop: poll, mirror, then publish every batch
// the scheduler releases. A control entry flushes only what precedes it in
// the log; later entries of the same poll wait for the next evaluation.
func (e *Engine) tick(ctx context.Context) {
	polled, err := e.tailer.Poll()
	if err != nil {
		e.logger.Warn("poll session log", "err", err)
	}

	start := 0
	for i, en := range polled {
		if !en.IsControl() {
			continue
		}
		e.ingest(ctx, polled[start:i])
		start = i + 1
		e.explicit = true
		e.drain(ctx)
	}
	e.ingest(ctx, polled[start:])
	e.drain(ctx)

	e.mu.Lock()
	e.stats.Buffered = len(e.buffer)
	e.mu.Unlock()
}

// ingest buffers and mirrors a run of non-control entries.
func (e *Engine) ingest(ctx context.Context, fresh []entry.Entry) {
	if len(fresh) == 0 {
		return
	}
	e.buffer = append(e.buffer, fresh...)
	e.mirror(ctx, fresh)
}

// drain publishes batches until the scheduler has nothing more to release.
func (e *Engine) drain(ctx context.Context) {
	for ctx.Err() == nil {
		trig := e.sched.Evaluate(len(e.buffer), e.explicit)
		if trig == schedule.None {
			break
		}
		e.explicit = false
		n := e.sched.Take(trig, len(e.buffer))
		if n > 0 {
			e.logger.Debug("summarizing batch", "trigger", trig, "entries", n)
			e.publish(ctx, e.summarize(ctx, e.buffer[:n]))
		}
		e.buffer = append([]entry.Entry(nil), e.buffer[n:]...)
		e.sched.Fired()
	}
}

// summarize returns the digest for batch, or "" when nothing should be
// published. An unavailable delegate degrades the session to Markdown.
func (e *Engine) summarize(ctx context.Context, batch []entry.Entry) string {
	digest, err := e.backend.Summarize(ctx, batch)
	if errors.Is(err, summarize.ErrUnavailable) {
		e.logger.Warn("summarization delegate unavailable; switching to markdown digests", "err", err)
		e.backend = summarize.Markdown{}
		e.mu.Lock()
		e.stats.Backend = e.backend.Mode()
		e.mu.Unlock()
		digest, err = e.backend.Summarize(ctx, batch)
	}
	if err != nil {
		// The batch counts as handled so the buffer cannot grow without bound.
		e.logger.Warn("summarization failed; dropping digest", "entries", len(batch), "err", err)
		e.mu.Lock()
		e.stats.Dropped++
		e.mu.Unlock()
		return ""
	}
	return digest
}

func (e *Engine) mirror(ctx context.Context, entries []entry.Entry) {
	e.eachSink("mirror entries", func(s sink.Sink) error { return s.MirrorEntries(ctx, entries) })
	e.mu.Lock()
	e.stats.Mirrored += len(entries)
	e.mu.Unlock()
}

func (e *Engine) publish(ctx context.Context, digest string) {
	if strings.TrimSpace(digest) == "" {
		return
	}
	e.eachSink("publish digest", func(s sink.Sink) error { return s.PublishDigest(ctx, digest) })
	e.mu.Lock()
	e.stats.Digests++
	e.mu.Unlock()
}

// eachSink calls fn on every live sink. A sink reporting ErrUnavailable is
// dropped for the rest of the session; any other failure is logged and the
// data for that call is lost to that sink.
func (e *Engine) eachSink(op string, fn func(sink.Sink) error) {
	kept := e.sinks[:0]
	for _, s := range e.sinks {
		err := fn(s)
		switch {
		case err == nil:
		case errors.Is(err, sink.ErrUnavailable):
			e.logger.Error("sink unavailable; disabling for this session", "sink", s.Name(), "op", op, "err", err)
			e.mu.Lock()
			e.stats.Disabled = append(e.stats.Disabled, s.Name())
			e.mu.Unlock()
			continue
		default:
			e.logger.Warn("sink write failed", "sink", s.Name(), "op", op, "err", err)
		}
		kept = append(kept, s)
	}
	e.sinks = kept
}

func (e *Engine) malformed(pe *tail.ParseError) {
	e.logger.Warn("skipping malformed log line", "path", pe.Path, "offset", pe.Offset, "err", pe.Err)
	e.mu.Lock()
	e.stats.Malformed++
	e.mu.Unlock()
}
