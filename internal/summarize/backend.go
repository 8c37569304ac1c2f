// Package summarize turns a batch of session entries into a digest.
//
// A Backend is resolved once per session. Markdown is deterministic and
// offline; Delegate hands the rendered batch to an injected function, usually
// a ChatClient talking to an OpenAI-compatible endpoint.
package summarize

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fakeyudi/termtrace/internal/entry"
)

// ErrUnavailable is returned when a delegate backend has no function to call.
var ErrUnavailable = errors.New("summarization unavailable")

// ErrCallFailed matches any *CallError.
var ErrCallFailed = errors.New("summarization call failed")

// CallError wraps a failure raised by the delegate function.
type CallError struct {
	Err error
}

func (e *CallError) Error() string {
	return "summarization call failed: " + e.Err.Error()
}

func (e *CallError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrCallFailed) match any CallError.
func (e *CallError) Is(target error) bool { return target == ErrCallFailed }

// Mode names a backend variant.
type Mode string

const (
	ModeMarkdown Mode = "markdown"
	ModeDelegate Mode = "delegate"
)

// Backend produces a digest from a batch of entries. The set of
// implementations is closed: Markdown and Delegate.
type Backend interface {
	Summarize(ctx context.Context, entries []entry.Entry) (string, error)
	Mode() Mode
	backend()
}

// recentCommands is how many trailing commands the markdown digest lists.
const recentCommands = 5

// Markdown is the deterministic backend. It never fails.
type Markdown struct{}

func (Markdown) backend()   {}
func (Markdown) Mode() Mode { return ModeMarkdown }

// Summarize counts entries by kind and lists the last few commands.
func (Markdown) Summarize(_ context.Context, entries []entry.Entry) (string, error) {
	var notes int
	var commands []string
	for _, e := range entries {
		switch {
		case e.IsControl():
		case e.IsNote():
			notes++
		default:
			commands = append(commands, e.Command)
		}
	}
	total := notes + len(commands)
	if total == 0 {
		return "", nil
	}

	lines := []string{fmt.Sprintf("Session summary: %d entries (%d commands, %d notes).", total, len(commands), notes)}
	if len(commands) > 0 {
		if len(commands) > recentCommands {
			commands = commands[len(commands)-recentCommands:]
		}
		lines = append(lines, "Recent commands:")
		for _, c := range commands {
			lines = append(lines, "- "+c)
		}
	}
	return strings.Join(lines, "\n"), nil
}

// Func is the injected summarizer: pre-rendered batch text in, digest out.
type Func func(ctx context.Context, text string) (string, error)

// Delegate wraps an injected Func.
type Delegate struct {
	Fn Func
	// MaxEntries keeps only the trailing entries of a batch; 0 sends all.
	MaxEntries int
}

func (Delegate) backend()   {}
func (Delegate) Mode() Mode { return ModeDelegate }

// Summarize renders entries with entry.PromptText and calls the delegate.
func (d Delegate) Summarize(ctx context.Context, entries []entry.Entry) (string, error) {
	if d.Fn == nil {
		return "", ErrUnavailable
	}
	text := entry.PromptText(trailing(entries, d.MaxEntries))
	if text == "" {
		return "", nil
	}
	out, err := d.Fn(ctx, text)
	if err != nil {
		return "", &CallError{Err: err}
	}
	return strings.TrimSpace(out), nil
}

// trailing returns the last limit non-control entries, in order.
func trailing(entries []entry.Entry, limit int) []entry.Entry {
	if limit <= 0 {
		return entries
	}
	kept := make([]entry.Entry, 0, len(entries))
	for _, e := range entries {
		if !e.IsControl() {
			kept = append(kept, e)
		}
	}
	if len(kept) > limit {
		kept = kept[len(kept)-limit:]
	}
	return kept
}
