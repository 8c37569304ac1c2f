// Package tail incrementally reads a growing session log.
package tail

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fakeyudi/termtrace/internal/entry"
)

// ParseError reports a log line that is not a valid entry.
type ParseError struct {
	Path   string
	Offset int64 // byte offset of the start of the line
	Line   string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed entry in %s at offset %d: %v", e.Path, e.Offset, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Tailer tracks how far into a log file it has read. It is not safe for
// concurrent use; one goroutine owns it.
type Tailer struct {
	path        string
	offset      int64
	onMalformed func(*ParseError)
}

// Option configures a Tailer.
type Option func(*Tailer)

// WithMalformedHandler makes Poll report malformed lines to fn and skip past
// them. Without a handler Poll stops at the first malformed line and returns
// a *ParseError, leaving the offset at the start of that line.
func WithMalformedHandler(fn func(*ParseError)) Option {
	return func(t *Tailer) { t.onMalformed = fn }
}

// New returns a Tailer positioned at the start of path.
func New(path string, opts ...Option) *Tailer {
	t := &Tailer{path: path}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Path returns the file being tailed.
func (t *Tailer) Path() string { return t.path }

// Offset returns the byte offset of the next unread line.
func (t *Tailer) Offset() int64 { return t.offset }

// Reset rewinds to the start of the file.
func (t *Tailer) Reset() { t.offset = 0 }

// Poll returns the complete lines appended since the previous call, decoded
// as entries. A trailing line without its newline is left for the next call.
// A missing file yields no entries and no error.
func (t *Tailer) Poll() ([]entry.Entry, error) {
	f, err := os.Open(t.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat log: %w", err)
	}
	if info.Size() <= t.offset {
		return nil, nil
	}

	data := make([]byte, info.Size()-t.offset)
	n, err := f.ReadAt(data, t.offset)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read log: %w", err)
	}
	data = data[:n]

	var entries []entry.Entry
	for {
		nl := bytes.IndexByte(data, '\n')
		if nl < 0 {
			break
		}
		line := data[:nl]
		lineStart := t.offset
		if len(bytes.TrimSpace(line)) > 0 {
			e, err := entry.Parse(line)
			if err != nil {
				perr := &ParseError{Path: t.path, Offset: lineStart, Line: string(line), Err: err}
				if t.onMalformed == nil {
					return entries, perr
				}
				t.onMalformed(perr)
			} else {
				entries = append(entries, e)
			}
		}
		t.offset += int64(nl + 1)
		data = data[nl+1:]
	}
	return entries, nil
}
