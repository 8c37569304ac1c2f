package sink

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fakeyudi/termtrace/internal/entry"
)

// Markdown appends to a single markdown file. The file is never truncated.
type Markdown struct {
	path string

	mu        sync.Mutex
	inFullLog bool
}

var _ Sink = (*Markdown)(nil)

// NewMarkdown opens path, creating it with a "# title" header when missing.
func NewMarkdown(path, title string) (*Markdown, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("%w: create directory for %s: %w", ErrUnavailable, path, err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	switch {
	case errors.Is(err, fs.ErrExist):
	case err != nil:
		return nil, fmt.Errorf("%w: create %s: %w", ErrUnavailable, path, err)
	default:
		_, werr := fmt.Fprintf(f, "# %s\n\n", title)
		cerr := f.Close()
		if err := errors.Join(werr, cerr); err != nil {
			return nil, fmt.Errorf("%w: write header to %s: %w", ErrUnavailable, path, err)
		}
	}
	return &Markdown{path: path}, nil
}

func (m *Markdown) Name() string { return "markdown" }

// Path returns the file being written.
func (m *Markdown) Path() string { return m.path }

// MirrorEntries appends entries under a "## Full Log" heading, opening a new
// heading only when a digest was written since the last mirror.
func (m *Markdown) MirrorEntries(_ context.Context, entries []entry.Entry) error {
	entries = mirrored(entries)
	if len(entries) == 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var sb strings.Builder
	if !m.inFullLog {
		sb.WriteString("## Full Log\n\n")
	}
	sb.WriteString(entry.MarkdownBlock(entries))
	sb.WriteString("\n\n")
	if err := m.append(sb.String()); err != nil {
		return err
	}
	m.inFullLog = true
	return nil
}

// PublishDigest appends a "## Summary" block.
func (m *Markdown) PublishDigest(_ context.Context, digest string) error {
	if strings.TrimSpace(digest) == "" {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.append("## Summary\n\n" + digest + "\n\n"); err != nil {
		return err
	}
	m.inFullLog = false
	return nil
}

func (m *Markdown) append(s string) error {
	f, err := os.OpenFile(m.path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
			return fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		return fmt.Errorf("open %s: %w", m.path, err)
	}
	_, werr := f.WriteString(s)
	cerr := f.Close()
	if err := errors.Join(werr, cerr); err != nil {
		return fmt.Errorf("write %s: %w", m.path, err)
	}
	return nil
}
