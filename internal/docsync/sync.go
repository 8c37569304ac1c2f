package docsync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// ErrSectionNotFound is returned by AppendToSection when the heading is
// missing from the document.
var ErrSectionNotFound = errors.New("docsync: section not found")

// ErrUnavailable marks failures that will not heal by retrying: bad
// credentials, a missing document, a misconfigured endpoint.
var ErrUnavailable = errors.New("docsync: document service unavailable")

const (
	summaryPlaceholder = "Session summary will appear here."
	fullLogPlaceholder = "Session logs will appear here."
	separatorLayout    = "2006-01-02T15:04:05.000000Z"
)

// Sync owns the structure of one document.
type Sync struct {
	svc       Service
	title     string
	workspace string
	logger    *slog.Logger
	now       func() time.Time
}

// Option configures a Sync.
type Option func(*Sync)

// WithLogger sets the logger used for non-fatal problems.
func WithLogger(l *slog.Logger) Option {
	return func(s *Sync) { s.logger = l }
}

// WithClock replaces time.Now for the append separators.
func WithClock(now func() time.Time) Option {
	return func(s *Sync) { s.now = now }
}

// New binds svc and makes sure the document has the expected skeleton,
// initializing it when either section is missing.
func New(ctx context.Context, svc Service, title, workspace string, opts ...Option) (*Sync, error) {
	s := &Sync{svc: svc, title: title, workspace: workspace, logger: slog.Default(), now: time.Now}
	for _, o := range opts {
		o(s)
	}
	ok, err := s.HasExpectedSections(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		if err := s.Initialize(ctx); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// HasExpectedSections fetches the document and checks for both headings.
func (s *Sync) HasExpectedSections(ctx context.Context) (bool, error) {
	doc, err := s.svc.Get(ctx)
	if err != nil {
		return false, fmt.Errorf("fetch document: %w", err)
	}
	return HasExpectedSections(doc), nil
}

// Initialize clears the document and writes the skeleton: a title line, the
// Summary heading with a placeholder, a page break, and the Full Log heading
// with a placeholder. Running it twice yields the same document.
func (s *Sync) Initialize(ctx context.Context) error {
	doc, err := s.svc.Get(ctx)
	if err != nil {
		return fmt.Errorf("fetch document: %w", err)
	}
	titleLine := fmt.Sprintf("%s (%s)", s.title, s.workspace)
	skeleton := strings.Join([]string{
		titleLine,
		"",
		SummaryHeading,
		summaryPlaceholder,
		"",
		FullLogHeading,
		fullLogPlaceholder,
	}, "\n") + "\n"

	var reqs []Request
	if end := doc.End(); end > 2 {
		reqs = append(reqs, deleteRange(1, end-1))
	}
	reqs = append(reqs, insertText(1, skeleton))
	if err := s.svc.BatchUpdate(ctx, reqs); err != nil {
		return fmt.Errorf("write skeleton: %w", err)
	}

	// Styles are applied against fresh indices. A failure here leaves
	// readable text behind, so it is logged and not returned.
	if err := s.styleSkeleton(ctx, titleLine); err != nil {
		s.logger.Warn("document styling failed", "err", err)
	}
	return nil
}

func (s *Sync) styleSkeleton(ctx context.Context, titleLine string) error {
	doc, err := s.svc.Get(ctx)
	if err != nil {
		return fmt.Errorf("fetch document: %w", err)
	}
	reqs := []Request{setStyle(1, doc.End(), StyleNormal)}
	var fullLog *Paragraph
	var summaryDone bool
	for i := range doc.Paragraphs {
		p := &doc.Paragraphs[i]
		text := strings.TrimSuffix(p.Text, "\n")
		switch {
		case i == 0 && text == titleLine:
			reqs = append(reqs, setStyle(p.StartIndex, p.EndIndex, StyleTitle))
		case !summaryDone && text == SummaryHeading:
			summaryDone = true
			reqs = append(reqs, setStyle(p.StartIndex, p.EndIndex, StyleHeading1))
		case fullLog == nil && text == FullLogHeading:
			fullLog = p
			reqs = append(reqs, setStyle(p.StartIndex, p.EndIndex, StyleHeading1))
		}
	}
	// The page break shifts everything after it, so it goes last.
	if fullLog != nil {
		reqs = append(reqs, pageBreak(fullLog.StartIndex))
	}
	return s.svc.BatchUpdate(ctx, reqs)
}

// AppendToSection inserts a timestamped separator and text at the end of the
// section's body. Earlier content is never touched.
func (s *Sync) AppendToSection(ctx context.Context, heading, text string) error {
	doc, err := s.svc.Get(ctx)
	if err != nil {
		return fmt.Errorf("fetch document: %w", err)
	}
	sec, ok := FindSection(doc, heading)
	if !ok {
		return fmt.Errorf("%w: %q", ErrSectionNotFound, heading)
	}
	block := fmt.Sprintf("\n──── %s ────\n%s\n", s.now().UTC().Format(separatorLayout), text)
	return s.svc.BatchUpdate(ctx, s.insertBody(sec, block))
}

// ReplaceSection swaps the section body for text. A missing heading is
// recreated at the end of the document.
func (s *Sync) ReplaceSection(ctx context.Context, heading, text string) error {
	doc, err := s.svc.Get(ctx)
	if err != nil {
		return fmt.Errorf("fetch document: %w", err)
	}
	body := "\n" + text + "\n"

	sec, ok := FindSection(doc, heading)
	if !ok {
		at := doc.End() - 1
		hlen := TextLen(heading)
		bodyAt := at + hlen + 2
		reqs := []Request{
			insertText(at, "\n"+heading+"\n"),
			setStyle(at+1, at+1+hlen, StyleHeading1),
			insertText(bodyAt, body),
			setStyle(bodyAt, bodyAt+TextLen(body)+1, StyleNormal),
		}
		return s.svc.BatchUpdate(ctx, reqs)
	}

	var reqs []Request
	if sec.End > sec.Start {
		reqs = append(reqs, deleteRange(sec.Start, sec.End))
		sec.End = sec.Start
	}
	reqs = append(reqs, s.insertBody(sec, body)...)
	return s.svc.BatchUpdate(ctx, reqs)
}

// insertBody returns the requests that put block at the end of sec. With no
// body paragraph to anchor on, the block lands before the heading's newline
// and would inherit the heading style, so it is restyled explicitly.
func (s *Sync) insertBody(sec Section, block string) []Request {
	if !sec.Empty() {
		return []Request{insertText(sec.End, block)}
	}
	return []Request{
		insertText(sec.End, block),
		setStyle(sec.End+1, sec.End+TextLen(block)+1, StyleNormal),
	}
}

// Append is the guarded write used by sinks: it re-initializes a document
// whose skeleton was lost, appends to the section, and falls back to
// ReplaceSection when the heading cannot be found.
func (s *Sync) Append(ctx context.Context, heading, text string) error {
	ok, err := s.HasExpectedSections(ctx)
	if err != nil {
		return err
	}
	if !ok {
		s.logger.Warn("document structure missing; re-initializing")
		if err := s.Initialize(ctx); err != nil {
			return err
		}
	}
	err = s.AppendToSection(ctx, heading, text)
	if errors.Is(err, ErrSectionNotFound) {
		s.logger.Warn("section not found; replacing", "section", heading)
		return s.ReplaceSection(ctx, heading, text)
	}
	return err
}
