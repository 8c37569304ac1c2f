package docsync_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"strings"
	"testing"
	"time"

	"pgregory.net/rapid"

	"github.com/fakeyudi/termtrace/internal/docsync"
	"github.com/fakeyudi/termtrace/internal/docsync/doctest"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func fixedClock() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }

func newSync(t testing.TB, svc docsync.Service) *docsync.Sync {
	t.Helper()
	s, err := docsync.New(context.Background(), svc, "term-trace: demo", "demo",
		docsync.WithLogger(quiet), docsync.WithClock(fixedClock))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return s
}

func fetch(t testing.TB, m *doctest.Memory) *docsync.Document {
	t.Helper()
	doc, err := m.Get(context.Background())
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	return doc
}

func section(t testing.TB, m *doctest.Memory, heading string) string {
	t.Helper()
	text, ok := doctest.SectionText(fetch(t, m), heading)
	if !ok {
		t.Fatalf("section %q missing", heading)
	}
	return text
}

func TestNewInitializesSkeleton(t *testing.T) {
	m := doctest.NewMemory("doc-1")
	newSync(t, m)

	doc := fetch(t, m)
	if !docsync.HasExpectedSections(doc) {
		t.Fatalf("skeleton missing headings: %q", m.Text())
	}
	if got := doc.Paragraphs[0]; got.Style != docsync.StyleTitle || got.Text != "term-trace: demo (demo)\n" {
		t.Errorf("title paragraph = %+v", got)
	}
	if !strings.Contains(section(t, m, "Summary"), "Session summary will appear here.") {
		t.Errorf("summary placeholder missing: %q", m.Text())
	}
	if !strings.Contains(section(t, m, "Full Log"), "Session logs will appear here.") {
		t.Errorf("full log placeholder missing: %q", m.Text())
	}
	if !strings.Contains(m.Text(), "\f\nFull Log\n") {
		t.Errorf("page break not directly before Full Log: %q", m.Text())
	}
}

// Feature: termtrace, Property 6: initialization is idempotent.
func TestInitializeIdempotent(t *testing.T) {
	m := doctest.NewMemory("doc-1")
	s := newSync(t, m)
	first := fetch(t, m)

	if err := s.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if second := fetch(t, m); !reflect.DeepEqual(first, second) {
		t.Errorf("second init changed document:\nfirst  %+v\nsecond %+v", first.Paragraphs, second.Paragraphs)
	}
}

func TestInitializeClearsStrayContent(t *testing.T) {
	m := doctest.NewMemory("doc-1")
	m.SetText("left over\nfrom before\n")
	newSync(t, m)
	if strings.Contains(m.Text(), "left over") {
		t.Errorf("stray content survived: %q", m.Text())
	}
}

func TestNewKeepsExistingStructure(t *testing.T) {
	m := doctest.NewMemory("doc-1")
	s := newSync(t, m)
	if err := s.AppendToSection(context.Background(), docsync.FullLogHeading, "kept"); err != nil {
		t.Fatal(err)
	}
	updates := m.Updates

	newSync(t, m)
	if m.Updates != updates {
		t.Errorf("New() rewrote a document that already had both sections")
	}
	if !strings.Contains(section(t, m, "Full Log"), "kept") {
		t.Errorf("existing content lost: %q", m.Text())
	}
}

func TestAppendSeparator(t *testing.T) {
	m := doctest.NewMemory("doc-1")
	s := newSync(t, m)
	if err := s.AppendToSection(context.Background(), docsync.FullLogHeading, "line one\nline two"); err != nil {
		t.Fatal(err)
	}
	want := "\n──── 2024-01-02T03:04:05.000000Z ────\nline one\nline two\n"
	if !strings.Contains(section(t, m, "Full Log")+"\n", want) {
		t.Errorf("Full Log = %q, want it to contain %q", section(t, m, "Full Log"), want)
	}
}

func TestAppendStaysInsideSummary(t *testing.T) {
	m := doctest.NewMemory("doc-1")
	s := newSync(t, m)
	if err := s.AppendToSection(context.Background(), docsync.SummaryHeading, "digest ⚠ 🚀"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(section(t, m, "Summary"), "digest ⚠ 🚀") {
		t.Errorf("digest not in Summary: %q", m.Text())
	}
	if strings.Contains(section(t, m, "Full Log"), "digest") {
		t.Errorf("digest leaked into Full Log: %q", m.Text())
	}
	if !strings.Contains(m.Text(), "\f\nFull Log\n") {
		t.Errorf("page break moved: %q", m.Text())
	}
}

// Feature: termtrace, Property 7: appends never remove earlier content.
func TestAppendNeverRemovesContent(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		m := doctest.NewMemory("doc-1")
		s := newSync(t, m)
		ctx := context.Background()

		var summary, full []string
		n := rapid.IntRange(1, 12).Draw(rt, "n")
		for i := 0; i < n; i++ {
			word := rapid.StringMatching(`[a-zA-Z0-9 ⚠é😀]{0,16}`).Draw(rt, fmt.Sprintf("word%d", i))
			if rapid.Bool().Draw(rt, fmt.Sprintf("summary%d", i)) {
				text := fmt.Sprintf("S%03d %s", i, word)
				summary = append(summary, text)
				if err := s.AppendToSection(ctx, docsync.SummaryHeading, text); err != nil {
					rt.Fatalf("append summary: %v", err)
				}
			} else {
				text := fmt.Sprintf("F%03d %s", i, word)
				full = append(full, text)
				if err := s.AppendToSection(ctx, docsync.FullLogHeading, text); err != nil {
					rt.Fatalf("append full log: %v", err)
				}
			}
		}
		assertInOrder(rt, section(t, m, "Summary"), summary)
		assertInOrder(rt, section(t, m, "Full Log"), full)
	})
}

func assertInOrder(rt *rapid.T, body string, parts []string) {
	rest := body
	for _, p := range parts {
		i := strings.Index(rest, p)
		if i < 0 {
			rt.Fatalf("%q missing or out of order in %q", p, body)
		}
		rest = rest[i+len(p):]
	}
}

func TestReplaceSectionSwapsBody(t *testing.T) {
	m := doctest.NewMemory("doc-1")
	s := newSync(t, m)
	ctx := context.Background()
	if err := s.AppendToSection(ctx, docsync.SummaryHeading, "old digest"); err != nil {
		t.Fatal(err)
	}
	if err := s.ReplaceSection(ctx, docsync.SummaryHeading, "new digest"); err != nil {
		t.Fatal(err)
	}
	if got := strings.TrimSpace(section(t, m, "Summary")); got != "new digest" {
		t.Errorf("Summary = %q, want only the new digest", got)
	}
	if !strings.Contains(section(t, m, "Full Log"), "Session logs will appear here.") {
		t.Errorf("Full Log touched: %q", m.Text())
	}
	if !docsync.HasExpectedSections(fetch(t, m)) {
		t.Errorf("headings lost: %q", m.Text())
	}
}

func TestAppendMissingSectionFallsBackToReplace(t *testing.T) {
	m := doctest.NewMemory("doc-1")
	m.SetText("some text\n")
	s, err := docsync.New(context.Background(), m, "t", "w", docsync.WithLogger(quiet))
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	// Remove the skeleton out of band.
	m.SetText("some text\n")
	err = s.AppendToSection(ctx, docsync.FullLogHeading, "fresh")
	if !errors.Is(err, docsync.ErrSectionNotFound) {
		t.Fatalf("AppendToSection() error = %v, want ErrSectionNotFound", err)
	}
	if err := s.ReplaceSection(ctx, docsync.FullLogHeading, "fresh"); err != nil {
		t.Fatal(err)
	}

	doc := fetch(t, m)
	if got := strings.TrimSpace(section(t, m, "Full Log")); got != "fresh" {
		t.Errorf("Full Log = %q, want %q", got, "fresh")
	}
	if doc.Paragraphs[0].Style != docsync.StyleNormal {
		t.Errorf("preceding paragraph restyled: %+v", doc.Paragraphs[0])
	}
}

func TestAppendReinitializesLostStructure(t *testing.T) {
	m := doctest.NewMemory("doc-1")
	s := newSync(t, m)
	m.SetText("junk\n")

	if err := s.Append(context.Background(), docsync.FullLogHeading, "after reset"); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if !docsync.HasExpectedSections(fetch(t, m)) {
		t.Fatalf("structure not restored: %q", m.Text())
	}
	if !strings.Contains(section(t, m, "Full Log"), "after reset") {
		t.Errorf("Full Log = %q", section(t, m, "Full Log"))
	}
}

func TestAppendCreatesUnknownSection(t *testing.T) {
	m := doctest.NewMemory("doc-1")
	s := newSync(t, m)

	// The skeleton is intact, so Append goes straight to AppendToSection,
	// which cannot find the heading and hands over to ReplaceSection.
	if err := s.Append(context.Background(), "Notes", "kept aside"); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if got := strings.TrimSpace(section(t, m, "Notes")); got != "kept aside" {
		t.Errorf("Notes = %q, want %q", got, "kept aside")
	}
	if !docsync.HasExpectedSections(fetch(t, m)) {
		t.Errorf("headings lost: %q", m.Text())
	}
	if !strings.Contains(section(t, m, "Summary"), "Session summary will appear here.") {
		t.Errorf("Summary touched: %q", m.Text())
	}
}

func TestAppendToHeadingWithoutBody(t *testing.T) {
	m := doctest.NewMemory("doc-1")
	s := newSync(t, m)

	// A Full Log heading that is the last paragraph, with no body at all.
	m.SetText("Notes\nFull Log\n")
	if err := m.BatchUpdate(context.Background(), []docsync.Request{{
		UpdateParagraphStyle: &docsync.UpdateParagraphStyle{
			Range:          docsync.Range{StartIndex: 7, EndIndex: 15},
			ParagraphStyle: docsync.ParagraphStyle{NamedStyleType: docsync.StyleHeading1},
			Fields:         "namedStyleType",
		},
	}}); err != nil {
		t.Fatal(err)
	}
	if err := s.AppendToSection(context.Background(), docsync.FullLogHeading, "entry"); err != nil {
		t.Fatal(err)
	}

	var headings int
	for _, p := range fetch(t, m).Paragraphs {
		if p.Style == docsync.StyleHeading1 {
			headings++
			if p.Text != "Full Log\n" {
				t.Errorf("unexpected heading %q", p.Text)
			}
		}
	}
	if headings != 1 {
		t.Errorf("found %d headings, want 1: %q", headings, m.Text())
	}
	if !strings.Contains(section(t, m, "Full Log"), "entry") {
		t.Errorf("Full Log = %q", section(t, m, "Full Log"))
	}
}

type flakyUpdates struct {
	*doctest.Memory
	failCall int
	calls    int
}

func (f *flakyUpdates) BatchUpdate(ctx context.Context, reqs []docsync.Request) error {
	f.calls++
	if f.calls == f.failCall {
		return errors.New("quota exceeded")
	}
	return f.Memory.BatchUpdate(ctx, reqs)
}

func TestInitializeStylingFailureIsNotFatal(t *testing.T) {
	m := doctest.NewMemory("doc-1")
	svc := &flakyUpdates{Memory: m, failCall: 2}
	if _, err := docsync.New(context.Background(), svc, "t", "w", docsync.WithLogger(quiet)); err != nil {
		t.Fatalf("New() error = %v, want styling failure tolerated", err)
	}
	if !strings.Contains(m.Text(), "Session logs will appear here.") {
		t.Errorf("skeleton text missing: %q", m.Text())
	}
}

func TestNewFailsWhenServiceUnreachable(t *testing.T) {
	m := doctest.NewMemory("doc-1")
	m.GetErr = fmt.Errorf("%w: 403", docsync.ErrUnavailable)
	_, err := docsync.New(context.Background(), m, "t", "w", docsync.WithLogger(quiet))
	if !errors.Is(err, docsync.ErrUnavailable) {
		t.Errorf("New() error = %v, want ErrUnavailable", err)
	}
}
