// Package doctest provides an in-memory docsync.Service for tests.
package doctest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"unicode/utf16"

	"github.com/fakeyudi/termtrace/internal/docsync"
)

const pageBreakUnit = '\f'

// Memory models a document body as UTF-16 units with a paragraph style on
// each terminating newline. Newlines inserted into a paragraph take that
// paragraph's style, as the real service does.
type Memory struct {
	mu     sync.Mutex
	id     string
	units  []uint16
	styles []string

	// GetErr and UpdateErr, when set, are returned instead of serving.
	GetErr    error
	UpdateErr error

	Gets    int
	Updates int
}

var _ docsync.Service = (*Memory)(nil)

// NewMemory returns an empty document: a single empty paragraph.
func NewMemory(id string) *Memory {
	return &Memory{id: id, units: []uint16{'\n'}, styles: []string{docsync.StyleNormal}}
}

// Get returns a snapshot of the body.
func (m *Memory) Get(context.Context) (*docsync.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Gets++
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	return m.snapshot(), nil
}

// BatchUpdate applies reqs in order. Any invalid request rejects the batch.
func (m *Memory) BatchUpdate(_ context.Context, reqs []docsync.Request) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Updates++
	if m.UpdateErr != nil {
		return m.UpdateErr
	}
	units := append([]uint16(nil), m.units...)
	styles := append([]string(nil), m.styles...)
	for i, r := range reqs {
		var err error
		units, styles, err = apply(units, styles, r)
		if err != nil {
			return fmt.Errorf("request %d: %w", i, err)
		}
	}
	m.units, m.styles = units, styles
	return nil
}

// Text returns the whole body with page breaks rendered as form feeds.
func (m *Memory) Text() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return string(utf16.Decode(m.units))
}

// SetText replaces the body with text, every paragraph styled normal. text
// must end with a newline.
func (m *Memory) SetText(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.units = utf16.Encode([]rune(text))
	m.styles = make([]string, len(m.units))
	for i := range m.styles {
		m.styles[i] = docsync.StyleNormal
	}
}

// SectionText returns the body of the named section without its trailing
// newline.
func SectionText(doc *docsync.Document, heading string) (string, bool) {
	sec, ok := docsync.FindSection(doc, heading)
	if !ok {
		return "", false
	}
	var b strings.Builder
	for _, p := range doc.Paragraphs {
		if p.StartIndex >= sec.Start && p.StartIndex <= sec.End {
			b.WriteString(p.Text)
		}
	}
	return strings.TrimSuffix(b.String(), "\n"), true
}

func (m *Memory) snapshot() *docsync.Document {
	doc := &docsync.Document{ID: m.id, EndIndex: int64(len(m.units)) + 1}
	start := 0
	for k, u := range m.units {
		if u != '\n' {
			continue
		}
		seg := m.units[start : k+1]
		text := string(utf16.Decode(seg))
		doc.Paragraphs = append(doc.Paragraphs, docsync.Paragraph{
			StartIndex: int64(start) + 1,
			EndIndex:   int64(k) + 2,
			Text:       strings.ReplaceAll(text, string(rune(pageBreakUnit)), ""),
			Style:      m.styles[k],
			PageBreak:  strings.ContainsRune(text, pageBreakUnit),
		})
		start = k + 1
	}
	return doc
}

func apply(units []uint16, styles []string, r docsync.Request) ([]uint16, []string, error) {
	n := int64(len(units))
	switch {
	case r.InsertText != nil:
		at := r.InsertText.Location.Index
		if at < 1 || at > n {
			return nil, nil, fmt.Errorf("insert index %d outside [1, %d]", at, n)
		}
		return insert(units, styles, at, utf16.Encode([]rune(r.InsertText.Text)), "")
	case r.InsertPageBreak != nil:
		at := r.InsertPageBreak.Location.Index
		if at < 1 || at > n {
			return nil, nil, fmt.Errorf("page break index %d outside [1, %d]", at, n)
		}
		return insert(units, styles, at, []uint16{pageBreakUnit, '\n'}, docsync.StyleNormal)
	case r.DeleteContentRange != nil:
		s, e := r.DeleteContentRange.Range.StartIndex, r.DeleteContentRange.Range.EndIndex
		if s < 1 || e <= s || e > n {
			return nil, nil, fmt.Errorf("delete range [%d, %d) invalid for length %d", s, e, n)
		}
		units = append(units[:s-1:s-1], units[e-1:]...)
		styles = append(styles[:s-1:s-1], styles[e-1:]...)
		return units, styles, nil
	case r.UpdateParagraphStyle != nil:
		s, e := r.UpdateParagraphStyle.Range.StartIndex, r.UpdateParagraphStyle.Range.EndIndex
		if s < 1 || e <= s || e > n+1 {
			return nil, nil, fmt.Errorf("style range [%d, %d) invalid for length %d", s, e, n)
		}
		style := r.UpdateParagraphStyle.ParagraphStyle.NamedStyleType
		start := int64(1)
		for k, u := range units {
			if u != '\n' {
				continue
			}
			end := int64(k) + 2
			if start < e && end > s {
				styles[k] = style
			}
			start = end
		}
		return units, styles, nil
	}
	return nil, nil, fmt.Errorf("empty request")
}

// insert places add before index at. New newlines take style, or the style
// of the enclosing paragraph when style is empty.
func insert(units []uint16, styles []string, at int64, add []uint16, style string) ([]uint16, []string, error) {
	if style == "" {
		style = docsync.StyleNormal
		for k := at - 1; k < int64(len(units)); k++ {
			if units[k] == '\n' {
				style = styles[k]
				break
			}
		}
	}
	addStyles := make([]string, len(add))
	for i := range addStyles {
		addStyles[i] = style
	}
	i := at - 1
	units = append(units[:i:i], append(add, units[i:]...)...)
	styles = append(styles[:i:i], append(addStyles, styles[i:]...)...)
	return units, styles, nil
}
