// Package docsync keeps a "Summary" and a "Full Log" section inside an
// external, paragraph-structured document and appends to them without ever
// removing earlier content.
//
// The content model follows the Google Docs body: paragraphs addressed by
// UTF-16 offsets starting at 1, each terminated by a newline, with a named
// paragraph style. Sections are HEADING_1 paragraphs plus the body that
// follows them up to the next heading, page break, or the end of the document.
package docsync

import (
	"context"
	"strings"
	"unicode/utf16"
)

// Named paragraph styles.
const (
	StyleNormal   = "NORMAL_TEXT"
	StyleTitle    = "TITLE"
	StyleHeading1 = "HEADING_1"
)

// Section headings maintained in every synced document.
const (
	SummaryHeading = "Summary"
	FullLogHeading = "Full Log"
)

// Paragraph is one newline-terminated paragraph. Text includes the newline.
type Paragraph struct {
	StartIndex int64
	EndIndex   int64
	Text       string
	Style      string
	PageBreak  bool
}

// Document is a snapshot of the remote document body.
type Document struct {
	ID         string
	Title      string
	Paragraphs []Paragraph
	EndIndex   int64 // end of the last structural element
}

// End returns the index just past the document body.
func (d *Document) End() int64 {
	if d.EndIndex > 0 {
		return d.EndIndex
	}
	if n := len(d.Paragraphs); n > 0 {
		return d.Paragraphs[n-1].EndIndex
	}
	return 1
}

// Section is the body of a heading: [Start, End) where Start is just past the
// heading paragraph and End is the insertion point that keeps new content
// inside the section.
type Section struct {
	Heading      string
	HeadingStart int64
	Start        int64
	End          int64
}

// Empty reports whether the heading has no body paragraphs at all.
func (s Section) Empty() bool { return s.End < s.Start }

// FindSection locates the HEADING_1 paragraph whose text contains heading
// (case-insensitive) and the extent of its body.
func FindSection(doc *Document, heading string) (Section, bool) {
	want := strings.ToLower(heading)
	for i, p := range doc.Paragraphs {
		if p.Style != StyleHeading1 || !strings.Contains(strings.ToLower(strings.TrimSpace(p.Text)), want) {
			continue
		}
		sec := Section{Heading: heading, HeadingStart: p.StartIndex, Start: p.EndIndex, End: doc.End() - 1}
		for _, next := range doc.Paragraphs[i+1:] {
			if next.Style == StyleHeading1 || next.PageBreak {
				sec.End = next.StartIndex - 1
				break
			}
		}
		return sec, true
	}
	return Section{}, false
}

// HasExpectedSections reports whether both mandatory headings are present.
func HasExpectedSections(doc *Document) bool {
	var summary, fullLog bool
	for _, p := range doc.Paragraphs {
		if p.Style != StyleHeading1 {
			continue
		}
		text := strings.ToLower(strings.TrimSpace(p.Text))
		if strings.HasPrefix(text, "summary") {
			summary = true
		}
		if strings.HasPrefix(text, "full log") {
			fullLog = true
		}
	}
	return summary && fullLog
}

// Service is the document backend: fetch the body, apply a batch of edits.
// A batch is applied in order and atomically.
type Service interface {
	Get(ctx context.Context) (*Document, error)
	BatchUpdate(ctx context.Context, requests []Request) error
}

// Request is one edit. Exactly one field is set. The JSON shape matches the
// Google Docs batchUpdate API.
type Request struct {
	InsertText           *InsertText           `json:"insertText,omitempty"`
	DeleteContentRange   *DeleteContentRange   `json:"deleteContentRange,omitempty"`
	UpdateParagraphStyle *UpdateParagraphStyle `json:"updateParagraphStyle,omitempty"`
	InsertPageBreak      *InsertPageBreak      `json:"insertPageBreak,omitempty"`
}

type Location struct {
	Index int64 `json:"index"`
}

type Range struct {
	StartIndex int64 `json:"startIndex"`
	EndIndex   int64 `json:"endIndex"`
}

type InsertText struct {
	Location Location `json:"location"`
	Text     string   `json:"text"`
}

type DeleteContentRange struct {
	Range Range `json:"range"`
}

type ParagraphStyle struct {
	NamedStyleType string `json:"namedStyleType"`
}

type UpdateParagraphStyle struct {
	Range          Range          `json:"range"`
	ParagraphStyle ParagraphStyle `json:"paragraphStyle"`
	Fields         string         `json:"fields"`
}

type InsertPageBreak struct {
	Location Location `json:"location"`
}

func insertText(at int64, text string) Request {
	return Request{InsertText: &InsertText{Location: Location{Index: at}, Text: text}}
}

func deleteRange(start, end int64) Request {
	return Request{DeleteContentRange: &DeleteContentRange{Range: Range{StartIndex: start, EndIndex: end}}}
}

func setStyle(start, end int64, style string) Request {
	return Request{UpdateParagraphStyle: &UpdateParagraphStyle{
		Range:          Range{StartIndex: start, EndIndex: end},
		ParagraphStyle: ParagraphStyle{NamedStyleType: style},
		Fields:         "namedStyleType",
	}}
}

func pageBreak(at int64) Request {
	return Request{InsertPageBreak: &InsertPageBreak{Location: Location{Index: at}}}
}

// TextLen returns the length of s in document index units (UTF-16).
func TextLen(s string) int64 {
	return int64(len(utf16.Encode([]rune(s))))
}
