// Package entry defines the records a recording shell appends to a session
// log, one JSON object per line.
package entry

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Kind discriminates the entry variants. It is stored in the "type" field.
type Kind string

const (
	KindNote      Kind = "note"
	KindCommand   Kind = "command"
	KindSummarize Kind = "summarize"
)

// Entry is one line of a session log. Notes use Text; commands use Command,
// Output and ExitCode; a summarize control signal carries no payload.
// Any Kind other than note or summarize is treated like a command.
type Entry struct {
	Kind      Kind   `json:"type"`
	Timestamp string `json:"timestamp,omitempty"` // ISO-8601, UTC
	Text      string `json:"text,omitempty"`
	Command   string `json:"command,omitempty"`
	Output    string `json:"output,omitempty"`
	ExitCode  int    `json:"exit_code"`
}

// IsNote reports whether e is a user annotation.
func (e Entry) IsNote() bool { return e.Kind == KindNote }

// IsControl reports whether e is an out-of-band summarize request. Control
// entries are never mirrored to a sink.
func (e Entry) IsControl() bool { return e.Kind == KindSummarize }

// IsCommand reports whether e should be rendered as a command record.
func (e Entry) IsCommand() bool { return !e.IsNote() && !e.IsControl() }

// MarshalJSON writes only the fields that belong to the entry's variant.
func (e Entry) MarshalJSON() ([]byte, error) {
	switch e.Kind {
	case KindNote:
		return json.Marshal(struct {
			Kind      Kind   `json:"type"`
			Timestamp string `json:"timestamp"`
			Text      string `json:"text"`
		}{e.Kind, e.Timestamp, e.Text})
	case KindSummarize:
		return json.Marshal(struct {
			Kind      Kind   `json:"type"`
			Timestamp string `json:"timestamp,omitempty"`
		}{e.Kind, e.Timestamp})
	default:
		return json.Marshal(struct {
			Kind      Kind   `json:"type"`
			Timestamp string `json:"timestamp"`
			Command   string `json:"command"`
			Output    string `json:"output"`
			ExitCode  int    `json:"exit_code"`
		}{e.Kind, e.Timestamp, e.Command, e.Output, e.ExitCode})
	}
}

// Parse decodes a single log line. Unknown fields are ignored.
func Parse(line []byte) (Entry, error) {
	var e Entry
	if err := json.Unmarshal(line, &e); err != nil {
		return Entry{}, fmt.Errorf("decode entry: %w", err)
	}
	return e, nil
}

// timeLayouts covers RFC 3339 and the naive ISO-8601 forms some producers emit.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// Time parses the entry timestamp. Timestamps without a zone are UTC.
func (e Entry) Time() (time.Time, bool) {
	ts := strings.TrimSpace(e.Timestamp)
	if ts == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, ts); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
