package entry

import (
	"fmt"
	"strings"
	"time"
)

// DisplayLayout is the human-readable timestamp used by document sinks.
const DisplayLayout = "Jan 02, 15:04:05"

// Markdown renders e the way the markdown sink's Full Log shows it.
func Markdown(e Entry) string {
	if e.IsNote() {
		return fmt.Sprintf("[%s] **NOTE:** %s", e.Timestamp, e.Text)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] **COMMAND:**\n", e.Timestamp)
	sb.WriteString("```sh\n")
	sb.WriteString(e.Command)
	sb.WriteString("\n```\n```\n")
	sb.WriteString(strings.TrimRight(e.Output, "\n"))
	sb.WriteString("\n```\n")
	fmt.Fprintf(&sb, "Exit code: %d", e.ExitCode)
	return sb.String()
}

// MarkdownBlock renders entries separated by blank lines. Control signals are skipped.
func MarkdownBlock(entries []Entry) string {
	parts := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsControl() {
			continue
		}
		parts = append(parts, Markdown(e))
	}
	return strings.Join(parts, "\n\n")
}

// PromptText is the pre-rendered batch handed to a summarization delegate.
func PromptText(entries []Entry) string {
	parts := make([]string, 0, len(entries))
	for _, e := range entries {
		switch {
		case e.IsControl():
			continue
		case e.IsNote():
			parts = append(parts, "# Note: "+e.Text)
		default:
			parts = append(parts, fmt.Sprintf("Command: %s\nOutput: %s\nExit code: %d", e.Command, e.Output, e.ExitCode))
		}
	}
	return strings.Join(parts, "\n\n")
}

// DisplayTime converts the entry's UTC timestamp into loc using
// DisplayLayout. Unparseable timestamps are returned unchanged.
func DisplayTime(e Entry, loc *time.Location) string {
	t, ok := e.Time()
	if !ok {
		return e.Timestamp
	}
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(DisplayLayout)
}

// DocText renders e for a document-service Full Log section.
func DocText(e Entry, loc *time.Location) string {
	ts := DisplayTime(e, loc)
	if e.IsNote() {
		return fmt.Sprintf("[%s] Note: %s", ts, e.Text)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] $ %s\n", ts, e.Command)
	if out := strings.TrimRight(e.Output, "\n"); out != "" {
		sb.WriteString(out)
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, "Exit code: %d", e.ExitCode)
	if e.ExitCode != 0 {
		sb.WriteString(" ⚠ FAILED")
	}
	sb.WriteString("\n────")
	return sb.String()
}
