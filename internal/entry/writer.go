package entry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/x/ansi"
)

// Now returns the current time in the log's timestamp format.
func Now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// FromShell builds the entry for one shell invocation. A command line that
// starts with '#' is recorded as a note; anything else is a command whose
// output has terminal control sequences removed.
func FromShell(timestamp, command, output string, exitCode int) Entry {
	if strings.HasPrefix(command, "#") {
		return Note(timestamp, command[1:])
	}
	return Entry{
		Kind:      KindCommand,
		Timestamp: timestamp,
		Command:   command,
		Output:    ansi.Strip(output),
		ExitCode:  exitCode,
	}
}

// Note builds a note entry. Leading whitespace is dropped from text.
func Note(timestamp, text string) Entry {
	return Entry{
		Kind:      KindNote,
		Timestamp: timestamp,
		Text:      strings.TrimLeft(text, " \t"),
	}
}

// Summarize builds a summarize control signal.
func Summarize(timestamp string) Entry {
	return Entry{Kind: KindSummarize, Timestamp: timestamp}
}

// Append writes e to the log at path as a single line. The whole line goes
// out in one write on a file opened with O_APPEND so concurrent producers
// never interleave partial lines.
func Append(path string, e Entry) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(e); err != nil {
		return fmt.Errorf("encode entry: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	if _, err := f.Write(buf.Bytes()); err != nil {
		f.Close()
		return fmt.Errorf("append entry: %w", err)
	}
	return f.Close()
}
