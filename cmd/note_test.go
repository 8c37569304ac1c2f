package cmd

import (
	"strings"
	"testing"

	"pgregory.net/rapid"

	"github.com/fakeyudi/termtrace/internal/entry"
	"github.com/fakeyudi/termtrace/internal/tail"
)

func readLog(t *testing.T, path string) []entry.Entry {
	t.Helper()
	entries, err := tail.New(path).Poll()
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	return entries
}

func TestNoteWithoutSession(t *testing.T) {
	isolate(t)
	_, err := executeCommand(rootCmd, "note", "hello")
	if err == nil || !strings.Contains(err.Error(), "no active session") {
		t.Fatalf("expected no active session error, got %v", err)
	}
}

// Feature: termtrace, Property 13: notes reach the active session log intact
func TestNotePersistence(t *testing.T) {
	base := isolate(t)
	s := seedSession(t, base)

	var want []string
	rapid.Check(t, func(rt *rapid.T) {
		msg := rapid.StringMatching(`[a-zA-Z0-9][a-zA-Z0-9 .,:!?-]{0,80}`).Draw(rt, "message")
		out, err := executeCommand(rootCmd, "note", msg)
		if err != nil {
			rt.Fatalf("note: %v", err)
		}
		if !strings.Contains(out, "Note added.") {
			rt.Errorf("output = %q", out)
		}
		want = append(want, msg)
	})

	entries := readLog(t, s.LogPath)
	if len(entries) != len(want) {
		t.Fatalf("log has %d entries, want %d", len(entries), len(want))
	}
	for i, e := range entries {
		if !e.IsNote() || e.Text != strings.TrimLeft(want[i], " \t") {
			t.Errorf("entry %d = %+v, want note %q", i, e, want[i])
		}
		if _, ok := e.Time(); !ok {
			t.Errorf("entry %d has unparseable timestamp %q", i, e.Timestamp)
		}
	}
}

func TestFlushAppendsControlSignal(t *testing.T) {
	base := isolate(t)
	s := seedSession(t, base)

	if _, err := executeCommand(rootCmd, "flush"); err != nil {
		t.Fatalf("flush: %v", err)
	}
	entries := readLog(t, s.LogPath)
	if len(entries) != 1 || !entries[0].IsControl() {
		t.Fatalf("entries = %+v, want one summarize signal", entries)
	}
}

func TestRecord(t *testing.T) {
	base := isolate(t)
	s := seedSession(t, base)

	tests := []struct {
		name    string
		args    []string
		wantErr bool
		check   func(t *testing.T, e entry.Entry)
	}{
		{
			name: "command with ansi output",
			args: []string{"2024-03-05T10:11:12Z", "ls --color", "\x1b[32mmain.go\x1b[0m\n", "0"},
			check: func(t *testing.T, e entry.Entry) {
				if !e.IsCommand() || e.Command != "ls --color" || e.Output != "main.go\n" || e.ExitCode != 0 {
					t.Errorf("entry = %+v", e)
				}
			},
		},
		{
			name: "hash line becomes a note",
			args: []string{"2024-03-05T10:11:13Z", "# checking logs", "", "0"},
			check: func(t *testing.T, e entry.Entry) {
				if !e.IsNote() || e.Text != "checking logs" {
					t.Errorf("entry = %+v", e)
				}
			},
		},
		{
			name: "failed command",
			args: []string{"2024-03-05T10:11:14Z", "false", "", " 1 "},
			check: func(t *testing.T, e entry.Entry) {
				if e.ExitCode != 1 {
					t.Errorf("exit code = %d", e.ExitCode)
				}
			},
		},
		{
			name:    "bad exit code",
			args:    []string{"2024-03-05T10:11:15Z", "true", "", "zero"},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := len(readLog(t, s.LogPath))
			_, err := executeCommand(rootCmd, append([]string{"record"}, tt.args...)...)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				if got := len(readLog(t, s.LogPath)); got != before {
					t.Errorf("log grew on error: %d -> %d", before, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("record: %v", err)
			}
			entries := readLog(t, s.LogPath)
			if len(entries) != before+1 {
				t.Fatalf("log has %d entries, want %d", len(entries), before+1)
			}
			tt.check(t, entries[len(entries)-1])
		})
	}
}
