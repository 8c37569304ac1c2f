package session

import (
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Session represents an active recording session.
type Session struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Workspace    string    `json:"workspace"`
	LogPath      string    `json:"log_path"`     // JSONL entry log written by the shell hook
	SummaryPath  string    `json:"summary_path"` // workspace-level markdown file
	DebugLogPath string    `json:"debug_log_path"`
	DocumentURL  string    `json:"document_url,omitempty"`
	PID          int       `json:"pid"`
	StartTime    time.Time `json:"start_time"`
}

// New lays out a session named after start inside workspaceDir. An empty
// name defaults to session_<yyyymmdd_hhmmss>.
func New(workspace, workspaceDir, name string, start time.Time) *Session {
	stamp := start.Format("20060102_150405")
	if name == "" {
		name = "session_" + stamp
	}
	return &Session{
		ID:           uuid.NewString(),
		Name:         name,
		Workspace:    workspace,
		LogPath:      filepath.Join(workspaceDir, "session_"+stamp+".jsonl"),
		SummaryPath:  filepath.Join(workspaceDir, workspace+"_summary.md"),
		DebugLogPath: filepath.Join(workspaceDir, "session_"+stamp+"_debug.log"),
		StartTime:    start,
	}
}
