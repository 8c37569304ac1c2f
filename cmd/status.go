package cmd

import (
	"errors"
	"os"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/termtrace/internal/session"
	"github.com/fakeyudi/termtrace/internal/tail"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current recording session",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := session.NewSessionStore(cfg.BaseDir)
		if err != nil {
			return err
		}

		s, err := store.Load()
		if err != nil {
			if errors.Is(err, session.ErrNoSession) {
				cmd.Println("no active session")
				return nil
			}
			return err
		}

		var entries, skipped int
		polled, err := tail.New(s.LogPath, tail.WithMalformedHandler(func(*tail.ParseError) { skipped++ })).Poll()
		if err != nil {
			return err
		}
		for _, e := range polled {
			if !e.IsControl() {
				entries++
			}
		}

		cmd.Printf("Session: %s\n", s.Name)
		cmd.Printf("Workspace: %s\n", s.Workspace)
		cmd.Printf("Started: %s\n", s.StartTime.Format(time.RFC3339))
		cmd.Printf("Duration: %s\n", time.Since(s.StartTime).Round(time.Second).String())
		cmd.Printf("Entries: %d\n", entries)
		if skipped > 0 {
			cmd.Printf("Malformed lines: %d\n", skipped)
		}
		cmd.Printf("Log: %s\n", s.LogPath)
		cmd.Printf("Summary: %s\n", s.SummaryPath)
		if s.DocumentURL != "" {
			cmd.Printf("Document: %s\n", s.DocumentURL)
		}
		if !processAlive(s.PID) {
			cmd.Println("Warning: the recording process is no longer running")
		}
		return nil
	},
}

// processAlive reports whether pid still names a live process.
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	p, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return p.Signal(syscall.Signal(0)) == nil
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
