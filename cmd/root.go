package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/termtrace/internal/config"
	"github.com/fakeyudi/termtrace/internal/entry"
	"github.com/fakeyudi/termtrace/internal/session"
)

// cfg holds the merged configuration, populated in PersistentPreRunE.
var cfg config.Config

var rootCmd = &cobra.Command{
	Use:           "termtrace",
	Short:         "Record terminal sessions and publish rolling summaries",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Load and merge config files.
		global, err := config.LoadGlobal()
		if err != nil {
			return fmt.Errorf("loading global config: %w", err)
		}
		project, err := config.LoadProject()
		if err != nil {
			return fmt.Errorf("loading project config: %w", err)
		}
		cfg = config.Merge(global, project)

		if cfg.BaseDir == "" {
			dir, err := session.BaseDir(os.Getenv)
			if err != nil {
				return fmt.Errorf("resolving data directory: %w", err)
			}
			cfg.BaseDir = dir
		}
		return nil
	},
}

// Execute runs the root command. Exits with code 1 on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "termtrace:", err)
		os.Exit(1)
	}
}

// activeSession loads the running session record.
func activeSession() (*session.Session, error) {
	store, err := session.NewSessionStore(cfg.BaseDir)
	if err != nil {
		return nil, err
	}
	s, err := store.Load()
	if err != nil {
		if errors.Is(err, session.ErrNoSession) {
			return nil, fmt.Errorf("no active session")
		}
		return nil, err
	}
	return s, nil
}

// appendToActive writes e to the active session's log.
func appendToActive(e entry.Entry) error {
	s, err := activeSession()
	if err != nil {
		return err
	}
	return entry.Append(s.LogPath, e)
}
