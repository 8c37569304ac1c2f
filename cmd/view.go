package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"github.com/fakeyudi/termtrace/internal/session"
	"github.com/fakeyudi/termtrace/internal/tail"
	"github.com/fakeyudi/termtrace/internal/tui"
)

var (
	plainOutput bool
	viewFilter  string
)

var viewCmd = &cobra.Command{
	Use:   "view [log]",
	Short: "Follow a session log (the active one by default)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logPath, summaryPath, err := resolveViewTarget(args)
		if err != nil {
			return err
		}
		if _, err := os.Stat(logPath); err != nil {
			if os.IsNotExist(err) {
				return fmt.Errorf("file not found: %s", logPath)
			}
			return err
		}

		if plainOutput || !term.IsTerminal(os.Stdout.Fd()) {
			entries, err := tail.New(logPath, tail.WithMalformedHandler(func(*tail.ParseError) {})).Poll()
			if err != nil {
				return err
			}
			cmd.Print(tui.Plain(entries, viewFilter))
			return nil
		}
		return tui.Run(logPath, summaryPath)
	},
}

// resolveViewTarget picks the log to show: an explicit path, the active
// session, or the newest session of the configured workspace.
func resolveViewTarget(args []string) (logPath, summaryPath string, err error) {
	workspaces := session.NewWorkspaces(cfg.BaseDir)
	if len(args) == 1 {
		logPath = args[0]
		summaryPath = filepath.Join(filepath.Dir(logPath), filepath.Base(filepath.Dir(logPath))+"_summary.md")
		return logPath, summaryPath, nil
	}

	if s, err := activeSession(); err == nil {
		return s.LogPath, s.SummaryPath, nil
	}

	ws, err := workspaces.Load(cfg.Workspace)
	if err != nil {
		if errors.Is(err, session.ErrNoWorkspace) {
			return "", "", fmt.Errorf("no active session and no workspace %q to show", cfg.Workspace)
		}
		return "", "", err
	}
	if len(ws.Sessions) == 0 {
		return "", "", fmt.Errorf("workspace %q has no sessions", cfg.Workspace)
	}
	dir := workspaces.Dir(cfg.Workspace)
	return ws.Sessions[len(ws.Sessions)-1], filepath.Join(dir, cfg.Workspace+"_summary.md"), nil
}

func init() {
	viewCmd.Flags().BoolVar(&plainOutput, "plain", false, "plain text output instead of TUI")
	viewCmd.Flags().StringVar(&viewFilter, "filter", "", "only show entries containing this text (plain output)")
	rootCmd.AddCommand(viewCmd)
}
