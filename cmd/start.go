package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/termtrace/internal/config"
	"github.com/fakeyudi/termtrace/internal/docsync"
	"github.com/fakeyudi/termtrace/internal/engine"
	"github.com/fakeyudi/termtrace/internal/session"
	"github.com/fakeyudi/termtrace/internal/sink"
	"github.com/fakeyudi/termtrace/internal/summarize"
)

var (
	startName    string
	startVerbose bool
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Begin a recording session and publish summaries until interrupted",
	Args:  cobra.NoArgs,
	RunE:  runStart,
}

func runStart(cmd *cobra.Command, args []string) error {
	c := cfg
	if err := applyStartFlags(cmd, &c); err != nil {
		return err
	}
	if err := c.Validate(); err != nil {
		return err
	}

	store, err := session.NewSessionStore(c.BaseDir)
	if err != nil {
		return err
	}
	existing, err := store.Load()
	if err != nil && !errors.Is(err, session.ErrNoSession) {
		return err
	}
	if existing != nil {
		return fmt.Errorf("session already in progress (started at %s)", existing.StartTime.Format(time.RFC3339))
	}

	workspaces := session.NewWorkspaces(c.BaseDir)
	ws, err := workspaces.Create(c.Workspace)
	if err != nil {
		return err
	}
	s := session.New(c.Workspace, workspaces.Dir(c.Workspace), startName, time.Now())
	s.PID = os.Getpid()

	logger, closeLog, err := openDebugLog(s.DebugLogPath, startVerbose, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	creds := config.CredentialsFromEnv(os.Getenv)
	backend := summarize.Resolve(ctx, summarizeSettings(c, creds), logger)

	title := "term-trace: " + c.Workspace
	md, err := sink.NewMarkdown(s.SummaryPath, title)
	if err != nil {
		return err
	}
	sinks := []sink.Sink{md}
	if c.DocumentEnabled() {
		doc, url, err := openDocument(ctx, c, creds, ws, workspaces, logger)
		if err != nil {
			logger.Warn("document sink unavailable; continuing with markdown only", "err", err)
			cmd.PrintErrf("Document sink disabled: %v\n", err)
		} else {
			sinks = append(sinks, doc)
			s.DocumentURL = url
		}
	}

	if err := store.Save(s); err != nil {
		return err
	}
	defer func() {
		if err := store.Delete(); err != nil {
			logger.Error("delete session record", "err", err)
		}
	}()
	if err := workspaces.AddSession(c.Workspace, s.LogPath); err != nil {
		return err
	}

	eng, err := engine.New(engineConfig(c, s.LogPath), backend, sinks, engine.WithLogger(logger))
	if err != nil {
		return err
	}
	if err := eng.Start(ctx); err != nil {
		return err
	}

	cmd.Printf("Session %s started in workspace %s.\n", s.Name, s.Workspace)
	cmd.Printf("Log: %s\n", s.LogPath)
	cmd.Printf("Summary: %s\n", s.SummaryPath)
	if s.DocumentURL != "" {
		cmd.Printf("Document: %s\n", s.DocumentURL)
	}

	select {
	case <-ctx.Done():
	case <-eng.Done():
	}
	stopErr := eng.Stop()

	st := eng.Stats()
	logger.Info("session finished", "mirrored", st.Mirrored, "digests", st.Digests,
		"dropped", st.Dropped, "malformed", st.Malformed, "buffered", st.Buffered,
		"backend", st.Backend, "disabled", st.Disabled)
	cmd.Printf("Session stopped: %d entries, %d digests.\n", st.Mirrored, st.Digests)
	return stopErr
}

// applyStartFlags overlays the flags the user actually set onto c.
func applyStartFlags(cmd *cobra.Command, c *config.Config) error {
	f := cmd.Flags()
	var err error
	if f.Changed("workspace") {
		c.Workspace, err = f.GetString("workspace")
	}
	if err == nil && f.Changed("batch-size") {
		c.BatchSize, err = f.GetInt("batch-size")
	}
	if err == nil && f.Changed("interval") {
		c.Interval, err = f.GetInt("interval")
	}
	if err == nil && f.Changed("summarize") {
		var on bool
		on, err = f.GetBool("summarize")
		c.Summarize.Enabled = &on
	}
	if err == nil && f.Changed("provider") {
		c.Summarize.Provider, err = f.GetString("provider")
	}
	if err == nil && f.Changed("model") {
		c.Summarize.Model, err = f.GetString("model")
	}
	if err == nil && f.Changed("doc") {
		var on bool
		on, err = f.GetBool("doc")
		c.Document.Enabled = &on
	}
	if err == nil && f.Changed("doc-id") {
		c.Document.DocumentID, err = f.GetString("doc-id")
	}
	return err
}

// engineConfig converts the user-facing -1 "disabled" values into the
// engine's zero values.
func engineConfig(c config.Config, logPath string) engine.Config {
	ec := engine.Config{LogPath: logPath}
	if c.BatchSize > 0 {
		ec.BatchSize = c.BatchSize
	}
	if c.Interval > 0 {
		ec.Interval = time.Duration(c.Interval) * time.Second
	}
	return ec
}

func summarizeSettings(c config.Config, creds config.Credentials) summarize.Settings {
	return summarize.Settings{
		Enabled:     c.SummarizeEnabled(),
		Provider:    c.Summarize.Provider,
		APIURL:      c.Summarize.APIURL,
		Model:       c.Summarize.Model,
		APIKey:      creds.APIKey(c.Summarize.Provider),
		Temperature: c.Summarize.Temperature,
		MaxTokens:   c.Summarize.MaxTokens,
		Timeout:     time.Duration(c.Summarize.Timeout) * time.Second,
	}
}

// openDocument binds the document sink. The document id comes from config,
// then from the workspace metadata; failing both a new document is created
// and remembered for the workspace.
func openDocument(ctx context.Context, c config.Config, creds config.Credentials, ws *session.Workspace, workspaces *session.Workspaces, logger *slog.Logger) (sink.Sink, string, error) {
	docID := c.Document.DocumentID
	if docID == "" {
		docID = ws.DocumentID
	}
	svc, err := docsync.NewHTTPService(c.Document.BaseURL, docID, docsync.StaticToken(creds.DocToken),
		time.Duration(c.Document.Timeout)*time.Second)
	if err != nil {
		return nil, "", err
	}

	title := c.Document.Title
	if title == "" {
		title = "term-trace: " + c.Workspace
	}
	if svc.DocumentID() == "" {
		if err := svc.Create(ctx, title); err != nil {
			return nil, "", err
		}
		logger.Info("created document", "document_id", svc.DocumentID())
	}
	if svc.DocumentID() != ws.DocumentID {
		if err := workspaces.SetDocumentID(c.Workspace, svc.DocumentID()); err != nil {
			logger.Warn("remember document id", "err", err)
		}
	}

	ds, err := docsync.New(ctx, svc, title, c.Workspace, docsync.WithLogger(logger))
	if err != nil {
		return nil, "", err
	}
	return sink.NewDocument(ds, time.Local), svc.URL(), nil
}

// openDebugLog returns a logger writing to the session's debug log, and to
// stderr as well when verbose.
func openDebugLog(path string, verbose bool, stderr io.Writer) (*slog.Logger, func(), error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open debug log: %w", err)
	}
	var w io.Writer = f
	if verbose {
		w = io.MultiWriter(f, stderr)
	}
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return logger, func() { f.Close() }, nil
}

func init() {
	f := startCmd.Flags()
	f.StringP("workspace", "w", "", "workspace to record into")
	f.StringVar(&startName, "name", "", "session name (defaults to session_<timestamp>)")
	f.IntP("batch-size", "b", 0, "entries per summary, -1 to disable")
	f.IntP("interval", "i", 0, "seconds between summaries, -1 to disable")
	f.Bool("summarize", true, "summarize with the configured provider")
	f.String("provider", "", "summarization provider: openai, github, huggingface or custom")
	f.String("model", "", "summarization model")
	f.Bool("doc", false, "also publish to the configured document")
	f.String("doc-id", "", "document to publish to")
	f.BoolVarP(&startVerbose, "verbose", "v", false, "copy the debug log to stderr")
	rootCmd.AddCommand(startCmd)
}
