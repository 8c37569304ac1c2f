// Package tui provides a read-only Bubble Tea viewer that follows a session
// log as it grows.
package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/fsnotify/fsnotify"

	"github.com/fakeyudi/termtrace/internal/entry"
	"github.com/fakeyudi/termtrace/internal/tail"
)

// ── Styles ────────────

var (
	// Title bar at the very top
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 2)

	activeTabStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	inactiveTabStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("245")).
				Background(lipgloss.Color("235")).
				Padding(0, 1)

	tabSepStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("238")).
			Background(lipgloss.Color("235"))

	sectionHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86"))

	dimStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	timeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("178"))

	noteStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("220")).Bold(true)
	commandStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	outputStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))

	statusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("245")).
			Padding(0, 1)
)

// ── Tab definitions ─────────────────

type tabID int

const (
	tabLog tabID = iota
	tabNotes
	tabFailures
	tabSummary
	tabCount
)

var tabNames = [tabCount]string{"Log", "Notes", "Failures", "Summary"}

// ── Messages ────────────────────

// changeMsg reports that the log or summary file changed on disk.
type changeMsg struct{}

// loadMsg asks for a read without rearming the watcher.
type loadMsg struct{}

type watchErrMsg struct{ err error }

// ── Model ────────────────────

// Model is the root Bubble Tea model for the viewer.
type Model struct {
	logPath     string
	summaryPath string
	tailer      *tail.Tailer
	watcher     *fsnotify.Watcher

	entries   []entry.Entry
	summary   string
	malformed *int
	lastErr   error

	activeTab tabID
	viewports [tabCount]viewport.Model
	filter    textinput.Model
	filtering bool
	follow    bool

	width  int
	height int
	ready  bool
}

// New creates a viewer for the log at logPath. summaryPath may be empty.
func New(logPath, summaryPath string) Model {
	ti := textinput.New()
	ti.Placeholder = "Search logs..."
	ti.CharLimit = 100
	ti.Prompt = "/"

	skipped := new(int)
	return Model{
		logPath:     logPath,
		summaryPath: summaryPath,
		tailer:      tail.New(logPath, tail.WithMalformedHandler(func(*tail.ParseError) { *skipped++ })),
		malformed:   skipped,
		filter:      ti,
		follow:      true,
	}
}

// ── Bubble Tea interface ───────────────

func (m Model) Init() tea.Cmd {
	return tea.Batch(func() tea.Msg { return loadMsg{} }, m.waitForChange())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.filtering {
			return m.updateFilter(msg)
		}
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "tab", "l", "right":
			m.activeTab = (m.activeTab + 1) % tabCount
			return m, nil
		case "shift+tab", "h", "left":
			m.activeTab = (m.activeTab - 1 + tabCount) % tabCount
			return m, nil
		case "1", "2", "3", "4":
			m.activeTab = tabID(msg.String()[0] - '1')
			return m, nil
		case "/":
			m.filtering = true
			m.filter.Focus()
			return m, textinput.Blink
		case "f":
			m.follow = !m.follow
			if m.follow {
				m.viewports[m.activeTab].GotoBottom()
			}
			return m, nil
		case "r":
			m.tailer.Reset()
			m.entries = nil
			*m.malformed = 0
			m.reload()
			return m, nil
		}
		var cmd tea.Cmd
		m.viewports[m.activeTab], cmd = m.viewports[m.activeTab].Update(msg)
		return m, cmd

	case loadMsg:
		m.reload()
		return m, nil

	case changeMsg:
		m.reload()
		return m, m.waitForChange()

	case watchErrMsg:
		m.lastErr = msg.err
		return m, m.waitForChange()

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.initViewports()
		return m, nil
	}
	return m, nil
}

func (m Model) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.filtering = false
		m.filter.Blur()
		return m, nil
	case "esc":
		m.filtering = false
		m.filter.Blur()
		m.filter.SetValue("")
		m.rebuildViewports()
		return m, nil
	}
	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	m.rebuildViewports()
	return m, cmd
}

func (m Model) View() string {
	if !m.ready {
		return "Loading…"
	}

	title := titleStyle.Width(m.width).Render("  termtrace  " + filepath.Base(m.logPath))

	var tabParts []string
	for i := tabID(0); i < tabCount; i++ {
		label := fmt.Sprintf(" %d %s ", i+1, tabNames[i])
		if i == m.activeTab {
			tabParts = append(tabParts, activeTabStyle.Render(label))
		} else {
			tabParts = append(tabParts, inactiveTabStyle.Render(label))
		}
		if i < tabCount-1 {
			tabParts = append(tabParts, tabSepStyle.Render("│"))
		}
	}
	tabRow := lipgloss.NewStyle().
		Background(lipgloss.Color("235")).
		Width(m.width).
		Render(lipgloss.JoinHorizontal(lipgloss.Top, tabParts...))

	content := m.viewports[m.activeTab].View()

	var hint string
	switch {
	case m.filtering:
		hint = "  " + m.filter.View() + "  enter apply  esc clear"
	default:
		hint = "  ←/→ tab  ↑/↓ scroll  / search  f follow  r reload  q quit"
		if v := m.filter.Value(); v != "" {
			hint += "  [" + v + "]"
		}
	}
	right := fmt.Sprintf("%d entries", len(m.entries))
	if m.follow {
		right += "  following"
	}
	if *m.malformed > 0 {
		right += fmt.Sprintf("  %d skipped", *m.malformed)
	}
	if m.lastErr != nil {
		right += "  watch error"
	}
	pad := m.width - lipgloss.Width(hint) - lipgloss.Width(right) - 2
	if pad < 1 {
		pad = 1
	}
	statusBar := statusBarStyle.Width(m.width).Render(hint + strings.Repeat(" ", pad) + right)

	return lipgloss.JoinVertical(lipgloss.Left, title, tabRow, content, statusBar)
}

// ── Data loading ───────────────────────────────────────────────────────────────

// reload pulls new entries from the tailer and rereads the summary file.
func (m *Model) reload() {
	fresh, err := m.tailer.Poll()
	if err != nil {
		m.lastErr = err
	}
	for _, e := range fresh {
		if !e.IsControl() {
			m.entries = append(m.entries, e)
		}
	}
	if m.summaryPath != "" {
		if data, err := os.ReadFile(m.summaryPath); err == nil {
			m.summary = string(data)
		}
	}
	m.rebuildViewports()
}

// waitForChange blocks on the watcher until the log or summary is written.
func (m Model) waitForChange() tea.Cmd {
	if m.watcher == nil {
		return nil
	}
	w := m.watcher
	targets := map[string]bool{filepath.Clean(m.logPath): true}
	if m.summaryPath != "" {
		targets[filepath.Clean(m.summaryPath)] = true
	}
	return func() tea.Msg {
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return nil
				}
				if targets[filepath.Clean(ev.Name)] && ev.Op&(fsnotify.Write|fsnotify.Create) != 0 {
					return changeMsg{}
				}
			case err, ok := <-w.Errors:
				if !ok {
					return nil
				}
				return watchErrMsg{err: err}
			}
		}
	}
}

// ── Viewport management ───────────────────────────────────────────────────────

func (m *Model) initViewports() {
	// title(1) + tabRow(1) + statusBar(1) = 3 fixed rows
	vpHeight := m.height - 3
	if vpHeight < 1 {
		vpHeight = 1
	}
	for i := tabID(0); i < tabCount; i++ {
		m.viewports[i] = viewport.New(m.width, vpHeight)
	}
	m.rebuildViewports()
}

func (m *Model) rebuildViewports() {
	if !m.ready {
		return
	}
	for i := tabID(0); i < tabCount; i++ {
		m.viewports[i].SetContent(m.renderTab(i))
		if m.follow {
			m.viewports[i].GotoBottom()
		}
	}
}

// ── Tab renderers ─────────────────────────────────────────────────────────────

func (m *Model) renderTab(t tabID) string {
	query := m.filter.Value()
	switch t {
	case tabLog:
		return renderEntries("Session Log", m.entries, func(e entry.Entry) bool { return Matches(e, query) })
	case tabNotes:
		return renderEntries("Notes", m.entries, func(e entry.Entry) bool { return e.IsNote() && Matches(e, query) })
	case tabFailures:
		return renderEntries("Failed Commands", m.entries, func(e entry.Entry) bool {
			return e.IsCommand() && e.ExitCode != 0 && Matches(e, query)
		})
	case tabSummary:
		if strings.TrimSpace(m.summary) == "" {
			return heading("Summary") + dimStyle.Render("  (no summary yet)") + "\n"
		}
		return heading("Summary") + m.summary
	}
	return ""
}

func heading(s string) string {
	return "\n" + sectionHeader.Render("  "+s) + "\n\n"
}

func renderEntries(title string, entries []entry.Entry, keep func(entry.Entry) bool) string {
	var sb strings.Builder
	var shown int
	for _, e := range entries {
		if !keep(e) {
			continue
		}
		shown++
		sb.WriteString(renderEntry(e))
		sb.WriteString("\n")
	}
	out := heading(fmt.Sprintf("%s (%d)", title, shown))
	if shown == 0 {
		return out + dimStyle.Render("  (none)") + "\n"
	}
	return out + sb.String()
}

func renderEntry(e entry.Entry) string {
	ts := timeStyle.Render("[" + e.Timestamp + "]")
	if e.IsNote() {
		return fmt.Sprintf("  %s %s %s\n", ts, noteStyle.Render("NOTE:"), e.Text)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "  %s %s %s\n", ts, commandStyle.Render("$"), e.Command)
	exit := lipgloss.NewStyle().Foreground(ExitColor(e.ExitCode)).Bold(true)
	sb.WriteString("    " + exit.Render(fmt.Sprintf("Exit Code: %d", e.ExitCode)) + "\n")
	lines := CleanOutput(e.Output)
	if len(lines) == 0 {
		sb.WriteString("    " + dimStyle.Render("(no output)") + "\n")
		return sb.String()
	}
	for _, line := range lines {
		sb.WriteString("    " + outputStyle.Render(line) + "\n")
	}
	return sb.String()
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// Matches reports whether e contains query, case-insensitively: the text of
// a note, the command or output of anything else. An empty query matches.
func Matches(e entry.Entry, query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	if e.IsNote() {
		return strings.Contains(strings.ToLower(e.Text), q)
	}
	return strings.Contains(strings.ToLower(e.Command), q) || strings.Contains(strings.ToLower(e.Output), q)
}

// ExitColor maps an exit code to a color: success, generic failure, misuse,
// not-executable range, signals, and everything else.
func ExitColor(code int) lipgloss.Color {
	switch {
	case code == 0:
		return lipgloss.Color("82")
	case code == 1:
		return lipgloss.Color("196")
	case code == 2:
		return lipgloss.Color("208")
	case code >= 126 && code <= 128:
		return lipgloss.Color("201")
	case code > 128:
		return lipgloss.Color("196")
	}
	return lipgloss.Color("226")
}

// CleanOutput splits output into lines, trims trailing blank space, and
// collapses runs of blank lines into one.
func CleanOutput(out string) []string {
	out = strings.TrimRight(out, " \t\r\n")
	if out == "" {
		return nil
	}
	var lines []string
	prevBlank := false
	for _, ln := range strings.Split(out, "\n") {
		blank := strings.TrimSpace(ln) == ""
		if blank && prevBlank {
			continue
		}
		lines = append(lines, ln)
		prevBlank = blank
	}
	return lines
}

// Plain renders the entries matching query without styling, for non-terminal
// output.
func Plain(entries []entry.Entry, query string) string {
	var sb strings.Builder
	for _, e := range entries {
		if e.IsControl() || !Matches(e, query) {
			continue
		}
		if e.IsNote() {
			fmt.Fprintf(&sb, "[%s] NOTE: %s\n", e.Timestamp, e.Text)
			continue
		}
		fmt.Fprintf(&sb, "[%s] $ %s\n", e.Timestamp, e.Command)
		fmt.Fprintf(&sb, "    Exit Code: %d\n", e.ExitCode)
		for _, line := range CleanOutput(e.Output) {
			sb.WriteString("    " + line + "\n")
		}
	}
	return sb.String()
}

// Run starts the viewer and follows the log until the user quits.
func Run(logPath, summaryPath string) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create file watcher: %w", err)
	}
	defer w.Close()

	// Watch directories so files created after start are still seen.
	dirs := map[string]bool{filepath.Dir(logPath): true}
	if summaryPath != "" {
		dirs[filepath.Dir(summaryPath)] = true
	}
	for dir := range dirs {
		if err := w.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}

	m := New(logPath, summaryPath)
	m.watcher = w
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err = p.Run()
	return err
}
