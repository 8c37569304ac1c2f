package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
)

// ErrNoWorkspace is returned when a workspace has not been created.
var ErrNoWorkspace = errors.New("workspace not found")

// Workspace is the metadata kept in <workspace>/meta.json.
type Workspace struct {
	Name       string   `json:"name"`
	Sessions   []string `json:"sessions"`
	DocumentID string   `json:"document_id,omitempty"` // remembered document-sink target
}

// Workspaces manages the workspace directories under a root.
type Workspaces struct {
	root string
}

// NewWorkspaces returns a manager for <baseDir>/workspaces.
func NewWorkspaces(baseDir string) *Workspaces {
	return &Workspaces{root: filepath.Join(baseDir, "workspaces")}
}

// Dir returns the directory of the named workspace.
func (w *Workspaces) Dir(name string) string { return filepath.Join(w.root, name) }

func (w *Workspaces) metaPath(name string) string { return filepath.Join(w.Dir(name), "meta.json") }

// Create makes the workspace directory and its metadata if missing, and
// returns the current metadata.
func (w *Workspaces) Create(name string) (*Workspace, error) {
	if err := os.MkdirAll(w.Dir(name), 0o755); err != nil {
		return nil, fmt.Errorf("create workspace %s: %w", name, err)
	}
	ws, err := w.Load(name)
	if !errors.Is(err, ErrNoWorkspace) {
		return ws, err
	}
	ws = &Workspace{Name: name, Sessions: []string{}}
	if err := w.save(ws); err != nil {
		return nil, err
	}
	return ws, nil
}

// Load reads the workspace metadata.
func (w *Workspaces) Load(name string) (*Workspace, error) {
	data, err := os.ReadFile(w.metaPath(name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNoWorkspace, name)
		}
		return nil, fmt.Errorf("read workspace %s: %w", name, err)
	}
	var ws Workspace
	if err := json.Unmarshal(data, &ws); err != nil {
		return nil, fmt.Errorf("parse workspace %s: %w", name, err)
	}
	return &ws, nil
}

// List returns the names of all workspaces, sorted.
func (w *Workspaces) List() ([]string, error) {
	entries, err := os.ReadDir(w.root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list workspaces: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// AddSession records a session log in the workspace. Adding the same path
// twice is a no-op.
func (w *Workspaces) AddSession(name, logPath string) error {
	ws, err := w.Load(name)
	if err != nil {
		return err
	}
	if slices.Contains(ws.Sessions, logPath) {
		return nil
	}
	ws.Sessions = append(ws.Sessions, logPath)
	return w.save(ws)
}

// SetDocumentID remembers the document the workspace publishes to.
func (w *Workspaces) SetDocumentID(name, id string) error {
	ws, err := w.Load(name)
	if err != nil {
		return err
	}
	ws.DocumentID = id
	return w.save(ws)
}

func (w *Workspaces) save(ws *Workspace) error {
	if err := writeJSONAtomic(w.metaPath(ws.Name), ws); err != nil {
		return fmt.Errorf("write workspace %s: %w", ws.Name, err)
	}
	return nil
}
