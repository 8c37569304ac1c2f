package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrNoSession is returned by Load when no session file exists on disk.
var ErrNoSession = errors.New("no active session")

// SessionStore persists the active Session to disk.
type SessionStore interface {
	Save(s *Session) error
	Load() (*Session, error) // returns ErrNoSession if none exists
	Delete() error
}

// diskStore is the concrete SessionStore that writes session.json under the
// termtrace base directory.
type diskStore struct {
	path string // full path to session.json
}

// NewSessionStore returns a SessionStore rooted at baseDir, creating it if
// needed.
func NewSessionStore(baseDir string) (SessionStore, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return &diskStore{path: filepath.Join(baseDir, "session.json")}, nil
}

// BaseDir resolves the termtrace data directory: TERMTRACE_BASE_DIR when set,
// otherwise ~/.termtrace.
func BaseDir(getenv func(string) string) (string, error) {
	if dir := getenv("TERMTRACE_BASE_DIR"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".termtrace"), nil
}

// Save writes s atomically.
func (d *diskStore) Save(s *Session) error {
	if err := writeJSONAtomic(d.path, s); err != nil {
		return fmt.Errorf("failed to persist session state: %w", err)
	}
	return nil
}

// Load reads and unmarshals the session file.
// Returns ErrNoSession if the file does not exist.
func (d *diskStore) Load() (*Session, error) {
	data, err := os.ReadFile(d.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoSession
		}
		return nil, fmt.Errorf("failed to read session state: %w", err)
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse session state: %w", err)
	}
	return &s, nil
}

// Delete removes the session file from disk.
func (d *diskStore) Delete() error {
	if err := os.Remove(d.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete session state: %w", err)
	}
	return nil
}
