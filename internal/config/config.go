package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds all configurable termtrace settings.
type Config struct {
	Workspace string `json:"workspace" toml:"workspace" yaml:"workspace"`
	BaseDir   string `json:"base_dir" toml:"base_dir" yaml:"base_dir"` // overrides TERMTRACE_BASE_DIR
	// BatchSize is the number of entries per digest; -1 disables the size trigger.
	BatchSize int `json:"batch_size" toml:"batch_size" yaml:"batch_size"`
	// Interval is the seconds between time-triggered digests; -1 disables it.
	Interval  int       `json:"interval" toml:"interval" yaml:"interval"`
	Summarize Summarize `json:"summarize" toml:"summarize" yaml:"summarize"`
	Document  Document  `json:"document" toml:"document" yaml:"document"`
}

// Summarize configures the summarization delegate.
type Summarize struct {
	Enabled     *bool   `json:"enabled,omitempty" toml:"enabled,omitempty" yaml:"enabled,omitempty"`
	Provider    string  `json:"provider" toml:"provider" yaml:"provider"` // "openai" | "github" | "huggingface" | "custom"
	APIURL      string  `json:"api_url" toml:"api_url" yaml:"api_url"`
	Model       string  `json:"model" toml:"model" yaml:"model"`
	Temperature float64 `json:"temperature" toml:"temperature" yaml:"temperature"`
	MaxTokens   int     `json:"max_tokens" toml:"max_tokens" yaml:"max_tokens"`
	Timeout     int     `json:"timeout" toml:"timeout" yaml:"timeout"` // seconds
}

// Document configures the optional document-service sink.
type Document struct {
	Enabled    *bool  `json:"enabled,omitempty" toml:"enabled,omitempty" yaml:"enabled,omitempty"`
	DocumentID string `json:"document_id" toml:"document_id" yaml:"document_id"`
	BaseURL    string `json:"base_url" toml:"base_url" yaml:"base_url"`
	Title      string `json:"title" toml:"title" yaml:"title"`
	Timeout    int    `json:"timeout" toml:"timeout" yaml:"timeout"` // seconds
}

// Defaults returns sensible default configuration values.
func Defaults() Config {
	return Config{
		Workspace: "default",
		BatchSize: 5,
		Interval:  -1,
		Summarize: Summarize{
			Enabled:     boolPtr(true),
			Provider:    "openai",
			Temperature: 0.2,
			MaxTokens:   2000,
			Timeout:     60,
		},
		Document: Document{
			Enabled: boolPtr(false),
			Timeout: 30,
		},
	}
}

func boolPtr(b bool) *bool { return &b }

// SummarizeEnabled reports whether a summarization delegate was requested.
func (c Config) SummarizeEnabled() bool {
	return c.Summarize.Enabled != nil && *c.Summarize.Enabled
}

// DocumentEnabled reports whether the document sink was requested.
func (c Config) DocumentEnabled() bool {
	return c.Document.Enabled != nil && *c.Document.Enabled
}

// globalNames are tried in order inside the global config directory.
var globalNames = []string{"config.toml", "config.yaml", "config.yml", "config.json"}

// LoadGlobal reads ~/.config/termtrace/config.{toml,yaml,yml,json}; the first
// file found wins. Returns defaults if none exists.
func LoadGlobal() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	dir := filepath.Join(home, ".config", "termtrace")
	for _, name := range globalNames {
		cfg, err := loadFile(filepath.Join(dir, name), false)
		if err != nil || cfg != nil {
			return cfg, err
		}
	}
	d := Defaults()
	return &d, nil
}

// LoadProject reads .termtrace (JSON) in the current working directory.
// Returns nil (no error) if the file is absent.
func LoadProject() (*Config, error) {
	return loadFile(".termtrace", false)
}

// loadFile reads and parses the config file at path, choosing the decoder
// from its extension (JSON when there is none).
// If returnDefaults is true, returns defaults when the file is absent.
// If returnDefaults is false, returns nil when the file is absent.
func loadFile(path string, returnDefaults bool) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if returnDefaults {
				d := Defaults()
				return &d, nil
			}
			return nil, nil
		}
		return nil, err
	}
	var cfg Config
	if err := decode(path, data, &cfg); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	return &cfg, nil
}

func decode(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return toml.Unmarshal(data, cfg)
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, cfg)
	default:
		return json.Unmarshal(data, cfg)
	}
}

// Merge combines global and project configs, with project taking precedence.
// Missing keys fall back to global, then defaults.
func Merge(global, project *Config) Config {
	result := Defaults()
	for _, layer := range []*Config{global, project} {
		if layer != nil {
			result.apply(layer)
		}
	}
	return result
}

// apply copies every set field of l over c.
func (c *Config) apply(l *Config) {
	setString(&c.Workspace, l.Workspace)
	setString(&c.BaseDir, l.BaseDir)
	setInt(&c.BatchSize, l.BatchSize)
	setInt(&c.Interval, l.Interval)

	if l.Summarize.Enabled != nil {
		c.Summarize.Enabled = boolPtr(*l.Summarize.Enabled)
	}
	setString(&c.Summarize.Provider, l.Summarize.Provider)
	setString(&c.Summarize.APIURL, l.Summarize.APIURL)
	setString(&c.Summarize.Model, l.Summarize.Model)
	if l.Summarize.Temperature != 0 {
		c.Summarize.Temperature = l.Summarize.Temperature
	}
	setInt(&c.Summarize.MaxTokens, l.Summarize.MaxTokens)
	setInt(&c.Summarize.Timeout, l.Summarize.Timeout)

	if l.Document.Enabled != nil {
		c.Document.Enabled = boolPtr(*l.Document.Enabled)
	}
	setString(&c.Document.DocumentID, l.Document.DocumentID)
	setString(&c.Document.BaseURL, l.Document.BaseURL)
	setString(&c.Document.Title, l.Document.Title)
	setInt(&c.Document.Timeout, l.Document.Timeout)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

// Validate rejects values no layer could have meant.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Workspace) == "" {
		return errors.New("workspace must not be empty")
	}
	if strings.ContainsAny(c.Workspace, `/\`) || c.Workspace == "." || c.Workspace == ".." {
		return fmt.Errorf("invalid workspace name %q", c.Workspace)
	}
	if c.BatchSize < -1 {
		return fmt.Errorf("batch_size must be -1 or positive, got %d", c.BatchSize)
	}
	if c.Interval < -1 {
		return fmt.Errorf("interval must be -1 or positive, got %d", c.Interval)
	}
	if c.Summarize.Timeout < 0 || c.Document.Timeout < 0 {
		return errors.New("timeouts must not be negative")
	}
	return nil
}

// ParseError is returned when a config file exists but cannot be parsed.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return "failed to parse config file " + e.Path + ": " + e.Err.Error()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
