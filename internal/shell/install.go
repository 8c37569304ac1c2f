// Package shell writes the shell hooks that feed commands into the active
// session log.
package shell

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Supported lists the shells a hook exists for.
var Supported = []string{"zsh", "bash"}

// Plugin returns the hook source for shell.
func Plugin(shell string) (string, error) {
	switch shell {
	case "zsh":
		return ZshPlugin, nil
	case "bash":
		return BashPlugin, nil
	}
	return "", fmt.Errorf("unsupported shell for hook: %s (supported: zsh, bash)", shell)
}

// PluginPath returns where the hook file for shell lives under configDir
// (usually ~/.config/termtrace).
func PluginPath(configDir, shell string) string {
	return filepath.Join(configDir, "termtrace.hook."+shell)
}

// Install writes the hook file for shell into configDir and prints the
// source instruction the user needs to add to their rc file.
func Install(w io.Writer, configDir, shell string) (string, error) {
	content, err := Plugin(shell)
	if err != nil {
		return "", err
	}
	path := PluginPath(configDir, shell)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("writing hook file: %w", err)
	}

	rcFile := rcFileName(shell)
	fmt.Fprintf(w, "\n  ✓ Hook written to %s\n", path)
	fmt.Fprintf(w, "\n  Add this line to your %s:\n", rcFile)
	fmt.Fprintf(w, "    source %s\n", path)
	fmt.Fprintf(w, "\n  Then reload: source %s\n\n", rcFile)
	return path, nil
}

// IsInstalled reports whether the hook file exists on disk.
func IsInstalled(configDir, shell string) bool {
	_, err := os.Stat(PluginPath(configDir, shell))
	return err == nil
}

func rcFileName(shell string) string {
	switch shell {
	case "zsh":
		return "~/.zshrc"
	case "bash":
		return "~/.bashrc"
	default:
		return "~/." + shell + "rc"
	}
}
