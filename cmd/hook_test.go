package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestHookInstall(t *testing.T) {
	isolate(t)
	home := os.Getenv("HOME")

	out, err := executeCommand(rootCmd, "hook", "zsh")
	if err != nil {
		t.Fatalf("hook: %v", err)
	}
	path := filepath.Join(home, ".config", "termtrace", "termtrace.hook.zsh")
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("hook file: %v", err)
	}
	if !strings.Contains(out, "source "+path) {
		t.Errorf("output = %q", out)
	}
}

func TestHookPrint(t *testing.T) {
	isolate(t)
	out, err := executeCommand(rootCmd, "hook", "bash", "--print")
	hookPrint = false
	if err != nil {
		t.Fatalf("hook --print: %v", err)
	}
	if !strings.Contains(out, "PROMPT_COMMAND") {
		t.Errorf("output = %q", out)
	}
}
