package cmd

import (
	"bytes"
	"strings"
	"testing"
)

func TestDetectShell(t *testing.T) {
	tests := map[string]string{
		"/bin/bash":     "bash",
		"/usr/bin/zsh":  "zsh",
		"/usr/bin/fish": "fish",
		"/opt/pwsh":     "powershell",
		"":              "bash",
	}
	for shell, want := range tests {
		t.Setenv("SHELL", shell)
		if got := detectShell(); got != want {
			t.Errorf("detectShell(%q) = %q, want %q", shell, got, want)
		}
	}
}

func TestGenCompletion(t *testing.T) {
	for _, shell := range []string{"bash", "zsh", "fish", "powershell"} {
		var buf bytes.Buffer
		if err := genCompletion(rootCmd, shell, &buf); err != nil {
			t.Fatalf("%s: %v", shell, err)
		}
		if !strings.Contains(buf.String(), "psqs") {
			t.Errorf("%s completion does not mention psqs", shell)
		}
	}
}
