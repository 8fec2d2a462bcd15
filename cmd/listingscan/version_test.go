package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestVersionHelpers(t *testing.T) {
	t.Parallel()

	t.Run("version is never empty", func(t *testing.T) {
		t.Parallel()
		if getVersion() == "" {
			t.Error("getVersion() returned empty string")
		}
	})

	t.Run("commit is abbreviated", func(t *testing.T) {
		t.Parallel()
		c := getCommit()
		if c == "" {
			t.Error("getCommit() returned empty string")
		}
		if len(c) > shortCommitLen && c != "unknown" {
			t.Errorf("expected at most %d characters, got %q", shortCommitLen, c)
		}
	})

	t.Run("missing vcs setting is unknown", func(t *testing.T) {
		t.Parallel()
		if got := vcsSetting("vcs.no-such-key"); got != "unknown" {
			t.Errorf("expected 'unknown', got %q", got)
		}
	})
}

func TestNewVersionCmd(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	cmd := NewVersionCmd()
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := buf.String()
	for _, want := range []string{"listingscan version", "commit:", "built:", "go:"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected output to contain %q, got %q", want, output)
		}
	}
}
