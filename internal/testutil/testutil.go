// Package testutil provides helpers shared by tests that start real
// processes or tmux servers.
package testutil

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"
)

// SkipIfNoTmux skips the test if tmux is not installed.
func SkipIfNoTmux(t *testing.T) {
	t.Helper()

	if _, err := exec.LookPath("tmux"); err != nil {
		t.Skip("tmux not found in PATH, skipping test")
	}
}

// SkipIfNoShell skips the test if /bin/sh is missing.
func SkipIfNoShell(t *testing.T) {
	t.Helper()

	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("/bin/sh not available, skipping test")
	}
}

// UniqueSocket returns a tmux socket name private to this test run.
func UniqueSocket(prefix string) string {
	return fmt.Sprintf("%s-%d-%d", prefix, os.Getpid(), time.Now().UnixNano())
}

// WaitForFile polls path until it contains every want string and returns
// its content. The test fails after five seconds.
func WaitForFile(t *testing.T, path string, want ...string) string {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for {
		data, _ := os.ReadFile(path)
		if containsAll(string(data), want) {
			return string(data)
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %q in %s; got %q", want, path, data)
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func containsAll(s string, subs []string) bool {
	for _, sub := range subs {
		if !strings.Contains(s, sub) {
			return false
		}
	}
	return true
}
