// Package tmux hosts pane-mode teammates as windows in a tmux session.
//
// All commands run against a dedicated socket ("-L <socket>") so agentteam
// windows never mix with the user's own tmux server. Each teammate gets one
// window whose name is its pane title; windows are found and closed by name.
package tmux

import (
	"context"
	"os/exec"
)

// DefaultSocket is the tmux socket used when none is configured.
const DefaultSocket = "agentteam"

// DefaultSession is the session that holds teammate windows.
const DefaultSession = "agentteam"

// CommandContextWithSocket creates a context-aware exec.Cmd for tmux on the
// given socket.
func CommandContextWithSocket(ctx context.Context, socket string, args ...string) *exec.Cmd {
	return exec.CommandContext(ctx, "tmux", CommandArgsWithSocket(socket, args...)...)
}

// CommandArgsWithSocket returns tmux arguments prefixed with the socket
// selection.
func CommandArgsWithSocket(socket string, args ...string) []string {
	return append(BaseArgsWithSocket(socket), args...)
}

// BaseArgsWithSocket returns just the socket arguments [-L, socket].
func BaseArgsWithSocket(socket string) []string {
	return []string{"-L", socket}
}

// Available reports whether a tmux binary is on PATH.
func Available() bool {
	_, err := exec.LookPath("tmux")
	return err == nil
}
