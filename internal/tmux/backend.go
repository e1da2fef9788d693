package tmux

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gobwas/glob"

	"github.com/Iron-Ham/agentteam/internal/logging"
)

// runFunc executes one tmux command (without the socket prefix) and returns
// its stdout.
type runFunc func(ctx context.Context, args ...string) ([]byte, error)

// Option configures a Backend.
type Option func(*Backend)

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(b *Backend) { b.logger = l.WithComponent("tmux") }
}

// WithGracefulStop sets how long ClosePaneByTitle waits after Ctrl+C before
// killing the window.
func WithGracefulStop(d time.Duration) Option {
	return func(b *Backend) { b.graceful = d }
}

// WithWorkDir sets the working directory of new windows.
func WithWorkDir(dir string) Option {
	return func(b *Backend) { b.workDir = dir }
}

// Backend implements lifecycle.PaneBackend on top of tmux windows.
type Backend struct {
	socket   string
	session  string
	workDir  string
	graceful time.Duration
	logger   *logging.Logger
	run      runFunc
}

// NewBackend creates a Backend for the given socket and session names.
func NewBackend(socket, session string, opts ...Option) *Backend {
	if socket == "" {
		socket = DefaultSocket
	}
	if session == "" {
		session = DefaultSession
	}
	b := &Backend{
		socket:   socket,
		session:  session,
		graceful: DefaultGracefulStop,
		logger:   logging.NopLogger(),
	}
	b.run = func(ctx context.Context, args ...string) ([]byte, error) {
		return CommandContextWithSocket(ctx, b.socket, args...).Output()
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Socket returns the tmux socket name.
func (b *Backend) Socket() string { return b.socket }

// Session returns the tmux session name.
func (b *Backend) Session() string { return b.session }

// Available reports whether tmux can be used.
func (b *Backend) Available(context.Context) bool {
	return Available()
}

// OpenPane starts command in a new window named title, creating the
// session on first use.
func (b *Backend) OpenPane(ctx context.Context, title, command string) error {
	dirArgs := []string{}
	if b.workDir != "" {
		dirArgs = []string{"-c", b.workDir}
	}

	if _, err := b.run(ctx, "has-session", "-t", b.session); err != nil {
		args := append([]string{"new-session", "-d", "-s", b.session, "-n", title}, dirArgs...)
		args = append(args, command)
		if _, err := b.run(ctx, args...); err != nil {
			return fmt.Errorf("failed to create tmux session %s: %w", b.session, err)
		}
		b.logger.Info("created tmux session", "session", b.session, "window", title)
		return nil
	}

	args := append([]string{"new-window", "-d", "-t", b.session + ":", "-n", title}, dirArgs...)
	args = append(args, command)
	if _, err := b.run(ctx, args...); err != nil {
		return fmt.Errorf("failed to open tmux window %s: %w", title, err)
	}
	b.logger.Info("opened tmux window", "window", title)
	return nil
}

type window struct {
	id   string
	name string
}

// windows lists the session's windows. A missing server or session yields
// no windows.
func (b *Backend) windows(ctx context.Context) []window {
	out, err := b.run(ctx, "list-windows", "-t", b.session, "-F", "#{window_id}\t#{window_name}")
	if err != nil {
		return nil
	}
	var ws []window
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		id, name, ok := strings.Cut(line, "\t")
		if !ok {
			continue
		}
		ws = append(ws, window{id: id, name: name})
	}
	return ws
}

// ListPaneTitles returns the names of the session's windows.
func (b *Backend) ListPaneTitles(ctx context.Context) []string {
	var titles []string
	for _, w := range b.windows(ctx) {
		titles = append(titles, w.name)
	}
	return titles
}

// ClosePaneByTitle stops every window named title and returns how many
// were closed.
func (b *Backend) ClosePaneByTitle(ctx context.Context, title string) int {
	return b.closeWhere(ctx, func(name string) bool { return name == title })
}

// ClosePanesMatching stops every window whose name matches a glob pattern
// such as "proj-*".
func (b *Backend) ClosePanesMatching(ctx context.Context, pattern string) (int, error) {
	g, err := glob.Compile(pattern)
	if err != nil {
		return 0, fmt.Errorf("invalid pane pattern %q: %w", pattern, err)
	}
	return b.closeWhere(ctx, g.Match), nil
}

// TitlesMatching lists window names matching a glob pattern.
func (b *Backend) TitlesMatching(ctx context.Context, pattern string) ([]string, error) {
	g, err := glob.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid pane pattern %q: %w", pattern, err)
	}
	var out []string
	for _, name := range b.ListPaneTitles(ctx) {
		if g.Match(name) {
			out = append(out, name)
		}
	}
	return out, nil
}

func (b *Backend) closeWhere(ctx context.Context, match func(string) bool) int {
	closed := 0
	for _, w := range b.windows(ctx) {
		if !match(w.name) {
			continue
		}
		b.stopWindow(ctx, w)
		closed++
	}
	return closed
}

// stopWindow captures the window's process tree, sends Ctrl+C, waits for
// the pane process to exit, kills the window, then force-kills survivors.
func (b *Backend) stopWindow(ctx context.Context, w window) {
	pids := b.processTree(ctx, w.id)
	panePID := 0
	if len(pids) > 0 {
		panePID = pids[0]
	}

	if _, err := b.run(ctx, "send-keys", "-t", w.id, "C-c"); err != nil {
		b.logger.Debug("failed to send Ctrl+C", "window", w.name, "error", err.Error())
	}
	awaitExit(panePID, b.graceful)

	if _, err := b.run(ctx, "kill-window", "-t", w.id); err != nil {
		b.logger.Warn("failed to kill tmux window", "window", w.name, "error", err.Error())
	}
	killSurvivors(pids)
	b.logger.Info("closed tmux window", "window", w.name)
}

// processTree returns the pane PID of target and all its descendants.
func (b *Backend) processTree(ctx context.Context, target string) []int {
	out, err := b.run(ctx, "display-message", "-t", target, "-p", "#{pane_pid}")
	if err != nil {
		return nil
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(out)))
	if err != nil || pid <= 0 {
		return nil
	}
	return append([]int{pid}, descendants(pid)...)
}

// KillServer terminates the tmux server behind the socket along with any
// remaining windows.
func (b *Backend) KillServer(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	_, err := b.run(ctx, "kill-server")
	return err
}
