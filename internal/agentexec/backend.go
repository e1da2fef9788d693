// Package agentexec runs teammate agents as child processes attached to
// pseudo-terminals and addresses them by opaque handles.
package agentexec

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/creack/pty"

	"github.com/Iron-Ham/agentteam/internal/errors"
	"github.com/Iron-Ham/agentteam/internal/ident"
	"github.com/Iron-Ham/agentteam/internal/lifecycle"
	"github.com/Iron-Ham/agentteam/internal/logging"
	"github.com/Iron-Ham/agentteam/internal/team"
)

// DefaultGracefulStop is how long Shutdown waits after SIGINT before SIGKILL.
const DefaultGracefulStop = 500 * time.Millisecond

// Environment variables set for every spawned agent.
const (
	EnvTeam  = "AGENTTEAM_TEAM"
	EnvAgent = "AGENTTEAM_AGENT"
	EnvModel = "AGENTTEAM_MODEL"
)

// Option configures a Backend.
type Option func(*Backend)

// WithGracefulStop sets the SIGINT-to-SIGKILL delay.
func WithGracefulStop(d time.Duration) Option {
	return func(b *Backend) { b.graceful = d }
}

// WithWorkDir sets the working directory of spawned agents.
func WithWorkDir(dir string) Option {
	return func(b *Backend) { b.workDir = dir }
}

// WithEnv adds KEY=VALUE entries to every agent's environment.
func WithEnv(env ...string) Option {
	return func(b *Backend) { b.env = append(b.env, env...) }
}

// WithOutput chooses where an agent's terminal output is copied. The
// default discards it.
func WithOutput(fn func(cfg lifecycle.AgentConfig) io.Writer) Option {
	return func(b *Backend) { b.output = fn }
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(b *Backend) { b.logger = l.WithComponent("agentexec") }
}

type process struct {
	cfg  lifecycle.AgentConfig
	cmd  *exec.Cmd
	ptmx *os.File
	done chan struct{}

	writeMu sync.Mutex
}

func (p *process) exited() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// Backend implements lifecycle.AgentBackend with one pty-attached child
// process per agent.
type Backend struct {
	program  string
	args     []string
	workDir  string
	env      []string
	graceful time.Duration
	output   func(cfg lifecycle.AgentConfig) io.Writer
	logger   *logging.Logger

	mu    sync.Mutex
	procs map[team.Handle]*process
}

var _ lifecycle.AgentBackend = (*Backend)(nil)

// NewBackend creates a Backend that starts program with args followed by
// --team, --agent and an optional --model.
func NewBackend(program string, args []string, opts ...Option) *Backend {
	b := &Backend{
		program:  program,
		args:     append([]string(nil), args...),
		graceful: DefaultGracefulStop,
		output:   func(lifecycle.AgentConfig) io.Writer { return io.Discard },
		logger:   logging.NopLogger(),
		procs:    make(map[team.Handle]*process),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Spawn starts an agent and writes initialPrompt to its terminal.
func (b *Backend) Spawn(ctx context.Context, cfg lifecycle.AgentConfig, initialPrompt string, origin lifecycle.Origin) (team.Handle, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	args := append([]string(nil), b.args...)
	args = append(args, "--team", cfg.TeamName, "--agent", cfg.Name)
	if cfg.Model != "" {
		args = append(args, "--model", cfg.Model)
	}

	// The agent outlives the spawning request, so ctx is not bound to cmd.
	cmd := exec.Command(b.program, args...)
	cmd.Dir = b.workDir
	cmd.Env = append(os.Environ(), "TERM=xterm-256color",
		EnvTeam+"="+cfg.TeamName,
		EnvAgent+"="+cfg.Name,
		EnvModel+"="+cfg.Model,
	)
	cmd.Env = append(cmd.Env, b.env...)

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{Rows: 40, Cols: 200})
	if err != nil {
		return "", fmt.Errorf("start %s: %w", b.program, err)
	}

	p := &process{cfg: cfg, cmd: cmd, ptmx: ptmx, done: make(chan struct{})}
	out := b.output(cfg)
	go func() {
		_, _ = io.Copy(out, ptmx) // read fails with EIO once the child exits
		_ = cmd.Wait()
		close(p.done)
	}()

	h := team.Handle(ident.New(ident.PrefixProcess))
	b.mu.Lock()
	b.procs[h] = p
	b.mu.Unlock()

	log := b.logger.WithTeam(cfg.TeamName).WithAgent(cfg.Name)
	log.Info("agent process started", "handle", string(h), "pid", cmd.Process.Pid, "lead_id", origin.LeadID)

	if initialPrompt != "" {
		if err := p.writeLine(initialPrompt); err != nil {
			_ = b.Shutdown(context.WithoutCancel(ctx), h)
			return "", fmt.Errorf("write initial prompt: %w", err)
		}
	}
	return h, nil
}

func (p *process) writeLine(text string) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	_, err := io.WriteString(p.ptmx, text+"\n")
	return err
}

func (b *Backend) lookup(h team.Handle) (*process, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.procs[h]
	if !ok {
		return nil, errors.NewNotFoundError(errors.ResourceAgent, string(h))
	}
	return p, nil
}

// Send writes text as one line of terminal input.
func (b *Backend) Send(_ context.Context, h team.Handle, text string) error {
	p, err := b.lookup(h)
	if err != nil {
		return err
	}
	if p.exited() {
		return errors.NewAgentError("agent process has exited", nil).WithAgent(p.cfg.Name).WithTeam(p.cfg.TeamName)
	}
	return p.writeLine(text)
}

// Shutdown interrupts the agent's process group, waits up to the graceful
// timeout, then kills it.
func (b *Backend) Shutdown(ctx context.Context, h team.Handle) error {
	p, err := b.lookup(h)
	if err != nil {
		return err
	}
	defer func() {
		b.mu.Lock()
		delete(b.procs, h)
		b.mu.Unlock()
		_ = p.ptmx.Close()
	}()

	if p.exited() {
		return nil
	}

	// pty.Start puts the child in its own session, so -pid is its group.
	pid := p.cmd.Process.Pid
	_ = syscall.Kill(-pid, syscall.SIGINT)

	timer := time.NewTimer(b.graceful)
	defer timer.Stop()
	select {
	case <-p.done:
		return nil
	case <-timer.C:
	case <-ctx.Done():
	}

	if err := syscall.Kill(-pid, syscall.SIGKILL); err != nil && err != syscall.ESRCH {
		return fmt.Errorf("kill agent %s: %w", p.cfg.Name, err)
	}
	select {
	case <-p.done:
	case <-time.After(2 * time.Second):
		return fmt.Errorf("agent %s did not exit after SIGKILL", p.cfg.Name)
	}
	b.logger.WithAgent(p.cfg.Name).Info("agent process killed", "handle", string(h))
	return nil
}

// Running reports whether the agent behind h is still alive.
func (b *Backend) Running(h team.Handle) bool {
	p, err := b.lookup(h)
	return err == nil && !p.exited()
}

// Close shuts down every agent started by this backend.
func (b *Backend) Close(ctx context.Context) error {
	b.mu.Lock()
	handles := make([]team.Handle, 0, len(b.procs))
	for h := range b.procs {
		handles = append(handles, h)
	}
	b.mu.Unlock()

	var errs []error
	for _, h := range handles {
		errs = append(errs, b.Shutdown(ctx, h))
	}
	return errors.Join(errs...)
}
