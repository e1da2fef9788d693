package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/Iron-Ham/agentteam/internal/agentexec"
	"github.com/Iron-Ham/agentteam/internal/config"
	"github.com/Iron-Ham/agentteam/internal/lifecycle"
	"github.com/Iron-Ham/agentteam/internal/logging"
	"github.com/Iron-Ham/agentteam/internal/taskgraph"
	"github.com/Iron-Ham/agentteam/internal/team"
	"github.com/Iron-Ham/agentteam/internal/tmux"
	"github.com/Iron-Ham/agentteam/internal/toolbridge"
)

// runtime is the set of collaborators one command invocation works with.
type runtime struct {
	cfg    *config.Config
	logger *logging.Logger
	store  *team.Store
	coord  *lifecycle.Coordinator
	agents *agentexec.Backend
	panes  *tmux.Backend
	caller team.Handle
}

func newRuntime() (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get current directory: %w", err)
	}

	logger := logging.NopLogger()
	if cfg.Logging.Enabled {
		logger, err = logging.NewLogger(cfg.Logging.ResolveDir(cwd), cfg.Logging.Level, logging.RotationConfig{
			MaxSizeMB:  cfg.Logging.MaxSizeMB,
			MaxBackups: cfg.Logging.MaxBackups,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open log: %w", err)
		}
	}

	strategy, err := taskgraph.ParseStrategy(cfg.Team.Assignment)
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	store := team.NewStore(cfg.Team.ResolvePersistDir(cwd), team.WithAssignment(strategy))
	agents := agentexec.NewBackend(cfg.Agent.Command, cfg.Agent.Args,
		agentexec.WithGracefulStop(cfg.Agent.GracefulStop()),
		agentexec.WithWorkDir(cwd),
		agentexec.WithLogger(logger),
	)
	panes := tmux.NewBackend(cfg.Tmux.Socket, cfg.Tmux.Session,
		tmux.WithGracefulStop(cfg.Agent.GracefulStop()),
		tmux.WithWorkDir(cwd),
		tmux.WithLogger(logger),
	)
	coord := lifecycle.New(store, agents,
		lifecycle.WithPaneBackend(panes),
		lifecycle.WithLogger(logger),
		lifecycle.WithCommand(lifecycle.CommandSpec{Program: cfg.Agent.Command, Args: cfg.Agent.Args}),
	)

	return &runtime{
		cfg:    cfg,
		logger: logger,
		store:  store,
		coord:  coord,
		agents: agents,
		panes:  panes,
		caller: team.Handle(cfg.Team.LeadHandle),
	}, nil
}

func (r *runtime) bridge() *toolbridge.Bridge {
	return toolbridge.New(r.coord, r.caller,
		toolbridge.WithLeadName(r.cfg.Team.LeadName),
		toolbridge.WithLogger(r.logger),
	)
}

// Close stops any agents this process is still hosting and closes the log.
func (r *runtime) Close() {
	if err := r.agents.Close(context.Background()); err != nil {
		r.logger.Warn("failed to stop hosted agents", "error", err.Error())
	}
	_ = r.logger.Close()
}

// withRuntime runs fn with a fresh runtime and closes it afterwards.
func withRuntime(fn func(r *runtime) error) error {
	r, err := newRuntime()
	if err != nil {
		return err
	}
	defer r.Close()
	return fn(r)
}
