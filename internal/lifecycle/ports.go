package lifecycle

import (
	"context"

	"github.com/Iron-Ham/agentteam/internal/team"
)

// AgentConfig describes the agent an AgentBackend should start.
type AgentConfig struct {
	TeamName string
	Name     string
	Model    string
}

// Origin identifies who asked for an agent to be spawned.
type Origin struct {
	TeamName string
	LeadID   string
	Caller   team.Handle
}

// AgentBackend spawns, messages and stops agents by handle.
type AgentBackend interface {
	Spawn(ctx context.Context, cfg AgentConfig, initialPrompt string, origin Origin) (team.Handle, error)
	Send(ctx context.Context, h team.Handle, text string) error
	Shutdown(ctx context.Context, h team.Handle) error
}

// PaneBackend hosts out-of-process agents in titled terminal panes.
type PaneBackend interface {
	OpenPane(ctx context.Context, title, command string) error
	ClosePaneByTitle(ctx context.Context, title string) int
	ListPaneTitles(ctx context.Context) []string
}

// availabilityChecker is implemented by pane backends that can report
// whether their multiplexer is usable in the current environment.
type availabilityChecker interface {
	Available(ctx context.Context) bool
}
