package lifecycle

import (
	"context"
	"fmt"
	"sync"

	"github.com/Iron-Ham/agentteam/internal/errors"
	"github.com/Iron-Ham/agentteam/internal/logging"
	"github.com/Iron-Ham/agentteam/internal/team"
)

// DefaultLeadName is used when a create request names no lead.
const DefaultLeadName = "lead"

// CreateRequest asks for a team and its initial teammates.
type CreateRequest struct {
	TeamName string
	LeadName string
	Agents   []AgentSpec
	Mode     Mode
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithPaneBackend enables pane-hosted teammates.
func WithPaneBackend(p PaneBackend) Option {
	return func(c *Coordinator) { c.panes = p }
}

// WithLogger sets the logger. The default discards output.
func WithLogger(l *logging.Logger) Option {
	return func(c *Coordinator) { c.logger = l.WithComponent("lifecycle") }
}

// WithCommand sets the program used to start pane-hosted teammates.
func WithCommand(cs CommandSpec) Option {
	return func(c *Coordinator) { c.command = cs }
}

// Coordinator drives team creation, teammate shutdown, message delivery and
// teardown against the injected backends. Transactions that spawn or tear
// down agents are serialized.
type Coordinator struct {
	store   *team.Store
	agents  AgentBackend
	panes   PaneBackend
	logger  *logging.Logger
	command CommandSpec

	mu sync.Mutex
}

// New creates a Coordinator. agents may be nil when only panes are used.
func New(store *team.Store, agents AgentBackend, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:   store,
		agents:  agents,
		logger:  logging.NopLogger(),
		command: CommandSpec{Program: "claude"},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Store returns the underlying team store.
func (c *Coordinator) Store() *team.Store {
	return c.store
}

// CreateOrJoin creates the team described by req and spawns its teammates,
// or joins the resident team when it has exactly the requested name. A
// different resident team is an AlreadyExists error.
//
// On the first teammate that fails to start, every teammate started so far
// is torn down in reverse order, the team is deleted, and an AgentError
// naming the failed teammate is returned.
func (c *Coordinator) CreateOrJoin(ctx context.Context, caller team.Handle, req CreateRequest) (team.StateData, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := ValidateSpecs(req.Agents); err != nil {
		return team.StateData{}, err
	}
	mode, err := c.resolveMode(ctx, req.Mode)
	if err != nil {
		return team.StateData{}, err
	}
	if req.LeadName == "" {
		req.LeadName = DefaultLeadName
	}

	existing, err := c.store.GetTeam()
	switch {
	case err == nil:
		if existing.TeamName != req.TeamName {
			return team.StateData{}, errors.NewAlreadyExistsError(errors.ResourceTeam, existing.TeamName)
		}
		return c.join(ctx, existing, mode)
	case !errors.Is(err, errors.ErrTeamNotFound):
		return team.StateData{}, err
	}

	log := c.logger.WithTeam(req.TeamName)

	state, err := c.store.CreateTeam(req.TeamName, req.LeadName)
	if err != nil {
		var storageErr *errors.StorageError
		if errors.As(err, &storageErr) {
			c.discardTeam(log)
		}
		return team.StateData{}, err
	}
	log.Info("team created", "lead", req.LeadName, "mode", string(mode), "teammates", len(req.Agents))

	if caller != "" {
		if _, err := c.store.BindLeadHandle(caller); err != nil {
			c.discardTeam(log)
			return team.StateData{}, err
		}
	}

	origin := Origin{TeamName: state.TeamName, LeadID: state.LeadID, Caller: caller}
	var undo []func()
	for _, spec := range req.Agents {
		undoFn, err := c.startTeammate(ctx, mode, origin, spec)
		if err != nil {
			log.WithAgent(spec.Name).Warn("teammate failed to start, rolling back",
				"error", err.Error(), "started", len(undo))
			for i := len(undo) - 1; i >= 0; i-- {
				undo[i]()
			}
			c.discardTeam(log)
			return team.StateData{}, errors.NewAgentError("failed to spawn teammate", err).
				WithAgent(spec.Name).WithTeam(state.TeamName).WithRolledBack(true)
		}
		undo = append(undo, undoFn)
	}

	return c.store.GetTeam()
}

// discardTeam deletes the just-created team during a rollback.
func (c *Coordinator) discardTeam(log *logging.Logger) {
	if err := c.store.Cleanup(); err != nil {
		log.Error("failed to delete team during rollback", "error", err.Error())
	}
}

// startTeammate spawns one teammate and registers it. The returned func
// undoes the spawn.
func (c *Coordinator) startTeammate(ctx context.Context, mode Mode, origin Origin, spec AgentSpec) (func(), error) {
	log := c.logger.WithTeam(origin.TeamName).WithAgent(spec.Name)

	switch mode {
	case ModeTmux:
		title := PaneTitle(origin.TeamName, spec.Name)
		if err := c.panes.OpenPane(ctx, title, c.command.StartupCommand(origin.TeamName, spec)); err != nil {
			return nil, fmt.Errorf("open pane %q: %w", title, err)
		}
		closePane := func() {
			n := c.panes.ClosePaneByTitle(context.WithoutCancel(ctx), title)
			log.Info("closed teammate pane", "title", title, "closed", n)
		}
		if _, err := c.store.AddAgent(spec.Name, team.RoleTeammate, "", spec.Model); err != nil {
			closePane()
			return nil, err
		}
		log.Info("teammate started in pane", "title", title)
		return closePane, nil

	default:
		cfg := AgentConfig{TeamName: origin.TeamName, Name: spec.Name, Model: spec.Model}
		h, err := c.agents.Spawn(ctx, cfg, spec.Prompt, origin)
		if err != nil {
			return nil, err
		}
		stop := func() {
			if err := c.agents.Shutdown(context.WithoutCancel(ctx), h); err != nil {
				log.Warn("failed to stop teammate", "handle", string(h), "error", err.Error())
				return
			}
			log.Info("stopped teammate", "handle", string(h))
		}
		if _, err := c.store.AddAgent(spec.Name, team.RoleTeammate, h, spec.Model); err != nil {
			stop()
			return nil, err
		}
		log.Info("teammate spawned", "handle", string(h))
		return stop, nil
	}
}

// join returns the resident team. In tmux mode it reopens panes for active
// pane-hosted teammates whose panes are missing.
func (c *Coordinator) join(ctx context.Context, state team.StateData, mode Mode) (team.StateData, error) {
	log := c.logger.WithTeam(state.TeamName)
	if mode != ModeTmux || c.panes == nil {
		log.Debug("joined existing team")
		return state, nil
	}

	open := make(map[string]bool)
	for _, title := range c.panes.ListPaneTitles(ctx) {
		open[title] = true
	}

	for _, a := range state.Teammates() {
		if a.Status == team.AgentShutdown || a.Handle != "" {
			continue
		}
		title := PaneTitle(state.TeamName, a.Name)
		if open[title] {
			continue
		}
		spec := AgentSpec{Name: a.Name, Model: a.Model}
		if err := c.panes.OpenPane(ctx, title, c.command.StartupCommand(state.TeamName, spec)); err != nil {
			log.WithAgent(a.Name).Warn("failed to reopen teammate pane", "title", title, "error", err.Error())
			continue
		}
		log.WithAgent(a.Name).Info("reopened teammate pane", "title", title)
	}
	return state, nil
}

// ShutdownAgent tears down a teammate through its backend and marks it
// Shutdown. Backend failures are logged and do not prevent the status
// change. The lead cannot be shut down.
func (c *Coordinator) ShutdownAgent(ctx context.Context, idOrName string) (team.Agent, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	state, err := c.store.GetTeam()
	if err != nil {
		return team.Agent{}, err
	}
	agent, err := c.store.FindAgent(idOrName)
	if err != nil {
		return team.Agent{}, err
	}
	if agent.Role == team.RoleLead || agent.ID == state.LeadID {
		return team.Agent{}, errors.NewInvalidOperationError("shut down agent", "the team lead cannot be shut down").
			WithSubjects(agent.Name)
	}

	c.teardown(ctx, state.TeamName, agent)
	return c.store.UpdateAgentStatus(agent.ID, team.AgentShutdown)
}

// teardown stops an agent best-effort.
func (c *Coordinator) teardown(ctx context.Context, teamName string, a team.Agent) {
	log := c.logger.WithTeam(teamName).WithAgent(a.Name)
	switch {
	case a.Handle != "" && c.agents != nil:
		if err := c.agents.Shutdown(ctx, a.Handle); err != nil {
			log.Warn("backend shutdown failed; marking agent shut down anyway", "error", err.Error())
			return
		}
		log.Info("agent shut down", "handle", string(a.Handle))
	case a.Handle == "" && c.panes != nil:
		n := c.panes.ClosePaneByTitle(ctx, PaneTitle(teamName, a.Name))
		log.Info("agent pane closed", "closed", n)
	default:
		log.Debug("no backend holds this agent")
	}
}

// Cleanup deletes the team. Only the caller bound as the lead may do so,
// and only once every teammate is Shutdown. The check and the removal are
// one store transaction; teammate panes still open afterwards are closed.
func (c *Coordinator) Cleanup(ctx context.Context, caller team.Handle) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	state, err := c.store.GetTeam()
	if err != nil {
		return err
	}
	lead, ok := state.Lead()
	if !ok || lead.Handle == "" || lead.Handle != caller {
		return errors.NewInvalidOperationError("clean up team", "only the team lead may clean up the team")
	}

	removed, err := c.store.CleanupIfAllowed()
	if err != nil {
		return err
	}

	log := c.logger.WithTeam(removed.TeamName)
	if c.panes != nil {
		for _, a := range removed.Teammates() {
			if a.Handle != "" {
				continue
			}
			if n := c.panes.ClosePaneByTitle(ctx, PaneTitle(removed.TeamName, a.Name)); n > 0 {
				log.WithAgent(a.Name).Info("closed leftover pane", "closed", n)
			}
		}
	}
	log.Info("team cleaned up")
	return nil
}

// SendMessage records a message and delivers it to the recipient when the
// recipient is an in-process agent that is not shut down. A delivery
// failure is returned after the message has been recorded.
func (c *Coordinator) SendMessage(ctx context.Context, from, to, body string) (team.Message, error) {
	msg, err := c.store.SendMessage(from, to, body)
	if err != nil {
		return msg, err
	}
	agent, err := c.store.FindAgent(to)
	if err != nil {
		return msg, nil
	}
	return msg, c.deliver(ctx, agent, msg)
}

// Broadcast records one message per active teammate and delivers each to
// in-process recipients. Delivery failures are joined.
func (c *Coordinator) Broadcast(ctx context.Context, from, body string) ([]team.Message, error) {
	msgs, err := c.store.Broadcast(from, body)
	if err != nil {
		return msgs, err
	}
	agents, err := c.store.ListAgents()
	if err != nil {
		return msgs, err
	}

	var errs []error
	for _, msg := range msgs {
		for _, a := range agents {
			if a.Name == msg.To && a.Role == team.RoleTeammate && a.Status != team.AgentShutdown {
				errs = append(errs, c.deliver(ctx, a, msg))
				break
			}
		}
	}
	return msgs, errors.Join(errs...)
}

func (c *Coordinator) deliver(ctx context.Context, a team.Agent, msg team.Message) error {
	if a.Handle == "" || a.Status == team.AgentShutdown || c.agents == nil {
		return nil
	}
	text := fmt.Sprintf("[message from %s] %s", msg.From, msg.Body)
	if err := c.agents.Send(ctx, a.Handle, text); err != nil {
		return fmt.Errorf("deliver message %s to %s: %w", msg.ID, a.Name, err)
	}
	return nil
}
