package team

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/Iron-Ham/agentteam/internal/errors"
	"github.com/Iron-Ham/agentteam/internal/ident"
	"github.com/Iron-Ham/agentteam/internal/taskgraph"
)

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

// WithAssignment makes the store hand every task that becomes Pending to a
// teammate chosen by strategy. The default is taskgraph.StrategyManual.
func WithAssignment(strategy taskgraph.Strategy) StoreOption {
	return func(s *Store) { s.assigner = taskgraph.NewAssigner(strategy) }
}

// Store is the concurrency-safe, persisted holder of one team aggregate.
// All methods are safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	dir      string
	state    *StateData // nil until created or discovered
	now      func() time.Time
	assigner *taskgraph.Assigner
}

// NewStore creates a Store that persists snapshots in dir. The directory is
// created lazily on the first write.
func NewStore(dir string, opts ...StoreOption) *Store {
	s := &Store{
		dir:      dir,
		now:      time.Now,
		assigner: taskgraph.NewAssigner(taskgraph.StrategyManual),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dir returns the persistence directory.
func (s *Store) Dir() string {
	return s.dir
}

// SnapshotPath returns the snapshot path for a team name.
func (s *Store) SnapshotPath(teamName string) (string, error) {
	name, err := SnapshotFileName(teamName)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.dir, name), nil
}

// ensureLoaded adopts the first valid snapshot found on disk when no
// aggregate is resident. The scan and read run without the lock;
// installation is re-checked under the write lock so a racing creator or
// loader wins.
func (s *Store) ensureLoaded() error {
	s.mu.RLock()
	resident := s.state != nil
	s.mu.RUnlock()
	if resident {
		return nil
	}

	loaded, err := loadFirstSnapshot(s.dir)
	if err != nil || loaded == nil {
		return err
	}

	s.mu.Lock()
	if s.state == nil {
		s.state = loaded
	}
	s.mu.Unlock()
	return nil
}

// read runs fn under the shared lock against the resident aggregate.
func (s *Store) read(fn func(state *StateData) error) error {
	if err := s.ensureLoaded(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state == nil {
		return errors.NewNotFoundError(errors.ResourceTeam, "")
	}
	return fn(s.state)
}

// mutate runs fn under the exclusive lock and persists the whole aggregate
// if fn succeeds. fn must validate before changing anything so that a
// returned error leaves the aggregate untouched.
func (s *Store) mutate(fn func(state *StateData, now time.Time) error) error {
	if err := s.ensureLoaded(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == nil {
		return errors.NewNotFoundError(errors.ResourceTeam, "")
	}

	now := s.now()
	if err := fn(s.state, now); err != nil {
		return err
	}
	s.state.UpdatedAt = now
	return s.persistLocked()
}

// persistLocked writes the resident aggregate. Caller must hold s.mu.
func (s *Store) persistLocked() error {
	path, err := s.SnapshotPath(s.state.TeamName)
	if err != nil {
		return err
	}
	return writeSnapshot(s.dir, path, s.state)
}

// CreateTeam builds a new aggregate with a single Lead agent and persists it.
// It fails if the name cannot be sanitized or an aggregate is already
// resident (including one discovered on disk).
func (s *Store) CreateTeam(teamName, leadName string) (StateData, error) {
	if _, err := ident.SanitizeTeamName(teamName); err != nil {
		return StateData{}, err
	}
	if leadName == "" {
		return StateData{}, errors.NewValidationError("lead name must not be empty").WithField("lead_name")
	}
	if err := s.ensureLoaded(); err != nil {
		return StateData{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != nil {
		return StateData{}, errors.NewAlreadyExistsError(errors.ResourceTeam, s.state.TeamName)
	}

	now := s.now()
	lead := Agent{
		ID:        ident.New(ident.PrefixAgent),
		Name:      leadName,
		Role:      RoleLead,
		Status:    AgentActive,
		CreatedAt: now,
	}
	s.state = &StateData{
		TeamName:  teamName,
		CreatedAt: now,
		UpdatedAt: now,
		LeadID:    lead.ID,
		Agents:    []Agent{lead},
		Tasks:     []taskgraph.Task{},
		Messages:  []Message{},
	}

	if err := s.persistLocked(); err != nil {
		return s.state.Clone(), err
	}
	return s.state.Clone(), nil
}

// GetTeam returns a copy of the resident aggregate.
func (s *Store) GetTeam() (StateData, error) {
	var out StateData
	err := s.read(func(state *StateData) error {
		out = state.Clone()
		return nil
	})
	return out, err
}

// HasTeam reports whether an aggregate is resident or discoverable.
func (s *Store) HasTeam() (bool, error) {
	if err := s.ensureLoaded(); err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state != nil, nil
}

// AddAgent appends a new agent with status Active. No uniqueness or
// single-lead rule is enforced here; see ValidateInvariants.
func (s *Store) AddAgent(name string, role Role, handle Handle, model string) (Agent, error) {
	if name == "" {
		return Agent{}, errors.NewValidationError("agent name must not be empty").WithField("name")
	}
	if !role.IsValid() {
		return Agent{}, errors.NewValidationError("unknown agent role").WithField("role").WithValue(string(role))
	}

	var out Agent
	err := s.mutate(func(state *StateData, now time.Time) error {
		out = Agent{
			ID:        ident.New(ident.PrefixAgent),
			Name:      name,
			Role:      role,
			Status:    AgentActive,
			Model:     model,
			Handle:    handle,
			CreatedAt: now,
		}
		state.Agents = append(state.Agents, out)
		return nil
	})
	return out, err
}

// BindLeadHandle sets the execution handle of the agent referenced by
// LeadID so later operations can verify that a caller is the lead.
func (s *Store) BindLeadHandle(handle Handle) (Agent, error) {
	if handle == "" {
		return Agent{}, errors.NewValidationError("lead handle must not be empty").WithField("handle")
	}

	var out Agent
	err := s.mutate(func(state *StateData, _ time.Time) error {
		i := state.findAgent(state.LeadID)
		if i < 0 || state.Agents[i].ID != state.LeadID {
			return errors.NewNotFoundError(errors.ResourceAgent, state.LeadID)
		}
		state.Agents[i].Handle = handle
		out = state.Agents[i]
		return nil
	})
	return out, err
}

// AddTask creates a task after checking that every dependency exists. The
// initial status is Pending or Blocked depending on the dependencies; a
// Pending task is claimed at once unless the assignment strategy is manual.
func (s *Store) AddTask(title string, dependsOn []string) (taskgraph.Task, error) {
	if title == "" {
		return taskgraph.Task{}, errors.NewValidationError("task title must not be empty").WithField("title")
	}
	deps := taskgraph.NormalizeDependencies(dependsOn)

	var out taskgraph.Task
	err := s.mutate(func(state *StateData, now time.Time) error {
		if missing := taskgraph.MissingDependencies(deps, state.Tasks); len(missing) > 0 {
			return errors.NewNotFoundError(errors.ResourceDependency, missing[0])
		}
		out = taskgraph.Task{
			ID:        ident.New(ident.PrefixTask),
			Title:     title,
			Status:    taskgraph.InitialStatus(deps, state.Tasks),
			DependsOn: deps,
			CreatedAt: now,
			UpdatedAt: now,
		}
		state.Tasks = append(state.Tasks, out)
		last := len(state.Tasks) - 1
		if out.Status == taskgraph.StatusPending {
			s.autoAssign(state, last, now)
		}
		out = state.Tasks[last].Clone()
		return nil
	})
	return out, err
}

// ClaimTask assigns a Pending or InProgress task to a team member and marks
// it InProgress. The assignee must match an agent by id or name. Claiming
// an InProgress task replaces its assignee without an ownership check.
func (s *Store) ClaimTask(taskID, assignee string) (taskgraph.Task, error) {
	var out taskgraph.Task
	err := s.mutate(func(state *StateData, now time.Time) error {
		if state.findAgent(assignee) < 0 {
			return errors.NewInvalidOperationError(
				"claim task",
				fmt.Sprintf("assignee %q is not a member of team %q", assignee, state.TeamName),
			)
		}
		i := taskgraph.Find(state.Tasks, taskID)
		if i < 0 {
			return errors.NewNotFoundError(errors.ResourceTask, taskID)
		}
		if err := taskgraph.Claim(&state.Tasks[i], assignee, now); err != nil {
			return err
		}
		out = state.Tasks[i].Clone()
		return nil
	})
	return out, err
}

// CompleteTask marks a task Completed with the given result regardless of
// its prior status, then promotes every Blocked task whose dependencies are
// now all Completed and hands those to the assignment strategy. The
// aggregate is persisted once.
func (s *Store) CompleteTask(taskID, result string) (taskgraph.Task, error) {
	var out taskgraph.Task
	err := s.mutate(func(state *StateData, now time.Time) error {
		i := taskgraph.Find(state.Tasks, taskID)
		if i < 0 {
			return errors.NewNotFoundError(errors.ResourceTask, taskID)
		}
		taskgraph.Complete(&state.Tasks[i], result, now)
		for _, id := range taskgraph.CascadeUnblock(state.Tasks, taskID, now) {
			s.autoAssign(state, taskgraph.Find(state.Tasks, id), now)
		}
		out = state.Tasks[i].Clone()
		return nil
	})
	return out, err
}

// autoAssign claims the Pending task at i for the teammate the assignment
// strategy picks among those not shut down. Caller must hold s.mu.
func (s *Store) autoAssign(state *StateData, i int, now time.Time) {
	if s.assigner.Strategy() == taskgraph.StrategyManual {
		return
	}
	var candidates []string
	for _, a := range state.Teammates() {
		if a.Status != AgentShutdown {
			candidates = append(candidates, a.Name)
		}
	}
	load := make(map[string]int, len(candidates))
	for _, t := range state.Tasks {
		if t.Status != taskgraph.StatusInProgress {
			continue
		}
		if j := state.findAgent(t.Assignee); j >= 0 {
			load[state.Agents[j].Name]++
		}
	}
	if name, ok := s.assigner.Pick(candidates, load); ok {
		_ = taskgraph.Claim(&state.Tasks[i], name, now) // Pending is always claimable
	}
}

// GetTask returns a copy of one task.
func (s *Store) GetTask(taskID string) (taskgraph.Task, error) {
	var out taskgraph.Task
	err := s.read(func(state *StateData) error {
		i := taskgraph.Find(state.Tasks, taskID)
		if i < 0 {
			return errors.NewNotFoundError(errors.ResourceTask, taskID)
		}
		out = state.Tasks[i].Clone()
		return nil
	})
	return out, err
}

// ListTasks returns copies of all tasks in creation order.
func (s *Store) ListTasks() ([]taskgraph.Task, error) {
	var out []taskgraph.Task
	err := s.read(func(state *StateData) error {
		out = make([]taskgraph.Task, len(state.Tasks))
		for i, t := range state.Tasks {
			out[i] = t.Clone()
		}
		return nil
	})
	return out, err
}

// ListMessages returns the most recent limit messages in insertion order,
// or all messages when limit <= 0.
func (s *Store) ListMessages(limit int) ([]Message, error) {
	var out []Message
	err := s.read(func(state *StateData) error {
		msgs := state.Messages
		if limit > 0 && limit < len(msgs) {
			msgs = msgs[len(msgs)-limit:]
		}
		out = append([]Message{}, msgs...)
		return nil
	})
	return out, err
}

// SendMessage appends one message to the log.
func (s *Store) SendMessage(from, to, body string) (Message, error) {
	var out Message
	err := s.mutate(func(state *StateData, now time.Time) error {
		out = newMessage(from, to, body, now)
		state.Messages = append(state.Messages, out)
		return nil
	})
	return out, err
}

// Broadcast appends one message addressed to each teammate that is not
// Shutdown. The lead never receives broadcasts.
func (s *Store) Broadcast(from, body string) ([]Message, error) {
	var out []Message
	err := s.mutate(func(state *StateData, now time.Time) error {
		for _, a := range state.Agents {
			if a.Role == RoleLead || a.Status == AgentShutdown {
				continue
			}
			msg := newMessage(from, a.Name, body, now)
			state.Messages = append(state.Messages, msg)
			out = append(out, msg)
		}
		return nil
	})
	return out, err
}

func newMessage(from, to, body string, now time.Time) Message {
	return Message{
		ID:        ident.New(ident.PrefixMessage),
		From:      from,
		To:        to,
		Body:      body,
		Timestamp: now,
	}
}

// UpdateAgentStatus sets the status of the agent matching idOrName.
func (s *Store) UpdateAgentStatus(idOrName string, status AgentStatus) (Agent, error) {
	if !status.IsValid() {
		return Agent{}, errors.NewValidationError("unknown agent status").WithField("status").WithValue(string(status))
	}

	var out Agent
	err := s.mutate(func(state *StateData, _ time.Time) error {
		i := state.findAgent(idOrName)
		if i < 0 {
			return errors.NewNotFoundError(errors.ResourceAgent, idOrName)
		}
		state.Agents[i].Status = status
		out = state.Agents[i]
		return nil
	})
	return out, err
}

// FindAgent returns the agent whose id matches idOrName, or else the first
// agent whose name matches.
func (s *Store) FindAgent(idOrName string) (Agent, error) {
	var out Agent
	err := s.read(func(state *StateData) error {
		i := state.findAgent(idOrName)
		if i < 0 {
			return errors.NewNotFoundError(errors.ResourceAgent, idOrName)
		}
		out = state.Agents[i]
		return nil
	})
	return out, err
}

// ListAgents returns all agents in insertion order.
func (s *Store) ListAgents() ([]Agent, error) {
	var out []Agent
	err := s.read(func(state *StateData) error {
		out = append([]Agent{}, state.Agents...)
		return nil
	})
	return out, err
}

// ValidateInvariants audits the aggregate: exactly one Lead, LeadID naming
// that agent, and every dependency referencing an existing task. It is a
// diagnostic and is not run by the mutating operations.
func (s *Store) ValidateInvariants() error {
	return s.read(func(state *StateData) error {
		return validateState(state)
	})
}

func validateState(state *StateData) error {
	var errs []error

	var leads []string
	for _, a := range state.Agents {
		if a.Role == RoleLead {
			leads = append(leads, a.Name)
		}
	}
	switch {
	case len(leads) == 0:
		errs = append(errs, errors.NewInvalidOperationError("validate team", "team has no lead agent"))
	case len(leads) > 1:
		errs = append(errs, errors.NewInvalidOperationError(
			"validate team", fmt.Sprintf("team has %d lead agents", len(leads)),
		).WithSubjects(leads...))
	}

	lead, ok := state.Lead()
	if !ok {
		errs = append(errs, errors.NewInvalidOperationError(
			"validate team", fmt.Sprintf("lead_id %q does not reference an agent", state.LeadID),
		))
	} else if lead.Role != RoleLead {
		errs = append(errs, errors.NewInvalidOperationError(
			"validate team", fmt.Sprintf("lead_id references %q whose role is %s", lead.Name, lead.Role),
		))
	}

	for _, t := range state.Tasks {
		if missing := taskgraph.MissingDependencies(t.DependsOn, state.Tasks); len(missing) > 0 {
			errs = append(errs, errors.NewInvalidOperationError(
				"validate team", fmt.Sprintf("task %q depends on unknown tasks", t.ID),
			).WithSubjects(missing...))
		}
	}

	return errors.Join(errs...)
}

// AssertCleanupAllowed fails, naming the offenders, unless every teammate
// has status Shutdown.
func (s *Store) AssertCleanupAllowed() error {
	return s.read(cleanupAllowed)
}

func cleanupAllowed(state *StateData) error {
	var active []string
	for _, a := range state.Teammates() {
		if a.Status != AgentShutdown {
			active = append(active, a.Name)
		}
	}
	if len(active) > 0 {
		return errors.NewInvalidOperationError(
			"clean up team",
			"teammates are still running; shut them down first",
		).WithSubjects(active...)
	}
	return nil
}

// CleanupIfAllowed checks AssertCleanupAllowed and removes the team under a
// single write lock, so no teammate can be added between the check and the
// removal. It returns the removed aggregate.
func (s *Store) CleanupIfAllowed() (StateData, error) {
	if err := s.ensureLoaded(); err != nil {
		return StateData{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == nil {
		return StateData{}, errors.NewNotFoundError(errors.ResourceTeam, "")
	}
	if err := cleanupAllowed(s.state); err != nil {
		return StateData{}, err
	}
	removed := s.state.Clone()
	if err := s.removeLocked(); err != nil {
		return StateData{}, err
	}
	return removed, nil
}

// Cleanup removes the persisted snapshot, if any, and clears the resident
// aggregate. It does not check AssertCleanupAllowed.
func (s *Store) Cleanup() error {
	if err := s.ensureLoaded(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == nil {
		return nil
	}
	return s.removeLocked()
}

// removeLocked deletes the snapshot and clears the aggregate. Caller must
// hold s.mu.
func (s *Store) removeLocked() error {
	path, err := s.SnapshotPath(s.state.TeamName)
	if err != nil {
		return err
	}
	if err := removeSnapshot(path); err != nil {
		return err
	}
	s.state = nil
	return nil
}
