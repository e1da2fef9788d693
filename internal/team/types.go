package team

import (
	"time"

	"github.com/Iron-Ham/agentteam/internal/taskgraph"
)

// Role describes an agent's authority within the team.
type Role string

const (
	// RoleLead is the one agent that creates the team and authorizes teardown.
	RoleLead Role = "lead"

	// RoleTeammate is a worker agent that claims and completes tasks.
	RoleTeammate Role = "teammate"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// IsValid returns true if this is a recognized role value.
func (r Role) IsValid() bool {
	return r == RoleLead || r == RoleTeammate
}

// AgentStatus is the lifecycle state of an agent.
type AgentStatus string

const (
	// AgentActive indicates the agent is running and may be working.
	AgentActive AgentStatus = "active"

	// AgentIdle indicates the agent is running but waiting for work.
	AgentIdle AgentStatus = "idle"

	// AgentShutdown indicates the agent has been torn down. Agents are never
	// removed from the team; they end in this state.
	AgentShutdown AgentStatus = "shutdown"
)

// String returns the string representation of the status.
func (s AgentStatus) String() string {
	return string(s)
}

// IsValid returns true if this is a recognized status value.
func (s AgentStatus) IsValid() bool {
	switch s {
	case AgentActive, AgentIdle, AgentShutdown:
		return true
	default:
		return false
	}
}

// Handle is an opaque reference to a running agent owned by an
// agent-execution backend. The zero value means "no handle", which is the
// case for pane-hosted agents.
type Handle string

// Agent is a member of the team.
type Agent struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Role      Role        `json:"role"`
	Status    AgentStatus `json:"status"`
	Model     string      `json:"model,omitempty"`
	Handle    Handle      `json:"handle,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

// Matches reports whether idOrName is the agent's id or name.
func (a Agent) Matches(idOrName string) bool {
	return a.ID == idOrName || a.Name == idOrName
}

// Message is an append-only entry in the team message log.
type Message struct {
	ID        string    `json:"id"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Body      string    `json:"body"`
	Timestamp time.Time `json:"timestamp"`
}

// StateData is the team aggregate root. It is the unit of locking and the
// unit of persistence.
type StateData struct {
	TeamName  string           `json:"team_name"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
	LeadID    string           `json:"lead_id"`
	Agents    []Agent          `json:"agents"`
	Tasks     []taskgraph.Task `json:"tasks"`
	Messages  []Message        `json:"messages"`
}

// Clone returns a deep copy of the aggregate.
func (s *StateData) Clone() StateData {
	cp := *s
	cp.Agents = append([]Agent{}, s.Agents...)
	cp.Messages = append([]Message{}, s.Messages...)
	cp.Tasks = make([]taskgraph.Task, len(s.Tasks))
	for i, t := range s.Tasks {
		cp.Tasks[i] = t.Clone()
	}
	return cp
}

// Lead returns the agent referenced by LeadID.
func (s *StateData) Lead() (Agent, bool) {
	for _, a := range s.Agents {
		if a.ID == s.LeadID {
			return a, true
		}
	}
	return Agent{}, false
}

// Teammates returns the non-lead agents in insertion order.
func (s *StateData) Teammates() []Agent {
	var out []Agent
	for _, a := range s.Agents {
		if a.Role == RoleTeammate {
			out = append(out, a)
		}
	}
	return out
}

// findAgent returns the index of the first agent whose id matches, falling
// back to the first agent whose name matches, or -1.
func (s *StateData) findAgent(idOrName string) int {
	for i := range s.Agents {
		if s.Agents[i].ID == idOrName {
			return i
		}
	}
	for i := range s.Agents {
		if s.Agents[i].Name == idOrName {
			return i
		}
	}
	return -1
}

// Summary is a read-only count of a team's agents and tasks by status.
type Summary struct {
	TeamName string
	Agents   map[AgentStatus]int
	Tasks    map[taskgraph.Status]int
	Messages int
}

// Summary returns per-status counts for the aggregate.
func (s *StateData) Summary() Summary {
	agents := make(map[AgentStatus]int, 3)
	for _, a := range s.Agents {
		agents[a.Status]++
	}
	return Summary{
		TeamName: s.TeamName,
		Agents:   agents,
		Tasks:    taskgraph.Counts(s.Tasks),
		Messages: len(s.Messages),
	}
}
