package toolbridge

import (
	"fmt"

	"github.com/sahilm/fuzzy"

	"github.com/Iron-Ham/agentteam/internal/taskgraph"
	"github.com/Iron-Ham/agentteam/internal/team"
)

type agentView struct {
	ID     string           `json:"id"`
	Name   string           `json:"name"`
	Role   team.Role        `json:"role"`
	Status team.AgentStatus `json:"status"`
	Model  string           `json:"model,omitempty"`
}

type teamResult struct {
	TeamName string                   `json:"team_name"`
	LeadID   string                   `json:"lead_id"`
	Agents   []agentView              `json:"agents"`
	Tasks    map[taskgraph.Status]int `json:"tasks"`
	Messages int                      `json:"messages"`
}

// teamView omits execution handles, which mean nothing to the model.
func teamView(state team.StateData) teamResult {
	sum := state.Summary()
	out := teamResult{
		TeamName: state.TeamName,
		LeadID:   state.LeadID,
		Agents:   make([]agentView, 0, len(state.Agents)),
		Tasks:    sum.Tasks,
		Messages: sum.Messages,
	}
	for _, a := range state.Agents {
		out.Agents = append(out.Agents, agentView{ID: a.ID, Name: a.Name, Role: a.Role, Status: a.Status, Model: a.Model})
	}
	return out
}

// messagesResult renders recorded messages. A delivery failure does not
// undo the recording, so it is reported alongside them.
func messagesResult(msgs []team.Message, deliveryErr error) (*Result, error) {
	v := struct {
		Messages      []team.Message `json:"messages"`
		DeliveryError string         `json:"delivery_error,omitempty"`
	}{Messages: msgs}
	if v.Messages == nil {
		v.Messages = []team.Message{}
	}
	if deliveryErr != nil {
		v.DeliveryError = deliveryErr.Error()
	}
	return jsonResult(v)
}

// didYouMean returns a hint naming the closest candidate, or "".
func didYouMean(query string, candidates []string) string {
	if query == "" || len(candidates) == 0 {
		return ""
	}
	matches := fuzzy.Find(query, candidates)
	if len(matches) == 0 {
		return ""
	}
	return fmt.Sprintf("; did you mean %q?", matches[0].Str)
}

func (b *Bridge) suggestAgent(query string) string {
	agents, err := b.store.ListAgents()
	if err != nil {
		return ""
	}
	names := make([]string, 0, len(agents)*2)
	for _, a := range agents {
		names = append(names, a.Name, a.ID)
	}
	return didYouMean(query, names)
}

func (b *Bridge) suggestTask(query string) string {
	tasks, err := b.store.ListTasks()
	if err != nil {
		return ""
	}
	ids := make([]string, 0, len(tasks))
	for _, t := range tasks {
		ids = append(ids, t.ID)
	}
	return didYouMean(query, ids)
}
