package toolbridge

import (
	"context"
	"fmt"

	"github.com/Iron-Ham/agentteam/internal/errors"
	"github.com/Iron-Ham/agentteam/internal/lifecycle"
	"github.com/Iron-Ham/agentteam/internal/taskgraph"
	"github.com/Iron-Ham/agentteam/internal/team"
)

// AgentInput describes one teammate to start with the team.
type AgentInput struct {
	Name   string `json:"name" jsonschema:"required,description=Unique teammate name"`
	Model  string `json:"model,omitempty" jsonschema:"description=Model identifier for the teammate"`
	Prompt string `json:"prompt,omitempty" jsonschema:"description=Initial instructions for the teammate"`
}

// CreateInput is the input for team_create.
type CreateInput struct {
	TeamName     string       `json:"team_name" jsonschema:"required,description=Name of the team"`
	Agents       []AgentInput `json:"agents,omitempty" jsonschema:"description=Teammates to start"`
	TeammateMode string       `json:"teammate_mode,omitempty" jsonschema:"enum=auto,enum=in_process,enum=tmux,description=Where teammates run"`
}

// AddAgentInput is the input for team_add_agent.
type AddAgentInput struct {
	Name  string `json:"name" jsonschema:"required,description=Agent name"`
	Role  string `json:"role" jsonschema:"required,enum=lead,enum=teammate"`
	Model string `json:"model,omitempty" jsonschema:"description=Model identifier"`
}

// AddTaskInput is the input for team_add_task.
type AddTaskInput struct {
	Title     string   `json:"title" jsonschema:"required,description=What needs to be done"`
	DependsOn []string `json:"depends_on,omitempty" jsonschema:"description=IDs of tasks that must complete first"`
}

// ClaimTaskInput is the input for team_claim_task.
type ClaimTaskInput struct {
	TaskID     string `json:"task_id" jsonschema:"required"`
	AssigneeID string `json:"assignee_id" jsonschema:"required,description=Agent id or name taking the task"`
}

// CompleteTaskInput is the input for team_complete_task.
type CompleteTaskInput struct {
	TaskID string `json:"task_id" jsonschema:"required"`
	Result string `json:"result,omitempty" jsonschema:"description=Outcome of the work"`
}

// ListTasksInput is the input for team_list_tasks.
type ListTasksInput struct{}

// SendMessageInput is the input for team_send_message.
type SendMessageInput struct {
	To   string `json:"to" jsonschema:"required,description=Recipient agent name"`
	Body string `json:"body" jsonschema:"required"`
	From string `json:"from,omitempty" jsonschema:"description=Sender name; defaults to the team lead"`
}

// BroadcastInput is the input for team_broadcast.
type BroadcastInput struct {
	Body string `json:"body" jsonschema:"required"`
	From string `json:"from,omitempty" jsonschema:"description=Sender name; defaults to the team lead"`
}

// ListMessagesInput is the input for team_list_messages.
type ListMessagesInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"minimum=0,description=Return only the most recent N messages"`
}

// CleanupInput is the input for team_cleanup.
type CleanupInput struct{}

func required(field, value string) *Result {
	if value == "" {
		return ErrorResult(fmt.Sprintf("%s is required", field))
	}
	return nil
}

// --- team_create ---

type createTool struct{ b *Bridge }

func (t *createTool) Name() string { return "team_create" }
func (t *createTool) Description() string {
	return "Create a team led by you and start its teammates. Calling it again with the same team name joins the existing team."
}

func (t *createTool) Execute(ctx context.Context, in CreateInput) (*Result, error) {
	if r := required("team_name", in.TeamName); r != nil {
		return r, nil
	}
	mode, err := lifecycle.ParseMode(in.TeammateMode)
	if err != nil {
		return t.b.failure(t.Name(), err, ""), nil
	}
	req := lifecycle.CreateRequest{TeamName: in.TeamName, LeadName: t.b.leadName, Mode: mode}
	for _, a := range in.Agents {
		req.Agents = append(req.Agents, lifecycle.AgentSpec{Name: a.Name, Model: a.Model, Prompt: a.Prompt})
	}

	state, err := t.b.coord.CreateOrJoin(ctx, t.b.caller, req)
	if err != nil {
		return t.b.failure(t.Name(), err, ""), nil
	}
	return jsonResult(teamView(state))
}

// --- team_add_agent ---

type addAgentTool struct{ b *Bridge }

func (t *addAgentTool) Name() string        { return "team_add_agent" }
func (t *addAgentTool) Description() string { return "Register an agent as a member of the team." }

func (t *addAgentTool) Execute(_ context.Context, in AddAgentInput) (*Result, error) {
	if r := required("name", in.Name); r != nil {
		return r, nil
	}
	role := team.Role(in.Role)
	if !role.IsValid() {
		return ErrorResult(fmt.Sprintf("role must be %q or %q, got %q", team.RoleLead, team.RoleTeammate, in.Role)), nil
	}
	agent, err := t.b.store.AddAgent(in.Name, role, "", in.Model)
	if err != nil {
		return t.b.failure(t.Name(), err, ""), nil
	}
	return jsonResult(agent)
}

// --- team_add_task ---

type addTaskTool struct{ b *Bridge }

func (t *addTaskTool) Name() string { return "team_add_task" }
func (t *addTaskTool) Description() string {
	return "Add a task to the team board. Tasks with unfinished dependencies start blocked."
}

func (t *addTaskTool) Execute(_ context.Context, in AddTaskInput) (*Result, error) {
	if r := required("title", in.Title); r != nil {
		return r, nil
	}
	task, err := t.b.store.AddTask(in.Title, in.DependsOn)
	if err != nil {
		hint := ""
		var nf *errors.NotFoundError
		if errors.As(err, &nf) && nf.ResourceType == errors.ResourceDependency {
			hint = t.b.suggestTask(nf.ResourceID)
		}
		return t.b.failure(t.Name(), err, hint), nil
	}
	return jsonResult(task)
}

// --- team_claim_task ---

type claimTaskTool struct{ b *Bridge }

func (t *claimTaskTool) Name() string { return "team_claim_task" }
func (t *claimTaskTool) Description() string {
	return "Assign a pending or in-progress task to an agent and mark it in progress."
}

func (t *claimTaskTool) Execute(_ context.Context, in ClaimTaskInput) (*Result, error) {
	if r := required("task_id", in.TaskID); r != nil {
		return r, nil
	}
	if r := required("assignee_id", in.AssigneeID); r != nil {
		return r, nil
	}
	task, err := t.b.store.ClaimTask(in.TaskID, in.AssigneeID)
	if err != nil {
		hint := ""
		switch {
		case errors.Is(err, errors.ErrTaskNotFound):
			hint = t.b.suggestTask(in.TaskID)
		case errors.Is(err, errors.ErrInvalidOperation):
			if _, ferr := t.b.store.FindAgent(in.AssigneeID); ferr != nil {
				hint = t.b.suggestAgent(in.AssigneeID)
			}
		}
		return t.b.failure(t.Name(), err, hint), nil
	}
	return jsonResult(task)
}

// --- team_complete_task ---

type completeTaskTool struct{ b *Bridge }

func (t *completeTaskTool) Name() string { return "team_complete_task" }
func (t *completeTaskTool) Description() string {
	return "Mark a task completed and record its result. Tasks waiting on it are unblocked."
}

func (t *completeTaskTool) Execute(_ context.Context, in CompleteTaskInput) (*Result, error) {
	if r := required("task_id", in.TaskID); r != nil {
		return r, nil
	}
	task, err := t.b.store.CompleteTask(in.TaskID, in.Result)
	if err != nil {
		hint := ""
		if errors.Is(err, errors.ErrTaskNotFound) {
			hint = t.b.suggestTask(in.TaskID)
		}
		return t.b.failure(t.Name(), err, hint), nil
	}
	return jsonResult(task)
}

// --- team_list_tasks ---

type listTasksTool struct{ b *Bridge }

func (t *listTasksTool) Name() string        { return "team_list_tasks" }
func (t *listTasksTool) Description() string { return "List every task on the team board." }

func (t *listTasksTool) Execute(_ context.Context, _ ListTasksInput) (*Result, error) {
	tasks, err := t.b.store.ListTasks()
	if err != nil {
		return t.b.failure(t.Name(), err, ""), nil
	}
	return jsonResult(struct {
		Tasks  []taskgraph.Task         `json:"tasks"`
		Counts map[taskgraph.Status]int `json:"counts"`
	}{tasks, taskgraph.Counts(tasks)})
}

// --- team_send_message ---

type sendMessageTool struct{ b *Bridge }

func (t *sendMessageTool) Name() string        { return "team_send_message" }
func (t *sendMessageTool) Description() string { return "Send a message to one agent on the team." }

func (t *sendMessageTool) Execute(ctx context.Context, in SendMessageInput) (*Result, error) {
	if r := required("to", in.To); r != nil {
		return r, nil
	}
	if r := required("body", in.Body); r != nil {
		return r, nil
	}
	from, err := t.b.sender(in.From)
	if err != nil {
		return t.b.failure(t.Name(), err, ""), nil
	}
	msg, err := t.b.coord.SendMessage(ctx, from, in.To, in.Body)
	if msg.ID == "" || !deliveryOnly(err) {
		return t.b.failure(t.Name(), err, ""), nil
	}
	return messagesResult([]team.Message{msg}, err)
}

// --- team_broadcast ---

type broadcastTool struct{ b *Bridge }

func (t *broadcastTool) Name() string { return "team_broadcast" }
func (t *broadcastTool) Description() string {
	return "Send a message to every teammate that has not been shut down."
}

func (t *broadcastTool) Execute(ctx context.Context, in BroadcastInput) (*Result, error) {
	if r := required("body", in.Body); r != nil {
		return r, nil
	}
	from, err := t.b.sender(in.From)
	if err != nil {
		return t.b.failure(t.Name(), err, ""), nil
	}
	msgs, err := t.b.coord.Broadcast(ctx, from, in.Body)
	if (msgs == nil && err != nil) || !deliveryOnly(err) {
		return t.b.failure(t.Name(), err, ""), nil
	}
	return messagesResult(msgs, err)
}

// --- team_list_messages ---

type listMessagesTool struct{ b *Bridge }

func (t *listMessagesTool) Name() string        { return "team_list_messages" }
func (t *listMessagesTool) Description() string { return "List team messages, oldest first." }

func (t *listMessagesTool) Execute(_ context.Context, in ListMessagesInput) (*Result, error) {
	if in.Limit < 0 {
		return ErrorResult("limit must not be negative"), nil
	}
	msgs, err := t.b.store.ListMessages(in.Limit)
	if err != nil {
		return t.b.failure(t.Name(), err, ""), nil
	}
	return jsonResult(struct {
		Messages []team.Message `json:"messages"`
	}{msgs})
}

// --- team_cleanup ---

type cleanupTool struct{ b *Bridge }

func (t *cleanupTool) Name() string { return "team_cleanup" }
func (t *cleanupTool) Description() string {
	return "Delete the team. Only the lead may do this, after every teammate has shut down."
}

func (t *cleanupTool) Execute(ctx context.Context, _ CleanupInput) (*Result, error) {
	state, err := t.b.store.GetTeam()
	if err != nil {
		return t.b.failure(t.Name(), err, ""), nil
	}
	if err := t.b.coord.Cleanup(ctx, t.b.caller); err != nil {
		return t.b.failure(t.Name(), err, ""), nil
	}
	return TextResult(fmt.Sprintf("team %q cleaned up", state.TeamName)), nil
}

// deliveryOnly reports whether err, if any, is a delivery failure that
// happened after the messages were recorded and persisted.
func deliveryOnly(err error) bool {
	return err == nil || !errors.Is(err, &errors.StorageError{})
}

// sender returns from, or the lead's name when from is empty.
func (b *Bridge) sender(from string) (string, error) {
	if from != "" {
		return from, nil
	}
	state, err := b.store.GetTeam()
	if err != nil {
		return "", err
	}
	lead, ok := state.Lead()
	if !ok {
		return "", errors.NewInvalidOperationError("send message", "team has no lead agent")
	}
	return lead.Name, nil
}
