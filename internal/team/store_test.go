package team

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Iron-Ham/agentteam/internal/errors"
	"github.com/Iron-Ham/agentteam/internal/taskgraph"
)

func fixedClock() func() time.Time {
	t0 := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	n := 0
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		n++
		return t0.Add(time.Duration(n) * time.Second)
	}
}

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "teams")
	return NewStore(dir, WithClock(fixedClock())), dir
}

func mustCreate(t *testing.T, s *Store, name string) StateData {
	t.Helper()
	state, err := s.CreateTeam(name, "lead")
	if err != nil {
		t.Fatalf("CreateTeam(%q): %v", name, err)
	}
	return state
}

func mustAddTask(t *testing.T, s *Store, title string, deps ...string) taskgraph.Task {
	t.Helper()
	task, err := s.AddTask(title, deps)
	if err != nil {
		t.Fatalf("AddTask(%q): %v", title, err)
	}
	return task
}

func TestCreateTeam(t *testing.T) {
	s, dir := newTestStore(t)
	state := mustCreate(t, s, "proj")

	if len(state.Agents) != 1 {
		t.Fatalf("len(Agents) = %d, want 1", len(state.Agents))
	}
	lead := state.Agents[0]
	if lead.Role != RoleLead {
		t.Errorf("Role = %s, want lead", lead.Role)
	}
	if lead.Name != "lead" {
		t.Errorf("Name = %q, want lead", lead.Name)
	}
	if state.LeadID != lead.ID {
		t.Errorf("LeadID = %q, want %q", state.LeadID, lead.ID)
	}
	if lead.Status != AgentActive {
		t.Errorf("Status = %s, want active", lead.Status)
	}

	// Directory is created lazily and the snapshot is pretty-printed.
	data, err := os.ReadFile(filepath.Join(dir, "proj.json"))
	if err != nil {
		t.Fatalf("snapshot not written: %v", err)
	}
	if !strings.Contains(string(data), "\n  \"team_name\": \"proj\"") {
		t.Errorf("snapshot is not pretty-printed:\n%s", data)
	}
	if _, err := os.Stat(filepath.Join(dir, "proj.json.tmp")); !os.IsNotExist(err) {
		t.Error("temp file should be renamed away after write")
	}
}

func TestCreateTeam_SanitizesFileName(t *testing.T) {
	s, dir := newTestStore(t)
	state := mustCreate(t, s, "my team/v2")

	if state.TeamName != "my team/v2" {
		t.Errorf("TeamName = %q, want original name", state.TeamName)
	}
	if _, err := os.Stat(filepath.Join(dir, "my_team_v2.json")); err != nil {
		t.Errorf("sanitized snapshot missing: %v", err)
	}
}

func TestCreateTeam_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		teamName string
		sentinel error
	}{
		{"empty", "", errors.ErrInvalidInput},
		{"dot", ".", errors.ErrInvalidInput},
		{"dotdot", "..", errors.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, dir := newTestStore(t)
			_, err := s.CreateTeam(tt.teamName, "lead")
			if !errors.Is(err, tt.sentinel) {
				t.Fatalf("CreateTeam(%q) error = %v, want %v", tt.teamName, err, tt.sentinel)
			}
			if _, statErr := os.Stat(dir); !os.IsNotExist(statErr) {
				t.Error("nothing should be persisted for a rejected name")
			}
		})
	}
}

func TestCreateTeam_Duplicate(t *testing.T) {
	s, _ := newTestStore(t)
	mustCreate(t, s, "proj")

	for _, name := range []string{"proj", "other"} {
		_, err := s.CreateTeam(name, "lead")
		if !errors.Is(err, errors.ErrTeamExists) {
			t.Errorf("CreateTeam(%q) error = %v, want ErrTeamExists", name, err)
		}
	}
}

func TestGetTeam_NoTeam(t *testing.T) {
	s, _ := newTestStore(t)
	_, err := s.GetTeam()
	if !errors.Is(err, errors.ErrTeamNotFound) {
		t.Fatalf("GetTeam() error = %v, want ErrTeamNotFound", err)
	}

	ok, err := s.HasTeam()
	if err != nil || ok {
		t.Errorf("HasTeam() = %v, %v; want false, nil", ok, err)
	}
}

func TestGetTeam_ReturnsCopy(t *testing.T) {
	s, _ := newTestStore(t)
	mustCreate(t, s, "proj")
	a := mustAddTask(t, s, "A")

	state, err := s.GetTeam()
	if err != nil {
		t.Fatalf("GetTeam: %v", err)
	}
	state.Agents[0].Name = "mutated"
	state.Tasks[0].Title = "mutated"

	again, _ := s.GetTeam()
	if again.Agents[0].Name != "lead" {
		t.Error("mutating a returned StateData changed the store's agents")
	}
	got, _ := s.GetTask(a.ID)
	if got.Title != "A" {
		t.Error("mutating a returned StateData changed the store's tasks")
	}
}

func TestOperations_RequireTeam(t *testing.T) {
	s, _ := newTestStore(t)

	ops := map[string]func() error{
		"AddAgent":       func() error { _, err := s.AddAgent("a", RoleTeammate, "", ""); return err },
		"BindLeadHandle": func() error { _, err := s.BindLeadHandle("h"); return err },
		"AddTask":        func() error { _, err := s.AddTask("t", nil); return err },
		"ClaimTask":      func() error { _, err := s.ClaimTask("t", "a"); return err },
		"CompleteTask":   func() error { _, err := s.CompleteTask("t", ""); return err },
		"ListTasks":      func() error { _, err := s.ListTasks(); return err },
		"ListMessages":   func() error { _, err := s.ListMessages(0); return err },
		"SendMessage":    func() error { _, err := s.SendMessage("a", "b", "c"); return err },
		"Broadcast":      func() error { _, err := s.Broadcast("a", "c"); return err },
		"FindAgent":      func() error { _, err := s.FindAgent("a"); return err },
		"Validate":       s.ValidateInvariants,
		"AssertCleanup":  s.AssertCleanupAllowed,
	}

	for name, op := range ops {
		t.Run(name, func(t *testing.T) {
			if err := op(); !errors.Is(err, errors.ErrTeamNotFound) {
				t.Errorf("error = %v, want ErrTeamNotFound", err)
			}
		})
	}
}

func TestAddTask_InitialStatus(t *testing.T) {
	s, _ := newTestStore(t)
	mustCreate(t, s, "proj")

	a := mustAddTask(t, s, "A")
	if a.Status != taskgraph.StatusPending {
		t.Errorf("A.Status = %s, want pending", a.Status)
	}
	if a.DependsOn == nil || len(a.DependsOn) != 0 {
		t.Errorf("A.DependsOn = %#v, want empty non-nil", a.DependsOn)
	}

	b := mustAddTask(t, s, "B", a.ID)
	if b.Status != taskgraph.StatusBlocked {
		t.Errorf("B.Status = %s, want blocked", b.Status)
	}

	if _, err := s.CompleteTask(a.ID, ""); err != nil {
		t.Fatalf("CompleteTask: %v", err)
	}
	c := mustAddTask(t, s, "C", a.ID)
	if c.Status != taskgraph.StatusPending {
		t.Errorf("C.Status = %s, want pending (dependency already completed)", c.Status)
	}
}

func TestAddTask_UnknownDependency(t *testing.T) {
	s, _ := newTestStore(t)
	mustCreate(t, s, "proj")
	mustAddTask(t, s, "A")

	_, err := s.AddTask("B", []string{"task_missing"})
	if !errors.Is(err, errors.ErrDependencyNotFound) {
		t.Fatalf("error = %v, want ErrDependencyNotFound", err)
	}
	if !strings.Contains(err.Error(), "task_missing") {
		t.Errorf("error %q should name the missing dependency", err)
	}

	tasks, _ := s.ListTasks()
	if len(tasks) != 1 {
		t.Errorf("len(tasks) = %d, want 1 (rejected task must not be added)", len(tasks))
	}
}

func TestCompleteTask_CascadeUnblock(t *testing.T) {
	s, _ := newTestStore(t)
	mustCreate(t, s, "proj")

	a := mustAddTask(t, s, "A")
	b := mustAddTask(t, s, "B", a.ID)
	c := mustAddTask(t, s, "C", a.ID, b.ID)

	done, err := s.CompleteTask(a.ID, "shipped")
	if err != nil {
		t.Fatalf("CompleteTask: %v", err)
	}
	if done.Status != taskgraph.StatusCompleted || done.Result != "shipped" {
		t.Errorf("completed task = %+v", done)
	}

	tasks, _ := s.ListTasks()
	want := map[string]taskgraph.Status{
		a.ID: taskgraph.StatusCompleted,
		b.ID: taskgraph.StatusPending,
		c.ID: taskgraph.StatusBlocked,
	}
	for _, task := range tasks {
		if task.Status != want[task.ID] {
			t.Errorf("%s status = %s, want %s", task.Title, task.Status, want[task.ID])
		}
	}

	if _, err := s.CompleteTask(b.ID, ""); err != nil {
		t.Fatalf("CompleteTask(B): %v", err)
	}
	got, _ := s.GetTask(c.ID)
	if got.Status != taskgraph.StatusPending {
		t.Errorf("C.Status = %s, want pending", got.Status)
	}
}

func TestAutoAssign_RoundRobin(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "teams")
	s := NewStore(dir, WithClock(fixedClock()), WithAssignment(taskgraph.StrategyRoundRobin))
	mustCreate(t, s, "proj")
	for _, name := range []string{"alice", "bob", "gone"} {
		if _, err := s.AddAgent(name, RoleTeammate, "", ""); err != nil {
			t.Fatalf("AddAgent(%s): %v", name, err)
		}
	}
	if _, err := s.UpdateAgentStatus("gone", AgentShutdown); err != nil {
		t.Fatal(err)
	}

	var got []string
	for _, title := range []string{"one", "two", "three"} {
		task := mustAddTask(t, s, title)
		if task.Status != taskgraph.StatusInProgress {
			t.Fatalf("%s status = %s, want in_progress", title, task.Status)
		}
		got = append(got, task.Assignee)
	}
	want := []string{"alice", "bob", "alice"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("assignees = %v, want %v", got, want)
		}
	}

	// Blocked tasks wait for the cascade and are assigned when promoted.
	first := mustAddTask(t, s, "first")
	later := mustAddTask(t, s, "later", first.ID)
	if later.Status != taskgraph.StatusBlocked || later.Assignee != "" {
		t.Fatalf("blocked task = %+v, want unassigned and blocked", later)
	}
	if _, err := s.CompleteTask(first.ID, "done"); err != nil {
		t.Fatal(err)
	}
	promoted, err := s.GetTask(later.ID)
	if err != nil {
		t.Fatal(err)
	}
	if promoted.Status != taskgraph.StatusInProgress || promoted.Assignee == "" {
		t.Errorf("promoted task = %+v, want claimed", promoted)
	}
}

func TestAutoAssign_LeastBusy(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "teams")
	s := NewStore(dir, WithClock(fixedClock()), WithAssignment(taskgraph.StrategyLeastBusy))
	mustCreate(t, s, "proj")
	alice, err := s.AddAgent("alice", RoleTeammate, "", "")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddAgent("bob", RoleTeammate, "", ""); err != nil {
		t.Fatal(err)
	}

	// The first task goes to alice on the tie; re-claiming by id keeps the
	// load counted against her.
	busy := mustAddTask(t, s, "busy")
	if _, err := s.ClaimTask(busy.ID, alice.ID); err != nil {
		t.Fatal(err)
	}

	next := mustAddTask(t, s, "next")
	if next.Assignee != "bob" {
		t.Errorf("least busy assignee = %q, want bob", next.Assignee)
	}
}

func TestAutoAssign_ManualAndNoTeammates(t *testing.T) {
	s, _ := newTestStore(t)
	mustCreate(t, s, "proj")
	if _, err := s.AddAgent("alice", RoleTeammate, "", ""); err != nil {
		t.Fatal(err)
	}
	if task := mustAddTask(t, s, "manual"); task.Status != taskgraph.StatusPending || task.Assignee != "" {
		t.Errorf("manual strategy task = %+v, want pending and unassigned", task)
	}

	rr := NewStore(filepath.Join(t.TempDir(), "teams"), WithAssignment(taskgraph.StrategyRoundRobin))
	mustCreate(t, rr, "solo")
	if task := mustAddTask(t, rr, "nobody"); task.Status != taskgraph.StatusPending {
		t.Errorf("task with no teammates = %+v, want pending", task)
	}
}

func TestCompleteTask_Unknown(t *testing.T) {
	s, _ := newTestStore(t)
	mustCreate(t, s, "proj")

	_, err := s.CompleteTask("task_nope", "")
	if !errors.Is(err, errors.ErrTaskNotFound) {
		t.Fatalf("error = %v, want ErrTaskNotFound", err)
	}
}

func TestCompleteTask_RecompleteOverwritesResult(t *testing.T) {
	s, _ := newTestStore(t)
	mustCreate(t, s, "proj")
	a := mustAddTask(t, s, "A")

	_, _ = s.CompleteTask(a.ID, "first")
	got, err := s.CompleteTask(a.ID, "second")
	if err != nil {
		t.Fatalf("CompleteTask: %v", err)
	}
	if got.Result != "second" || got.Status != taskgraph.StatusCompleted {
		t.Errorf("got %+v, want completed with result second", got)
	}
}

func TestClaimTask(t *testing.T) {
	s, _ := newTestStore(t)
	state := mustCreate(t, s, "proj")
	other, err := s.AddAgent("worker", RoleTeammate, "", "")
	if err != nil {
		t.Fatalf("AddAgent: %v", err)
	}

	a := mustAddTask(t, s, "A")
	b := mustAddTask(t, s, "B", a.ID)
	if _, err := s.CompleteTask(a.ID, ""); err != nil {
		t.Fatalf("CompleteTask: %v", err)
	}

	claimed, err := s.ClaimTask(b.ID, state.LeadID)
	if err != nil {
		t.Fatalf("ClaimTask: %v", err)
	}
	if claimed.Status != taskgraph.StatusInProgress || claimed.Assignee != state.LeadID {
		t.Errorf("claimed = %+v, want in_progress assigned to lead", claimed)
	}

	// Re-claim of an in-progress task reassigns it.
	reclaimed, err := s.ClaimTask(b.ID, other.Name)
	if err != nil {
		t.Fatalf("re-claim: %v", err)
	}
	if reclaimed.Assignee != "worker" || reclaimed.Status != taskgraph.StatusInProgress {
		t.Errorf("reclaimed = %+v, want in_progress assigned to worker", reclaimed)
	}
}

func TestClaimTask_Rejections(t *testing.T) {
	s, _ := newTestStore(t)
	mustCreate(t, s, "proj")

	a := mustAddTask(t, s, "A")
	blocked := mustAddTask(t, s, "B", a.ID)
	done := mustAddTask(t, s, "C")
	if _, err := s.CompleteTask(done.ID, ""); err != nil {
		t.Fatalf("CompleteTask: %v", err)
	}

	tests := []struct {
		name     string
		taskID   string
		assignee string
		sentinel error
	}{
		{"blocked", blocked.ID, "lead", errors.ErrInvalidOperation},
		{"completed", done.ID, "lead", errors.ErrInvalidOperation},
		{"unknown assignee", a.ID, "stranger", errors.ErrInvalidOperation},
		{"unknown task", "task_nope", "lead", errors.ErrTaskNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before, _ := s.ListTasks()
			_, err := s.ClaimTask(tt.taskID, tt.assignee)
			if !errors.Is(err, tt.sentinel) {
				t.Fatalf("error = %v, want %v", err, tt.sentinel)
			}
			after, _ := s.ListTasks()
			for i := range before {
				if before[i].Status != after[i].Status || before[i].Assignee != after[i].Assignee {
					t.Errorf("task %s changed after rejected claim", before[i].Title)
				}
			}
		})
	}
}

func TestConcurrentClaims(t *testing.T) {
	s, _ := newTestStore(t)
	mustCreate(t, s, "proj")
	task := mustAddTask(t, s, "A")

	names := []string{"w1", "w2", "w3", "w4", "w5", "w6", "w7", "w8"}
	for _, n := range names {
		if _, err := s.AddAgent(n, RoleTeammate, "", ""); err != nil {
			t.Fatalf("AddAgent: %v", err)
		}
	}

	var wg sync.WaitGroup
	errs := make(chan error, len(names))
	for _, n := range names {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			if _, err := s.ClaimTask(task.ID, name); err != nil {
				errs <- err
			}
		}(n)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("concurrent claim failed: %v", err)
	}

	got, _ := s.GetTask(task.ID)
	if got.Status != taskgraph.StatusInProgress {
		t.Errorf("Status = %s, want in_progress", got.Status)
	}
	found := false
	for _, n := range names {
		if got.Assignee == n {
			found = true
		}
	}
	if !found {
		t.Errorf("Assignee = %q, want one of the claimers", got.Assignee)
	}
}

func TestConcurrentCompleteAndClaim(t *testing.T) {
	s, _ := newTestStore(t)
	mustCreate(t, s, "proj")
	task := mustAddTask(t, s, "A")

	var wg sync.WaitGroup
	wg.Add(2)
	var claimErr error
	go func() {
		defer wg.Done()
		_, claimErr = s.ClaimTask(task.ID, "lead")
	}()
	go func() {
		defer wg.Done()
		_, _ = s.CompleteTask(task.ID, "done")
	}()
	wg.Wait()

	got, _ := s.GetTask(task.ID)
	if got.Status != taskgraph.StatusCompleted {
		t.Fatalf("Status = %s, want completed", got.Status)
	}
	// Either the claim ran first and succeeded, or it observed the completed
	// task and failed cleanly.
	if claimErr != nil && !errors.Is(claimErr, errors.ErrInvalidOperation) {
		t.Errorf("claim error = %v, want nil or ErrInvalidOperation", claimErr)
	}
}

func TestListMessages_Limit(t *testing.T) {
	s, _ := newTestStore(t)
	mustCreate(t, s, "proj")

	for _, body := range []string{"one", "two", "three", "four"} {
		if _, err := s.SendMessage("lead", "worker", body); err != nil {
			t.Fatalf("SendMessage: %v", err)
		}
	}

	tests := []struct {
		limit int
		want  []string
	}{
		{0, []string{"one", "two", "three", "four"}},
		{-1, []string{"one", "two", "three", "four"}},
		{2, []string{"three", "four"}},
		{10, []string{"one", "two", "three", "four"}},
	}

	for _, tt := range tests {
		msgs, err := s.ListMessages(tt.limit)
		if err != nil {
			t.Fatalf("ListMessages(%d): %v", tt.limit, err)
		}
		var got []string
		for _, m := range msgs {
			got = append(got, m.Body)
		}
		if strings.Join(got, ",") != strings.Join(tt.want, ",") {
			t.Errorf("ListMessages(%d) = %v, want %v", tt.limit, got, tt.want)
		}
	}
}

func TestBroadcast(t *testing.T) {
	s, _ := newTestStore(t)
	mustCreate(t, s, "proj")
	for _, n := range []string{"alice", "bob", "carol"} {
		if _, err := s.AddAgent(n, RoleTeammate, "", ""); err != nil {
			t.Fatalf("AddAgent: %v", err)
		}
	}
	if _, err := s.UpdateAgentStatus("bob", AgentShutdown); err != nil {
		t.Fatalf("UpdateAgentStatus: %v", err)
	}
	if _, err := s.UpdateAgentStatus("carol", AgentIdle); err != nil {
		t.Fatalf("UpdateAgentStatus: %v", err)
	}

	msgs, err := s.Broadcast("lead", "standup")
	if err != nil {
		t.Fatalf("Broadcast: %v", err)
	}
	var to []string
	for _, m := range msgs {
		to = append(to, m.To)
		if m.From != "lead" || m.Body != "standup" {
			t.Errorf("message = %+v", m)
		}
	}
	if strings.Join(to, ",") != "alice,carol" {
		t.Errorf("recipients = %v, want [alice carol]", to)
	}

	all, _ := s.ListMessages(0)
	if len(all) != 2 {
		t.Errorf("len(messages) = %d, want 2", len(all))
	}
}

func TestFindAgent(t *testing.T) {
	s, _ := newTestStore(t)
	state := mustCreate(t, s, "proj")
	w, _ := s.AddAgent("worker", RoleTeammate, "h1", "opus")

	tests := []struct {
		query  string
		wantID string
	}{
		{state.LeadID, state.LeadID},
		{"lead", state.LeadID},
		{w.ID, w.ID},
		{"worker", w.ID},
	}
	for _, tt := range tests {
		got, err := s.FindAgent(tt.query)
		if err != nil {
			t.Fatalf("FindAgent(%q): %v", tt.query, err)
		}
		if got.ID != tt.wantID {
			t.Errorf("FindAgent(%q).ID = %q, want %q", tt.query, got.ID, tt.wantID)
		}
	}
	if w.Handle != "h1" || w.Model != "opus" {
		t.Errorf("AddAgent did not keep handle/model: %+v", w)
	}

	_, err := s.FindAgent("ghost")
	if !errors.Is(err, errors.ErrAgentNotFound) {
		t.Errorf("FindAgent(ghost) error = %v, want ErrAgentNotFound", err)
	}
	_, err = s.UpdateAgentStatus("ghost", AgentIdle)
	if !errors.Is(err, errors.ErrAgentNotFound) {
		t.Errorf("UpdateAgentStatus(ghost) error = %v, want ErrAgentNotFound", err)
	}
}

func TestAddAgent_Validation(t *testing.T) {
	s, _ := newTestStore(t)
	mustCreate(t, s, "proj")

	if _, err := s.AddAgent("", RoleTeammate, "", ""); !errors.Is(err, errors.ErrInvalidInput) {
		t.Errorf("empty name error = %v, want ErrInvalidInput", err)
	}
	if _, err := s.AddAgent("x", Role("boss"), "", ""); !errors.Is(err, errors.ErrInvalidInput) {
		t.Errorf("bad role error = %v, want ErrInvalidInput", err)
	}
}

func TestBindLeadHandle(t *testing.T) {
	s, _ := newTestStore(t)
	state := mustCreate(t, s, "proj")

	lead, err := s.BindLeadHandle("caller-1")
	if err != nil {
		t.Fatalf("BindLeadHandle: %v", err)
	}
	if lead.ID != state.LeadID || lead.Handle != "caller-1" {
		t.Errorf("lead = %+v", lead)
	}

	if _, err := s.BindLeadHandle(""); !errors.Is(err, errors.ErrInvalidInput) {
		t.Errorf("empty handle error = %v, want ErrInvalidInput", err)
	}
}

func TestValidateInvariants(t *testing.T) {
	s, _ := newTestStore(t)
	mustCreate(t, s, "proj")

	if err := s.ValidateInvariants(); err != nil {
		t.Fatalf("fresh team should be valid: %v", err)
	}

	// A second lead is accepted by AddAgent and only caught by the audit.
	if _, err := s.AddAgent("usurper", RoleLead, "", ""); err != nil {
		t.Fatalf("AddAgent: %v", err)
	}
	err := s.ValidateInvariants()
	if !errors.Is(err, errors.ErrInvalidOperation) {
		t.Fatalf("error = %v, want ErrInvalidOperation", err)
	}
	if !strings.Contains(err.Error(), "usurper") {
		t.Errorf("error %q should name the extra lead", err)
	}
}

func TestValidateState_DanglingReferences(t *testing.T) {
	state := &StateData{
		TeamName: "proj",
		LeadID:   "agent_missing",
		Agents:   []Agent{{ID: "agent_1", Name: "worker", Role: RoleTeammate}},
		Tasks: []taskgraph.Task{
			{ID: "task_1", Status: taskgraph.StatusBlocked, DependsOn: []string{"task_ghost"}},
		},
	}

	err := validateState(state)
	if err == nil {
		t.Fatal("validateState should fail")
	}
	msg := err.Error()
	for _, want := range []string{"no lead", "agent_missing", "task_ghost"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error %q should mention %q", msg, want)
		}
	}
}

func TestCleanup_Gated(t *testing.T) {
	s, dir := newTestStore(t)
	mustCreate(t, s, "proj")
	if _, err := s.AddAgent("tester", RoleTeammate, "", ""); err != nil {
		t.Fatalf("AddAgent: %v", err)
	}

	err := s.AssertCleanupAllowed()
	if !errors.Is(err, errors.ErrInvalidOperation) {
		t.Fatalf("AssertCleanupAllowed() error = %v, want ErrInvalidOperation", err)
	}
	if !strings.Contains(err.Error(), "tester") {
		t.Errorf("error %q should name the active teammate", err)
	}

	if _, err := s.UpdateAgentStatus("tester", AgentShutdown); err != nil {
		t.Fatalf("UpdateAgentStatus: %v", err)
	}
	if err := s.AssertCleanupAllowed(); err != nil {
		t.Fatalf("AssertCleanupAllowed() = %v, want nil", err)
	}
	if err := s.Cleanup(); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "proj.json")); !os.IsNotExist(err) {
		t.Error("snapshot should be removed by Cleanup")
	}
	if _, err := s.GetTeam(); !errors.Is(err, errors.ErrTeamNotFound) {
		t.Errorf("GetTeam after cleanup error = %v, want ErrTeamNotFound", err)
	}

	// A fresh team can be created after cleanup; Cleanup with no team is a no-op.
	mustCreate(t, s, "next")
	if err := s.Cleanup(); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if err := s.Cleanup(); err != nil {
		t.Fatalf("second Cleanup: %v", err)
	}
}

func TestCleanupIfAllowed(t *testing.T) {
	s, dir := newTestStore(t)

	if _, err := s.CleanupIfAllowed(); !errors.Is(err, errors.ErrTeamNotFound) {
		t.Fatalf("CleanupIfAllowed() with no team error = %v, want ErrTeamNotFound", err)
	}

	mustCreate(t, s, "proj")
	if _, err := s.AddAgent("tester", RoleTeammate, "", ""); err != nil {
		t.Fatalf("AddAgent: %v", err)
	}
	_, err := s.CleanupIfAllowed()
	if !errors.Is(err, errors.ErrInvalidOperation) || !strings.Contains(err.Error(), "tester") {
		t.Fatalf("CleanupIfAllowed() error = %v, want ErrInvalidOperation naming tester", err)
	}
	if ok, _ := s.HasTeam(); !ok {
		t.Fatal("a refused cleanup must keep the team")
	}

	if _, err := s.UpdateAgentStatus("tester", AgentShutdown); err != nil {
		t.Fatalf("UpdateAgentStatus: %v", err)
	}
	removed, err := s.CleanupIfAllowed()
	if err != nil {
		t.Fatalf("CleanupIfAllowed: %v", err)
	}
	if removed.TeamName != "proj" || len(removed.Teammates()) != 1 {
		t.Errorf("removed = %+v, want proj with one teammate", removed)
	}
	if _, err := os.Stat(filepath.Join(dir, "proj.json")); !os.IsNotExist(err) {
		t.Error("snapshot should be removed")
	}
}

func TestCleanupIfAllowed_RacingAddAgent(t *testing.T) {
	for i := 0; i < 50; i++ {
		s, _ := newTestStore(t)
		mustCreate(t, s, "proj")

		var wg sync.WaitGroup
		var cleanupErr, addErr error
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, cleanupErr = s.CleanupIfAllowed()
		}()
		go func() {
			defer wg.Done()
			_, addErr = s.AddAgent("late", RoleTeammate, "", "")
		}()
		wg.Wait()

		if cleanupErr == nil && addErr == nil {
			t.Fatalf("iteration %d: an active teammate was added and then removed by cleanup", i)
		}
	}
}

func TestDiscovery_SecondStoreLoadsSnapshot(t *testing.T) {
	s1, dir := newTestStore(t)
	created := mustCreate(t, s1, "proj")
	a := mustAddTask(t, s1, "A")

	s2 := NewStore(dir)
	state, err := s2.GetTeam()
	if err != nil {
		t.Fatalf("GetTeam from second store: %v", err)
	}
	if state.TeamName != "proj" || state.LeadID != created.LeadID {
		t.Errorf("loaded state = %+v", state)
	}
	if len(state.Tasks) != 1 || state.Tasks[0].ID != a.ID {
		t.Errorf("loaded tasks = %+v", state.Tasks)
	}

	// Creating through the second store is rejected by the discovered team.
	if _, err := s2.CreateTeam("other", "lead"); !errors.Is(err, errors.ErrTeamExists) {
		t.Errorf("CreateTeam error = %v, want ErrTeamExists", err)
	}

	// Once loaded, later writes by the first store are not re-read.
	mustAddTask(t, s1, "B")
	tasks, _ := s2.ListTasks()
	if len(tasks) != 1 {
		t.Errorf("second store saw %d tasks, want 1 (load-once)", len(tasks))
	}
}

func TestDiscovery_LexicalOrder(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		state := &StateData{
			TeamName: name,
			LeadID:   "agent_1",
			Agents:   []Agent{{ID: "agent_1", Name: "lead", Role: RoleLead}},
		}
		if err := writeSnapshot(dir, filepath.Join(dir, name+".json"), state); err != nil {
			t.Fatalf("writeSnapshot(%s): %v", name, err)
		}
	}

	got, err := NewStore(dir).GetTeam()
	if err != nil {
		t.Fatalf("GetTeam: %v", err)
	}
	if got.TeamName != "alpha" {
		t.Errorf("TeamName = %q, want alpha (first in lexical order)", got.TeamName)
	}
	if got.Tasks == nil || got.Messages == nil {
		t.Error("loaded slices should be normalized to empty")
	}
}

func TestDiscovery_IgnoresNonSnapshotFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"notes.txt", "proj.lock", "proj.json.tmp"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "dir.json"), 0o755); err != nil {
		t.Fatal(err)
	}

	_, err := NewStore(dir).GetTeam()
	if !errors.Is(err, errors.ErrTeamNotFound) {
		t.Fatalf("error = %v, want ErrTeamNotFound", err)
	}
}

func TestDiscovery_SkipsUnreadableSnapshots(t *testing.T) {
	dir := t.TempDir()
	junk := map[string]string{
		"a-notes.json":   "{not json",
		"b-other.json":   `{"settings": true}`,
		"c-badname.json": `{"team_name": ".."}`,
	}
	for name, content := range junk {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	valid := &StateData{
		TeamName: "proj",
		LeadID:   "agent_1",
		Agents:   []Agent{{ID: "agent_1", Name: "lead", Role: RoleLead}},
	}
	if err := writeSnapshot(dir, filepath.Join(dir, "proj.json"), valid); err != nil {
		t.Fatal(err)
	}

	got, err := NewStore(dir).GetTeam()
	if err != nil {
		t.Fatalf("GetTeam: %v", err)
	}
	if got.TeamName != "proj" {
		t.Errorf("TeamName = %q, want proj", got.TeamName)
	}
}

func TestDiscovery_OnlyUnreadableSnapshots(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a-notes.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	s := NewStore(dir)
	if _, err := s.GetTeam(); !errors.Is(err, errors.ErrTeamNotFound) {
		t.Fatalf("GetTeam error = %v, want ErrTeamNotFound", err)
	}
	if _, err := s.CreateTeam("proj", "lead"); err != nil {
		t.Fatalf("CreateTeam next to a malformed file: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "proj.json")); err != nil {
		t.Errorf("snapshot not written: %v", err)
	}
}

func TestDiscovery_PersistDirIsFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "teams")
	if err := os.WriteFile(dir, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := NewStore(dir).GetTeam()
	if !errors.Is(err, errors.ErrSnapshotIO) {
		t.Fatalf("error = %v, want ErrSnapshotIO", err)
	}
	if errors.IsUserFacing(err) {
		t.Error("storage errors should not be user-facing")
	}
}

func TestDiscovery_ConcurrentLoaders(t *testing.T) {
	s1, dir := newTestStore(t)
	mustCreate(t, s1, "proj")

	s2 := NewStore(dir)
	var wg sync.WaitGroup
	leads := make([]string, 16)
	for i := range leads {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			state, err := s2.GetTeam()
			if err != nil {
				t.Errorf("GetTeam: %v", err)
				return
			}
			leads[i] = state.LeadID
		}(i)
	}
	wg.Wait()

	for i := 1; i < len(leads); i++ {
		if leads[i] != leads[0] {
			t.Fatalf("loaders observed different aggregates: %q vs %q", leads[i], leads[0])
		}
	}
}

func TestPersistence_EveryMutationRewritesSnapshot(t *testing.T) {
	s, dir := newTestStore(t)
	mustCreate(t, s, "proj")
	a := mustAddTask(t, s, "A")
	if _, err := s.SendMessage("lead", "x", "hello"); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "proj.json"))
	if err != nil {
		t.Fatal(err)
	}
	var onDisk StateData
	if err := json.Unmarshal(data, &onDisk); err != nil {
		t.Fatalf("snapshot is not valid JSON: %v", err)
	}
	if len(onDisk.Tasks) != 1 || onDisk.Tasks[0].ID != a.ID {
		t.Errorf("disk tasks = %+v", onDisk.Tasks)
	}
	if len(onDisk.Messages) != 1 || onDisk.Messages[0].Body != "hello" {
		t.Errorf("disk messages = %+v", onDisk.Messages)
	}
	if !onDisk.UpdatedAt.After(onDisk.CreatedAt) {
		t.Errorf("UpdatedAt %v should be after CreatedAt %v", onDisk.UpdatedAt, onDisk.CreatedAt)
	}
}

func TestPersistence_FailureLeavesMemoryAhead(t *testing.T) {
	s, dir := newTestStore(t)
	mustCreate(t, s, "proj")

	// Replace the persistence directory with a regular file so writes fail.
	if err := os.RemoveAll(dir); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(dir, []byte("blocker"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := s.AddTask("A", nil)
	if !errors.Is(err, errors.ErrSnapshotIO) {
		t.Fatalf("AddTask error = %v, want ErrSnapshotIO", err)
	}

	tasks, err := s.ListTasks()
	if err != nil {
		t.Fatalf("ListTasks: %v", err)
	}
	if len(tasks) != 1 {
		t.Errorf("len(tasks) = %d, want 1 (memory is ahead of disk)", len(tasks))
	}
}

func TestSummary(t *testing.T) {
	s, _ := newTestStore(t)
	mustCreate(t, s, "proj")
	_, _ = s.AddAgent("w", RoleTeammate, "", "")
	_, _ = s.UpdateAgentStatus("w", AgentShutdown)
	a := mustAddTask(t, s, "A")
	mustAddTask(t, s, "B", a.ID)
	_, _ = s.SendMessage("lead", "w", "hi")

	state, _ := s.GetTeam()
	sum := state.Summary()
	if sum.Agents[AgentActive] != 1 || sum.Agents[AgentShutdown] != 1 {
		t.Errorf("agent counts = %v", sum.Agents)
	}
	if sum.Tasks[taskgraph.StatusPending] != 1 || sum.Tasks[taskgraph.StatusBlocked] != 1 {
		t.Errorf("task counts = %v", sum.Tasks)
	}
	if sum.Messages != 1 {
		t.Errorf("Messages = %d, want 1", sum.Messages)
	}
}
