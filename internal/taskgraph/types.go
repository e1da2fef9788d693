package taskgraph

import "time"

// Status represents the current state of a task.
type Status string

const (
	// StatusPending indicates the task can be claimed.
	StatusPending Status = "pending"

	// StatusInProgress indicates the task has been claimed by an agent.
	StatusInProgress Status = "in_progress"

	// StatusCompleted indicates the task is done.
	StatusCompleted Status = "completed"

	// StatusBlocked indicates at least one dependency is not yet completed.
	StatusBlocked Status = "blocked"
)

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// IsValid returns true if this is a recognized status value.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusBlocked:
		return true
	default:
		return false
	}
}

// Claimable returns true if a task in this status accepts a claim.
func (s Status) Claimable() bool {
	return s == StatusPending || s == StatusInProgress
}

// Task is a unit of work on the team task board.
type Task struct {
	// ID is the unique task identifier.
	ID string `json:"id"`

	// Title is the human-readable description of the work.
	Title string `json:"title"`

	// Status is the current state of the task.
	Status Status `json:"status"`

	// Assignee is the agent id or name that claimed the task.
	Assignee string `json:"assignee,omitempty"`

	// Result is the text recorded when the task was completed.
	Result string `json:"result,omitempty"`

	// DependsOn lists the ids of tasks that must complete first.
	// It is fixed at creation time.
	DependsOn []string `json:"depends_on"`

	// CreatedAt is when the task was created.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is when the task last changed.
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns a deep copy of the task.
func (t Task) Clone() Task {
	cp := t
	cp.DependsOn = append([]string(nil), t.DependsOn...)
	if cp.DependsOn == nil {
		cp.DependsOn = []string{}
	}
	return cp
}
