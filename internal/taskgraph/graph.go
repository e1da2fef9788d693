package taskgraph

import (
	"fmt"
	"time"

	"github.com/Iron-Ham/agentteam/internal/errors"
)

// NormalizeDependencies drops empty and duplicate ids while keeping the
// first-seen order. It never returns nil.
func NormalizeDependencies(dependsOn []string) []string {
	out := make([]string, 0, len(dependsOn))
	seen := make(map[string]bool, len(dependsOn))
	for _, id := range dependsOn {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// MissingDependencies returns the ids in dependsOn that do not reference a
// task in tasks, in the order they appear.
func MissingDependencies(dependsOn []string, tasks []Task) []string {
	index := indexByID(tasks)
	var missing []string
	for _, id := range dependsOn {
		if _, ok := index[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}

// InitialStatus computes the status of a new task. It is Pending when
// dependsOn is empty or every referenced task is already Completed, and
// Blocked otherwise.
func InitialStatus(dependsOn []string, existing []Task) Status {
	if len(dependsOn) == 0 {
		return StatusPending
	}
	index := indexByID(existing)
	for _, id := range dependsOn {
		i, ok := index[id]
		if !ok || existing[i].Status != StatusCompleted {
			return StatusBlocked
		}
	}
	return StatusPending
}

// Claim moves the task to InProgress and records the assignee. Pending and
// InProgress tasks may be claimed; a claim on an InProgress task replaces
// the previous assignee.
func Claim(task *Task, assignee string, now time.Time) error {
	if !task.Status.Claimable() {
		return errors.NewInvalidOperationError(
			"claim task",
			fmt.Sprintf("task %q is %s", task.ID, task.Status),
		)
	}
	task.Status = StatusInProgress
	task.Assignee = assignee
	task.UpdatedAt = now
	return nil
}

// Complete marks the task Completed and stores result. It has no
// precondition on the prior status; completing a Completed task overwrites
// the result.
func Complete(task *Task, result string, now time.Time) {
	task.Status = StatusCompleted
	task.Result = result
	task.UpdatedAt = now
}

// CascadeUnblock promotes to Pending every Blocked task whose dependencies
// are non-empty and all Completed. newlyCompleted is treated as Completed
// even if the caller has not yet updated it. It returns the ids of the
// promoted tasks in slice order.
func CascadeUnblock(tasks []Task, newlyCompleted string, now time.Time) []string {
	completed := make(map[string]bool, len(tasks)+1)
	for _, t := range tasks {
		if t.Status == StatusCompleted {
			completed[t.ID] = true
		}
	}
	if newlyCompleted != "" {
		completed[newlyCompleted] = true
	}

	var promoted []string
	for i := range tasks {
		t := &tasks[i]
		if t.Status != StatusBlocked || len(t.DependsOn) == 0 {
			continue
		}
		if allIn(t.DependsOn, completed) {
			t.Status = StatusPending
			t.UpdatedAt = now
			promoted = append(promoted, t.ID)
		}
	}
	return promoted
}

// CompletedIDs returns the ids of all Completed tasks in slice order.
func CompletedIDs(tasks []Task) []string {
	var ids []string
	for _, t := range tasks {
		if t.Status == StatusCompleted {
			ids = append(ids, t.ID)
		}
	}
	return ids
}

// Find returns the index of the task with the given id, or -1.
func Find(tasks []Task, id string) int {
	for i := range tasks {
		if tasks[i].ID == id {
			return i
		}
	}
	return -1
}

// Counts returns the number of tasks per status.
func Counts(tasks []Task) map[Status]int {
	counts := make(map[Status]int, 4)
	for _, t := range tasks {
		counts[t.Status]++
	}
	return counts
}

func allIn(ids []string, set map[string]bool) bool {
	for _, id := range ids {
		if !set[id] {
			return false
		}
	}
	return true
}

func indexByID(tasks []Task) map[string]int {
	index := make(map[string]int, len(tasks))
	for i, t := range tasks {
		index[t.ID] = i
	}
	return index
}
