package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/Iron-Ham/agentteam/internal/taskgraph"
)

func newTaskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Manage the team task board",
	}
	cmd.AddCommand(taskAddCmd(), taskClaimCmd(), taskCompleteCmd(), taskListCmd())
	return cmd
}

func printTask(w io.Writer, t taskgraph.Task) error {
	if wantJSON() {
		return printJSON(w, t)
	}
	fmt.Fprintf(w, "%s  %s  %s\n", t.ID, paint(w, string(t.Status)), t.Title)
	if t.Assignee != "" {
		fmt.Fprintf(w, "  assignee: %s\n", t.Assignee)
	}
	if len(t.DependsOn) > 0 {
		fmt.Fprintf(w, "  depends on: %s\n", strings.Join(t.DependsOn, ", "))
	}
	if t.Result != "" {
		fmt.Fprintf(w, "  result: %s\n", t.Result)
	}
	return nil
}

func taskAddCmd() *cobra.Command {
	var deps []string
	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a task",
		Long: `Add a task to the board. A task whose dependencies are not all completed
starts blocked and becomes pending once they are.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(func(r *runtime) error {
				t, err := r.store.AddTask(args[0], deps)
				if err != nil {
					return err
				}
				return printTask(cmd.OutOrStdout(), t)
			})
		},
	}
	cmd.Flags().StringSliceVarP(&deps, "depends-on", "d", nil, "ids of tasks that must complete first")
	return cmd
}

func taskClaimCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "claim <task-id> <agent>",
		Short: "Assign a task to an agent and mark it in progress",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(func(r *runtime) error {
				t, err := r.store.ClaimTask(args[0], args[1])
				if err != nil {
					return err
				}
				return printTask(cmd.OutOrStdout(), t)
			})
		},
	}
}

func taskCompleteCmd() *cobra.Command {
	var result string
	cmd := &cobra.Command{
		Use:   "complete <task-id>",
		Short: "Mark a task completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(func(r *runtime) error {
				before, err := r.store.ListTasks()
				if err != nil {
					return err
				}
				t, err := r.store.CompleteTask(args[0], result)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if err := printTask(out, t); err != nil || wantJSON() {
					return err
				}

				after, err := r.store.ListTasks()
				if err != nil {
					return err
				}
				for _, id := range unblocked(before, after) {
					fmt.Fprintf(out, "unblocked %s\n", id)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&result, "result", "r", "", "outcome of the work")
	return cmd
}

// unblocked returns the ids that moved from blocked to pending.
func unblocked(before, after []taskgraph.Task) []string {
	was := make(map[string]taskgraph.Status, len(before))
	for _, t := range before {
		was[t.ID] = t.Status
	}
	var ids []string
	for _, t := range after {
		if was[t.ID] == taskgraph.StatusBlocked && t.Status == taskgraph.StatusPending {
			ids = append(ids, t.ID)
		}
	}
	return ids
}

func taskListCmd() *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if status != "" && !taskgraph.Status(status).IsValid() {
				return fmt.Errorf("unknown status %q", status)
			}
			return withRuntime(func(r *runtime) error {
				tasks, err := r.store.ListTasks()
				if err != nil {
					return err
				}
				if status != "" {
					filtered := tasks[:0]
					for _, t := range tasks {
						if string(t.Status) == status {
							filtered = append(filtered, t)
						}
					}
					tasks = filtered
				}

				out := cmd.OutOrStdout()
				if wantJSON() {
					return printJSON(out, tasks)
				}
				width := textWidth(out, 90)
				tw := newTable(out)
				tw.AppendHeader(table.Row{"ID", "Title", "Status", "Assignee", "Depends On"})
				for _, t := range tasks {
					tw.AppendRow(table.Row{
						t.ID,
						cell(t.Title, width),
						paint(out, string(t.Status)),
						t.Assignee,
						len(t.DependsOn),
					})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "only tasks with this status")
	return cmd
}
