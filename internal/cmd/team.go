package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/Iron-Ham/agentteam/internal/errors"
	"github.com/Iron-Ham/agentteam/internal/lifecycle"
	"github.com/Iron-Ham/agentteam/internal/taskgraph"
	"github.com/Iron-Ham/agentteam/internal/team"
)

func newTeamCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "team",
		Short: "Create, inspect and remove the team",
	}
	cmd.AddCommand(
		teamCreateCmd(),
		teamShowCmd(),
		teamValidateCmd(),
		teamCleanupCmd(),
		teamPanesCmd(),
	)
	return cmd
}

// parseAgentFlag parses name[:model].
func parseAgentFlag(s string) (lifecycle.AgentSpec, error) {
	name, model, _ := strings.Cut(s, ":")
	if strings.TrimSpace(name) == "" {
		return lifecycle.AgentSpec{}, fmt.Errorf("invalid --agent %q: expected name[:model]", s)
	}
	return lifecycle.AgentSpec{Name: name, Model: model}, nil
}

func teamCreateCmd() *cobra.Command {
	var (
		agentFlags []string
		file       string
		mode       string
		lead       string
		prompt     string
	)
	cmd := &cobra.Command{
		Use:   "create [name]",
		Short: "Create a team and start its teammates",
		Long: `Create a team led by this CLI and start its teammates.

Teammates come from repeated --agent name[:model] flags or from a YAML file:

  team: proj
  agents:
    - name: tester
      model: sonnet
      prompt: Write the integration tests.

In tmux mode each teammate runs in its own window. In in_process mode the
teammates are children of this command, which keeps running until
interrupted and then shuts them down.

Running create again with the same name joins the existing team.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(func(r *runtime) error {
				req := lifecycle.CreateRequest{LeadName: lead}
				if file != "" {
					tf, err := lifecycle.LoadAgentSpecs(file)
					if err != nil {
						return err
					}
					req.TeamName, req.Agents = tf.TeamName, tf.Agents
					if req.LeadName == "" {
						req.LeadName = tf.LeadName
					}
				}
				if len(args) == 1 {
					req.TeamName = args[0]
				}
				if req.TeamName == "" {
					return fmt.Errorf("a team name is required, as an argument or in --file")
				}
				for _, a := range agentFlags {
					spec, err := parseAgentFlag(a)
					if err != nil {
						return err
					}
					spec.Prompt = prompt
					req.Agents = append(req.Agents, spec)
				}
				if req.LeadName == "" {
					req.LeadName = r.cfg.Team.LeadName
				}
				if mode == "" {
					mode = r.cfg.Team.TeammateMode
				}
				m, err := lifecycle.ParseMode(mode)
				if err != nil {
					return err
				}
				req.Mode = m

				state, err := r.coord.CreateOrJoin(cmd.Context(), r.caller, req)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if wantJSON() {
					if err := printJSON(out, state); err != nil {
						return err
					}
				} else {
					fmt.Fprintf(out, "Team %q ready with %d teammates\n", state.TeamName, len(state.Teammates()))
					renderAgents(out, state)
				}
				return hostInProcess(cmd.Context(), cmd.ErrOrStderr(), r, state)
			})
		},
	}
	cmd.Flags().StringArrayVarP(&agentFlags, "agent", "a", nil, "teammate as name[:model] (repeatable)")
	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML file describing the team")
	cmd.Flags().StringVar(&mode, "mode", "", "teammate hosting: auto, in_process or tmux")
	cmd.Flags().StringVar(&lead, "lead", "", "lead agent name")
	cmd.Flags().StringVarP(&prompt, "prompt", "p", "", "initial prompt for teammates given with --agent")
	return cmd
}

// hostInProcess keeps the command alive while teammates spawned by this
// process run, and shuts them down on interrupt.
func hostInProcess(ctx context.Context, errOut io.Writer, r *runtime, state team.StateData) error {
	var hosted []team.Agent
	for _, a := range state.Teammates() {
		if a.Handle != "" && r.agents.Running(a.Handle) {
			hosted = append(hosted, a)
		}
	}
	if len(hosted) == 0 {
		return nil
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	fmt.Fprintf(errOut, "Hosting %d teammates in this process. Press Ctrl-C to stop them.\n", len(hosted))

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for running := len(hosted); running > 0; {
		select {
		case <-ctx.Done():
			running = 0
		case <-ticker.C:
			running = 0
			for _, a := range hosted {
				if r.agents.Running(a.Handle) {
					running++
				}
			}
		}
	}

	var errs []error
	for _, a := range hosted {
		if _, err := r.coord.ShutdownAgent(context.WithoutCancel(ctx), a.ID); err != nil {
			errs = append(errs, err)
		}
	}
	fmt.Fprintln(errOut, "Teammates stopped.")
	return errors.Join(errs...)
}

func renderAgents(w io.Writer, state team.StateData) {
	tw := newTable(w)
	tw.AppendHeader(table.Row{"ID", "Name", "Role", "Status", "Model", "Host"})
	for _, a := range state.Agents {
		host := "pane"
		switch {
		case a.Role == team.RoleLead:
			host = "-"
		case a.Handle != "":
			host = "process"
		}
		model := a.Model
		if model == "" {
			model = "-"
		}
		tw.AppendRow(table.Row{a.ID, a.Name, paint(w, string(a.Role)), paint(w, string(a.Status)), model, host})
	}
	tw.Render()
}

func teamShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the team, its agents and task counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(func(r *runtime) error {
				state, err := r.store.GetTeam()
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if wantJSON() {
					return printJSON(out, state)
				}

				sum := state.Summary()
				fmt.Fprintf(out, "Team: %s\n", state.TeamName)
				if lead, ok := state.Lead(); ok {
					fmt.Fprintf(out, "Lead: %s (%s)\n", lead.Name, lead.ID)
				}
				fmt.Fprintf(out, "Created: %s\n", stamp(state.CreatedAt))
				fmt.Fprintf(out, "Updated: %s\n", stamp(state.UpdatedAt))
				fmt.Fprintf(out, "Tasks: %d pending, %d in progress, %d blocked, %d completed\n",
					sum.Tasks[taskgraph.StatusPending], sum.Tasks[taskgraph.StatusInProgress],
					sum.Tasks[taskgraph.StatusBlocked], sum.Tasks[taskgraph.StatusCompleted])
				fmt.Fprintf(out, "Messages: %d\n\n", sum.Messages)
				renderAgents(out, state)
				return nil
			})
		},
	}
}

func teamValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the team for structural problems",
		Long: `Check that the team has exactly one lead, that lead_id points at it, and
that every task dependency refers to an existing task.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(func(r *runtime) error {
				state, err := r.store.GetTeam()
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				err = r.store.ValidateInvariants()
				if err == nil {
					fmt.Fprintf(out, "Team %q is consistent\n", state.TeamName)
					return nil
				}
				problems := []error{err}
				if joined, ok := err.(interface{ Unwrap() []error }); ok {
					problems = joined.Unwrap()
				}
				for _, p := range problems {
					fmt.Fprintf(out, "  - %s\n", p)
				}
				return fmt.Errorf("team %q has %d problems", state.TeamName, len(problems))
			})
		},
	}
}

func teamCleanupCmd() *cobra.Command {
	var killServer bool
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete the team once every teammate is shut down",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(func(r *runtime) error {
				state, err := r.store.GetTeam()
				if err != nil {
					return err
				}
				if err := r.coord.Cleanup(cmd.Context(), r.caller); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Team %q cleaned up\n", state.TeamName)

				if killServer && r.panes.Available(cmd.Context()) && len(r.panes.ListPaneTitles(cmd.Context())) == 0 {
					if err := r.panes.KillServer(cmd.Context()); err != nil {
						r.logger.Warn("failed to stop tmux server", "error", err.Error())
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&killServer, "kill-tmux", false, "stop the agentteam tmux server when no panes remain")
	return cmd
}

func teamPanesCmd() *cobra.Command {
	var closeAll bool
	cmd := &cobra.Command{
		Use:   "panes",
		Short: "List or close the tmux windows of the team's teammates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(func(r *runtime) error {
				state, err := r.store.GetTeam()
				if err != nil {
					return err
				}
				pattern := lifecycle.PanePattern(state.TeamName)
				out := cmd.OutOrStdout()
				if closeAll {
					n, err := r.panes.ClosePanesMatching(cmd.Context(), pattern)
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Closed %d panes\n", n)
					return nil
				}
				titles, err := r.panes.TitlesMatching(cmd.Context(), pattern)
				if err != nil {
					return err
				}
				if wantJSON() {
					return printJSON(out, titles)
				}
				for _, t := range titles {
					fmt.Fprintln(out, t)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&closeAll, "close", false, "close every pane of the team")
	return cmd
}
