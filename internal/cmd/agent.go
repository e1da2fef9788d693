package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/agentteam/internal/team"
)

func newAgentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agent",
		Short: "Manage team members",
	}
	cmd.AddCommand(agentAddCmd(), agentStatusCmd(), agentShutdownCmd(), agentListCmd())
	return cmd
}

func agentAddCmd() *cobra.Command {
	var role, model string
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Register an agent without starting it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(func(r *runtime) error {
				a, err := r.store.AddAgent(args[0], team.Role(role), "", model)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if wantJSON() {
					return printJSON(out, a)
				}
				fmt.Fprintf(out, "Added %s %s (%s)\n", a.Role, a.Name, a.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&role, "role", string(team.RoleTeammate), "lead or teammate")
	cmd.Flags().StringVar(&model, "model", "", "model identifier")
	return cmd
}

func agentStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <id-or-name> <active|idle|shutdown>",
		Short: "Set an agent's status",
		Long: `Set an agent's status without touching its process or pane. Use
'agent shutdown' to stop a running teammate.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			status := team.AgentStatus(args[1])
			if !status.IsValid() {
				return fmt.Errorf("unknown status %q: expected active, idle or shutdown", args[1])
			}
			return withRuntime(func(r *runtime) error {
				a, err := r.store.UpdateAgentStatus(args[0], status)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if wantJSON() {
					return printJSON(out, a)
				}
				fmt.Fprintf(out, "%s is now %s\n", a.Name, paint(out, string(a.Status)))
				return nil
			})
		},
	}
}

func agentShutdownCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shutdown <id-or-name>",
		Short: "Stop a teammate and mark it shut down",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(func(r *runtime) error {
				a, err := r.coord.ShutdownAgent(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if wantJSON() {
					return printJSON(out, a)
				}
				fmt.Fprintf(out, "%s shut down\n", a.Name)
				return nil
			})
		},
	}
}

func agentListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List agents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(func(r *runtime) error {
				state, err := r.store.GetTeam()
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if wantJSON() {
					return printJSON(out, state.Agents)
				}
				renderAgents(out, state)
				return nil
			})
		},
	}
}
