package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newToolsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List and call the team tools offered to language models",
	}
	cmd.AddCommand(toolsListCmd(), toolsCallCmd())
	return cmd
}

func toolsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List tool definitions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(func(r *runtime) error {
				defs := r.bridge().Definitions()
				out := cmd.OutOrStdout()
				if wantJSON() {
					return printJSON(out, defs)
				}
				width := textWidth(out, 50)
				tw := newTable(out)
				tw.AppendHeader(table.Row{"Tool", "Required", "Description"})
				for _, d := range defs {
					tw.AppendRow(table.Row{d.Name, strings.Join(d.InputSchema.Required, ", "), cell(d.Description, width)})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func toolsCallCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "call <tool> [json-arguments|-]",
		Short: "Invoke a tool the way a model would",
		Long: `Invoke a tool with JSON arguments, given inline or on stdin with "-".

  agentteam tools call team_add_task '{"title": "write docs"}'`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw := json.RawMessage("{}")
			if len(args) == 2 {
				if args[1] == "-" {
					data, err := io.ReadAll(cmd.InOrStdin())
					if err != nil {
						return fmt.Errorf("failed to read arguments: %w", err)
					}
					raw = data
				} else {
					raw = json.RawMessage(args[1])
				}
			}
			if !json.Valid(raw) {
				return fmt.Errorf("arguments are not valid JSON")
			}

			return withRuntime(func(r *runtime) error {
				res, err := r.bridge().Execute(cmd.Context(), args[0], raw)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if wantJSON() {
					if err := printJSON(out, res); err != nil {
						return err
					}
				} else {
					fmt.Fprintln(out, res.Text)
				}
				if res.IsError {
					return fmt.Errorf("%s reported an error", args[0])
				}
				return nil
			})
		},
	}
}
