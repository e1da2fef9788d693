package cmd

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/Iron-Ham/agentteam/internal/errors"
	"github.com/Iron-Ham/agentteam/internal/team"
	"github.com/Iron-Ham/agentteam/internal/util"
)

func newMsgCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "msg",
		Short: "Send and read team messages",
	}
	cmd.AddCommand(msgSendCmd(), msgBroadcastCmd(), msgListCmd())
	return cmd
}

// senderName returns from, or the lead's name.
func senderName(r *runtime, from string) (string, error) {
	if from != "" {
		return from, nil
	}
	state, err := r.store.GetTeam()
	if err != nil {
		return "", err
	}
	lead, ok := state.Lead()
	if !ok {
		return "", errors.NewInvalidOperationError("send message", "team has no lead agent")
	}
	return lead.Name, nil
}

// reportMessages prints recorded messages; a delivery failure is reported
// after them since the messages are already stored.
func reportMessages(w io.Writer, msgs []team.Message, deliveryErr error) error {
	if wantJSON() {
		if err := printJSON(w, msgs); err != nil {
			return err
		}
	} else {
		for _, m := range msgs {
			fmt.Fprintf(w, "%s -> %s (%s)\n", m.From, m.To, m.ID)
		}
	}
	if deliveryErr != nil {
		return fmt.Errorf("recorded, but delivery failed: %w", deliveryErr)
	}
	return nil
}

func msgSendCmd() *cobra.Command {
	var from string
	cmd := &cobra.Command{
		Use:   "send <to> <body>",
		Short: "Send a message to one agent",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(func(r *runtime) error {
				sender, err := senderName(r, from)
				if err != nil {
					return err
				}
				msg, err := r.coord.SendMessage(cmd.Context(), sender, args[0], args[1])
				if msg.ID == "" || errors.Is(err, &errors.StorageError{}) {
					return err
				}
				return reportMessages(cmd.OutOrStdout(), []team.Message{msg}, err)
			})
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "sender name (default is the lead)")
	return cmd
}

func msgBroadcastCmd() *cobra.Command {
	var from string
	cmd := &cobra.Command{
		Use:   "broadcast <body>",
		Short: "Send a message to every teammate that is not shut down",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(func(r *runtime) error {
				sender, err := senderName(r, from)
				if err != nil {
					return err
				}
				msgs, err := r.coord.Broadcast(cmd.Context(), sender, args[0])
				if (msgs == nil && err != nil) || errors.Is(err, &errors.StorageError{}) {
					return err
				}
				return reportMessages(cmd.OutOrStdout(), msgs, err)
			})
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "sender name (default is the lead)")
	return cmd
}

func msgListCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List messages, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit < 0 {
				return fmt.Errorf("--limit must not be negative")
			}
			return withRuntime(func(r *runtime) error {
				msgs, err := r.store.ListMessages(limit)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if wantJSON() {
					return printJSON(out, msgs)
				}
				width := textWidth(out, 60)
				tw := newTable(out)
				tw.AppendHeader(table.Row{"ID", "Time", "From", "To", "Body"})
				for _, m := range msgs {
					tw.AppendRow(table.Row{util.ShortID(m.ID), stamp(m.Timestamp), m.From, m.To, cell(m.Body, width)})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "only the most recent N messages (0 for all)")
	return cmd
}
