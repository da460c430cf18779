package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"chatdesk/internal/domain"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newConversationsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "conversations",
		Aliases: []string{"conv"},
		Short:   "Manage local conversations",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List conversations, most recently updated first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			convs, err := a.conversations.List(cmd.Context())
			if err != nil {
				return err
			}
			printConversations(cmd.OutOrStdout(), convs)
			return nil
		},
	}

	showCmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Print a conversation's messages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid conversation id %q: %w", args[0], err)
			}
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			conv, err := a.conversations.Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			printMessages(cmd.OutOrStdout(), conv)
			return nil
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid conversation id %q: %w", args[0], err)
			}
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.conversations.Delete(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Deleted %s\n", color.GreenString("✓"), id)
			return nil
		},
	}

	cmd.AddCommand(listCmd, showCmd, deleteCmd)
	return cmd
}

func printConversations(w io.Writer, convs []*domain.Conversation) {
	if len(convs) == 0 {
		fmt.Fprintln(w, "No conversations.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tMODEL\tMESSAGES\tUPDATED")
	for _, c := range convs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n",
			c.ID, c.Name, c.Model.ID, len(c.Messages), c.UpdatedAt.Local().Format("2006-01-02 15:04"))
	}
	tw.Flush()
}

func printMessages(w io.Writer, conv *domain.Conversation) {
	fmt.Fprintln(w, color.CyanString("%s (%s)", conv.Name, conv.Model.ID))
	for _, m := range conv.Messages {
		switch m.Role {
		case domain.RoleUser:
			fmt.Fprintf(w, "\n%s %s\n", color.GreenString("you:"), m.Content)
		case domain.RoleAssistant:
			label := color.BlueString("assistant:")
			if m.Data != nil && m.Data.IsError {
				label = color.RedString("error:")
			}
			fmt.Fprintf(w, "\n%s %s\n", label, m.Content)
		default:
			fmt.Fprintf(w, "\n%s %s\n", color.HiBlackString("%s:", m.Role), m.Content)
		}
	}
}
