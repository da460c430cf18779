package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"chatdesk/internal/chat"
	"chatdesk/internal/conversation"
	"chatdesk/internal/domain"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	sendConversationID string
	sendModel          string
	sendName           string
	sendYes            bool
)

func newSendCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "send [message]",
		Short: "Send a message and stream the answer",
		Long: `Sends a message to a conversation and prints the answer as it streams.
Without a message argument the message is read from stdin. Press Ctrl-C to
stop the answer; the text received so far is kept.

Example:
  chatctl send "Summarize the attached report"
  chatctl send -C 2f1c... "And the second quarter?"`,
		Args: cobra.MaximumNArgs(1),
		RunE: runSend,
	}
	cmd.Flags().StringVarP(&sendConversationID, "conversation", "C", "", "Conversation to continue (defaults to a new one)")
	cmd.Flags().StringVarP(&sendModel, "model", "m", "", "Model for a new conversation (defaults to default_model from config)")
	cmd.Flags().StringVar(&sendName, "name", "", "Name for a new conversation")
	cmd.Flags().BoolVarP(&sendYes, "yes", "y", false, "Skip the cost confirmation")
	return cmd
}

func runSend(cmd *cobra.Command, args []string) error {
	text, err := messageText(args, cmd.InOrStdin())
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	convID, err := resolveConversation(ctx, a.conversations)
	if err != nil {
		return err
	}

	// Ctrl-C stops the answer instead of killing the process.
	interrupts := make(chan os.Signal, 1)
	signal.Notify(interrupts, os.Interrupt)
	defer signal.Stop(interrupts)
	go func() {
		for range interrupts {
			a.chat.Abort(convID)
		}
	}()

	answers, closeAnswers := confirmInput(args, cmd.InOrStdin())
	defer closeAnswers()
	sink := newTerminalSink(cmd.OutOrStdout(), answers, sendYes)
	result, err := a.chat.Send(ctx, chat.SendRequest{
		ConversationID: convID,
		Message:        domain.NewMessage(domain.RoleUser, text),
	}, sink)
	if err != nil {
		var declined *chat.CostConfirmationError
		if errors.As(err, &declined) {
			fmt.Fprintln(cmd.ErrOrStderr(), color.YellowString("Request cancelled."))
			return nil
		}
		return err
	}
	if result.Aborted {
		fmt.Fprintln(cmd.ErrOrStderr(), color.YellowString("Stopped. Partial answer saved."))
	}
	fmt.Fprintln(cmd.ErrOrStderr(), color.HiBlackString("conversation %s", convID))
	return nil
}

func messageText(args []string, stdin io.Reader) (string, error) {
	if len(args) == 1 {
		if text := strings.TrimSpace(args[0]); text != "" {
			return text, nil
		}
		return "", fmt.Errorf("message is empty")
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("failed to read message: %w", err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", fmt.Errorf("message is empty")
	}
	return text, nil
}

// confirmInput picks where confirmation answers come from. A message read
// from stdin has drained it, so the controlling terminal is asked instead.
func confirmInput(args []string, stdin io.Reader) (io.Reader, func()) {
	if len(args) == 1 {
		return stdin, func() {}
	}
	tty, err := os.Open("/dev/tty")
	if err != nil {
		return nil, func() {}
	}
	return tty, func() { tty.Close() }
}

func resolveConversation(ctx context.Context, conversations conversation.Service) (uuid.UUID, error) {
	if sendConversationID != "" {
		id, err := uuid.Parse(sendConversationID)
		if err != nil {
			return uuid.Nil, fmt.Errorf("invalid conversation id %q: %w", sendConversationID, err)
		}
		return id, nil
	}
	conv, err := conversations.Create(ctx, conversation.CreateRequest{Name: sendName, ModelID: sendModel})
	if err != nil {
		return uuid.Nil, fmt.Errorf("could not create conversation: %w", err)
	}
	return conv.ID, nil
}
