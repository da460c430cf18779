package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"chatdesk/internal/chat"
	"chatdesk/internal/domain"

	"github.com/fatih/color"
)

// terminalSink prints a streaming response as it grows.
type terminalSink struct {
	out       io.Writer
	in        *bufio.Reader
	assumeYes bool

	printed int
	status  string
}

// newTerminalSink reads confirmation answers from in. A nil in means there
// is no one to ask, so confirmation is declined with a hint.
func newTerminalSink(out io.Writer, in io.Reader, assumeYes bool) *terminalSink {
	s := &terminalSink{out: out, assumeYes: assumeYes}
	if in != nil {
		s.in = bufio.NewReader(in)
	}
	return s
}

func (s *terminalSink) Loading(on bool) {
	if on {
		fmt.Fprintln(s.out, color.HiBlackString("..."))
	}
}

func (s *terminalSink) Streaming(on bool) {
	if !on && s.printed > 0 {
		fmt.Fprintln(s.out)
	}
}

func (s *terminalSink) Status(status domain.Status) {
	text := status.Summary
	if text == "" {
		text = status.Message
	}
	if text == "" || text == s.status {
		return
	}
	s.status = text
	fmt.Fprintln(s.out, color.YellowString("[%s]", text))
}

func (s *terminalSink) ResetStatus() {
	s.status = ""
}

// Conversation prints whatever the last assistant message gained since the
// previous update. Out-of-order text only ever grows, so a suffix is enough.
func (s *terminalSink) Conversation(conv *domain.Conversation) {
	last := conv.LastMessage()
	if last == nil || last.Role != domain.RoleAssistant {
		return
	}
	if len(last.Content) < s.printed {
		s.printed = 0
	}
	if len(last.Content) > s.printed {
		io.WriteString(s.out, last.Content[s.printed:])
		s.printed = len(last.Content)
	}
}

func (s *terminalSink) Alert(message string) {
	fmt.Fprintln(s.out, color.RedString("! %s", message))
}

func (s *terminalSink) Confirm(est chat.CostEstimate) bool {
	if s.assumeYes {
		return true
	}
	if s.in == nil {
		fmt.Fprintln(s.out, color.YellowString("%s Rerun with --yes to confirm.", confirmPrompt(est)))
		return false
	}
	fmt.Fprintf(s.out, "%s ", color.CyanString(confirmPrompt(est)))
	answer, err := s.in.ReadString('\n')
	if err != nil && answer == "" {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

func confirmPrompt(est chat.CostEstimate) string {
	if est.Known {
		return fmt.Sprintf("This request uses about %d tokens (%d prompts) and may cost $%.2f. Continue? [y/N]",
			est.InputTokens, est.Prompts, est.TotalCost)
	}
	return fmt.Sprintf("This request uses about %d tokens and the model cost is unknown. Continue? [y/N]", est.InputTokens)
}

var _ chat.Sink = (*terminalSink)(nil)
