package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ethanbaker/mentor/pkg/sdk"
	"github.com/spf13/cobra"
)

var pollInterval time.Duration

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat",
	Long: `Open a chat view and talk to the mentor. The most recent conversation is resumed.

Commands:
  /new           start a new conversation
  /history       list past conversations
  /resume <id>   continue a past conversation
  /delete <id>   delete a past conversation
  /quit          leave`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat(cmd.Context(), client, openRequest(), cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

func init() {
	chatCmd.Flags().DurationVar(&pollInterval, "poll", 250*time.Millisecond, "how often to check for replies")
}

// chatSession is one interactive chat bound to a view
type chatSession struct {
	client *sdk.Client
	out    io.Writer
	view   *sdk.View
	poll   time.Duration
}

func runChat(ctx context.Context, client *sdk.Client, req *sdk.OpenViewRequest, in io.Reader, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	view, err := client.OpenView(ctx, req)
	if err != nil {
		return fmt.Errorf("open view: %w", err)
	}

	s := &chatSession{client: client, out: out, view: view, poll: pollInterval}
	if s.poll <= 0 {
		s.poll = 250 * time.Millisecond
	}
	defer func() {
		// Teardown uses its own context so it still runs after cancellation
		if err := client.CloseView(context.Background(), s.view.ID); err != nil {
			fmt.Fprintf(out, "Error closing view: %v\n", err)
		}
	}()

	if err := s.waitFor(ctx, func(v *sdk.View) bool { return v.State != "uninitialized" }); err != nil {
		return err
	}
	fmt.Fprintf(out, "Mentor chat (%s). Type /quit to leave.\n", req.ContextType)
	s.printTurns(s.view.Transcript)

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "\n> ")
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "/quit" || input == "exit" {
			break
		}

		if err := s.handle(ctx, input); err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
		}
	}

	return scanner.Err()
}

// handle runs one line of input
func (s *chatSession) handle(ctx context.Context, input string) error {
	command, arg, _ := strings.Cut(input, " ")
	arg = strings.TrimSpace(arg)

	switch command {
	case "/new":
		view, err := s.client.StartNew(ctx, s.view.ID)
		if err != nil {
			return err
		}
		s.view = view
		fmt.Fprintln(s.out, "Started a new conversation.")
		s.printTurns(view.Transcript)

	case "/history":
		conversations, err := s.client.History(ctx, s.view.ID, 0)
		if err != nil {
			return err
		}
		printHistory(s.out, conversations, s.view.ConversationID)

	case "/resume":
		if arg == "" {
			return fmt.Errorf("usage: /resume <conversation id>")
		}
		view, err := s.client.Resume(ctx, s.view.ID, arg)
		if err != nil {
			return err
		}
		s.view = view
		s.printTurns(view.Transcript)

	case "/delete":
		if arg == "" {
			return fmt.Errorf("usage: /delete <conversation id>")
		}
		view, err := s.client.DeleteConversation(ctx, s.view.ID, arg)
		if err != nil {
			return err
		}
		s.view = view
		fmt.Fprintln(s.out, "Conversation deleted.")

	default:
		return s.send(ctx, input)
	}

	return nil
}

// send posts a message and prints the reply once it arrives
func (s *chatSession) send(ctx context.Context, text string) error {
	view, err := s.client.SendMessage(ctx, s.view.ID, text)
	if err != nil {
		return err
	}
	s.view = view

	// The reply may already be in the returned view, so start printing after our own turn
	seen := len(view.Transcript)
	for i := len(view.Transcript) - 1; i >= 0; i-- {
		if view.Transcript[i].Role == "user" {
			seen = i + 1
			break
		}
	}

	if err := s.waitFor(ctx, func(v *sdk.View) bool { return !v.ReplyPending }); err != nil {
		return err
	}
	if len(s.view.Transcript) > seen {
		s.printTurns(s.view.Transcript[seen:])
	}
	return nil
}

// waitFor polls the view until done reports true
func (s *chatSession) waitFor(ctx context.Context, done func(*sdk.View) bool) error {
	ticker := time.NewTicker(s.poll)
	defer ticker.Stop()

	for !done(s.view) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		view, err := s.client.GetView(ctx, s.view.ID)
		if err != nil {
			return err
		}
		s.view = view
	}
	return nil
}

func (s *chatSession) printTurns(turns []sdk.Turn) {
	for _, turn := range turns {
		if turn.Role == "user" {
			fmt.Fprintf(s.out, "You: %s\n", turn.Text)
		} else {
			fmt.Fprintf(s.out, "Mentor: %s\n", turn.Text)
		}
	}
}
