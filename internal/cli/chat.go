package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/aretw0/compass/internal/presentation/tui"
	"github.com/aretw0/compass/pkg/domain"
	"github.com/aretw0/compass/pkg/runner"
	"github.com/aretw0/compass/pkg/session"
	"github.com/aretw0/compass/pkg/workflow"
)

// Conversation is what the chat loop needs from the assistant.
type Conversation interface {
	Chat(ctx context.Context, userID, planID, message string, emit workflow.EmitFunc) (*domain.SessionState, error)
	State(ctx context.Context, sessionID string) (*domain.SessionState, error)
	Reset(ctx context.Context, sessionID string) error
}

// ChatOptions configure RunChat.
type ChatOptions struct {
	UserID   string
	PlanID   string
	In       io.Reader
	Out      io.Writer
	MaxInput int
	// Interactive enables the banner, prompt and markdown rendering.
	Interactive bool
	// Render turns markdown into terminal output. Nil prints it raw.
	Render func(string) (string, error)
}

const chatHelp = `commands:
  /itinerary  show the current itinerary
  /reset      forget this conversation
  /quit       leave`

// RunChat reads one message per line and prints the assistant's replies
// until the input ends, /quit is entered or ctx is done.
func RunChat(ctx context.Context, c Conversation, opts ChatOptions) error {
	out := opts.Out
	sessionID := session.ID(opts.UserID, opts.PlanID)
	if opts.Interactive {
		tui.PrintBanner(out)
		fmt.Fprintln(out, tui.Faint(out, fmt.Sprintf("session %s, /help for commands", sessionID)))
	}

	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(opts.In)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
		close(lines)
	}()

	for {
		if opts.Interactive {
			fmt.Fprint(out, tui.Prompt(out))
		}
		var line string
		select {
		case <-ctx.Done():
			fmt.Fprintln(out)
			return nil
		case l, ok := <-lines:
			if !ok {
				return <-readErr
			}
			line = strings.TrimSpace(l)
		}
		if line == "" {
			continue
		}

		switch line {
		case "/quit", "/exit":
			return nil
		case "/help":
			fmt.Fprintln(out, chatHelp)
			continue
		case "/reset":
			if err := c.Reset(ctx, sessionID); err != nil {
				return err
			}
			printSystemMessage(out, "Conversation %s cleared.", sessionID)
			continue
		case "/itinerary":
			state, err := c.State(ctx, sessionID)
			if err != nil {
				return err
			}
			printItinerary(out, state.CurrentItinerary(), opts.Render)
			continue
		}

		if err := chatTurn(ctx, c, opts, line); err != nil {
			return err
		}
	}
}

func chatTurn(ctx context.Context, c Conversation, opts ChatOptions, line string) error {
	out := opts.Out
	req, err := runner.PrepareRequest(runner.ChatRequest{
		UserID:  opts.UserID,
		PlanID:  opts.PlanID,
		Message: line,
	}, opts.MaxInput)
	if err != nil {
		printSystemMessage(out, "%v", err)
		return nil
	}

	streamed := make(map[string]bool)
	planned := false
	state, err := c.Chat(ctx, req.UserID, req.PlanID, req.Message, func(e workflow.Event) {
		switch e.Kind {
		case workflow.EventToken:
			if slices.Contains(runner.DefaultTokenNodes, e.Node) && e.Token != "" {
				streamed[e.Node] = true
				fmt.Fprint(out, e.Token)
			}
		case workflow.EventUpdate:
			if opts.Interactive {
				fmt.Fprintln(out, tui.Faint(out, "· "+e.Node))
			}
			if e.Update.Planning != nil {
				planned = true
			}
			if streamed[e.Node] {
				delete(streamed, e.Node)
				fmt.Fprintln(out)
				return
			}
			for _, m := range e.Update.Messages {
				if m.Role == domain.RoleAssistant {
					fmt.Fprintln(out, m.Content)
				}
			}
		}
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		printSystemMessage(out, "%s", runner.MsgTurnFailed)
		return nil
	}
	if planned {
		printItinerary(out, state.CurrentItinerary(), opts.Render)
	}
	return nil
}

func printItinerary(out io.Writer, it *domain.Itinerary, render func(string) (string, error)) {
	if it == nil {
		printSystemMessage(out, "No itinerary yet.")
		return
	}
	md := tui.ItineraryMarkdown(it)
	if render != nil {
		if styled, err := render(md); err == nil {
			md = styled
		}
	}
	fmt.Fprintln(out, md)
}
