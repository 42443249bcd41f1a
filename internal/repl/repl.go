// Package repl implements the interactive chat loop: it reads one line
// per turn, dispatches local commands, and forwards everything else to
// the session.
package repl

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/termchat/termchat/internal/chat"
	"github.com/termchat/termchat/internal/history"
	"github.com/termchat/termchat/internal/llm"
)

// maxHistoryLine is how much of a message the history command shows
// before truncating.
const maxHistoryLine = 100

const farewell = "\nGoodbye! Thanks for chatting!"

// Lister reads archived conversations for the sessions/load commands.
type Lister interface {
	Conversations() ([]*history.Conversation, error)
	Messages(conversationID string) ([]*history.Message, error)
}

// REPL drives a single session from a line-oriented input stream.
type REPL struct {
	session *chat.Session
	models  []string // allow-list for the models command
	archive Lister   // nil when archiving is disabled
	in      io.Reader
	out     io.Writer

	lines chan string
}

// New creates a REPL. models is the fixed allow-list offered by the
// models command; archive may be nil.
func New(session *chat.Session, models []string, archive Lister, in io.Reader, out io.Writer) *REPL {
	return &REPL{
		session: session,
		models:  models,
		archive: archive,
		in:      in,
		out:     out,
	}
}

// Run reads and dispatches lines until a quit command, end of input, or
// context cancellation. It never returns an error for anything that
// happens inside a turn.
func (r *REPL) Run(ctx context.Context) error {
	r.lines = make(chan string)
	go r.readLines(ctx)

	r.clearScreen()
	r.printHeader()
	fmt.Fprintln(r.out, "Hello! I'm your AI assistant. How can I help you today?")

	for {
		fmt.Fprint(r.out, "\nYou: ")
		line, ok := r.readLine(ctx)
		if !ok || !r.handle(ctx, line) {
			fmt.Fprintln(r.out, farewell)
			return nil
		}
	}
}

// readLines feeds the input stream into r.lines and closes it on EOF.
// Lines of any length are accepted; a bufio.Scanner would give up
// permanently on a line past its buffer size.
func (r *REPL) readLines(ctx context.Context) {
	defer close(r.lines)
	reader := bufio.NewReader(r.in)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			// Deliver a final unterminated line before stopping.
			if line != "" {
				select {
				case r.lines <- strings.TrimRight(line, "\r\n"):
				case <-ctx.Done():
				}
			}
			if err != io.EOF {
				log.Warn().Err(err).Msg("reading input")
			}
			return
		}
		select {
		case r.lines <- strings.TrimRight(line, "\r\n"):
		case <-ctx.Done():
			return
		}
	}
}

// readLine returns the next input line, or false on EOF or interrupt.
func (r *REPL) readLine(ctx context.Context) (string, bool) {
	select {
	case <-ctx.Done():
		return "", false
	case line, ok := <-r.lines:
		return line, ok
	}
}

// handle dispatches one line. It returns false when the loop should
// stop. A panic inside a turn is reported and the loop keeps running.
func (r *REPL) handle(ctx context.Context, line string) (cont bool) {
	defer func() {
		if v := recover(); v != nil {
			cont = true
			fmt.Fprintf(r.out, "\nUnexpected error: %v\nPlease try again or type 'quit' to exit.\n", v)
			log.Error().Interface("panic", v).Msg("recovered in chat loop")
		}
	}()

	input := strings.TrimSpace(line)
	if input == "" {
		return true
	}

	switch strings.ToLower(input) {
	case "quit", "exit", "bye":
		return false
	case "clear":
		r.clearScreen()
		r.printHeader()
	case "help":
		r.printHelp()
	case "history":
		r.printHistory()
	case "reset":
		r.session.Reset()
		fmt.Fprintln(r.out, "Conversation history has been reset.")
	case "model":
		r.printModelInfo()
	case "models":
		r.switchModel(ctx)
	case "sessions":
		r.printConversations()
	case "load":
		r.loadConversation(ctx)
	default:
		fmt.Fprintln(r.out, "\nThinking...")
		fmt.Fprintf(r.out, "\nAI: %s\n", r.session.Submit(ctx, input))
	}
	return true
}

func (r *REPL) clearScreen() {
	fmt.Fprint(r.out, "\033[2J\033[H")
}

func (r *REPL) printHeader() {
	divider := strings.Repeat("=", 60)
	fmt.Fprintln(r.out, divider)
	fmt.Fprintln(r.out, "  TERMCHAT")
	fmt.Fprintln(r.out, divider)
	fmt.Fprintln(r.out, "Type 'quit', 'exit', or 'bye' to end the conversation")
	fmt.Fprintln(r.out, "Type 'help' for the full command list")
	fmt.Fprintln(r.out, strings.Repeat("-", 60))
}

func (r *REPL) printHelp() {
	fmt.Fprintln(r.out, "\nAvailable commands:")
	fmt.Fprintln(r.out, "  help      Show this help message")
	fmt.Fprintln(r.out, "  quit      Exit (also: exit, bye)")
	fmt.Fprintln(r.out, "  clear     Clear the screen")
	fmt.Fprintln(r.out, "  history   Show the conversation so far")
	fmt.Fprintln(r.out, "  reset     Start a fresh conversation")
	fmt.Fprintln(r.out, "  model     Show the current configuration")
	fmt.Fprintln(r.out, "  models    Switch between available models")
	fmt.Fprintln(r.out, "  sessions  List archived conversations")
	fmt.Fprintln(r.out, "  load      Restore an archived conversation")
}

func (r *REPL) printHistory() {
	msgs := r.session.History()
	if len(msgs) == 0 {
		fmt.Fprintln(r.out, "\nNo conversation history yet.")
		return
	}

	fmt.Fprintf(r.out, "\nConversation history (%d messages):\n", len(msgs))
	fmt.Fprintln(r.out, strings.Repeat("-", 50))
	for i, m := range msgs {
		role := "You"
		if m.Role == llm.RoleAssistant {
			role = "AI"
		}
		fmt.Fprintf(r.out, "%3d. %s: %s\n", i+1, role, truncate(m.Content, maxHistoryLine))
	}
}

func (r *REPL) printModelInfo() {
	snap := r.session.Describe()
	fmt.Fprintln(r.out, "\nCurrent configuration:")
	fmt.Fprintf(r.out, "  Model:               %s\n", snap.Model)
	fmt.Fprintf(r.out, "  Max tokens:          %d\n", snap.MaxTokens)
	fmt.Fprintf(r.out, "  Temperature:         %g\n", snap.Temperature)
	fmt.Fprintf(r.out, "  Messages in history: %d\n", snap.Messages)
	fmt.Fprintf(r.out, "  API key:             %s\n", snap.Credential)
}

// switchModel shows the allow-list and applies a numeric selection.
// An out-of-range or non-numeric choice leaves the model unchanged.
func (r *REPL) switchModel(ctx context.Context) {
	current := r.session.Describe().Model
	fmt.Fprintln(r.out, "\nAvailable models:")
	for i, m := range r.models {
		marker := ""
		if m == current {
			marker = " (current)"
		}
		fmt.Fprintf(r.out, "  %d. %s%s\n", i+1, m, marker)
	}

	fmt.Fprint(r.out, "\nSelect model number (or press Enter to cancel): ")
	choice, ok := r.readLine(ctx)
	if !ok {
		return
	}
	choice = strings.TrimSpace(choice)
	if choice == "" {
		fmt.Fprintln(r.out, "Cancelled.")
		return
	}
	n, err := strconv.Atoi(choice)
	if err != nil {
		fmt.Fprintln(r.out, "Cancelled.")
		return
	}
	if n < 1 || n > len(r.models) {
		fmt.Fprintln(r.out, "Invalid selection.")
		return
	}
	r.session.SetModel(r.models[n-1])
	fmt.Fprintf(r.out, "Switched to model: %s\n", r.models[n-1])
}

func (r *REPL) printConversations() {
	convs, ok := r.listConversations()
	if !ok {
		return
	}
	fmt.Fprintf(r.out, "\nArchived conversations (%d):\n", len(convs))
	for i, c := range convs {
		fmt.Fprintf(r.out, "  %d. %s  %s  (%d messages)\n",
			i+1, c.CreatedAt.Local().Format("2006-01-02 15:04"), c.Model, c.Messages)
	}
}

// loadConversation shows the archive and restores a numeric selection
// into the session, replacing the in-memory transcript.
func (r *REPL) loadConversation(ctx context.Context) {
	convs, ok := r.listConversations()
	if !ok {
		return
	}
	fmt.Fprintf(r.out, "\nArchived conversations (%d):\n", len(convs))
	for i, c := range convs {
		fmt.Fprintf(r.out, "  %d. %s  %s  (%d messages)\n",
			i+1, c.CreatedAt.Local().Format("2006-01-02 15:04"), c.Model, c.Messages)
	}

	fmt.Fprint(r.out, "\nSelect conversation number (or press Enter to cancel): ")
	choice, chOK := r.readLine(ctx)
	if !chOK {
		return
	}
	choice = strings.TrimSpace(choice)
	if choice == "" {
		fmt.Fprintln(r.out, "Cancelled.")
		return
	}
	n, err := strconv.Atoi(choice)
	if err != nil {
		fmt.Fprintln(r.out, "Cancelled.")
		return
	}
	if n < 1 || n > len(convs) {
		fmt.Fprintln(r.out, "Invalid selection.")
		return
	}

	stored, err := r.archive.Messages(convs[n-1].ID)
	if err != nil {
		fmt.Fprintf(r.out, "Error loading conversation: %v\n", err)
		return
	}
	msgs := make([]llm.Message, len(stored))
	for i, m := range stored {
		msgs[i] = llm.Message{Role: m.Role, Content: m.Content}
	}
	r.session.Load(msgs)
	fmt.Fprintf(r.out, "Restored conversation with %d messages.\n", len(msgs))
}

// listConversations fetches the archive listing, reporting the empty
// and disabled cases. ok is false when there is nothing to pick from.
func (r *REPL) listConversations() ([]*history.Conversation, bool) {
	if r.archive == nil {
		fmt.Fprintln(r.out, "\nArchiving is disabled.")
		return nil, false
	}
	convs, err := r.archive.Conversations()
	if err != nil {
		fmt.Fprintf(r.out, "Error listing conversations: %v\n", err)
		return nil, false
	}
	if len(convs) == 0 {
		fmt.Fprintln(r.out, "\nNo archived conversations yet.")
		return nil, false
	}
	return convs, true
}

// truncate cuts s to at most n runes, appending an ellipsis marker when
// anything was cut.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
