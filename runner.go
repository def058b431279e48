package reroll

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/aretw0/reroll/internal/presentation"
	"github.com/aretw0/reroll/pkg/domain"
)

// Recorder is the part of the session manager the play loop drives.
type Recorder interface {
	Generate(ctx context.Context, sessionID string) (*domain.Entry, error)
	Reroll(ctx context.Context, sessionID, ref string) (*domain.Entry, error)
	Revisit(ctx context.Context, sessionID, ref string) (*domain.Entry, error)
	Override(ctx context.Context, sessionID, ref string, fragmentID, option int) (*domain.Entry, error)
	Entry(ctx context.Context, sessionID, ref string) (*domain.Entry, error)
}

// Runner handles the interactive play loop using provided IO.
// This allows for easy testing and integration with different frontends (CLI, TUI, etc).
//
// Commands, one per line:
//
//	(empty)   generate from a random template
//	r         reroll the current template
//	f         list the overridable fragments
//	N         list the alternatives of fragment N
//	N M       switch fragment N to option M
//	u         go back to the entry the current one came from
//	q         quit (also "quit" and "exit")
type Runner struct {
	Input    io.Reader
	Output   io.Writer
	Session  string
	Headless bool
	Renderer PromptRenderer
}

// PromptRenderer turns a prompt into the text shown for it.
// This allows for coloured output without coupling the core package to a terminal.
type PromptRenderer func(*domain.Prompt) (string, error)

// DefaultPlaySession is the session the play loop records into when none is set.
const DefaultPlaySession = "play"

// NewRunner creates a Runner reading commands from in and writing to out.
func NewRunner(in io.Reader, out io.Writer) *Runner {
	return &Runner{
		Input:   in,
		Output:  out,
		Session: DefaultPlaySession,
	}
}

// Run executes the loop until the input ends or the user quits.
func (r *Runner) Run(ctx context.Context, rec Recorder) error {
	if r.Input == nil {
		return fmt.Errorf("input reader must be set (use os.Stdin)")
	}
	if r.Output == nil {
		return fmt.Errorf("output writer must be set (use os.Stdout)")
	}
	if r.Session == "" {
		r.Session = DefaultPlaySession
	}
	lines := bufio.NewReader(r.Input)

	if !r.Headless {
		fmt.Fprintln(r.Output, "--- reroll play: enter rolls, r rerolls, f lists fragments, N M overrides, u goes back, q quits ---")
	}

	current, err := rec.Generate(ctx, r.Session)
	if err != nil {
		return fmt.Errorf("generate: %w", err)
	}
	r.show(current)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !r.Headless {
			fmt.Fprint(r.Output, "> ")
		}
		text, err := lines.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || text == "") {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("input error: %w", err)
		}
		input := strings.TrimSpace(text)

		next, quit, cmdErr := r.step(ctx, rec, current, input)
		if quit {
			if !r.Headless {
				fmt.Fprintln(r.Output, "Bye!")
			}
			return nil
		}
		if cmdErr != nil {
			// Bad commands never end the loop.
			fmt.Fprintf(r.Output, "error: %v\n", cmdErr)
		} else if next != nil {
			current = next
			r.show(current)
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
	}
}

// step applies one command. A nil entry with a nil error means nothing new
// was recorded.
func (r *Runner) step(ctx context.Context, rec Recorder, current *domain.Entry, input string) (*domain.Entry, bool, error) {
	switch input {
	case "q", "quit", "exit":
		return nil, true, nil
	case "":
		e, err := rec.Generate(ctx, r.Session)
		return e, false, err
	case "r":
		e, err := rec.Reroll(ctx, r.Session, current.ID)
		return e, false, err
	case "f":
		r.listFragments(current)
		return nil, false, nil
	case "u":
		if current.ParentID == "" {
			return nil, false, fmt.Errorf("nothing to go back to")
		}
		e, err := rec.Revisit(ctx, r.Session, current.ParentID)
		return e, false, err
	}

	fields := strings.Fields(input)
	if len(fields) > 2 {
		return nil, false, fmt.Errorf("unknown command %q", input)
	}
	fragment, err := strconv.Atoi(fields[0])
	if err != nil {
		return nil, false, fmt.Errorf("unknown command %q", input)
	}
	if len(fields) == 1 {
		return nil, false, r.listAlternatives(current, fragment)
	}
	option, err := strconv.Atoi(fields[1])
	if err != nil {
		return nil, false, fmt.Errorf("option must be a number, got %q", fields[1])
	}
	e, err := rec.Override(ctx, r.Session, current.ID, fragment, option)
	return e, false, err
}

func (r *Runner) show(e *domain.Entry) {
	output := presentation.Sentence(e.Text)
	if r.Renderer != nil {
		if rendered, err := r.Renderer(e.Prompt); err == nil {
			output = rendered
		}
	}
	fmt.Fprintln(r.Output, strings.TrimSpace(output))
}

func (r *Runner) listFragments(e *domain.Entry) {
	fragments := presentation.Fragments(e.Prompt)
	if len(fragments) == 0 {
		fmt.Fprintln(r.Output, "no fragments can be changed")
		return
	}
	for _, f := range fragments {
		fmt.Fprintf(r.Output, "  [%d] %s: %s\n", f.ID, f.Name, f.Text)
	}
}

func (r *Runner) listAlternatives(e *domain.Entry, id int) error {
	c := e.Prompt.Find(id)
	if c == nil {
		return fmt.Errorf("%w: %d", domain.ErrFragmentNotFound, id)
	}
	if !c.Overridable() {
		return fmt.Errorf("%w: %d", domain.ErrFixedFragment, id)
	}
	for _, alt := range presentation.SortedAlternatives(c) {
		marker := " "
		if alt.Selected {
			marker = "*"
		}
		fmt.Fprintf(r.Output, " %s %d %d: %s\n", marker, id, alt.Index, alt.Text)
	}
	return nil
}
