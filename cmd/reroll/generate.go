package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/aretw0/reroll/internal/cli"
	"github.com/aretw0/reroll/internal/presentation"
	"github.com/aretw0/reroll/pkg/domain"
	"github.com/aretw0/reroll/pkg/session"
	"github.com/spf13/cobra"
)

// outputFlags select how entries are printed.
type outputFlags struct {
	json    bool
	ids     bool
	numbers bool
}

func (f *outputFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.json, "json", false, "Print entries as JSON lines")
	cmd.Flags().BoolVar(&f.ids, "ids", false, "Prefix each prompt with its entry id")
	cmd.Flags().BoolVar(&f.numbers, "numbers", false, "Tag overridable fragments with their id (terminal only)")
}

// entryView is the JSON form of an entry: the tree is replaced by its
// fragments.
type entryView struct {
	ID        string                  `json:"id" yaml:"id"`
	SessionID string                  `json:"session_id" yaml:"session_id"`
	ParentID  string                  `json:"parent_id,omitempty" yaml:"parent_id,omitempty"`
	Action    domain.Action           `json:"action" yaml:"action"`
	CreatedAt time.Time               `json:"created_at" yaml:"created_at"`
	Template  string                  `json:"template" yaml:"template"`
	Text      string                  `json:"text" yaml:"text"`
	Sentence  string                  `json:"sentence" yaml:"sentence"`
	Fragments []presentation.Fragment `json:"fragments" yaml:"fragments"`
}

func viewEntry(e *domain.Entry) entryView {
	v := entryView{
		ID:        e.ID,
		SessionID: e.SessionID,
		ParentID:  e.ParentID,
		Action:    e.Action,
		CreatedAt: e.CreatedAt,
		Text:      e.Text,
		Sentence:  presentation.Sentence(e.Text),
	}
	if e.Prompt != nil {
		v.Template = e.Prompt.Source
		v.Fragments = presentation.Fragments(e.Prompt)
	}
	return v
}

func (f *outputFlags) print(w io.Writer, e *domain.Entry) error {
	if f.json {
		return json.NewEncoder(w).Encode(viewEntry(e))
	}
	text := presentation.Sentence(e.Text)
	if e.Prompt != nil && cli.IsTerminal(w) {
		text = cli.Highlighter(w, f.numbers).Render(e.Prompt)
	}
	if f.ids {
		_, err := fmt.Fprintf(w, "%s\t%s\n", e.ID, text)
		return err
	}
	_, err := fmt.Fprintln(w, text)
	return err
}

func newGenerateCmd(root *rootOptions) *cobra.Command {
	var (
		out      outputFlags
		template int
		count    int
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate prompts and record them in the session history",
		Args:  cobra.NoArgs,
		RunE: root.withApp(func(cmd *cobra.Command, args []string, app *cli.App) error {
			if count < 1 {
				return fmt.Errorf("--count must be at least 1")
			}
			ctx := cmd.Context()
			session := root.sessionID()
			for range count {
				var (
					e   *domain.Entry
					err error
				)
				if template >= 0 {
					var p *domain.Prompt
					if p, err = app.Engine.Instantiate(ctx, template); err != nil {
						return err
					}
					e, err = app.Manager.Record(ctx, session, domain.ActionGenerate, "", p)
				} else {
					e, err = app.Manager.Generate(ctx, session)
				}
				if err != nil {
					return err
				}
				if err := out.print(cmd.OutOrStdout(), e); err != nil {
					return err
				}
			}
			return nil
		}),
	}
	cmd.Flags().IntVarP(&template, "template", "t", -1, "Index of the template to use (default: random)")
	cmd.Flags().IntVarP(&count, "count", "n", 1, "Number of prompts to generate")
	out.register(cmd)
	return cmd
}

func newRerollCmd(root *rootOptions) *cobra.Command {
	var out outputFlags
	cmd := &cobra.Command{
		Use:   "reroll [entry]",
		Short: "Draw the template of an entry again with fresh choices",
		Long:  `Reroll instantiates the template behind an entry (default: the latest) again. Entries can be named by id, unique id prefix or "latest".`,
		Args:  cobra.MaximumNArgs(1),
		RunE: root.withApp(func(cmd *cobra.Command, args []string, app *cli.App) error {
			e, err := app.Manager.Reroll(cmd.Context(), root.sessionID(), entryRef(args))
			if err != nil {
				return err
			}
			return out.print(cmd.OutOrStdout(), e)
		}),
	}
	out.register(cmd)
	return cmd
}

func newRevisitCmd(root *rootOptions) *cobra.Command {
	var out outputFlags
	cmd := &cobra.Command{
		Use:   "revisit [entry]",
		Short: "Bring an earlier entry back as the latest one",
		Long:  `Revisit records a copy of an entry, rebound to the current corpus, so that later commands default to it.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: root.withApp(func(cmd *cobra.Command, args []string, app *cli.App) error {
			e, err := app.Manager.Revisit(cmd.Context(), root.sessionID(), entryRef(args))
			if err != nil {
				return err
			}
			return out.print(cmd.OutOrStdout(), e)
		}),
	}
	out.register(cmd)
	return cmd
}

func newOverrideCmd(root *rootOptions) *cobra.Command {
	var out outputFlags
	cmd := &cobra.Command{
		Use:   "override <entry> <fragment> <option>",
		Short: "Replace one fragment of an entry and keep everything else",
		Long: `Override records a new entry equal to <entry> except that fragment
<fragment> takes option <option>. Run "reroll fragments <entry>" to see the
fragment ids and option indexes.`,
		Args: cobra.ExactArgs(3),
		RunE: root.withApp(func(cmd *cobra.Command, args []string, app *cli.App) error {
			fragment, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("fragment must be a number: %w", err)
			}
			option, err := strconv.Atoi(args[2])
			if err != nil {
				return fmt.Errorf("option must be a number: %w", err)
			}
			e, err := app.Manager.Override(cmd.Context(), root.sessionID(), args[0], fragment, option)
			if err != nil {
				return err
			}
			return out.print(cmd.OutOrStdout(), e)
		}),
	}
	out.register(cmd)
	return cmd
}

func newFragmentsCmd(root *rootOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "fragments [entry]",
		Short: "List the overridable fragments of an entry and their alternatives",
		Args:  cobra.MaximumNArgs(1),
		RunE: root.withApp(func(cmd *cobra.Command, args []string, app *cli.App) error {
			e, err := app.Manager.Entry(cmd.Context(), root.sessionID(), entryRef(args))
			if err != nil {
				return err
			}
			fragments := presentation.Fragments(e.Prompt)
			w := cmd.OutOrStdout()
			if asJSON {
				return json.NewEncoder(w).Encode(fragments)
			}
			printFragments(w, fragments)
			return nil
		}),
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print fragments as JSON")
	return cmd
}

func printFragments(w io.Writer, fragments []presentation.Fragment) {
	if len(fragments) == 0 {
		fmt.Fprintln(w, "No overridable fragments.")
		return
	}
	for _, f := range fragments {
		fmt.Fprintf(w, "%d %s: %q\n", f.ID, f.Name, f.Text)
		for _, alt := range f.Alternatives {
			mark := " "
			if alt.Selected {
				mark = "*"
			}
			fmt.Fprintf(w, "  %s %d %s\n", mark, alt.Index, alt.Text)
		}
	}
}

func entryRef(args []string) string {
	if len(args) == 0 {
		return session.LatestRef
	}
	return args[0]
}
