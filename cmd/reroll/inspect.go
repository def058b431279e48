package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/reroll/internal/cli"
	"github.com/aretw0/reroll/internal/presentation/graph"
	"github.com/aretw0/reroll/internal/presentation/tui"
	"github.com/spf13/cobra"
)

func newInspectCmd(root *rootOptions) *cobra.Command {
	var (
		templates bool
		mermaid   bool
		fragment  int
	)
	cmd := &cobra.Command{
		Use:   "inspect [entry]",
		Short: "Show the fragment tree of an entry or the parsed templates",
		Long: `Inspect renders an entry (default: the latest) as markdown with every
overridable fragment and its alternatives. --mermaid prints the whole
choice tree as a Mermaid flowchart instead, highlighting --fragment.
--templates summarizes the corpus templates.`,
		Args: cobra.MaximumNArgs(1),
		RunE: root.withApp(func(cmd *cobra.Command, args []string, app *cli.App) error {
			w := cmd.OutOrStdout()
			if templates {
				var b strings.Builder
				b.WriteString("# Templates\n\n")
				for i, t := range app.Engine.Templates() {
					b.WriteString(tui.TemplateMarkdown(i, t))
					b.WriteString("\n")
				}
				fmt.Fprint(w, cli.Markdown(w, b.String()))
				return nil
			}

			e, err := app.Manager.Entry(cmd.Context(), root.sessionID(), entryRef(args))
			if err != nil {
				return err
			}
			if mermaid {
				fmt.Fprintln(w, graph.GenerateMermaid(e.Prompt, &graph.Overlay{Fragment: fragment}))
				return nil
			}
			fmt.Fprint(w, cli.Markdown(w, tui.InspectMarkdown(e.Prompt)))
			return nil
		}),
	}
	cmd.Flags().BoolVar(&templates, "templates", false, "Summarize the corpus templates")
	cmd.Flags().BoolVar(&mermaid, "mermaid", false, "Print the choice tree as a Mermaid flowchart")
	cmd.Flags().IntVar(&fragment, "fragment", -1, "Fragment to highlight in the flowchart")
	return cmd
}
