package main

import (
	"context"
	"os"

	"github.com/aretw0/reroll"
	"github.com/aretw0/reroll/internal/cli"
	"github.com/aretw0/reroll/internal/presentation/tui"
	"github.com/aretw0/reroll/pkg/domain"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newPlayCmd(root *rootOptions) *cobra.Command {
	var (
		watch    bool
		headless bool
	)
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Roll prompts interactively",
		Long: `Play opens an interactive loop on the terminal.

  enter   generate a new prompt
  r       reroll the current template
  f       list the overridable fragments
  N       list the alternatives of fragment N
  N M     switch fragment N to option M
  u       go back to the prompt the current one came from
  q       quit

With --watch the corpus is reloaded whenever its files change; prompts keep
their choices wherever the new lists still allow them.`,
		Args: cobra.NoArgs,
		RunE: root.withApp(func(cmd *cobra.Command, args []string, app *cli.App) error {
			out := cmd.OutOrStdout()
			runner := reroll.NewRunner(cmd.InOrStdin(), out)
			runner.Session = cli.Session(root.session, reroll.DefaultPlaySession)
			runner.Headless = headless || !cli.IsTerminal(os.Stdin)
			if cli.IsTerminal(out) {
				h := cli.Highlighter(out, true)
				runner.Renderer = func(p *domain.Prompt) (string, error) {
					return h.Render(p), nil
				}
			}
			if !runner.Headless {
				tui.PrintBanner(out)
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			g, ctx := errgroup.WithContext(ctx)
			if watch {
				g.Go(func() error {
					return app.WatchCorpus(ctx, nil)
				})
			}
			g.Go(func() error {
				defer cancel()
				return runner.Run(ctx, app.Manager)
			})
			return g.Wait()
		}),
	}
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Reload the corpus when its files change")
	cmd.Flags().BoolVar(&headless, "headless", false, "Plain output without banner or prompt markers")
	return cmd
}
