package main

import (
	"encoding/json"
	"fmt"

	"github.com/aretw0/reroll/internal/cli"
	"github.com/aretw0/reroll/internal/compiler"
	"github.com/aretw0/reroll/internal/validator"
	"github.com/spf13/cobra"
)

func newValidateCmd(root *rootOptions) *cobra.Command {
	var (
		strict bool
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Parse the corpus and report template problems",
		Long: `Validate parses every template and reports what the parser had to recover
from, lists nothing references and repeated prompts or options. It fails
when a list reference would leave a placeholder such as {NOT FOUND id} in
generated text, and with --strict on warnings too.`,
		Args: cobra.NoArgs,
		RunE: root.withApp(func(cmd *cobra.Command, args []string, app *cli.App) error {
			corpus, err := app.Engine.Loader().Load(cmd.Context())
			if err != nil {
				return err
			}
			report := validator.Validate(corpus, compiler.WithMaxDepth(app.Config.MaxDepth))

			w := cmd.OutOrStdout()
			if asJSON {
				if err := json.NewEncoder(w).Encode(report); err != nil {
					return err
				}
			} else {
				for _, issue := range report.Issues {
					fmt.Fprintf(w, "- %s\n", issue)
				}
			}

			if report.Errors() > 0 || (strict && report.Warnings() > 0) {
				return fmt.Errorf("corpus is invalid: %d errors, %d warnings", report.Errors(), report.Warnings())
			}
			if !asJSON {
				fmt.Fprintf(w, "Corpus is valid: %d templates, %d lists, %d warnings.\n",
					report.Prompts, report.Lists, report.Warnings())
			}
			return nil
		}),
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "Fail on warnings as well as errors")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the report as JSON")
	return cmd
}
