package main

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/aretw0/reroll/internal/cli"
	"github.com/aretw0/reroll/internal/presentation"
	"github.com/aretw0/reroll/pkg/domain"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newHistoryCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Browse and clear generation history",
	}
	cmd.AddCommand(
		newHistoryLsCmd(root),
		newHistoryShowCmd(root),
		newHistoryRmCmd(root),
		newHistorySessionsCmd(root),
	)
	return cmd
}

func newHistoryLsCmd(root *rootOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "ls",
		Short: "List the newest entries of the session, oldest first",
		Args:  cobra.NoArgs,
		RunE: root.withApp(func(cmd *cobra.Command, args []string, app *cli.App) error {
			entries, err := app.Manager.History(cmd.Context(), root.sessionID(), limit)
			if err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
				return err
			}
			w := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(w, "No history.")
				return nil
			}
			printHistory(w, entries)
			return nil
		}),
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of entries (0 for all)")
	return cmd
}

func printHistory(w io.Writer, entries []*domain.Entry) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tACTION\tCREATED\tTEXT")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", shortID(e.ID), e.Action, e.CreatedAt.Local().Format("2006-01-02 15:04:05"), presentation.Sentence(e.Text))
	}
	tw.Flush()
}

// shortID is long enough to be a unique prefix in any realistic session.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func newHistoryShowCmd(root *rootOptions) *cobra.Command {
	var asYAML bool
	cmd := &cobra.Command{
		Use:   "show [entry]",
		Short: "Show one entry with its fragments",
		Args:  cobra.MaximumNArgs(1),
		RunE: root.withApp(func(cmd *cobra.Command, args []string, app *cli.App) error {
			e, err := app.Manager.Entry(cmd.Context(), root.sessionID(), entryRef(args))
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if asYAML {
				enc := yaml.NewEncoder(w)
				enc.SetIndent(2)
				if err := enc.Encode(viewEntry(e)); err != nil {
					return err
				}
				return enc.Close()
			}
			fmt.Fprintf(w, "Entry:    %s\n", e.ID)
			if e.ParentID != "" {
				fmt.Fprintf(w, "Parent:   %s\n", e.ParentID)
			}
			fmt.Fprintf(w, "Action:   %s\n", e.Action)
			fmt.Fprintf(w, "Created:  %s\n", e.CreatedAt.Local().Format("2006-01-02 15:04:05"))
			if e.Prompt != nil {
				fmt.Fprintf(w, "Template: %s\n", e.Prompt.Source)
			}
			fmt.Fprintf(w, "Text:     %s\n\n", presentation.Sentence(e.Text))
			if e.Prompt != nil {
				printFragments(w, presentation.Fragments(e.Prompt))
			}
			return nil
		}),
	}
	cmd.Flags().BoolVar(&asYAML, "yaml", false, "Print the entry as YAML")
	return cmd
}

func newHistoryRmCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rm [session]...",
		Short: "Delete the history of one or more sessions (default: --session)",
		RunE: root.withApp(func(cmd *cobra.Command, args []string, app *cli.App) error {
			if len(args) == 0 {
				args = []string{root.sessionID()}
			}
			w := cmd.OutOrStdout()
			var failed int
			for _, id := range args {
				if err := app.Manager.Clear(cmd.Context(), id); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "Error removing %q: %v\n", id, err)
					failed++
					continue
				}
				fmt.Fprintf(w, "Removed session %q\n", id)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d sessions could not be removed", failed, len(args))
			}
			return nil
		}),
	}
}

func newHistorySessionsCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sessions",
		Short: "List sessions with recorded history",
		Args:  cobra.NoArgs,
		RunE: root.withApp(func(cmd *cobra.Command, args []string, app *cli.App) error {
			sessions, err := app.Manager.Sessions(cmd.Context())
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if len(sessions) == 0 {
				fmt.Fprintln(w, "No sessions found.")
				return nil
			}
			for _, s := range sessions {
				fmt.Fprintln(w, s)
			}
			return nil
		}),
	}
}
