package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/reroll"
	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of reroll",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "reroll version %s\n", strings.TrimSpace(reroll.Version))
		},
	}
}
