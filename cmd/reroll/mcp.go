package main

import (
	"strings"

	"github.com/aretw0/reroll"
	"github.com/aretw0/reroll/internal/cli"
	"github.com/aretw0/reroll/pkg/adapters/mcp"
	"github.com/spf13/cobra"
)

func newMCPCmd(root *rootOptions) *cobra.Command {
	var (
		sse  bool
		port int
	)
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Run the Model Context Protocol server",
		Long: `Mcp exposes reroll to AI agents as MCP tools: generate, override,
fragments, history and compile, plus the reroll://templates resource.

Transports:
- stdio (default): JSON-RPC on standard input and output; logs go to stderr.
- --sse: Server-Sent Events over HTTP on --port.`,
		Args: cobra.NoArgs,
		RunE: root.withApp(func(cmd *cobra.Command, args []string, app *cli.App) error {
			srv := mcp.NewServer(app.Engine, app.Manager, strings.TrimSpace(reroll.Version), app.Logger)
			if !sse {
				app.Logger.Info("mcp server on stdio")
				return srv.ServeStdio()
			}

			sigCtx := cli.NewSignalContext(cmd.Context())
			defer sigCtx.Cancel()
			return srv.ServeSSE(sigCtx, port)
		}),
	}
	cmd.Flags().BoolVar(&sse, "sse", false, "Serve over HTTP with Server-Sent Events instead of stdio")
	cmd.Flags().IntVar(&port, "port", 8080, "Port to listen on with --sse")
	return cmd
}
