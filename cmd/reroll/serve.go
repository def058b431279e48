package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/aretw0/reroll/internal/cli"
	httpAdapter "github.com/aretw0/reroll/pkg/adapters/http"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// shutdownTimeout bounds how long in-flight requests may take after a signal.
const shutdownTimeout = 5 * time.Second

func newServeCmd(root *rootOptions) *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Serve exposes generation, history and overrides as a JSON API under /v1,
described by /openapi.yaml. /metrics serves Prometheus metrics unless
--metrics=false, and /v1/events streams corpus reloads and new entries.`,
		Args: cobra.NoArgs,
		RunE: root.withApp(func(cmd *cobra.Command, args []string, app *cli.App) error {
			opts := []httpAdapter.HandlerOption{httpAdapter.WithLogger(app.Logger)}
			if app.Registry != nil {
				opts = append(opts, httpAdapter.WithMetrics(app.Registry))
			}

			srv := &http.Server{
				Addr:              net.JoinHostPort("", strconv.Itoa(app.Config.HTTP.Port)),
				Handler:           httpAdapter.NewHandler(app.Engine, app.Manager, opts...),
				ReadHeaderTimeout: 10 * time.Second,
			}

			sigCtx := cli.NewSignalContext(cmd.Context())
			defer sigCtx.Cancel()
			g, ctx := errgroup.WithContext(sigCtx)

			g.Go(func() error {
				app.Logger.Info("http server listening", "addr", srv.Addr)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("http server: %w", err)
				}
				return nil
			})
			g.Go(func() error {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					app.Logger.Warn("graceful shutdown did not complete", "err", err)
					return srv.Close()
				}
				return nil
			})
			if watch {
				g.Go(func() error {
					return app.WatchCorpus(ctx, nil)
				})
			}

			err := g.Wait()
			if sig := sigCtx.Signal(); sig != nil {
				app.Logger.Info("http server stopped", "signal", sig.String())
			}
			return err
		}),
	}
	cmd.Flags().Int("http-port", 8080, "Port to listen on")
	cmd.Flags().Bool("metrics", true, "Serve Prometheus metrics at /metrics")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Reload the corpus when its files change")
	return cmd
}
