package main

import (
	"fmt"
	"os"
	"time"

	"github.com/aretw0/reroll/internal/cli"
	"github.com/aretw0/reroll/internal/config"
	"github.com/spf13/cobra"
)

// DefaultSession is the history session used when --session is not given.
const DefaultSession = "default"

// rootOptions holds the flags shared by every command.
type rootOptions struct {
	configFile string
	session    string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "reroll",
		Short: "Reroll generates prompts from randomized text templates",
		Long: `Reroll expands templates such as "a {red|blue} {?very }cat" into random
prompts, keeps a history of what it generated and lets you re-roll a single
fragment of an earlier prompt while everything else stays put.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configFile, "config", "", "Config file (default: reroll.yaml or reroll.toml in the project)")
	flags.StringVar(&opts.session, "session", "", "History session id (default \""+DefaultSession+"\")")
	flags.String("corpus", "", "Corpus file (JSON, YAML or TOML) or Loam directory")
	flags.String("lists-dir", "", "Loam directory of lists merged over the corpus")
	flags.String("store", config.StoreFile, "History store: memory, file, redis or sqlite")
	flags.String("store-path", "", "Directory of the file store or database of the sqlite store")
	flags.String("redis-addr", "localhost:6379", "Redis address")
	flags.String("redis-password", "", "Redis password")
	flags.Int("redis-db", 0, "Redis database")
	flags.Duration("redis-ttl", 24*time.Hour, "Expiry of Redis sessions")
	flags.Int("history-limit", 100, "Entries kept per session")
	flags.String("log-level", "info", "Log level: debug, info, warn or error")
	flags.Int("max-depth", 32, "Deepest nesting of list references")
	flags.Uint64("seed", 0, "Seed for repeatable output (0 draws a random seed)")

	cmd.AddCommand(
		newGenerateCmd(opts),
		newRerollCmd(opts),
		newRevisitCmd(opts),
		newOverrideCmd(opts),
		newFragmentsCmd(opts),
		newHistoryCmd(opts),
		newPlayCmd(opts),
		newInspectCmd(opts),
		newValidateCmd(opts),
		newServeCmd(opts),
		newMCPCmd(opts),
		newVersionCmd(),
	)
	return cmd
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// loadConfig resolves the settings for cmd from defaults, the config file,
// REROLL_* variables and flags.
func (o *rootOptions) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	v, err := config.New(o.configFile)
	if err != nil {
		return nil, err
	}
	if err := config.BindFlags(v, cmd.Flags()); err != nil {
		return nil, err
	}
	return config.Load(v)
}

// sessionID returns the session selected by --session.
func (o *rootOptions) sessionID() string {
	return cli.Session(o.session, DefaultSession)
}

// withApp builds the App for the duration of fn.
func (o *rootOptions) withApp(fn func(cmd *cobra.Command, args []string, app *cli.App) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := o.loadConfig(cmd)
		if err != nil {
			return err
		}
		app, err := cli.NewApp(cfg)
		if err != nil {
			return err
		}
		defer app.Close()
		return fn(cmd, args, app)
	}
}
