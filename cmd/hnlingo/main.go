// hnlingo ingests Hacker News listings and stores a translated copy.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"hnlingo/internal/config"
	"hnlingo/internal/logging"
	"hnlingo/internal/theme"
)

// Version information (set via -ldflags during build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

type rootOptions struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "hnlingo",
		Short: "Fetch Hacker News listings and store them translated",
		Long: theme.Banner() + `
Fetches stories and their comment threads from the Hacker News item API,
translates titles and texts in batches through an OpenAI-compatible chat
endpoint, and stores both versions in SQLite.

Commands:
  init      Write a default config file
  run       Ingest the configured listings once
  serve     Ingest on a cron schedule and expose metrics
  list      List stored stories
  show      Show one stored story with its comments
  version   Print version information`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			logging.Setup(opts.logLevel, cmd.ErrOrStderr())
		},
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default $HNLINGO_CONFIG or "+config.DefaultPath+")")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error (default from config)")

	root.AddCommand(
		newInitCmd(opts),
		newRunCmd(opts),
		newServeCmd(opts),
		newListCmd(opts),
		newShowCmd(opts),
		newVersionCmd(),
	)
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if !errors.Is(err, errRunFailed) {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}
