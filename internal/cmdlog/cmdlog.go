// Package cmdlog wraps CLI commands with run/error metrics and a log line.
package cmdlog

import (
	"time"

	"github.com/spf13/cobra"

	"hnlingo/internal/logging"
	"hnlingo/internal/metrics"
)

// Run executes f as the command named cmd.
func Run(cmd string, f func() error) error {
	metrics.IncCommandRun(cmd)
	start := time.Now()
	err := f()
	fields := map[string]any{"duration_ms": time.Since(start).Milliseconds()}
	if err != nil {
		metrics.IncCommandError(cmd)
		fields["error"] = err.Error()
		logging.Error(cmd+"_error", fields)
	} else {
		logging.Debug(cmd+"_ok", fields)
	}
	return err
}

// Wrap adapts a cobra RunE so it goes through Run under the command's name.
func Wrap(f func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		return Run(cmd.Name(), func() error { return f(cmd, args) })
	}
}
