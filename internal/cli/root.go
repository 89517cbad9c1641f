// Package cli implements the threadgate command-line interface.
package cli

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/threadgate/internal/config"
	"github.com/roach88/threadgate/internal/engine"
	"github.com/roach88/threadgate/internal/policy"
	"github.com/roach88/threadgate/internal/store"
)

// RootOptions holds global flags for all commands. Environment values
// (THREADGATE_*) provide the defaults; flags override per invocation.
type RootOptions struct {
	Verbose       bool
	Format        string // "json" | "text"
	DBPath        string
	PolicyName    string
	PolicyTimeout time.Duration
	LogLevel      string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the threadgate CLI.
func NewRootCommand() *cobra.Command {
	cfg, err := config.Load()
	if err != nil {
		// Malformed environment surfaces on first run; defaults keep
		// flag help usable.
		cfg = config.Config{DBPath: "threadgate.db", PolicyName: "ack", LogLevel: "info"}
	}
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "threadgate",
		Short: "Deterministic turn-DAG decision gateway",
		Long: `threadgate records conversation turns as an append-only DAG, builds a
deterministic context from each turn's ancestry, and routes it through a
pluggable decision policy. Every step is durable and content-addressed.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid environment", err)
			}
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.DBPath, "db", cfg.DBPath, "SQLite database path")
	cmd.PersistentFlags().StringVar(&opts.PolicyName, "policy", cfg.PolicyName, "decision policy name")
	cmd.PersistentFlags().DurationVar(&opts.PolicyTimeout, "policy-timeout", cfg.PolicyTimeout, "policy invocation timeout (0 disables)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", cfg.LogLevel, "log level (debug|info|warn|error)")

	cmd.AddCommand(NewSubmitCommand(opts))
	cmd.AddCommand(NewTimelineCommand(opts))
	cmd.AddCommand(NewSnapshotCommand(opts))
	cmd.AddCommand(NewDemoCommand(opts))
	cmd.AddCommand(NewScenarioCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// openStore opens the configured database, mapping failures to command
// errors.
func openStore(opts *RootOptions) (*store.Store, error) {
	s, err := store.Open(opts.DBPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, fmt.Sprintf("open database %s", opts.DBPath), err)
	}
	return s, nil
}

// newGateway wires a gateway over the given store with the configured
// policy and logger.
func newGateway(opts *RootOptions, s *store.Store) (*engine.Gateway, error) {
	p, err := policy.Resolve(opts.PolicyName)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "resolve policy", err)
	}
	return engine.New(s, p,
		engine.WithLogger(newLogger(opts)),
		engine.WithPolicyTimeout(opts.PolicyTimeout),
	), nil
}

func newLogger(opts *RootOptions) *slog.Logger {
	level := config.Config{LogLevel: opts.LogLevel}.SlogLevel()
	if opts.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
