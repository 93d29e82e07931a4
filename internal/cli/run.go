package cli

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/havoc/internal/engine"
	"github.com/roach88/havoc/internal/scenario"
	"github.com/roach88/havoc/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Config   string
	Database string
}

// RunOutput is the JSON payload for a completed run.
type RunOutput struct {
	RunID    string           `json:"run_id,omitempty"`
	Scenario string           `json:"scenario"`
	Result   *scenario.Result `json:"result"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario>",
		Short: "Run a chaos scenario against the built-in probe target",
		Long: `Run one chaos scenario against the built-in probe target and report what
the target withstood. Run outcomes and fault events are persisted to the
SQLite database at --db.

The command exits 0 when the target handled the injected faults, 1 when the
scenario reports failure, and 2 on command errors.

Example:
  havoc run resource_exhaustion
  havoc run corrupted_state --config chaos.yaml --db ./havoc.db --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenario(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Config, "config", "", "path to YAML scenario config (defaults apply when omitted)")
	cmd.Flags().StringVar(&opts.Database, "db", ":memory:", "path to SQLite database for run persistence")

	return cmd
}

func runScenario(opts *RunOptions, name string, cmd *cobra.Command) error {
	logLevel := slog.LevelWarn
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	cfg := scenario.DefaultConfig()
	if opts.Config != "" {
		loaded, err := scenario.LoadConfig(opts.Config)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to load config", err)
		}
		cfg = loaded
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()

	eng := engine.New(st, logger)
	engine.RegisterBuiltins(eng)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	target := NewProbeTarget()
	runID, result, err := eng.Run(ctx, name, target, cfg)
	if err != nil {
		if engine.IsNotFound(err) {
			return WrapExitError(ExitCommandError, "unknown scenario", err)
		}
		return WrapExitError(ExitFailure, "scenario run failed", err)
	}

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}
	if err := formatter.Success(RunOutput{RunID: runID, Scenario: name, Result: result}); err != nil {
		return err
	}

	if !result.Success {
		return NewExitError(ExitFailure, "scenario reported failure")
	}
	return nil
}
