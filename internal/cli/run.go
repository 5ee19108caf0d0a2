package cli

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/cae/internal/harness"
	"github.com/roach88/cae/internal/sim"
	"github.com/roach88/cae/internal/sink"
	"github.com/roach88/cae/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string
	RedisURL string
	Turns    int
	MaxNodes int

	// RunIDGenerator overrides the run id of scenarios without one (for
	// testing). If nil, the simulation uses UUIDv7.
	RunIDGenerator sim.RunIDGenerator
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommand(&RunOptions{RootOptions: rootOpts})
}

func newRunCommand(opts *RunOptions) *cobra.Command {
	rootOpts := opts.RootOptions
	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Play a scenario and print its narration",
		Long: `Play a scenario turn by turn and print what happened.

Every turn's commands are queued, the simulation steps once and the
scenario's assertions are checked against that turn's causal graph.
With --db every turn is archived to SQLite for dump, trace, query and
replay. With --redis the narration is also appended to a Redis list.

Example:
  cae run ./scenarios/duel.yaml
  cae run --db ./cae.db --redis redis://localhost:6379/0 ./scenarios/duel.yaml
  cae run --turns 1 ./scenarios/duel.yaml --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarioFile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", rootOpts.Config.DB, "archive turns to this SQLite database")
	cmd.Flags().StringVar(&opts.RedisURL, "redis", rootOpts.Config.RedisURL, "publish narration to this Redis URL")
	cmd.Flags().IntVar(&opts.Turns, "turns", rootOpts.Config.MaxTurns, "play at most this many turns (0 = all)")
	cmd.Flags().IntVar(&opts.MaxNodes, "max-nodes", rootOpts.Config.MaxNodes, "abort a turn that grows past this many nodes (0 = no limit)")

	return cmd
}

func runScenarioFile(opts *RunOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := slog.Default()

	if opts.Turns < 0 {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, "--turns must be non-negative", nil)
	}
	if opts.MaxNodes < 0 {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, "--max-nodes must be non-negative", nil)
	}

	scenario, err := harness.LoadScenario(path)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeLoadFailed, "failed to load scenario", err)
	}
	if opts.Turns > 0 && opts.Turns < len(scenario.Turns) {
		formatter.VerboseLog("Playing %d of %d turns", opts.Turns, len(scenario.Turns))
		scenario.Turns = scenario.Turns[:opts.Turns]
		// A partial run cannot match the full transcript.
		scenario.Golden = ""
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var simOpts []sim.Option
	if opts.MaxNodes > 0 {
		simOpts = append(simOpts, sim.WithMaxNodes(opts.MaxNodes))
	}
	if opts.RunIDGenerator != nil {
		simOpts = append(simOpts, sim.WithRunIDGenerator(opts.RunIDGenerator))
	}

	if opts.Database != "" {
		logger.Info("opening database", "path", opts.Database)
		st, err := store.Open(opts.Database)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeNotFound, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing database", "error", closeErr)
			}
		}()
		simOpts = append(simOpts, sim.WithArchive(st, store.Run{
			Scenario: scenario.Name,
			World:    scenario.World,
		}))
	}

	if opts.RedisURL != "" {
		rs, err := sink.NewRedis(ctx, opts.RedisURL, logger)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeGeneric, "failed to connect to redis", err)
		}
		defer rs.Close()
		simOpts = append(simOpts, sim.WithSink(sink.Multi{sink.NewLog(logger), rs}))
	}

	h := harness.New(harness.WithLogger(logger), harness.WithSimOptions(simOpts...))
	result, err := h.Run(ctx, scenario)
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeGeneric, "scenario failed to run", err)
	}

	if opts.Format == "json" {
		var cliErr *CLIError
		if !result.Pass {
			cliErr = &CLIError{
				Code:    "E_ASSERTION_FAILED",
				Message: fmt.Sprintf("%d assertion(s) failed", len(result.Errors)),
			}
		}
		if err := formatter.JSON(result, cliErr); err != nil {
			return err
		}
	} else {
		outputRunText(formatter, result, opts.Database)
	}

	if !result.Pass {
		return NewExitError(ExitFailure, fmt.Sprintf("%d assertion(s) failed", len(result.Errors)))
	}
	return nil
}

// outputRunText prints the narration of every played turn followed by
// any assertion failures.
func outputRunText(formatter *OutputFormatter, result *harness.Result, database string) {
	w := formatter.Writer

	fmt.Fprintf(w, "Run %s (%s)\n", result.RunID, result.Scenario)
	for _, t := range result.Turns {
		fmt.Fprintf(w, "\nTurn %d:\n", t.Turn)
		if len(t.Narration) == 0 {
			fmt.Fprintln(w, "  (nothing happens)")
		}
		for _, line := range t.Narration {
			fmt.Fprintf(w, "  %s\n", line)
		}
		if formatter.Verbose {
			fmt.Fprintf(w, "  [%d nodes, digest %s]\n", t.Nodes, truncateID(t.Digest))
		}
	}
	fmt.Fprintln(w)

	if !result.Pass {
		fmt.Fprintf(w, "✗ %d assertion(s) failed\n", len(result.Errors))
		for _, e := range result.Errors {
			fmt.Fprintf(w, "  %s\n", e)
		}
		return
	}

	fmt.Fprintf(w, "✓ %d turn(s) played\n", len(result.Turns))
	if database != "" {
		fmt.Fprintf(w, "Archived to %s\n", database)
	}
}

// truncateID truncates a long id or digest for display.
func truncateID(id string) string {
	if len(id) <= 16 {
		return id
	}
	return id[:8] + "..." + id[len(id)-8:]
}
