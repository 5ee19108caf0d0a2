package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/cae/internal/harness"
	"github.com/roach88/cae/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	RunID    string
}

// ReplayTurnResult compares one turn.
type ReplayTurnResult struct {
	Turn     int    `json:"turn"`
	Archived string `json:"archived"`
	Replayed string `json:"replayed,omitempty"`
	Match    bool   `json:"match"`
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	RunID         string             `json:"run_id"`
	Scenario      string             `json:"scenario"`
	Turns         []ReplayTurnResult `json:"turns"`
	Deterministic bool               `json:"deterministic"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay <scenario.yaml>",
		Short: "Re-run a scenario and verify it matches the archive",
		Long: `Re-run a scenario and compare every turn with an archived run.

Each turn's digest covers the shape of its causal graph and every label,
but not the run id, so replaying the scenario that produced the run must
reproduce every archived digest. If the archived run is shorter than the
scenario (run --turns), only the archived turns are replayed.

Exit codes:
  0 - Every turn matches
  1 - Replay diverged from the archive
  2 - Command error (database not found, etc.)

Examples:
  cae replay --db ./cae.db --run duel-run ./scenarios/duel.yaml
  cae replay --db ./cae.db --run duel-run ./scenarios/duel.yaml --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", rootOpts.Config.DB, "path to SQLite database")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "archived run id (required)")
	_ = cmd.MarkFlagRequired("run")

	return cmd
}

func runReplay(opts *ReplayOptions, path string, cmd *cobra.Command) error {
	ctx := commandContext(cmd)
	formatter := newFormatter(opts.RootOptions, cmd)

	st, err := openStore(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	if _, err := st.ReadRun(ctx, opts.RunID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return formatter.Fail(ExitCommandError, ErrCodeNotFound, "run not archived", err)
		}
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, "failed to read run", err)
	}
	archived, err := st.ReadTurns(ctx, opts.RunID)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, "failed to read turns", err)
	}

	scenario, err := harness.LoadScenario(path)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeLoadFailed, "failed to load scenario", err)
	}
	if len(scenario.Turns) > len(archived) {
		scenario.Turns = scenario.Turns[:len(archived)]
	}
	// Only digests are compared.
	scenario.Golden = ""

	formatter.VerboseLog("Replaying %d turn(s) of %s against run %s", len(scenario.Turns), scenario.Name, opts.RunID)

	replayed, err := harness.New().Run(ctx, scenario)
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeGeneric, "replay failed to run", err)
	}
	for _, e := range replayed.Errors {
		formatter.VerboseLog("replay assertion: %s", e)
	}

	result := compareDigests(opts.RunID, scenario.Name, archived, replayed.Digests())

	if opts.Format == "json" {
		var cliErr *CLIError
		if !result.Deterministic {
			cliErr = &CLIError{Code: "E_NONDETERMINISTIC", Message: "replay diverged from archive"}
		}
		if err := formatter.JSON(result, cliErr); err != nil {
			return err
		}
	} else {
		outputReplayText(formatter, result)
	}

	if !result.Deterministic {
		return NewExitError(ExitFailure, "replay diverged from archive")
	}
	return nil
}

// compareDigests pairs archived turns with replayed digests. A turn
// missing on either side is a mismatch.
func compareDigests(runID, scenario string, archived []store.Turn, replayed []string) ReplayResult {
	result := ReplayResult{
		RunID:         runID,
		Scenario:      scenario,
		Turns:         make([]ReplayTurnResult, 0, len(archived)),
		Deterministic: len(archived) == len(replayed),
	}
	for i, t := range archived {
		tr := ReplayTurnResult{Turn: t.Turn, Archived: t.Digest}
		if i < len(replayed) {
			tr.Replayed = replayed[i]
			tr.Match = tr.Archived == tr.Replayed
		}
		if !tr.Match {
			result.Deterministic = false
		}
		result.Turns = append(result.Turns, tr)
	}
	return result
}

func outputReplayText(formatter *OutputFormatter, result ReplayResult) {
	w := formatter.Writer

	fmt.Fprintf(w, "Replaying run %s with %s\n\n", result.RunID, result.Scenario)
	for _, t := range result.Turns {
		switch {
		case t.Match:
			fmt.Fprintf(w, "  ✓ turn %d  %s\n", t.Turn, truncateID(t.Archived))
		case t.Replayed == "":
			fmt.Fprintf(w, "  ✗ turn %d  archived %s, not replayed\n", t.Turn, truncateID(t.Archived))
		default:
			fmt.Fprintf(w, "  ✗ turn %d  archived %s, replayed %s\n", t.Turn, truncateID(t.Archived), truncateID(t.Replayed))
		}
	}
	fmt.Fprintln(w)

	if result.Deterministic {
		fmt.Fprintf(w, "✓ Replay matches archive (%d turns)\n", len(result.Turns))
		return
	}
	fmt.Fprintln(w, "✗ Replay diverged from archive")
}
