package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/cae/internal/ir"
	"github.com/roach88/cae/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	RunID    string
	Turn     int
	Node     int
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	RunID string     `json:"run_id"`
	Turn  int        `json:"turn"`
	Node  store.Node `json:"node"`

	// Causes runs from the direct cause to the Root.
	Causes []store.Node `json:"causes"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show why an archived node happened",
		Long: `Show the chain of causes of one archived node.

The node is addressed by run, turn and arena index (the n<index> names
printed by "cae dump --dot"). Causes are listed from the direct cause up
to the turn's Root.

Examples:
  cae trace --db ./cae.db --run duel-run --turn 2 --node 7
  cae trace --db ./cae.db --run duel-run --turn 2 --node 7 --verbose
  cae trace --db ./cae.db --run duel-run --turn 2 --node 7 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", rootOpts.Config.DB, "path to SQLite database")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run id (required)")
	_ = cmd.MarkFlagRequired("run")
	cmd.Flags().IntVar(&opts.Turn, "turn", 0, "turn number (required)")
	_ = cmd.MarkFlagRequired("turn")
	cmd.Flags().IntVar(&opts.Node, "node", 0, "arena index of the node (required)")
	_ = cmd.MarkFlagRequired("node")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := commandContext(cmd)
	formatter := newFormatter(opts.RootOptions, cmd)

	st, err := openStore(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	node, err := st.ReadNode(ctx, opts.RunID, opts.Turn, opts.Node)
	if errors.Is(err, store.ErrNotFound) {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, "node not archived", err)
	}
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, "failed to read node", err)
	}

	causes, err := st.ReadAncestors(ctx, opts.RunID, opts.Turn, opts.Node)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, "failed to read causes", err)
	}

	result := TraceResult{
		RunID:  opts.RunID,
		Turn:   opts.Turn,
		Node:   node,
		Causes: causes,
	}

	if opts.Format == "json" {
		return formatter.Success(result)
	}
	return outputTraceText(formatter.Writer, result, opts.Verbose)
}

// outputTraceText outputs the trace result as text.
func outputTraceText(w io.Writer, result TraceResult, verbose bool) error {
	fmt.Fprintf(w, "Trace for run %s turn %d\n", result.RunID, result.Turn)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Node ===")
	formatTraceNode(w, "  ", result.Node, verbose)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Causes ===")
	if len(result.Causes) == 0 {
		fmt.Fprintln(w, "  (none: this is the Root)")
	}
	for _, c := range result.Causes {
		formatTraceNode(w, "  <- ", c, verbose)
	}
	return nil
}

// formatTraceNode formats a single node for text output.
func formatTraceNode(w io.Writer, prefix string, n store.Node, verbose bool) {
	fmt.Fprintf(w, "%s[n%d] %s\n", prefix, n.Index, n.Label)
	if verbose {
		fmt.Fprintf(w, "       Kind: %s  Depth: %d  Fields: %s\n", n.Kind, n.Depth, formatFields(n.Fields))
	}
}

// formatFields formats a node's fields for display.
// Uses sorted keys to ensure deterministic output.
func formatFields(fields ir.IRObject) string {
	if len(fields) == 0 {
		return "{}"
	}

	parts := make([]string, 0, len(fields))
	for _, k := range fields.SortedKeys() {
		parts = append(parts, fmt.Sprintf("%s=%s", k, formatValue(fields[k])))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// formatValue formats a single value for display, handling nested structures deterministically.
func formatValue(v ir.IRValue) string {
	switch val := v.(type) {
	case ir.IRObject:
		return formatFields(val)
	case ir.IRArray:
		parts := make([]string, len(val))
		for i, elem := range val {
			parts[i] = formatValue(elem)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case ir.IRString:
		return string(val)
	default:
		return fmt.Sprintf("%v", v)
	}
}
