package cli

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/cae/internal/cae"
	"github.com/roach88/cae/internal/store"
)

// DumpOptions holds flags for the dump command.
type DumpOptions struct {
	*RootOptions
	Database string
	RunID    string
	Turn     int
	DOT      bool
}

// DumpResult is the JSON payload of the dump command.
type DumpResult struct {
	Turn store.Turn `json:"turn"`
	Tree string     `json:"tree,omitempty"`
	DOT  string     `json:"dot,omitempty"`
}

// archivedLabel is the rendered label of an archived node.
type archivedLabel string

func (l archivedLabel) String() string { return string(l) }

// archivedRecords rebuilds graph records from archived nodes in scan
// order.
func archivedRecords(nodes []store.Node) []cae.NodeRecord[archivedLabel] {
	recs := make([]cae.NodeRecord[archivedLabel], len(nodes))
	for i, n := range nodes {
		recs[i] = cae.NodeRecord[archivedLabel]{
			Ord:    n.Ord,
			Index:  n.Index,
			Parent: n.Parent,
			Depth:  n.Depth,
			Label:  archivedLabel(n.Label),
		}
	}
	return recs
}

// NewDumpCommand creates the dump command.
func NewDumpCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DumpOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Print an archived turn",
		Long: `Print the causal graph of an archived turn.

By default the turn is printed as an indented outline, one node per line
in scan order, followed by its narration. With --dot the graph is printed
in Graphviz DOT, ready for "dot -Tsvg".

Examples:
  cae dump --db ./cae.db --run duel-run --turn 2
  cae dump --db ./cae.db --run duel-run --turn 2 --dot | dot -Tsvg > turn2.svg`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDump(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", rootOpts.Config.DB, "path to SQLite database")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run id (required)")
	_ = cmd.MarkFlagRequired("run")
	cmd.Flags().IntVar(&opts.Turn, "turn", 0, "turn number (required)")
	_ = cmd.MarkFlagRequired("turn")
	cmd.Flags().BoolVar(&opts.DOT, "dot", false, "print Graphviz DOT instead of an outline")

	return cmd
}

func runDump(opts *DumpOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	st, err := openStore(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	turn, err := st.ReadTurn(commandContext(cmd), opts.RunID, opts.Turn)
	if errors.Is(err, store.ErrNotFound) {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, "turn not archived", err)
	}
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, "failed to read turn", err)
	}

	recs := archivedRecords(turn.Nodes)
	var buf bytes.Buffer
	if opts.DOT {
		err = cae.WriteRecordsDOT(&buf, recs)
	} else {
		err = cae.WriteRecordsTree(&buf, recs)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to render turn", err)
	}

	if opts.Format == "json" {
		result := DumpResult{Turn: turn}
		if opts.DOT {
			result.DOT = buf.String()
		} else {
			result.Tree = buf.String()
		}
		return formatter.Success(result)
	}

	w := formatter.Writer
	if opts.DOT {
		_, err := buf.WriteTo(w)
		return err
	}

	fmt.Fprintf(w, "Run %s turn %d (%d nodes, digest %s)\n\n", turn.RunID, turn.Turn, turn.NodeCount, truncateID(turn.Digest))
	if _, err := buf.WriteTo(w); err != nil {
		return err
	}
	if len(turn.Narration) > 0 {
		fmt.Fprintln(w)
		for _, line := range turn.Narration {
			fmt.Fprintf(w, "  %s\n", line)
		}
	}
	return nil
}
