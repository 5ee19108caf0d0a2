package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/cae/internal/event"
	"github.com/roach88/cae/internal/ir"
	"github.com/roach88/cae/internal/queryir"
	"github.com/roach88/cae/internal/store"
)

// QueryOptions holds flags for the query command.
type QueryOptions struct {
	*RootOptions
	Database string
	RunID    string
	Kinds    []string
	Where    []string
	Turns    []int
}

// QueryResult holds the matching nodes.
type QueryResult struct {
	RunID string       `json:"run_id"`
	Count int          `json:"count"`
	Nodes []store.Node `json:"nodes"`
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Find archived nodes by kind and field values",
		Long: `Find archived nodes of a run.

--kind may be repeated; a node matches if it has any of the kinds.
--where field=value may be repeated; a node matches if every field is
equal. Values are read as YAML, so numbers, strings and positions all
work: --where amount=3, --where trap=spikes, --where to=[1,2].

The same filters select labels in a live graph, so a query that works
on the archive also works as a subscription.

Examples:
  cae query --db ./cae.db --run duel-run --kind Damage
  cae query --db ./cae.db --run duel-run --kind Damage --kind Death --turn 2
  cae query --db ./cae.db --run duel-run --where target=2 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", rootOpts.Config.DB, "path to SQLite database")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run id (required)")
	_ = cmd.MarkFlagRequired("run")
	cmd.Flags().StringArrayVar(&opts.Kinds, "kind", nil, "node kind (repeatable)")
	cmd.Flags().StringArrayVar(&opts.Where, "where", nil, "field=value filter (repeatable)")
	cmd.Flags().IntSliceVar(&opts.Turns, "turn", nil, "only these turns (repeatable)")

	return cmd
}

func runQuery(opts *QueryOptions, cmd *cobra.Command) error {
	ctx := commandContext(cmd)
	formatter := newFormatter(opts.RootOptions, cmd)

	filter, err := buildFilter(opts.Kinds, opts.Where)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeBadFilter, "invalid filter", err)
	}
	if filter != nil {
		for _, w := range queryir.Validate(filter).Warnings {
			formatter.VerboseLog("filter warning: %s", w)
		}
	}

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

	nodes, err := st.QueryNodes(ctx, queryir.Select{Run: opts.RunID, Turns: opts.Turns, Filter: filter})
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, "query failed", err)
	}

	result := QueryResult{RunID: opts.RunID, Count: len(nodes), Nodes: nodes}
	if opts.Format == "json" {
		return formatter.Success(result)
	}

	w := formatter.Writer
	if len(nodes) == 0 {
		fmt.Fprintf(w, "No matching nodes in run %s.\n", opts.RunID)
		return nil
	}
	for _, n := range nodes {
		fmt.Fprintf(w, "turn %d  n%-3d %s\n", n.Turn, n.Index, n.Label)
	}
	fmt.Fprintf(w, "\n%d node(s)\n", len(nodes))
	return nil
}

// buildFilter turns --kind and --where flags into a filter. It returns
// nil when no flag narrows the selection.
func buildFilter(kinds, where []string) (queryir.Filter, error) {
	var parts []queryir.Filter

	if len(kinds) > 0 {
		names := make([]string, len(kinds))
		for i, k := range kinds {
			kind, err := event.ParseKind(k)
			if err != nil {
				return nil, err
			}
			names[i] = kind.String()
		}
		parts = append(parts, queryir.Kinds(names...))
	}

	for _, clause := range where {
		field, value, err := parseWhere(clause)
		if err != nil {
			return nil, err
		}
		parts = append(parts, queryir.Eq(field, value))
	}

	switch len(parts) {
	case 0:
		return nil, nil
	case 1:
		return parts[0], nil
	default:
		return queryir.AllOf(parts...), nil
	}
}

// parseWhere splits field=value and decodes value as YAML.
func parseWhere(clause string) (string, ir.IRValue, error) {
	field, raw, ok := strings.Cut(clause, "=")
	if !ok {
		return "", nil, fmt.Errorf("where %q: expected field=value", clause)
	}
	field = strings.TrimSpace(field)
	if !queryir.ValidField(field) {
		return "", nil, fmt.Errorf("where %q: invalid field name %q", clause, field)
	}

	var decoded any
	if err := yaml.Unmarshal([]byte(raw), &decoded); err != nil {
		return "", nil, fmt.Errorf("where %q: %w", clause, err)
	}
	value, err := ir.FromGo(decoded)
	if err != nil {
		return "", nil, fmt.Errorf("where %q: %w", clause, err)
	}
	return field, value, nil
}
