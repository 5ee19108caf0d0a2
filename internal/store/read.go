package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/cae/internal/queryir"
	"github.com/roach88/cae/internal/querysql"
)

const nodeColumnsN = "n.run_id, n.turn, n.idx, n.ord, n.parent, n.depth, n.kind, n.label, n.fields"

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanNode(r rowScanner) (Node, error) {
	var (
		n      Node
		parent sql.NullInt64
		fields string
	)
	if err := r.Scan(&n.RunID, &n.Turn, &n.Index, &n.Ord, &parent, &n.Depth, &n.Kind, &n.Label, &fields); err != nil {
		return Node{}, err
	}
	n.Parent = -1
	if parent.Valid {
		n.Parent = int(parent.Int64)
	}
	obj, err := unmarshalFields(fields)
	if err != nil {
		return Node{}, fmt.Errorf("node %d: %w", n.Index, err)
	}
	n.Fields = obj
	return n, nil
}

func collectNodes(rows *sql.Rows) ([]Node, error) {
	defer rows.Close()

	nodes := []Node{}
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate nodes: %w", err)
	}
	return nodes, nil
}

// ReadRun returns a run by id, or ErrNotFound.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	var r Run
	err := s.db.QueryRowContext(ctx, `
		SELECT id, scenario, world, engine_version, schema_version
		FROM runs WHERE id = ?
	`, id).Scan(&r.ID, &r.Scenario, &r.World, &r.EngineVersion, &r.SchemaVersion)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("run %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return Run{}, fmt.Errorf("read run: %w", err)
	}
	return r, nil
}

// ListRuns returns every archived run ordered by id.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, scenario, world, engine_version, schema_version
		FROM runs
		ORDER BY id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.Scenario, &r.World, &r.EngineVersion, &r.SchemaVersion); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadTurns returns turn summaries (without nodes or narration) for a run,
// ordered by turn.
func (s *Store) ReadTurns(ctx context.Context, runID string) ([]Turn, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, turn, node_count, digest
		FROM turns
		WHERE run_id = ?
		ORDER BY turn ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query turns: %w", err)
	}
	defer rows.Close()

	turns := []Turn{}
	for rows.Next() {
		var t Turn
		if err := rows.Scan(&t.RunID, &t.Turn, &t.NodeCount, &t.Digest); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate turns: %w", err)
	}
	return turns, nil
}

// ReadTurn returns a full turn: summary, nodes in scan order and narration.
func (s *Store) ReadTurn(ctx context.Context, runID string, turn int) (Turn, error) {
	t := Turn{RunID: runID, Turn: turn}
	err := s.db.QueryRowContext(ctx, `
		SELECT node_count, digest FROM turns WHERE run_id = ? AND turn = ?
	`, runID, turn).Scan(&t.NodeCount, &t.Digest)
	if errors.Is(err, sql.ErrNoRows) {
		return Turn{}, fmt.Errorf("run %q turn %d: %w", runID, turn, ErrNotFound)
	}
	if err != nil {
		return Turn{}, fmt.Errorf("read turn: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+nodeColumnsN+`
		FROM nodes n
		WHERE n.run_id = ? AND n.turn = ?
		ORDER BY n.ord ASC
	`, runID, turn)
	if err != nil {
		return Turn{}, fmt.Errorf("query nodes: %w", err)
	}
	if t.Nodes, err = collectNodes(rows); err != nil {
		return Turn{}, err
	}

	lines, err := s.readNarration(ctx, runID, &turn)
	if err != nil {
		return Turn{}, err
	}
	t.Narration = make([]string, len(lines))
	for i, l := range lines {
		t.Narration[i] = l.Text
	}
	return t, nil
}

// ReadNode returns a single archived node, or ErrNotFound.
func (s *Store) ReadNode(ctx context.Context, runID string, turn, idx int) (Node, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+nodeColumnsN+`
		FROM nodes n
		WHERE n.run_id = ? AND n.turn = ? AND n.idx = ?
	`, runID, turn, idx)
	n, err := scanNode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Node{}, fmt.Errorf("run %q turn %d node %d: %w", runID, turn, idx, ErrNotFound)
	}
	if err != nil {
		return Node{}, fmt.Errorf("read node: %w", err)
	}
	return n, nil
}

// ReadAncestors returns the causes of an archived node from nearest to the
// Root. The node itself is excluded.
func (s *Store) ReadAncestors(ctx context.Context, runID string, turn, idx int) ([]Node, error) {
	if _, err := s.ReadNode(ctx, runID, turn, idx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		WITH RECURSIVE chain(idx, parent, hops) AS (
			SELECT idx, parent, 0 FROM nodes
			WHERE run_id = ? AND turn = ? AND idx = ?
			UNION ALL
			SELECT p.idx, p.parent, c.hops + 1
			FROM nodes p JOIN chain c ON p.idx = c.parent
			WHERE p.run_id = ? AND p.turn = ?
		)
		SELECT `+nodeColumnsN+`
		FROM nodes n JOIN chain c ON n.idx = c.idx
		WHERE n.run_id = ? AND n.turn = ? AND c.hops > 0
		ORDER BY c.hops ASC
	`, runID, turn, idx, runID, turn, runID, turn)
	if err != nil {
		return nil, fmt.Errorf("query ancestors: %w", err)
	}
	return collectNodes(rows)
}

// QueryNodes evaluates a label filter against the archive. Results are
// ordered by turn, then scan order.
func (s *Store) QueryNodes(ctx context.Context, q queryir.Select) ([]Node, error) {
	query, params, err := querysql.NewSQLCompiler().Compile(q)
	if err != nil {
		return nil, fmt.Errorf("query nodes: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("query nodes: %w", err)
	}
	return collectNodes(rows)
}

// ReadNarration returns every narration line of a run, ordered by turn and
// line number.
func (s *Store) ReadNarration(ctx context.Context, runID string) ([]NarrationLine, error) {
	return s.readNarration(ctx, runID, nil)
}

func (s *Store) readNarration(ctx context.Context, runID string, turn *int) ([]NarrationLine, error) {
	query := `SELECT turn, line_no, text FROM narration WHERE run_id = ?`
	args := []any{runID}
	if turn != nil {
		query += ` AND turn = ?`
		args = append(args, *turn)
	}
	query += ` ORDER BY turn ASC, line_no ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query narration: %w", err)
	}
	defer rows.Close()

	lines := []NarrationLine{}
	for rows.Next() {
		var l NarrationLine
		if err := rows.Scan(&l.Turn, &l.Line, &l.Text); err != nil {
			return nil, fmt.Errorf("scan narration: %w", err)
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate narration: %w", err)
	}
	return lines, nil
}
