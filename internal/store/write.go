package store

import (
	"context"
	"database/sql"
	"fmt"
)

// WriteRun inserts a run record. Uses ON CONFLICT(id) DO NOTHING, so
// writing the same run twice is a no-op.
func (s *Store) WriteRun(ctx context.Context, run Run) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, scenario, world, engine_version, schema_version)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		run.ID,
		run.Scenario,
		run.World,
		run.EngineVersion,
		run.SchemaVersion,
	)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}
	return nil
}

// WriteTurn archives a turn with its nodes and narration in a single
// transaction. A turn that is already archived is left untouched.
//
// Note: the run must already exist (foreign key constraint).
func (s *Store) WriteTurn(ctx context.Context, turn Turn) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write turn: begin: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO turns (run_id, turn, node_count, digest)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(run_id, turn) DO NOTHING
	`, turn.RunID, turn.Turn, turn.NodeCount, turn.Digest)
	if err != nil {
		return fmt.Errorf("write turn %d: %w", turn.Turn, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return tx.Commit()
	}

	if err = writeNodes(ctx, tx, turn); err != nil {
		return err
	}
	if err = writeNarration(ctx, tx, turn); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("write turn %d: commit: %w", turn.Turn, err)
	}
	return nil
}

func writeNodes(ctx context.Context, tx *sql.Tx, turn Turn) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO nodes (run_id, turn, idx, ord, parent, depth, kind, label, fields)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("write nodes: prepare: %w", err)
	}
	defer stmt.Close()

	for _, n := range turn.Nodes {
		fields, err := marshalFields(n.Fields)
		if err != nil {
			return fmt.Errorf("write node %d: %w", n.Index, err)
		}
		var parent sql.NullInt64
		if n.Parent >= 0 {
			parent = sql.NullInt64{Int64: int64(n.Parent), Valid: true}
		}
		if _, err := stmt.ExecContext(ctx,
			turn.RunID, turn.Turn, n.Index, n.Ord, parent, n.Depth, n.Kind, n.Label, fields,
		); err != nil {
			return fmt.Errorf("write node %d: %w", n.Index, err)
		}
	}
	return nil
}

func writeNarration(ctx context.Context, tx *sql.Tx, turn Turn) error {
	for i, line := range turn.Narration {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO narration (run_id, turn, line_no, text)
			VALUES (?, ?, ?, ?)
		`, turn.RunID, turn.Turn, i, line); err != nil {
			return fmt.Errorf("write narration line %d: %w", i, err)
		}
	}
	return nil
}
