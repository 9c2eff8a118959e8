package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/pavuchara/nextgen/internal/models"
	"github.com/pavuchara/nextgen/internal/tree"
)

// nestedSet keeps the lft/rgt/depth columns of a tree table in step with
// its parent_id links. A forest is either the whole table (categories) or
// the rows sharing one scope value (the comments of a post).
//
// Every structural mutation runs inside a transaction that first takes an
// advisory lock on the forest, loads it, applies the change to the
// in-memory tree.Forest and writes back the rows whose numbering moved.
type nestedSet struct {
	table       string
	titleColumn string // ordering key, "" when the forest orders by time
	scopeColumn string // "" when the table is a single forest
	order       tree.Order
}

var (
	categorySet = nestedSet{table: "categories", titleColumn: "title", order: tree.ByTitle}
	commentSet  = nestedSet{table: "comments", scopeColumn: "post_id", order: tree.ByNewest}
)

// lockKey names the advisory lock guarding one forest.
func (ns nestedSet) lockKey(scope uuid.UUID) string {
	if ns.scopeColumn == "" {
		return ns.table
	}
	return ns.table + ":" + scope.String()
}

// lock blocks until the transaction holds the forest lock. The lock is
// released when the transaction ends.
func (ns nestedSet) lock(ctx context.Context, tx *sql.Tx, scope uuid.UUID) error {
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, ns.lockKey(scope)); err != nil {
		return fmt.Errorf("lock %s forest: %w", ns.table, err)
	}
	return nil
}

// stored is the numbering a forest had on disk when it was loaded.
type stored map[uuid.UUID]tree.Node

// load reads one forest and builds it. The returned snapshot holds the
// numbering as persisted, which persist diffs against.
func (ns nestedSet) load(ctx context.Context, tx *sql.Tx, scope uuid.UUID) (*tree.Forest, stored, error) {
	title := "''"
	if ns.titleColumn != "" {
		title = ns.titleColumn
	}
	query := `SELECT id, parent_id, ` + title + `, created_at, seq, lft, rgt, depth FROM ` + ns.table
	var args []any
	if ns.scopeColumn != "" {
		query += ` WHERE ` + ns.scopeColumn + ` = $1`
		args = append(args, scope)
	}

	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("load %s forest: %w", ns.table, err)
	}
	defer rows.Close()

	var nodes []tree.Node
	snapshot := make(stored)
	for rows.Next() {
		var n tree.Node
		if err := rows.Scan(&n.ID, &n.ParentID, &n.Title, &n.CreatedAt, &n.Seq, &n.Left, &n.Right, &n.Depth); err != nil {
			return nil, nil, fmt.Errorf("scan %s node: %w", ns.table, err)
		}
		nodes = append(nodes, n)
		snapshot[n.ID] = n
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("load %s forest: %w", ns.table, err)
	}

	forest, err := tree.New(ns.order, nodes)
	if err != nil {
		return nil, nil, fmt.Errorf("build %s forest: %w", ns.table, err)
	}
	return forest, snapshot, nil
}

// persist writes lft, rgt and depth for every node whose numbering differs
// from the snapshot. Nodes missing from the snapshot are always written.
func (ns nestedSet) persist(ctx context.Context, tx *sql.Tx, forest *tree.Forest, before stored) error {
	stmt, err := tx.PrepareContext(ctx,
		`UPDATE `+ns.table+` SET lft = $1, rgt = $2, depth = $3 WHERE id = $4`)
	if err != nil {
		return fmt.Errorf("prepare %s renumber: %w", ns.table, err)
	}
	defer stmt.Close()

	for _, n := range forest.Nodes() {
		if old, ok := before[n.ID]; ok &&
			old.Left == n.Left && old.Right == n.Right && old.Depth == n.Depth {
			continue
		}
		if _, err := stmt.ExecContext(ctx, n.Left, n.Right, n.Depth, n.ID); err != nil {
			return fmt.Errorf("renumber %s %s: %w", ns.table, n.ID, err)
		}
	}
	return nil
}

// begin locks and loads a forest in one step.
func (ns nestedSet) begin(ctx context.Context, tx *sql.Tx, scope uuid.UUID) (*tree.Forest, stored, error) {
	if err := ns.lock(ctx, tx, scope); err != nil {
		return nil, nil, err
	}
	return ns.load(ctx, tx, scope)
}

// treeError reports a missing node as models.ErrNotFound. Cycle and
// not-empty errors pass through unchanged.
func treeError(err error) error {
	if errors.Is(err, tree.ErrNodeNotFound) {
		return fmt.Errorf("%w: %w", models.ErrNotFound, err)
	}
	return err
}
