// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/pavuchara/nextgen/internal/models"
	"github.com/pavuchara/nextgen/internal/tree"
)

// CategoryStore manages the category forest in the database.
type CategoryStore struct {
	db *sql.DB
}

// NewCategoryStore returns a new CategoryStore.
func NewCategoryStore(db *sql.DB) *CategoryStore {
	return &CategoryStore{db: db}
}

const categoryColumns = `c.id, c.seq, c.title, c.slug, c.description, c.parent_id,
	c.lft, c.rgt, c.depth, c.created_at, c.updated_at`

// scanCategory scans a row into a Category struct.
func scanCategory(scanner interface{ Scan(...any) error }, extra ...any) (*models.Category, error) {
	var c models.Category
	dest := []any{
		&c.ID, &c.Seq, &c.Title, &c.Slug, &c.Description, &c.ParentID,
		&c.Left, &c.Right, &c.Depth, &c.CreatedAt, &c.UpdatedAt,
	}
	if err := scanner.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return &c, nil
}

// collectCategories drains rows produced by a categoryColumns query.
func collectCategories(rows *sql.Rows) ([]models.Category, error) {
	defer rows.Close()
	var items []models.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		items = append(items, *c)
	}
	return items, rows.Err()
}

func (s *CategoryStore) findBy(ctx context.Context, q querier, column string, value any) (*models.Category, error) {
	row := q.QueryRowContext(ctx, `SELECT `+categoryColumns+` FROM categories c WHERE c.`+column+` = $1`, value)
	c, err := scanCategory(row)
	if err != nil {
		return nil, fmt.Errorf("find category by %s: %w", column, notFound(err, "category"))
	}
	return c, nil
}

// FindByID retrieves a category by ID.
func (s *CategoryStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	return s.findBy(ctx, s.db, "id", id)
}

// FindBySlug retrieves a category by slug.
func (s *CategoryStore) FindBySlug(ctx context.Context, slug string) (*models.Category, error) {
	return s.findBy(ctx, s.db, "slug", slug)
}

// Create inserts c under c.ParentID (or as a root) and renumbers the
// forest. The slug must already be chosen; a taken slug fails with
// ErrDuplicateSlug.
func (s *CategoryStore) Create(ctx context.Context, c *models.Category) (*models.Category, error) {
	var created *models.Category
	err := withTx(ctx, s.db, "create category", func(tx *sql.Tx) error {
		forest, before, err := categorySet.begin(ctx, tx, uuid.Nil)
		if err != nil {
			return err
		}
		if c.ParentID != nil {
			if _, ok := forest.Node(*c.ParentID); !ok {
				return fmt.Errorf("parent category %s: %w", *c.ParentID, models.ErrNotFound)
			}
		}

		row := tx.QueryRowContext(ctx, `
			INSERT INTO categories AS c (title, slug, description, parent_id)
			VALUES ($1, $2, $3, $4)
			RETURNING `+categoryColumns,
			c.Title, c.Slug, c.Description, c.ParentID,
		)
		created, err = scanCategory(row)
		if err != nil {
			return fmt.Errorf("insert category: %w", err)
		}

		node, err := forest.Insert(categoryNode(created))
		if err != nil {
			return treeError(err)
		}
		if err := categorySet.persist(ctx, tx, forest, before); err != nil {
			return err
		}
		created.Left, created.Right, created.Depth = node.Left, node.Right, node.Depth
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}
	return created, nil
}

// Update changes the title and description of a category. The slug is
// never rewritten. A new title can move the category among its siblings.
func (s *CategoryStore) Update(ctx context.Context, c *models.Category) error {
	err := withTx(ctx, s.db, "update category", func(tx *sql.Tx) error {
		if err := categorySet.lock(ctx, tx, uuid.Nil); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `
			UPDATE categories SET title = $1, description = $2, updated_at = NOW()
			WHERE id = $3
		`, c.Title, c.Description, c.ID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("category %s: %w", c.ID, models.ErrNotFound)
		}

		forest, before, err := categorySet.load(ctx, tx, uuid.Nil)
		if err != nil {
			return err
		}
		return categorySet.persist(ctx, tx, forest, before)
	})
	if err != nil {
		return fmt.Errorf("update category: %w", err)
	}
	return nil
}

// Move reparents a category with its whole subtree. A nil parent makes it
// a root. Moving a category below itself or one of its descendants fails
// with tree.ErrCycle.
func (s *CategoryStore) Move(ctx context.Context, id uuid.UUID, parentID *uuid.UUID) error {
	err := withTx(ctx, s.db, "move category", func(tx *sql.Tx) error {
		forest, before, err := categorySet.begin(ctx, tx, uuid.Nil)
		if err != nil {
			return err
		}
		if err := forest.Reparent(id, parentID); err != nil {
			return treeError(err)
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE categories SET parent_id = $1, updated_at = NOW() WHERE id = $2
		`, parentID, id); err != nil {
			return err
		}
		return categorySet.persist(ctx, tx, forest, before)
	})
	if err != nil {
		return fmt.Errorf("move category: %w", err)
	}
	return nil
}

// Delete removes a category. Without cascade a category that has children
// is refused with tree.ErrNotEmpty; with cascade its whole subtree goes.
// Either way the deletion fails with models.ErrReferenced when a post
// belongs to any category that would be removed.
func (s *CategoryStore) Delete(ctx context.Context, id uuid.UUID, cascade bool) error {
	err := withTx(ctx, s.db, "delete category", func(tx *sql.Tx) error {
		forest, before, err := categorySet.begin(ctx, tx, uuid.Nil)
		if err != nil {
			return err
		}
		target, ok := forest.Node(id)
		if !ok {
			return fmt.Errorf("category %s: %w", id, models.ErrNotFound)
		}
		if _, err := forest.Delete(id, cascade); err != nil {
			return treeError(err)
		}

		var posts int
		err = tx.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM posts p
			JOIN categories c ON c.id = p.category_id
			WHERE c.lft BETWEEN $1 AND $2
		`, target.Left, target.Right).Scan(&posts)
		if err != nil {
			return fmt.Errorf("count referencing posts: %w", err)
		}
		if posts > 0 {
			return fmt.Errorf("%w: %d posts in the subtree of category %s", models.ErrReferenced, posts, id)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id); err != nil {
			return err
		}
		return categorySet.persist(ctx, tx, forest, before)
	})
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return nil
}

// Children returns the direct children of parentID in title order. A nil
// parent returns the root categories.
func (s *CategoryStore) Children(ctx context.Context, parentID *uuid.UUID) ([]models.Category, error) {
	if parentID != nil {
		if _, err := s.FindByID(ctx, *parentID); err != nil {
			return nil, err
		}
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+categoryColumns+` FROM categories c
		WHERE c.parent_id IS NOT DISTINCT FROM $1
		ORDER BY c.lft
	`, parentID)
	if err != nil {
		return nil, fmt.Errorf("list category children: %w", err)
	}
	return collectCategories(rows)
}

// Subtree returns the category and all of its descendants in preorder.
func (s *CategoryStore) Subtree(ctx context.Context, id uuid.UUID) ([]models.Category, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+categoryColumns+` FROM categories c
		JOIN categories r ON c.lft BETWEEN r.lft AND r.rgt
		WHERE r.id = $1
		ORDER BY c.lft
	`, id)
	if err != nil {
		return nil, fmt.Errorf("list category subtree: %w", err)
	}
	items, err := collectCategories(rows)
	if err != nil {
		return nil, fmt.Errorf("list category subtree: %w", err)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("category %s: %w", id, models.ErrNotFound)
	}
	return items, nil
}

// IsDescendant reports whether id lies strictly below ancestor.
func (s *CategoryStore) IsDescendant(ctx context.Context, id, ancestor uuid.UUID) (bool, error) {
	c, err := s.FindByID(ctx, id)
	if err != nil {
		return false, err
	}
	a, err := s.FindByID(ctx, ancestor)
	if err != nil {
		return false, err
	}
	return bounds(a.Left, a.Right).Contains(bounds(c.Left, c.Right)), nil
}

// Path returns the categories from the root down to id.
func (s *CategoryStore) Path(ctx context.Context, id uuid.UUID) ([]models.Category, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+categoryColumns+` FROM categories c
		JOIN categories t ON c.lft <= t.lft AND c.rgt >= t.rgt
		WHERE t.id = $1
		ORDER BY c.lft
	`, id)
	if err != nil {
		return nil, fmt.Errorf("category path: %w", err)
	}
	items, err := collectCategories(rows)
	if err != nil {
		return nil, fmt.Errorf("category path: %w", err)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("category %s: %w", id, models.ErrNotFound)
	}
	return items, nil
}

// List returns all categories in preorder, with post counts.
func (s *CategoryStore) List(ctx context.Context) ([]models.Category, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+categoryColumns+`, COUNT(p.id) AS post_count
		FROM categories c
		LEFT JOIN posts p ON p.category_id = c.id
		GROUP BY c.id
		ORDER BY c.lft
	`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var items []models.Category
	for rows.Next() {
		var count int
		c, err := scanCategory(rows, &count)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		c.PostCount = count
		items = append(items, *c)
	}
	return items, rows.Err()
}

// Tree returns categories as a nested tree structure.
func (s *CategoryStore) Tree(ctx context.Context) ([]models.Category, error) {
	flat, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return buildTree(flat, nil), nil
}

// buildTree recursively builds a tree from a preorder list.
func buildTree(flat []models.Category, parentID *uuid.UUID) []models.Category {
	var result []models.Category
	for _, c := range flat {
		if ptrEqual(c.ParentID, parentID) {
			c.Children = buildTree(flat, &c.ID)
			result = append(result, c)
		}
	}
	return result
}

// ptrEqual compares two *uuid.UUID for equality (both nil or same value).
func ptrEqual(a, b *uuid.UUID) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return *a == *b
}

func categoryNode(c *models.Category) tree.Node {
	return tree.Node{
		ID:        c.ID,
		ParentID:  c.ParentID,
		Title:     c.Title,
		CreatedAt: c.CreatedAt,
		Seq:       c.Seq,
	}
}

func bounds(left, right int) tree.Bounds {
	return tree.Bounds{Left: left, Right: right}
}
