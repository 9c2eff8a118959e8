package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/pavuchara/nextgen/internal/models"
	"github.com/pavuchara/nextgen/internal/tree"
)

// CommentStore manages comment threads. Each post has its own forest;
// replies stay on the post of their parent.
type CommentStore struct {
	db *sql.DB
}

// NewCommentStore returns a new CommentStore.
func NewCommentStore(db *sql.DB) *CommentStore {
	return &CommentStore{db: db}
}

const commentColumns = `c.id, c.seq, c.post_id, c.author_id, c.parent_id, c.status, c.body,
	c.lft, c.rgt, c.depth, c.created_at`

func scanComment(scanner interface{ Scan(...any) error }) (*models.Comment, error) {
	var c models.Comment
	err := scanner.Scan(
		&c.ID, &c.Seq, &c.PostID, &c.AuthorID, &c.ParentID, &c.Status, &c.Body,
		&c.Left, &c.Right, &c.Depth, &c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func collectComments(rows *sql.Rows) ([]models.Comment, error) {
	defer rows.Close()
	var items []models.Comment
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		items = append(items, *c)
	}
	return items, rows.Err()
}

// FindByID retrieves a comment by ID.
func (s *CommentStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Comment, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+commentColumns+` FROM comments c WHERE c.id = $1`, id)
	c, err := scanComment(row)
	if err != nil {
		return nil, fmt.Errorf("find comment by id: %w", notFound(err, "comment"))
	}
	return c, nil
}

// Create adds a comment to c.PostID, as a reply to c.ParentID when set.
// A parent that belongs to another post is rejected with
// models.ErrInvalidValue.
func (s *CommentStore) Create(ctx context.Context, c *models.Comment) (*models.Comment, error) {
	if c.Status == "" {
		c.Status = models.CommentStatusPublished
	}

	var created *models.Comment
	err := withTx(ctx, s.db, "create comment", func(tx *sql.Tx) error {
		var exists bool
		if err := tx.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM posts WHERE id = $1)`, c.PostID,
		).Scan(&exists); err != nil {
			return fmt.Errorf("check post: %w", err)
		}
		if !exists {
			return fmt.Errorf("post %s: %w", c.PostID, models.ErrNotFound)
		}

		forest, before, err := commentSet.begin(ctx, tx, c.PostID)
		if err != nil {
			return err
		}
		if c.ParentID != nil {
			if _, ok := forest.Node(*c.ParentID); !ok {
				return s.foreignParent(ctx, tx, *c.ParentID)
			}
		}

		row := tx.QueryRowContext(ctx, `
			INSERT INTO comments AS c (post_id, author_id, parent_id, status, body)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING `+commentColumns,
			c.PostID, c.AuthorID, c.ParentID, c.Status, c.Body,
		)
		created, err = scanComment(row)
		if err != nil {
			return fmt.Errorf("insert comment: %w", err)
		}

		node, err := forest.Insert(tree.Node{
			ID:        created.ID,
			ParentID:  created.ParentID,
			CreatedAt: created.CreatedAt,
			Seq:       created.Seq,
		})
		if err != nil {
			return treeError(err)
		}
		if err := commentSet.persist(ctx, tx, forest, before); err != nil {
			return err
		}
		created.Left, created.Right, created.Depth = node.Left, node.Right, node.Depth
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}
	return created, nil
}

// foreignParent explains why parentID is not in the post's forest.
func (s *CommentStore) foreignParent(ctx context.Context, tx *sql.Tx, parentID uuid.UUID) error {
	var postID uuid.UUID
	err := tx.QueryRowContext(ctx, `SELECT post_id FROM comments WHERE id = $1`, parentID).Scan(&postID)
	if err != nil {
		return fmt.Errorf("parent comment %s: %w", parentID, notFound(err, "comment"))
	}
	return fmt.Errorf("%w: parent comment %s belongs to post %s", models.ErrInvalidValue, parentID, postID)
}

// Delete removes a comment together with all of its replies.
func (s *CommentStore) Delete(ctx context.Context, id uuid.UUID) error {
	c, err := s.FindByID(ctx, id)
	if err != nil {
		return err
	}

	err = withTx(ctx, s.db, "delete comment", func(tx *sql.Tx) error {
		forest, before, err := commentSet.begin(ctx, tx, c.PostID)
		if err != nil {
			return err
		}
		if _, err := forest.Delete(id, true); err != nil {
			return treeError(err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM comments WHERE id = $1`, id); err != nil {
			return err
		}
		return commentSet.persist(ctx, tx, forest, before)
	})
	if err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	return nil
}

// Thread returns the published comments of a post in display order: each
// comment is followed by its replies, siblings newest first. Depth gives
// the indentation level.
func (s *CommentStore) Thread(ctx context.Context, postID uuid.UUID) ([]models.Comment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+commentColumns+` FROM comments c
		WHERE c.post_id = $1
		  AND NOT EXISTS (
			SELECT 1 FROM comments h
			WHERE h.post_id = c.post_id AND h.status <> 'published'
			  AND h.lft <= c.lft AND h.rgt >= c.rgt
		  )
		ORDER BY c.lft
	`, postID)
	if err != nil {
		return nil, fmt.Errorf("comment thread: %w", err)
	}
	return collectComments(rows)
}

// Children returns the direct replies to a comment, newest first.
func (s *CommentStore) Children(ctx context.Context, id uuid.UUID) ([]models.Comment, error) {
	if _, err := s.FindByID(ctx, id); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+commentColumns+` FROM comments c
		WHERE c.parent_id = $1
		ORDER BY c.lft
	`, id)
	if err != nil {
		return nil, fmt.Errorf("comment replies: %w", err)
	}
	return collectComments(rows)
}

// Subtree returns a comment and every reply below it in preorder.
func (s *CommentStore) Subtree(ctx context.Context, id uuid.UUID) ([]models.Comment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+commentColumns+` FROM comments c
		JOIN comments r ON r.post_id = c.post_id AND c.lft BETWEEN r.lft AND r.rgt
		WHERE r.id = $1
		ORDER BY c.lft
	`, id)
	if err != nil {
		return nil, fmt.Errorf("comment subtree: %w", err)
	}
	items, err := collectComments(rows)
	if err != nil {
		return nil, fmt.Errorf("comment subtree: %w", err)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("comment %s: %w", id, models.ErrNotFound)
	}
	return items, nil
}

// IsDescendant reports whether id is a reply, at any depth, to ancestor.
// Comments on different posts are never related.
func (s *CommentStore) IsDescendant(ctx context.Context, id, ancestor uuid.UUID) (bool, error) {
	c, err := s.FindByID(ctx, id)
	if err != nil {
		return false, err
	}
	a, err := s.FindByID(ctx, ancestor)
	if err != nil {
		return false, err
	}
	if c.PostID != a.PostID {
		return false, nil
	}
	return bounds(a.Left, a.Right).Contains(bounds(c.Left, c.Right)), nil
}

// Path returns the chain of comments from the thread root down to id.
func (s *CommentStore) Path(ctx context.Context, id uuid.UUID) ([]models.Comment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+commentColumns+` FROM comments c
		JOIN comments t ON t.post_id = c.post_id AND c.lft <= t.lft AND c.rgt >= t.rgt
		WHERE t.id = $1
		ORDER BY c.lft
	`, id)
	if err != nil {
		return nil, fmt.Errorf("comment path: %w", err)
	}
	items, err := collectComments(rows)
	if err != nil {
		return nil, fmt.Errorf("comment path: %w", err)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("comment %s: %w", id, models.ErrNotFound)
	}
	return items, nil
}
