package store

import (
	"context"
	"database/sql"
	"fmt"
	"iter"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pavuchara/nextgen/internal/models"
	"github.com/pavuchara/nextgen/internal/slug"
)

// PostStore handles all post-related database operations, including the
// tag set attached to each post.
type PostStore struct {
	db *sql.DB
}

// NewPostStore creates a new PostStore with the given database connection.
func NewPostStore(db *sql.DB) *PostStore {
	return &PostStore{db: db}
}

// PostFilter narrows a listing of published posts. Zero values mean "no
// constraint"; a zero Limit returns every match.
type PostFilter struct {
	CategoryID     *uuid.UUID
	IncludeSubtree bool
	TagSlug        string
	AuthorID       *uuid.UUID
	Limit          int
	Offset         int
}

// postColumns selects a post with its rating sum and tag names.
const postColumns = `p.id, p.title, p.slug, p.description, p.body, p.category_id,
	p.thumbnail, p.status, p.author_id, p.updater_id, p.pinned,
	p.created_at, p.updated_at,
	COALESCE((SELECT SUM(r.value) FROM post_ratings r WHERE r.post_id = p.id), 0) AS rating_sum,
	ARRAY(SELECT t.name FROM post_tags pt JOIN tags t ON t.id = pt.tag_id
	      WHERE pt.post_id = p.id ORDER BY t.name) AS tags`

// publishedOrder puts pinned posts first, then the newest.
const publishedOrder = `ORDER BY p.pinned DESC, p.created_at DESC, p.seq DESC`

// scanPost scans a postColumns row. Tags arrive as a PostgreSQL text[].
func scanPost(scanner interface{ Scan(...any) error }) (*models.Post, error) {
	var p models.Post
	m := pgtype.NewMap()
	err := scanner.Scan(
		&p.ID, &p.Title, &p.Slug, &p.Description, &p.Body, &p.CategoryID,
		&p.Thumbnail, &p.Status, &p.AuthorID, &p.UpdaterID, &p.Pinned,
		&p.CreatedAt, &p.UpdatedAt, &p.RatingSum, m.SQLScanner(&p.Tags),
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *PostStore) findByID(ctx context.Context, q querier, id uuid.UUID) (*models.Post, error) {
	row := q.QueryRowContext(ctx, `SELECT `+postColumns+` FROM posts p WHERE p.id = $1`, id)
	p, err := scanPost(row)
	if err != nil {
		return nil, fmt.Errorf("find post by id: %w", notFound(err, "post"))
	}
	return p, nil
}

// FindByID retrieves a post by ID regardless of its status.
func (s *PostStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	return s.findByID(ctx, s.db, id)
}

// FindPublished retrieves a published post by ID or slug. Drafts are
// reported as models.ErrNotFound.
func (s *PostStore) FindPublished(ctx context.Context, idOrSlug string) (*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts p WHERE p.status = 'published' AND `
	args := []any{idOrSlug}
	if id, err := uuid.Parse(idOrSlug); err == nil {
		query += `(p.slug = $1 OR p.id = $2)`
		args = append(args, id)
	} else {
		query += `p.slug = $1`
	}

	p, err := scanPost(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, fmt.Errorf("find published post %q: %w", idOrSlug, notFound(err, "post"))
	}
	return p, nil
}

// checkRefs verifies the category and the author a post points at.
func checkRefs(ctx context.Context, tx *sql.Tx, p *models.Post, actor uuid.UUID) error {
	var category, user bool
	err := tx.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM categories WHERE id = $1),
		       EXISTS (SELECT 1 FROM users WHERE id = $2)
	`, p.CategoryID, actor).Scan(&category, &user)
	if err != nil {
		return fmt.Errorf("check post references: %w", err)
	}
	if !category {
		return fmt.Errorf("category %s: %w", p.CategoryID, models.ErrNotFound)
	}
	if !user {
		return fmt.Errorf("user %s: %w", actor, models.ErrNotFound)
	}
	return nil
}

// Create inserts a post and its tags in one transaction. The slug must
// already be chosen; a taken slug fails with ErrDuplicateSlug.
func (s *PostStore) Create(ctx context.Context, p *models.Post) (*models.Post, error) {
	if p.Status == "" {
		p.Status = models.PostStatusDraft
	}
	if p.Thumbnail == "" {
		p.Thumbnail = models.DefaultThumbnail
	}

	var created *models.Post
	err := withTx(ctx, s.db, "create post", func(tx *sql.Tx) error {
		if err := checkRefs(ctx, tx, p, p.AuthorID); err != nil {
			return err
		}

		var id uuid.UUID
		err := tx.QueryRowContext(ctx, `
			INSERT INTO posts (title, slug, description, body, category_id, thumbnail,
			                   status, author_id, updater_id, pinned)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8, $9)
			RETURNING id
		`, p.Title, p.Slug, p.Description, p.Body, p.CategoryID, p.Thumbnail,
			p.Status, p.AuthorID, p.Pinned,
		).Scan(&id)
		if err != nil {
			return fmt.Errorf("insert post: %w", err)
		}
		if err := replaceTags(ctx, tx, id, p.Tags); err != nil {
			return err
		}
		created, err = s.findByID(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	return created, nil
}

// Update rewrites the editable fields of a post and replaces its tag set.
// The slug and the author never change. It returns the thumbnail the post
// had before the update.
func (s *PostStore) Update(ctx context.Context, p *models.Post) (string, error) {
	var previous string
	err := withTx(ctx, s.db, "update post", func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx,
			`SELECT thumbnail FROM posts WHERE id = $1 FOR UPDATE`, p.ID,
		).Scan(&previous)
		if err != nil {
			return notFound(err, "post")
		}
		if err := checkRefs(ctx, tx, p, p.UpdaterID); err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE posts SET
				title = $1, description = $2, body = $3, category_id = $4,
				thumbnail = $5, status = $6, updater_id = $7, pinned = $8,
				updated_at = NOW()
			WHERE id = $9
		`, p.Title, p.Description, p.Body, p.CategoryID,
			p.Thumbnail, p.Status, p.UpdaterID, p.Pinned, p.ID,
		)
		if err != nil {
			return err
		}
		return replaceTags(ctx, tx, p.ID, p.Tags)
	})
	if err != nil {
		return "", fmt.Errorf("update post: %w", err)
	}
	return previous, nil
}

// Delete removes a post with its comments and ratings and returns the
// thumbnail it referenced.
func (s *PostStore) Delete(ctx context.Context, id uuid.UUID) (string, error) {
	var thumbnail string
	err := s.db.QueryRowContext(ctx,
		`DELETE FROM posts WHERE id = $1 RETURNING thumbnail`, id,
	).Scan(&thumbnail)
	if err != nil {
		return "", fmt.Errorf("delete post: %w", mapError(notFound(err, "post")))
	}
	return thumbnail, nil
}

// tagSlugMaxLength matches the tags.slug column.
const tagSlugMaxLength = 100

// replaceTags makes names the complete tag set of a post. Tags are keyed
// by slug and created on first use; names that slugify to nothing are
// skipped.
func replaceTags(ctx context.Context, tx *sql.Tx, postID uuid.UUID, names []string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM post_tags WHERE post_id = $1`, postID); err != nil {
		return fmt.Errorf("clear post tags: %w", err)
	}

	seen := make(map[string]bool, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		tagSlug := slug.Truncate(slug.Generate(name), tagSlugMaxLength)
		if tagSlug == "" || seen[tagSlug] {
			continue
		}
		seen[tagSlug] = true

		var tagID uuid.UUID
		err := tx.QueryRowContext(ctx, `
			INSERT INTO tags (name, slug) VALUES ($1, $2)
			ON CONFLICT (slug) DO UPDATE SET slug = EXCLUDED.slug
			RETURNING id
		`, name, tagSlug).Scan(&tagID)
		if err != nil {
			return fmt.Errorf("upsert tag %q: %w", tagSlug, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO post_tags (post_id, tag_id) VALUES ($1, $2)`, postID, tagID,
		); err != nil {
			return fmt.Errorf("attach tag %q: %w", tagSlug, err)
		}
	}
	return nil
}

// publishedWhere renders the WHERE clause for a filter, numbering
// placeholders from 1.
func publishedWhere(f PostFilter) (string, []any) {
	conds := []string{`p.status = 'published'`}
	var args []any
	next := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if f.CategoryID != nil {
		if f.IncludeSubtree {
			conds = append(conds, `p.category_id IN (
				SELECT c.id FROM categories c
				JOIN categories r ON c.lft BETWEEN r.lft AND r.rgt
				WHERE r.id = `+next(*f.CategoryID)+`)`)
		} else {
			conds = append(conds, `p.category_id = `+next(*f.CategoryID))
		}
	}
	if f.TagSlug != "" {
		conds = append(conds, `EXISTS (
			SELECT 1 FROM post_tags pt JOIN tags t ON t.id = pt.tag_id
			WHERE pt.post_id = p.id AND t.slug = `+next(f.TagSlug)+`)`)
	}
	if f.AuthorID != nil {
		conds = append(conds, `p.author_id = `+next(*f.AuthorID))
	}
	return `WHERE ` + strings.Join(conds, ` AND `), args
}

// ListPublished returns the published posts matching f, pinned first and
// then newest first. The query runs when the sequence is ranged over and
// rows are scanned one at a time; stopping early closes the cursor.
func (s *PostStore) ListPublished(ctx context.Context, f PostFilter) iter.Seq2[models.Post, error] {
	return func(yield func(models.Post, error) bool) {
		where, args := publishedWhere(f)
		query := `SELECT ` + postColumns + ` FROM posts p ` + where + ` ` + publishedOrder
		if f.Limit > 0 {
			args = append(args, f.Limit)
			query += ` LIMIT $` + strconv.Itoa(len(args))
		}
		if f.Offset > 0 {
			args = append(args, f.Offset)
			query += ` OFFSET $` + strconv.Itoa(len(args))
		}

		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			yield(models.Post{}, fmt.Errorf("list published posts: %w", err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			p, err := scanPost(rows)
			if err != nil {
				yield(models.Post{}, fmt.Errorf("scan post: %w", err))
				return
			}
			if !yield(*p, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(models.Post{}, fmt.Errorf("list published posts: %w", err))
		}
	}
}

// CountPublished returns the number of published posts matching f,
// ignoring Limit and Offset.
func (s *PostStore) CountPublished(ctx context.Context, f PostFilter) (int, error) {
	where, args := publishedWhere(f)
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts p `+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count published posts: %w", err)
	}
	return count, nil
}

// RandomPublishedID picks one published post at random. It fails with
// models.ErrNotFound when nothing is published.
func (s *PostStore) RandomPublishedID(ctx context.Context) (uuid.UUID, error) {
	var id uuid.UUID
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM posts WHERE status = 'published' ORDER BY random() LIMIT 1`,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("random published post: %w", notFound(err, "published post"))
	}
	return id, nil
}
