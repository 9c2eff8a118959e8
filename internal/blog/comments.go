package blog

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pavuchara/nextgen/internal/metrics"
	"github.com/pavuchara/nextgen/internal/models"
)

// AddComment posts a comment, or a reply when in.ParentID is set, on a
// published post.
func (s *Service) AddComment(ctx context.Context, actor *models.User, postID uuid.UUID, in CommentInput) (*models.Comment, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if err := check(in); err != nil {
		return nil, err
	}

	p, err := s.posts.FindByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if !p.IsPublished() {
		return nil, fmt.Errorf("post %s: %w", postID, models.ErrNotFound)
	}

	defer metrics.ObserveTree("comment", "insert", time.Now())
	return s.comments.Create(ctx, &models.Comment{
		PostID:   postID,
		AuthorID: actor.ID,
		ParentID: in.ParentID,
		Status:   models.CommentStatusPublished,
		Body:     in.Body,
	})
}

// DeleteComment removes a comment and its replies. Only the comment's
// author may do so.
func (s *Service) DeleteComment(ctx context.Context, actor *models.User, id uuid.UUID) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	c, err := s.comments.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if c.AuthorID != actor.ID {
		return fmt.Errorf("%w: comment %s belongs to another user", models.ErrForbidden, id)
	}

	defer metrics.ObserveTree("comment", "delete", time.Now())
	return s.comments.Delete(ctx, id)
}

// CommentThread returns a post's published comments in display order with
// their depth.
func (s *Service) CommentThread(ctx context.Context, postID uuid.UUID) ([]models.Comment, error) {
	return s.comments.Thread(ctx, postID)
}

// CommentReplies returns the direct replies to a comment, newest first.
func (s *Service) CommentReplies(ctx context.Context, id uuid.UUID) ([]models.Comment, error) {
	return s.comments.Children(ctx, id)
}

// CommentSubtree returns a comment followed by every reply below it.
func (s *Service) CommentSubtree(ctx context.Context, id uuid.UUID) ([]models.Comment, error) {
	return s.comments.Subtree(ctx, id)
}

// CommentPath returns the chain of comments a reply answers, starting at
// the top-level comment and ending with id itself.
func (s *Service) CommentPath(ctx context.Context, id uuid.UUID) ([]models.Comment, error) {
	return s.comments.Path(ctx, id)
}

// IsReplyTo reports whether id answers ancestor, directly or further down
// the thread.
func (s *Service) IsReplyTo(ctx context.Context, id, ancestor uuid.UUID) (bool, error) {
	return s.comments.IsDescendant(ctx, id, ancestor)
}
