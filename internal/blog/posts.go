package blog

import (
	"context"
	"fmt"
	"iter"

	"github.com/google/uuid"

	"github.com/pavuchara/nextgen/internal/models"
	"github.com/pavuchara/nextgen/internal/store"
)

// CreatePost stores a new post authored by actor. The slug is derived from
// the title once; actor becomes both author and updater. Posts start as
// drafts unless in.Status says otherwise.
func (s *Service) CreatePost(ctx context.Context, actor *models.User, in PostInput) (*models.Post, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if err := check(in); err != nil {
		return nil, err
	}

	status := in.Status
	if status == "" {
		status = models.PostStatusDraft
	}

	var created *models.Post
	_, err := s.postSlugs.Allocate(ctx, in.Title, func(ctx context.Context, candidate string) error {
		p, err := s.posts.Create(ctx, &models.Post{
			Title:       in.Title,
			Slug:        candidate,
			Description: in.Description,
			Body:        in.Body,
			CategoryID:  in.CategoryID,
			Thumbnail:   in.Thumbnail,
			Status:      status,
			AuthorID:    actor.ID,
			UpdaterID:   actor.ID,
			Pinned:      in.Pinned,
			Tags:        in.Tags,
		})
		if err != nil {
			return claimed(err)
		}
		created = p
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	return created, nil
}

// UpdatePost rewrites a post on behalf of its author or a staff member.
// The slug is never reassigned. A replaced thumbnail is scheduled for
// removal only after the update has been committed.
func (s *Service) UpdatePost(ctx context.Context, actor *models.User, id uuid.UUID, in PostInput) (*models.Post, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if err := check(in); err != nil {
		return nil, err
	}

	p, err := s.posts.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanModerate(p.AuthorID) {
		return nil, fmt.Errorf("%w: post %s belongs to another author", models.ErrForbidden, id)
	}

	p.Title, p.Description, p.Body = in.Title, in.Description, in.Body
	p.CategoryID, p.Pinned, p.Tags = in.CategoryID, in.Pinned, in.Tags
	p.UpdaterID = actor.ID
	if in.Status != "" {
		p.Status = in.Status
	}
	if in.Thumbnail != "" {
		p.Thumbnail = in.Thumbnail
	}

	previous, err := s.posts.Update(ctx, p)
	if err != nil {
		return nil, err
	}
	if previous != p.Thumbnail {
		s.discard(ctx, previous)
	}
	return s.posts.FindByID(ctx, id)
}

// DeletePost removes a post with its comments and ratings on behalf of its
// author or a staff member.
func (s *Service) DeletePost(ctx context.Context, actor *models.User, id uuid.UUID) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	p, err := s.posts.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if !actor.CanModerate(p.AuthorID) {
		return fmt.Errorf("%w: post %s belongs to another author", models.ErrForbidden, id)
	}

	thumbnail, err := s.posts.Delete(ctx, id)
	if err != nil {
		return err
	}
	s.discard(ctx, thumbnail)
	return nil
}

// GetPublished returns a published post by ID or slug. Drafts are
// reported as models.ErrNotFound.
func (s *Service) GetPublished(ctx context.Context, idOrSlug string) (*models.Post, error) {
	return s.posts.FindPublished(ctx, idOrSlug)
}

// ListPublished lazily yields the published posts matching f, pinned first
// and newest first.
func (s *Service) ListPublished(ctx context.Context, f store.PostFilter) iter.Seq2[models.Post, error] {
	return s.posts.ListPublished(ctx, f)
}

// CountPublished returns how many published posts match f.
func (s *Service) CountPublished(ctx context.Context, f store.PostFilter) (int, error) {
	return s.posts.CountPublished(ctx, f)
}
