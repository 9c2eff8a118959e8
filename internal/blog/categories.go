package blog

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pavuchara/nextgen/internal/metrics"
	"github.com/pavuchara/nextgen/internal/models"
)

// CreateCategory adds a category under parentID, or as a root when
// parentID is nil. Staff only.
func (s *Service) CreateCategory(ctx context.Context, actor *models.User, parentID *uuid.UUID, in CategoryInput) (*models.Category, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	if err := check(in); err != nil {
		return nil, err
	}
	defer metrics.ObserveTree("category", "insert", time.Now())

	var created *models.Category
	_, err := s.categorySlugs.Allocate(ctx, in.Title, func(ctx context.Context, candidate string) error {
		c, err := s.categories.Create(ctx, &models.Category{
			Title:       in.Title,
			Slug:        candidate,
			Description: in.Description,
			ParentID:    parentID,
		})
		if err != nil {
			return claimed(err)
		}
		created = c
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}
	return created, nil
}

// UpdateCategory changes a category's title and description. The slug is
// kept. Staff only.
func (s *Service) UpdateCategory(ctx context.Context, actor *models.User, id uuid.UUID, in CategoryInput) (*models.Category, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	if err := check(in); err != nil {
		return nil, err
	}
	defer metrics.ObserveTree("category", "update", time.Now())

	c, err := s.categories.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.Title, c.Description = in.Title, in.Description
	if err := s.categories.Update(ctx, c); err != nil {
		return nil, err
	}
	return s.categories.FindByID(ctx, id)
}

// MoveCategory reparents a category with its subtree. Staff only.
func (s *Service) MoveCategory(ctx context.Context, actor *models.User, id uuid.UUID, parentID *uuid.UUID) error {
	if err := requireStaff(actor); err != nil {
		return err
	}
	defer metrics.ObserveTree("category", "reparent", time.Now())
	return s.categories.Move(ctx, id, parentID)
}

// DeleteCategory removes a category, and its subtree when cascade is set.
// Staff only.
func (s *Service) DeleteCategory(ctx context.Context, actor *models.User, id uuid.UUID, cascade bool) error {
	if err := requireStaff(actor); err != nil {
		return err
	}
	defer metrics.ObserveTree("category", "delete", time.Now())
	return s.categories.Delete(ctx, id, cascade)
}

// CategoryTree returns the whole category forest, nested.
func (s *Service) CategoryTree(ctx context.Context) ([]models.Category, error) {
	return s.categories.Tree(ctx)
}

// CategoryChildren returns the direct children of parentID in title order,
// or the roots when parentID is nil.
func (s *Service) CategoryChildren(ctx context.Context, parentID *uuid.UUID) ([]models.Category, error) {
	return s.categories.Children(ctx, parentID)
}

// CategorySubtree returns a category and all of its descendants.
func (s *Service) CategorySubtree(ctx context.Context, id uuid.UUID) ([]models.Category, error) {
	return s.categories.Subtree(ctx, id)
}

// CategoryPath returns the breadcrumb from the root down to id.
func (s *Service) CategoryPath(ctx context.Context, id uuid.UUID) ([]models.Category, error) {
	return s.categories.Path(ctx, id)
}

// IsSubcategory reports whether id lies anywhere below ancestor.
func (s *Service) IsSubcategory(ctx context.Context, id, ancestor uuid.UUID) (bool, error) {
	return s.categories.IsDescendant(ctx, id, ancestor)
}
