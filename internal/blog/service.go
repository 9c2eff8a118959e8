// Package blog is the content repository: the entry point callers use to
// read and change users, categories, posts, comments and ratings.
//
// Every mutation takes the acting user explicitly. The service checks who
// may do what, validates input, allocates slugs for new entities and
// schedules replaced assets for removal once the owning record has been
// committed. Persistence is delegated to the stores in internal/store.
package blog

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"

	"github.com/google/uuid"

	"github.com/pavuchara/nextgen/internal/metrics"
	"github.com/pavuchara/nextgen/internal/models"
	"github.com/pavuchara/nextgen/internal/slug"
	"github.com/pavuchara/nextgen/internal/store"
)

// Users persists accounts and profiles.
type Users interface {
	Create(ctx context.Context, u *models.User, password, profileSlug string) (*models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindProfileBySlug(ctx context.Context, slug string) (*models.Profile, error)
	FindProfile(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
	UpdateProfile(ctx context.Context, u *models.User, p *models.Profile) (string, error)
}

// Categories persists the category forest.
type Categories interface {
	Create(ctx context.Context, c *models.Category) (*models.Category, error)
	Update(ctx context.Context, c *models.Category) error
	Move(ctx context.Context, id uuid.UUID, parentID *uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID, cascade bool) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Category, error)
	Children(ctx context.Context, parentID *uuid.UUID) ([]models.Category, error)
	Subtree(ctx context.Context, id uuid.UUID) ([]models.Category, error)
	Path(ctx context.Context, id uuid.UUID) ([]models.Category, error)
	IsDescendant(ctx context.Context, id, ancestor uuid.UUID) (bool, error)
	Tree(ctx context.Context) ([]models.Category, error)
}

// Posts persists posts and their tags.
type Posts interface {
	Create(ctx context.Context, p *models.Post) (*models.Post, error)
	Update(ctx context.Context, p *models.Post) (string, error)
	Delete(ctx context.Context, id uuid.UUID) (string, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Post, error)
	FindPublished(ctx context.Context, idOrSlug string) (*models.Post, error)
	ListPublished(ctx context.Context, f store.PostFilter) iter.Seq2[models.Post, error]
	CountPublished(ctx context.Context, f store.PostFilter) (int, error)
	RandomPublishedID(ctx context.Context) (uuid.UUID, error)
}

// Comments persists comment threads.
type Comments interface {
	Create(ctx context.Context, c *models.Comment) (*models.Comment, error)
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Comment, error)
	Thread(ctx context.Context, postID uuid.UUID) ([]models.Comment, error)
	Children(ctx context.Context, id uuid.UUID) ([]models.Comment, error)
	Subtree(ctx context.Context, id uuid.UUID) ([]models.Comment, error)
	Path(ctx context.Context, id uuid.UUID) ([]models.Comment, error)
	IsDescendant(ctx context.Context, id, ancestor uuid.UUID) (bool, error)
}

// Ratings persists votes. VoteAsNewUser creates the voter and records its
// vote atomically.
type Ratings interface {
	Vote(ctx context.Context, postID, userID uuid.UUID, value int) (models.VoteResult, error)
	VoteAsNewUser(ctx context.Context, u *models.User, password, profileSlug string, postID uuid.UUID, value int) (*models.User, models.VoteResult, error)
	ValueFor(ctx context.Context, postID, userID uuid.UUID) (*int, error)
}

// AssetCleaner schedules a stored asset for deletion.
type AssetCleaner interface {
	Enqueue(ctx context.Context, path string) error
}

// Deps wires a Service. Assets may be nil, in which case replaced assets
// are left in storage.
type Deps struct {
	Users           Users
	Categories      Categories
	Posts           Posts
	Comments        Comments
	Ratings         Ratings
	Assets          AssetCleaner
	MaxSlugAttempts int
}

// Service implements the content repository operations.
type Service struct {
	users      Users
	categories Categories
	posts      Posts
	comments   Comments
	ratings    Ratings
	assets     AssetCleaner

	postSlugs     *slug.Allocator
	categorySlugs *slug.Allocator
	profileSlugs  *slug.Allocator
}

// New returns a Service backed by d.
func New(d Deps) *Service {
	allocator := func(entity string) *slug.Allocator {
		return slug.NewAllocator(d.MaxSlugAttempts, slug.WithCollisionHook(func() {
			metrics.SlugCollisions.WithLabelValues(entity).Inc()
		}))
	}
	return &Service{
		users:         d.Users,
		categories:    d.Categories,
		posts:         d.Posts,
		comments:      d.Comments,
		ratings:       d.Ratings,
		assets:        d.Assets,
		postSlugs:     allocator("post"),
		categorySlugs: allocator("category"),
		profileSlugs:  allocator("profile"),
	}
}

// claimed turns a slug unique violation into slug.ErrTaken so the
// allocator tries the next candidate.
func claimed(err error) error {
	if errors.Is(err, store.ErrDuplicateSlug) {
		return fmt.Errorf("%w: %w", slug.ErrTaken, err)
	}
	return err
}

func requireActor(actor *models.User) error {
	if actor == nil {
		return fmt.Errorf("%w: anonymous actor", models.ErrForbidden)
	}
	return nil
}

func requireStaff(actor *models.User) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	if !actor.IsStaff {
		return fmt.Errorf("%w: user %s is not staff", models.ErrForbidden, actor.Username)
	}
	return nil
}

// discard schedules a replaced asset for deletion. The owning record is
// already committed, so a failure is logged rather than returned.
func (s *Service) discard(ctx context.Context, path string) {
	if s.assets == nil || models.IsDefaultAsset(path) {
		return
	}
	if err := s.assets.Enqueue(ctx, path); err != nil {
		slog.Warn("asset cleanup not scheduled", "path", path, "error", err)
	}
}
