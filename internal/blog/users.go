package blog

import (
	"context"
	"fmt"

	"github.com/pavuchara/nextgen/internal/models"
)

// RegisterUser creates an account with its profile. The profile slug is
// derived from the username and never changes afterwards.
func (s *Service) RegisterUser(ctx context.Context, in RegisterInput) (*models.User, error) {
	if err := check(in); err != nil {
		return nil, err
	}

	var created *models.User
	_, err := s.profileSlugs.Allocate(ctx, in.Username, func(ctx context.Context, candidate string) error {
		u, err := s.users.Create(ctx, &models.User{
			Username:  in.Username,
			Email:     in.Email,
			FirstName: in.FirstName,
			LastName:  in.LastName,
		}, in.Password, candidate)
		if err != nil {
			return claimed(err)
		}
		created = u
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("register user: %w", err)
	}
	return created, nil
}

// GetProfile returns the profile with the given slug.
func (s *Service) GetProfile(ctx context.Context, profileSlug string) (*models.Profile, error) {
	return s.users.FindProfileBySlug(ctx, profileSlug)
}

// UpdateProfile changes the actor's own account and profile in one
// transaction. A replaced avatar is scheduled for removal after the
// update has been committed.
func (s *Service) UpdateProfile(ctx context.Context, actor *models.User, in ProfileInput) (*models.Profile, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if err := check(in); err != nil {
		return nil, err
	}

	current, err := s.users.FindProfile(ctx, actor.ID)
	if err != nil {
		return nil, err
	}

	u := *current.User
	u.Email, u.FirstName, u.LastName = in.Email, in.FirstName, in.LastName
	p := *current
	p.Bio = in.Bio
	if in.Avatar != "" {
		p.Avatar = in.Avatar
	}

	previous, err := s.users.UpdateProfile(ctx, &u, &p)
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	if previous != p.Avatar {
		s.discard(ctx, previous)
	}
	return s.users.FindProfile(ctx, actor.ID)
}
