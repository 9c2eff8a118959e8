package blog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/pavuchara/nextgen/internal/metrics"
	"github.com/pavuchara/nextgen/internal/models"
	"github.com/pavuchara/nextgen/internal/rating"
	"github.com/pavuchara/nextgen/internal/slug"
)

// ErrNothingToLike is returned by Autolike when no post is published.
var ErrNothingToLike = errors.New("no published post to like")

// Vote records actor's like (+1) or dislike (-1) on a post. Repeating the
// current vote withdraws it; the returned outcome tells which happened.
func (s *Service) Vote(ctx context.Context, actor *models.User, postID uuid.UUID, value int) (models.VoteResult, error) {
	if err := requireActor(actor); err != nil {
		return models.VoteResult{}, err
	}
	if err := rating.Validate(value); err != nil {
		return models.VoteResult{}, err
	}

	res, err := s.ratings.Vote(ctx, postID, actor.ID, value)
	if err != nil {
		return models.VoteResult{}, err
	}
	metrics.Votes.WithLabelValues(string(res.Outcome)).Inc()
	return res, nil
}

// UserVote returns actor's current vote on a post, or nil.
func (s *Service) UserVote(ctx context.Context, actor *models.User, postID uuid.UUID) (*int, error) {
	if actor == nil {
		return nil, nil
	}
	return s.ratings.ValueFor(ctx, postID, actor.ID)
}

// Autolike registers a throwaway user and has it like a random published
// post. The account and the like are committed together, so a failed vote
// leaves no user behind. When nothing is published it returns
// ErrNothingToLike without creating the user.
func (s *Service) Autolike(ctx context.Context) (uuid.UUID, models.VoteResult, error) {
	postID, err := s.posts.RandomPublishedID(ctx)
	if errors.Is(err, models.ErrNotFound) {
		return uuid.Nil, models.VoteResult{}, ErrNothingToLike
	}
	if err != nil {
		return uuid.Nil, models.VoteResult{}, fmt.Errorf("autolike: %w", err)
	}

	in := RegisterInput{
		Username: "autolike-" + slug.Suffix(),
		Password: uuid.NewString(),
	}
	if err := check(in); err != nil {
		return uuid.Nil, models.VoteResult{}, fmt.Errorf("autolike: %w", err)
	}

	var res models.VoteResult
	_, err = s.profileSlugs.Allocate(ctx, in.Username, func(ctx context.Context, candidate string) error {
		_, r, err := s.ratings.VoteAsNewUser(ctx, &models.User{Username: in.Username}, in.Password, candidate, postID, models.RatingLike)
		if err != nil {
			return claimed(err)
		}
		res = r
		return nil
	})
	if err != nil {
		return uuid.Nil, models.VoteResult{}, fmt.Errorf("autolike: %w", err)
	}
	metrics.Votes.WithLabelValues(string(res.Outcome)).Inc()
	return postID, res, nil
}
