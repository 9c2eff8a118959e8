package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/pavuchara/nextgen/internal/models"
	"github.com/pavuchara/nextgen/internal/rating"
)

// RatingStore records user votes on posts.
type RatingStore struct {
	db *sql.DB
}

// NewRatingStore returns a new RatingStore.
func NewRatingStore(db *sql.DB) *RatingStore {
	return &RatingStore{db: db}
}

// Vote applies a like (+1) or dislike (-1) by userID to postID and returns
// the resulting transition with the post's new rating sum. Repeating the
// stored value withdraws the vote.
func (s *RatingStore) Vote(ctx context.Context, postID, userID uuid.UUID, value int) (models.VoteResult, error) {
	if err := rating.Validate(value); err != nil {
		return models.VoteResult{}, err
	}

	var result models.VoteResult
	err := withTx(ctx, s.db, "vote", func(tx *sql.Tx) error {
		var err error
		result, err = vote(ctx, tx, postID, userID, value)
		return err
	})
	if err != nil {
		return models.VoteResult{}, fmt.Errorf("vote: %w", err)
	}
	return result, nil
}

// VoteAsNewUser creates u with its profile and records its vote on postID
// in one transaction. Either both are committed or neither is: a missing
// post leaves no account behind.
func (s *RatingStore) VoteAsNewUser(ctx context.Context, u *models.User, password, profileSlug string, postID uuid.UUID, value int) (*models.User, models.VoteResult, error) {
	if err := rating.Validate(value); err != nil {
		return nil, models.VoteResult{}, err
	}
	hash, err := hashPassword(password)
	if err != nil {
		return nil, models.VoteResult{}, err
	}

	var (
		created *models.User
		result  models.VoteResult
	)
	err = withTx(ctx, s.db, "vote as new user", func(tx *sql.Tx) error {
		var err error
		if created, err = insertUser(ctx, tx, u, hash, profileSlug); err != nil {
			return err
		}
		result, err = vote(ctx, tx, postID, created.ID, value)
		return err
	})
	if err != nil {
		return nil, models.VoteResult{}, fmt.Errorf("vote as new user: %w", err)
	}
	return created, result, nil
}

// vote applies a vote inside tx. The post row stays locked until tx ends,
// so concurrent votes on the same post are applied one after another.
func vote(ctx context.Context, tx *sql.Tx, postID, userID uuid.UUID, value int) (models.VoteResult, error) {
	var locked uuid.UUID
	err := tx.QueryRowContext(ctx, `SELECT id FROM posts WHERE id = $1 FOR UPDATE`, postID).Scan(&locked)
	if err != nil {
		return models.VoteResult{}, notFound(err, "post")
	}

	current, err := valueFor(ctx, tx, postID, userID)
	if err != nil {
		return models.VoteResult{}, err
	}

	var result models.VoteResult
	result.Outcome = rating.Decide(current, value)
	switch result.Outcome {
	case models.VoteCreated:
		_, err = tx.ExecContext(ctx, `
			INSERT INTO post_ratings (post_id, user_id, value) VALUES ($1, $2, $3)
		`, postID, userID, value)
	case models.VoteUpdated:
		_, err = tx.ExecContext(ctx, `
			UPDATE post_ratings SET value = $1, updated_at = NOW()
			WHERE post_id = $2 AND user_id = $3
		`, value, postID, userID)
	case models.VoteDeleted:
		_, err = tx.ExecContext(ctx, `
			DELETE FROM post_ratings WHERE post_id = $1 AND user_id = $2
		`, postID, userID)
	}
	if err != nil {
		return models.VoteResult{}, fmt.Errorf("%s rating: %w", result.Outcome, err)
	}

	result.Sum, err = sum(ctx, tx, postID)
	return result, err
}

// Sum returns the sum of all ratings on a post.
func (s *RatingStore) Sum(ctx context.Context, postID uuid.UUID) (int, error) {
	return sum(ctx, s.db, postID)
}

// ValueFor returns the user's current rating on a post, or nil when the
// user has not voted.
func (s *RatingStore) ValueFor(ctx context.Context, postID, userID uuid.UUID) (*int, error) {
	return valueFor(ctx, s.db, postID, userID)
}

func sum(ctx context.Context, q querier, postID uuid.UUID) (int, error) {
	var total int
	err := q.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(value), 0) FROM post_ratings WHERE post_id = $1`, postID,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum ratings: %w", err)
	}
	return total, nil
}

func valueFor(ctx context.Context, q querier, postID, userID uuid.UUID) (*int, error) {
	var value int
	err := q.QueryRowContext(ctx,
		`SELECT value FROM post_ratings WHERE post_id = $1 AND user_id = $2`, postID, userID,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find rating: %w", err)
	}
	return &value, nil
}
