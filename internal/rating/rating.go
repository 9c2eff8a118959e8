// Package rating holds the vote transition rules for post ratings.
//
// A user has at most one rating per post. Voting when no rating exists
// creates one; repeating the stored value removes it; voting the other value
// overwrites it. Stores execute the transition chosen by Decide inside the
// transaction that locks the post.
package rating

import (
	"fmt"

	"github.com/pavuchara/nextgen/internal/models"
)

// Validate returns models.ErrInvalidValue unless value is a like or a dislike.
func Validate(value int) error {
	if value != models.RatingLike && value != models.RatingDislike {
		return fmt.Errorf("%w: rating must be %d or %d, got %d",
			models.ErrInvalidValue, models.RatingLike, models.RatingDislike, value)
	}
	return nil
}

// Decide returns the transition a vote of value causes given the user's
// current rating, nil when the user has not voted on the post yet.
func Decide(current *int, value int) models.VoteOutcome {
	switch {
	case current == nil:
		return models.VoteCreated
	case *current == value:
		return models.VoteDeleted
	default:
		return models.VoteUpdated
	}
}
