package models

import (
	"time"

	"github.com/google/uuid"
)

// Rating values a user can cast on a post.
const (
	RatingLike    = 1
	RatingDislike = -1
)

// PostRating is a single user's vote on a post.
type PostRating struct {
	ID        uuid.UUID `json:"id"`
	PostID    uuid.UUID `json:"post_id"`
	UserID    uuid.UUID `json:"user_id"`
	Value     int       `json:"value"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// VoteOutcome describes what a vote did to the stored rating.
type VoteOutcome string

const (
	VoteCreated VoteOutcome = "created"
	VoteUpdated VoteOutcome = "updated"
	VoteDeleted VoteOutcome = "deleted"
)

// VoteResult is returned by a vote: the transition that happened and the
// post's rating sum right after it.
type VoteResult struct {
	Outcome VoteOutcome `json:"status"`
	Sum     int         `json:"rating_sum"`
}
