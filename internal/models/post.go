package models

import (
	"time"

	"github.com/google/uuid"
)

// PostStatus represents the publishing state of a post.
type PostStatus string

const (
	PostStatusDraft     PostStatus = "draft"
	PostStatusPublished PostStatus = "published"
)

// DefaultThumbnail is the thumbnail assigned to posts without an image.
const DefaultThumbnail = "default_post.jpg"

// Post is a blog entry. Its slug is assigned once at creation and never
// changes afterwards.
type Post struct {
	ID          uuid.UUID  `json:"id"`
	Title       string     `json:"title"`
	Slug        string     `json:"slug"`
	Description string     `json:"description"`
	Body        string     `json:"body"`
	CategoryID  uuid.UUID  `json:"category_id"`
	Thumbnail   string     `json:"thumbnail"`
	Status      PostStatus `json:"status"`
	AuthorID    uuid.UUID  `json:"author_id"`
	UpdaterID   uuid.UUID  `json:"updater_id"`
	Pinned      bool       `json:"pinned"`
	Tags        []string   `json:"tags"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	// Virtual field populated by store methods.
	RatingSum int `json:"rating_sum"`
}

// IsPublished returns true if the post is in published status.
func (p *Post) IsPublished() bool {
	return p.Status == PostStatusPublished
}
