package models

import (
	"time"

	"github.com/google/uuid"
)

// CommentStatus represents the visibility of a comment.
type CommentStatus string

const (
	CommentStatusPublished CommentStatus = "published"
	CommentStatusDraft     CommentStatus = "draft"
)

// Comment is a reply to a post or to another comment on the same post.
// Siblings are ordered newest first.
type Comment struct {
	ID        uuid.UUID     `json:"id"`
	Seq       int64         `json:"-"`
	PostID    uuid.UUID     `json:"post_id"`
	AuthorID  uuid.UUID     `json:"author_id"`
	ParentID  *uuid.UUID    `json:"parent_id"`
	Status    CommentStatus `json:"status"`
	Body      string        `json:"body"`
	Left      int           `json:"-"`
	Right     int           `json:"-"`
	Depth     int           `json:"depth"`
	CreatedAt time.Time     `json:"created_at"`
}

// IsReply returns true if the comment answers another comment.
func (c *Comment) IsReply() bool {
	return c.ParentID != nil
}
