// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"time"

	"github.com/google/uuid"
)

// Comment is a reader-submitted comment on a post. Comments are immutable
// once posted; only the approval flag and like counter ever change.
// ParentID, when set, must reference another comment on the same post.
type Comment struct {
	ID           uuid.UUID  `json:"id"`
	PostID       uuid.UUID  `json:"post_id"`
	ParentID     *uuid.UUID `json:"parent_id,omitempty"`
	AuthorName   string     `json:"author_name"`
	AuthorEmail  string     `json:"author_email"`
	AuthorAvatar *string    `json:"author_avatar,omitempty"`
	Content      string     `json:"content"`
	IsApproved   bool       `json:"is_approved"`
	Likes        int        `json:"likes"`
	CreatedAt    time.Time  `json:"created_at"`
}

// IsRoot returns true for top-level comments (no parent).
func (c *Comment) IsRoot() bool {
	return c.ParentID == nil
}

// CommentThread is a comment together with its nested replies, ordered
// oldest-first at every level. Depth is unbounded; capping display depth
// is a client concern.
type CommentThread struct {
	Comment
	Replies []CommentThread `json:"replies"`
}
