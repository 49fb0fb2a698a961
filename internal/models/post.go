// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package models defines the data structures that map to database tables
// and the denormalized read views assembled from them.
package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PostStatus represents the publishing state of a post.
type PostStatus string

const (
	PostStatusDraft     PostStatus = "draft"
	PostStatusPublished PostStatus = "published"
)

// TagList is the denormalized set of tag labels stored on a post.
// Labels are plain strings and may or may not have a matching entry in the
// tag catalog; matching is always done by name, never by tag ID.
// Stored as a JSONB array in PostgreSQL.
type TagList []string

// Contains reports whether the given label is present in the list.
func (t TagList) Contains(label string) bool {
	for _, l := range t {
		if l == label {
			return true
		}
	}
	return false
}

// Value serializes the tag list to JSON for storage.
func (t TagList) Value() (driver.Value, error) {
	if t == nil {
		return "[]", nil
	}
	b, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("marshal tag list: %w", err)
	}
	return string(b), nil
}

// Scan deserializes a JSONB column into the tag list.
func (t *TagList) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*t = nil
		return nil
	case []byte:
		return json.Unmarshal(v, t)
	case string:
		return json.Unmarshal([]byte(v), t)
	default:
		return fmt.Errorf("scan tag list: unsupported type %T", src)
	}
}

// Post represents a blog post. Tags are denormalized labels; author and
// category are references resolved at read time.
type Post struct {
	ID            uuid.UUID  `json:"id"`
	Title         string     `json:"title"`
	Slug          string     `json:"slug"`
	Excerpt       string     `json:"excerpt"`
	Content       string     `json:"content"`
	FeaturedImage *string    `json:"featured_image,omitempty"`
	CategoryID    uuid.UUID  `json:"category_id"`
	Tags          TagList    `json:"tags"`
	Status        PostStatus `json:"status"`
	AuthorID      uuid.UUID  `json:"author_id"`
	PublishedAt   *time.Time `json:"published_at,omitempty"`
	Views         int        `json:"views"`
	Likes         int        `json:"likes"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// IsPublished returns true if the post is in published status.
func (p *Post) IsPublished() bool {
	return p.Status == PostStatusPublished
}

// EffectiveDate returns the date used to order post listings:
// published_at when set, created_at otherwise. Every comparison of a post
// uses this single key so a post never sorts by different fields in
// different comparisons.
func (p *Post) EffectiveDate() time.Time {
	if p.PublishedAt != nil {
		return *p.PublishedAt
	}
	return p.CreatedAt
}

// Author is the public projection of a User exposed on assembled posts.
// No authentication fields ever leave the server.
type Author struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Avatar    *string   `json:"avatar,omitempty"`
	Bio       *string   `json:"bio,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// PostWithDetails is the denormalized read view of a post: the post's own
// fields plus the resolved author, the full category record, the rendered
// HTML body, and a live-computed approved-comment count.
type PostWithDetails struct {
	Post
	Author        Author   `json:"author"`
	Category      Category `json:"category"`
	ContentHTML   string   `json:"content_html,omitempty"`
	CommentsCount int      `json:"comments_count"`
}
