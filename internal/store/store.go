// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"database/sql"

	"github.com/google/uuid"

	"quillpress/internal/models"
)

// Store bundles the per-entity stores and exposes the flat record access
// the blog core consumes. Handlers reach the entity stores directly for
// operations outside the core (increments, moderation, taxonomy admin).
type Store struct {
	Post     *PostStore
	Comment  *CommentStore
	Category *CategoryStore
	Tag      *TagStore
	User     *UserStore
}

// New wires all entity stores onto one database pool.
func New(db *sql.DB) *Store {
	return &Store{
		Post:     NewPostStore(db),
		Comment:  NewCommentStore(db),
		Category: NewCategoryStore(db),
		Tag:      NewTagStore(db),
		User:     NewUserStore(db),
	}
}

// The methods below satisfy blog.Store.

func (s *Store) Posts() ([]models.Post, error) { return s.Post.List() }

func (s *Store) PostByID(id uuid.UUID) (*models.Post, error) { return s.Post.FindByID(id) }

func (s *Store) PostBySlug(slug string) (*models.Post, error) { return s.Post.FindBySlug(slug) }

func (s *Store) CreatePost(p *models.Post) (*models.Post, error) { return s.Post.Create(p) }

func (s *Store) UpdatePost(p *models.Post) (*models.Post, error) { return s.Post.Update(p) }

func (s *Store) DeletePost(id uuid.UUID) error { return s.Post.Delete(id) }

func (s *Store) UserByID(id uuid.UUID) (*models.User, error) { return s.User.FindByID(id) }

func (s *Store) CategoryByID(id uuid.UUID) (*models.Category, error) {
	return s.Category.FindByID(id)
}

func (s *Store) CategoryBySlug(slug string) (*models.Category, error) {
	return s.Category.FindBySlug(slug)
}

func (s *Store) CommentsByPost(postID uuid.UUID, approvedOnly bool) ([]models.Comment, error) {
	return s.Comment.ListByPost(postID, approvedOnly)
}

func (s *Store) CountApprovedComments(postID uuid.UUID) (int, error) {
	return s.Comment.CountApproved(postID)
}
