// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"quillpress/internal/models"
)

// PostStore handles all post-related database operations.
type PostStore struct {
	db *sql.DB
}

// NewPostStore creates a new PostStore with the given database connection.
func NewPostStore(db *sql.DB) *PostStore {
	return &PostStore{db: db}
}

const postColumns = `id, title, slug, excerpt, content, featured_image, category_id,
       tags, status, author_id, published_at, views, likes, created_at, updated_at`

// scanPost scans a row into a Post struct.
func scanPost(scanner interface{ Scan(...any) error }) (*models.Post, error) {
	var p models.Post
	err := scanner.Scan(
		&p.ID, &p.Title, &p.Slug, &p.Excerpt, &p.Content, &p.FeaturedImage,
		&p.CategoryID, &p.Tags, &p.Status, &p.AuthorID, &p.PublishedAt,
		&p.Views, &p.Likes, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// List returns every post, ordered by creation date descending. Filtering
// and effective-date ordering for listings happen in the blog core, which
// works over the materialized records.
func (s *PostStore) List() ([]models.Post, error) {
	rows, err := s.db.Query(`SELECT ` + postColumns + ` FROM posts ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()

	var posts []models.Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		posts = append(posts, *p)
	}
	return posts, rows.Err()
}

// FindByID retrieves a post by its UUID. Returns nil if not found.
func (s *PostStore) FindByID(id uuid.UUID) (*models.Post, error) {
	row := s.db.QueryRow(`SELECT `+postColumns+` FROM posts WHERE id = $1`, id)
	p, err := scanPost(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find post by id: %w", err)
	}
	return p, nil
}

// FindBySlug retrieves a post by its slug regardless of status. Returns nil
// if not found. Callers decide whether drafts are visible.
func (s *PostStore) FindBySlug(slug string) (*models.Post, error) {
	row := s.db.QueryRow(`SELECT `+postColumns+` FROM posts WHERE slug = $1`, slug)
	p, err := scanPost(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find post by slug: %w", err)
	}
	return p, nil
}

// Create inserts a new post and returns it with the generated ID and
// timestamps. Counters start at zero.
func (s *PostStore) Create(p *models.Post) (*models.Post, error) {
	if p.Status == models.PostStatusPublished && p.PublishedAt == nil {
		now := time.Now()
		p.PublishedAt = &now
	}

	row := s.db.QueryRow(`
		INSERT INTO posts (title, slug, excerpt, content, featured_image,
		                   category_id, tags, status, author_id, published_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING `+postColumns,
		p.Title, p.Slug, p.Excerpt, p.Content, p.FeaturedImage,
		p.CategoryID, p.Tags, p.Status, p.AuthorID, p.PublishedAt,
	)
	result, err := scanPost(row)
	if err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	return result, nil
}

// Update modifies an existing post. updated_at is always refreshed;
// views and likes are untouched (they only move through the increment
// methods).
func (s *PostStore) Update(p *models.Post) (*models.Post, error) {
	if p.Status == models.PostStatusPublished && p.PublishedAt == nil {
		now := time.Now()
		p.PublishedAt = &now
	}

	row := s.db.QueryRow(`
		UPDATE posts SET
			title = $1, slug = $2, excerpt = $3, content = $4,
			featured_image = $5, category_id = $6, tags = $7, status = $8,
			published_at = $9, updated_at = NOW()
		WHERE id = $10
		RETURNING `+postColumns,
		p.Title, p.Slug, p.Excerpt, p.Content, p.FeaturedImage,
		p.CategoryID, p.Tags, p.Status, p.PublishedAt, p.ID,
	)
	result, err := scanPost(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("update post: %w", err)
	}
	return result, nil
}

// Delete removes a post by ID. Comments are intentionally not cascaded;
// see the comments migration.
func (s *PostStore) Delete(id uuid.UUID) error {
	_, err := s.db.Exec(`DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	return nil
}

// IncrementViews bumps the view counter by one in a single statement so
// concurrent requests never lose updates, and returns the new value.
func (s *PostStore) IncrementViews(id uuid.UUID) (int, error) {
	var views int
	err := s.db.QueryRow(`
		UPDATE posts SET views = views + 1 WHERE id = $1 RETURNING views
	`, id).Scan(&views)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("increment views: %w", err)
	}
	return views, nil
}

// IncrementLikes bumps the like counter by one atomically and returns the
// new value.
func (s *PostStore) IncrementLikes(id uuid.UUID) (int, error) {
	var likes int
	err := s.db.QueryRow(`
		UPDATE posts SET likes = likes + 1 WHERE id = $1 RETURNING likes
	`, id).Scan(&likes)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("increment likes: %w", err)
	}
	return likes, nil
}
