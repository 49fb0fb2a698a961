// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"quillpress/internal/models"
)

// CommentStore handles all comment-related database operations. Comment
// bodies are immutable; only approval and the like counter change after
// insert.
type CommentStore struct {
	db *sql.DB
}

// NewCommentStore creates a new CommentStore with the given database connection.
func NewCommentStore(db *sql.DB) *CommentStore {
	return &CommentStore{db: db}
}

const commentColumns = `id, post_id, parent_id, author_name, author_email,
       author_avatar, content, is_approved, likes, created_at`

// scanComment scans a row into a Comment struct.
func scanComment(scanner interface{ Scan(...any) error }) (*models.Comment, error) {
	var c models.Comment
	err := scanner.Scan(
		&c.ID, &c.PostID, &c.ParentID, &c.AuthorName, &c.AuthorEmail,
		&c.AuthorAvatar, &c.Content, &c.IsApproved, &c.Likes, &c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListByPost returns the comments attached to one post, oldest first.
// With approvedOnly set, unapproved comments never leave the store.
func (s *CommentStore) ListByPost(postID uuid.UUID, approvedOnly bool) ([]models.Comment, error) {
	query := `SELECT ` + commentColumns + ` FROM comments WHERE post_id = $1`
	if approvedOnly {
		query += ` AND is_approved = TRUE`
	}
	query += ` ORDER BY created_at ASC`

	rows, err := s.db.Query(query, postID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	var comments []models.Comment
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		comments = append(comments, *c)
	}
	return comments, rows.Err()
}

// ListPending returns the moderation queue: unapproved comments across all
// posts, oldest first.
func (s *CommentStore) ListPending() ([]models.Comment, error) {
	rows, err := s.db.Query(`
		SELECT ` + commentColumns + ` FROM comments
		WHERE is_approved = FALSE
		ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list pending comments: %w", err)
	}
	defer rows.Close()

	var comments []models.Comment
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		comments = append(comments, *c)
	}
	return comments, rows.Err()
}

// CountApproved returns the number of approved comments on a post. The
// count is always computed from current state, never cached.
func (s *CommentStore) CountApproved(postID uuid.UUID) (int, error) {
	var count int
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM comments WHERE post_id = $1 AND is_approved = TRUE
	`, postID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count comments: %w", err)
	}
	return count, nil
}

// FindByID retrieves a comment by ID. Returns nil if not found.
func (s *CommentStore) FindByID(id uuid.UUID) (*models.Comment, error) {
	row := s.db.QueryRow(`SELECT `+commentColumns+` FROM comments WHERE id = $1`, id)
	c, err := scanComment(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find comment by id: %w", err)
	}
	return c, nil
}

// Create inserts a new comment and returns it with the generated ID.
func (s *CommentStore) Create(c *models.Comment) (*models.Comment, error) {
	row := s.db.QueryRow(`
		INSERT INTO comments (post_id, parent_id, author_name, author_email,
		                      author_avatar, content, is_approved)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+commentColumns,
		c.PostID, c.ParentID, c.AuthorName, c.AuthorEmail,
		c.AuthorAvatar, c.Content, c.IsApproved,
	)
	result, err := scanComment(row)
	if err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}
	return result, nil
}

// Approve marks a comment as visible to readers.
func (s *CommentStore) Approve(id uuid.UUID) error {
	_, err := s.db.Exec(`UPDATE comments SET is_approved = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("approve comment: %w", err)
	}
	return nil
}

// IncrementLikes bumps the like counter by one atomically and returns the
// new value.
func (s *CommentStore) IncrementLikes(id uuid.UUID) (int, error) {
	var likes int
	err := s.db.QueryRow(`
		UPDATE comments SET likes = likes + 1 WHERE id = $1 RETURNING likes
	`, id).Scan(&likes)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("increment comment likes: %w", err)
	}
	return likes, nil
}

// Delete removes a comment by ID. Replies that pointed at it become
// orphans and drop out of the tree at read time.
func (s *CommentStore) Delete(id uuid.UUID) error {
	_, err := s.db.Exec(`DELETE FROM comments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	return nil
}
