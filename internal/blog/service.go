// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package blog

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"quillpress/internal/models"
	"quillpress/internal/slug"
)

// Store is the record access the core consumes. It makes no assumption
// about the backing engine beyond the listed operations; lookups that find
// nothing return (nil, nil).
type Store interface {
	Posts() ([]models.Post, error)
	PostByID(id uuid.UUID) (*models.Post, error)
	PostBySlug(slug string) (*models.Post, error)
	CreatePost(p *models.Post) (*models.Post, error)
	UpdatePost(p *models.Post) (*models.Post, error)
	DeletePost(id uuid.UUID) error

	UserByID(id uuid.UUID) (*models.User, error)
	CategoryByID(id uuid.UUID) (*models.Category, error)
	CategoryBySlug(slug string) (*models.Category, error)

	CommentsByPost(postID uuid.UUID, approvedOnly bool) ([]models.Comment, error)
	CountApprovedComments(postID uuid.UUID) (int, error)
}

// Filters narrows a post listing. Every set field must match (logical AND);
// zero-valued fields impose no constraint. Category is matched against the
// category's public slug, Tag against the post's denormalized label set,
// and Search is a case-insensitive substring test over title, excerpt, and
// content (any of the three matching is enough).
type Filters struct {
	Status   string
	Category string
	Tag      string
	Search   string
}

// Service assembles denormalized post views and comment trees from the
// store. It holds no mutable state, so a single instance is safe for
// concurrent use.
type Service struct {
	store Store
}

// NewService creates a Service reading from the given store.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// CommentTree returns the ordered reply forest for a post. Only approved
// comments appear; orphans are dropped per BuildCommentTree.
func (s *Service) CommentTree(postID uuid.UUID) ([]models.CommentThread, error) {
	comments, err := s.store.CommentsByPost(postID, true)
	if err != nil {
		return nil, fmt.Errorf("load comments for tree: %w", err)
	}
	return BuildCommentTree(comments), nil
}

// AssemblePost resolves a post's author and category and computes a fresh
// approved-comment count. The count is never cached; adding an approved
// comment is visible on the very next call. A missing author or category
// is a *DataIntegrityError, never a partial view.
func (s *Service) AssemblePost(post *models.Post) (*models.PostWithDetails, error) {
	return s.assemble(post, nil, nil)
}

// assemble is AssemblePost with optional lookup caches so list queries
// resolve each author and category once.
func (s *Service) assemble(post *models.Post, users map[uuid.UUID]*models.User, cats map[uuid.UUID]*models.Category) (*models.PostWithDetails, error) {
	author, ok := users[post.AuthorID]
	if !ok {
		var err error
		author, err = s.store.UserByID(post.AuthorID)
		if err != nil {
			return nil, fmt.Errorf("resolve author: %w", err)
		}
		if users != nil {
			users[post.AuthorID] = author
		}
	}
	if author == nil {
		return nil, &DataIntegrityError{PostID: post.ID, Ref: "author", RefID: post.AuthorID}
	}

	category, ok := cats[post.CategoryID]
	if !ok {
		var err error
		category, err = s.store.CategoryByID(post.CategoryID)
		if err != nil {
			return nil, fmt.Errorf("resolve category: %w", err)
		}
		if cats != nil {
			cats[post.CategoryID] = category
		}
	}
	if category == nil {
		return nil, &DataIntegrityError{PostID: post.ID, Ref: "category", RefID: post.CategoryID}
	}

	count, err := s.store.CountApprovedComments(post.ID)
	if err != nil {
		return nil, fmt.Errorf("count comments: %w", err)
	}

	return &models.PostWithDetails{
		Post:          *post,
		Author:        author.PublicAuthor(),
		Category:      *category,
		CommentsCount: count,
	}, nil
}

// ListPosts returns the filtered post collection as assembled detail views,
// ordered by effective date (published_at, falling back to created_at)
// descending. An empty result is valid and returns an empty slice.
//
// The service applies exactly the filters it is given; defaulting public
// listings to published status is the API layer's job.
func (s *Service) ListPosts(f Filters) ([]models.PostWithDetails, error) {
	posts, err := s.store.Posts()
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}

	// The category filter speaks the public slug namespace, so resolve the
	// slug once up front. An unknown slug matches nothing.
	var categoryID *uuid.UUID
	if f.Category != "" {
		cat, err := s.store.CategoryBySlug(f.Category)
		if err != nil {
			return nil, fmt.Errorf("resolve category filter: %w", err)
		}
		if cat == nil {
			return []models.PostWithDetails{}, nil
		}
		categoryID = &cat.ID
	}

	search := strings.ToLower(f.Search)

	matched := make([]models.Post, 0, len(posts))
	for _, p := range posts {
		if f.Status != "" && string(p.Status) != f.Status {
			continue
		}
		if categoryID != nil && p.CategoryID != *categoryID {
			continue
		}
		if f.Tag != "" && !p.Tags.Contains(f.Tag) {
			continue
		}
		if search != "" && !matchesSearch(&p, search) {
			continue
		}
		matched = append(matched, p)
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].EffectiveDate().After(matched[j].EffectiveDate())
	})

	users := make(map[uuid.UUID]*models.User)
	cats := make(map[uuid.UUID]*models.Category)
	out := make([]models.PostWithDetails, 0, len(matched))
	for i := range matched {
		view, err := s.assemble(&matched[i], users, cats)
		if err != nil {
			return nil, err
		}
		out = append(out, *view)
	}
	return out, nil
}

// matchesSearch tests the lowercased term against title, excerpt, and
// content; any single hit is a match.
func matchesSearch(p *models.Post, term string) bool {
	return strings.Contains(strings.ToLower(p.Title), term) ||
		strings.Contains(strings.ToLower(p.Excerpt), term) ||
		strings.Contains(strings.ToLower(p.Content), term)
}

// CreatePost stores a new post. A blank slug is derived from the title and
// made unique with a numeric suffix; an explicit slug that collides with an
// existing post is rejected with ErrSlugTaken before anything is persisted.
func (s *Service) CreatePost(p *models.Post) (*models.Post, error) {
	if p.Slug == "" {
		unique, err := s.uniqueSlug(slug.Generate(p.Title))
		if err != nil {
			return nil, err
		}
		p.Slug = unique
	} else {
		existing, err := s.store.PostBySlug(p.Slug)
		if err != nil {
			return nil, fmt.Errorf("check slug: %w", err)
		}
		if existing != nil {
			return nil, ErrSlugTaken
		}
	}

	if p.Status == models.PostStatusPublished && p.PublishedAt == nil {
		now := time.Now()
		p.PublishedAt = &now
	}

	return s.store.CreatePost(p)
}

// UpdatePost persists changes to an existing post. Changing the slug to one
// held by a different post fails with ErrSlugTaken. Transitioning to
// published sets published_at if it was never set.
func (s *Service) UpdatePost(p *models.Post) (*models.Post, error) {
	existing, err := s.store.PostBySlug(p.Slug)
	if err != nil {
		return nil, fmt.Errorf("check slug: %w", err)
	}
	if existing != nil && existing.ID != p.ID {
		return nil, ErrSlugTaken
	}

	if p.Status == models.PostStatusPublished && p.PublishedAt == nil {
		now := time.Now()
		p.PublishedAt = &now
	}

	return s.store.UpdatePost(p)
}

// DeletePost removes a post. Comments referencing it are left in place:
// there is deliberately no cascade, so they become invisible orphans. This
// is an accepted, documented gap.
func (s *Service) DeletePost(id uuid.UUID) error {
	return s.store.DeletePost(id)
}

// uniqueSlug appends -2, -3, ... to base until the slug is free.
func (s *Service) uniqueSlug(base string) (string, error) {
	candidate := base
	for i := 2; ; i++ {
		existing, err := s.store.PostBySlug(candidate)
		if err != nil {
			return "", fmt.Errorf("check slug: %w", err)
		}
		if existing == nil {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
}
