// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"quillpress/internal/ai"
	"quillpress/internal/blog"
	"quillpress/internal/cache"
	"quillpress/internal/markdown"
	"quillpress/internal/models"
	"quillpress/internal/store"
)

// Public serves the anonymous reader endpoints. Listings and post detail
// responses are cached in Valkey; mutations go straight to Postgres.
type Public struct {
	blog   *blog.Service
	store  *store.Store
	cache  *cache.ResponseCache
	ai     *ai.Registry
	logger *slog.Logger
}

// NewPublic creates the public handler group.
func NewPublic(svc *blog.Service, st *store.Store, rc *cache.ResponseCache, registry *ai.Registry, logger *slog.Logger) *Public {
	return &Public{blog: svc, store: st, cache: rc, ai: registry, logger: logger}
}

// ListPosts returns published posts, newest first. Supports category, tag,
// and q query filters; all given filters must match. The unfiltered
// listing is served from the response cache when possible.
func (h *Public) ListPosts(w http.ResponseWriter, r *http.Request) {
	f := blog.Filters{
		Status:   string(models.PostStatusPublished),
		Category: r.URL.Query().Get("category"),
		Tag:      r.URL.Query().Get("tag"),
		Search:   r.URL.Query().Get("q"),
	}

	cacheable := f.Category == "" && f.Tag == "" && f.Search == ""
	if cacheable && h.cache != nil {
		if payload, ok := h.cache.Get(r.Context(), cache.ListKey()); ok {
			w.Header().Set("Content-Type", "application/json")
			w.Write(payload)
			return
		}
	}

	posts, err := h.blog.ListPosts(f)
	if err != nil {
		h.logger.Error("list posts", "error", err)
		writeError(w, http.StatusInternalServerError, "could not load posts")
		return
	}

	payload, err := json.Marshal(map[string]any{"posts": posts})
	if err != nil {
		h.logger.Error("marshal posts", "error", err)
		writeError(w, http.StatusInternalServerError, "could not load posts")
		return
	}
	if cacheable && h.cache != nil {
		h.cache.Set(r.Context(), cache.ListKey(), payload)
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(payload)
}

// GetPost returns one published post by slug with rendered HTML content
// and its approved comment tree. Every hit counts as a view.
func (h *Public) GetPost(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	post, err := h.store.PostBySlug(slug)
	if err != nil {
		h.logger.Error("find post", "slug", slug, "error", err)
		writeError(w, http.StatusInternalServerError, "could not load post")
		return
	}
	if post == nil || !post.IsPublished() {
		writeError(w, http.StatusNotFound, "post not found")
		return
	}

	if _, err := h.store.Post.IncrementViews(post.ID); err != nil {
		h.logger.Warn("increment views", "slug", slug, "error", err)
	}

	if h.cache != nil {
		if payload, ok := h.cache.Get(r.Context(), cache.PostKey(slug)); ok {
			w.Header().Set("Content-Type", "application/json")
			w.Write(payload)
			return
		}
	}

	det, err := h.blog.AssemblePost(post)
	if err != nil {
		h.logger.Error("assemble post", "slug", slug, "error", err)
		writeError(w, http.StatusInternalServerError, "could not load post")
		return
	}
	html, err := markdown.ToHTML(post.Content)
	if err != nil {
		h.logger.Error("render content", "slug", slug, "error", err)
		writeError(w, http.StatusInternalServerError, "could not load post")
		return
	}
	det.ContentHTML = html

	comments, err := h.blog.CommentTree(post.ID)
	if err != nil {
		h.logger.Error("build comment tree", "slug", slug, "error", err)
		writeError(w, http.StatusInternalServerError, "could not load post")
		return
	}

	payload, err := json.Marshal(map[string]any{"post": det, "comments": comments})
	if err != nil {
		h.logger.Error("marshal post", "slug", slug, "error", err)
		writeError(w, http.StatusInternalServerError, "could not load post")
		return
	}
	if h.cache != nil {
		h.cache.Set(r.Context(), cache.PostKey(slug), payload)
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(payload)
}

// LikePost increments the like counter on a published post.
func (h *Public) LikePost(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	post, err := h.store.PostBySlug(slug)
	if err != nil {
		h.logger.Error("find post", "slug", slug, "error", err)
		writeError(w, http.StatusInternalServerError, "could not record like")
		return
	}
	if post == nil || !post.IsPublished() {
		writeError(w, http.StatusNotFound, "post not found")
		return
	}

	likes, err := h.store.Post.IncrementLikes(post.ID)
	if err != nil {
		h.logger.Error("increment likes", "slug", slug, "error", err)
		writeError(w, http.StatusInternalServerError, "could not record like")
		return
	}
	if h.cache != nil {
		h.cache.InvalidatePost(r.Context(), slug)
	}

	writeJSON(w, http.StatusOK, map[string]int{"likes": likes})
}

// RecordView counts a view for clients that render posts from an
// upstream cache and never hit GetPost. The cached detail payload is
// left alone; view counters are allowed to lag it.
func (h *Public) RecordView(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	post, err := h.store.PostBySlug(slug)
	if err != nil {
		h.logger.Error("find post", "slug", slug, "error", err)
		writeError(w, http.StatusInternalServerError, "could not record view")
		return
	}
	if post == nil || !post.IsPublished() {
		writeError(w, http.StatusNotFound, "post not found")
		return
	}

	views, err := h.store.Post.IncrementViews(post.ID)
	if err != nil {
		h.logger.Error("increment views", "slug", slug, "error", err)
		writeError(w, http.StatusInternalServerError, "could not record view")
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"views": views})
}

// ListComments returns the approved comment tree of a published post.
func (h *Public) ListComments(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	post, err := h.store.PostBySlug(slug)
	if err != nil {
		h.logger.Error("find post", "slug", slug, "error", err)
		writeError(w, http.StatusInternalServerError, "could not load comments")
		return
	}
	if post == nil || !post.IsPublished() {
		writeError(w, http.StatusNotFound, "post not found")
		return
	}

	comments, err := h.blog.CommentTree(post.ID)
	if err != nil {
		h.logger.Error("build comment tree", "slug", slug, "error", err)
		writeError(w, http.StatusInternalServerError, "could not load comments")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"comments": comments})
}

type commentRequest struct {
	AuthorName  string  `json:"author_name"`
	AuthorEmail string  `json:"author_email"`
	Content     string  `json:"content"`
	ParentID    *string `json:"parent_id"`
}

// CreateComment accepts a reader comment on a published post. Safe
// comments (per the moderation check) go live immediately; everything
// else waits in the review queue.
func (h *Public) CreateComment(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	post, err := h.store.PostBySlug(slug)
	if err != nil {
		h.logger.Error("find post", "slug", slug, "error", err)
		writeError(w, http.StatusInternalServerError, "could not save comment")
		return
	}
	if post == nil || !post.IsPublished() {
		writeError(w, http.StatusNotFound, "post not found")
		return
	}

	var req commentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if msg := validateComment(req.AuthorName, req.AuthorEmail, req.Content); msg != "" {
		writeError(w, http.StatusUnprocessableEntity, msg)
		return
	}

	var parentID *uuid.UUID
	if req.ParentID != nil && *req.ParentID != "" {
		id, err := uuid.Parse(*req.ParentID)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "Parent comment ID is not valid.")
			return
		}
		parent, err := h.store.Comment.FindByID(id)
		if err != nil {
			h.logger.Error("find parent comment", "id", id, "error", err)
			writeError(w, http.StatusInternalServerError, "could not save comment")
			return
		}
		if parent == nil || parent.PostID != post.ID {
			writeError(w, http.StatusUnprocessableEntity, "Parent comment does not belong to this post.")
			return
		}
		parentID = &id
	}

	approved := false
	if h.ai != nil {
		res, err := h.ai.CheckContent(r.Context(), req.Content)
		switch {
		case err != nil:
			// Screening failure is not the reader's problem; queue for review.
			h.logger.Warn("comment moderation", "slug", slug, "error", err)
		case res != nil && res.Safe:
			approved = true
		case res != nil:
			h.logger.Info("comment flagged", "slug", slug, "categories", res.Categories)
		}
	}

	comment := &models.Comment{
		PostID:      post.ID,
		ParentID:    parentID,
		AuthorName:  strings.TrimSpace(req.AuthorName),
		AuthorEmail: strings.TrimSpace(req.AuthorEmail),
		Content:     strings.TrimSpace(req.Content),
		IsApproved:  approved,
	}
	created, err := h.store.Comment.Create(comment)
	if err != nil {
		h.logger.Error("create comment", "slug", slug, "error", err)
		writeError(w, http.StatusInternalServerError, "could not save comment")
		return
	}
	if approved && h.cache != nil {
		h.cache.InvalidatePost(r.Context(), slug)
	}

	writeJSON(w, http.StatusCreated, map[string]any{"comment": created})
}

// LikeComment increments the like counter on an approved comment.
func (h *Public) LikeComment(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "comment not found")
		return
	}

	comment, err := h.store.Comment.FindByID(id)
	if err != nil {
		h.logger.Error("find comment", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "could not record like")
		return
	}
	if comment == nil || !comment.IsApproved {
		writeError(w, http.StatusNotFound, "comment not found")
		return
	}

	likes, err := h.store.Comment.IncrementLikes(id)
	if err != nil {
		h.logger.Error("increment comment likes", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "could not record like")
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"likes": likes})
}

// ListCategories returns all categories with their published post counts.
func (h *Public) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.store.Category.List()
	if err != nil {
		h.logger.Error("list categories", "error", err)
		writeError(w, http.StatusInternalServerError, "could not load categories")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"categories": categories})
}

// ListTags returns the distinct tag labels used by published posts,
// sorted alphabetically.
func (h *Public) ListTags(w http.ResponseWriter, r *http.Request) {
	posts, err := h.store.Posts()
	if err != nil {
		h.logger.Error("list posts for tags", "error", err)
		writeError(w, http.StatusInternalServerError, "could not load tags")
		return
	}

	seen := make(map[string]struct{})
	var tags []string
	for i := range posts {
		if !posts[i].IsPublished() {
			continue
		}
		for _, tag := range posts[i].Tags {
			if _, ok := seen[tag]; ok {
				continue
			}
			seen[tag] = struct{}{}
			tags = append(tags, tag)
		}
	}
	sort.Strings(tags)
	if tags == nil {
		tags = []string{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"tags": tags})
}

// Health reports service liveness.
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
