// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"quillpress/internal/blog"
	"quillpress/internal/cache"
	"quillpress/internal/middleware"
	"quillpress/internal/models"
	"quillpress/internal/slug"
	"quillpress/internal/store"
)

// Admin serves the authenticated management endpoints: post CRUD, comment
// moderation, taxonomy, and accounts. Mutations invalidate the affected
// response cache entries.
type Admin struct {
	blog   *blog.Service
	store  *store.Store
	cache  *cache.ResponseCache
	logger *slog.Logger
}

// NewAdmin creates the admin handler group.
func NewAdmin(svc *blog.Service, st *store.Store, rc *cache.ResponseCache, logger *slog.Logger) *Admin {
	return &Admin{blog: svc, store: st, cache: rc, logger: logger}
}

// urlUUID parses the named chi URL parameter as a UUID.
func urlUUID(r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	return id, err == nil
}

// --- Posts ---

type postRequest struct {
	Title         string   `json:"title"`
	Slug          string   `json:"slug"`
	Excerpt       string   `json:"excerpt"`
	Content       string   `json:"content"`
	FeaturedImage *string  `json:"featured_image"`
	CategoryID    string   `json:"category_id"`
	Tags          []string `json:"tags"`
	Status        string   `json:"status"`
}

// apply copies the request fields onto p. Returns a client error message
// when validation fails.
func (req *postRequest) apply(p *models.Post) string {
	if msg := validatePost(req.Title, req.Slug, req.Content, req.Tags); msg != "" {
		return msg
	}
	if msg := validateExcerpt(req.Excerpt); msg != "" {
		return msg
	}
	catID, err := uuid.Parse(req.CategoryID)
	if err != nil {
		return "Category ID is not valid."
	}
	status := models.PostStatus(req.Status)
	if status != models.PostStatusDraft && status != models.PostStatusPublished {
		return "Status must be draft or published."
	}

	p.Title = strings.TrimSpace(req.Title)
	p.Slug = strings.TrimSpace(req.Slug)
	p.Excerpt = strings.TrimSpace(req.Excerpt)
	p.Content = req.Content
	p.FeaturedImage = req.FeaturedImage
	p.CategoryID = catID
	p.Tags = models.TagList(req.Tags)
	p.Status = status
	return ""
}

// ListPosts returns posts of every status, filtered by the optional
// status, category, tag, and q query parameters.
func (h *Admin) ListPosts(w http.ResponseWriter, r *http.Request) {
	f := blog.Filters{
		Status:   r.URL.Query().Get("status"),
		Category: r.URL.Query().Get("category"),
		Tag:      r.URL.Query().Get("tag"),
		Search:   r.URL.Query().Get("q"),
	}

	posts, err := h.blog.ListPosts(f)
	if err != nil {
		h.logger.Error("admin list posts", "error", err)
		writeError(w, http.StatusInternalServerError, "could not load posts")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"posts": posts})
}

// GetPost returns one post by ID regardless of status.
func (h *Admin) GetPost(w http.ResponseWriter, r *http.Request) {
	id, ok := urlUUID(r, "id")
	if !ok {
		writeError(w, http.StatusNotFound, "post not found")
		return
	}

	post, err := h.store.PostByID(id)
	if err != nil {
		h.logger.Error("find post", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "could not load post")
		return
	}
	if post == nil {
		writeError(w, http.StatusNotFound, "post not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"post": post})
}

// CreatePost creates a post authored by the signed-in user. An empty slug
// is derived from the title and uniquified; an explicit slug that is
// already taken fails with 409.
func (h *Admin) CreatePost(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())
	if sess == nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req postRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	post := &models.Post{AuthorID: sess.UserID}
	if msg := req.apply(post); msg != "" {
		writeError(w, http.StatusUnprocessableEntity, msg)
		return
	}

	created, err := h.blog.CreatePost(post)
	if err != nil {
		h.writePostError(w, "create post", err)
		return
	}
	if h.cache != nil {
		h.cache.InvalidateAll(r.Context())
	}

	h.logger.Info("post created", "slug", created.Slug, "status", created.Status)
	writeJSON(w, http.StatusCreated, map[string]any{"post": created})
}

// UpdatePost persists changes to an existing post.
func (h *Admin) UpdatePost(w http.ResponseWriter, r *http.Request) {
	id, ok := urlUUID(r, "id")
	if !ok {
		writeError(w, http.StatusNotFound, "post not found")
		return
	}

	post, err := h.store.PostByID(id)
	if err != nil {
		h.logger.Error("find post", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "could not update post")
		return
	}
	if post == nil {
		writeError(w, http.StatusNotFound, "post not found")
		return
	}

	var req postRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	oldSlug := post.Slug
	if msg := req.apply(post); msg != "" {
		writeError(w, http.StatusUnprocessableEntity, msg)
		return
	}
	if post.Slug == "" {
		post.Slug = oldSlug
	}

	updated, err := h.blog.UpdatePost(post)
	if err != nil {
		h.writePostError(w, "update post", err)
		return
	}
	if h.cache != nil {
		h.cache.InvalidatePost(r.Context(), oldSlug)
		h.cache.InvalidatePost(r.Context(), updated.Slug)
	}

	writeJSON(w, http.StatusOK, map[string]any{"post": updated})
}

// DeletePost removes a post. Its comments stay behind as invisible
// orphans; there is no cascade.
func (h *Admin) DeletePost(w http.ResponseWriter, r *http.Request) {
	id, ok := urlUUID(r, "id")
	if !ok {
		writeError(w, http.StatusNotFound, "post not found")
		return
	}

	post, err := h.store.PostByID(id)
	if err != nil {
		h.logger.Error("find post", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "could not delete post")
		return
	}
	if post == nil {
		writeError(w, http.StatusNotFound, "post not found")
		return
	}

	if err := h.blog.DeletePost(id); err != nil {
		h.logger.Error("delete post", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "could not delete post")
		return
	}
	if h.cache != nil {
		h.cache.InvalidatePost(r.Context(), post.Slug)
	}

	h.logger.Info("post deleted", "slug", post.Slug)
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// writePostError maps service errors from the post write path to HTTP
// responses.
func (h *Admin) writePostError(w http.ResponseWriter, op string, err error) {
	var integrity *blog.DataIntegrityError
	switch {
	case errors.Is(err, blog.ErrSlugTaken):
		writeError(w, http.StatusConflict, "slug already in use")
	case errors.As(err, &integrity):
		writeError(w, http.StatusUnprocessableEntity, "post references a missing "+integrity.Ref)
	default:
		h.logger.Error(op, "error", err)
		writeError(w, http.StatusInternalServerError, "could not save post")
	}
}

// --- Comments ---

// ListPendingComments returns comments waiting for moderation, oldest
// first.
func (h *Admin) ListPendingComments(w http.ResponseWriter, r *http.Request) {
	comments, err := h.store.Comment.ListPending()
	if err != nil {
		h.logger.Error("list pending comments", "error", err)
		writeError(w, http.StatusInternalServerError, "could not load comments")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"comments": comments})
}

// ApproveComment makes a pending comment publicly visible.
func (h *Admin) ApproveComment(w http.ResponseWriter, r *http.Request) {
	id, ok := urlUUID(r, "id")
	if !ok {
		writeError(w, http.StatusNotFound, "comment not found")
		return
	}

	comment, err := h.store.Comment.FindByID(id)
	if err != nil {
		h.logger.Error("find comment", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "could not approve comment")
		return
	}
	if comment == nil {
		writeError(w, http.StatusNotFound, "comment not found")
		return
	}

	if err := h.store.Comment.Approve(id); err != nil {
		h.logger.Error("approve comment", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "could not approve comment")
		return
	}
	h.invalidateCommentPost(r, comment.PostID)

	writeJSON(w, http.StatusOK, map[string]string{"status": "approved"})
}

// DeleteComment removes a comment. Replies to it become orphans and drop
// out of the rendered tree.
func (h *Admin) DeleteComment(w http.ResponseWriter, r *http.Request) {
	id, ok := urlUUID(r, "id")
	if !ok {
		writeError(w, http.StatusNotFound, "comment not found")
		return
	}

	comment, err := h.store.Comment.FindByID(id)
	if err != nil {
		h.logger.Error("find comment", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "could not delete comment")
		return
	}
	if comment == nil {
		writeError(w, http.StatusNotFound, "comment not found")
		return
	}

	if err := h.store.Comment.Delete(id); err != nil {
		h.logger.Error("delete comment", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "could not delete comment")
		return
	}
	h.invalidateCommentPost(r, comment.PostID)

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// invalidateCommentPost drops the cached detail page of the post a
// moderated comment belongs to.
func (h *Admin) invalidateCommentPost(r *http.Request, postID uuid.UUID) {
	if h.cache == nil {
		return
	}
	post, err := h.store.PostByID(postID)
	if err != nil || post == nil {
		return
	}
	h.cache.InvalidatePost(r.Context(), post.Slug)
}

// --- Categories ---

type categoryRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
	Color       string  `json:"color"`
}

// CreateCategory adds a category to the taxonomy.
func (h *Admin) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if msg := validateCategory(req.Name); msg != "" {
		writeError(w, http.StatusUnprocessableEntity, msg)
		return
	}

	name := strings.TrimSpace(req.Name)
	created, err := h.store.Category.Create(&models.Category{
		Name:        name,
		Slug:        slug.Generate(name),
		Description: req.Description,
		Color:       req.Color,
	})
	if err != nil {
		h.logger.Error("create category", "error", err)
		writeError(w, http.StatusInternalServerError, "could not save category")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"category": created})
}

// UpdateCategory renames or recolors a category. The slug is regenerated
// from the new name.
func (h *Admin) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := urlUUID(r, "id")
	if !ok {
		writeError(w, http.StatusNotFound, "category not found")
		return
	}

	cat, err := h.store.Category.FindByID(id)
	if err != nil {
		h.logger.Error("find category", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "could not update category")
		return
	}
	if cat == nil {
		writeError(w, http.StatusNotFound, "category not found")
		return
	}

	var req categoryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if msg := validateCategory(req.Name); msg != "" {
		writeError(w, http.StatusUnprocessableEntity, msg)
		return
	}

	cat.Name = strings.TrimSpace(req.Name)
	cat.Slug = slug.Generate(cat.Name)
	cat.Description = req.Description
	if req.Color != "" {
		cat.Color = req.Color
	}
	if err := h.store.Category.Update(cat); err != nil {
		h.logger.Error("update category", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "could not update category")
		return
	}
	if h.cache != nil {
		h.cache.InvalidateAll(r.Context())
	}

	writeJSON(w, http.StatusOK, map[string]any{"category": cat})
}

// DeleteCategory removes a category. Posts still referencing it become
// unrenderable and surface as data integrity failures, so callers should
// reassign posts first.
func (h *Admin) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := urlUUID(r, "id")
	if !ok {
		writeError(w, http.StatusNotFound, "category not found")
		return
	}

	if err := h.store.Category.Delete(id); err != nil {
		h.logger.Error("delete category", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "could not delete category")
		return
	}
	if h.cache != nil {
		h.cache.InvalidateAll(r.Context())
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// --- Tag catalog ---

// ListTags returns the advisory tag catalog.
func (h *Admin) ListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.store.Tag.List()
	if err != nil {
		h.logger.Error("list tag catalog", "error", err)
		writeError(w, http.StatusInternalServerError, "could not load tags")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"tags": tags})
}

type tagRequest struct {
	Name string `json:"name"`
}

// CreateTag adds a catalog entry. Post tags remain free-form labels; the
// catalog only feeds suggestions.
func (h *Admin) CreateTag(w http.ResponseWriter, r *http.Request) {
	var req tagRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		writeError(w, http.StatusUnprocessableEntity, "Name is required.")
		return
	}

	created, err := h.store.Tag.Create(&models.Tag{Name: name, Slug: slug.Generate(name)})
	if err != nil {
		h.logger.Error("create tag", "error", err)
		writeError(w, http.StatusInternalServerError, "could not save tag")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"tag": created})
}

// DeleteTag removes a catalog entry. Posts keep their labels.
func (h *Admin) DeleteTag(w http.ResponseWriter, r *http.Request) {
	id, ok := urlUUID(r, "id")
	if !ok {
		writeError(w, http.StatusNotFound, "tag not found")
		return
	}

	if err := h.store.Tag.Delete(id); err != nil {
		h.logger.Error("delete tag", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "could not delete tag")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// --- Users ---

// ListUsers returns all platform accounts.
func (h *Admin) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.User.List()
	if err != nil {
		h.logger.Error("list users", "error", err)
		writeError(w, http.StatusInternalServerError, "could not load users")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"users": users})
}

type userRequest struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
}

// CreateUser registers a new account. The user completes 2FA enrollment
// on first sign-in.
func (h *Admin) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Username) == "" || strings.TrimSpace(req.Email) == "" {
		writeError(w, http.StatusUnprocessableEntity, "Username and email are required.")
		return
	}
	if len(req.Password) < 12 {
		writeError(w, http.StatusUnprocessableEntity, "Password must be at least 12 characters.")
		return
	}
	role := models.Role(req.Role)
	if role != models.RoleAdmin && role != models.RoleEditor && role != models.RoleAuthor {
		writeError(w, http.StatusUnprocessableEntity, "Role must be admin, editor, or author.")
		return
	}

	user, err := h.store.User.Create(req.Username, req.Email, req.Password, req.DisplayName, role)
	if err != nil {
		h.logger.Error("create user", "username", req.Username, "error", err)
		writeError(w, http.StatusInternalServerError, "could not create user")
		return
	}

	h.logger.Info("user created", "username", user.Username, "role", user.Role)
	writeJSON(w, http.StatusCreated, map[string]any{"user": user})
}

// ResetUserTOTP clears a user's 2FA enrollment so they re-run setup on
// the next sign-in. Used when an authenticator device is lost.
func (h *Admin) ResetUserTOTP(w http.ResponseWriter, r *http.Request) {
	id, ok := urlUUID(r, "id")
	if !ok {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}

	if err := h.store.User.ResetTOTP(id); err != nil {
		h.logger.Error("reset totp", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "could not reset 2FA")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// DeleteUser removes an account. The signed-in user cannot delete
// themselves.
func (h *Admin) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := urlUUID(r, "id")
	if !ok {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}

	sess := middleware.SessionFromCtx(r.Context())
	if sess != nil && sess.UserID == id {
		writeError(w, http.StatusUnprocessableEntity, "You cannot delete your own account.")
		return
	}

	if err := h.store.User.Delete(id); err != nil {
		h.logger.Error("delete user", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "could not delete user")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
