// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strings"

	"github.com/google/uuid"

	"quillpress/internal/ai"
	"quillpress/internal/imaging"
	"quillpress/internal/storage"
)

// maxUploadSize caps media uploads at 10 MB.
const maxUploadSize = 10 << 20

// allowedImageTypes are the content types accepted for media uploads.
var allowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// AdminMedia serves image uploads and AI image generation, both landing
// in the public media bucket.
type AdminMedia struct {
	storage  *storage.Client
	registry *ai.Registry
	logger   *slog.Logger
}

// NewAdminMedia creates the media handler group. storage may be nil when
// no bucket is configured; the endpoints then answer 503.
func NewAdminMedia(st *storage.Client, registry *ai.Registry, logger *slog.Logger) *AdminMedia {
	return &AdminMedia{storage: st, registry: registry, logger: logger}
}

// Upload stores a multipart image under a fresh key and returns its
// public URL.
func (h *AdminMedia) Upload(w http.ResponseWriter, r *http.Request) {
	if h.storage == nil {
		writeError(w, http.StatusServiceUnavailable, "media storage is not configured")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	ext, ok := allowedImageTypes[contentType]
	if !ok {
		writeError(w, http.StatusUnsupportedMediaType, "only jpeg, png, gif, and webp images are accepted")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "could not read file")
		return
	}

	id := uuid.NewString()
	key := fmt.Sprintf("uploads/%s%s", id, ext)
	if err := h.storage.Upload(r.Context(), key, contentType, bytes.NewReader(data), int64(len(data))); err != nil {
		h.logger.Error("upload media", "key", key, "error", err)
		writeError(w, http.StatusInternalServerError, "could not store file")
		return
	}

	h.logger.Info("media uploaded", "key", key, "size", len(data))
	writeJSON(w, http.StatusCreated, map[string]any{
		"key":        key,
		"url":        h.storage.FileURL(key),
		"renditions": h.storeRenditions(r.Context(), "uploads", id, contentType, data),
	})
}

// storeRenditions generates responsive WebP renditions of an uploaded
// image and stores them next to the original. Rendition failures only
// cost the renditions, never the upload.
func (h *AdminMedia) storeRenditions(ctx context.Context, prefix, id, contentType string, data []byte) map[string]string {
	// Animated GIFs do not survive single-frame resizing.
	if contentType == "image/gif" {
		return map[string]string{}
	}

	images, err := imaging.Renditions(data, imaging.FeaturedRenditions)
	if err != nil {
		h.logger.Warn("generate renditions", "error", err)
		return map[string]string{}
	}

	urls := make(map[string]string, len(images))
	for _, img := range images {
		key := fmt.Sprintf("%s/%s_%s.webp", prefix, id, img.Name)
		if err := h.storage.Upload(ctx, key, img.ContentType, bytes.NewReader(img.Data), int64(len(img.Data))); err != nil {
			h.logger.Warn("store rendition", "key", key, "error", err)
			continue
		}
		urls[img.Name] = h.storage.FileURL(key)
	}
	return urls
}

type deleteMediaRequest struct {
	URL string `json:"url"`
}

// Delete removes a stored file by its public URL. URLs outside the
// bucket are rejected.
func (h *AdminMedia) Delete(w http.ResponseWriter, r *http.Request) {
	if h.storage == nil {
		writeError(w, http.StatusServiceUnavailable, "media storage is not configured")
		return
	}

	var req deleteMediaRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	key, ok := h.storage.ExtractKey(req.URL)
	if !ok {
		writeError(w, http.StatusUnprocessableEntity, "URL does not point into the media bucket")
		return
	}

	if err := h.storage.Delete(r.Context(), key); err != nil {
		h.logger.Error("delete media", "key", key, "error", err)
		writeError(w, http.StatusInternalServerError, "could not delete file")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type generateImageRequest struct {
	Prompt string `json:"prompt"`
}

// Generate creates a featured image with the active AI provider and
// stores it in the media bucket.
func (h *AdminMedia) Generate(w http.ResponseWriter, r *http.Request) {
	if h.storage == nil {
		writeError(w, http.StatusServiceUnavailable, "media storage is not configured")
		return
	}
	if h.registry == nil || !h.registry.SupportsImageGeneration() {
		writeError(w, http.StatusServiceUnavailable, "the active AI provider does not generate images")
		return
	}

	var req generateImageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		writeError(w, http.StatusUnprocessableEntity, "Prompt is required.")
		return
	}

	data, contentType, err := h.registry.GenerateImage(r.Context(), prompt)
	if err != nil {
		h.logger.Error("generate image", "error", err)
		writeError(w, http.StatusBadGateway, "image generation failed")
		return
	}

	ext := allowedImageTypes[contentType]
	if ext == "" {
		ext = ".png"
	}
	id := uuid.NewString()
	key := path.Join("generated", id+ext)
	if err := h.storage.Upload(r.Context(), key, contentType, bytes.NewReader(data), int64(len(data))); err != nil {
		h.logger.Error("store generated image", "key", key, "error", err)
		writeError(w, http.StatusInternalServerError, "could not store image")
		return
	}

	h.logger.Info("image generated", "key", key, "provider", h.registry.ActiveName())
	writeJSON(w, http.StatusCreated, map[string]any{
		"key":        key,
		"url":        h.storage.FileURL(key),
		"renditions": h.storeRenditions(r.Context(), "generated", id, contentType, data),
	})
}
