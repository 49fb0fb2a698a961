// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"quillpress/internal/ai"
	"quillpress/internal/pipeline"
)

// AdminAI serves the AI provider management and content pipeline
// endpoints.
type AdminAI struct {
	registry *ai.Registry
	pipeline *pipeline.Pipeline
	logger   *slog.Logger
}

// NewAdminAI creates the AI admin handler group. pipeline may be nil when
// no provider is configured; the pipeline endpoints then answer 503.
func NewAdminAI(registry *ai.Registry, pl *pipeline.Pipeline, logger *slog.Logger) *AdminAI {
	return &AdminAI{registry: registry, pipeline: pl, logger: logger}
}

// ListProviders returns the configured AI providers and which one is
// active.
func (h *AdminAI) ListProviders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"active":    h.registry.ActiveName(),
		"available": h.registry.Available(),
	})
}

type providerRequest struct {
	Name string `json:"name"`
}

// SetProvider switches the active AI provider.
func (h *AdminAI) SetProvider(w http.ResponseWriter, r *http.Request) {
	var req providerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.registry.SetActive(req.Name); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "unknown provider: "+req.Name)
		return
	}

	h.logger.Info("ai provider switched", "provider", req.Name)
	writeJSON(w, http.StatusOK, map[string]string{"active": req.Name})
}

type pipelineRequest struct {
	Topic string `json:"topic"`
}

// StartPipeline queues a content generation run for a topic and returns
// the job immediately. Progress is tracked through the job endpoints.
func (h *AdminAI) StartPipeline(w http.ResponseWriter, r *http.Request) {
	if h.pipeline == nil {
		writeError(w, http.StatusServiceUnavailable, "content pipeline is not configured")
		return
	}

	var req pipelineRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Topic) == "" {
		writeError(w, http.StatusUnprocessableEntity, "Topic is required.")
		return
	}

	job, err := h.pipeline.Start(r.Context(), strings.TrimSpace(req.Topic))
	if err != nil {
		h.logger.Error("start pipeline", "topic", req.Topic, "error", err)
		writeError(w, http.StatusInternalServerError, "could not start pipeline")
		return
	}

	h.logger.Info("pipeline started", "job", job.ID, "topic", job.Topic)
	writeJSON(w, http.StatusAccepted, map[string]any{"job": job})
}

// ListPipelineJobs returns recent pipeline jobs, newest first.
func (h *AdminAI) ListPipelineJobs(w http.ResponseWriter, r *http.Request) {
	if h.pipeline == nil {
		writeError(w, http.StatusServiceUnavailable, "content pipeline is not configured")
		return
	}

	jobs, err := h.pipeline.Jobs().List(r.Context())
	if err != nil {
		h.logger.Error("list pipeline jobs", "error", err)
		writeError(w, http.StatusInternalServerError, "could not load jobs")
		return
	}
	if jobs == nil {
		jobs = []pipeline.Job{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"jobs": jobs})
}

// GetPipelineJob returns one job by ID.
func (h *AdminAI) GetPipelineJob(w http.ResponseWriter, r *http.Request) {
	if h.pipeline == nil {
		writeError(w, http.StatusServiceUnavailable, "content pipeline is not configured")
		return
	}

	id, ok := urlUUID(r, "id")
	if !ok {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}

	job, err := h.pipeline.Jobs().Find(r.Context(), id)
	if err != nil {
		h.logger.Error("find pipeline job", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "could not load job")
		return
	}
	if job == nil {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"job": job})
}
