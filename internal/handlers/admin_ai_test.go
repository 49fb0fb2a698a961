// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"quillpress/internal/ai"
	"quillpress/internal/models"
	"quillpress/internal/pipeline"
)

// newAITestHandler builds an AdminAI handler with a mock provider and no
// pipeline. These tests need neither Postgres nor Valkey.
func newAITestHandler(pl *pipeline.Pipeline) *AdminAI {
	registry := ai.NewRegistry("test", map[string]ai.ProviderConfig{})
	registry.Register("test", &mockAIProvider{name: "test", response: "# Title\n\nBody"})
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewAdminAI(registry, pl, logger)
}

// stubPostCreator records created posts without a database.
type stubPostCreator struct {
	created []*models.Post
}

func (s *stubPostCreator) CreatePost(p *models.Post) (*models.Post, error) {
	p.ID = uuid.New()
	s.created = append(s.created, p)
	return p, nil
}

func TestListProviders(t *testing.T) {
	h := newAITestHandler(nil)

	rec := httptest.NewRecorder()
	h.ListProviders(rec, httptest.NewRequest(http.MethodGet, "/api/admin/ai/providers", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d", rec.Code)
	}
	var body struct {
		Active    string   `json:"active"`
		Available []string `json:"available"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Active != "test" {
		t.Errorf("active: got %q", body.Active)
	}
	if len(body.Available) != 1 || body.Available[0] != "test" {
		t.Errorf("available: got %v", body.Available)
	}
}

func TestSetProviderUnknown(t *testing.T) {
	h := newAITestHandler(nil)

	req := httptest.NewRequest(http.MethodPost, "/api/admin/ai/provider", strings.NewReader(`{"name":"nonexistent"}`))
	rec := httptest.NewRecorder()

	h.SetProvider(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status: got %d, want 422", rec.Code)
	}
}

func TestPipelineUnconfigured(t *testing.T) {
	h := newAITestHandler(nil)

	req := httptest.NewRequest(http.MethodPost, "/api/admin/pipeline", strings.NewReader(`{"topic":"go releases"}`))
	rec := httptest.NewRecorder()

	h.StartPipeline(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status: got %d, want 503", rec.Code)
	}
}

func TestStartPipelineEmptyTopic(t *testing.T) {
	pl := pipeline.New(&mockAIProvider{response: "x"}, nil, &stubPostCreator{}, pipeline.NewMemoryJobStore(), uuid.New(), uuid.New())
	h := newAITestHandler(pl)

	req := httptest.NewRequest(http.MethodPost, "/api/admin/pipeline", strings.NewReader(`{"topic":"  "}`))
	rec := httptest.NewRecorder()

	h.StartPipeline(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status: got %d, want 422", rec.Code)
	}
}

func TestStartPipelineAndTrackJob(t *testing.T) {
	creator := &stubPostCreator{}
	pl := pipeline.New(&mockAIProvider{response: "# Generated\n\nBody"}, nil, creator, pipeline.NewMemoryJobStore(), uuid.New(), uuid.New())
	h := newAITestHandler(pl)

	req := httptest.NewRequest(http.MethodPost, "/api/admin/pipeline", strings.NewReader(`{"topic":"go releases"}`))
	rec := httptest.NewRecorder()

	h.StartPipeline(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status: got %d, body %s", rec.Code, rec.Body.String())
	}
	var started struct {
		Job pipeline.Job `json:"job"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &started); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if started.Job.Topic != "go releases" {
		t.Errorf("topic: got %q", started.Job.Topic)
	}

	// Poll the job endpoint until the background run completes.
	deadline := time.Now().Add(5 * time.Second)
	for {
		getReq := httptest.NewRequest(http.MethodGet, "/api/admin/pipeline/jobs/"+started.Job.ID.String(), nil)
		getReq = withChiURLParam(getReq, "id", started.Job.ID.String())
		getRec := httptest.NewRecorder()
		h.GetPipelineJob(getRec, getReq)

		if getRec.Code != http.StatusOK {
			t.Fatalf("get job: got %d", getRec.Code)
		}
		var current struct {
			Job pipeline.Job `json:"job"`
		}
		if err := json.Unmarshal(getRec.Body.Bytes(), &current); err != nil {
			t.Fatalf("decode job: %v", err)
		}
		if current.Job.Status == pipeline.JobCompleted {
			break
		}
		if current.Job.Status == pipeline.JobFailed {
			t.Fatalf("job failed: %s", current.Job.Error)
		}
		if time.Now().After(deadline) {
			t.Fatalf("job did not finish, status %s", current.Job.Status)
		}
		time.Sleep(20 * time.Millisecond)
	}

	if len(creator.created) != 1 {
		t.Fatalf("posts created: got %d, want 1", len(creator.created))
	}

	// The listing shows the job.
	listRec := httptest.NewRecorder()
	h.ListPipelineJobs(listRec, httptest.NewRequest(http.MethodGet, "/api/admin/pipeline/jobs", nil))
	if listRec.Code != http.StatusOK {
		t.Fatalf("list jobs: got %d", listRec.Code)
	}
	if !strings.Contains(listRec.Body.String(), started.Job.ID.String()) {
		t.Error("started job missing from listing")
	}
}

func TestGetPipelineJobUnknown(t *testing.T) {
	pl := pipeline.New(&mockAIProvider{response: "x"}, nil, &stubPostCreator{}, pipeline.NewMemoryJobStore(), uuid.New(), uuid.New())
	h := newAITestHandler(pl)

	id := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/api/admin/pipeline/jobs/"+id, nil)
	req = withChiURLParam(req, "id", id)
	rec := httptest.NewRecorder()

	h.GetPipelineJob(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want 404", rec.Code)
	}
}
