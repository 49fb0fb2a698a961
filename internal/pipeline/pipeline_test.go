package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"quillpress/internal/models"
)

// scriptedGenerator returns canned responses in call order and records
// the prompts it received.
type scriptedGenerator struct {
	mu        sync.Mutex
	responses []string
	calls     []string // user prompts, in order
	err       error
}

func (g *scriptedGenerator) Generate(_ context.Context, _, userPrompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return "", g.err
	}
	g.calls = append(g.calls, userPrompt)
	if len(g.responses) == 0 {
		return "", fmt.Errorf("no scripted response left")
	}
	resp := g.responses[0]
	g.responses = g.responses[1:]
	return resp, nil
}

type staticFetcher struct {
	headlines []Headline
	err       error
}

func (f *staticFetcher) Fetch(context.Context) ([]Headline, error) {
	return f.headlines, f.err
}

type capturingCreator struct {
	created *models.Post
	err     error
}

func (c *capturingCreator) CreatePost(p *models.Post) (*models.Post, error) {
	if c.err != nil {
		return nil, c.err
	}
	out := *p
	out.ID = uuid.New()
	c.created = &out
	return &out, nil
}

func testPipeline(gen Generator, fetcher Fetcher, creator PostCreator) (*Pipeline, *MemoryJobStore) {
	jobs := NewMemoryJobStore()
	p := New(gen, fetcher, creator, jobs, uuid.New(), uuid.New())
	return p, jobs
}

func TestPipelineRunCompletes(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{
		"cover the new release for practitioners",            // analyze
		"# Big Release\n\nThe release landed this week.",     // draft
		"# Big Release\n\nThe release landed this Thursday.", // review
		"A look at what the new release means for you.",      // enhance: excerpt
		"releases, tooling, golang",                          // enhance: tags
	}}
	fetcher := &staticFetcher{headlines: []Headline{
		{Title: "Release day", Summary: "v2 is out"},
	}}
	creator := &capturingCreator{}
	p, jobs := testPipeline(gen, fetcher, creator)

	job := &Job{ID: uuid.New(), Topic: "the new release", Status: JobQueued, CreatedAt: time.Now()}
	if err := p.Run(context.Background(), job); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if job.Status != JobCompleted {
		t.Errorf("status: got %s, want %s", job.Status, JobCompleted)
	}
	if job.PostID == nil {
		t.Fatal("expected PostID on completed job")
	}

	post := creator.created
	if post == nil {
		t.Fatal("expected a created post")
	}
	if post.Title != "Big Release" {
		t.Errorf("title: got %q, want %q", post.Title, "Big Release")
	}
	if post.Status != models.PostStatusDraft {
		t.Errorf("status: got %q, want draft", post.Status)
	}
	if strings.Contains(post.Content, "# Big Release") {
		t.Error("title heading should be stripped from the body")
	}
	if !strings.Contains(post.Content, "Thursday") {
		t.Error("body should come from the reviewed draft, not the first draft")
	}
	if len(post.Tags) != 3 || post.Tags[0] != "releases" {
		t.Errorf("tags: got %v", post.Tags)
	}

	// Headlines should have reached the analyze prompt.
	gen.mu.Lock()
	analyzePrompt := gen.calls[0]
	gen.mu.Unlock()
	if !strings.Contains(analyzePrompt, "Release day") {
		t.Errorf("analyze prompt missing headline: %q", analyzePrompt)
	}

	// The stored job record reflects completion.
	stored, err := jobs.Find(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if stored == nil || stored.Status != JobCompleted {
		t.Errorf("stored job: got %+v, want completed", stored)
	}
}

func TestPipelineRunWithoutFetcher(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{
		"angle", "# T\n\nbody", "# T\n\nbody", "excerpt", "a, b, c",
	}}
	creator := &capturingCreator{}
	p, _ := testPipeline(gen, nil, creator)

	job := &Job{ID: uuid.New(), Topic: "topic", Status: JobQueued, CreatedAt: time.Now()}
	if err := p.Run(context.Background(), job); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if job.Status != JobCompleted {
		t.Errorf("status: got %s, want completed", job.Status)
	}
}

func TestPipelineFetchFailureIsNotFatal(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{
		"angle", "# T\n\nbody", "# T\n\nbody", "excerpt", "a",
	}}
	fetcher := &staticFetcher{err: fmt.Errorf("feed down")}
	creator := &capturingCreator{}
	p, _ := testPipeline(gen, fetcher, creator)

	job := &Job{ID: uuid.New(), Topic: "topic", Status: JobQueued, CreatedAt: time.Now()}
	if err := p.Run(context.Background(), job); err != nil {
		t.Fatalf("Run should survive a dead feed: %v", err)
	}
	if job.Status != JobCompleted {
		t.Errorf("status: got %s, want completed", job.Status)
	}
}

func TestPipelineGenerationFailureMarksJobFailed(t *testing.T) {
	gen := &scriptedGenerator{err: fmt.Errorf("provider unavailable")}
	creator := &capturingCreator{}
	p, jobs := testPipeline(gen, nil, creator)

	job := &Job{ID: uuid.New(), Topic: "topic", Status: JobQueued, CreatedAt: time.Now()}
	if err := p.Run(context.Background(), job); err == nil {
		t.Fatal("expected error from Run")
	}

	if job.Status != JobFailed {
		t.Errorf("status: got %s, want failed", job.Status)
	}
	if job.Stage != StageAnalyze {
		t.Errorf("stage: got %q, want %q", job.Stage, StageAnalyze)
	}
	if job.Error == "" {
		t.Error("expected error message on failed job")
	}
	if creator.created != nil {
		t.Error("no post should be created on failure")
	}

	stored, _ := jobs.Find(context.Background(), job.ID)
	if stored == nil || stored.Status != JobFailed {
		t.Errorf("stored job: got %+v, want failed", stored)
	}
}

func TestPipelineSaveFailureMarksJobFailed(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{
		"angle", "# T\n\nbody", "# T\n\nbody", "excerpt", "a",
	}}
	creator := &capturingCreator{err: fmt.Errorf("db down")}
	p, _ := testPipeline(gen, nil, creator)

	job := &Job{ID: uuid.New(), Topic: "topic", Status: JobQueued, CreatedAt: time.Now()}
	if err := p.Run(context.Background(), job); err == nil {
		t.Fatal("expected error from Run")
	}
	if job.Status != JobFailed || job.Stage != StageSave {
		t.Errorf("job: status=%s stage=%s, want failed/save", job.Status, job.Stage)
	}
}

func TestPipelineStart(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{
		"angle", "# T\n\nbody", "# T\n\nbody", "excerpt", "a",
	}}
	creator := &capturingCreator{}
	p, jobs := testPipeline(gen, nil, creator)

	job, err := p.Start(context.Background(), "some topic")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if job.ID == uuid.Nil {
		t.Error("expected job ID")
	}

	// Poll until the background run finishes.
	deadline := time.Now().Add(5 * time.Second)
	for {
		stored, err := jobs.Find(context.Background(), job.ID)
		if err != nil {
			t.Fatalf("Find: %v", err)
		}
		if stored != nil && (stored.Status == JobCompleted || stored.Status == JobFailed) {
			if stored.Status != JobCompleted {
				t.Fatalf("job finished as %s: %s", stored.Status, stored.Error)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("job did not finish in time")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestSplitTitle(t *testing.T) {
	tests := []struct {
		name      string
		article   string
		wantTitle string
		wantBody  string
	}{
		{"heading and body", "# Hello\n\nWorld.", "Hello", "World."},
		{"no heading", "Just text.", "fallback", "Just text."},
		{"heading only", "# Alone", "Alone", ""},
		{"leading whitespace", "\n\n# Trimmed\n\nBody.", "Trimmed", "Body."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			title, body := splitTitle(tt.article, "fallback")
			if title != tt.wantTitle {
				t.Errorf("title: got %q, want %q", title, tt.wantTitle)
			}
			if body != tt.wantBody {
				t.Errorf("body: got %q, want %q", body, tt.wantBody)
			}
		})
	}
}

func TestSplitTags(t *testing.T) {
	got := splitTags(" Go , #tooling, \"releases\". , ,")
	want := []string{"go", "tooling", "releases"}
	if len(got) != len(want) {
		t.Fatalf("tags: got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("tag %d: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestMemoryJobStore(t *testing.T) {
	s := NewMemoryJobStore()
	ctx := context.Background()

	early := &Job{ID: uuid.New(), Topic: "first", Status: JobQueued, CreatedAt: time.Now().Add(-time.Hour)}
	late := &Job{ID: uuid.New(), Topic: "second", Status: JobQueued, CreatedAt: time.Now()}

	if err := s.Save(ctx, early); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Save(ctx, late); err != nil {
		t.Fatalf("Save: %v", err)
	}

	found, err := s.Find(ctx, early.ID)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if found == nil || found.Topic != "first" {
		t.Errorf("Find: got %+v", found)
	}

	missing, err := s.Find(ctx, uuid.New())
	if err != nil {
		t.Fatalf("Find missing: %v", err)
	}
	if missing != nil {
		t.Error("expected nil for unknown job")
	}

	jobs, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(jobs) != 2 {
		t.Fatalf("List: got %d jobs, want 2", len(jobs))
	}
	if jobs[0].Topic != "second" {
		t.Errorf("List order: got %q first, want newest", jobs[0].Topic)
	}
}
