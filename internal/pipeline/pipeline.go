// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package pipeline drafts blog posts from a topic using the configured AI
// provider. A run moves through fixed stages (fetch, analyze, draft,
// review, enhance, save) and records its progress in a JobStore, so the
// admin API can poll runs started in the background.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"quillpress/internal/models"
)

// Stage names, in execution order.
const (
	StageFetch   = "fetch"
	StageAnalyze = "analyze"
	StageDraft   = "draft"
	StageReview  = "review"
	StageEnhance = "enhance"
	StageSave    = "save"
)

// Generator produces text from a prompt. *ai.Registry satisfies this.
type Generator interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// PostCreator persists the finished draft. *blog.Service satisfies this.
type PostCreator interface {
	CreatePost(p *models.Post) (*models.Post, error)
}

// Pipeline runs the drafting stages. Drafts are created under a fixed
// author and category chosen at construction time.
type Pipeline struct {
	gen        Generator
	fetcher    Fetcher // nil when no feed is configured
	posts      PostCreator
	jobs       JobStore
	authorID   uuid.UUID
	categoryID uuid.UUID
}

// New creates a pipeline. fetcher may be nil, in which case the fetch
// stage is skipped and the analyze stage works from the topic alone.
func New(gen Generator, fetcher Fetcher, posts PostCreator, jobs JobStore, authorID, categoryID uuid.UUID) *Pipeline {
	return &Pipeline{
		gen:        gen,
		fetcher:    fetcher,
		posts:      posts,
		jobs:       jobs,
		authorID:   authorID,
		categoryID: categoryID,
	}
}

// Jobs exposes the job store for read access by the HTTP layer.
func (p *Pipeline) Jobs() JobStore {
	return p.jobs
}

// Start queues a job for the topic and runs it in the background.
// Returns the queued job so the caller can hand its ID to the client.
func (p *Pipeline) Start(ctx context.Context, topic string) (*Job, error) {
	job := &Job{
		ID:        uuid.New(),
		Topic:     topic,
		Status:    JobQueued,
		CreatedAt: time.Now(),
	}
	if err := p.jobs.Save(ctx, job); err != nil {
		return nil, fmt.Errorf("pipeline queue: %w", err)
	}

	go func() {
		// The run outlives the HTTP request that started it.
		runCtx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()

		if err := p.Run(runCtx, job); err != nil {
			slog.Error("pipeline run failed", "job", job.ID, "stage", job.Stage, "error", err)
		}
	}()

	return job, nil
}

// Run executes every stage for the given job, updating the job record as
// it goes. On failure the job is marked failed with the stage that broke.
func (p *Pipeline) Run(ctx context.Context, job *Job) error {
	job.Status = JobRunning

	headlines, err := p.runFetch(ctx, job)
	if err != nil {
		return p.fail(ctx, job, err)
	}

	angle, err := p.runAnalyze(ctx, job, headlines)
	if err != nil {
		return p.fail(ctx, job, err)
	}

	draft, err := p.runDraft(ctx, job, angle)
	if err != nil {
		return p.fail(ctx, job, err)
	}

	reviewed, err := p.runReview(ctx, job, draft)
	if err != nil {
		return p.fail(ctx, job, err)
	}

	excerpt, tags, err := p.runEnhance(ctx, job, reviewed)
	if err != nil {
		return p.fail(ctx, job, err)
	}

	post, err := p.runSave(ctx, job, reviewed, excerpt, tags)
	if err != nil {
		return p.fail(ctx, job, err)
	}

	job.Status = JobCompleted
	job.Stage = ""
	job.PostID = &post.ID
	if err := p.jobs.Save(ctx, job); err != nil {
		return fmt.Errorf("pipeline save job: %w", err)
	}

	slog.Info("pipeline run completed", "job", job.ID, "post", post.ID, "topic", job.Topic)
	return nil
}

func (p *Pipeline) runFetch(ctx context.Context, job *Job) ([]Headline, error) {
	if err := p.setStage(ctx, job, StageFetch); err != nil {
		return nil, err
	}
	if p.fetcher == nil {
		return nil, nil
	}

	headlines, err := p.fetcher.Fetch(ctx)
	if err != nil {
		// A dead feed should not kill the run; the analyze stage can
		// work from the topic alone.
		slog.Warn("pipeline fetch failed, continuing without headlines", "job", job.ID, "error", err)
		return nil, nil
	}
	return headlines, nil
}

func (p *Pipeline) runAnalyze(ctx context.Context, job *Job, headlines []Headline) (string, error) {
	if err := p.setStage(ctx, job, StageAnalyze); err != nil {
		return "", err
	}

	var prompt strings.Builder
	fmt.Fprintf(&prompt, "Topic: %s\n", job.Topic)
	if len(headlines) > 0 {
		prompt.WriteString("\nCurrent headlines:\n")
		for _, h := range headlines {
			fmt.Fprintf(&prompt, "- %s", h.Title)
			if h.Summary != "" {
				fmt.Fprintf(&prompt, ": %s", h.Summary)
			}
			prompt.WriteString("\n")
		}
	}

	system := `You are an editorial analyst for a technology blog. Given a topic
and optionally some current headlines, propose a single specific angle for an
article: what it covers, who it is for, and why now. Reply with the angle only.`

	return p.gen.Generate(ctx, system, prompt.String())
}

func (p *Pipeline) runDraft(ctx context.Context, job *Job, angle string) (string, error) {
	if err := p.setStage(ctx, job, StageDraft); err != nil {
		return "", err
	}

	system := `You are a technology blog writer. Write a complete article in
Markdown. Start with a single level-1 heading for the title, then the body.
Do not include front matter or commentary.`

	prompt := fmt.Sprintf("Topic: %s\n\nAngle: %s", job.Topic, angle)
	return p.gen.Generate(ctx, system, prompt)
}

func (p *Pipeline) runReview(ctx context.Context, job *Job, draft string) (string, error) {
	if err := p.setStage(ctx, job, StageReview); err != nil {
		return "", err
	}

	system := `You are an editor. Revise the article for accuracy, clarity, and
flow. Keep the Markdown structure including the level-1 title heading. Reply
with the full revised article only.`

	return p.gen.Generate(ctx, system, draft)
}

func (p *Pipeline) runEnhance(ctx context.Context, job *Job, article string) (string, []string, error) {
	if err := p.setStage(ctx, job, StageEnhance); err != nil {
		return "", nil, err
	}

	excerptSystem := `You are a content summarization expert. Write a single
compelling sentence (under 200 characters) summarizing the article. Reply with
the sentence only.`
	excerpt, err := p.gen.Generate(ctx, excerptSystem, article)
	if err != nil {
		return "", nil, err
	}

	tagsSystem := `Suggest 3 to 5 short lowercase topic tags for the article.
Reply with the tags only, comma separated.`
	rawTags, err := p.gen.Generate(ctx, tagsSystem, article)
	if err != nil {
		return "", nil, err
	}

	return strings.TrimSpace(excerpt), splitTags(rawTags), nil
}

func (p *Pipeline) runSave(ctx context.Context, job *Job, article, excerpt string, tags []string) (*models.Post, error) {
	if err := p.setStage(ctx, job, StageSave); err != nil {
		return nil, err
	}

	title, body := splitTitle(article, job.Topic)

	post := &models.Post{
		Title:      title,
		Excerpt:    excerpt,
		Content:    body,
		CategoryID: p.categoryID,
		Tags:       models.TagList(tags),
		Status:     models.PostStatusDraft,
		AuthorID:   p.authorID,
	}

	created, err := p.posts.CreatePost(post)
	if err != nil {
		return nil, fmt.Errorf("pipeline save post: %w", err)
	}
	return created, nil
}

func (p *Pipeline) setStage(ctx context.Context, job *Job, stage string) error {
	job.Stage = stage
	if err := p.jobs.Save(ctx, job); err != nil {
		return fmt.Errorf("pipeline save job: %w", err)
	}
	return nil
}

func (p *Pipeline) fail(ctx context.Context, job *Job, cause error) error {
	job.Status = JobFailed
	job.Error = cause.Error()
	if err := p.jobs.Save(ctx, job); err != nil {
		slog.Error("pipeline failed to record job failure", "job", job.ID, "error", err)
	}
	return cause
}

// splitTitle extracts the level-1 heading as the post title and returns
// the remaining Markdown as the body. Falls back to the topic when the
// article has no heading.
func splitTitle(article, fallback string) (title, body string) {
	lines := strings.SplitN(strings.TrimSpace(article), "\n", 2)
	first := strings.TrimSpace(lines[0])

	if strings.HasPrefix(first, "# ") {
		title = strings.TrimSpace(strings.TrimPrefix(first, "# "))
		if len(lines) > 1 {
			body = strings.TrimSpace(lines[1])
		}
		return title, body
	}
	return fallback, strings.TrimSpace(article)
}

// splitTags normalizes a comma-separated tag response into clean labels.
func splitTags(raw string) []string {
	var tags []string
	for _, part := range strings.Split(raw, ",") {
		tag := strings.ToLower(strings.TrimSpace(part))
		tag = strings.Trim(tag, ".#\"'")
		if tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}
