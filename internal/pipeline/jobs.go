// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// JobStatus tracks a pipeline job through its lifecycle.
type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// Job records one drafting run. Stage names the step currently executing
// while the job is running, and the step that failed when Status is failed.
type Job struct {
	ID        uuid.UUID  `json:"id"`
	Topic     string     `json:"topic"`
	Status    JobStatus  `json:"status"`
	Stage     string     `json:"stage,omitempty"`
	Error     string     `json:"error,omitempty"`
	PostID    *uuid.UUID `json:"post_id,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// JobStore persists pipeline job state. Implementations must be safe for
// concurrent use: the HTTP layer reads jobs while runs update them.
type JobStore interface {
	Save(ctx context.Context, job *Job) error
	Find(ctx context.Context, id uuid.UUID) (*Job, error)
	List(ctx context.Context) ([]Job, error)
}

const (
	jobKeyPrefix = "pipeline:job:"

	// DefaultJobTTL is how long finished jobs stay visible before Valkey
	// evicts them.
	DefaultJobTTL = 24 * time.Hour
)

// ValkeyJobStore keeps job records in Valkey with automatic TTL expiry, so
// old runs age out without a cleanup pass.
type ValkeyJobStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewValkeyJobStore creates a job store backed by the given Valkey client.
func NewValkeyJobStore(client *redis.Client, ttl time.Duration) *ValkeyJobStore {
	if ttl == 0 {
		ttl = DefaultJobTTL
	}
	return &ValkeyJobStore{client: client, ttl: ttl}
}

func (s *ValkeyJobStore) Save(ctx context.Context, job *Job) error {
	job.UpdatedAt = time.Now()

	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("job marshal: %w", err)
	}

	if err := s.client.Set(ctx, jobKeyPrefix+job.ID.String(), payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("job store: %w", err)
	}
	return nil
}

func (s *ValkeyJobStore) Find(ctx context.Context, id uuid.UUID) (*Job, error) {
	payload, err := s.client.Get(ctx, jobKeyPrefix+id.String()).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("job get: %w", err)
	}

	var job Job
	if err := json.Unmarshal(payload, &job); err != nil {
		return nil, fmt.Errorf("job unmarshal: %w", err)
	}
	return &job, nil
}

func (s *ValkeyJobStore) List(ctx context.Context) ([]Job, error) {
	var jobs []Job
	var cursor uint64
	for {
		keys, nextCursor, err := s.client.Scan(ctx, cursor, jobKeyPrefix+"*", 100).Result()
		if err != nil {
			return nil, fmt.Errorf("job scan: %w", err)
		}
		for _, key := range keys {
			payload, err := s.client.Get(ctx, key).Bytes()
			if err == redis.Nil {
				continue // expired between scan and get
			}
			if err != nil {
				return nil, fmt.Errorf("job get: %w", err)
			}
			var job Job
			if err := json.Unmarshal(payload, &job); err != nil {
				return nil, fmt.Errorf("job unmarshal: %w", err)
			}
			jobs = append(jobs, job)
		}
		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}

	sortJobs(jobs)
	return jobs, nil
}

// MemoryJobStore is an in-memory JobStore used in tests and as a fallback
// when Valkey is not configured. Records are never evicted.
type MemoryJobStore struct {
	mu   sync.RWMutex
	jobs map[uuid.UUID]Job
}

// NewMemoryJobStore creates an empty in-memory job store.
func NewMemoryJobStore() *MemoryJobStore {
	return &MemoryJobStore{jobs: make(map[uuid.UUID]Job)}
}

func (s *MemoryJobStore) Save(_ context.Context, job *Job) error {
	job.UpdatedAt = time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = *job
	return nil
}

func (s *MemoryJobStore) Find(_ context.Context, id uuid.UUID) (*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, nil
	}
	return &job, nil
}

func (s *MemoryJobStore) List(_ context.Context) ([]Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	jobs := make([]Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		jobs = append(jobs, job)
	}
	sortJobs(jobs)
	return jobs, nil
}

// sortJobs orders newest first so listings show recent runs at the top.
func sortJobs(jobs []Job) {
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
	})
}
