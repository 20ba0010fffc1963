package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/stemsi/exam-portal/internal/config"
	"github.com/stemsi/exam-portal/internal/model"
)

var ErrJobNotFound = errors.New("generation job not found")

// GenerationJobRepository keeps generation job state in Redis and feeds the
// worker queue.
type GenerationJobRepository struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewGenerationJobRepository creates a repository whose job records expire after ttl.
func NewGenerationJobRepository(rdb *redis.Client, ttl time.Duration) *GenerationJobRepository {
	return &GenerationJobRepository{rdb: rdb, ttl: ttl}
}

// Enqueue stores the job as QUEUED and pushes its id onto the worker queue
// in one transaction.
func (r *GenerationJobRepository) Enqueue(ctx context.Context, job *model.GenerationJob) error {
	job.Status = model.GenerationJobQueued
	raw, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode job: %w", err)
	}

	_, err = r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, config.CacheKey.GenerationJobKey(job.ID), raw, r.ttl)
		pipe.RPush(ctx, config.WorkerKey.QuestionGenerationQueue, job.ID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("enqueue job: %w", err)
	}
	return nil
}

// Get loads a job by id.
func (r *GenerationJobRepository) Get(ctx context.Context, id string) (*model.GenerationJob, error) {
	raw, err := r.rdb.Get(ctx, config.CacheKey.GenerationJobKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("get job: %w", err)
	}
	var job model.GenerationJob
	if err := json.Unmarshal(raw, &job); err != nil {
		return nil, fmt.Errorf("decode job: %w", err)
	}
	return &job, nil
}

// Save overwrites the stored job record and refreshes its TTL.
func (r *GenerationJobRepository) Save(ctx context.Context, job *model.GenerationJob) error {
	raw, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode job: %w", err)
	}
	if err := r.rdb.Set(ctx, config.CacheKey.GenerationJobKey(job.ID), raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("save job: %w", err)
	}
	return nil
}

// Next blocks up to timeout for the next queued job id. It returns
// redis.Nil when the queue stayed empty.
func (r *GenerationJobRepository) Next(ctx context.Context, timeout time.Duration) (string, error) {
	item, err := r.rdb.BLPop(ctx, timeout, config.WorkerKey.QuestionGenerationQueue).Result()
	if err != nil {
		return "", err
	}
	if len(item) < 2 {
		return "", redis.Nil
	}
	return item[1], nil
}

// Requeue pushes a job id back to the head of the queue.
func (r *GenerationJobRepository) Requeue(ctx context.Context, id string) error {
	return r.rdb.LPush(ctx, config.WorkerKey.QuestionGenerationQueue, id).Err()
}

// QueueLength reports how many jobs are waiting.
func (r *GenerationJobRepository) QueueLength(ctx context.Context) (int64, error) {
	return r.rdb.LLen(ctx, config.WorkerKey.QuestionGenerationQueue).Result()
}
