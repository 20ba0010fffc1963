package worker

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/stemsi/exam-portal/internal/metrics"
	"github.com/stemsi/exam-portal/internal/model"
	"github.com/stemsi/exam-portal/internal/service"
)

const (
	GenerationPollTimeout = 2 * time.Second
	GenerationTimeout     = 2 * time.Minute
)

// JobStore is the queue and status store the worker consumes.
type JobStore interface {
	Next(ctx context.Context, timeout time.Duration) (string, error)
	Get(ctx context.Context, id string) (*model.GenerationJob, error)
	Save(ctx context.Context, job *model.GenerationJob) error
	Requeue(ctx context.Context, id string) error
}

// QuestionGenerator produces questions for a class.
type QuestionGenerator interface {
	Generate(ctx context.Context, className string, count int) ([]model.Question, error)
}

// QuestionAppender saves generated questions onto a class's list.
type QuestionAppender interface {
	AppendGenerated(ctx context.Context, className string, generated []model.Question) (service.ClassQuestions, error)
}

// GenerationWorker drains the question generation queue one job at a time.
type GenerationWorker struct {
	jobs      JobStore
	generator QuestionGenerator
	questions QuestionAppender
	now       func() time.Time
	log       zerolog.Logger
}

func NewGenerationWorker(jobs JobStore, generator QuestionGenerator, questions QuestionAppender, log zerolog.Logger) *GenerationWorker {
	return &GenerationWorker{
		jobs:      jobs,
		generator: generator,
		questions: questions,
		now:       time.Now,
		log:       log.With().Str("component", "generation_worker").Logger(),
	}
}

// ----------------------------------------------------------------
// Worker loop
// ----------------------------------------------------------------

func (w *GenerationWorker) Start(ctx context.Context) {
	w.log.Info().Msg("GenerationWorker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("GenerationWorker stopped")
			return
		default:
		}

		id, err := w.jobs.Next(ctx, GenerationPollTimeout)
		if err != nil {
			if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
				w.log.Error().Err(err).Msg("BLPop error")
				// Back off so a dead Redis does not spin the loop.
				select {
				case <-ctx.Done():
				case <-time.After(GenerationPollTimeout):
				}
			}
			continue
		}

		w.process(ctx, id)
	}
}

// ----------------------------------------------------------------
// Single job
// ----------------------------------------------------------------

func (w *GenerationWorker) process(ctx context.Context, id string) {
	log := w.log.With().Str("job_id", id).Logger()

	job, err := w.jobs.Get(ctx, id)
	if err != nil {
		log.Warn().Err(err).Msg("Dropping job without a record")
		return
	}
	if job.Status != model.GenerationJobQueued {
		log.Warn().Str("status", string(job.Status)).Msg("Skipping job that is not queued")
		return
	}

	job.Status = model.GenerationJobRunning
	job.UpdatedAt = w.now()
	if err := w.jobs.Save(ctx, job); err != nil {
		log.Error().Err(err).Msg("Failed to mark job running")
	}

	genCtx, cancel := context.WithTimeout(ctx, GenerationTimeout)
	defer cancel()

	generated, err := w.generator.Generate(genCtx, job.ClassName, job.Count)
	if err == nil {
		_, err = w.questions.AppendGenerated(genCtx, job.ClassName, generated)
	}

	if err != nil && ctx.Err() != nil {
		// Shutdown interrupted the job; hand it back for the next worker.
		w.requeue(job, log)
		return
	}

	job.UpdatedAt = w.now()
	if err != nil {
		job.Status = model.GenerationJobFailed
		job.Error = err.Error()
		metrics.GenerationJob("failed")
		log.Error().Err(err).Str("class", job.ClassName).Msg("Question generation failed")
	} else {
		job.Status = model.GenerationJobDone
		job.Generated = len(generated)
		metrics.GenerationJob("done")
		log.Info().Str("class", job.ClassName).Int("generated", job.Generated).Msg("Questions generated")
	}

	if err := w.jobs.Save(ctx, job); err != nil {
		log.Error().Err(err).Msg("Failed to save job status")
	}
}

func (w *GenerationWorker) requeue(job *model.GenerationJob, log zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	job.Status = model.GenerationJobQueued
	job.UpdatedAt = w.now()
	if err := w.jobs.Save(ctx, job); err != nil {
		log.Error().Err(err).Msg("Failed to reset interrupted job")
		return
	}
	if err := w.jobs.Requeue(ctx, job.ID); err != nil {
		log.Error().Err(err).Msg("Failed to requeue interrupted job")
		return
	}
	log.Info().Msg("Interrupted job requeued")
}
