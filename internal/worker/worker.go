package worker

import (
	"context"
	"sync"
	"time"

	"github.com/bobarin/reelsmith/internal/models"
	"github.com/bobarin/reelsmith/internal/queue"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DefaultMaxAttempts bounds retries of jobs that failed with a retryable kind.
const DefaultMaxAttempts = 3

const dequeueTimeout = 5 * time.Second

// JobQueue is the render queue as seen by the worker.
type JobQueue interface {
	Dequeue(ctx context.Context, queueName string, timeout time.Duration) (*queue.Job, error)
	Requeue(ctx context.Context, job *queue.Job) error
}

// JobStore records job state transitions.
type JobStore interface {
	MarkJobRunning(ctx context.Context, id uuid.UUID) error
	MarkJobSucceeded(ctx context.Context, id uuid.UUID, result *models.RenderResult) error
	MarkJobRetrying(ctx context.Context, id uuid.UUID, kind models.ErrorKind, message string) error
	MarkJobFailed(ctx context.Context, id uuid.UUID, kind models.ErrorKind, message string) error
}

// Renderer runs one render.
type Renderer interface {
	RenderJob(ctx context.Context, jobID uuid.UUID, req models.RenderRequest) (*models.RenderResult, error)
}

type Worker struct {
	store       JobStore
	queue       JobQueue
	renderer    Renderer
	maxAttempts int
	log         zerolog.Logger
}

func New(store JobStore, q JobQueue, renderer Renderer, maxAttempts int, log zerolog.Logger) *Worker {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Worker{
		store:       store,
		queue:       q,
		renderer:    renderer,
		maxAttempts: maxAttempts,
		log:         log.With().Str("component", "worker").Logger(),
	}
}

// Start consumes the render queue with concurrency goroutines until ctx is
// done, then waits for in-flight jobs.
func (w *Worker) Start(ctx context.Context, concurrency int) {
	if concurrency <= 0 {
		concurrency = 1
	}
	w.log.Info().Int("concurrency", concurrency).Msg("worker started")

	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.processQueue(ctx)
		}()
	}

	<-ctx.Done()
	w.log.Info().Msg("worker shutting down")
	wg.Wait()
}

func (w *Worker) processQueue(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		job, err := w.queue.Dequeue(ctx, queue.QueueRender, dequeueTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.log.Error().Err(err).Msg("error dequeuing")
			time.Sleep(time.Second)
			continue
		}
		if job == nil {
			continue // No job available, retry
		}

		w.Handle(ctx, job)
	}
}

// Handle runs one queued job and records its outcome. Retryable failures
// are requeued until the attempt budget is spent.
func (w *Worker) Handle(ctx context.Context, job *queue.Job) {
	log := w.log.With().Str("job_id", job.ID.String()).Int("attempt", job.Attempt).Logger()
	log.Info().Msg("processing job")

	if err := w.store.MarkJobRunning(ctx, job.ID); err != nil {
		log.Warn().Err(err).Msg("failed to update job status")
	}

	result, err := w.renderer.RenderJob(ctx, job.ID, job.Request)
	if err == nil {
		log.Info().Str("location", result.Location()).Msg("job completed successfully")
		if err := w.store.MarkJobSucceeded(ctx, job.ID, result); err != nil {
			log.Error().Err(err).Msg("failed to record job result")
		}
		return
	}

	kind := models.KindOf(err)
	if models.IsRetryable(err) && job.Attempt < w.maxAttempts {
		log.Warn().Err(err).Str("kind", string(kind)).Msg("job failed, requeueing")
		qerr := w.queue.Requeue(ctx, job)
		if qerr == nil {
			if serr := w.store.MarkJobRetrying(ctx, job.ID, kind, err.Error()); serr != nil {
				log.Warn().Err(serr).Msg("failed to update job status")
			}
			return
		}
		log.Error().Err(qerr).Msg("failed to requeue job")
	}

	log.Error().Err(err).Str("kind", string(kind)).Msg("job failed")
	if serr := w.store.MarkJobFailed(ctx, job.ID, kind, err.Error()); serr != nil {
		log.Error().Err(serr).Msg("failed to record job failure")
	}
}
