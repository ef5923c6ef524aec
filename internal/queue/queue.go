package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bobarin/reelsmith/internal/models"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

const (
	QueueRender = "queue:render"
)

type Queue struct {
	client *redis.Client
}

// Job is one queued render. Attempt counts from 1.
type Job struct {
	ID        uuid.UUID            `json:"id"`
	Request   models.RenderRequest `json:"request"`
	Attempt   int                  `json:"attempt"`
	CreatedAt time.Time            `json:"created_at"`
}

func New(redisURL string) (*Queue, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Queue{client: client}, nil
}

func (q *Queue) Close() error {
	return q.client.Close()
}

func (q *Queue) Enqueue(ctx context.Context, queueName string, job *Job) error {
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}

	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	return q.client.RPush(ctx, queueName, data).Err()
}

// Dequeue blocks up to timeout for a job. It returns nil, nil when none
// arrived.
func (q *Queue) Dequeue(ctx context.Context, queueName string, timeout time.Duration) (*Job, error) {
	result, err := q.client.BLPop(ctx, timeout, queueName).Result()
	if err == redis.Nil {
		return nil, nil // No job available
	}
	if err != nil {
		return nil, fmt.Errorf("failed to dequeue: %w", err)
	}

	if len(result) != 2 {
		return nil, fmt.Errorf("unexpected redis response")
	}

	return DecodeJob([]byte(result[1]))
}

// DecodeJob parses a queued payload.
func DecodeJob(data []byte) (*Job, error) {
	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job: %w", err)
	}
	if job.ID == uuid.Nil {
		return nil, fmt.Errorf("job has no id")
	}
	if job.Attempt <= 0 {
		job.Attempt = 1
	}
	return &job, nil
}

func (q *Queue) GetQueueLength(ctx context.Context, queueName string) (int64, error) {
	return q.client.LLen(ctx, queueName).Result()
}

// EnqueueRender enqueues the first attempt of a render job
func (q *Queue) EnqueueRender(ctx context.Context, jobID uuid.UUID, req models.RenderRequest) error {
	return q.Enqueue(ctx, QueueRender, &Job{
		ID:      jobID,
		Request: req,
		Attempt: 1,
	})
}

// Requeue puts a failed job back at the tail for another attempt.
func (q *Queue) Requeue(ctx context.Context, job *Job) error {
	next := *job
	next.Attempt++
	return q.Enqueue(ctx, QueueRender, &next)
}
