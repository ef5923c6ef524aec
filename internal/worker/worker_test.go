package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bobarin/reelsmith/internal/models"
	"github.com/bobarin/reelsmith/internal/queue"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type fakeStore struct {
	running   int
	succeeded *models.RenderResult
	retrying  models.ErrorKind
	failed    models.ErrorKind
}

func (s *fakeStore) MarkJobRunning(ctx context.Context, id uuid.UUID) error {
	s.running++
	return nil
}

func (s *fakeStore) MarkJobSucceeded(ctx context.Context, id uuid.UUID, result *models.RenderResult) error {
	s.succeeded = result
	return nil
}

func (s *fakeStore) MarkJobRetrying(ctx context.Context, id uuid.UUID, kind models.ErrorKind, message string) error {
	s.retrying = kind
	return nil
}

func (s *fakeStore) MarkJobFailed(ctx context.Context, id uuid.UUID, kind models.ErrorKind, message string) error {
	s.failed = kind
	return nil
}

type fakeQueue struct {
	requeued []*queue.Job
}

func (q *fakeQueue) Dequeue(ctx context.Context, queueName string, timeout time.Duration) (*queue.Job, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (q *fakeQueue) Requeue(ctx context.Context, job *queue.Job) error {
	next := *job
	next.Attempt++
	q.requeued = append(q.requeued, &next)
	return nil
}

type fakeRenderer struct {
	result *models.RenderResult
	err    error
}

func (r *fakeRenderer) RenderJob(ctx context.Context, jobID uuid.UUID, req models.RenderRequest) (*models.RenderResult, error) {
	return r.result, r.err
}

func newJob(attempt int) *queue.Job {
	return &queue.Job{ID: uuid.New(), Request: models.RenderRequest{Text: "x"}, Attempt: attempt}
}

func TestHandleSuccess(t *testing.T) {
	store, q := &fakeStore{}, &fakeQueue{}
	res := &models.RenderResult{URL: "https://cdn.example.com/x.mp4", Duration: 12}
	w := New(store, q, &fakeRenderer{result: res}, 3, zerolog.Nop())

	w.Handle(context.Background(), newJob(1))

	if store.running != 1 || store.succeeded != res {
		t.Errorf("expected running then succeeded, got %+v", store)
	}
	if len(q.requeued) != 0 {
		t.Errorf("unexpected requeue")
	}
}

func TestHandleRequeuesRetryable(t *testing.T) {
	store, q := &fakeStore{}, &fakeQueue{}
	err := models.NewError(models.KindUpstreamAPI, "fetch content", errors.New("502"))
	w := New(store, q, &fakeRenderer{err: err}, 3, zerolog.Nop())

	w.Handle(context.Background(), newJob(1))

	if len(q.requeued) != 1 || q.requeued[0].Attempt != 2 {
		t.Fatalf("expected requeue with attempt 2, got %+v", q.requeued)
	}
	if store.retrying != models.KindUpstreamAPI || store.failed != "" {
		t.Errorf("unexpected store state %+v", store)
	}
}

func TestHandleGivesUpAfterMaxAttempts(t *testing.T) {
	store, q := &fakeStore{}, &fakeQueue{}
	err := models.NewError(models.KindAssetDownload, "materialize assets", errors.New("no assets"))
	w := New(store, q, &fakeRenderer{err: err}, 3, zerolog.Nop())

	w.Handle(context.Background(), newJob(3))

	if len(q.requeued) != 0 {
		t.Errorf("must not requeue past the attempt budget")
	}
	if store.failed != models.KindAssetDownload {
		t.Errorf("expected failure recorded, got %+v", store)
	}
}

func TestHandleTerminalFailure(t *testing.T) {
	store, q := &fakeStore{}, &fakeQueue{}
	err := models.NewErrorDetail(models.KindEncode, "ffmpeg", errors.New("exit status 1"), "tail")
	w := New(store, q, &fakeRenderer{err: err}, 3, zerolog.Nop())

	w.Handle(context.Background(), newJob(1))

	if len(q.requeued) != 0 || store.failed != models.KindEncode {
		t.Errorf("encode failures are terminal, got %+v", store)
	}
}

func TestStartStopsOnCancel(t *testing.T) {
	w := New(&fakeStore{}, &fakeQueue{}, &fakeRenderer{}, 3, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		w.Start(ctx, 2)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
}
