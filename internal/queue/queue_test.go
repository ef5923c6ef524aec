package queue

import (
	"encoding/json"
	"testing"

	"github.com/bobarin/reelsmith/internal/models"
	"github.com/google/uuid"
)

func TestDecodeJob(t *testing.T) {
	id := uuid.New()
	data, err := json.Marshal(Job{ID: id, Request: models.RenderRequest{Text: "hello", Style: "style_3"}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	job, err := DecodeJob(data)
	if err != nil {
		t.Fatalf("DecodeJob: %v", err)
	}
	if job.ID != id || job.Request.Text != "hello" || job.Request.Style != "style_3" {
		t.Errorf("unexpected job: %+v", job)
	}
	if job.Attempt != 1 {
		t.Errorf("missing attempt should default to 1, got %d", job.Attempt)
	}
}

func TestDecodeJobRejects(t *testing.T) {
	for _, payload := range []string{`not json`, `{"request":{"text":"x"}}`} {
		if _, err := DecodeJob([]byte(payload)); err == nil {
			t.Errorf("expected error for %q", payload)
		}
	}
}
