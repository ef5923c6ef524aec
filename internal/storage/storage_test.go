package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bobarin/reelsmith/internal/retry"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var fastPolicy = retry.Policy{MaxAttempts: 3, BaseDelay: time.Millisecond, Multiplier: 2}

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "out.mp4")
	if err := os.WriteFile(p, []byte(content), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return p
}

func TestPutRender(t *testing.T) {
	jobID := uuid.New()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if r.Method != http.MethodPut {
			t.Errorf("expected PUT, got %s", r.Method)
		}
		if !strings.HasSuffix(r.URL.Path, "/storage/v1/object/videos/renders/"+jobID.String()+".mp4") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer secret" || r.Header.Get("x-upsert") != "true" {
			t.Errorf("missing headers")
		}
		body, _ := io.ReadAll(r.Body)
		if string(body) != "video-bytes" {
			t.Errorf("unexpected body %q", body)
		}
		if n == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := New(srv.URL, "secret", "videos", fastPolicy, zerolog.Nop())
	url, err := s.PutRender(context.Background(), jobID, writeTemp(t, "video-bytes"))
	if err != nil {
		t.Fatalf("PutRender: %v", err)
	}
	if url != srv.URL+"/storage/v1/object/public/videos/renders/"+jobID.String()+".mp4" {
		t.Errorf("unexpected url %s", url)
	}
	if atomic.LoadInt32(&calls) != 2 {
		t.Errorf("expected 2 attempts, got %d", calls)
	}
}

func TestUploadStopsOnClientError(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "too large", http.StatusRequestEntityTooLarge)
	}))
	defer srv.Close()

	s := New(srv.URL, "secret", "videos", fastPolicy, zerolog.Nop())
	if err := s.Upload(context.Background(), "x.mp4", []byte("x"), "video/mp4"); err == nil {
		t.Fatalf("expected error")
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Errorf("expected a single attempt, got %d", calls)
	}
}

func TestUnconfigured(t *testing.T) {
	s := New("", "", "videos", fastPolicy, zerolog.Nop())
	if s.Configured() {
		t.Fatalf("expected unconfigured storage")
	}
	if _, err := s.PutRender(context.Background(), uuid.New(), writeTemp(t, "x")); err == nil {
		t.Errorf("expected error from unconfigured storage")
	}
}
