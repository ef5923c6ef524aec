package cli

import (
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bobarin/reelsmith/internal/models"
	"github.com/rs/zerolog"
)

func init() {
	logger = zerolog.Nop()
}

func TestRandomRequestIsDeterministic(t *testing.T) {
	a := randomRequest(rand.New(rand.NewSource(42)))
	b := randomRequest(rand.New(rand.NewSource(42)))
	if a.Text != b.Text || a.Style != b.Style || a.VideoType != b.VideoType || a.Language != b.Language {
		t.Errorf("same seed produced different requests: %+v vs %+v", a, b)
	}
	if a.NoOfWords == nil || *a.NoOfWords != 4 || a.ColorBg != "#FF00FF" {
		t.Errorf("fixed fields not set: %+v", a)
	}
}

func TestRunBatches(t *testing.T) {
	var inFlight, peak int32
	send := func(ctx context.Context, id int, req models.RenderRequest) stressResult {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		return stressResult{ID: id, Status: "success", Params: req}
	}

	opts := stressOptions{Requests: 7, Concurrency: 3}
	results := runBatches(context.Background(), opts, rand.New(rand.NewSource(1)), send)

	if len(results) != 7 {
		t.Fatalf("got %d results, want 7", len(results))
	}
	for i, r := range results {
		if r.ID != i+1 {
			t.Errorf("results[%d].ID = %d, want %d", i, r.ID, i+1)
		}
	}
	if peak > 3 {
		t.Errorf("peak concurrency = %d, want <= 3", peak)
	}
}

func TestRunBatchesStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	send := func(ctx context.Context, id int, req models.RenderRequest) stressResult {
		cancel()
		return stressResult{ID: id, Status: "success"}
	}

	opts := stressOptions{Requests: 6, Concurrency: 2, Pause: time.Hour}
	results := runBatches(ctx, opts, rand.New(rand.NewSource(1)), send)
	if len(results) != 2 {
		t.Errorf("got %d results, want only the first batch", len(results))
	}
}

func TestSendRender(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-API-Key") != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(models.ErrorResponse{Status: "error", Message: "Invalid or missing API key"})
			return
		}
		var req models.RenderRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Text == "fail" {
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(models.ErrorResponse{Status: "error", Message: "encode failed", Kind: "encode"})
			return
		}
		json.NewEncoder(w).Encode(models.GenerateVideoResponse{Status: "success", VideoURL: "https://cdn/x.mp4"})
	}))
	defer srv.Close()

	client := srv.Client()
	opts := stressOptions{BaseURL: srv.URL, APIKey: "secret"}

	ok := sendRender(context.Background(), client, opts, 1, models.RenderRequest{Text: "hello"})
	if ok.Status != "success" || ok.Error != nil || len(ok.Response) == 0 {
		t.Errorf("unexpected success result: %+v", ok)
	}

	failed := sendRender(context.Background(), client, opts, 2, models.RenderRequest{Text: "fail"})
	if failed.Status != "error" || failed.Error == nil {
		t.Fatalf("expected error result, got %+v", failed)
	}
	if failed.Error.Type != "API Error" || failed.Error.StatusCode != 500 || failed.Error.ServerError != "encode failed" {
		t.Errorf("unexpected error details: %+v", failed.Error)
	}

	unauth := sendRender(context.Background(), client, stressOptions{BaseURL: srv.URL}, 3, models.RenderRequest{Text: "hello"})
	if unauth.Error == nil || unauth.Error.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401, got %+v", unauth.Error)
	}

	srv.Close()
	down := sendRender(context.Background(), client, opts, 4, models.RenderRequest{Text: "hello"})
	if down.Error == nil || down.Error.Type != "Network Error" {
		t.Errorf("expected network error, got %+v", down.Error)
	}
}

func TestSummarize(t *testing.T) {
	results := []stressResult{
		{ID: 1, Status: "success", Duration: 10},
		{ID: 2, Status: "error", Duration: 1, Error: &stressError{Type: "API Error", Message: "status 500", ServerError: "encode failed"}},
		{ID: 3, Status: "success", Duration: 20},
		{ID: 4, Status: "error", Duration: 2, Error: &stressError{Type: "Network Error", Message: "connection refused"}},
		{ID: 5, Status: "error", Duration: 1, Error: &stressError{Type: "API Error", Message: "status 503"}},
	}

	s := summarize(results, 50*time.Second)

	if s.TotalRequests != 5 || s.Successful != 2 || s.Failed != 3 {
		t.Errorf("counts = %d/%d/%d", s.TotalRequests, s.Successful, s.Failed)
	}
	if s.AverageTime != 10 || s.AverageSuccess != 15 {
		t.Errorf("averages = %v, %v", s.AverageTime, s.AverageSuccess)
	}

	api := s.ErrorAnalysis["API Error"]
	if api == nil || api.Count != 2 || api.Example != "encode failed" {
		t.Fatalf("API Error group = %+v", api)
	}
	if len(api.RequestIDs) != 2 || api.RequestIDs[0] != 2 || api.RequestIDs[1] != 5 {
		t.Errorf("RequestIDs = %v", api.RequestIDs)
	}
	if g := s.ErrorAnalysis["Network Error"]; g == nil || g.Count != 1 {
		t.Errorf("Network Error group = %+v", g)
	}
}

func TestWriteResults(t *testing.T) {
	dir := t.TempDir()
	path, err := writeResults(dir, summarize(nil, time.Second))
	if err != nil {
		t.Fatalf("writeResults: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	var got stressSummary
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("results file is not JSON: %v", err)
	}
	if got.TotalRequests != 0 || got.ErrorAnalysis == nil {
		t.Errorf("unexpected summary: %+v", got)
	}
}
