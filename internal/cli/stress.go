package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bobarin/reelsmith/internal/models"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var stressCmd = &cobra.Command{
	Use:   "stress",
	Short: "Load test a running render API",
	Long: `Send randomized POST /generate-video requests to a running API in
batches, then print a summary and save every result as JSON.

Examples:
  renderctl stress --url http://localhost:3000
  renderctl stress --url https://render.example.com -n 10 -c 2 --pause 5s`,
	Args: cobra.NoArgs,
	RunE: runStress,
}

func init() {
	rootCmd.AddCommand(stressCmd)

	stressCmd.Flags().String("url", "http://localhost:3000", "Base URL of the render API")
	stressCmd.Flags().String("api-key", "", "X-API-Key header (default BACKEND_API_KEY)")
	stressCmd.Flags().IntP("requests", "n", 25, "Total number of requests")
	stressCmd.Flags().IntP("concurrency", "c", 3, "Requests per batch")
	stressCmd.Flags().Duration("pause", 30*time.Second, "Pause between batches")
	stressCmd.Flags().Duration("timeout", 10*time.Minute, "Per-request timeout")
	stressCmd.Flags().String("results-dir", "stress_results", "Directory for the JSON results file")
	stressCmd.Flags().Int64("seed", 0, "Seed for request parameters (0 = time based)")
}

var (
	stressTexts = []string{
		"The future of artificial intelligence is both exciting and challenging.",
		"Climate change remains one of our greatest global challenges.",
		"Space exploration continues to push the boundaries of human knowledge.",
		"Technology has transformed how we live, work, and communicate.",
		"Renewable energy is becoming increasingly important worldwide.",
	}
	stressLanguages   = []string{"en", "hi"}
	stressStyles      = []string{string(models.Style1), string(models.Style2)}
	stressVideoTypes  = []string{"landscape", "portrait"}
	stressResolutions = []string{"720p"}
)

// stressError describes why a request failed. Type is "API Error" when the
// server answered and "Network Error" otherwise.
type stressError struct {
	Type        string `json:"type"`
	Message     string `json:"message"`
	StatusCode  int    `json:"statusCode,omitempty"`
	ServerError string `json:"serverError,omitempty"`
}

type stressResult struct {
	ID        int                  `json:"id"`
	Status    string               `json:"status"`
	Duration  float64              `json:"duration"`
	Params    models.RenderRequest `json:"params"`
	Response  json.RawMessage      `json:"response,omitempty"`
	Error     *stressError         `json:"error,omitempty"`
	Timestamp string               `json:"timestamp"`
}

type errorGroup struct {
	Count      int    `json:"count"`
	RequestIDs []int  `json:"requestIds"`
	Example    string `json:"example"`
}

type stressSummary struct {
	Timestamp      string                 `json:"timestamp"`
	TotalRequests  int                    `json:"totalRequests"`
	Successful     int                    `json:"successful"`
	Failed         int                    `json:"failed"`
	TotalTime      float64                `json:"totalTime"`
	AverageTime    float64                `json:"averageTime"`
	AverageSuccess float64                `json:"averageSuccessTime,omitempty"`
	ErrorAnalysis  map[string]*errorGroup `json:"errorAnalysis"`
	Results        []stressResult         `json:"results"`
}

type stressOptions struct {
	BaseURL     string
	APIKey      string
	Requests    int
	Concurrency int
	Pause       time.Duration
}

// sendFunc issues request number id.
type sendFunc func(ctx context.Context, id int, req models.RenderRequest) stressResult

func runStress(cmd *cobra.Command, args []string) error {
	baseURL, _ := cmd.Flags().GetString("url")
	apiKey, _ := cmd.Flags().GetString("api-key")
	requests, _ := cmd.Flags().GetInt("requests")
	concurrency, _ := cmd.Flags().GetInt("concurrency")
	pause, _ := cmd.Flags().GetDuration("pause")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	resultsDir, _ := cmd.Flags().GetString("results-dir")
	seed, _ := cmd.Flags().GetInt64("seed")

	if requests <= 0 || concurrency <= 0 {
		return fmt.Errorf("requests and concurrency must be positive")
	}
	if apiKey == "" {
		apiKey = os.Getenv("BACKEND_API_KEY")
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	opts := stressOptions{
		BaseURL:     strings.TrimRight(baseURL, "/"),
		APIKey:      apiKey,
		Requests:    requests,
		Concurrency: concurrency,
		Pause:       pause,
	}
	client := &http.Client{Timeout: timeout}
	send := func(ctx context.Context, id int, req models.RenderRequest) stressResult {
		return sendRender(ctx, client, opts, id, req)
	}

	logger.Info().
		Str("url", opts.BaseURL).
		Int("requests", requests).
		Int("concurrency", concurrency).
		Msg("starting stress test")

	start := time.Now()
	results := runBatches(cmd.Context(), opts, rand.New(rand.NewSource(seed)), send)
	summary := summarize(results, time.Since(start))

	printSummary(cmd.OutOrStdout(), summary)

	path, err := writeResults(resultsDir, summary)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "\nDetailed results saved to %s\n", path)
	return nil
}

func randomRequest(rng *rand.Rand) models.RenderRequest {
	pick := func(s []string) string { return s[rng.Intn(len(s))] }

	words := models.FlexInt(4)
	fontSize := models.FlexInt(100)
	positionY := models.FlexInt(50)
	on := models.FlexBool(true)

	return models.RenderRequest{
		Text:            pick(stressTexts),
		Language:        pick(stressLanguages),
		Style:           pick(stressStyles),
		VideoType:       pick(stressVideoTypes),
		Resolution:      pick(stressResolutions),
		NoOfWords:       &words,
		FontSize:        &fontSize,
		Animation:       &on,
		ShowProgressBar: &on,
		Watermark:       &on,
		ColorText1:      "#FFFFFF",
		ColorText2:      "#000000",
		ColorBg:         "#FF00FF",
		PositionY:       &positionY,
	}
}

// runBatches sends opts.Requests requests, opts.Concurrency at a time, and
// waits opts.Pause between batches. Results are ordered by request id.
func runBatches(ctx context.Context, opts stressOptions, rng *rand.Rand, send sendFunc) []stressResult {
	results := make([]stressResult, 0, opts.Requests)
	batches := (opts.Requests + opts.Concurrency - 1) / opts.Concurrency

	for i := 0; i < opts.Requests; i += opts.Concurrency {
		n := min(opts.Concurrency, opts.Requests-i)
		logger.Info().Int("batch", i/opts.Concurrency+1).Int("of", batches).Msg("processing batch")

		batch := make([]stressResult, n)
		g, gctx := errgroup.WithContext(ctx)
		for j := 0; j < n; j++ {
			id := i + j + 1
			req := randomRequest(rng)
			g.Go(func() error {
				batch[j] = send(gctx, id, req)
				return nil
			})
		}
		_ = g.Wait()
		results = append(results, batch...)

		if i+opts.Concurrency >= opts.Requests {
			break
		}
		logger.Info().Dur("pause", opts.Pause).Msg("waiting before next batch")
		select {
		case <-ctx.Done():
			return results
		case <-time.After(opts.Pause):
		}
	}
	return results
}

func sendRender(ctx context.Context, client *http.Client, opts stressOptions, id int, req models.RenderRequest) stressResult {
	start := time.Now()
	res := stressResult{ID: id, Params: req}
	finish := func() stressResult {
		res.Duration = time.Since(start).Seconds()
		res.Timestamp = time.Now().UTC().Format(time.RFC3339)
		return res
	}
	fail := func(e *stressError) stressResult {
		res.Status = "error"
		res.Error = e
		return finish()
	}

	body, err := json.Marshal(req)
	if err != nil {
		return fail(&stressError{Type: "Client Error", Message: err.Error()})
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, opts.BaseURL+"/generate-video", bytes.NewReader(body))
	if err != nil {
		return fail(&stressError{Type: "Client Error", Message: err.Error()})
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if opts.APIKey != "" {
		httpReq.Header.Set("X-API-Key", opts.APIKey)
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return fail(&stressError{Type: "Network Error", Message: err.Error()})
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode != http.StatusOK {
		e := &stressError{
			Type:       "API Error",
			Message:    fmt.Sprintf("request failed with status %d", resp.StatusCode),
			StatusCode: resp.StatusCode,
		}
		var errResp models.ErrorResponse
		if json.Unmarshal(data, &errResp) == nil {
			e.ServerError = errResp.Message
		}
		return fail(e)
	}

	res.Status = "success"
	if json.Valid(data) {
		res.Response = data
	}
	return finish()
}

func summarize(results []stressResult, elapsed time.Duration) stressSummary {
	s := stressSummary{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		TotalRequests: len(results),
		TotalTime:     elapsed.Seconds(),
		ErrorAnalysis: map[string]*errorGroup{},
		Results:       results,
	}

	var successTime float64
	for _, r := range results {
		if r.Status == "success" {
			s.Successful++
			successTime += r.Duration
			continue
		}
		s.Failed++
		kind := "Unknown Error"
		msg := ""
		if r.Error != nil {
			kind, msg = r.Error.Type, r.Error.Message
			if r.Error.ServerError != "" {
				msg = r.Error.ServerError
			}
		}
		g, ok := s.ErrorAnalysis[kind]
		if !ok {
			g = &errorGroup{Example: msg}
			s.ErrorAnalysis[kind] = g
		}
		g.Count++
		g.RequestIDs = append(g.RequestIDs, r.ID)
	}

	if s.TotalRequests > 0 {
		s.AverageTime = s.TotalTime / float64(s.TotalRequests)
	}
	if s.Successful > 0 {
		s.AverageSuccess = successTime / float64(s.Successful)
	}
	return s
}

func printSummary(w io.Writer, s stressSummary) {
	fmt.Fprintln(w, "\n=== Stress Test Results ===")
	fmt.Fprintf(w, "Total Requests: %d\n", s.TotalRequests)
	fmt.Fprintf(w, "Successful: %d\n", s.Successful)
	fmt.Fprintf(w, "Failed: %d\n", s.Failed)
	fmt.Fprintf(w, "Total Time: %.2f seconds\n", s.TotalTime)
	fmt.Fprintf(w, "Average Time per Request: %.2f seconds\n", s.AverageTime)
	if s.Successful > 0 {
		fmt.Fprintf(w, "Average Processing Time (successful requests): %.2f seconds\n", s.AverageSuccess)
	}

	if len(s.ErrorAnalysis) == 0 {
		return
	}
	fmt.Fprintln(w, "\n=== Error Analysis ===")
	kinds := make([]string, 0, len(s.ErrorAnalysis))
	for k := range s.ErrorAnalysis {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		g := s.ErrorAnalysis[k]
		fmt.Fprintf(w, "\n%s: %d occurrences\n", k, g.Count)
		fmt.Fprintf(w, "Example error: %s\n", g.Example)
	}
}

func writeResults(dir string, s stressSummary) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create results directory: %w", err)
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, fmt.Sprintf("stress_results_%d.json", time.Now().UnixMilli()))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write results: %w", err)
	}
	return path, nil
}
