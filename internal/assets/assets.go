// Package assets downloads the remote media a render needs into the job's
// working directory.
package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/bobarin/reelsmith/internal/models"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultTimeout     = 60 * time.Second
	DefaultConcurrency = 8
)

// Request is one asset to fetch. Name is the local file stem; the extension
// is taken from the URL or the response content type.
type Request struct {
	URL      string
	Name     string
	Declared models.AssetType // may be empty for audio/font/logo
}

// Result is the outcome of one Request. Err is set when the asset could not
// be materialized; Path is then empty.
type Result struct {
	Request
	Path string
	Type models.AssetType
	Size int64
	Err  error
}

// OK reports whether the asset is on disk.
func (r Result) OK() bool {
	return r.Err == nil && r.Path != ""
}

// Materializer fetches remote assets with bounded concurrency.
type Materializer struct {
	client      *http.Client
	timeout     time.Duration
	concurrency int
	log         zerolog.Logger
}

func New(client *http.Client, timeout time.Duration, concurrency int, log zerolog.Logger) *Materializer {
	if client == nil {
		client = &http.Client{}
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Materializer{
		client:      client,
		timeout:     timeout,
		concurrency: concurrency,
		log:         log.With().Str("component", "assets").Logger(),
	}
}

// FetchAll downloads every request into dir. Results are in request order
// regardless of completion order. Individual failures are logged and
// reported in their Result; FetchAll itself never fails.
func (m *Materializer) FetchAll(ctx context.Context, dir string, reqs []Request) []Result {
	results := make([]Result, len(reqs))

	var g errgroup.Group
	g.SetLimit(m.concurrency)

	for i, req := range reqs {
		g.Go(func() error {
			results[i] = m.Fetch(ctx, dir, req)
			return nil
		})
	}
	g.Wait()

	var failed int
	for _, r := range results {
		if !r.OK() {
			failed++
		}
	}
	m.log.Info().Int("requested", len(reqs)).Int("failed", failed).Msg("assets materialized")

	return results
}

// Fetch downloads a single asset. Redirects are followed by the client; any
// final status other than 200 or an empty body is a failure.
func (m *Materializer) Fetch(ctx context.Context, dir string, req Request) Result {
	res := Result{Request: req}
	start := time.Now()

	path, size, contentType, err := m.download(ctx, dir, req)
	if err != nil {
		res.Err = models.NewError(models.KindAssetDownload, "fetch "+req.Name, err)
		m.log.Warn().Err(err).Str("name", req.Name).Str("url", redact(req.URL)).Msg("asset download failed")
		return res
	}

	res.Path = path
	res.Size = size
	res.Type = Classify(req.URL, contentType, req.Declared)

	m.log.Debug().
		Str("name", req.Name).
		Int64("bytes", size).
		Str("type", string(res.Type)).
		Dur("took", time.Since(start)).
		Msg("asset downloaded")

	return res
}

func (m *Materializer) download(ctx context.Context, dir string, req Request) (string, int64, string, error) {
	if req.URL == "" {
		return "", 0, "", errors.New("empty url")
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return "", 0, "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := m.client.Do(httpReq)
	if err != nil {
		return "", 0, "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return "", 0, "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	dest := filepath.Join(dir, req.Name+extension(req.URL, contentType))

	f, err := os.Create(dest)
	if err != nil {
		return "", 0, "", fmt.Errorf("failed to create file: %w", err)
	}

	n, err := io.Copy(f, resp.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(dest)
		return "", 0, "", fmt.Errorf("failed to write file: %w", err)
	}
	if n == 0 {
		os.Remove(dest)
		return "", 0, "", errors.New("downloaded file is empty")
	}

	return dest, n, contentType, nil
}

var videoExts = map[string]bool{
	".mp4": true, ".mov": true, ".webm": true, ".mkv": true, ".m4v": true, ".avi": true,
}

var imageExts = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".webp": true, ".gif": true, ".bmp": true,
}

// Classify decides whether an asset is a video or an image: by URL
// extension first, then by content type, then by what the API declared.
// Anything still unknown is treated as an image.
func Classify(rawURL, contentType string, declared models.AssetType) models.AssetType {
	ext := urlExt(rawURL)
	switch {
	case videoExts[ext]:
		return models.AssetTypeVideo
	case imageExts[ext]:
		return models.AssetTypeImage
	}

	mt, _, _ := mime.ParseMediaType(contentType)
	switch {
	case strings.HasPrefix(mt, "video/"):
		return models.AssetTypeVideo
	case strings.HasPrefix(mt, "image/"):
		return models.AssetTypeImage
	}

	if declared == models.AssetTypeVideo {
		return models.AssetTypeVideo
	}
	return models.AssetTypeImage
}

func urlExt(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(path.Ext(u.Path))
}

func extension(rawURL, contentType string) string {
	if ext := urlExt(rawURL); ext != "" && len(ext) <= 6 {
		return ext
	}
	mt, _, _ := mime.ParseMediaType(contentType)
	if exts, err := mime.ExtensionsByType(mt); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ".bin"
}

// redact drops query strings, which often carry signed tokens.
func redact(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "invalid-url"
	}
	u.RawQuery = ""
	return u.String()
}
