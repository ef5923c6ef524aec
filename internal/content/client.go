// Package content talks to the remote content API that supplies scenes,
// asset URLs, caption timing and style metadata for a render.
package content

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/bobarin/reelsmith/internal/models"
	"github.com/bobarin/reelsmith/internal/retry"
	"github.com/rs/zerolog"
)

// Client is an HTTP client for the content API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	policy     retry.Policy
	log        zerolog.Logger
}

func NewClient(baseURL, apiKey string, httpClient *http.Client, policy retry.Policy, log zerolog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 120 * time.Second}
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: httpClient,
		policy:     policy,
		log:        log.With().Str("component", "content").Logger(),
	}
}

// Fetch requests content for req. Transport errors and retryable statuses
// are retried per the client's policy; anything left is an upstream error.
func (c *Client) Fetch(ctx context.Context, req models.RenderRequest) (*Response, error) {
	if c.baseURL == "" {
		return nil, models.NewError(models.KindUpstreamAPI, "fetch content", fmt.Errorf("content API URL not configured"))
	}

	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, models.NewError(models.KindUpstreamAPI, "fetch content", fmt.Errorf("invalid content API URL: %w", err))
	}
	u.RawQuery = Query(req).Encode()

	var out *Response
	err = c.policy.Do(ctx, func(attempt int) error {
		resp, err := c.get(ctx, u.String())
		if err != nil {
			return err
		}
		out = resp
		return nil
	}, func(attempt int, delay time.Duration, err error) {
		c.log.Warn().Err(err).Int("attempt", attempt).Dur("backoff", delay).Msg("content API request failed, retrying")
	})
	if err != nil {
		return nil, models.NewError(models.KindUpstreamAPI, "fetch content", err)
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, rawURL string) (*Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, retry.Stop(fmt.Errorf("failed to create request: %w", err))
	}
	httpReq.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("content API returned %d: %s", resp.StatusCode, truncate(string(body), 256))
		if retry.IsRetryableStatus(resp.StatusCode) {
			return nil, err
		}
		return nil, retry.Stop(err)
	}

	var out Response
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, retry.Stop(fmt.Errorf("failed to decode content response: %w", err))
	}
	return &out, nil
}

// Query encodes the request text and every style knob for the content API.
func Query(req models.RenderRequest) url.Values {
	q := url.Values{}
	q.Set("text", req.Text)
	q.Set("language", req.Language)
	q.Set("style", req.Style)
	q.Set("transcription_format", req.TranscriptionFormat)

	if req.Animation != nil {
		q.Set("animation", formatBool(bool(*req.Animation)))
	}
	if req.VideoType != "" {
		q.Set("videoType", req.VideoType)
	}
	if req.Resolution != "" {
		q.Set("resolution", req.Resolution)
	}
	if req.Compression != "" {
		q.Set("compression", req.Compression)
	}
	if req.NoOfWords != nil {
		q.Set("noOfWords", strconv.Itoa(int(*req.NoOfWords)))
	}
	if req.FontSize != nil {
		q.Set("fontSize", strconv.Itoa(int(*req.FontSize)))
	}
	if req.ShowProgressBar != nil {
		q.Set("showProgressBar", formatBool(bool(*req.ShowProgressBar)))
	}
	if req.Watermark != nil {
		q.Set("watermark", formatBool(bool(*req.Watermark)))
	}
	if req.ColorText1 != "" {
		q.Set("colorText1", req.ColorText1)
	}
	if req.ColorText2 != "" {
		q.Set("colorText2", req.ColorText2)
	}
	if req.ColorBg != "" {
		q.Set("colorBg", req.ColorBg)
	}
	if req.PositionY != nil {
		q.Set("positionY", strconv.Itoa(int(*req.PositionY)))
	}
	return q
}

// FixtureSource serves a saved response instead of calling the API.
type FixtureSource struct {
	Response *Response
}

func (f *FixtureSource) Fetch(ctx context.Context, req models.RenderRequest) (*Response, error) {
	return f.Response, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
