package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"time"

	"github.com/bobarin/reelsmith/internal/retry"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	// Upload timeout per attempt, generous for full-length renders
	uploadTimeout = 300 * time.Second

	// Prefix for finished renders inside the bucket
	rendersPrefix = "renders"
)

// Storage is a Supabase Storage bucket accessed over its REST API.
type Storage struct {
	url        string
	serviceKey string
	Bucket     string
	client     *http.Client
	policy     retry.Policy
	log        zerolog.Logger
}

func New(url, serviceKey, bucket string, policy retry.Policy, log zerolog.Logger) *Storage {
	return &Storage{
		url:        url,
		serviceKey: serviceKey,
		Bucket:     bucket,
		client: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		policy: policy,
		log:    log.With().Str("component", "storage").Logger(),
	}
}

// Configured reports whether uploads can be attempted at all.
func (s *Storage) Configured() bool {
	return s != nil && s.url != "" && s.serviceKey != "" && s.Bucket != ""
}

// Upload uploads data to Supabase Storage with retries and exponential backoff.
// Uses PUT with Content-Length and x-upsert for reliable large file uploads.
func (s *Storage) Upload(ctx context.Context, objectPath string, data []byte, contentType string) error {
	if !s.Configured() {
		return fmt.Errorf("storage not configured")
	}

	url := fmt.Sprintf("%s/storage/v1/object/%s/%s", s.url, s.Bucket, objectPath)

	return s.policy.Do(ctx, func(attempt int) error {
		// Each attempt gets its own timeout, bounded by the caller's ctx
		uploadCtx, cancel := context.WithTimeout(ctx, uploadTimeout)
		defer cancel()

		req, err := http.NewRequestWithContext(uploadCtx, http.MethodPut, url, bytes.NewReader(data))
		if err != nil {
			return retry.Stop(fmt.Errorf("failed to create request: %w", err))
		}

		req.Header.Set("Authorization", "Bearer "+s.serviceKey)
		req.Header.Set("Content-Type", contentType)
		req.ContentLength = int64(len(data))
		req.Header.Set("x-upsert", "true")

		resp, err := s.client.Do(req)
		if err != nil {
			err = fmt.Errorf("failed to upload: %w", err)
			if retry.IsRetryableError(err) {
				return err
			}
			return retry.Stop(err)
		}

		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated {
			if attempt > 0 {
				s.log.Info().Str("path", objectPath).Int("attempt", attempt+1).Msg("upload succeeded after retry")
			}
			return nil
		}

		err = fmt.Errorf("upload failed with status %d: %s", resp.StatusCode, truncate(string(body), 200))
		if retry.IsRetryableStatus(resp.StatusCode) {
			return err
		}
		// Non-retryable status (400, 401, 403, 404, 413, etc.)
		return retry.Stop(err)
	}, func(attempt int, delay time.Duration, err error) {
		s.log.Warn().Err(err).Str("path", objectPath).Int("attempt", attempt).Dur("backoff", delay).Msg("upload retry")
	})
}

// UploadFile uploads a file from a local path
func (s *Storage) UploadFile(ctx context.Context, objectPath, localPath string, contentType string) error {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", localPath, err)
	}

	return s.Upload(ctx, objectPath, data, contentType)
}

// PutRender uploads a finished render and returns its public URL.
func (s *Storage) PutRender(ctx context.Context, jobID uuid.UUID, localPath string) (string, error) {
	objectPath := RenderPath(jobID)
	if err := s.UploadFile(ctx, objectPath, localPath, "video/mp4"); err != nil {
		return "", err
	}
	return s.GetPublicURL(objectPath), nil
}

// GetPublicURL returns the public URL for a file
func (s *Storage) GetPublicURL(objectPath string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", s.url, s.Bucket, objectPath)
}

// RenderPath is the bucket path of a job's output.
func RenderPath(jobID uuid.UUID) string {
	return path.Join(rendersPrefix, jobID.String()+".mp4")
}

// truncate limits a string to maxLen characters for log output
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
