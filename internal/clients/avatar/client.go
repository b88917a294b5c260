package avatar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/uplas/uplas-backend/internal/pkg/apperr"
	"github.com/uplas/uplas-backend/internal/pkg/httpx"
	"github.com/uplas/uplas-backend/internal/pkg/logger"
)

// Background describes the scene behind the avatar: a catalog animation loop
// or a solid color.
type Background struct {
	Type string `json:"type"`
	ID   string `json:"id,omitempty"`
	Hex  string `json:"hex,omitempty"`
}

type SubmitRequest struct {
	AvatarID   string     `json:"avatar_id"`
	AttireID   string     `json:"attire_id"`
	Background Background `json:"background"`
	AudioURL   string     `json:"audio_url"`
	ScriptText string     `json:"script_text"`
	Language   string     `json:"language"`
}

type SubmitResult struct {
	JobID string `json:"job_id"`
}

// Job statuses reported by the avatar provider.
const (
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

type JobStatus struct {
	JobID           string  `json:"job_id"`
	Status          string  `json:"status"`
	ProgressPercent int     `json:"progress_percent"`
	VideoURL        string  `json:"video_url,omitempty"`
	ThumbnailURL    string  `json:"thumbnail_url,omitempty"`
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
	Error           string  `json:"error,omitempty"`
}

// Client talks to the third-party avatar rendering service.
type Client interface {
	SubmitJob(ctx context.Context, req SubmitRequest) (*SubmitResult, error)
	GetJob(ctx context.Context, jobID string) (*JobStatus, error)
}

type client struct {
	log        *logger.Logger
	baseURL    string
	apiKey     string
	httpClient *http.Client
	maxRetries int
}

func NewClient(log *logger.Logger) (Client, error) {
	baseURL := strings.TrimSpace(os.Getenv("AVATAR_SERVICE_BASE_URL"))
	if baseURL == "" {
		return nil, fmt.Errorf("missing AVATAR_SERVICE_BASE_URL")
	}
	apiKey := strings.TrimSpace(os.Getenv("AVATAR_SERVICE_API_KEY"))
	if apiKey == "" {
		return nil, fmt.Errorf("missing AVATAR_SERVICE_API_KEY")
	}
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &client{
		log:        log.With("service", "AvatarClient"),
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		maxRetries: 2,
	}, nil
}

type avatarHTTPError struct {
	StatusCode int
	Body       string
}

func (e *avatarHTTPError) Error() string {
	return fmt.Sprintf("avatar http %d: %s", e.StatusCode, e.Body)
}

func (e *avatarHTTPError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

func (c *client) doOnce(ctx context.Context, method, path string, body any) (*http.Response, []byte, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return resp, nil, readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, raw, &avatarHTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return resp, raw, nil
}

func (c *client) do(ctx context.Context, method, path string, body any, out any) error {
	backoff := 1 * time.Second
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		resp, raw, err := c.doOnce(ctx, method, path, body)
		if err == nil {
			if out == nil {
				return nil
			}
			if uErr := json.Unmarshal(raw, out); uErr != nil {
				return fmt.Errorf("avatar decode error: %w", uErr)
			}
			return nil
		}
		if !httpx.IsRetryableError(err) {
			return err
		}
		if attempt == c.maxRetries {
			return err
		}
		sleepFor := httpx.JitterSleep(httpx.RetryAfterDuration(resp, backoff, 10*time.Second))
		c.log.Warn("Avatar request retrying",
			"path", path,
			"attempt", attempt+1,
			"error", err.Error(),
		)
		time.Sleep(sleepFor)
		backoff *= 2
	}
	return fmt.Errorf("unreachable retry loop")
}

func (c *client) SubmitJob(ctx context.Context, req SubmitRequest) (*SubmitResult, error) {
	var out SubmitResult
	if err := c.do(ctx, "POST", "/v1/videos", req, &out); err != nil {
		return nil, fmt.Errorf("%w: submit avatar job: %v", apperr.ErrUpstreamUnavailable, err)
	}
	if strings.TrimSpace(out.JobID) == "" {
		return nil, fmt.Errorf("%w: avatar service returned no job id", apperr.ErrUpstreamUnavailable)
	}
	return &out, nil
}

func (c *client) GetJob(ctx context.Context, jobID string) (*JobStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	var out JobStatus
	if err := c.do(ctx, "GET", "/v1/videos/"+jobID, nil, &out); err != nil {
		return nil, fmt.Errorf("%w: poll avatar job: %v", apperr.ErrUpstreamUnavailable, err)
	}
	return &out, nil
}
