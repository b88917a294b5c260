package tutorapi

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

	"github.com/google/uuid"

	types "github.com/uplas/uplas-backend/internal/domain"
	"github.com/uplas/uplas-backend/internal/pkg/apperr"
	"github.com/uplas/uplas-backend/internal/pkg/logger"
)

// AskRequest mirrors the tutor endpoint's request body. The remediation
// trigger posts it over HTTP rather than calling the service in-process, so
// the tutor can be deployed separately.
type AskRequest struct {
	UserID       uuid.UUID                  `json:"user_id"`
	Query        string                     `json:"query"`
	UserProfile  *types.UserProfileSnapshot `json:"user_profile_snapshot,omitempty"`
	Context      *types.TutorContext        `json:"context,omitempty"`
	LanguageCode string                     `json:"language_code,omitempty"`
}

type Client interface {
	Ask(ctx context.Context, req AskRequest) (*types.TutorResponse, error)
}

type client struct {
	log        *logger.Logger
	baseURL    string
	httpClient *http.Client
}

func NewClient(log *logger.Logger) (Client, error) {
	baseURL := strings.TrimSpace(os.Getenv("TUTOR_SERVICE_URL"))
	if baseURL == "" {
		return nil, fmt.Errorf("missing TUTOR_SERVICE_URL")
	}
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &client{
		log:        log.With("service", "TutorClient"),
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}, nil
}

func (c *client) Ask(ctx context.Context, req AskRequest) (*types.TutorResponse, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(req); err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/v1/ask-tutor", &buf)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: ask tutor: %v", apperr.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: tutor http %d: %s", apperr.ErrUpstreamUnavailable, resp.StatusCode, string(raw))
	}

	var out types.TutorResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decode tutor response: %v", apperr.ErrUpstreamUnavailable, err)
	}
	return &out, nil
}
