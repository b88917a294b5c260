package content

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/uplas/uplas-backend/internal/pkg/apperr"
	"github.com/uplas/uplas-backend/internal/pkg/logger"
)

// Topic content carries the semantic tags the tutor prompt interprets
// (<analogy/>, <difficulty/>, <visual_aid_suggestion/>, ...).
type Topic struct {
	TopicID       uuid.UUID `json:"topic_id"`
	Title         string    `json:"title"`
	TaggedContent string    `json:"tagged_content"`
}

type Lesson struct {
	Title  string  `json:"title"`
	Topics []Topic `json:"topics"`
}

type ModuleContent struct {
	ModuleID    uuid.UUID `json:"module_id"`
	ModuleTitle string    `json:"module_title"`
	Lessons     []Lesson  `json:"lessons"`
}

// TopicContent narrows module content to one topic's tagged string.
func (m *ModuleContent) TopicContent(topicID uuid.UUID) string {
	if m == nil {
		return ""
	}
	for _, lesson := range m.Lessons {
		for _, topic := range lesson.Topics {
			if topic.TopicID == topicID {
				return topic.TaggedContent
			}
		}
	}
	return ""
}

// Fetcher retrieves processed course content from the NLP content service.
type Fetcher interface {
	// FetchModule returns (nil, nil) when the module is unknown so the tutor
	// can proceed with an empty content block.
	FetchModule(ctx context.Context, moduleID uuid.UUID) (*ModuleContent, error)
}

type fetcher struct {
	log        *logger.Logger
	baseURL    string
	httpClient *http.Client
}

func NewFetcher(log *logger.Logger) (Fetcher, error) {
	baseURL := strings.TrimSpace(os.Getenv("NLP_CONTENT_SERVICE_URL"))
	if baseURL == "" {
		return nil, fmt.Errorf("missing NLP_CONTENT_SERVICE_URL")
	}
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &fetcher{
		log:        log.With("service", "ContentFetcher"),
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}, nil
}

func (f *fetcher) FetchModule(ctx context.Context, moduleID uuid.UUID) (*ModuleContent, error) {
	url := fmt.Sprintf("%s/v1/modules/%s/processed-content", f.baseURL, moduleID)
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch module content: %v", apperr.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: content service http %d: %s", apperr.ErrUpstreamUnavailable, resp.StatusCode, string(raw))
	}

	var out ModuleContent
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decode module content: %v", apperr.ErrUpstreamUnavailable, err)
	}
	return &out, nil
}
