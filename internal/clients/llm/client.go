package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/uplas/uplas-backend/internal/pkg/apperr"
	"github.com/uplas/uplas-backend/internal/pkg/httpx"
	"github.com/uplas/uplas-backend/internal/pkg/logger"
)

// GenerateResult carries the raw model reply. Parsing and schema validation
// are the caller's job so parse failures can be surfaced with caller-specific
// fallback copy.
type GenerateResult struct {
	RawText        string
	PromptTokens   int
	ResponseTokens int
}

// Client is the one-shot structured-response abstraction over the generative
// model provider.
type Client interface {
	// GenerateStructuredResponse asks for a single JSON object conforming to
	// the given schema. The schema descriptor is embedded both in the system
	// prompt and as a strict response format.
	GenerateStructuredResponse(ctx context.Context, system, userQuery, schemaName string, schema map[string]any, maxTokens int, language string) (GenerateResult, error)

	ModelName() string
}

type client struct {
	log        *logger.Logger
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client

	maxRetries int
}

func NewClient(log *logger.Logger) (Client, error) {
	apiKey := strings.TrimSpace(os.Getenv("LLM_API_KEY"))
	if apiKey == "" {
		return nil, fmt.Errorf("missing LLM_API_KEY")
	}

	baseURL := strings.TrimSpace(os.Getenv("LLM_BASE_URL"))
	if baseURL == "" {
		baseURL = "https://api.openai.com"
	}
	baseURL = strings.TrimRight(baseURL, "/")

	model := strings.TrimSpace(os.Getenv("LLM_MODEL_NAME"))
	if model == "" {
		model = "gpt-5.2"
	}

	timeoutSec := 60
	if v := os.Getenv("LLM_TIMEOUT_SECONDS"); v != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && parsed > 0 {
			timeoutSec = parsed
		}
	}

	maxRetries := 2
	if v := os.Getenv("LLM_MAX_RETRIES"); v != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && parsed >= 0 {
			maxRetries = parsed
		}
	}

	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	return &client{
		log:        log.With("service", "LLMClient"),
		baseURL:    baseURL,
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: time.Duration(timeoutSec) * time.Second},
		maxRetries: maxRetries,
	}, nil
}

func (c *client) ModelName() string { return c.model }

type llmHTTPError struct {
	StatusCode int
	Body       string
}

func (e *llmHTTPError) Error() string {
	return fmt.Sprintf("llm http %d: %s", e.StatusCode, e.Body)
}

func (e *llmHTTPError) HTTPStatusCode() int {
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
		return resp, raw, &llmHTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
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
				return fmt.Errorf("llm decode error: %w", uErr)
			}
			return nil
		}

		if !httpx.IsRetryableError(err) {
			return err
		}
		if attempt == c.maxRetries {
			return err
		}

		sleepFor := httpx.RetryAfterDuration(resp, backoff, 10*time.Second)
		sleepFor = httpx.JitterSleep(sleepFor)

		c.log.Warn("LLM request retrying",
			"path", path,
			"attempt", attempt+1,
			"max_retries", c.maxRetries,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)

		time.Sleep(sleepFor)
		backoff *= 2
	}

	return fmt.Errorf("unreachable retry loop")
}

type responsesRequest struct {
	Model string `json:"model"`

	Input []struct {
		Role    string `json:"role"`
		Content any    `json:"content"`
	} `json:"input"`

	Text struct {
		Format map[string]any `json:"format,omitempty"`
	} `json:"text,omitempty"`

	Temperature     float64 `json:"temperature,omitempty"`
	MaxOutputTokens int     `json:"max_output_tokens,omitempty"`
}

type responsesResponse struct {
	Output []struct {
		Type    string `json:"type"`
		Role    string `json:"role,omitempty"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text,omitempty"`
		} `json:"content,omitempty"`
	} `json:"output"`
	Refusal string `json:"refusal,omitempty"`
	Usage   struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

func extractOutputText(resp responsesResponse) string {
	var out strings.Builder
	for _, item := range resp.Output {
		if item.Type == "message" && item.Role == "assistant" {
			for _, c := range item.Content {
				if c.Type == "output_text" && c.Text != "" {
					out.WriteString(c.Text)
				}
			}
		}
	}
	return out.String()
}

func (c *client) GenerateStructuredResponse(ctx context.Context, system, userQuery, schemaName string, schema map[string]any, maxTokens int, language string) (GenerateResult, error) {
	var result GenerateResult
	if schemaName == "" {
		return result, fmt.Errorf("%w: schemaName required", apperr.ErrInvalidArgument)
	}
	if schema == nil {
		return result, fmt.Errorf("%w: schema required", apperr.ErrInvalidArgument)
	}

	schemaJSON, err := json.Marshal(schema)
	if err != nil {
		return result, fmt.Errorf("%w: marshal schema: %v", apperr.ErrInvalidArgument, err)
	}

	system = system + "\n\nYour entire response MUST be one JSON object conforming to this schema:\n" + string(schemaJSON)
	if language != "" {
		system += "\nRespond in language: " + language + "."
	}

	req := responsesRequest{
		Model: c.model,
		Input: []struct {
			Role    string `json:"role"`
			Content any    `json:"content"`
		}{
			{Role: "system", Content: system},
			{Role: "user", Content: userQuery},
		},
		Temperature:     0.2,
		MaxOutputTokens: maxTokens,
	}
	req.Text.Format = map[string]any{
		"type":   "json_schema",
		"name":   schemaName,
		"schema": schema,
		"strict": true,
	}

	var resp responsesResponse
	if err := c.do(ctx, "POST", "/v1/responses", req, &resp); err != nil {
		return result, mapProviderError(err)
	}
	if resp.Refusal != "" {
		return result, fmt.Errorf("%w: %s", apperr.ErrContentFiltered, resp.Refusal)
	}

	result.RawText = extractOutputText(resp)
	result.PromptTokens = resp.Usage.InputTokens
	result.ResponseTokens = resp.Usage.OutputTokens
	if strings.TrimSpace(result.RawText) == "" {
		return result, fmt.Errorf("%w: no output_text found in response", apperr.ErrUpstreamUnavailable)
	}
	return result, nil
}

// mapProviderError folds transport errors into the service taxonomy: 429 is a
// quota signal, everything else is an upstream outage.
func mapProviderError(err error) error {
	var httpErr *llmHTTPError
	if errors.As(err, &httpErr) {
		if httpErr.StatusCode == http.StatusTooManyRequests {
			return fmt.Errorf("%w: %v", apperr.ErrQuotaExceeded, err)
		}
	}
	return fmt.Errorf("%w: %v", apperr.ErrUpstreamUnavailable, err)
}
