package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/uplas/uplas-backend/internal/pkg/apperr"
	"github.com/uplas/uplas-backend/internal/pkg/logger"
)

func testClient(t *testing.T, handler http.HandlerFunc) Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	t.Setenv("LLM_API_KEY", "test-key")
	t.Setenv("LLM_BASE_URL", srv.URL)
	t.Setenv("LLM_MODEL_NAME", "test-model")
	t.Setenv("LLM_MAX_RETRIES", "0")

	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	c, err := NewClient(log)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func respondWithText(t *testing.T, w http.ResponseWriter, text string) {
	t.Helper()
	resp := map[string]any{
		"output": []map[string]any{
			{
				"type": "message",
				"role": "assistant",
				"content": []map[string]any{
					{"type": "output_text", "text": text},
				},
			},
		},
		"usage": map[string]any{"input_tokens": 42, "output_tokens": 17},
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		t.Fatalf("encode response: %v", err)
	}
}

func TestGenerateStructuredResponse(t *testing.T) {
	var gotBody map[string]any
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/responses" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		respondWithText(t, w, `{"answer":"ok"}`)
	})

	schema := map[string]any{
		"type":       "object",
		"properties": map[string]any{"answer": map[string]any{"type": "string"}},
		"required":   []string{"answer"},
	}
	res, err := c.GenerateStructuredResponse(context.Background(), "system prompt", "hello", "answer_v1", schema, 512, "en-US")
	if err != nil {
		t.Fatalf("GenerateStructuredResponse: %v", err)
	}
	if res.RawText != `{"answer":"ok"}` {
		t.Fatalf("RawText = %q", res.RawText)
	}
	if res.PromptTokens != 42 || res.ResponseTokens != 17 {
		t.Fatalf("tokens = %d/%d", res.PromptTokens, res.ResponseTokens)
	}

	// The schema is embedded into the system input alongside the strict format.
	inputs := gotBody["input"].([]any)
	system := inputs[0].(map[string]any)["content"].(string)
	if !strings.Contains(system, `"answer"`) {
		t.Fatalf("schema not embedded in system prompt: %q", system)
	}
	format := gotBody["text"].(map[string]any)["format"].(map[string]any)
	if format["name"] != "answer_v1" || format["strict"] != true {
		t.Fatalf("format = %v", format)
	}
}

func TestGenerateQuotaExceeded(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})
	_, err := c.GenerateStructuredResponse(context.Background(), "s", "u", "n", map[string]any{"type": "object"}, 0, "")
	if !errors.Is(err, apperr.ErrQuotaExceeded) {
		t.Fatalf("err = %v, want ErrQuotaExceeded", err)
	}
}

func TestGenerateUpstreamUnavailable(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	_, err := c.GenerateStructuredResponse(context.Background(), "s", "u", "n", map[string]any{"type": "object"}, 0, "")
	if !errors.Is(err, apperr.ErrUpstreamUnavailable) {
		t.Fatalf("err = %v, want ErrUpstreamUnavailable", err)
	}
}

func TestGenerateContentFiltered(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"refusal": "cannot help with that"})
	})
	_, err := c.GenerateStructuredResponse(context.Background(), "s", "u", "n", map[string]any{"type": "object"}, 0, "")
	if !errors.Is(err, apperr.ErrContentFiltered) {
		t.Fatalf("err = %v, want ErrContentFiltered", err)
	}
}
