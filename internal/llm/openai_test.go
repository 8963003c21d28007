package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visit-summary/internal/config"
)

func completionBody(content string) string {
	body, _ := json.Marshal(map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1700000000,
		"model":   "gpt-4o",
		"choices": []map[string]any{{
			"index":         0,
			"message":       map[string]string{"role": "assistant", "content": content},
			"finish_reason": "stop",
		}},
		"usage": map[string]int{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
	})
	return string(body)
}

func newTestClient(t *testing.T, h http.HandlerFunc, mutate func(*config.OpenAI)) *OpenAIClient {
	t.Helper()
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)

	cfg := config.OpenAI{
		APIKey:   "sk-test",
		Model:    "gpt-4o",
		BaseURL:  ts.URL + "/v1",
		Timeout:  5 * time.Second,
		JSONMode: true,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	return NewOpenAIClient(cfg, zerolog.Nop())
}

func TestComplete_SendsSingleNonStreamingRequest(t *testing.T) {
	var (
		calls   int
		path    string
		auth    string
		payload map[string]any
	)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		path = r.URL.Path
		auth = r.Header.Get("Authorization")
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &payload)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, completionBody(`{"ok": true}`))
	}, nil)

	got, err := c.Complete(context.Background(), []Message{
		{Role: RoleSystem, Content: "You are a clinical documentation assistant."},
		{Role: RoleUser, Content: "transcript"},
	})
	require.NoError(t, err)

	assert.Equal(t, `{"ok": true}`, got)
	assert.Equal(t, 1, calls)
	assert.Equal(t, "/v1/chat/completions", path)
	assert.Equal(t, "Bearer sk-test", auth)
	assert.Equal(t, "gpt-4o", payload["model"])
	assert.NotEqual(t, true, payload["stream"])
	assert.Equal(t, map[string]any{"type": "json_object"}, payload["response_format"])

	msgs, ok := payload["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
	assert.Equal(t, "user", msgs[1].(map[string]any)["role"])
}

func TestComplete_ZeroTemperatureIsSent(t *testing.T) {
	var payload map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &payload)
		io.WriteString(w, completionBody("{}"))
	}, func(cfg *config.OpenAI) {
		cfg.Temperature = 0
		cfg.JSONMode = false
	})

	_, err := c.Complete(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	require.NoError(t, err)

	temp, ok := payload["temperature"].(float64)
	require.True(t, ok, "temperature must be present in the request")
	assert.InDelta(t, 0, temp, 1e-9)
	assert.NotContains(t, payload, "response_format")
}

func TestComplete_UnknownRoleCoercedToUser(t *testing.T) {
	var payload struct {
		Messages []struct {
			Role string `json:"role"`
		} `json:"messages"`
	}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&payload)
		io.WriteString(w, completionBody("{}"))
	}, nil)

	_, err := c.Complete(context.Background(), []Message{{Role: "doctor", Content: "hi"}})
	require.NoError(t, err)
	require.Len(t, payload.Messages, 1)
	assert.Equal(t, "user", payload.Messages[0].Role)
}

func TestComplete_APIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"error": {"message": "Incorrect API key provided", "type": "invalid_request_error", "code": "invalid_api_key"}}`)
	}, nil)

	_, err := c.Complete(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	require.Error(t, err)

	var apiErr *openai.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.HTTPStatusCode)
	assert.Contains(t, err.Error(), "status 401")
}

func TestComplete_NoChoices(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"id": "x", "object": "chat.completion", "choices": []}`)
	}, nil)

	_, err := c.Complete(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	assert.ErrorIs(t, err, ErrNoChoices)
}

func TestComplete_Timeout(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}, func(cfg *config.OpenAI) {
		cfg.Timeout = 20 * time.Millisecond
	})

	start := time.Now()
	_, err := c.Complete(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded), "got %v", err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestRequestTemperature(t *testing.T) {
	assert.Greater(t, requestTemperature(0), float32(0))
	assert.Equal(t, float32(0.7), requestTemperature(0.7))
}
