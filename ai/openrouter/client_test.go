package openrouter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/smrt/errors"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClient(Config{APIKey: "test-key"})
	c.SetHTTPClient(srv.Client(), srv.URL)
	c.SetRetryDelay(time.Millisecond)
	return c
}

func reply(w http.ResponseWriter, content string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(ChatCompletionResponse{
		ID:      "test-id",
		Object:  "chat.completion",
		Model:   "test-model",
		Choices: []Choice{{Message: Message{Role: "assistant", Content: content}, FinishReason: "stop"}},
		Usage:   Usage{PromptTokens: 10, CompletionTokens: 20, TotalTokens: 30},
	})
}

func TestClient_Configuration(t *testing.T) {
	t.Run("applies default values", func(t *testing.T) {
		c := NewClient(Config{APIKey: "test-key"})
		assert.Equal(t, DefaultModel, c.config.Model)
		assert.Equal(t, 0.1, *c.config.Temperature)
		assert.Equal(t, 1000, *c.config.MaxTokens)
	})

	t.Run("preserves custom values", func(t *testing.T) {
		temp := 0.8
		tokens := 2000
		c := NewClient(Config{APIKey: "k", Model: "custom/model", Temperature: &temp, MaxTokens: &tokens})
		assert.Equal(t, "custom/model", c.config.Model)
		assert.Equal(t, 0.8, *c.config.Temperature)
		assert.Equal(t, 2000, *c.config.MaxTokens)
	})
}

func TestClient_IsConfigured(t *testing.T) {
	assert.True(t, NewClient(Config{APIKey: "test-key"}).IsConfigured())
	assert.False(t, NewClient(Config{}).IsConfigured())
}

func TestClient_Chat(t *testing.T) {
	var got ChatCompletionRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "smrt", r.Header.Get("X-Title"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		reply(w, "  We have 3 customers.  ")
	})

	resp, err := c.Chat(context.Background(), ChatRequest{
		SystemPrompt: "classify",
		UserPrompt:   "how many customers?",
	})
	require.NoError(t, err)
	assert.Equal(t, "We have 3 customers.", resp.Content)
	assert.Equal(t, 30, resp.Usage.TotalTokens)

	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "user", got.Messages[1].Role)
	assert.Equal(t, DefaultModel, got.Model)
	assert.Equal(t, 0.1, got.Temperature)
}

func TestClient_ChatOverrides(t *testing.T) {
	var got ChatCompletionRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		reply(w, "ok")
	})

	model := "other/model"
	tokens := 50
	_, err := c.Chat(context.Background(), ChatRequest{UserPrompt: "hi", Model: &model, MaxTokens: &tokens})
	require.NoError(t, err)
	assert.Equal(t, "other/model", got.Model)
	assert.Equal(t, 50, got.MaxTokens)
	require.Len(t, got.Messages, 1)
}

func TestClient_NotConfigured(t *testing.T) {
	_, err := NewClient(Config{}).Chat(context.Background(), ChatRequest{UserPrompt: "hi"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotConfigured))
}

func TestClient_RetryLogic(t *testing.T) {
	t.Run("retries server errors", func(t *testing.T) {
		var calls int32
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			if atomic.AddInt32(&calls, 1) < 3 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			reply(w, "recovered")
		})

		resp, err := c.Chat(context.Background(), ChatRequest{UserPrompt: "hi"})
		require.NoError(t, err)
		assert.Equal(t, "recovered", resp.Content)
		assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		var calls int32
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.WriteHeader(http.StatusTooManyRequests)
		})

		_, err := c.Chat(context.Background(), ChatRequest{UserPrompt: "hi"})
		require.Error(t, err)
		assert.Equal(t, int32(maxRetries), atomic.LoadInt32(&calls))
	})

	t.Run("does not retry client errors", func(t *testing.T) {
		var calls int32
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			http.Error(w, `{"error":"bad key"}`, http.StatusUnauthorized)
		})

		_, err := c.Chat(context.Background(), ChatRequest{UserPrompt: "hi"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "401")
		assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	})
}

func TestClient_ErrorHandling(t *testing.T) {
	t.Run("empty choices", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(ChatCompletionResponse{ID: "x"})
		})
		_, err := c.Chat(context.Background(), ChatRequest{UserPrompt: "hi"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no response choices")
	})

	t.Run("malformed body", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("not json"))
		})
		_, err := c.Chat(context.Background(), ChatRequest{UserPrompt: "hi"})
		require.Error(t, err)
	})
}

func TestIsRetryableError(t *testing.T) {
	assert.True(t, isRetryableError(errors.New("dial tcp: connection refused")))
	assert.True(t, isRetryableError(errors.Mark(errors.New("503"), errRetryable)))
	assert.False(t, isRetryableError(errors.New("API request failed with status 400")))
}
