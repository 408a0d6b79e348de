package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/teranos/smrt/ai/openrouter"
	"github.com/teranos/smrt/am"
	"github.com/teranos/smrt/errors"
	"github.com/teranos/smrt/internal/httpclient"
)

// LocalClient talks to an OpenAI-compatible local inference server
type LocalClient struct {
	baseURL    string
	model      string
	httpClient *httpclient.SaferClient
}

// NewLocalClient creates a client for local inference. Private addresses are
// allowed since these servers normally listen on localhost.
func NewLocalClient(cfg am.LocalInferenceConfig) *LocalClient {
	allowPrivate := false
	return &LocalClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		model:   cfg.Model,
		httpClient: httpclient.New(seconds(cfg.TimeoutSeconds, 120*time.Second), httpclient.Options{
			BlockPrivateIP: &allowPrivate,
		}),
	}
}

type localRequest struct {
	Model    string               `json:"model"`
	Messages []openrouter.Message `json:"messages"`
	Stream   bool                 `json:"stream"`
	Options  *completionOpts      `json:"options,omitempty"`
}

type completionOpts struct {
	Temperature float64 `json:"temperature,omitempty"`
	MaxTokens   int     `json:"num_predict,omitempty"` // Ollama uses num_predict
}

// Chat sends one non-streaming completion request
func (lc *LocalClient) Chat(ctx context.Context, req openrouter.ChatRequest) (*openrouter.ChatResponse, error) {
	messages := make([]openrouter.Message, 0, 2)
	if req.SystemPrompt != "" {
		messages = append(messages, openrouter.Message{Role: "system", Content: req.SystemPrompt})
	}
	messages = append(messages, openrouter.Message{Role: "user", Content: req.UserPrompt})

	opts := &completionOpts{Temperature: 0.1, MaxTokens: 1000}
	if req.Temperature != nil {
		opts.Temperature = *req.Temperature
	}
	if req.MaxTokens != nil {
		opts.MaxTokens = *req.MaxTokens
	}
	model := lc.model
	if req.Model != nil {
		model = *req.Model
	}

	body, err := json.Marshal(localRequest{Model: model, Messages: messages, Options: opts})
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, lc.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := lc.httpClient.Do(httpReq)
	if err != nil {
		return nil, errors.Wrap(err, "local inference request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, errors.Newf("local inference returned status %d: %s", resp.StatusCode, string(b))
	}

	var completion openrouter.ChatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return nil, errors.Wrap(err, "failed to decode response")
	}
	if len(completion.Choices) == 0 {
		return nil, errors.New("no completion choices returned")
	}

	return &openrouter.ChatResponse{
		Content: strings.TrimSpace(completion.Choices[0].Message.Content),
		Usage:   completion.Usage,
	}, nil
}
