package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/teranos/smrt/errors"
	"github.com/teranos/smrt/internal/httpclient"
)

const (
	// DefaultModel should match the default in am/defaults.go
	DefaultModel = "openai/gpt-4o-mini"

	// DefaultBaseURL is the OpenRouter API root
	DefaultBaseURL = "https://openrouter.ai/api/v1"

	maxRetries = 3
)

// Client is an OpenRouter chat completions client
type Client struct {
	baseURL    string
	httpClient *httpclient.SaferClient
	config     Config
	logger     *zap.SugaredLogger
	retryDelay time.Duration
}

// Config holds client configuration
type Config struct {
	APIKey      string
	Model       string
	Temperature *float64 // nil = 0.1
	MaxTokens   *int     // nil = 1000
	Timeout     time.Duration
	Logger      *zap.SugaredLogger
}

// NewClient creates a client, filling unset configuration with defaults
func NewClient(config Config) *Client {
	if config.Model == "" {
		config.Model = DefaultModel
	}
	if config.Temperature == nil {
		t := 0.1
		config.Temperature = &t
	}
	if config.MaxTokens == nil {
		n := 1000
		config.MaxTokens = &n
	}
	if config.Timeout <= 0 {
		config.Timeout = 120 * time.Second
	}

	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	return &Client{
		baseURL:    DefaultBaseURL,
		httpClient: httpclient.New(config.Timeout, httpclient.Options{}),
		config:     config,
		logger:     logger,
		retryDelay: time.Second,
	}
}

// ChatCompletionRequest is the wire body of /chat/completions
type ChatCompletionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

// ChatRequest is a single system+user exchange
type ChatRequest struct {
	SystemPrompt string
	UserPrompt   string
	Temperature  *float64
	MaxTokens    *int
	Model        *string
}

// ChatResponse is the trimmed assistant reply
type ChatResponse struct {
	Content string
	Usage   Usage
}

// Message is one chat message
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatCompletionResponse is the wire response of /chat/completions
type ChatCompletionResponse struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Created int64    `json:"created"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage"`
}

// Choice is a completion choice
type Choice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

// Usage is token accounting reported by the API
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// CreateChatCompletion sends one request without retries
func (c *Client) CreateChatCompletion(ctx context.Context, req ChatCompletionRequest) (*ChatCompletionResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	httpReq.Header.Set("X-Title", "smrt")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, errors.Wrap(err, "failed to send request")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read response")
	}
	if resp.StatusCode != http.StatusOK {
		err := errors.Newf("API request failed with status %d: %s", resp.StatusCode, string(respBody))
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return nil, errors.Mark(err, errRetryable)
		}
		return nil, err
	}

	var out ChatCompletionResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal response")
	}
	return &out, nil
}

var errRetryable = errors.New("retryable")

// Chat sends a system+user exchange, retrying transient failures
func (c *Client) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if !c.IsConfigured() {
		return nil, errors.Wrap(errors.ErrNotConfigured, "OpenRouter API key not configured")
	}

	temperature := *c.config.Temperature
	if req.Temperature != nil {
		temperature = *req.Temperature
	}
	maxTokens := *c.config.MaxTokens
	if req.MaxTokens != nil {
		maxTokens = *req.MaxTokens
	}
	model := c.config.Model
	if req.Model != nil {
		model = *req.Model
	}

	messages := []Message{{Role: "user", Content: req.UserPrompt}}
	if req.SystemPrompt != "" {
		messages = append([]Message{{Role: "system", Content: req.SystemPrompt}}, messages...)
	}
	wire := ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}

	c.logger.Debugw("AI chat request", "model", model, "temperature", temperature, "max_tokens", maxTokens)

	var resp *ChatCompletionResponse
	var err error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(attempt) * c.retryDelay
			c.logger.Debugw("Retrying OpenRouter request", "attempt", attempt, "delay", delay)
			select {
			case <-ctx.Done():
				return nil, errors.Wrap(ctx.Err(), "OpenRouter request cancelled")
			case <-time.After(delay):
			}
		}

		resp, err = c.CreateChatCompletion(ctx, wire)
		if err == nil {
			if attempt > 0 {
				c.logger.Infow("Request succeeded after retries", "attempts", attempt+1, "model", model)
			}
			break
		}

		c.logger.Warnw("OpenRouter API error", "attempt", attempt+1, "error", err, "model", model)
		if ctx.Err() != nil || !isRetryableError(err) {
			return nil, errors.Wrap(err, "OpenRouter API error")
		}
	}
	if err != nil {
		return nil, errors.Wrapf(err, "OpenRouter API error after %d attempts", maxRetries)
	}

	if len(resp.Choices) == 0 {
		return nil, errors.New("no response choices from OpenRouter")
	}

	c.logger.Debugw("OpenRouter response",
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens,
	)

	return &ChatResponse{
		Content: strings.TrimSpace(resp.Choices[0].Message.Content),
		Usage:   resp.Usage,
	}, nil
}

// isRetryableError reports network-level and rate-limit failures
func isRetryableError(err error) bool {
	if errors.Is(err, errRetryable) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		switch errno {
		case syscall.ECONNREFUSED, syscall.ECONNRESET, syscall.ETIMEDOUT:
			return true
		}
	}

	msg := strings.ToLower(err.Error())
	for _, s := range []string{
		"connection reset by peer",
		"connection refused",
		"temporary failure",
		"network is unreachable",
		"i/o timeout",
	} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

// IsConfigured reports whether an API key is present
func (c *Client) IsConfigured() bool {
	return c.config.APIKey != ""
}

// SetHTTPClient overrides the HTTP client and base URL. Test use only.
func (c *Client) SetHTTPClient(client *http.Client, baseURL string) {
	c.httpClient = httpclient.WrapClient(client)
	if baseURL != "" {
		c.baseURL = baseURL
	}
}

// SetRetryDelay overrides the base backoff between attempts. Test use only.
func (c *Client) SetRetryDelay(d time.Duration) {
	c.retryDelay = d
}
