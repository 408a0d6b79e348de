// Package provider selects the LLM backend used for classification and
// response synthesis.
package provider

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/teranos/smrt/ai/openrouter"
	"github.com/teranos/smrt/am"
	"github.com/teranos/smrt/errors"
)

// Provider names an LLM backend
type Provider string

const (
	// ProviderOpenRouter uses the OpenRouter.ai API
	ProviderOpenRouter Provider = am.ProviderOpenRouter
	// ProviderLocal uses an OpenAI-compatible local server (Ollama, LocalAI)
	ProviderLocal Provider = am.ProviderLocal
	// ProviderNone disables LLM calls; the assistant runs on heuristics only
	ProviderNone Provider = am.ProviderNone
)

// AIClient is implemented by every backend
type AIClient interface {
	Chat(ctx context.Context, req openrouter.ChatRequest) (*openrouter.ChatResponse, error)
}

// ParseProvider converts a configuration string into a Provider
func ParseProvider(s string) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "openrouter", "":
		return ProviderOpenRouter, nil
	case "local", "ollama":
		return ProviderLocal, nil
	case "none", "off":
		return ProviderNone, nil
	default:
		return "", errors.Wrapf(errors.ErrInvalidRequest, "unknown provider %q (valid: openrouter, local, none)", s)
	}
}

// NewAIClient builds the configured backend. It returns a nil client and no
// error when the provider is none or OpenRouter has no API key.
func NewAIClient(cfg *am.Config, logger *zap.SugaredLogger) (AIClient, Provider, error) {
	p, err := ParseProvider(cfg.Classifier.Provider)
	if err != nil {
		return nil, "", err
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	switch p {
	case ProviderLocal:
		return NewLocalClient(cfg.LocalInference), p, nil
	case ProviderOpenRouter:
		if cfg.OpenRouter.APIKey == "" {
			logger.Warnw("OpenRouter API key not set, falling back to heuristic classification")
			return nil, ProviderNone, nil
		}
		return openrouter.NewClient(openrouter.Config{
			APIKey:      cfg.OpenRouter.APIKey,
			Model:       cfg.OpenRouter.Model,
			Temperature: cfg.OpenRouter.Temperature,
			MaxTokens:   cfg.OpenRouter.MaxTokens,
			Timeout:     cfg.ClassifierTimeout(),
			Logger:      logger,
		}), p, nil
	default:
		return nil, ProviderNone, nil
	}
}

func seconds(n int, fallback time.Duration) time.Duration {
	if n <= 0 {
		return fallback
	}
	return time.Duration(n) * time.Second
}
