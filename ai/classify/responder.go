package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/teranos/smrt/ai/openrouter"
	"github.com/teranos/smrt/ai/provider"
	"github.com/teranos/smrt/dispatch"
	"github.com/teranos/smrt/errors"
	"github.com/teranos/smrt/logger"
)

// maxDataBytes caps the serialized result embedded in the prompt
const maxDataBytes = 8 << 10

// Responder phrases dispatch results as conversational text
type Responder struct {
	client provider.AIClient
	opts   Options
}

// NewResponder returns nil for a nil client
func NewResponder(client provider.AIClient, opts Options) *Responder {
	if client == nil {
		return nil
	}
	return &Responder{client: client, opts: opts.withDefaults("respond")}
}

// Respond generates a reply for the user's question and the data that answered it
func (r *Responder) Respond(ctx context.Context, c dispatch.Classification, data any, text string) (string, error) {
	if r == nil {
		return "", errors.Wrap(errors.ErrNotConfigured, "LLM responder")
	}

	prompt, err := respondPrompt(c, data, text)
	if err != nil {
		return "", err
	}
	content, err := call(ctx, r.client, r.opts, openrouter.ChatRequest{UserPrompt: prompt})
	if err != nil {
		logger.LoggerFromContext(ctx, r.opts.Logger).Warnw("Response synthesis failed", logger.FieldError, err)
		return "", err
	}
	return strings.TrimSpace(content), nil
}

func respondPrompt(c dispatch.Classification, data any, text string) (string, error) {
	analysis, err := json.Marshal(c)
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal classification")
	}

	results := "No data found"
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return "", errors.Wrap(err, "failed to marshal data")
		}
		if len(raw) > maxDataBytes {
			raw = append(raw[:maxDataBytes], "...(truncated)"...)
		}
		results = string(raw)
	}

	return fmt.Sprintf(`You are a helpful inventory assistant. Generate a natural, conversational response.

User asked: %q
Query analysis: %s
Data results: %s

Be specific about the data you found. If the data is empty, say that no matching records were found.
Examples:
- "I found 3 customers in the database: John Smith, Sarah Johnson, and Mike Wilson."
- "We have 5 delivered orders out of 12 total orders."

Respond with ONLY the response text, no JSON or extra formatting.`, text, analysis, results), nil
}
