// Package classify turns a free-text question into a dispatch.Classification
// using an LLM, and phrases dispatch results back into conversational text.
package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/teranos/smrt/ai/openrouter"
	"github.com/teranos/smrt/ai/provider"
	"github.com/teranos/smrt/dispatch"
	"github.com/teranos/smrt/errors"
	"github.com/teranos/smrt/inventory"
	"github.com/teranos/smrt/logger"
	"github.com/teranos/smrt/store"
)

const (
	sampleCustomers = 10
	sampleProducts  = 15

	// DefaultTimeout bounds a single LLM call
	DefaultTimeout = 30 * time.Second
)

// DataContext is the data-shape summary shown to the model
type DataContext struct {
	Records         map[string]int
	OrderStatuses   map[string]int
	Categories      map[string]int
	SampleCustomers []string
	SampleProducts  []string
}

// NewDataContext summarizes the store statistics and vocabulary
func NewDataContext(stats store.Statistics, vocab inventory.Vocabulary) DataContext {
	dc := DataContext{
		Records:       make(map[string]int, len(stats.Tables)),
		OrderStatuses: stats.Orders.ByStatus,
		Categories:    stats.Products.Categories,
	}
	for name, t := range stats.Tables {
		dc.Records[name] = t.Records
	}
	dc.SampleCustomers = head(vocab.CustomerNames, sampleCustomers)
	dc.SampleProducts = head(vocab.ProductTerms, sampleProducts)
	return dc
}

func head(s []string, n int) []string {
	if len(s) > n {
		s = s[:n]
	}
	return append([]string(nil), s...)
}

// Options configure a Classifier or Responder
type Options struct {
	Timeout time.Duration
	// Limiter bounds outbound calls. Share one between Classifier and Responder.
	Limiter *rate.Limiter
	Logger  *zap.SugaredLogger
}

// NewLimiter allows requestsPerMinute calls with a burst of one.
// Zero or negative disables limiting.
func NewLimiter(requestsPerMinute int) *rate.Limiter {
	if requestsPerMinute <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), 1)
}

func (o Options) withDefaults(component string) Options {
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.Limiter == nil {
		o.Limiter = NewLimiter(0)
	}
	if o.Logger == nil {
		o.Logger = logger.ComponentLogger(component)
	}
	return o
}

// Classifier asks an LLM for the intent of a question
type Classifier struct {
	client provider.AIClient
	opts   Options
}

// New creates a classifier. A nil client yields a classifier whose every
// result routes to the keyword fallback.
func New(client provider.AIClient, opts Options) *Classifier {
	return &Classifier{client: client, opts: opts.withDefaults("classify")}
}

// Available reports whether an LLM backend is configured
func (c *Classifier) Available() bool {
	return c != nil && c.client != nil
}

// Classify never returns an error; failures are carried in Classification.Err
func (c *Classifier) Classify(ctx context.Context, text string, dc DataContext) dispatch.Classification {
	if !c.Available() {
		return dispatch.Failed(errors.Wrap(errors.ErrNotConfigured, "LLM classifier"))
	}
	log := logger.LoggerFromContext(ctx, c.opts.Logger)

	content, err := call(ctx, c.client, c.opts, openrouter.ChatRequest{UserPrompt: classifyPrompt(text, dc)})
	if err != nil {
		log.Warnw("Classification request failed", logger.FieldError, err)
		return dispatch.Failed(err)
	}

	out, err := ParseClassification(content)
	if err != nil {
		log.Warnw("Classification response unusable", logger.FieldError, err, "content", content)
		return dispatch.Failed(err)
	}
	log.Debugw("Classified", logger.FieldIntent, out.Intent, "action", out.Action, "confidence", out.Confidence)
	return out
}

// call waits on the limiter then runs one bounded chat request
func call(ctx context.Context, client provider.AIClient, opts Options, req openrouter.ChatRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	if err := opts.Limiter.Wait(ctx); err != nil {
		return "", errors.Wrap(err, "rate limit wait")
	}
	resp, err := client.Chat(ctx, req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", errors.Wrap(errors.ErrTimeout, err.Error())
		}
		return "", err
	}
	return resp.Content, nil
}

// ParseClassification decodes a model reply, tolerating code fences and
// surrounding prose
func ParseClassification(content string) (dispatch.Classification, error) {
	body := StripCodeFence(content)
	if i, j := strings.Index(body, "{"), strings.LastIndex(body, "}"); i >= 0 && j > i {
		body = body[i : j+1]
	}

	var out dispatch.Classification
	if err := json.Unmarshal([]byte(body), &out); err != nil {
		return dispatch.Classification{}, errors.Wrap(err, "invalid JSON from classifier")
	}
	if out.Err != "" {
		return dispatch.Classification{}, errors.Newf("classifier reported: %s", out.Err)
	}
	if strings.TrimSpace(out.Intent) == "" {
		return dispatch.Classification{}, errors.New("classifier returned no intent")
	}
	out.Intent = strings.ToLower(strings.TrimSpace(out.Intent))
	out.Action = strings.ToLower(strings.TrimSpace(out.Action))
	return out, nil
}

// StripCodeFence removes a surrounding ``` or ```json fence
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func classifyPrompt(text string, dc DataContext) string {
	var b strings.Builder
	b.WriteString("You analyze questions about customers, orders and product inventory.\n\n")
	b.WriteString("Available data:\n")
	fmt.Fprintf(&b, "- Customers: %d records\n", dc.Records[inventory.TableCustomer])
	fmt.Fprintf(&b, "- Orders: %d records\n", dc.Records[inventory.TableOrder])
	fmt.Fprintf(&b, "- Order details: %d records\n", dc.Records[inventory.TableDetail])
	fmt.Fprintf(&b, "- Products: %d records\n", dc.Records[inventory.TableProduct])
	fmt.Fprintf(&b, "Order statuses: %s\n", formatCounts(dc.OrderStatuses))
	fmt.Fprintf(&b, "Product categories: %s\n", formatCounts(dc.Categories))
	if len(dc.SampleCustomers) > 0 {
		fmt.Fprintf(&b, "Sample customers: %s\n", strings.Join(dc.SampleCustomers, ", "))
	}
	if len(dc.SampleProducts) > 0 {
		fmt.Fprintf(&b, "Sample product terms: %s\n", strings.Join(dc.SampleProducts, ", "))
	}
	fmt.Fprintf(&b, "\nUser query: %q\n\n", text)
	b.WriteString(`Respond with a JSON object:
{
  "intent": "customers|orders|products|general|count|specific_person",
  "action": "list|search|count|filter",
  "filters": {
    "customer_name": "name if specified",
    "product_category": "category if specified",
    "order_status": "status if specified",
    "product_name": "product if specified"
  },
  "response_type": "summary|detailed|count",
  "confidence": 0.0
}

Examples:
- "Show me customers" -> {"intent": "customers", "action": "list", "response_type": "summary"}
- "Tell me about John" -> {"intent": "specific_person", "action": "search", "filters": {"customer_name": "John"}, "response_type": "detailed"}
- "How many delivered orders?" -> {"intent": "orders", "action": "count", "filters": {"order_status": "delivered"}, "response_type": "count"}

Respond ONLY with valid JSON, no other text.`)
	return b.String()
}

func formatCounts(m map[string]int) string {
	if len(m) == 0 {
		return "none"
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s (%d)", k, m[k])
	}
	return strings.Join(parts, ", ")
}
