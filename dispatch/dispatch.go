// Package dispatch maps a classified question onto store queries.
//
// Routes are declared as ordered tables of (intent, predicate, handler). The
// first route whose intent and predicate both hold answers the question. Every
// answer carries a display-ready message, and handler failures are converted
// into a generic error result at the dispatcher boundary.
package dispatch

import (
	"context"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/teranos/smrt/errors"
	"github.com/teranos/smrt/extract"
	"github.com/teranos/smrt/inventory"
	"github.com/teranos/smrt/logger"
	"github.com/teranos/smrt/store"
)

// ErrorMessage is shown whenever a handler fails
const ErrorMessage = "Error processing your request"

// Classification is the structured reading of a question produced by a classifier.
// A non-empty Err selects the keyword fallback routes.
type Classification struct {
	Intent       string         `json:"intent"`
	Action       string         `json:"action"`
	Filters      map[string]any `json:"filters,omitempty"`
	ResponseType string         `json:"response_type,omitempty"`
	Confidence   float64        `json:"confidence"`
	Err          string         `json:"error,omitempty"`
}

// Failed returns a classification that routes to the fallback table
func Failed(err error) Classification {
	msg := "classification failed"
	if err != nil {
		msg = err.Error()
	}
	return Classification{Intent: "general", Err: msg}
}

// Result is the outcome of one dispatch
type Result struct {
	Data          any    `json:"data"`
	Message       string `json:"message"`
	QueryExecuted string `json:"query_executed,omitempty"`
	Error         string `json:"error,omitempty"`
}

// Failed reports whether the result came from the error boundary
func (r Result) Failed() bool {
	return r.Error != ""
}

// Querier is the read surface of the table store used by handlers
type Querier interface {
	Customers(store.CustomerFilter, store.Pagination) store.Page[inventory.Customer]
	Orders(store.OrderFilter, store.Pagination) store.Page[inventory.Order]
	Products(store.ProductFilter, store.Pagination) store.Page[inventory.Product]
	CustomerOrdersDetailed(customerID string) store.CustomerOrders
	OrderStatusCounts() (int, map[string]int)
}

// Request is what predicates and handlers see
type Request struct {
	Classification Classification
	Entities       extract.EntityBag
	Text           string
	lower          string
}

// NewRequest prepares a request for routing
func NewRequest(c Classification, entities extract.EntityBag, text string) Request {
	return Request{
		Classification: c,
		Entities:       entities,
		Text:           text,
		lower:          strings.ToLower(text),
	}
}

// Contains reports whether the lower-cased question contains any of the phrases
func (r Request) Contains(phrases ...string) bool {
	for _, p := range phrases {
		if strings.Contains(r.lower, p) {
			return true
		}
	}
	return false
}

// HasWord reports whether any of the words appears as a whole word in the
// lower-cased question
func (r Request) HasWord(words ...string) bool {
	for _, field := range strings.Fields(r.lower) {
		field = strings.TrimFunc(field, func(c rune) bool { return !unicode.IsLetter(c) && !unicode.IsDigit(c) })
		for _, w := range words {
			if field == w {
				return true
			}
		}
	}
	return false
}

func (r Request) action(actions ...string) bool {
	a := strings.ToLower(r.Classification.Action)
	for _, want := range actions {
		if a == want {
			return true
		}
	}
	return false
}

// Handler answers one route
type Handler func(ctx context.Context, req Request) (Result, error)

// Route is one row of a dispatch table
type Route struct {
	Name   string
	Intent func(intent string) bool // nil matches every intent
	When   func(Request) bool       // nil always holds
	Handle Handler
}

func (r Route) matches(req Request) bool {
	if r.Intent != nil && !r.Intent(strings.ToLower(req.Classification.Intent)) {
		return false
	}
	return r.When == nil || r.When(req)
}

// Options configure a Dispatcher
type Options struct {
	Logger *zap.SugaredLogger
	// OnDispatch is called with the executed query name of every result
	OnDispatch func(query string)
}

// Dispatcher routes classified questions to store queries
type Dispatcher struct {
	q          Querier
	routes     []Route
	fallback   []Route
	logger     *zap.SugaredLogger
	onDispatch func(string)
}

// New creates a dispatcher over q with the default route tables
func New(q Querier, opts Options) *Dispatcher {
	d := &Dispatcher{
		q:          q,
		logger:     opts.Logger,
		onDispatch: opts.OnDispatch,
	}
	if d.logger == nil {
		d.logger = logger.ComponentLogger("dispatch")
	}
	if d.onDispatch == nil {
		d.onDispatch = func(string) {}
	}
	d.routes = d.intentRoutes()
	d.fallback = d.fallbackRoutes()
	return d
}

// Routes returns the intent table in evaluation order
func (d *Dispatcher) Routes() []Route {
	return append([]Route(nil), d.routes...)
}

// FallbackRoutes returns the keyword table used when classification fails
func (d *Dispatcher) FallbackRoutes() []Route {
	return append([]Route(nil), d.fallback...)
}

// Dispatch answers a question. Classifications carrying an error are sent
// through the keyword fallback routes instead of the intent table.
func (d *Dispatcher) Dispatch(ctx context.Context, c Classification, entities extract.EntityBag, text string) Result {
	req := NewRequest(c, entities, text)
	if c.Err != "" {
		d.logger.Debugw("Classification failed, using keyword routes", logger.FieldError, c.Err)
		return d.run(ctx, d.fallback, req)
	}
	return d.run(ctx, d.routes, req)
}

// DispatchFallback answers a question from entity extraction alone
func (d *Dispatcher) DispatchFallback(ctx context.Context, entities extract.EntityBag, text string) Result {
	return d.run(ctx, d.fallback, NewRequest(Failed(nil), entities, text))
}

func (d *Dispatcher) run(ctx context.Context, routes []Route, req Request) Result {
	if err := ctx.Err(); err != nil {
		return d.failure(ctx, "context", errors.Wrap(err, "dispatch cancelled"))
	}
	for _, r := range routes {
		if r.matches(req) {
			return d.invoke(ctx, r, req)
		}
	}
	return d.finish(helpResult())
}

// invoke is the error boundary: handler errors and panics become ErrorMessage
func (d *Dispatcher) invoke(ctx context.Context, r Route, req Request) (res Result) {
	defer func() {
		if p := recover(); p != nil {
			res = d.failure(ctx, r.Name, errors.Newf("handler panic: %v", p))
		}
	}()

	out, err := r.Handle(ctx, req)
	if err != nil {
		return d.failure(ctx, r.Name, err)
	}
	if out.QueryExecuted == "" {
		out.QueryExecuted = r.Name
	}
	logger.LoggerFromContext(ctx, d.logger).Debugw("Dispatched",
		"route", r.Name,
		logger.FieldIntent, req.Classification.Intent,
		logger.FieldQuery, out.QueryExecuted)
	return d.finish(out)
}

func (d *Dispatcher) finish(res Result) Result {
	if res.Message == "" {
		res.Message = helpMessage
	}
	d.onDispatch(res.QueryExecuted)
	return res
}

func (d *Dispatcher) failure(ctx context.Context, route string, err error) Result {
	logger.LoggerFromContext(ctx, d.logger).Errorw("Dispatch failed",
		"route", route,
		logger.FieldError, err)
	d.onDispatch("error")
	return Result{
		Error:   err.Error(),
		Message: ErrorMessage,
	}
}
