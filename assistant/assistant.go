// Package assistant answers one chat message end to end: greeting detection,
// classification, entity extraction, dispatch and response synthesis.
package assistant

import (
	"context"
	"reflect"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"

	"github.com/teranos/smrt/ai/classify"
	"github.com/teranos/smrt/dispatch"
	"github.com/teranos/smrt/errors"
	"github.com/teranos/smrt/extract"
	"github.com/teranos/smrt/inventory"
	"github.com/teranos/smrt/logger"
	"github.com/teranos/smrt/store"
)

// Reply statuses
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// QueryGreeting is the query type of canned greetings
const QueryGreeting = "greeting"

const (
	greetingMessage = "Hello! I'm your SMRT Inventory Bot. I can help you with customer information, " +
		"order history, and product inventory. What would you like to know?"
	failureMessage = "Sorry, I encountered an error while processing your request. Please try again."

	// synthesized replies this short are treated as empty
	minSynthesizedLen = 6
)

var greetingWords = map[string]bool{"hi": true, "hello": true, "hey": true}

// Reply is the answer to one chat message
type Reply struct {
	Response  string `json:"response"`
	Status    string `json:"status"`
	QueryType string `json:"query_type"`
	DataFound bool   `json:"data_found"`
}

// Classifier reads the intent of a question
type Classifier interface {
	Available() bool
	Classify(ctx context.Context, text string, dc classify.DataContext) dispatch.Classification
}

// Responder phrases a dispatch result conversationally
type Responder interface {
	Respond(ctx context.Context, c dispatch.Classification, data any, text string) (string, error)
}

// Recorder receives per-message measurements, e.g. *metrics.Registry
type Recorder interface {
	Classified(outcome string)
	ObserveChat(d time.Duration)
}

// Options configure an Assistant. Nil Classifier and Responder run the
// keyword fallback with template messages.
type Options struct {
	Classifier Classifier
	Responder  Responder
	Extractor  extract.Extractor
	Dispatcher *dispatch.Dispatcher
	Recorder   Recorder
	Logger     *zap.SugaredLogger
}

// Assistant answers chat messages against one store
type Assistant struct {
	store      *store.Store
	classifier Classifier
	responder  Responder
	extractor  extract.Extractor
	dispatcher *dispatch.Dispatcher
	recorder   Recorder
	logger     *zap.SugaredLogger
}

// New creates an assistant over s
func New(s *store.Store, opts Options) *Assistant {
	a := &Assistant{
		store:      s,
		classifier: opts.Classifier,
		responder:  opts.Responder,
		extractor:  opts.Extractor,
		dispatcher: opts.Dispatcher,
		recorder:   opts.Recorder,
		logger:     opts.Logger,
	}
	if a.logger == nil {
		a.logger = logger.ComponentLogger("assistant")
	}
	if a.extractor == nil {
		a.extractor = extract.NewHeuristic()
	}
	if a.dispatcher == nil {
		a.dispatcher = dispatch.New(s, dispatch.Options{Logger: a.logger})
	}
	return a
}

// ClassifierAvailable reports whether an LLM classifier is configured
func (a *Assistant) ClassifierAvailable() bool {
	return a.classifier != nil && a.classifier.Available()
}

// Ask answers one message. Only an empty message is an error; every other
// failure is reported inside the Reply.
func (a *Assistant) Ask(ctx context.Context, message string) (Reply, error) {
	start := time.Now()
	defer func() {
		if a.recorder != nil {
			a.recorder.ObserveChat(time.Since(start))
		}
	}()

	text := strings.TrimSpace(message)
	if text == "" {
		return Reply{}, errors.NewInvalidRequestError("message cannot be empty")
	}
	log := logger.LoggerFromContext(ctx, a.logger)
	log.Infow("Received message", logger.FieldQuery, text)

	if IsGreeting(text) {
		return Reply{Response: greetingMessage, Status: StatusSuccess, QueryType: QueryGreeting, DataFound: true}, nil
	}

	vocab := a.store.Vocabulary()
	entities := a.extractor.Extract(text, vocab)

	classification := a.classify(ctx, text, vocab)
	result := a.dispatcher.Dispatch(ctx, classification, entities, text)
	if result.Failed() {
		log.Errorw("Query execution failed", logger.FieldError, result.Error)
		return Reply{Response: failureMessage, Status: StatusError, QueryType: StatusError}, nil
	}

	return Reply{
		Response:  a.synthesize(ctx, classification, result, text),
		Status:    StatusSuccess,
		QueryType: result.QueryExecuted,
		DataFound: hasData(result.Data),
	}, nil
}

func (a *Assistant) classify(ctx context.Context, text string, vocab inventory.Vocabulary) dispatch.Classification {
	if !a.ClassifierAvailable() {
		a.record("unavailable")
		return dispatch.Failed(errors.Wrap(errors.ErrNotConfigured, "classifier"))
	}
	dc := classify.NewDataContext(a.store.Statistics(), vocab)
	c := a.classifier.Classify(ctx, text, dc)
	if c.Err != "" {
		logger.LoggerFromContext(ctx, a.logger).Warnw("Classification failed, using keyword routes", logger.FieldError, c.Err)
		a.record("fallback")
	} else {
		a.record("ok")
	}
	return c
}

// synthesize prefers an LLM-written reply and falls back to the template message
func (a *Assistant) synthesize(ctx context.Context, c dispatch.Classification, result dispatch.Result, text string) string {
	if a.responder == nil || c.Err != "" {
		return result.Message
	}
	reply, err := a.responder.Respond(ctx, c, result.Data, text)
	if err != nil || len(strings.TrimSpace(reply)) < minSynthesizedLen {
		return result.Message
	}
	return reply
}

func (a *Assistant) record(outcome string) {
	if a.recorder != nil {
		a.recorder.Classified(outcome)
	}
}

// IsGreeting reports whether text contains hi, hello or hey as a whole word
func IsGreeting(text string) bool {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool { return !unicode.IsLetter(r) })
	for _, w := range words {
		if greetingWords[w] {
			return true
		}
	}
	return false
}

// hasData mirrors truthiness: nil, zero numbers and empty collections are no data
func hasData(v any) bool {
	if v == nil {
		return false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array, reflect.String:
		return rv.Len() > 0
	case reflect.Pointer, reflect.Interface:
		return !rv.IsNil()
	}
	return !rv.IsZero()
}
