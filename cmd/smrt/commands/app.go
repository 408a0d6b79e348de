package commands

import (
	"context"

	"go.uber.org/zap"

	"github.com/teranos/smrt/ai/classify"
	"github.com/teranos/smrt/ai/provider"
	"github.com/teranos/smrt/am"
	"github.com/teranos/smrt/assistant"
	"github.com/teranos/smrt/dispatch"
	"github.com/teranos/smrt/errors"
	"github.com/teranos/smrt/ingest"
	"github.com/teranos/smrt/logger"
	"github.com/teranos/smrt/metrics"
	"github.com/teranos/smrt/store"
)

// app is the assembled runtime shared by the commands
type app struct {
	cfg       *am.Config
	metrics   *metrics.Registry
	source    ingest.Source
	store     *store.Store
	assistant *assistant.Assistant
	provider  provider.Provider
	logger    *zap.SugaredLogger
}

// newApp loads configuration and wires source, store, classifier and assistant.
// Nothing is fetched until load is called.
func newApp() (*app, error) {
	cfg, err := am.Load()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}

	log := logger.Logger.Named("smrt")
	reg := metrics.NewRegistry()

	source, err := ingest.NewSource(cfg.Data, log.Named("ingest"))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create data source")
	}

	st := store.New(store.Options{
		CacheTTL:        cfg.CacheTTL(),
		CacheEntries:    cfg.Cache.MaxEntries,
		DefaultPageSize: cfg.Query.DefaultPageSize,
		Source:          source,
		FetchTimeout:    cfg.FetchTimeout(),
		Observer:        reg,
		Logger:          log.Named("store"),
	})

	client, p, err := provider.NewAIClient(cfg, log.Named("provider"))
	if err != nil {
		source.Close()
		return nil, errors.Wrap(err, "failed to create AI client")
	}

	classifyOpts := classify.Options{
		Timeout: cfg.ClassifierTimeout(),
		Limiter: classify.NewLimiter(cfg.Classifier.RequestsPerMinute),
		Logger:  log.Named("classify"),
	}
	opts := assistant.Options{
		Classifier: classify.New(client, classifyOpts),
		Dispatcher: dispatch.New(st, dispatch.Options{Logger: log.Named("dispatch"), OnDispatch: reg.Dispatched}),
		Recorder:   reg,
		Logger:     log.Named("assistant"),
	}
	// a nil *Responder must not become a non-nil interface
	if cfg.Classifier.Synthesize {
		if r := classify.NewResponder(client, classifyOpts); r != nil {
			opts.Responder = r
		}
	}

	return &app{
		cfg:       cfg,
		metrics:   reg,
		source:    source,
		store:     st,
		assistant: assistant.New(st, opts),
		provider:  p,
		logger:    log,
	}, nil
}

// refresh reloads the store and records the outcome
func (a *app) refresh(ctx context.Context) (bool, error) {
	loaded, err := a.store.Refresh(ctx)
	a.metrics.Refreshed(loaded, err)
	return loaded, err
}

// load performs the initial fetch. A failed load leaves an empty store so
// the server can still report partial service.
func (a *app) load(ctx context.Context) error {
	loaded, err := a.refresh(ctx)
	if err != nil {
		return err
	}
	if !loaded {
		a.logger.Warnw("No tables loaded", logger.FieldSource, a.source.Name())
	}
	return nil
}

// startTriggers runs the directory watcher and Kafka trigger when configured.
// They stop when ctx is cancelled; the returned func releases them.
func (a *app) startTriggers(ctx context.Context) func() {
	var closers []func() error

	if dir, ok := a.source.(*ingest.DirSource); ok && a.cfg.Data.Watch {
		w, err := ingest.NewDirWatcher(dir.Dir(), a.refresh, a.cfg.FetchTimeout(), a.logger.Named("watcher"))
		if err != nil {
			a.logger.Warnw("Data directory watch disabled", logger.FieldError, err)
		} else {
			go w.Run(ctx)
			closers = append(closers, w.Close)
		}
	}

	if len(a.cfg.Kafka.Brokers) > 0 {
		k, err := ingest.NewKafkaTrigger(a.cfg.Kafka, a.refresh, a.cfg.FetchTimeout(), a.logger.Named("kafka"))
		if err != nil {
			a.logger.Warnw("Kafka refresh trigger disabled", logger.FieldError, err)
		} else {
			go func() {
				if err := k.Run(ctx); err != nil && ctx.Err() == nil {
					a.logger.Errorw("Kafka refresh trigger stopped", logger.FieldError, err)
				}
			}()
			closers = append(closers, k.Close)
		}
	}

	return func() {
		for _, c := range closers {
			if err := c(); err != nil {
				a.logger.Debugw("Trigger close failed", logger.FieldError, err)
			}
		}
	}
}

// close releases the store and the source
func (a *app) close() {
	a.store.Close()
	if err := a.source.Close(); err != nil {
		a.logger.Debugw("Source close failed", logger.FieldError, err)
	}
}
