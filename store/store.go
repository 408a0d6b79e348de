// Package store is the indexed in-memory table store behind smrt queries.
//
// A Store owns one immutable dataset at a time. Load replaces the dataset,
// rebuilds every index and clears the query cache as a single step, so readers
// see either the old load or the new one and never a mix.
package store

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/teranos/smrt/errors"
	"github.com/teranos/smrt/inventory"
	"github.com/teranos/smrt/logger"
)

// Source fetches the raw tables of one load
type Source interface {
	Fetch(ctx context.Context) (inventory.RawTables, error)
	Name() string
}

// Observer receives cache and load events, e.g. for metrics
type Observer interface {
	CacheHit(op string)
	CacheMiss(op string)
	Loaded(summary LoadSummary)
}

// NopObserver ignores all events. Embed it to implement a subset.
type NopObserver struct{}

func (NopObserver) CacheHit(string)    {}
func (NopObserver) CacheMiss(string)   {}
func (NopObserver) Loaded(LoadSummary) {}

// Options configure a Store. Zero values select defaults.
type Options struct {
	CacheTTL        time.Duration
	CacheEntries    int
	DefaultPageSize int
	Source          Source
	FetchTimeout    time.Duration
	Observer        Observer
	Now             func() time.Time
	Logger          *zap.SugaredLogger
}

// LoadSummary describes the outcome of one load
type LoadSummary struct {
	Tables     map[string]int `json:"tables"` // rows per present table
	Skipped    map[string]int `json:"skipped,omitempty"`
	Duplicates int            `json:"duplicates,omitempty"`
	LoadedAt   time.Time      `json:"loaded_at"`
}

// TablesLoaded counts the tables present in the load
func (s LoadSummary) TablesLoaded() int {
	return len(s.Tables)
}

type snapshot struct {
	data     *inventory.Dataset
	idx      indexes
	vocab    inventory.Vocabulary
	loadedAt time.Time
}

// Store is the owned context object for one dataset
type Store struct {
	mu        sync.RWMutex
	refreshMu sync.Mutex
	snap      *snapshot

	cache    *queryCache
	observer Observer
	source   Source
	now      func() time.Time
	pageSize int
	timeout  time.Duration
	logger   *zap.SugaredLogger
}

// New creates an empty Store
func New(opts Options) *Store {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	observer := opts.Observer
	if observer == nil {
		observer = NopObserver{}
	}
	log := opts.Logger
	if log == nil {
		log = logger.ComponentLogger("store")
	}
	pageSize := opts.DefaultPageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	timeout := opts.FetchTimeout
	if timeout <= 0 {
		timeout = time.Minute
	}

	empty, _ := inventory.Parse(nil)
	return &Store{
		snap:     &snapshot{data: empty},
		cache:    newQueryCache(opts.CacheTTL, opts.CacheEntries, now),
		observer: observer,
		source:   opts.Source,
		now:      now,
		pageSize: pageSize,
		timeout:  timeout,
		logger:   log,
	}
}

// Load replaces all tables with raw, rebuilds indexes and clears the cache.
// Loading the same input twice yields identical query results.
func (s *Store) Load(raw inventory.RawTables) LoadSummary {
	data, report := inventory.Parse(raw)
	idx, vocab := buildIndexes(data)

	summary := LoadSummary{
		Tables:     make(map[string]int),
		Duplicates: report.Duplicates,
	}
	for _, table := range inventory.TableNames {
		if data.Has(table) {
			summary.Tables[table] = data.Rows(table)
		} else {
			s.logger.Warnw("Source table missing, dependent queries will scan or return empty",
				logger.FieldTable, table)
		}
		if n := report.Skipped[table]; n > 0 {
			if summary.Skipped == nil {
				summary.Skipped = make(map[string]int)
			}
			summary.Skipped[table] = n
			s.logger.Warnw("Skipped rows without identifier",
				logger.FieldTable, table,
				logger.FieldCount, n)
		}
	}
	if report.Duplicates > 0 {
		s.logger.Warnw("Dropped duplicate customer IDs", logger.FieldCount, report.Duplicates)
	}

	s.mu.Lock()
	summary.LoadedAt = s.now()
	s.snap = &snapshot{data: data, idx: idx, vocab: vocab, loadedAt: summary.LoadedAt}
	s.cache.Clear()
	s.mu.Unlock()

	s.logger.Infow("Loaded tables",
		"customers", len(data.Customers),
		"orders", len(data.Orders),
		"details", len(data.Details),
		"products", len(data.Products))
	s.observer.Loaded(summary)
	return summary
}

// Refresh fetches from the configured source and loads the result.
// It reports true when at least one table was loaded. On a fetch error the
// current load is kept. The fetch runs without holding the table lock.
func (s *Store) Refresh(ctx context.Context) (bool, error) {
	if s.source == nil {
		return false, errors.Wrap(errors.ErrNotConfigured, "store has no data source")
	}

	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	fetchCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	raw, err := s.source.Fetch(fetchCtx)
	if err != nil {
		if fetchCtx.Err() == context.DeadlineExceeded {
			err = errors.Wrap(errors.ErrTimeout, err.Error())
		}
		s.logger.Errorw("Refresh failed, keeping current data",
			logger.FieldSource, s.source.Name(),
			logger.FieldError, err)
		return false, errors.Wrapf(err, "refresh from %s", s.source.Name())
	}

	summary := s.Load(raw)
	s.logger.Infow("Refreshed",
		logger.FieldSource, s.source.Name(),
		logger.FieldCount, summary.TablesLoaded(),
		logger.FieldDurationMS, time.Since(start).Milliseconds())
	return summary.TablesLoaded() > 0, nil
}

// Close releases the loaded tables and cache. Queries on a closed store return empty results.
func (s *Store) Close() error {
	empty, _ := inventory.Parse(nil)

	s.mu.Lock()
	s.snap = &snapshot{data: empty}
	s.cache.Clear()
	s.mu.Unlock()
	return nil
}

// Table reports the row count of a table and whether it was present in the last load
func (s *Store) Table(name string) (int, bool) {
	canonical, ok := inventory.CanonicalTable(name)
	if !ok {
		return 0, false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.data.Rows(canonical), s.snap.data.Has(canonical)
}

// Vocabulary returns the extractor vocabulary of the current load
func (s *Store) Vocabulary() inventory.Vocabulary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.vocab
}

// LoadedAt returns when the current tables were loaded; zero before the first load
func (s *Store) LoadedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.loadedAt
}

// SourceName names the configured source, or "" when there is none
func (s *Store) SourceName() string {
	if s.source == nil {
		return ""
	}
	return s.source.Name()
}
