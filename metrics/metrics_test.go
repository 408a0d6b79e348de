package metrics

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/smrt/errors"
	"github.com/teranos/smrt/store"
)

func TestRegistry_Observer(t *testing.T) {
	r := NewRegistry()

	r.CacheMiss("customers")
	r.CacheHit("customers")
	r.CacheHit("customers")
	assert.Equal(t, 2.0, testutil.ToFloat64(r.CacheHits.WithLabelValues("customers")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.CacheMisses.WithLabelValues("customers")))

	loadedAt := time.Unix(1700000000, 0)
	r.Loaded(store.LoadSummary{Tables: map[string]int{"customer": 3, "order": 5}, LoadedAt: loadedAt})
	assert.Equal(t, 1.0, testutil.ToFloat64(r.Loads))
	assert.Equal(t, 5.0, testutil.ToFloat64(r.TableRows.WithLabelValues("order")))
	assert.Equal(t, 1700000000.0, testutil.ToFloat64(r.LastLoad))
}

func TestRegistry_Refreshed(t *testing.T) {
	r := NewRegistry()
	r.Refreshed(true, nil)
	r.Refreshed(false, nil)
	r.Refreshed(false, errors.New("boom"))

	assert.Equal(t, 1.0, testutil.ToFloat64(r.Refreshes.WithLabelValues("loaded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.Refreshes.WithLabelValues("empty")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.Refreshes.WithLabelValues("error")))
}

func TestRegistry_Handler(t *testing.T) {
	r := NewRegistry()
	r.Dispatched("order_summary")
	r.ObserveChat(120 * time.Millisecond)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), `smrt_dispatch_total{query="order_summary"} 1`)
	assert.Contains(t, rec.Body.String(), "smrt_chat_latency_seconds_count 1")
}
