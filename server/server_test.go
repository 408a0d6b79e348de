package server

import (
	"context"
	"encoding/json"
	"math"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/teranos/smrt/assistant"
	"github.com/teranos/smrt/errors"
	"github.com/teranos/smrt/inventory"
	"github.com/teranos/smrt/store"
)

type stubSource struct {
	tables inventory.RawTables
	err    error
}

func (s *stubSource) Fetch(ctx context.Context) (inventory.RawTables, error) { return s.tables, s.err }
func (s *stubSource) Name() string                                          { return "stub" }

type refreshCounter struct {
	loaded, failed int
}

func (c *refreshCounter) Refreshed(loaded bool, err error) {
	if err != nil {
		c.failed++
		return
	}
	if loaded {
		c.loaded++
	}
}

func tables() inventory.RawTables {
	return inventory.RawTables{
		"customer": {
			{"CID": "C001", "FNAME1": "Alice", "LNAME": "Smith", "STATE": "CA", "CITY": "Fresno"},
			{"CID": "C002", "FNAME1": "Bob", "LNAME": "Jones", "STATE": "NY", "CITY": "Albany"},
		},
		"order": {
			{"IID": "O1", "CID": "C001", "PIF": "Y", "SUBTOTAL": "10", "INDATE": "2024-01-05"},
			{"IID": "O2", "CID": "C001", "PIF": "N", "SUBTOTAL": "15", "INDATE": "2024-02-05"},
		},
		"detail": {
			{"Item_ID": "D1", "IID": "O1", "price_table_item_id": "P1", "item_count": "2", "item_baseprice": "5"},
		},
		"product": {
			{"item_id": "P1", "name": "Wool Suit", "baseprice": "15"},
		},
	}
}

type fixture struct {
	server  *Server
	source  *stubSource
	refresh *refreshCounter
	handler http.Handler
	store   *store.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	src := &stubSource{tables: tables()}
	s := store.New(store.Options{Source: src, Logger: zap.NewNop().Sugar()})
	s.Load(tables())

	counter := &refreshCounter{}
	srv := New(Options{
		Store:          s,
		Assistant:      assistant.New(s, assistant.Options{Logger: zap.NewNop().Sugar()}),
		Metrics:        http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.Write([]byte("smrt_up 1\n")) }),
		Refreshes:      counter,
		AllowedOrigins: []string{"http://localhost", "https://app.example.com"},
		Now:            func() time.Time { return time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC) },
		Logger:         zap.NewNop().Sugar(),
	})
	return &fixture{server: srv, source: src, refresh: counter, handler: srv.Handler(), store: s}
}

func (f *fixture) do(t *testing.T, method, target, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	var out map[string]any
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec, out
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	rec, body := f.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "stub", body["source"])
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))
}

func TestRequestIDIsEchoed(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	assert.Equal(t, "req-42", rec.Header().Get(RequestIDHeader))
}

func TestChat(t *testing.T) {
	f := newFixture(t)

	rec, body := f.do(t, http.MethodPost, "/api/chat", `{"message":"how many customers do we have"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, "customer_count", body["query_type"])
	assert.Contains(t, body["response"], "2")

	rec, body = f.do(t, http.MethodPost, "/api/chat", `{"message":"hello"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, assistant.QueryGreeting, body["query_type"])
}

func TestChatRejectsEmptyAndMalformed(t *testing.T) {
	f := newFixture(t)

	rec, body := f.do(t, http.MethodPost, "/api/chat", `{"message":"   "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "error", body["status"])

	rec, _ = f.do(t, http.MethodPost, "/api/chat", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = f.do(t, http.MethodGet, "/api/chat", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRefresh(t *testing.T) {
	f := newFixture(t)

	rec, body := f.do(t, http.MethodPost, "/api/refresh", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["loaded"])
	assert.Equal(t, 1, f.refresh.loaded)

	f.source.err = errors.Wrap(errors.ErrServiceUnavailable, "drive offline")
	rec, _ = f.do(t, http.MethodPost, "/api/refresh", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, 1, f.refresh.failed)

	// the previous load is kept
	_, body = f.do(t, http.MethodGet, "/api/customers", "")
	assert.EqualValues(t, 2, body["total"])
}

func TestDataStatus(t *testing.T) {
	f := newFixture(t)
	rec, body := f.do(t, http.MethodGet, "/api/data-status", "")
	require.Equal(t, http.StatusOK, rec.Code)

	tbls := body["tables"].(map[string]any)
	assert.Equal(t, "loaded (2 records)", tbls["customer"])
	assert.Equal(t, "loaded (1 records)", tbls["product"])

	services := body["services"].(map[string]any)
	assert.Equal(t, "connected", services["source"])
	assert.Equal(t, "not_configured", services["classifier"])
	assert.Equal(t, StatusPartial, body["status"])

	dynamic := body["dynamic_data"].(map[string]any)
	assert.EqualValues(t, 2, dynamic["dynamic_customers"])
}

func TestTableEndpoints(t *testing.T) {
	f := newFixture(t)

	rec, body := f.do(t, http.MethodGet, "/api/customers?name=ali", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, body["total"])

	rec, body = f.do(t, http.MethodGet, "/api/orders?customer_id=C001&status=delivered", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, body["total"])

	rec, body = f.do(t, http.MethodGet, "/api/orders?page=2&page_size=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 2, body["total"])
	assert.Len(t, body["items"], 1)

	rec, _ = f.do(t, http.MethodGet, "/api/orders?page=-1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body = f.do(t, http.MethodGet, "/api/orders/O1/details", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, body["total"])

	rec, body = f.do(t, http.MethodGet, "/api/products?name=suit", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, body["total"])
}

func TestCustomerOrders(t *testing.T) {
	f := newFixture(t)

	rec, body := f.do(t, http.MethodGet, "/api/customers/C001/orders", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 2, body["total_orders"])

	rec, _ = f.do(t, http.MethodGet, "/api/customers/C999/orders", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSearch(t *testing.T) {
	f := newFixture(t)

	rec, body := f.do(t, http.MethodGet, "/api/search?q=alice", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["customers"], 1)

	rec, _ = f.do(t, http.MethodGet, "/api/search", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStats(t *testing.T) {
	f := newFixture(t)
	rec, body := f.do(t, http.MethodGet, "/api/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, body, "statistics")
	assert.Contains(t, body, "cache")
}

func TestReports(t *testing.T) {
	f := newFixture(t)

	rec, body := f.do(t, http.MethodGet, "/api/reports/dashboard", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "success", body["status"])
	overview := body["data"].(map[string]any)["overview"].(map[string]any)
	assert.EqualValues(t, 2, overview["total_customers"])

	rec, body = f.do(t, http.MethodGet, "/api/reports/text/sales_report", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text", body["format"])
	assert.Contains(t, body["report"], "SALES PERFORMANCE REPORT")

	rec, body = f.do(t, http.MethodGet, "/api/reports/text/weather", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NotEmpty(t, body["hints"])
}

func TestMetricsAndNotFound(t *testing.T) {
	f := newFixture(t)

	rec, _ := f.do(t, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "smrt_up")

	rec, _ = f.do(t, http.MethodGet, "/api/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWriteJSONUnencodable(t *testing.T) {
	rec := httptest.NewRecorder()
	err := writeJSON(rec, http.StatusOK, map[string]float64{"price": math.NaN()})
	require.Error(t, err)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "error", body.Status)
	assert.Contains(t, body.Error, "failed to encode JSON")
}

func TestCORS(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/chat", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestChatSocket(t *testing.T) {
	f := newFixture(t)
	ts := httptest.NewServer(f.handler)
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/chat"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(chatRequest{Message: "how many orders do we have"}))
	var reply assistant.Reply
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, assistant.StatusSuccess, reply.Status)
	assert.Equal(t, "order_count", reply.QueryType)

	require.NoError(t, conn.WriteJSON(chatRequest{Message: ""}))
	var failure chatError
	require.NoError(t, conn.ReadJSON(&failure))
	assert.Equal(t, assistant.StatusError, failure.Status)
}

func TestServeShutsDownOnCancel(t *testing.T) {
	f := newFixture(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.server.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(ShutdownTimeout + time.Second):
		t.Fatal("server did not stop")
	}
}
