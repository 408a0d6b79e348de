package reports

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/teranos/smrt/errors"
	"github.com/teranos/smrt/inventory"
	"github.com/teranos/smrt/store"
)

var generated = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func testStore(t *testing.T) *store.Store {
	t.Helper()
	s := store.New(store.Options{Logger: zap.NewNop().Sugar()})
	s.Load(inventory.RawTables{
		"customer": {
			{"CID": "C001", "FNAME1": "Alice", "LNAME": "Smith", "STATE": "CA", "CITY": "Fresno"},
			{"CID": "C002", "FNAME1": "Bob", "LNAME": "Jones", "STATE": "NY", "CITY": "Albany"},
			{"CID": "C003", "FNAME1": "Carol", "LNAME": "Diaz", "STATE": "CA", "CITY": "Oakland"},
		},
		"order": {
			{"IID": "O1", "CID": "C001", "PIF": "Y", "SUBTOTAL": "1000", "INDATE": "2024-01-05"},
			{"IID": "O2", "CID": "C001", "PIF": "Y", "SUBTOTAL": "500", "INDATE": "2/10/2024"},
			{"IID": "O3", "CID": "C002", "PIF": "N", "SUBTOTAL": "30", "INDATE": "2024-02-20"},
			{"IID": "O4", "CID": "C003", "PIF": "N", "SUBTOTAL": "20"},
		},
		"product": {
			{"item_id": "P1", "name": "Dress Shirt", "baseprice": "3.50"},
			{"item_id": "P2", "name": "Wedding Gown", "baseprice": "250"},
			{"item_id": "P3", "name": "Wool Suit", "baseprice": "75"},
		},
	})
	return s
}

func TestBuild(t *testing.T) {
	d := Build(testStore(t), generated)

	assert.Equal(t, 3, d.Overview.TotalCustomers)
	assert.Equal(t, 4, d.Overview.TotalOrders)
	assert.Equal(t, 3, d.Overview.TotalProducts)
	assert.InDelta(t, 1500, d.Overview.TotalRevenue, 1e-9)
	assert.Equal(t, generated, d.Overview.GeneratedAt)

	assert.Equal(t, []Count{{Name: "CA", Value: 2}, {Name: "NY", Value: 1}}, d.Customers.ByState)
	assert.Equal(t, []string{"CA", "NY"}, d.Customers.TopStates)
	assert.Len(t, d.Customers.TopCities, 3)

	assert.InDelta(t, 750, d.Sales.AverageOrderValue, 1e-9)
	assert.InDelta(t, 50, d.Sales.DeliveredRate, 1e-9)
	assert.InDelta(t, 50, d.Sales.PendingRate, 1e-9)
	assert.Equal(t, []Amount{{Name: "2024-01", Value: 1000}, {Name: "2024-02", Value: 530}}, d.Sales.MonthlyRevenue)
	assert.Equal(t, 1, d.Sales.UndatedOrders)

	assert.Equal(t, map[string]int{PriceUnder50: 1, Price50To100: 1, Price100To200: 0, PriceOver200: 1}, d.Inventory.PriceDistribution)
	assert.Equal(t, []Count{{Name: inventory.DefaultCategory, Value: 3}}, d.Inventory.CategoryBreakdown)

	assert.Contains(t, d.Charts, "customer_distribution")
	assert.Contains(t, d.Charts, "revenue_trend")
	assert.Equal(t, "line", d.Charts["revenue_trend"].Type)
}

func TestBuildEmptyStore(t *testing.T) {
	d := Build(store.New(store.Options{Logger: zap.NewNop().Sugar()}), generated)
	assert.Zero(t, d.Overview.TotalOrders)
	assert.Zero(t, d.Sales.AverageOrderValue)
	assert.Empty(t, d.Charts)

	for _, kind := range Kinds {
		text, err := Text(store.New(store.Options{Logger: zap.NewNop().Sugar()}), kind, generated)
		require.NoError(t, err, kind)
		assert.NotEmpty(t, text)
	}
}

func TestText(t *testing.T) {
	s := testStore(t)

	tests := []struct {
		kind string
		want []string
	}{
		{KindExecutiveSummary, []string{"EXECUTIVE SUMMARY REPORT", "Total Revenue: $1,500.00", "Top Market: CA"}},
		{KindCustomer, []string{"CUSTOMER ANALYSIS REPORT", "CA: 2 customers (66.7%)", "CA, NY"}},
		{KindSales, []string{"SALES PERFORMANCE REPORT", "Delivered: 2 orders (50.0%) - $1,500.00 revenue", "January 2024: $1,000.00", "Growth Rate: -47.0%"}},
		{KindInventory, []string{"INVENTORY ANALYSIS REPORT", "Over $200: 1 products"}},
	}
	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			text, err := Text(s, tt.kind, generated)
			require.NoError(t, err)
			assert.Contains(t, text, "Generated: 2024-03-01T12:00:00Z")
			for _, want := range tt.want {
				assert.Contains(t, text, want)
			}
		})
	}
}

func TestTextUnknownKind(t *testing.T) {
	_, err := Text(testStore(t), "weather_report", generated)
	require.Error(t, err)
	assert.True(t, errors.IsInvalidRequestError(err))
	assert.NotEmpty(t, errors.GetAllHints(err))
}

func TestOrderMonth(t *testing.T) {
	for in, want := range map[string]string{
		"2023-11-05":          "2023-11",
		"12/01/2023":          "2023-12",
		"2023-12-24 10:00:00": "2023-12",
	} {
		got, ok := orderMonth(in)
		require.True(t, ok, in)
		assert.Equal(t, want, got)
	}
	_, ok := orderMonth("soon")
	assert.False(t, ok)
}
