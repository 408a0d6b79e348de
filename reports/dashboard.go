// Package reports builds the dashboard and the plain-text business reports
// from the current store load.
package reports

import (
	"sort"
	"strings"
	"time"

	"github.com/teranos/smrt/inventory"
	"github.com/teranos/smrt/store"
)

// TopCities bounds the city distribution of the customer analytics
const TopCities = 10

// Price buckets of the inventory analytics, in display order
const (
	PriceUnder50  = "Under $50"
	Price50To100  = "$50-$100"
	Price100To200 = "$100-$200"
	PriceOver200  = "Over $200"
)

// PriceBuckets lists the price distribution keys in display order
var PriceBuckets = []string{PriceUnder50, Price50To100, Price100To200, PriceOver200}

// Count is one named tally. Lists of counts are sorted by value, then name.
type Count struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// Amount is one named money value
type Amount struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// Dashboard is the full analytics payload of one load
type Dashboard struct {
	Overview    Overview           `json:"overview"`
	Customers   CustomerAnalytics  `json:"customer_analytics"`
	Sales       SalesAnalytics     `json:"sales_analytics"`
	Inventory   InventoryAnalytics `json:"inventory_analytics"`
	Performance Performance        `json:"performance_metrics"`
	Charts      map[string]Chart   `json:"chart_data"`
}

// Overview holds the headline numbers
type Overview struct {
	TotalCustomers int       `json:"total_customers"`
	TotalOrders    int       `json:"total_orders"`
	TotalProducts  int       `json:"total_products"`
	TotalRevenue   float64   `json:"total_revenue"`
	GeneratedAt    time.Time `json:"generated_at"`
}

// CustomerAnalytics is the geographic spread of the customer table
type CustomerAnalytics struct {
	Total     int      `json:"total_customers"`
	ByState   []Count  `json:"by_state"`
	TopCities []Count  `json:"top_cities"`
	TopStates []string `json:"top_states"`
}

// SalesAnalytics covers order status and revenue
type SalesAnalytics struct {
	TotalOrders       int                `json:"total_orders"`
	TotalRevenue      float64            `json:"total_revenue"` // delivered orders only
	AverageOrderValue float64            `json:"average_order_value"`
	StatusBreakdown   []Count            `json:"order_status_breakdown"`
	RevenueByStatus   map[string]float64 `json:"revenue_by_status"`
	MonthlyRevenue    []Amount           `json:"monthly_trends"`
	UndatedOrders     int                `json:"undated_orders"`
	DeliveredRate     float64            `json:"delivered_rate"`
	PendingRate       float64            `json:"pending_rate"`
}

// InventoryAnalytics covers the product catalog
type InventoryAnalytics struct {
	TotalProducts     int            `json:"total_products"`
	CategoryBreakdown []Count        `json:"category_breakdown"`
	PriceDistribution map[string]int `json:"price_distribution"`
	AveragePrice      float64        `json:"average_price"`
	MinPrice          float64        `json:"min_price"`
	MaxPrice          float64        `json:"max_price"`
}

// Performance reports cache and index state
type Performance struct {
	CachedQueries       int       `json:"query_cache_size"`
	CacheValid          bool      `json:"cache_valid"`
	CacheTTLMinutes     float64   `json:"cache_ttl_minutes"`
	IndexedCustomers    int       `json:"indexed_customers"`
	IndexedProductTerms int       `json:"indexed_product_terms"`
	LastLoad            time.Time `json:"last_update"`
	Source              string    `json:"source"`
}

// Chart is a series ready for a front-end chart widget
type Chart struct {
	Type  string   `json:"type"`
	Title string   `json:"title"`
	Data  []Amount `json:"data"`
}

// Build assembles the dashboard from s as of now
func Build(s *store.Store, now time.Time) Dashboard {
	stats := s.Statistics()
	cache := s.CacheStatistics()
	orders := s.Orders(store.OrderFilter{}, store.Everything).Items
	products := s.Products(store.ProductFilter{}, store.Everything).Items

	d := Dashboard{
		Customers: customerAnalytics(stats.Customers),
		Sales:     salesAnalytics(stats.Orders, orders),
		Inventory: inventoryAnalytics(stats.Products, products),
		Performance: Performance{
			CachedQueries:       stats.Performance.CachedQueries,
			CacheValid:          stats.Performance.CacheValid,
			CacheTTLMinutes:     cache.TTLSeconds / 60,
			IndexedCustomers:    stats.Performance.IndexedCustomers,
			IndexedProductTerms: stats.Performance.IndexedProductTerms,
			LastLoad:            stats.Performance.LastLoad,
			Source:              s.SourceName(),
		},
	}
	d.Overview = Overview{
		TotalCustomers: stats.Customers.Total,
		TotalOrders:    stats.Orders.Total,
		TotalProducts:  stats.Products.Total,
		TotalRevenue:   d.Sales.TotalRevenue,
		GeneratedAt:    now,
	}
	d.Charts = charts(d)
	return d
}

func customerAnalytics(c store.CustomerStats) CustomerAnalytics {
	out := CustomerAnalytics{
		Total:     c.Total,
		ByState:   ranked(c.States),
		TopCities: ranked(c.Cities),
	}
	if len(out.TopCities) > TopCities {
		out.TopCities = out.TopCities[:TopCities]
	}
	for i, st := range out.ByState {
		if i == 5 {
			break
		}
		out.TopStates = append(out.TopStates, st.Name)
	}
	return out
}

func salesAnalytics(o store.OrderStats, orders []inventory.Order) SalesAnalytics {
	out := SalesAnalytics{
		TotalOrders:     o.Total,
		TotalRevenue:    o.RevenueByStatus[inventory.StatusDelivered],
		StatusBreakdown: ranked(o.ByStatus),
		RevenueByStatus: o.RevenueByStatus,
	}
	if delivered := o.ByStatus[inventory.StatusDelivered]; delivered > 0 {
		out.AverageOrderValue = out.TotalRevenue / float64(delivered)
	}
	if o.Total > 0 {
		out.DeliveredRate = percent(o.ByStatus[inventory.StatusDelivered], o.Total)
		out.PendingRate = percent(o.ByStatus[inventory.StatusPending], o.Total)
	}

	months := make(map[string]float64)
	for _, order := range orders {
		month, ok := orderMonth(order.Date)
		if !ok {
			out.UndatedOrders++
			continue
		}
		months[month] += order.Subtotal
	}
	for month, total := range months {
		out.MonthlyRevenue = append(out.MonthlyRevenue, Amount{Name: month, Value: total})
	}
	sort.Slice(out.MonthlyRevenue, func(i, j int) bool {
		return out.MonthlyRevenue[i].Name < out.MonthlyRevenue[j].Name
	})
	return out
}

func inventoryAnalytics(p store.ProductStats, products []inventory.Product) InventoryAnalytics {
	out := InventoryAnalytics{
		TotalProducts:     p.Total,
		CategoryBreakdown: ranked(p.Categories),
		PriceDistribution: make(map[string]int, len(PriceBuckets)),
		AveragePrice:      p.AveragePrice,
		MinPrice:          p.MinPrice,
		MaxPrice:          p.MaxPrice,
	}
	for _, bucket := range PriceBuckets {
		out.PriceDistribution[bucket] = 0
	}
	for _, product := range products {
		out.PriceDistribution[priceBucket(product.BasePrice)]++
	}
	return out
}

func charts(d Dashboard) map[string]Chart {
	out := make(map[string]Chart)
	if len(d.Customers.ByState) > 0 {
		out["customer_distribution"] = Chart{Type: "pie", Title: "Customers by State", Data: amounts(d.Customers.ByState)}
	}
	if d.Sales.TotalOrders > 0 {
		out["order_status"] = Chart{Type: "bar", Title: "Orders by Status", Data: amounts(d.Sales.StatusBreakdown)}
	}
	if len(d.Sales.MonthlyRevenue) > 0 {
		out["revenue_trend"] = Chart{Type: "line", Title: "Revenue Trend", Data: d.Sales.MonthlyRevenue}
	}
	if len(d.Inventory.CategoryBreakdown) > 0 {
		out["product_categories"] = Chart{Type: "doughnut", Title: "Products by Category", Data: amounts(d.Inventory.CategoryBreakdown)}
	}
	return out
}

func priceBucket(price float64) string {
	switch {
	case price < 50:
		return PriceUnder50
	case price < 100:
		return Price50To100
	case price < 200:
		return Price100To200
	}
	return PriceOver200
}

// dateLayouts are the order date formats seen in exported sheets
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"1/2/2006",
	"1/2/2006 15:04",
	"1/2/2006 15:04:05",
	"01/02/2006",
	"2006/01/02",
}

// orderMonth returns the YYYY-MM of an order date
func orderMonth(date string) (string, bool) {
	date = strings.TrimSpace(date)
	if date == "" {
		return "", false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, date); err == nil {
			return t.Format("2006-01"), true
		}
	}
	return "", false
}

func ranked(m map[string]int) []Count {
	out := make([]Count, 0, len(m))
	for name, n := range m {
		out = append(out, Count{Name: name, Value: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Value != out[j].Value {
			return out[i].Value > out[j].Value
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func amounts(counts []Count) []Amount {
	out := make([]Amount, len(counts))
	for i, c := range counts {
		out[i] = Amount{Name: c.Name, Value: float64(c.Value)}
	}
	return out
}

func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total) * 100
}
