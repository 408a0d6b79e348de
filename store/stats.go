package store

import (
	"time"

	"github.com/teranos/smrt/inventory"
)

// TableStats describes one source table
type TableStats struct {
	Present bool     `json:"present"`
	Records int      `json:"records"`
	Columns []string `json:"columns"`
}

// Statistics summarizes the current load
type Statistics struct {
	Tables      map[string]TableStats `json:"tables"`
	Customers   CustomerStats         `json:"customers"`
	Orders      OrderStats            `json:"orders"`
	Products    ProductStats          `json:"products"`
	Performance Performance           `json:"performance"`
}

// CustomerStats summarizes the customer table
type CustomerStats struct {
	Total  int            `json:"total"`
	States map[string]int `json:"states"`
	Cities map[string]int `json:"cities"`
}

// OrderStats summarizes the order table
type OrderStats struct {
	Total            int                `json:"total"`
	ByStatus         map[string]int     `json:"by_status"`
	Revenue          float64            `json:"revenue"`
	RevenueByStatus  map[string]float64 `json:"revenue_by_status"`
	AverageSubtotal  float64            `json:"average_subtotal"`
	LineItems        int                `json:"line_items"`
	DistinctCustomer int                `json:"distinct_customers"`
}

// ProductStats summarizes the product table
type ProductStats struct {
	Total        int            `json:"total"`
	Categories   map[string]int `json:"categories"`
	AveragePrice float64        `json:"average_price"`
	MinPrice     float64        `json:"min_price"`
	MaxPrice     float64        `json:"max_price"`
}

// Performance reports index and cache state at the time of the call
type Performance struct {
	IndexedCustomers    int       `json:"indexed_customers"`
	IndexedProductTerms int       `json:"indexed_product_terms"`
	CachedQueries       int       `json:"cached_queries"`
	CacheValid          bool      `json:"cache_valid"`
	LastLoad            time.Time `json:"last_load"`
}

// CacheStatistics reports query cache state
type CacheStatistics struct {
	Entries    int       `json:"entries"`
	MaxEntries int       `json:"max_entries"`
	TTLSeconds float64   `json:"ttl_seconds"`
	Valid      bool      `json:"valid"`
	ValidFrom  time.Time `json:"valid_from"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// Statistics summarizes record counts, distributions and revenue of the current load
func (s *Store) Statistics() Statistics {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := cached(s, "statistics", map[string]any{}, func() Statistics {
		return s.computeStatisticsLocked()
	})

	// performance is never served from cache
	stats.Performance = Performance{
		IndexedCustomers:    len(s.snap.idx.customerByID),
		IndexedProductTerms: len(s.snap.idx.productTerms),
		CachedQueries:       s.cache.Len(),
		CacheValid:          s.cache.valid(),
		LastLoad:            s.snap.loadedAt,
	}
	return stats
}

// OrderStatusCounts counts every loaded order by status. Unlike a paged
// Orders call it is not bounded by MaxPageSize.
func (s *Store) OrderStatusCounts() (int, map[string]int) {
	orders := s.Statistics().Orders
	byStatus := make(map[string]int, len(orders.ByStatus))
	for status, n := range orders.ByStatus {
		byStatus[status] = n
	}
	return orders.Total, byStatus
}

// CacheStatistics reports the query cache's size and validity window
func (s *Store) CacheStatistics() CacheStatistics {
	from, until := s.cache.window()
	return CacheStatistics{
		Entries:    s.cache.Len(),
		MaxEntries: s.cache.max,
		TTLSeconds: s.cache.ttl.Seconds(),
		Valid:      s.cache.valid(),
		ValidFrom:  from,
		ExpiresAt:  until,
	}
}

func (s *Store) computeStatisticsLocked() Statistics {
	d := s.snap.data
	stats := Statistics{Tables: make(map[string]TableStats, len(inventory.TableNames))}
	for _, table := range inventory.TableNames {
		stats.Tables[table] = TableStats{
			Present: d.Has(table),
			Records: d.Rows(table),
			Columns: append([]string{}, d.Columns(table)...),
		}
	}

	stats.Customers = CustomerStats{
		Total:  len(d.Customers),
		States: make(map[string]int),
		Cities: make(map[string]int),
	}
	for _, c := range d.Customers {
		if c.State != "" {
			stats.Customers.States[c.State]++
		}
		if c.City != "" {
			stats.Customers.Cities[c.City]++
		}
	}

	stats.Orders = OrderStats{
		Total:           len(d.Orders),
		ByStatus:        make(map[string]int),
		RevenueByStatus: make(map[string]float64),
		LineItems:       len(d.Details),
	}
	customers := make(map[string]struct{})
	for _, o := range d.Orders {
		stats.Orders.ByStatus[o.Status]++
		stats.Orders.RevenueByStatus[o.Status] += o.Subtotal
		stats.Orders.Revenue += o.Subtotal
		if o.CustomerID != "" {
			customers[o.CustomerID] = struct{}{}
		}
	}
	stats.Orders.DistinctCustomer = len(customers)
	if len(d.Orders) > 0 {
		stats.Orders.AverageSubtotal = stats.Orders.Revenue / float64(len(d.Orders))
	}

	stats.Products = ProductStats{
		Total:      len(d.Products),
		Categories: make(map[string]int),
	}
	var priceSum float64
	for i, p := range d.Products {
		stats.Products.Categories[p.Category]++
		priceSum += p.BasePrice
		if i == 0 || p.BasePrice < stats.Products.MinPrice {
			stats.Products.MinPrice = p.BasePrice
		}
		if p.BasePrice > stats.Products.MaxPrice {
			stats.Products.MaxPrice = p.BasePrice
		}
	}
	if len(d.Products) > 0 {
		stats.Products.AveragePrice = priceSum / float64(len(d.Products))
	}

	return stats
}
