package store

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/teranos/smrt/inventory"
)

// SearchResult groups cross-table matches for one free-text query
type SearchResult struct {
	Query     string               `json:"query"`
	Customers []inventory.Customer `json:"customers"`
	Products  []inventory.Product  `json:"products"`
	Orders    []inventory.Order    `json:"orders"`
	Total     int                  `json:"total"`
}

// Search looks the query up in customers and products concurrently, and in
// orders when it looks like a customer ID. limit caps each table's matches.
func (s *Store) Search(ctx context.Context, query string, limit int) (SearchResult, error) {
	query = strings.TrimSpace(query)
	if limit <= 0 {
		limit = s.pageSize
	}
	page := Pagination{Page: 1, PageSize: limit}

	result := SearchResult{
		Query:     query,
		Customers: []inventory.Customer{},
		Products:  []inventory.Product{},
		Orders:    []inventory.Order{},
	}
	if query == "" {
		return result, nil
	}

	// the read lock is held by this goroutine for every worker below
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		result.Customers = s.customersLocked(CustomerFilter{Name: query}, page).Items
		return nil
	})
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		result.Products = s.productsLocked(ProductFilter{Name: query}, page).Items
		return nil
	})
	if looksLikeCustomerID(query) {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			result.Orders = s.ordersLocked(OrderFilter{CustomerID: strings.ToUpper(query)}, page).Items
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return SearchResult{}, err
	}

	result.Total = len(result.Customers) + len(result.Products) + len(result.Orders)
	return result, nil
}

// looksLikeCustomerID matches identifiers of the form C###
func looksLikeCustomerID(query string) bool {
	return len(query) == 4 && (query[0] == 'C' || query[0] == 'c')
}
