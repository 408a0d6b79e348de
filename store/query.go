package store

import (
	"strings"

	"github.com/teranos/smrt/inventory"
)

// CustomerFilter narrows the customer table. Empty fields do not filter.
type CustomerFilter struct {
	Name string `json:"name,omitempty"` // case-insensitive substring of the full name
	ID   string `json:"id,omitempty"`
}

// OrderFilter narrows the order table. Empty fields do not filter.
type OrderFilter struct {
	CustomerID string `json:"customer_id,omitempty"`
	Status     string `json:"status,omitempty"` // Delivered or Pending, case-insensitive
}

// ProductFilter narrows the product table. An empty name matches everything.
type ProductFilter struct {
	Name string `json:"name,omitempty"`
}

// Customers returns customers matching f, in table order
func (s *Store) Customers(f CustomerFilter, p Pagination) Page[inventory.Customer] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.customersLocked(f, p)
}

// Orders returns orders matching f, in table order
func (s *Store) Orders(f OrderFilter, p Pagination) Page[inventory.Order] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ordersLocked(f, p)
}

// Products returns products whose names share a token with f.Name
func (s *Store) Products(f ProductFilter, p Pagination) Page[inventory.Product] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.productsLocked(f, p)
}

// OrderDetails returns the line items of one order
func (s *Store) OrderDetails(orderID string) []inventory.OrderDetail {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.detailsLocked(orderID)
}

func (s *Store) customersLocked(f CustomerFilter, p Pagination) Page[inventory.Customer] {
	p = p.normalize(s.pageSize)
	f.Name = strings.ToLower(strings.TrimSpace(f.Name))
	f.ID = strings.TrimSpace(f.ID)
	params := map[string]any{"name": f.Name, "id": f.ID, "page": p.Page, "page_size": p.PageSize}

	return cached(s, "customers", params, func() Page[inventory.Customer] {
		snap := s.snap
		rows := snap.data.Customers

		var matches []inventory.Customer
		switch {
		case f.ID != "":
			if snap.idx.customerByID != nil {
				if pos, ok := snap.idx.customerByID[f.ID]; ok {
					matches = []inventory.Customer{rows[pos]}
				}
			} else {
				for _, c := range rows {
					if c.ID == f.ID {
						matches = append(matches, c)
						break
					}
				}
			}
			if f.Name != "" {
				matches = filter(matches, func(c inventory.Customer) bool {
					return strings.Contains(strings.ToLower(c.Name), f.Name)
				})
			}
		case f.Name != "":
			if snap.idx.customerByLowerName != nil {
				set := positionSet{}
				for _, key := range snap.idx.customerNameKeys {
					if strings.Contains(key, f.Name) {
						set.add(snap.idx.customerByLowerName[key]...)
					}
				}
				matches = pick(rows, set.sorted())
			} else {
				matches = filter(rows, func(c inventory.Customer) bool {
					return strings.Contains(strings.ToLower(c.Name), f.Name)
				})
			}
		default:
			matches = rows
		}

		return paginate(matches, p)
	})
}

func (s *Store) ordersLocked(f OrderFilter, p Pagination) Page[inventory.Order] {
	p = p.normalize(s.pageSize)
	f.CustomerID = strings.TrimSpace(f.CustomerID)
	status, statusOK := canonicalStatus(f.Status)
	params := map[string]any{"customer_id": f.CustomerID, "status": strings.ToLower(strings.TrimSpace(f.Status)), "page": p.Page, "page_size": p.PageSize}

	return cached(s, "orders", params, func() Page[inventory.Order] {
		snap := s.snap
		rows := snap.data.Orders

		matches := rows
		if f.CustomerID != "" {
			if snap.idx.ordersByCustomerID != nil {
				matches = pick(rows, snap.idx.ordersByCustomerID[f.CustomerID])
			} else {
				matches = filter(rows, func(o inventory.Order) bool { return o.CustomerID == f.CustomerID })
			}
		}
		if strings.TrimSpace(f.Status) != "" {
			matches = filter(matches, func(o inventory.Order) bool { return statusOK && o.Status == status })
		}

		return paginate(matches, p)
	})
}

func (s *Store) productsLocked(f ProductFilter, p Pagination) Page[inventory.Product] {
	p = p.normalize(s.pageSize)
	query := strings.ToLower(strings.TrimSpace(f.Name))
	params := map[string]any{"name": query, "page": p.Page, "page_size": p.PageSize}

	return cached(s, "products", params, func() Page[inventory.Product] {
		snap := s.snap
		rows := snap.data.Products
		if query == "" {
			return paginate(rows, p)
		}
		tokens := strings.Fields(query)

		var matches []inventory.Product
		if snap.idx.productTerms != nil {
			set := positionSet{}
			for _, token := range tokens {
				set.add(snap.idx.productTerms[token]...)
				for _, key := range snap.idx.productTermKeys {
					if strings.Contains(key, token) || strings.Contains(token, key) {
						set.add(snap.idx.productTerms[key]...)
					}
				}
			}
			matches = pick(rows, set.sorted())
		} else {
			matches = filter(rows, func(pr inventory.Product) bool {
				return productNameMatches(strings.ToLower(pr.Name), query, tokens)
			})
		}

		return paginate(matches, p)
	})
}

func (s *Store) detailsLocked(orderID string) []inventory.OrderDetail {
	orderID = strings.TrimSpace(orderID)
	return cached(s, "order_details", map[string]any{"order_id": orderID}, func() []inventory.OrderDetail {
		snap := s.snap
		if snap.idx.detailsByOrderID != nil {
			return pick(snap.data.Details, snap.idx.detailsByOrderID[orderID])
		}
		return filter(snap.data.Details, func(od inventory.OrderDetail) bool { return od.OrderID == orderID })
	})
}

// productNameMatches is the scan fallback used when the term index is missing
func productNameMatches(name, query string, tokens []string) bool {
	if strings.Contains(name, query) {
		return true
	}
	for _, word := range strings.Fields(name) {
		for _, token := range tokens {
			if strings.Contains(word, token) || strings.Contains(token, word) {
				return true
			}
		}
	}
	return false
}

// canonicalStatus maps user input onto a derived order status
func canonicalStatus(status string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "delivered":
		return inventory.StatusDelivered, true
	case "pending":
		return inventory.StatusPending, true
	}
	return "", false
}

func filter[T any](rows []T, keep func(T) bool) []T {
	out := make([]T, 0)
	for _, r := range rows {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}
