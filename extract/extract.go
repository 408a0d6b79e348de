// Package extract pulls customer, product, status and number candidates out of
// free-text questions using the vocabulary of the current load.
package extract

import "github.com/teranos/smrt/inventory"

// EntityBag holds extracted candidates, each list in extraction order.
// Empty lists are valid results.
type EntityBag struct {
	CustomerNames    []string  `json:"customer_names"`
	UnknownCustomers []string  `json:"unknown_customers"`
	ProductTerms     []string  `json:"product_terms"`
	OrderStatuses    []string  `json:"order_statuses"`
	Numbers          []float64 `json:"numbers"`
}

// Extractor is a swappable entity extraction strategy
type Extractor interface {
	Extract(text string, vocab inventory.Vocabulary) EntityBag
}

// FirstCustomer returns the first known customer candidate
func (b EntityBag) FirstCustomer() (string, bool) {
	if len(b.CustomerNames) == 0 {
		return "", false
	}
	return b.CustomerNames[0], true
}

// FirstUnknown returns the first unknown customer candidate
func (b EntityBag) FirstUnknown() (string, bool) {
	if len(b.UnknownCustomers) == 0 {
		return "", false
	}
	return b.UnknownCustomers[0], true
}

// FirstStatus returns the first order status candidate
func (b EntityBag) FirstStatus() (string, bool) {
	if len(b.OrderStatuses) == 0 {
		return "", false
	}
	return b.OrderStatuses[0], true
}
