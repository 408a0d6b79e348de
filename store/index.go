package store

import (
	"sort"
	"strings"

	"github.com/teranos/smrt/inventory"
)

// indexes hold row positions into the immutable tables of one load.
// A nil map means the source table was missing and lookups must scan.
type indexes struct {
	customerByLowerName map[string][]int
	customerByID        map[string]int
	productTerms        map[string][]int
	productByID         map[string]int
	ordersByCustomerID  map[string][]int
	detailsByOrderID    map[string][]int

	// sorted keys for deterministic scans
	customerNameKeys []string
	productTermKeys  []string
}

func buildIndexes(d *inventory.Dataset) (indexes, inventory.Vocabulary) {
	var idx indexes
	var vocab inventory.Vocabulary

	if d.Has(inventory.TableCustomer) {
		idx.customerByLowerName = make(map[string][]int, len(d.Customers))
		idx.customerByID = make(map[string]int, len(d.Customers))
		seenGiven := make(map[string]bool)
		for i, c := range d.Customers {
			lower := strings.ToLower(c.Name)
			if _, ok := idx.customerByLowerName[lower]; !ok && lower != "" {
				vocab.CustomerNames = append(vocab.CustomerNames, lower)
			}
			idx.customerByLowerName[lower] = append(idx.customerByLowerName[lower], i)
			idx.customerByID[c.ID] = i

			given := strings.ToLower(c.GivenName)
			if given != "" && !seenGiven[given] {
				seenGiven[given] = true
				vocab.GivenNames = append(vocab.GivenNames, given)
			}
		}
		idx.customerNameKeys = sortedKeys(idx.customerByLowerName)
	}

	if d.Has(inventory.TableProduct) {
		idx.productTerms = make(map[string][]int)
		idx.productByID = make(map[string]int, len(d.Products))
		for i, p := range d.Products {
			if p.ID != "" {
				idx.productByID[p.ID] = i
			}
			for _, token := range strings.Fields(strings.ToLower(p.Name)) {
				positions := idx.productTerms[token]
				if len(positions) == 0 {
					vocab.ProductTerms = append(vocab.ProductTerms, token)
				}
				if len(positions) > 0 && positions[len(positions)-1] == i {
					continue
				}
				idx.productTerms[token] = append(positions, i)
			}
		}
		idx.productTermKeys = sortedKeys(idx.productTerms)
	}

	if d.Has(inventory.TableOrder) {
		idx.ordersByCustomerID = make(map[string][]int)
		for i, o := range d.Orders {
			idx.ordersByCustomerID[o.CustomerID] = append(idx.ordersByCustomerID[o.CustomerID], i)
		}
	}

	if d.Has(inventory.TableDetail) {
		idx.detailsByOrderID = make(map[string][]int)
		for i, od := range d.Details {
			idx.detailsByOrderID[od.OrderID] = append(idx.detailsByOrderID[od.OrderID], i)
		}
	}

	return idx, vocab
}

func sortedKeys(m map[string][]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// positionSet collects row positions without duplicates and returns them in table order
type positionSet map[int]struct{}

func (s positionSet) add(positions ...int) {
	for _, p := range positions {
		s[p] = struct{}{}
	}
}

func (s positionSet) sorted() []int {
	out := make([]int, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	sort.Ints(out)
	return out
}

func pick[T any](rows []T, positions []int) []T {
	out := make([]T, 0, len(positions))
	for _, p := range positions {
		out = append(out, rows[p])
	}
	return out
}
