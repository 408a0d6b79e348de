package inventory

import (
	"sort"
	"strings"
)

// Row is one source record: column name to primitive value
type Row map[string]any

// RawTables is the inbound shape from ingestion, keyed by table name
type RawTables map[string][]Row

// Canonical table names
const (
	TableCustomer = "customer"
	TableOrder    = "order"
	TableDetail   = "detail"
	TableProduct  = "product"
)

// TableNames lists the canonical tables in load order
var TableNames = []string{TableCustomer, TableOrder, TableDetail, TableProduct}

var tableAliases = map[string]string{
	"customer":  TableCustomer,
	"customers": TableCustomer,
	"order":     TableOrder,
	"orders":    TableOrder,
	"inventory": TableOrder,
	"detail":    TableDetail,
	"details":   TableDetail,
	"pricelist": TableProduct,
	"product":   TableProduct,
	"products":  TableProduct,
}

// CanonicalTable maps a source table or file name to its canonical name.
// ok is false for names that are not part of the dataset.
func CanonicalTable(name string) (string, bool) {
	canonical, ok := tableAliases[strings.ToLower(strings.TrimSpace(name))]
	return canonical, ok
}

// Normalize rewrites aliased table names to canonical ones and drops unknown tables.
// When two aliases map to the same table their rows are concatenated.
func (r RawTables) Normalize() RawTables {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make(RawTables, len(r))
	for _, name := range names {
		rows := r[name]
		canonical, ok := CanonicalTable(name)
		if !ok {
			continue
		}
		out[canonical] = append(out[canonical], rows...)
	}
	return out
}
