package inventory

import (
	"math"
	"sort"
	"strconv"
	"strings"
)

// Dataset is the typed, immutable result of parsing one RawTables load
type Dataset struct {
	Customers []Customer
	Orders    []Order
	Details   []OrderDetail
	Products  []Product

	present map[string]bool
	columns map[string][]string
}

// ParseReport counts rows that did not become records
type ParseReport struct {
	Skipped    map[string]int // rows without an identifier, per table
	Duplicates int            // customer rows whose ID was already taken
}

// Has reports whether table was present in the source, even if empty
func (d *Dataset) Has(table string) bool {
	return d.present[table]
}

// Columns returns the sorted column names seen in table
func (d *Dataset) Columns(table string) []string {
	return d.columns[table]
}

// Rows returns the record count of table
func (d *Dataset) Rows(table string) int {
	switch table {
	case TableCustomer:
		return len(d.Customers)
	case TableOrder:
		return len(d.Orders)
	case TableDetail:
		return len(d.Details)
	case TableProduct:
		return len(d.Products)
	}
	return 0
}

// Parse converts raw rows into typed records.
// Rows without an identifier are skipped; unparseable numbers become zero.
func Parse(raw RawTables) (*Dataset, ParseReport) {
	raw = raw.Normalize()
	d := &Dataset{
		present: make(map[string]bool, len(raw)),
		columns: make(map[string][]string, len(raw)),
	}
	report := ParseReport{Skipped: make(map[string]int)}

	for name, rows := range raw {
		d.present[name] = true
		d.columns[name] = columnNames(rows)
	}

	seen := make(map[string]bool)
	for _, row := range raw[TableCustomer] {
		c, ok := parseCustomer(row)
		if !ok {
			report.Skipped[TableCustomer]++
			continue
		}
		if seen[c.ID] {
			report.Duplicates++
			continue
		}
		seen[c.ID] = true
		d.Customers = append(d.Customers, c)
	}
	for _, row := range raw[TableOrder] {
		if o, ok := parseOrder(row); ok {
			d.Orders = append(d.Orders, o)
		} else {
			report.Skipped[TableOrder]++
		}
	}
	for _, row := range raw[TableDetail] {
		if od, ok := parseDetail(row); ok {
			d.Details = append(d.Details, od)
		} else {
			report.Skipped[TableDetail]++
		}
	}
	for _, row := range raw[TableProduct] {
		if p, ok := parseProduct(row); ok {
			d.Products = append(d.Products, p)
		} else {
			report.Skipped[TableProduct]++
		}
	}

	return d, report
}

func parseCustomer(row Row) (Customer, bool) {
	id := Text(row["CID"])
	if id == "" {
		return Customer{}, false
	}
	given := Text(row["FNAME1"])
	family := Text(row["LNAME"])
	return Customer{
		ID:         id,
		Name:       strings.TrimSpace(given + " " + family),
		GivenName:  given,
		FamilyName: family,
		Email:      Text(row["EMAIL"]),
		Phone:      MissingPhone,
		Address:    Text(row["ADDRESS"]),
		City:       Text(row["CITY"]),
		State:      Text(row["STATE"]),
		Zip:        Text(row["ZIP"]),
	}, true
}

func parseOrder(row Row) (Order, bool) {
	id := Text(row["IID"])
	if id == "" {
		return Order{}, false
	}
	status := StatusPending
	if Flag(row["PIF"]) {
		status = StatusDelivered
	}
	return Order{
		ID:         id,
		CustomerID: Text(row["CID"]),
		Date:       Text(row["INDATE"]),
		Status:     status,
		Subtotal:   Number(row["SUBTOTAL"]),
		TicketNo:   Text(row["TICKETNO"]),
		Category:   Text(row["CATEGORY"]),
	}, true
}

func parseDetail(row Row) (OrderDetail, bool) {
	id := Text(row["Item_ID"])
	orderID := Text(row["IID"])
	if id == "" && orderID == "" {
		return OrderDetail{}, false
	}
	return OrderDetail{
		ID:         id,
		OrderID:    orderID,
		ProductID:  Text(row["price_table_item_id"]),
		ItemName:   Text(row["item_name"]),
		Quantity:   int(Number(row["item_count"])),
		BasePrice:  Number(row["item_baseprice"]),
		Department: Text(row["dept_name"]),
		PickupDate: Text(row["item_pickup_date"]),
		Subtotal:   Number(row["standardSubtotal"]),
	}, true
}

func parseProduct(row Row) (Product, bool) {
	id := Text(row["item_id"])
	name := Text(row["name"])
	if id == "" && name == "" {
		return Product{}, false
	}
	return Product{
		ID:           id,
		Name:         name,
		BasePrice:    Number(row["baseprice"]),
		Category:     DefaultCategory,
		Availability: DefaultAvailability,
	}, true
}

func columnNames(rows []Row) []string {
	set := make(map[string]struct{})
	for _, row := range rows {
		for col := range row {
			set[col] = struct{}{}
		}
	}
	cols := make([]string, 0, len(set))
	for col := range set {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	return cols
}

// Text renders a primitive cell as a trimmed string. Whole floats lose their ".0".
func Text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case []byte:
		return strings.TrimSpace(string(t))
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case int32:
		return strconv.FormatInt(int64(t), 10)
	case bool:
		return strconv.FormatBool(t)
	}
	return ""
}

// Number parses a primitive cell as a float. Currency symbols and thousands
// separators are ignored; anything unparseable or non-finite (NaN, Inf) is 0.
func Number(v any) float64 {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case int32:
		f = float64(t)
	default:
		s := strings.NewReplacer("$", "", ",", "").Replace(Text(v))
		if s == "" {
			return 0
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0
		}
		f = parsed
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// Flag interprets a fulfillment-style cell: Y, yes, true and 1 are set
func Flag(v any) bool {
	if b, ok := v.(bool); ok {
		return b
	}
	switch strings.ToLower(Text(v)) {
	case "y", "yes", "true", "1":
		return true
	}
	return false
}
