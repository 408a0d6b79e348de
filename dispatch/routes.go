package dispatch

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/teranos/smrt/inventory"
	"github.com/teranos/smrt/store"
)

// Executed query names
const (
	QueryCustomerCount    = "customer_count"
	QueryCustomerList     = "customer_list"
	QueryCustomerDetails  = "customer_details"
	QueryCustomerNotFound = "customer_not_found"
	QueryCustomerSpecify  = "customer_specify"
	QueryCustomerOrders   = "customer_orders"
	QueryOrderStatusCount = "order_status_count"
	QueryOrderCount       = "order_count"
	QueryOrderSummary     = "order_summary"
	QueryProductCount     = "product_count"
	QueryProductExistence = "product_existence"
	QueryInventory        = "inventory"
	QueryHelp             = "help"
)

const helpMessage = `I can answer questions about our customers, orders and products. ` +
	`Try "How many customers do we have?", "What orders does Alice have?" or "Do we have wool suits?"`

// inventoryListLimit caps the products named in an inventory message
const inventoryListLimit = 20

func customersIntent(intent string) bool {
	return strings.Contains(intent, "customer") || intent == "specific_person"
}

func ordersIntent(intent string) bool {
	return strings.Contains(intent, "order")
}

func productsIntent(intent string) bool {
	return strings.Contains(intent, "product") || strings.Contains(intent, "inventory")
}

func hasKnownCustomer(req Request) bool   { return len(req.Entities.CustomerNames) > 0 }
func hasUnknownCustomer(req Request) bool { return len(req.Entities.UnknownCustomers) > 0 }
func hasProductTerms(req Request) bool    { return len(req.Entities.ProductTerms) > 0 }

// namesProduct also accepts the classifier's product filter
func namesProduct(req Request) bool {
	if hasProductTerms(req) {
		return true
	}
	v, ok := req.Classification.Filters["product_name"].(string)
	return ok && strings.TrimSpace(v) != ""
}

func asksCount(req Request) bool {
	return req.action("count") || req.Contains("how many", "number of") || req.HasWord("count")
}

func asksList(req Request) bool {
	return req.action("list") || req.HasWord("names", "list")
}

func asksExistence(req Request) bool {
	return req.action("exists", "check") || req.Contains("do we have", "is there", "are there", "do you have", "do you carry")
}

// intentRoutes is the classified-intent table, evaluated top to bottom
func (d *Dispatcher) intentRoutes() []Route {
	return []Route{
		{Name: QueryCustomerCount, Intent: customersIntent, When: asksCount, Handle: d.customerCount},
		{Name: QueryCustomerList, Intent: customersIntent, When: asksList, Handle: d.customerList},
		{Name: QueryCustomerDetails, Intent: customersIntent, When: hasKnownCustomer, Handle: d.customerDetails},
		{Name: QueryCustomerNotFound, Intent: customersIntent, When: hasUnknownCustomer, Handle: d.customerNotFound},
		{Name: QueryCustomerSpecify, Intent: customersIntent, Handle: d.customerSpecify},

		{Name: QueryCustomerOrders, Intent: ordersIntent, When: hasKnownCustomer, Handle: d.customerOrders},
		{Name: QueryOrderStatusCount, Intent: ordersIntent, When: func(req Request) bool {
			return asksCount(req) && statusOf(req) != ""
		}, Handle: d.orderStatusCount},
		{Name: QueryOrderCount, Intent: ordersIntent, When: asksCount, Handle: d.orderCount},
		{Name: QueryCustomerOrders + "_named", Intent: ordersIntent, When: namesOrderOwner, Handle: d.customerOrders},
		{Name: QueryOrderSummary, Intent: ordersIntent, Handle: d.orderSummary},

		{Name: QueryProductCount, Intent: productsIntent, When: func(req Request) bool {
			return asksCount(req) && namesProduct(req)
		}, Handle: d.productCount},
		{Name: QueryProductExistence, Intent: productsIntent, When: asksExistence, Handle: d.productExistence},
		{Name: QueryInventory, Intent: productsIntent, Handle: d.inventoryListing},

		{Name: QueryHelp, Handle: d.help},
	}
}

// statusOf returns the requested order status, from the classifier filters or
// the extracted entities
func statusOf(req Request) string {
	if v, ok := req.Classification.Filters["order_status"].(string); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	if s, ok := req.Entities.FirstStatus(); ok {
		return s
	}
	return ""
}

// customerNameOf returns the requested customer: a known name, then the
// classifier's customer filter
func customerNameOf(req Request) string {
	if name, ok := req.Entities.FirstCustomer(); ok {
		return name
	}
	if v, ok := req.Classification.Filters["customer_name"].(string); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return ""
}

// ownerPattern matches "does X have" questions about someone's orders
var ownerPattern = regexp.MustCompile(`(?i)\bdoes\s+(\pL+)\s+have\b`)

// orderOwnerOf returns the unknown candidate a "does X have" question names
func orderOwnerOf(req Request) string {
	m := ownerPattern.FindStringSubmatch(req.Text)
	if m == nil {
		return ""
	}
	for _, candidate := range req.Entities.UnknownCustomers {
		if strings.EqualFold(candidate, m[1]) {
			return candidate
		}
	}
	return ""
}

// namesOrderOwner holds when an orders question points at a customer the
// store may not know
func namesOrderOwner(req Request) bool {
	return customerNameOf(req) != "" || orderOwnerOf(req) != ""
}

func (d *Dispatcher) allCustomerNames() []string {
	page := d.q.Customers(store.CustomerFilter{}, store.Everything)
	names := make([]string, 0, len(page.Items))
	for _, c := range page.Items {
		names = append(names, c.Name)
	}
	return names
}

func (d *Dispatcher) customerCount(ctx context.Context, req Request) (Result, error) {
	total := d.q.Customers(store.CustomerFilter{}, store.FirstPage).Total
	return Result{
		Data:          total,
		Message:       fmt.Sprintf("We have %d %s in total.", total, plural(total, "customer", "customers")),
		QueryExecuted: QueryCustomerCount,
	}, nil
}

func (d *Dispatcher) customerList(ctx context.Context, req Request) (Result, error) {
	names := d.allCustomerNames()
	if len(names) == 0 {
		return Result{Data: names, Message: "We don't have any customers on record.", QueryExecuted: QueryCustomerList}, nil
	}
	return Result{
		Data:          names,
		Message:       "Our customer names are: " + strings.Join(names, ", "),
		QueryExecuted: QueryCustomerList,
	}, nil
}

func (d *Dispatcher) customerDetails(ctx context.Context, req Request) (Result, error) {
	name := customerNameOf(req)
	page := d.q.Customers(store.CustomerFilter{Name: name}, store.FirstPage)
	if len(page.Items) == 0 {
		return d.notFound(name), nil
	}
	c := page.Items[0]
	return Result{
		Data:          c,
		Message:       describeCustomer(c),
		QueryExecuted: QueryCustomerDetails,
	}, nil
}

func (d *Dispatcher) customerNotFound(ctx context.Context, req Request) (Result, error) {
	name, _ := req.Entities.FirstUnknown()
	return d.notFound(name), nil
}

func (d *Dispatcher) notFound(name string) Result {
	names := d.allCustomerNames()
	return Result{
		Data: map[string]any{
			"unknown_name":  name,
			"all_customers": names,
		},
		Message:       fmt.Sprintf("No customer named '%s' found. Our customers are: %s", name, strings.Join(names, ", ")),
		QueryExecuted: QueryCustomerNotFound,
	}
}

func (d *Dispatcher) customerSpecify(ctx context.Context, req Request) (Result, error) {
	names := d.allCustomerNames()
	return Result{
		Data:          map[string]any{"all_customers": names},
		Message:       "Please specify which customer you mean. Our customers are: " + strings.Join(names, ", "),
		QueryExecuted: QueryCustomerSpecify,
	}, nil
}

func (d *Dispatcher) customerOrders(ctx context.Context, req Request) (Result, error) {
	name := customerNameOf(req)
	if name == "" {
		name = orderOwnerOf(req)
	}
	page := d.q.Customers(store.CustomerFilter{Name: name}, store.FirstPage)
	if len(page.Items) == 0 {
		return d.notFound(name), nil
	}
	history := d.q.CustomerOrdersDetailed(page.Items[0].ID)

	msg := history.Message
	if history.Found && len(history.Orders) > 0 {
		parts := make([]string, 0, len(history.Orders))
		for _, o := range history.Orders {
			parts = append(parts, fmt.Sprintf("%s (%s, $%.2f)", o.OrderID, strings.ToLower(o.Status), o.Total))
		}
		msg = fmt.Sprintf("%s has %d %s: %s", history.Customer.Name, len(history.Orders),
			plural(len(history.Orders), "order", "orders"), strings.Join(parts, ", "))
	}
	return Result{Data: history, Message: msg, QueryExecuted: QueryCustomerOrders}, nil
}

func (d *Dispatcher) orderStatusCount(ctx context.Context, req Request) (Result, error) {
	status := statusOf(req)
	total := d.q.Orders(store.OrderFilter{Status: status}, store.FirstPage).Total
	return Result{
		Data:          total,
		Message:       fmt.Sprintf("We have %d %s %s.", total, strings.ToLower(status), plural(total, "order", "orders")),
		QueryExecuted: QueryOrderStatusCount,
	}, nil
}

func (d *Dispatcher) orderCount(ctx context.Context, req Request) (Result, error) {
	total := d.q.Orders(store.OrderFilter{}, store.FirstPage).Total
	return Result{
		Data:          total,
		Message:       fmt.Sprintf("We have %d %s in total.", total, plural(total, "order", "orders")),
		QueryExecuted: QueryOrderCount,
	}, nil
}

// OrderSummary is the data of an order status summary
type OrderSummary struct {
	Total    int            `json:"total"`
	ByStatus map[string]int `json:"by_status"`
}

func (d *Dispatcher) orderSummary(ctx context.Context, req Request) (Result, error) {
	total, byStatus := d.q.OrderStatusCounts()
	summary := OrderSummary{Total: total, ByStatus: byStatus}
	if summary.ByStatus == nil {
		summary.ByStatus = make(map[string]int)
	}

	statuses := make([]string, 0, len(summary.ByStatus))
	for s := range summary.ByStatus {
		statuses = append(statuses, s)
	}
	sort.Strings(statuses)
	parts := make([]string, 0, len(statuses))
	for _, s := range statuses {
		parts = append(parts, fmt.Sprintf("%d %s", summary.ByStatus[s], strings.ToLower(s)))
	}

	msg := fmt.Sprintf("We have %d %s in total.", summary.Total, plural(summary.Total, "order", "orders"))
	if len(parts) > 0 {
		msg = fmt.Sprintf("We have %d %s: %s.", summary.Total, plural(summary.Total, "order", "orders"), strings.Join(parts, ", "))
	}
	return Result{Data: summary, Message: msg, QueryExecuted: QueryOrderSummary}, nil
}

// matchProducts returns the products matching the extracted terms, or the
// classifier's product filter when none were extracted, with the terms used
func (d *Dispatcher) matchProducts(req Request) ([]inventory.Product, []string) {
	terms := req.Entities.ProductTerms
	if len(terms) == 0 {
		if v, ok := req.Classification.Filters["product_name"].(string); ok && strings.TrimSpace(v) != "" {
			terms = []string{strings.TrimSpace(v)}
		}
	}
	if len(terms) == 0 {
		return []inventory.Product{}, nil
	}
	return d.q.Products(store.ProductFilter{Name: strings.Join(terms, " ")}, store.Everything).Items, terms
}

func (d *Dispatcher) productCount(ctx context.Context, req Request) (Result, error) {
	products, used := d.matchProducts(req)
	terms := strings.Join(used, ", ")
	if len(products) == 0 {
		return Result{
			Data:          products,
			Message:       fmt.Sprintf("We don't have any products matching '%s'.", terms),
			QueryExecuted: QueryProductCount,
		}, nil
	}
	return Result{
		Data: products,
		Message: fmt.Sprintf("We have %d %s matching '%s': %s.", len(products),
			plural(len(products), "product", "products"), terms, productNames(products, inventoryListLimit)),
		QueryExecuted: QueryProductCount,
	}, nil
}

func (d *Dispatcher) productExistence(ctx context.Context, req Request) (Result, error) {
	products, _ := d.matchProducts(req)
	if len(products) == 0 {
		return Result{
			Data:          products,
			Message:       "No, we don't carry that item.",
			QueryExecuted: QueryProductExistence,
		}, nil
	}
	return Result{
		Data:          products,
		Message:       fmt.Sprintf("Yes, we have %s.", productNames(products, inventoryListLimit)),
		QueryExecuted: QueryProductExistence,
	}, nil
}

func (d *Dispatcher) inventoryListing(ctx context.Context, req Request) (Result, error) {
	page := d.q.Products(store.ProductFilter{}, store.Everything)
	if page.Total == 0 {
		return Result{Data: page.Items, Message: "Our inventory is empty.", QueryExecuted: QueryInventory}, nil
	}

	listed := make([]string, 0, inventoryListLimit)
	for i, p := range page.Items {
		if i == inventoryListLimit {
			break
		}
		listed = append(listed, fmt.Sprintf("%s ($%.2f)", p.Name, p.BasePrice))
	}
	msg := fmt.Sprintf("We have %d %s in inventory: %s", page.Total, plural(page.Total, "product", "products"), strings.Join(listed, ", "))
	if page.Total > inventoryListLimit {
		msg += fmt.Sprintf(" and %d more", page.Total-inventoryListLimit)
	}
	return Result{Data: page.Items, Message: msg + ".", QueryExecuted: QueryInventory}, nil
}

func (d *Dispatcher) help(ctx context.Context, req Request) (Result, error) {
	return helpResult(), nil
}

func helpResult() Result {
	return Result{Message: helpMessage, QueryExecuted: QueryHelp}
}

func describeCustomer(c inventory.Customer) string {
	msg := fmt.Sprintf("%s is customer %s", c.Name, c.ID)
	var place []string
	for _, part := range []string{c.City, c.State} {
		if part != "" {
			place = append(place, part)
		}
	}
	if len(place) > 0 {
		msg += " in " + strings.Join(place, ", ")
	}
	if c.Email != "" {
		msg += ", email " + c.Email
	}
	return msg + "."
}

func productNames(products []inventory.Product, limit int) string {
	names := make([]string, 0, limit)
	for i, p := range products {
		if i == limit {
			break
		}
		names = append(names, p.Name)
	}
	out := strings.Join(names, ", ")
	if len(products) > limit {
		out += fmt.Sprintf(" and %d more", len(products)-limit)
	}
	return out
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
