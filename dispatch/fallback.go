package dispatch

import (
	"context"
	"fmt"

	"github.com/teranos/smrt/store"
)

// QueryMembership answers "is X a customer" questions
const QueryMembership = "customer_membership"

func mentions(words ...string) func(Request) bool {
	return func(req Request) bool { return req.Contains(words...) }
}

func all(preds ...func(Request) bool) func(Request) bool {
	return func(req Request) bool {
		for _, p := range preds {
			if !p(req) {
				return false
			}
		}
		return true
	}
}

func asksAbout(req Request) bool {
	return req.Contains("tell me about", "details about", "info about", "information about", "who is")
}

// fallbackRoutes is the keyword table used when no classification is available.
// It relies on entity extraction and phrasing only.
func (d *Dispatcher) fallbackRoutes() []Route {
	return []Route{
		{Name: QueryCustomerCount, When: all(mentions("customer"), asksCount), Handle: d.customerCount},
		{Name: QueryCustomerList, When: all(mentions("customer"), mentions("list", "names", "all", "who are")), Handle: d.customerList},
		{Name: QueryCustomerDetails, When: all(asksAbout, hasKnownCustomer), Handle: d.customerDetails},
		{Name: QueryCustomerNotFound, When: all(asksAbout, hasUnknownCustomer), Handle: d.customerNotFound},
		{Name: QueryMembership, When: all(mentions("is "), mentions("customer")), Handle: d.membership},

		{Name: QueryCustomerOrders, When: all(mentions("order"), hasKnownCustomer), Handle: d.customerOrders},
		{Name: QueryOrderStatusCount, When: all(mentions("order"), asksCount, func(req Request) bool { return statusOf(req) != "" }), Handle: d.orderStatusCount},
		{Name: QueryOrderCount, When: all(mentions("order"), asksCount), Handle: d.orderCount},

		{Name: QueryProductCount, When: all(asksCount, hasProductTerms), Handle: d.productCount},
		{Name: QueryProductExistence, When: all(asksExistence, hasProductTerms), Handle: d.productExistence},
		{Name: QueryInventory, When: mentions("inventory", "products", "stock", "catalog"), Handle: d.inventoryListing},
		{Name: QueryOrderSummary, When: mentions("orders"), Handle: d.orderSummary},

		{Name: QueryHelp, Handle: d.help},
	}
}

// membership answers "is X one of our customers"
func (d *Dispatcher) membership(ctx context.Context, req Request) (Result, error) {
	if name, ok := req.Entities.FirstCustomer(); ok {
		page := d.q.Customers(store.CustomerFilter{Name: name}, store.FirstPage)
		if len(page.Items) > 0 {
			return Result{
				Data:          page.Items[0],
				Message:       fmt.Sprintf("Yes, %s is one of our customers.", page.Items[0].Name),
				QueryExecuted: QueryMembership,
			}, nil
		}
	}
	if name, ok := req.Entities.FirstUnknown(); ok {
		res := d.notFound(name)
		res.Message = fmt.Sprintf("No, %s is not one of our customers.", name)
		return res, nil
	}
	return d.customerSpecify(ctx, req)
}
