package store

import (
	"fmt"
	"strings"

	"github.com/teranos/smrt/inventory"
)

// LineProduct is one product line of a detailed order
type LineProduct struct {
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

// DetailedOrder is an order joined with its line items and product names
type DetailedOrder struct {
	OrderID   string        `json:"order_id"`
	OrderDate string        `json:"order_date"`
	Status    string        `json:"status"`
	Total     float64       `json:"total"`
	Products  []LineProduct `json:"products"`
}

// CustomerOrders is a customer's joined order history
type CustomerOrders struct {
	Found       bool                `json:"found"`
	Customer    *inventory.Customer `json:"customer,omitempty"`
	Orders      []DetailedOrder     `json:"orders"`
	TotalOrders int                 `json:"total_orders"`
	Message     string              `json:"message"`
}

// CustomerOrdersDetailed returns the customer's orders joined with line items
// and product names. Unknown customers and customers without orders both come
// back with an explanatory message.
func (s *Store) CustomerOrdersDetailed(customerID string) CustomerOrders {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.customerOrdersLocked(customerID)
}

func (s *Store) customerOrdersLocked(customerID string) CustomerOrders {
	customerID = strings.TrimSpace(customerID)
	return cached(s, "customer_orders_detailed", map[string]any{"customer_id": customerID}, func() CustomerOrders {
		found := s.customersLocked(CustomerFilter{ID: customerID}, FirstPage)
		if len(found.Items) == 0 {
			return CustomerOrders{
				Orders:  []DetailedOrder{},
				Message: fmt.Sprintf("Customer %s not found", customerID),
			}
		}
		customer := found.Items[0]

		orders := s.ordersLocked(OrderFilter{CustomerID: customerID}, Everything).Items
		result := CustomerOrders{
			Found:       true,
			Customer:    &customer,
			Orders:      make([]DetailedOrder, 0, len(orders)),
			TotalOrders: len(orders),
		}
		if len(orders) == 0 {
			result.Message = fmt.Sprintf("%s hasn't placed any orders yet.", customer.Name)
			return result
		}

		for _, o := range orders {
			detailed := DetailedOrder{
				OrderID:   o.ID,
				OrderDate: o.Date,
				Status:    o.Status,
				Total:     o.Subtotal,
				Products:  []LineProduct{},
			}
			for _, od := range s.detailsLocked(o.ID) {
				detailed.Products = append(detailed.Products, LineProduct{
					Name:      s.productNameLocked(od),
					Quantity:  od.Quantity,
					UnitPrice: od.BasePrice,
				})
			}
			result.Orders = append(result.Orders, detailed)
		}
		result.Message = fmt.Sprintf("%s has %d %s.", customer.Name, len(orders), plural(len(orders), "order", "orders"))
		return result
	})
}

func (s *Store) productNameLocked(od inventory.OrderDetail) string {
	snap := s.snap
	if snap.idx.productByID != nil {
		if pos, ok := snap.idx.productByID[od.ProductID]; ok {
			return snap.data.Products[pos].Name
		}
	} else {
		for _, p := range snap.data.Products {
			if p.ID != "" && p.ID == od.ProductID {
				return p.Name
			}
		}
	}
	if od.ItemName != "" {
		return od.ItemName
	}
	return "Unknown product"
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
