// Package inventory holds the typed records of one loaded dataset and the
// raw row shape they are parsed from.
package inventory

// Order statuses derived from the fulfillment flag
const (
	StatusDelivered = "Delivered"
	StatusPending   = "Pending"
)

// Placeholder product attributes. They are not live inventory signals.
const (
	DefaultCategory     = "Dry Cleaning"
	DefaultAvailability = "Available"
	MissingPhone        = "N/A"
)

// Customer is one row of the customer table
type Customer struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Address    string `json:"address"`
	City       string `json:"city"`
	State      string `json:"state"`
	Zip        string `json:"zip"`
}

// Order is one row of the order table
type Order struct {
	ID         string  `json:"id"`
	CustomerID string  `json:"customer_id"`
	Date       string  `json:"date"`
	Status     string  `json:"status"`
	Subtotal   float64 `json:"subtotal"`
	TicketNo   string  `json:"ticket_no"`
	Category   string  `json:"category"`
}

// OrderDetail is one line item of an order
type OrderDetail struct {
	ID         string  `json:"id"`
	OrderID    string  `json:"order_id"`
	ProductID  string  `json:"product_id"`
	ItemName   string  `json:"item_name"`
	Quantity   int     `json:"quantity"`
	BasePrice  float64 `json:"base_price"`
	Department string  `json:"department"`
	PickupDate string  `json:"pickup_date"`
	Subtotal   float64 `json:"subtotal"`
}

// Product is one row of the product table
type Product struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	BasePrice    float64 `json:"base_price"`
	Category     string  `json:"category"`
	Availability string  `json:"availability"`
}

// Vocabulary is the snapshot of indexed terms the entity extractor matches against.
// Slices are in table order and must not be modified.
type Vocabulary struct {
	CustomerNames []string // lower-cased full names
	GivenNames    []string // lower-cased given names
	ProductTerms  []string // lower-cased product name tokens, first-seen order
}
