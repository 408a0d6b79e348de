package reports

import (
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/teranos/smrt/errors"
	"github.com/teranos/smrt/inventory"
	"github.com/teranos/smrt/store"
)

// Report kinds accepted by Text
const (
	KindExecutiveSummary = "executive_summary"
	KindCustomer         = "customer_report"
	KindSales            = "sales_report"
	KindInventory        = "inventory_report"
)

// Kinds lists the report kinds in menu order
var Kinds = []string{KindExecutiveSummary, KindCustomer, KindSales, KindInventory}

// listed bounds the rows of a breakdown section
const listed = 5

type renderer func(p *message.Printer, b *strings.Builder, d Dashboard)

var renderers = map[string]renderer{
	KindExecutiveSummary: executiveSummary,
	KindCustomer:         customerReport,
	KindSales:            salesReport,
	KindInventory:        inventoryReport,
}

// Text renders the named plain-text report from s as of now.
// An unknown kind is an invalid request.
func Text(s *store.Store, kind string, now time.Time) (string, error) {
	if _, ok := renderers[kind]; !ok {
		err := errors.NewInvalidRequestError("unknown report type %q", kind)
		return "", errors.WithHint(err, "valid types: "+strings.Join(Kinds, ", "))
	}
	return Render(Build(s, now), kind)
}

// Render formats an already built dashboard as the named report
func Render(d Dashboard, kind string) (string, error) {
	render, ok := renderers[kind]
	if !ok {
		return "", errors.NewInvalidRequestError("unknown report type %q", kind)
	}
	var b strings.Builder
	render(message.NewPrinter(language.English), &b, d)
	return strings.TrimSpace(b.String()), nil
}

func header(p *message.Printer, b *strings.Builder, title string, d Dashboard) {
	p.Fprintf(b, "%s\nGenerated: %s\n", title, d.Overview.GeneratedAt.Format(time.RFC3339))
}

func section(b *strings.Builder, name string) {
	b.WriteString("\n" + name + ":\n")
}

func executiveSummary(p *message.Printer, b *strings.Builder, d Dashboard) {
	header(p, b, "EXECUTIVE SUMMARY REPORT", d)

	section(b, "KEY METRICS")
	p.Fprintf(b, "• Total Customers: %d\n", d.Overview.TotalCustomers)
	p.Fprintf(b, "• Total Orders: %d\n", d.Overview.TotalOrders)
	p.Fprintf(b, "• Total Revenue: $%.2f\n", d.Overview.TotalRevenue)
	p.Fprintf(b, "• Total Products: %d\n", d.Overview.TotalProducts)

	section(b, "BUSINESS PERFORMANCE")
	p.Fprintf(b, "• Delivered Rate: %.1f%%\n", d.Sales.DeliveredRate)
	p.Fprintf(b, "• Average Order Value: $%.2f\n", d.Sales.AverageOrderValue)
	p.Fprintf(b, "• Average Product Price: $%.2f\n", d.Inventory.AveragePrice)

	section(b, "CUSTOMER INSIGHTS")
	p.Fprintf(b, "• Geographic Presence: %d states\n", len(d.Customers.ByState))
	top := "Unknown"
	if len(d.Customers.ByState) > 0 {
		top = d.Customers.ByState[0].Name
	}
	p.Fprintf(b, "• Top Market: %s\n", top)

	section(b, "OPERATIONAL STATUS")
	p.Fprintf(b, "• Pending Orders: %d\n", countOf(d.Sales.StatusBreakdown, inventory.StatusPending))
	p.Fprintf(b, "• Cached Queries: %d\n", d.Performance.CachedQueries)
	p.Fprintf(b, "• Data Source: %s\n", orUnknown(d.Performance.Source))
}

func customerReport(p *message.Printer, b *strings.Builder, d Dashboard) {
	header(p, b, "CUSTOMER ANALYSIS REPORT", d)

	section(b, "CUSTOMER BASE OVERVIEW")
	p.Fprintf(b, "• Total Customers: %d\n", d.Customers.Total)
	p.Fprintf(b, "• Geographic Coverage: %d states\n", len(d.Customers.ByState))

	section(b, "GEOGRAPHIC DISTRIBUTION")
	for _, st := range head(d.Customers.ByState) {
		p.Fprintf(b, "• %s: %d customers (%.1f%%)\n", st.Name, st.Value, percent(st.Value, d.Customers.Total))
	}

	section(b, "TOP CITIES")
	for _, city := range head(d.Customers.TopCities) {
		p.Fprintf(b, "• %s: %d customers\n", city.Name, city.Value)
	}

	section(b, "TOP MARKETS")
	p.Fprintf(b, "%s\n", strings.Join(d.Customers.TopStates, ", "))
}

func salesReport(p *message.Printer, b *strings.Builder, d Dashboard) {
	header(p, b, "SALES PERFORMANCE REPORT", d)

	section(b, "SALES OVERVIEW")
	p.Fprintf(b, "• Total Orders: %d\n", d.Sales.TotalOrders)
	p.Fprintf(b, "• Total Revenue: $%.2f\n", d.Sales.TotalRevenue)
	p.Fprintf(b, "• Average Order Value: $%.2f\n", d.Sales.AverageOrderValue)

	section(b, "ORDER STATUS BREAKDOWN")
	for _, st := range d.Sales.StatusBreakdown {
		p.Fprintf(b, "• %s: %d orders (%.1f%%) - $%.2f revenue\n",
			st.Name, st.Value, percent(st.Value, d.Sales.TotalOrders), d.Sales.RevenueByStatus[st.Name])
	}

	section(b, "CONVERSION METRICS")
	p.Fprintf(b, "• Delivered Rate: %.1f%%\n", d.Sales.DeliveredRate)
	p.Fprintf(b, "• Pending Rate: %.1f%%\n", d.Sales.PendingRate)

	section(b, "MONTHLY PERFORMANCE")
	if len(d.Sales.MonthlyRevenue) == 0 {
		b.WriteString("• No dated orders\n")
	}
	for _, m := range d.Sales.MonthlyRevenue {
		p.Fprintf(b, "• %s: $%.2f\n", monthLabel(m.Name), m.Value)
	}
	if n := len(d.Sales.MonthlyRevenue); n >= 2 {
		prev, last := d.Sales.MonthlyRevenue[n-2].Value, d.Sales.MonthlyRevenue[n-1].Value
		if prev > 0 {
			p.Fprintf(b, "• Growth Rate: %+.1f%%\n", (last-prev)/prev*100)
		}
	}
}

func inventoryReport(p *message.Printer, b *strings.Builder, d Dashboard) {
	header(p, b, "INVENTORY ANALYSIS REPORT", d)

	section(b, "INVENTORY OVERVIEW")
	p.Fprintf(b, "• Total Products: %d\n", d.Inventory.TotalProducts)
	p.Fprintf(b, "• Average Price: $%.2f\n", d.Inventory.AveragePrice)
	p.Fprintf(b, "• Price Range: $%.2f - $%.2f\n", d.Inventory.MinPrice, d.Inventory.MaxPrice)

	section(b, "CATEGORY BREAKDOWN")
	for _, c := range d.Inventory.CategoryBreakdown {
		p.Fprintf(b, "• %s: %d products (%.1f%%)\n", c.Name, c.Value, percent(c.Value, d.Inventory.TotalProducts))
	}

	section(b, "PRICE DISTRIBUTION")
	for _, bucket := range PriceBuckets {
		p.Fprintf(b, "• %s: %d products\n", bucket, d.Inventory.PriceDistribution[bucket])
	}
}

func head(counts []Count) []Count {
	if len(counts) > listed {
		return counts[:listed]
	}
	return counts
}

func countOf(counts []Count, name string) int {
	for _, c := range counts {
		if c.Name == name {
			return c.Value
		}
	}
	return 0
}

func monthLabel(month string) string {
	t, err := time.Parse("2006-01", month)
	if err != nil {
		return month
	}
	return t.Format("January 2006")
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}
