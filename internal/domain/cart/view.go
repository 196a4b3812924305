package cart

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// View is the derived state of the cart screen.
type View struct {
	Items      []Line
	TotalCount int
	// TotalPrice is accumulated exactly and rounded to 2 places.
	TotalPrice decimal.Decimal
	IsEmpty    bool
}

// ComputeView derives totals and the empty state from the current lines.
func ComputeView(lines []Line) View {
	total := decimal.Zero
	count := 0
	for _, l := range lines {
		count += l.Quantity
		total = total.Add(l.Subtotal())
	}
	items := lines
	if items == nil {
		items = []Line{}
	}
	return View{
		Items:      items,
		TotalCount: count,
		TotalPrice: total.Round(2),
		IsEmpty:    len(lines) == 0,
	}
}

// Currency is the symbol prefixed to displayed prices.
const Currency = "₹"

// Summary returns the item count and total price labels of the cart screen.
func (v View) Summary() (items, price string) {
	return fmt.Sprintf("Total Items: %d", v.TotalCount),
		"Total Price: " + Currency + v.TotalPrice.StringFixed(2)
}
