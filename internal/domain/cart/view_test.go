package cart

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func line(price string, qty int) Line {
	return Line{Price: decimal.RequireFromString(price), Quantity: qty}
}

func TestComputeView(t *testing.T) {
	tests := []struct {
		name      string
		lines     []Line
		wantCount int
		wantTotal string
		wantEmpty bool
		wantItems string
		wantPrice string
	}{
		{
			name:      "nil lines",
			lines:     nil,
			wantCount: 0,
			wantTotal: "0",
			wantEmpty: true,
			wantItems: "Total Items: 0",
			wantPrice: "Total Price: ₹0.00",
		},
		{
			name:      "two lines",
			lines:     []Line{line("10.00", 2), line("5.50", 1)},
			wantCount: 3,
			wantTotal: "25.5",
			wantItems: "Total Items: 3",
			wantPrice: "Total Price: ₹25.50",
		},
		{
			name:      "no float drift",
			lines:     []Line{line("0.10", 1), line("0.20", 1)},
			wantCount: 2,
			wantTotal: "0.3",
			wantItems: "Total Items: 2",
			wantPrice: "Total Price: ₹0.30",
		},
		{
			name:      "many units",
			lines:     []Line{line("109.95", 7), line("22.30", 3), line("0.01", 100)},
			wantCount: 110,
			wantTotal: "837.55",
			wantItems: "Total Items: 110",
			wantPrice: "Total Price: ₹837.55",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := ComputeView(tt.lines)

			assert.NotNil(t, v.Items)
			assert.Len(t, v.Items, len(tt.lines))
			assert.Equal(t, tt.wantCount, v.TotalCount)
			assert.True(t, decimal.RequireFromString(tt.wantTotal).Equal(v.TotalPrice), "total %s", v.TotalPrice)
			assert.Equal(t, tt.wantEmpty, v.IsEmpty)

			items, price := v.Summary()
			assert.Equal(t, tt.wantItems, items)
			assert.Equal(t, tt.wantPrice, price)
		})
	}
}

func TestComputeView_RoundsHalfUp(t *testing.T) {
	v := ComputeView([]Line{line("0.005", 1)})

	assert.Equal(t, "0.01", v.TotalPrice.StringFixed(2))
}

func TestLine_Subtotal(t *testing.T) {
	assert.True(t, decimal.RequireFromString("329.85").Equal(line("109.95", 3).Subtotal()))
}
