package service

import "math"

// PricedItem is the minimal shape the calculator needs from a line item.
type PricedItem struct {
	Price    int64
	Quantity int
}

// Subtotal sums price × quantity over all items.
func Subtotal(items []PricedItem) int64 {
	var total int64
	for _, item := range items {
		total += item.Price * int64(item.Quantity)
	}
	return total
}

// DiscountAmount computes the discount for a subtotal and a nullable
// percentage. A nil percentage means no discount. The percentage is applied
// as-is; range enforcement belongs to the caller.
func DiscountAmount(subtotal int64, pct *float64) float64 {
	if pct == nil {
		return 0
	}
	return float64(subtotal) * *pct / 100
}

// FinalTotal computes the payable amount: subtotal minus discount, plus
// shipping cost unless shipping is free.
func FinalTotal(subtotal int64, pct *float64, shippingCost int64, freeShipping bool) float64 {
	total := float64(subtotal) - DiscountAmount(subtotal, pct)
	if !freeShipping {
		total += float64(shippingCost)
	}
	return total
}

// DisplayRound rounds a monetary amount to the nearest currency unit. Stored
// values stay unrounded; this is for presentation only.
func DisplayRound(amount float64) int64 {
	return int64(math.Round(amount))
}
