// Package inventory holds the stock rules shared by the dashboard and the
// inventory listing.
package inventory

import "sort"

// Level is the stock state of one input, as the Farm API reports it.
type Level struct {
	CurrentStock      float64 `json:"current_stock"`
	MinimumStockAlert float64 `json:"minimum_stock_alert"`
}

// StockLevel returns l. Types embedding Level satisfy Stocked through it.
func (l Level) StockLevel() Level {
	return l
}

// Low reports whether the input needs restocking. Reaching the alert level counts
// as low.
func (l Level) Low() bool {
	return l.CurrentStock <= l.MinimumStockAlert
}

// Shortfall is how far below the alert level the stock is. Negative when above.
func (l Level) Shortfall() float64 {
	return l.MinimumStockAlert - l.CurrentStock
}

// Stocked is anything carrying a stock level.
type Stocked interface {
	StockLevel() Level
}

// IsLowStock applies the low-stock rule to item.
func IsLowStock[T Stocked](item T) bool {
	return item.StockLevel().Low()
}

// LowStock returns the items that need restocking, largest shortfall first.
// The result is never nil.
func LowStock[T Stocked](items []T) []T {
	low := make([]T, 0)
	for _, item := range items {
		if IsLowStock(item) {
			low = append(low, item)
		}
	}
	sort.SliceStable(low, func(i, j int) bool {
		return low[i].StockLevel().Shortfall() > low[j].StockLevel().Shortfall()
	})
	return low
}

// CountLow returns how many items need restocking.
func CountLow[T Stocked](items []T) int {
	n := 0
	for _, item := range items {
		if IsLowStock(item) {
			n++
		}
	}
	return n
}
