package collection

import (
	"math"

	"storefront/internal/domain/shop"
)

// Total sums price times quantity, rounded to cents.
func Total(items []shop.LineItem) float64 {
	var sum float64
	for _, it := range items {
		sum += it.Subtotal()
	}
	return math.Round(sum*100) / 100
}

// ItemCount sums the positive quantities.
func ItemCount(items []shop.LineItem) int {
	n := 0
	for _, it := range items {
		if it.Quantity > 0 {
			n += it.Quantity
		}
	}
	return n
}

func Contains[T Keyed](items []T, id string) bool {
	_, ok := Find(items, id)
	return ok
}

func Find[T Keyed](items []T, id string) (T, bool) {
	for _, it := range items {
		if it.Key() == id {
			return it, true
		}
	}
	var zero T
	return zero, false
}
