package collection

import (
	"testing"

	"storefront/internal/domain/shop"

	"github.com/stretchr/testify/assert"
)

func TestDerivedHelpers(t *testing.T) {
	items := []shop.LineItem{
		{ID: "1", Price: 212, Quantity: 1},
		{ID: "2", Price: 145, Quantity: 2},
		{ID: "3", Price: 99, Quantity: 0},
		{ID: "4", Price: 0.1, Quantity: 3},
	}

	assert.Equal(t, 502.3, Total(items))
	assert.Equal(t, 6, ItemCount(items))
	assert.True(t, Contains(items, "3"))
	assert.False(t, Contains(items, "5"))

	it, ok := Find(items, "2")
	assert.True(t, ok)
	assert.Equal(t, 145.0, it.Price)

	_, ok = Find(items, "nope")
	assert.False(t, ok)

	assert.Zero(t, Total(nil))
	assert.Zero(t, ItemCount(nil))
}

func TestDedupeKeepsFirst(t *testing.T) {
	out := dedupe([]shop.LineItem{{ID: "a", Quantity: 1}, {ID: "b"}, {ID: "a", Quantity: 9}})
	assert.Len(t, out, 2)
	assert.Equal(t, 1, out[0].Quantity)
}
