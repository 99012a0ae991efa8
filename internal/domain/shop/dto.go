// internal/domain/shop/dto.go
package shop

// AddItemRequest adds a product to a cart or wishlist.
type AddItemRequest struct {
	ID       string  `json:"id" binding:"required"`
	Name     string  `json:"name"`
	Price    float64 `json:"price" binding:"gte=0"`
	Quantity int     `json:"quantity"`
	Image    string  `json:"image"`
	Size     string  `json:"size"`
	Color    string  `json:"color"`
}

// LineItem converts the request into a line item.
func (r *AddItemRequest) LineItem() LineItem {
	return LineItem{
		ID:       r.ID,
		Name:     r.Name,
		Price:    r.Price,
		Quantity: r.Quantity,
		Image:    r.Image,
		Size:     r.Size,
		Color:    r.Color,
	}
}

// UpdateQuantityRequest sets the quantity of a cart line.
type UpdateQuantityRequest struct {
	Quantity int `json:"quantity"`
}

// CreateOrderRequest places an order. When Items is empty the current cart is ordered.
type CreateOrderRequest struct {
	Items             []LineItem `json:"items"`
	ShippingAddressID string     `json:"shipping_address_id"`
}

// UpdateOrderStatusRequest moves an order to a new status.
type UpdateOrderStatusRequest struct {
	Status OrderStatus `json:"status" binding:"required"`
}
