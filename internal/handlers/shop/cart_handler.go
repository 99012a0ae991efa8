// internal/handlers/shop/cart_handler.go
package shop

import (
	"net/http"

	"storefront/internal/domain/shop"
	"storefront/internal/middleware"
	"storefront/internal/pkg/response"
	shopsvc "storefront/internal/service/shop"

	"github.com/gin-gonic/gin"
)

type CartHandler struct {
	service *shopsvc.CartService
}

func NewCartHandler(service *shopsvc.CartService) *CartHandler {
	return &CartHandler{service: service}
}

// GetCart returns the caller's cart
func (h *CartHandler) GetCart(c *gin.Context) {
	cart, err := h.service.GetCart(c.Request.Context(), middleware.MustGetIdentityID(c))
	if err != nil {
		response.FromError(c, "failed to load cart", err)
		return
	}
	response.Success(c, http.StatusOK, "cart retrieved", cart)
}

// AddItem adds a product or increments its quantity
func (h *CartHandler) AddItem(c *gin.Context) {
	var req shop.AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	cart, err := h.service.AddItem(c.Request.Context(), middleware.MustGetIdentityID(c), &req)
	if err != nil {
		response.FromError(c, "failed to add item", err)
		return
	}
	response.Success(c, http.StatusOK, "item added", cart)
}

// UpdateItem sets a line's quantity; zero or less removes the line
func (h *CartHandler) UpdateItem(c *gin.Context) {
	var req shop.UpdateQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	cart, err := h.service.UpdateQuantity(c.Request.Context(), middleware.MustGetIdentityID(c), c.Param("id"), req.Quantity)
	if err != nil {
		response.FromError(c, "failed to update item", err)
		return
	}
	response.Success(c, http.StatusOK, "item updated", cart)
}

func (h *CartHandler) RemoveItem(c *gin.Context) {
	cart, err := h.service.RemoveItem(c.Request.Context(), middleware.MustGetIdentityID(c), c.Param("id"))
	if err != nil {
		response.FromError(c, "failed to remove item", err)
		return
	}
	response.Success(c, http.StatusOK, "item removed", cart)
}

func (h *CartHandler) Clear(c *gin.Context) {
	cart, err := h.service.Clear(c.Request.Context(), middleware.MustGetIdentityID(c))
	if err != nil {
		response.FromError(c, "failed to clear cart", err)
		return
	}
	response.Success(c, http.StatusOK, "cart cleared", cart)
}
