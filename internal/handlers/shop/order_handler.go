// internal/handlers/shop/order_handler.go
package shop

import (
	"net/http"

	"storefront/internal/domain/shop"
	"storefront/internal/middleware"
	"storefront/internal/pkg/response"
	shopsvc "storefront/internal/service/shop"

	"github.com/gin-gonic/gin"
)

type OrderHandler struct {
	service *shopsvc.OrderService
}

func NewOrderHandler(service *shopsvc.OrderService) *OrderHandler {
	return &OrderHandler{service: service}
}

func (h *OrderHandler) ListOrders(c *gin.Context) {
	orders, err := h.service.ListOrders(c.Request.Context(), middleware.MustGetIdentityID(c))
	if err != nil {
		response.FromError(c, "failed to list orders", err)
		return
	}
	response.Success(c, http.StatusOK, "orders retrieved", orders)
}

func (h *OrderHandler) GetOrder(c *gin.Context) {
	order, err := h.service.GetOrder(c.Request.Context(), middleware.MustGetIdentityID(c), c.Param("id"))
	if err != nil {
		response.FromError(c, "order not found", err)
		return
	}
	response.Success(c, http.StatusOK, "order retrieved", order)
}

// CreateOrder places an order for the given items or the whole cart
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req shop.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	order, err := h.service.CreateOrder(c.Request.Context(), middleware.MustGetIdentityID(c), &req)
	if err != nil {
		response.FromError(c, "failed to create order", err)
		return
	}
	response.Success(c, http.StatusCreated, "order created", order)
}

// UpdateStatus lets the owner cancel a pending order
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	var req shop.UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	order, err := h.service.UpdateStatus(c.Request.Context(), middleware.MustGetIdentityID(c), c.Param("id"), req.Status)
	if err != nil {
		response.FromError(c, "failed to update order", err)
		return
	}
	response.Success(c, http.StatusOK, "order updated", order)
}
