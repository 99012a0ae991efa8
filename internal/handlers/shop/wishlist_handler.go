// internal/handlers/shop/wishlist_handler.go
package shop

import (
	"net/http"

	"storefront/internal/domain/shop"
	"storefront/internal/middleware"
	"storefront/internal/pkg/response"
	shopsvc "storefront/internal/service/shop"

	"github.com/gin-gonic/gin"
)

type WishlistHandler struct {
	service *shopsvc.WishlistService
}

func NewWishlistHandler(service *shopsvc.WishlistService) *WishlistHandler {
	return &WishlistHandler{service: service}
}

func (h *WishlistHandler) GetWishlist(c *gin.Context) {
	w, err := h.service.GetWishlist(c.Request.Context(), middleware.MustGetIdentityID(c))
	if err != nil {
		response.FromError(c, "failed to load wishlist", err)
		return
	}
	response.Success(c, http.StatusOK, "wishlist retrieved", w)
}

func (h *WishlistHandler) AddItem(c *gin.Context) {
	var req shop.AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	w, err := h.service.AddItem(c.Request.Context(), middleware.MustGetIdentityID(c), &req)
	if err != nil {
		response.FromError(c, "failed to add item", err)
		return
	}
	response.Success(c, http.StatusOK, "item saved", w)
}

func (h *WishlistHandler) RemoveItem(c *gin.Context) {
	w, err := h.service.RemoveItem(c.Request.Context(), middleware.MustGetIdentityID(c), c.Param("id"))
	if err != nil {
		response.FromError(c, "failed to remove item", err)
		return
	}
	response.Success(c, http.StatusOK, "item removed", w)
}
