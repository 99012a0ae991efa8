// internal/handlers/address/address_handler.go
package address

import (
	"net/http"

	"storefront/internal/domain/address"
	"storefront/internal/middleware"
	"storefront/internal/pkg/response"
	addresssvc "storefront/internal/service/address"

	"github.com/gin-gonic/gin"
)

type AddressHandler struct {
	service *addresssvc.AddressService
}

func NewAddressHandler(service *addresssvc.AddressService) *AddressHandler {
	return &AddressHandler{service: service}
}

func (h *AddressHandler) ListAddresses(c *gin.Context) {
	list, err := h.service.ListAddresses(c.Request.Context(), middleware.MustGetIdentityID(c))
	if err != nil {
		response.FromError(c, "failed to list addresses", err)
		return
	}
	response.Success(c, http.StatusOK, "addresses retrieved", address.ListResponse{Addresses: list})
}

func (h *AddressHandler) GetAddress(c *gin.Context) {
	a, err := h.service.GetAddress(c.Request.Context(), middleware.MustGetIdentityID(c), c.Param("id"))
	if err != nil {
		response.FromError(c, "address not found", err)
		return
	}
	response.Success(c, http.StatusOK, "address retrieved", address.ItemResponse{Address: a})
}

// GetDefault returns the default address of the given type
func (h *AddressHandler) GetDefault(c *gin.Context) {
	t := address.Type(c.Param("type"))
	if !t.Valid() {
		response.ValidationError(c, "invalid address type", nil)
		return
	}

	a, err := h.service.GetDefault(c.Request.Context(), middleware.MustGetIdentityID(c), t)
	if err != nil {
		response.FromError(c, "no default address", err)
		return
	}
	response.Success(c, http.StatusOK, "address retrieved", address.ItemResponse{Address: a})
}

func (h *AddressHandler) CreateAddress(c *gin.Context) {
	var req address.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	a, err := h.service.CreateAddress(c.Request.Context(), middleware.MustGetIdentityID(c), &req)
	if err != nil {
		response.FromError(c, "failed to create address", err)
		return
	}
	response.Success(c, http.StatusCreated, "address created", address.ItemResponse{Address: a})
}

func (h *AddressHandler) UpdateAddress(c *gin.Context) {
	var req address.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	a, err := h.service.UpdateAddress(c.Request.Context(), middleware.MustGetIdentityID(c), c.Param("id"), &req)
	if err != nil {
		response.FromError(c, "failed to update address", err)
		return
	}
	response.Success(c, http.StatusOK, "address updated", address.ItemResponse{Address: a})
}

func (h *AddressHandler) DeleteAddress(c *gin.Context) {
	if err := h.service.DeleteAddress(c.Request.Context(), middleware.MustGetIdentityID(c), c.Param("id")); err != nil {
		response.FromError(c, "failed to delete address", err)
		return
	}
	response.Success(c, http.StatusOK, "address deleted", nil)
}

func (h *AddressHandler) SetDefault(c *gin.Context) {
	a, err := h.service.SetDefault(c.Request.Context(), middleware.MustGetIdentityID(c), c.Param("id"))
	if err != nil {
		response.FromError(c, "failed to set default address", err)
		return
	}
	response.Success(c, http.StatusOK, "default address updated", address.ItemResponse{Address: a})
}
