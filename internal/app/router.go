// internal/app/router.go
package app

import (
	"net/http"

	addressHandler "storefront/internal/handlers/address"
	authHandler "storefront/internal/handlers/auth"
	shopHandler "storefront/internal/handlers/shop"
	wsHandler "storefront/internal/handlers/websocket"
	"storefront/internal/middleware"

	"github.com/gin-gonic/gin"
)

type Handlers struct {
	AuthHandler     *authHandler.AuthHandler
	CartHandler     *shopHandler.CartHandler
	WishlistHandler *shopHandler.WishlistHandler
	OrderHandler    *shopHandler.OrderHandler
	AddressHandler  *addressHandler.AddressHandler
	WSHandler       *wsHandler.WebSocketHandler
	AuthMiddleware  *middleware.AuthMiddleware
}

func SetupRouter(r *gin.Engine, h *Handlers) {
	// ==================== Health Check ====================
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "version": "1.0.0"})
	})

	// ==================== WebSocket ====================
	r.GET("/ws", h.WSHandler.HandleConnection)

	requireAuth := h.AuthMiddleware.Auth()

	// ==================== Public Auth Routes ====================
	authPublic := r.Group("/auth")
	{
		authPublic.POST("/register", h.AuthHandler.Register)
		authPublic.POST("/login", h.AuthHandler.Login)
		authPublic.POST("/refresh", h.AuthHandler.Refresh)
		authPublic.POST("/forgot-password", h.AuthHandler.ForgotPassword)
		authPublic.POST("/verify-otp", h.AuthHandler.VerifyOTP)
		authPublic.POST("/reset-password", h.AuthHandler.ResetPassword)
	}

	// ==================== Authenticated Auth Routes ====================
	authProtected := r.Group("/auth")
	authProtected.Use(requireAuth)
	{
		authProtected.POST("/logout", h.AuthHandler.Logout)
		authProtected.POST("/logout-all", h.AuthHandler.LogoutAll)
		authProtected.POST("/verify-mobile", h.AuthHandler.VerifyMobile)
		authProtected.GET("/sessions", h.AuthHandler.GetActiveSessions)
		authProtected.DELETE("/sessions/:session_id", h.AuthHandler.RevokeSession)
		authProtected.GET("/ws-stats", h.WSHandler.GetStats)
	}

	// ==================== One-time codes ====================
	r.POST("/otp/resend", h.AuthHandler.ResendOTP)
	r.POST("/otp/send-mobile", requireAuth, h.AuthHandler.SendMobileOTP)

	// ==================== Profile ====================
	users := r.Group("/users")
	users.Use(requireAuth)
	{
		users.GET("/profile", h.AuthHandler.GetProfile)
		users.PUT("/profile", h.AuthHandler.UpdateProfile)
	}

	// ==================== Addresses ====================
	addresses := r.Group("/addresses")
	addresses.Use(requireAuth)
	{
		addresses.GET("", h.AddressHandler.ListAddresses)
		addresses.POST("", h.AddressHandler.CreateAddress)
		addresses.GET("/default/:type", h.AddressHandler.GetDefault)
		addresses.GET("/:id", h.AddressHandler.GetAddress)
		addresses.PUT("/:id", h.AddressHandler.UpdateAddress)
		addresses.DELETE("/:id", h.AddressHandler.DeleteAddress)
		addresses.PUT("/:id/default", h.AddressHandler.SetDefault)
	}

	// ==================== Cart ====================
	cart := r.Group("/cart")
	cart.Use(requireAuth)
	{
		cart.GET("", h.CartHandler.GetCart)
		cart.DELETE("", h.CartHandler.Clear)
		cart.POST("/items", h.CartHandler.AddItem)
		cart.PUT("/items/:id", h.CartHandler.UpdateItem)
		cart.DELETE("/items/:id", h.CartHandler.RemoveItem)
	}

	// ==================== Wishlist ====================
	wishlist := r.Group("/wishlist")
	wishlist.Use(requireAuth)
	{
		wishlist.GET("", h.WishlistHandler.GetWishlist)
		wishlist.POST("/items", h.WishlistHandler.AddItem)
		wishlist.DELETE("/items/:id", h.WishlistHandler.RemoveItem)
	}

	// ==================== Orders ====================
	orders := r.Group("/orders")
	orders.Use(requireAuth)
	{
		orders.GET("", h.OrderHandler.ListOrders)
		orders.POST("", h.OrderHandler.CreateOrder)
		orders.GET("/:id", h.OrderHandler.GetOrder)
		orders.PUT("/:id/status", h.OrderHandler.UpdateStatus)
	}
}
