package routes

import (
	"settlement-service/controllers"
	"settlement-service/middleware"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

func RegisterRoutes(
	r *gin.Engine,
	jwtSecret string,
	checkout *controllers.CheckoutController,
	orders *controllers.OrderController,
	webhooks *controllers.WebhookController,
) {
	r.Use(middleware.RateLimitMiddleware(rate.Limit(20), 40))

	// Provider callbacks authenticate with signatures, not JWTs.
	r.POST("/webhooks/stripe", webhooks.HandleStripeWebhook)

	checkoutRoutes := r.Group("/checkout")
	checkoutRoutes.Use(middleware.AuthMiddleware(jwtSecret))
	checkoutRoutes.POST("/", checkout.BeginCheckout)
	checkoutRoutes.POST("/finalize", checkout.Finalize)

	orderRoutes := r.Group("/orders")
	orderRoutes.Use(middleware.AuthMiddleware(jwtSecret))
	orderRoutes.GET("/", orders.GetCustomerOrders)
	orderRoutes.GET("/:id", orders.GetOrder)
	orderRoutes.POST("/:id/cancel", orders.Cancel)
	orderRoutes.POST("/:id/return", orders.RequestReturn)
	orderRoutes.POST("/:id/review", orders.SetReview)
	orderRoutes.POST("/:id/status", middleware.RequireRoles("seller", "deliverer", "ops"), orders.UpdateStatus)

	adminRoutes := r.Group("/admin")
	adminRoutes.Use(middleware.AuthMiddleware(jwtSecret), middleware.RequireRoles("ops"))
	adminRoutes.GET("/orders", orders.GetAllOrders)
	adminRoutes.POST("/orders/:id/refund", orders.CompleteRefund)
}
