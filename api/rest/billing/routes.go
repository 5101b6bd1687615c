package billing

import "github.com/gin-gonic/gin"

// registers checkout, portal and status routes; middleware runs before each handler
func RegisterRoutes(router *gin.RouterGroup, gateway Gateway, accounts Accounts, frontendURL string, middleware ...gin.HandlerFunc) {
	billingGroup := router.Group("/billing")
	billingGroup.Use(middleware...)
	{
		billingGroup.POST("/checkout-session", CheckoutSessionHandler(gateway, frontendURL))
		billingGroup.POST("/customer-portal", CustomerPortalHandler(gateway, frontendURL))
		billingGroup.GET("/subscription-status/:userId", SubscriptionStatusHandler(accounts))
	}
}
