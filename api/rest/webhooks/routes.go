package webhooks

import "github.com/gin-gonic/gin"

// webhook routes carry no bearer auth; the signature is the credential
func RegisterRoutes(router *gin.RouterGroup, verifier Verifier, handler EventHandler) {
	router.POST("/webhooks/stripe", StripeHandler(verifier, handler))
}
