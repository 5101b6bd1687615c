package generate

import (
	"github.com/gin-gonic/gin"

	"github.com/nxtgenia/miniaturia/internal/idempotency"
)

// registers thumbnail generation routes; middleware runs before the handler
func RegisterRoutes(router *gin.RouterGroup, gen Generator, store idempotency.Store, middleware ...gin.HandlerFunc) {
	handlers := append(middleware, Handler(gen, store))
	router.POST("/generate-thumbnail", handlers...)
}
