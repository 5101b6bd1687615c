package credits

import "github.com/gin-gonic/gin"

func RegisterRoutes(router *gin.RouterGroup, l Ledger) {
	creditsGroup := router.Group("/credits")
	{
		creditsGroup.GET("", GetCreditsHandler(l))
		creditsGroup.POST("/spend", SpendHandler(l))
		creditsGroup.GET("/transactions", ListTransactionsHandler(l))
	}
}
