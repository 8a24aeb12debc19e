package routes

import (
	"github.com/gin-gonic/gin"
)

// initMerchantRoutes registers the dashboard API; the group carries AuthMiddleware
func initMerchantRoutes(router *gin.RouterGroup, deps Dependencies) {
	users := router.Group("/users")
	{
		users.GET("/profile", deps.Users.GetProfile)
		users.PUT("/profile", deps.Users.UpdateProfile)
		users.PUT("/profile/password", deps.Users.ChangePassword)
	}

	products := router.Group("/products")
	{
		products.GET("", deps.Products.List)
		products.POST("", deps.Products.Create)
		products.POST("/upload-image", deps.Products.UploadImage)
		products.GET("/:id", deps.Products.Get)
		products.PATCH("/:id", deps.Products.Update)
		products.DELETE("/:id", deps.Products.Delete)
	}

	links := router.Group("/payment-links")
	{
		links.GET("", deps.PaymentLinks.List)
		links.POST("", deps.PaymentLinks.Create)
		links.GET("/:id", deps.PaymentLinks.Get)
		links.PATCH("/:id", deps.PaymentLinks.Update)
		links.DELETE("/:id", deps.PaymentLinks.Delete)
		links.GET("/:id/qr", deps.PaymentLinks.QRCode)
	}

	transactions := router.Group("/transactions")
	{
		transactions.GET("", deps.Transactions.List)
		transactions.GET("/stats", deps.Transactions.Stats)
		transactions.GET("/export", deps.Transactions.Export)
		transactions.GET("/:id", deps.Transactions.Get)
	}

	receipts := router.Group("/receipts")
	{
		receipts.POST("/generate/:transactionId", deps.Receipts.Generate)
		receipts.GET("/:transactionId", deps.Receipts.Get)
		receipts.GET("/:transactionId/download", deps.Receipts.Download)
	}
}
