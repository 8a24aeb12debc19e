package routes

import (
	"github.com/gin-gonic/gin"
)

// initPublicRoutes registers everything reachable without a token:
// authentication, the customer payment page and provider webhooks
func initPublicRoutes(router *gin.RouterGroup, deps Dependencies) {
	auth := router.Group("/auth")
	{
		auth.POST("/register", deps.Auth.Register)
		auth.POST("/login", deps.Auth.Login)
		auth.POST("/refresh", deps.Auth.Refresh)
		auth.POST("/logout", deps.Auth.Logout)
		auth.POST("/forgot-password", deps.Auth.ForgotPassword)
		auth.POST("/reset-password", deps.Auth.ResetPassword)
	}

	router.GET("/payment-links/public/:slug", deps.PaymentLinks.GetPublic)
	router.GET("/payment-links/public/:slug/qr", deps.PaymentLinks.PublicQRCode)

	payments := router.Group("/payments")
	{
		payments.POST("/initiate", deps.Payments.Initiate)
		payments.GET("/status/:externalReference", deps.Payments.Status)
		payments.POST("/webhook/:provider", deps.Payments.Webhook)
	}

	router.GET("/receipts/public/:externalReference/download", deps.Receipts.DownloadPublic)
	router.GET("/products/image/*key", deps.Products.ServeImage)
}
