package routes

import (
	"github.com/gin-gonic/gin"
)

// initAdminRoutes registers maintenance endpoints for ADMIN users
func initAdminRoutes(router *gin.RouterGroup, deps Dependencies) {
	router.POST("/payment-links/expire", deps.PaymentLinks.ExpireLinks)
}
