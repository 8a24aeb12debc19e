package routes

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/mansatask/mansatask-api/controllers"
	"github.com/mansatask/mansatask-api/middleware"
	"github.com/mansatask/mansatask-api/utils"
)

// Dependencies are the wired handlers the router dispatches to
type Dependencies struct {
	Tokens       *utils.TokenManager
	CORSOrigins  []string
	Auth         *controllers.AuthController
	Users        *controllers.UserController
	Products     *controllers.ProductController
	PaymentLinks *controllers.PaymentLinkController
	Payments     *controllers.PaymentController
	Transactions *controllers.TransactionController
	Receipts     *controllers.ReceiptController
	Health       *controllers.HealthController
}

// SetupRouter initializes and returns the Gin router with all routes
func SetupRouter(deps Dependencies) *gin.Engine {
	router := gin.New()

	router.Use(utils.RequestIDMiddleware())
	router.Use(utils.LoggerMiddleware())
	router.Use(utils.RecoveryMiddleware())
	router.Use(corsMiddleware(deps.CORSOrigins))
	router.Use(utils.SecurityHeadersMiddleware())

	router.GET("/health", deps.Health.Check)

	// API version group
	api := router.Group("/v1")
	{
		initPublicRoutes(api, deps)

		authed := api.Group("")
		authed.Use(middleware.AuthMiddleware(deps.Tokens))
		initMerchantRoutes(authed, deps)

		admin := authed.Group("/admin")
		admin.Use(middleware.AdminMiddleware())
		initAdminRoutes(admin, deps)
	}

	return router
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	config := cors.Config{
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{
			"Origin", "Content-Type", "Authorization", "X-Request-ID",
			utils.IdempotencyHeader, utils.WebhookSignatureHeader,
		},
		ExposeHeaders: []string{"Content-Disposition", "X-Request-ID"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 {
		config.AllowAllOrigins = true
	} else {
		config.AllowOrigins = origins
		config.AllowCredentials = true
	}
	return cors.New(config)
}
