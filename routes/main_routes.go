// routes/main_routes.go
package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/sooqna/sooqna_backend/controllers"
	"github.com/sooqna/sooqna_backend/middleware"
)

// SetupRoutes registers the webhook, query and withdrawal endpoints.
func SetupRoutes(e *echo.Echo, paymentController *controllers.PaymentController, commissionController *controllers.CommissionController, withdrawalController *controllers.WithdrawalController) {
	// Gateway webhook: authenticated by shared secret, not JWT
	e.POST("/api/payments/webhook", paymentController.HandlePaymentSuccess)

	api := e.Group("/api")
	api.Use(middleware.JWTMiddleware())

	// Dashboard query API
	commissions := api.Group("/commissions")
	commissions.GET("/shop/:shopId", commissionController.GetShopCommissions)
	commissions.GET("/agent/:agentId", commissionController.GetAgentCommissions)
	commissions.GET("/operator/:operatorId", commissionController.GetOperatorCommissions)
	commissions.GET("/payment/:paymentId", commissionController.GetCommissionByPayment)

	// Withdrawal UI
	withdrawals := api.Group("/withdrawals")
	withdrawals.GET("/balance", withdrawalController.GetBalance)
	withdrawals.GET("", withdrawalController.GetHistory)
	withdrawals.POST("", withdrawalController.RequestWithdrawal)
}
