// routes/admin_routes.go
package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/sooqna/sooqna_backend/controllers"
	"github.com/sooqna/sooqna_backend/middleware"
)

// RegisterAdminRoutes registers the admin resync and withdrawal-processing
// endpoints. All of them require an admin token.
func RegisterAdminRoutes(e *echo.Echo, adminController *controllers.AdminController, withdrawalController *controllers.WithdrawalController) {
	admin := e.Group("/api/admin")
	admin.Use(middleware.JWTMiddleware())
	admin.Use(middleware.RequireUserType("admin"))

	admin.POST("/commissions/resync", adminController.StartResync)
	admin.GET("/commissions/resync/:jobId", adminController.GetResyncStatus)

	admin.POST("/shops/:id/relationships", adminController.FixShopRelationships)

	admin.POST("/withdrawals/:id/approve", withdrawalController.ApproveWithdrawal)
	admin.POST("/withdrawals/:id/reject", withdrawalController.RejectWithdrawal)
	admin.POST("/withdrawals/:id/paid", withdrawalController.MarkWithdrawalPaid)
}
