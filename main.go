package main

import (
	"log"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"

	"github.com/sooqna/sooqna_backend/config"
	"github.com/sooqna/sooqna_backend/controllers"
	"github.com/sooqna/sooqna_backend/middleware"
	"github.com/sooqna/sooqna_backend/repositories"
	"github.com/sooqna/sooqna_backend/routes"
	"github.com/sooqna/sooqna_backend/services"
	"github.com/sooqna/sooqna_backend/utils"
)

// CustomValidator is a custom validator for Echo
type CustomValidator struct {
	validator *validator.Validate
}

// Validate validates the request body
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

func main() {
	// Load .env file
	err := godotenv.Load()
	if err != nil {
		log.Println("Warning: .env file not found")
	}

	// Connect to Redis
	redisClient := config.ConnectRedis()

	// Connect to database
	client := config.ConnectDB()
	db := client.Database(config.DatabaseName())

	// Create a new Echo instance
	e := echo.New()

	// Initialize custom validator
	customValidator := &CustomValidator{validator: validator.New()}
	e.Validator = customValidator

	// Initialize rate limiter
	rateLimiter := middleware.NewRateLimiter()

	// Middleware
	e.Use(echoMiddleware.Logger())
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.CORS())
	e.Use(echoMiddleware.Secure())
	e.Use(rateLimiter.RateLimit())

	e.Match([]string{"GET", "HEAD"}, "/", func(c echo.Context) error {
		return c.JSON(200, map[string]string{
			"status":  "OK",
			"message": "Sooqna Commission Engine is running",
			"version": "1.0",
		})
	})

	e.Match([]string{"GET", "HEAD"}, "/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{
			"status":   "healthy",
			"database": "connected",
		})
	})

	e.Use(httpsRedirect())

	// Initialize repositories
	paymentRepo := repositories.NewPaymentRepository(db)
	shopRepo := repositories.NewShopRepository(db)
	agentRequestRepo := repositories.NewAgentRequestRepository(db)
	commissionRepo := repositories.NewCommissionRepository(db)
	withdrawalRepo := repositories.NewWithdrawalRepository(db)
	configRepo := repositories.NewConfigRepository(db)

	// Initialize the engine
	resolver := services.NewRelationshipResolver(shopRepo, agentRequestRepo)
	ledger := services.NewCommissionLedger(commissionRepo)
	reconciler := services.NewReconciler(paymentRepo, resolver, ledger, configRepo, reconcileWorkers())
	userLocker := utils.NewRedisUserLocker(redisClient)
	withdrawalLedger := services.NewWithdrawalLedger(withdrawalRepo, commissionRepo, ledger, userLocker)

	// Initialize controllers
	paymentController := controllers.NewPaymentController(reconciler)
	commissionController := controllers.NewCommissionController(commissionRepo, ledger)
	withdrawalController := controllers.NewWithdrawalController(withdrawalLedger, ledger)
	adminController := controllers.NewAdminController(reconciler, shopRepo, redisClient)

	// Register routes
	routes.SetupRoutes(e, paymentController, commissionController, withdrawalController)

	// Register admin routes AFTER general routes to avoid conflicts
	routes.RegisterAdminRoutes(e, adminController, withdrawalController)

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	e.Logger.Fatal(e.Start(":" + port))
}

// reconcileWorkers reads the reconciliation pool size from the environment
func reconcileWorkers() int {
	if s := os.Getenv("RECONCILE_WORKERS"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 8
}

func httpsRedirect() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().Header.Get("X-Forwarded-Proto") == "http" {
				return c.Redirect(301, "https://"+c.Request().Host+c.Request().RequestURI)
			}
			return next(c)
		}
	}
}
