package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"jewellery-billing-api/internal/middleware"
	"jewellery-billing-api/internal/models"
	"jewellery-billing-api/internal/services"
)

// HealthChecker reports whether the backing store is reachable
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// RouterConfig holds configuration for setting up routes
type RouterConfig struct {
	ProductService services.ProductService
	RateService    services.RateService
	BillingService services.BillingService
	UserService    services.UserService
	AuthService    *middleware.AuthService
	Health         HealthChecker
	Location       *time.Location
	Logger         *logrus.Logger
}

// MiddlewareConfig tunes the global middleware chain
type MiddlewareConfig struct {
	AllowedOrigins    []string
	RequestsPerSecond float64
	Burst             int
	SlowRequest       time.Duration
}

// SetupRoutes configures all API routes
func SetupRoutes(router *gin.Engine, config *RouterConfig) {
	productHandler := NewProductHandler(config.ProductService, config.Logger)
	rateHandler := NewRateHandler(config.RateService, config.Logger)
	billHandler := NewBillHandler(config.BillingService, config.Location, config.Logger)
	authHandler := NewAuthHandler(config.AuthService, config.UserService, config.Logger)
	userHandler := NewUserHandler(config.UserService, config.Logger)

	auth := config.AuthService
	adminOnly := auth.RequireRole(models.RoleAdmin)

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/health", func(c *gin.Context) {
		status := http.StatusOK
		body := gin.H{
			"status":    "healthy",
			"service":   "jewellery-billing-api",
			"timestamp": time.Now().UTC(),
		}
		if config.Health != nil {
			if err := config.Health.HealthCheck(c.Request.Context()); err != nil {
				status = http.StatusServiceUnavailable
				body["status"] = "unhealthy"
				body["database"] = err.Error()
			}
		}
		c.JSON(status, body)
	})

	v1 := router.Group("/api/v1")
	{
		authRoutes := v1.Group("/auth")
		{
			authRoutes.POST("/login", authHandler.Login)
			authRoutes.POST("/refresh", authHandler.RefreshToken)
			authRoutes.GET("/me", auth.Authentication(), authHandler.GetCurrentUser)
		}

		// the counter display polls today's rates without logging in
		v1.GET("/rates/today", rateHandler.GetTodayRates)

		api := v1.Group("")
		api.Use(auth.Authentication())
		{
			products := api.Group("/products")
			{
				products.GET("", productHandler.ListProducts)
				products.GET("/stats", productHandler.GetProductStats)
				products.GET("/barcode/:barcode", productHandler.GetProductByBarcode)
				products.GET("/:id", productHandler.GetProduct)
				products.POST("", adminOnly, productHandler.CreateProduct)
				products.PUT("/:id", adminOnly, productHandler.UpdateProduct)
				products.PATCH("/:id/stock", adminOnly, productHandler.UpdateStock)
				products.DELETE("/:id", adminOnly, productHandler.DeleteProduct)
			}

			rates := api.Group("/rates")
			{
				rates.GET("", rateHandler.ListRates)
				rates.POST("", adminOnly, rateHandler.CreateRates)
				rates.PATCH("/settings", adminOnly, rateHandler.UpdateSettings)
			}

			bills := api.Group("/bills")
			{
				bills.POST("", billHandler.CreateBill)
				bills.POST("/estimate", billHandler.QuoteLine)
				bills.GET("", billHandler.ListBills)
				bills.GET("/today-sales", billHandler.TodaySales)
				bills.GET("/number/:number", billHandler.GetBillByNumber)
				bills.GET("/:id", billHandler.GetBill)
				bills.GET("/:id/document", billHandler.GetBillDocument)
			}

			users := api.Group("/users")
			users.Use(adminOnly)
			{
				users.POST("", userHandler.CreateUser)
				users.GET("", userHandler.ListUsers)
			}
		}
	}
}

// SetupMiddleware configures global middleware
func SetupMiddleware(router *gin.Engine, logger *logrus.Logger, config *MiddlewareConfig) {
	router.Use(middleware.RequestID())
	router.Use(middleware.CorrelationID())
	router.Use(middleware.Recovery(logger))

	router.Use(middleware.CORS(config.AllowedOrigins))
	router.Use(middleware.SecurityHeaders())

	// Request size limit (1MB)
	router.Use(middleware.RequestSizeLimit(1 << 20))
	router.Use(middleware.ContentTypeValidation())
	router.Use(middleware.RequestValidation())

	if config.RequestsPerSecond > 0 {
		router.Use(middleware.RateLimiter(logger, config.RequestsPerSecond, config.Burst))
	}

	router.Use(middleware.StructuredLogger(logger))
	router.Use(middleware.PerformanceMonitor(logger, config.SlowRequest))
	router.Use(middleware.AuditLogger(logger))
}

// NewRouter builds a gin engine with the middleware chain and every route
func NewRouter(routes *RouterConfig, mw *MiddlewareConfig) *gin.Engine {
	router := gin.New()
	SetupMiddleware(router, routes.Logger, mw)
	SetupRoutes(router, routes)
	return router
}
