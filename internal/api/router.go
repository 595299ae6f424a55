package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/yasinarafat4/reluxrent-sub000/internal/api/handlers"
	"github.com/yasinarafat4/reluxrent-sub000/internal/api/middleware"
	"github.com/yasinarafat4/reluxrent-sub000/internal/config"
	"github.com/yasinarafat4/reluxrent-sub000/internal/payment"
	"github.com/yasinarafat4/reluxrent-sub000/internal/services"
)

// SetupRouter configures and returns the main Gin engine.
func SetupRouter(cfg *config.Config, db *mongo.Database, rdb *redis.Client, taskClient handlers.IAsynqClient, configSvc services.IConfigService) *gin.Engine {
	// Initialize services needed by API handlers
	currencyService := services.NewCurrencyService(db, cfg, rdb)
	propertyService := services.NewPropertyService(db, cfg)
	availabilityService := services.NewAvailabilityService(db)
	policyService := services.NewPolicyService(db)
	bookingService := services.NewBookingService(
		db, cfg, configSvc, propertyService, currencyService,
		availabilityService, policyService, payment.NewLogProcessor())

	r := gin.Default()

	// Apply global middleware first (order matters)
	rateLimiter := middleware.NewRateLimiterMiddleware(cfg)
	r.Use(middleware.CORSMiddleware())
	r.Use(rateLimiter.Limit())

	// Initialize handlers
	restConfigHandler := handlers.NewRestConfigHandler(configSvc)
	restCurrencyHandler := handlers.NewRestCurrencyHandler(currencyService)
	restPropertyHandler := handlers.NewRestPropertyHandler(propertyService)
	restQuoteHandler := handlers.NewRestQuoteHandler(bookingService)
	restBookingHandler := handlers.NewRestBookingHandler(bookingService, taskClient)

	v1 := r.Group("/v1")
	{
		// Public Routes (rate limiting already applied globally)
		v1.GET("/config", restConfigHandler.GetPublicConfig)
		v1.GET("/currencies", restCurrencyHandler.ListCurrencies)
		v1.GET("/quote", restQuoteHandler.GetQuote)
		v1.GET("/property/:id", restPropertyHandler.GetProperty)
		v1.GET("/property/:id/calendar", restPropertyHandler.GetCalendar)

		v1.GET("/ping", func(c *gin.Context) {
			c.String(http.StatusOK, "pong")
		})

		// Authenticated Routes
		authRequired := v1.Group("/")
		authRequired.Use(middleware.AuthMiddleware(cfg.JwtSecret))
		{
			authRequired.POST("/property", restPropertyHandler.CreateProperty)
			authRequired.PUT("/property/:id", restPropertyHandler.UpdateProperty)
			authRequired.PUT("/property/:id/calendar", restPropertyHandler.SetCalendar)

			authRequired.POST("/bookings", restBookingHandler.CreateBooking)
			authRequired.GET("/bookings", restBookingHandler.ListBookings)
			authRequired.GET("/bookings/:id", restBookingHandler.GetBooking)
			authRequired.POST("/bookings/:id/request", restBookingHandler.SubmitRequest)
			authRequired.POST("/bookings/:id/pre-approve", restBookingHandler.PreApprove)
			authRequired.POST("/bookings/:id/decline", restBookingHandler.Decline)
			authRequired.POST("/bookings/:id/accept", restBookingHandler.Accept)
			authRequired.POST("/bookings/:id/withdraw", restBookingHandler.Withdraw)
			authRequired.POST("/bookings/:id/special-offer", restBookingHandler.MakeSpecialOffer)
			authRequired.POST("/bookings/:id/accept-offer", restBookingHandler.AcceptOffer)
			authRequired.POST("/bookings/:id/withdraw-offer", restBookingHandler.WithdrawOffer)
			authRequired.POST("/bookings/:id/cancel", restBookingHandler.Cancel)
		}

		// Admin Routes
		adminRequired := v1.Group("/admin")
		adminRequired.Use(middleware.AuthMiddleware(cfg.JwtSecret), middleware.AdminMiddleware())
		{
			adminRequired.POST("/config", restConfigHandler.SetConfig)
			adminRequired.PUT("/currencies", restCurrencyHandler.UpsertCurrency)
		}
	}

	return r
}

// SetupServiceRouter configures and returns the service Gin engine.
func SetupServiceRouter(cfg *config.Config, shutdownChan chan<- struct{}) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.POST("/api", func(c *gin.Context) {
		var req struct {
			Method    string          `json:"method"`
			Arguments json.RawMessage `json:"arguments"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request format"})
			return
		}

		switch req.Method {
		case "shutdown":
			fmt.Println("Received shutdown command via Service API")
			c.JSON(http.StatusOK, gin.H{"success": true, "result": "Shutdown initiated"})
			select {
			case shutdownChan <- struct{}{}:
				fmt.Println("Shutdown signal sent successfully.")
			default:
				fmt.Println("Shutdown channel already signaled or blocked.")
			}
		default:
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": fmt.Sprintf("Unknown service method: %s", req.Method)})
		}
	})
	return r
}
