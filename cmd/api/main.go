package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "fueldelivery/api/swagger" // swagger docs
	"fueldelivery/internal/config"
	"fueldelivery/internal/database"
	"fueldelivery/internal/handler"
	"fueldelivery/internal/invoice"
	"fueldelivery/internal/middleware"
	"fueldelivery/internal/repository"
	"fueldelivery/internal/service"
	"fueldelivery/internal/storage"
	"fueldelivery/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           Fuel Delivery Booking API
// @version         1.0
// @description     Fuel delivery bookings with frozen per-booking pricing, Canadian GST/QST, and invoice reconciliation.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}
	gin.SetMode(cfg.GinMode)
	log.Println("Starting with", cfg)

	db, err := database.NewConnection(cfg.DatabaseURL, !cfg.IsRelease())
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	log.Println("Connected to database successfully.")

	blobs, err := storage.NewLocalStore(cfg.UploadDir)
	if err != nil {
		log.Fatalf("Upload storage failed: %v", err)
	}

	// A nil renderer makes invoice export fall back to HTML.
	var renderer invoice.Renderer
	if cfg.GotenbergURL != "" {
		gotenberg := invoice.NewGotenbergClient(cfg.GotenbergURL, nil)
		if err := gotenberg.Ping(context.Background()); err != nil {
			log.Printf("Gotenberg at %s is not reachable yet: %v", cfg.GotenbergURL, err)
		}
		renderer = gotenberg
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Set up WebSocket Hub
	wsHub := websocket.NewHub()
	go wsHub.Run()

	// With Redis configured, events fan out to every API instance.
	var events service.EventPublisher = wsHub
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("Invalid REDIS_URL: %v", err)
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatalf("Redis connection failed: %v", err)
		}
		relay := websocket.NewRelay(rdb, wsHub, "")
		go func() {
			if err := relay.Run(ctx); err != nil {
				log.Printf("Event relay stopped: %v", err)
			}
		}()
		events = relay
		log.Println("Relaying dashboard events through Redis.")
	}

	auth := middleware.NewAuth(cfg.JWTSecret)

	// Set up dependencies (Repository -> Service -> Handler)
	txManager := repository.NewTransactionManager(db)
	userRepo := repository.NewUserRepository(db)
	pricingRepo := repository.NewPricingRepository(db)
	bookingRepo := repository.NewBookingRepository(db)
	logRepo := repository.NewDeliveryLogRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	tankRepo := repository.NewFuelTankRepository(db)
	equipmentRepo := repository.NewEquipmentRepository(db)
	siteRepo := repository.NewDeliverySiteRepository(db)

	userService := service.NewUserService(userRepo, auditRepo, txManager, auth)
	pricingService := service.NewPricingService(pricingRepo, userRepo, auditRepo, txManager, events)
	bookingService := service.NewBookingService(bookingRepo, userRepo, tankRepo, equipmentRepo, auditRepo, pricingService, txManager, events)
	invoiceService := service.NewInvoiceService(bookingRepo, logRepo, auditRepo, txManager, blobs, renderer, events)
	logService := service.NewDeliveryLogService(logRepo, bookingRepo, auditRepo, txManager, events)
	statisticsService := service.NewStatisticsService(repository.NewStatisticsRepository(db))
	auditService := service.NewAuditService(auditRepo)

	if cfg.BootstrapAdmin() {
		if err := userService.EnsureAdmin(context.Background(), cfg.AdminName, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			log.Fatalf("Admin bootstrap failed: %v", err)
		}
	}
	if _, err := pricingService.Current(context.Background()); err != nil {
		log.Fatalf("Pricing bootstrap failed: %v", err)
	}

	// Initialize Handlers
	handlers := []interface{ RegisterRoutes(*gin.RouterGroup) }{
		handler.NewUserHandler(userService, auth),
		handler.NewPricingHandler(pricingService, auth),
		handler.NewBookingHandler(bookingService, auth),
		handler.NewInvoiceHandler(invoiceService, auth),
		handler.NewDeliveryLogHandler(logService, auth),
		handler.NewResourceHandler(service.NewFuelTankService(tankRepo), auth, "/api/fuel-tanks", "/api/admin/fuel-tanks"),
		handler.NewResourceHandler(service.NewEquipmentService(equipmentRepo), auth, "/api/equipment", "/api/admin/equipment"),
		handler.NewResourceHandler(service.NewDeliverySiteService(siteRepo), auth, "/api/delivery-sites", ""),
		handler.NewStatisticsHandler(statisticsService, auth),
		handler.NewAuditHandler(auditService, auth),
	}

	// Set up Gin Router
	router := gin.Default()

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.ExposeHeaders = []string{"Content-Disposition"}
	router.Use(cors.New(corsConfig))
	router.Use(
		middleware.SecureHeaders(cfg.IsRelease()),
		middleware.RateLimitByIP(cfg.RateLimitPerMinute, time.Minute),
	)

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		status := http.StatusOK
		body := gin.H{"status": "OK", "ws_clients": wsHub.ClientCount()}
		if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
			status = http.StatusServiceUnavailable
			body["status"] = "DB_UNAVAILABLE"
		}
		c.JSON(status, body)
	})

	// WebSocket endpoint
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, auth)
	})

	// Register API Routes
	for _, h := range handlers {
		h.RegisterRoutes(router.Group(""))
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("Server listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Graceful shutdown failed: %v", err)
	}
}
