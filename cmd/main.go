package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"

	"comic-auction/internal/auth"
	"comic-auction/internal/config"
	"comic-auction/internal/database"
	"comic-auction/internal/events"
	"comic-auction/internal/handlers"
	"comic-auction/internal/jobs"
	"comic-auction/internal/observability"
	"comic-auction/internal/repository"
	"comic-auction/internal/services"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize JWT
	auth.InitJWT(cfg.App.JWTSecret)

	// Connect to database
	if err := database.Connect(cfg.GetDSN()); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Run migrations
	if err := database.AutoMigrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Initialize repository
	repo := repository.NewRepository(database.GetDB())

	// Initialize event dispatcher and sinks. The log sink always runs;
	// NATS and Redis come up only when configured.
	dispatcher := events.NewDispatcher()
	dispatcher.Register("", events.NewLogSink())

	var natsConn *nats.Conn
	if cfg.Notifier.NATSURL != "" {
		natsConn, err = nats.Connect(cfg.Notifier.NATSURL)
		if err != nil {
			log.Fatalf("Failed to connect to NATS: %v", err)
		}
		dispatcher.Register("", events.NewNATSSink(natsConn, "auction.events"))
		log.Printf("NATS sink connected to %s", cfg.Notifier.NATSURL)
	}

	var redisClient *redis.Client
	if cfg.Notifier.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Notifier.RedisAddr,
			Password: cfg.Notifier.RedisPassword,
		})
		dispatcher.Register("", events.NewRedisSink(redisClient, "auction:events"))
		log.Printf("Redis sink connected to %s", cfg.Notifier.RedisAddr)
	}

	dispatcher.Start()

	// Initialize services
	auctionService := services.NewAuctionService(database.GetDB(), repo, dispatcher, cfg.Auction.CloseGraceSeconds)
	setService := services.NewSetService(database.GetDB(), repo, auctionService, dispatcher)
	ingestService := services.NewIngestService(database.GetDB(), repo, auctionService, dispatcher)
	invoiceService := services.NewInvoiceService(database.GetDB(), repo, cfg.Auction.PlatformFeePercent)
	rateLimiter := services.NewRateLimiter(database.GetDB(), repo, cfg.Auction.RateLimits, cfg.Auction.RateLimitDefault)

	// Initialize handlers
	ingestHandler := handlers.NewIngestHandler(ingestService, rateLimiter)
	auctionHandler := handlers.NewAuctionHandler(auctionService)
	setHandler := handlers.NewSetHandler(setService, cfg.Auction.AntiSniperDefaultMinutes)

	// Start background jobs
	closeScheduler := jobs.NewCloseScheduler(setService, repo, time.Duration(cfg.Auction.CloseSchedulerInterval)*time.Second)
	go closeScheduler.Start()
	log.Println("Close scheduler started")

	invoiceSweep := jobs.NewInvoiceSweep(invoiceService, time.Duration(cfg.Auction.InvoiceSweepInterval)*time.Second)
	go invoiceSweep.Start()
	log.Println("Invoice sweep started")

	// Set up Gin router
	router := gin.Default()

	// CORS middleware
	allowedOrigins := []string{
		"http://localhost:3000", // Local development
		"http://localhost:5173", // Vite dev server
		"http://127.0.0.1:3000",
		"http://127.0.0.1:5173",
	}
	// Add additional frontend URL from environment if provided
	if frontendURL := os.Getenv("FRONTEND_URL"); frontendURL != "" {
		allowedOrigins = append(allowedOrigins, frontendURL)
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// Prometheus metrics endpoint
	router.GET("/metrics", gin.WrapH(observability.Handler()))

	// Public auction routes
	router.GET("/api/auctions/:id", auctionHandler.GetAuction)

	// API routes (protected)
	api := router.Group("/api")
	api.Use(auth.AuthMiddleware())
	{
		// Ingestion endpoint: external connectors push bid events here
		api.POST("/ingest/bids", ingestHandler.IngestBid)
	}

	// Admin routes (protected + admin only)
	admin := router.Group("/api/admin")
	admin.Use(auth.AuthMiddleware())
	admin.Use(auth.AdminMiddleware())
	{
		// Set management
		admin.POST("/sets", setHandler.CreateSet)
		admin.POST("/sets/:id/start", setHandler.StartSet)
		admin.POST("/sets/:id/close", setHandler.TryCloseSet)
		admin.DELETE("/sets/:id", setHandler.DeleteSet)

		// Auction management
		admin.POST("/auctions", auctionHandler.CreateAuction)
		admin.POST("/auctions/:id/close", auctionHandler.CloseAuction)
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Server starting on port %s", cfg.Server.Port)
		log.Printf("Health check: http://localhost:%s/health", cfg.Server.Port)
		log.Printf("Bid ingestion: POST http://localhost:%s/api/ingest/bids", cfg.Server.Port)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Stop the jobs first so no new close attempts land mid-shutdown
	closeScheduler.Stop()
	invoiceSweep.Stop()

	// Graceful shutdown with 5 second timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	// Drain the event queue before closing the outbound connections
	dispatcher.Stop()
	if natsConn != nil {
		natsConn.Close()
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}

	log.Println("Server exited")
}
