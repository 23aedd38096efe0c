package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/roomify/backend/internal/config"
	"github.com/roomify/backend/internal/handlers"
	"github.com/roomify/backend/internal/middleware"
	"github.com/roomify/backend/internal/models"
	"github.com/roomify/backend/internal/services"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Initialize configuration
	cfg := config.New()

	// Initialize database
	db, err := models.InitDB(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// Run migrations
	if err := models.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Initialize Redis (project partitions + rate limiting)
	redisClient := models.InitRedis(cfg)
	defer redisClient.Close()

	// Initialize services
	authService := services.NewAuthService(db, cfg)
	hostingService, err := services.NewHostingService(cfg)
	if err != nil {
		log.Fatalf("Failed to init hosting service: %v", err)
	}
	renderService := services.NewRenderService(cfg)
	projectService := services.NewProjectService(redisClient, hostingService, cfg)
	visualizerService := services.NewVisualizerService(projectService, renderService)
	exportService := services.NewExportService(cfg)

	// Periodic partition reconciliation: repairs projects left in both
	// partitions by an interrupted share/unshare
	go func() {
		for {
			time.Sleep(cfg.ReconcileInterval)
			repaired, err := projectService.Reconcile(context.Background())
			if err != nil {
				log.Printf("Partition reconcile error: %v", err)
			} else if repaired > 0 {
				log.Printf("Partition reconcile: repaired %d projects", repaired)
			}
		}
	}()

	// Periodic cleanup for expired refresh tokens
	go func() {
		for {
			if err := authService.CleanupExpiredTokens(); err != nil {
				log.Printf("Refresh token cleanup error: %v", err)
			}
			time.Sleep(1 * time.Hour)
		}
	}()

	// Setup Gin router
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.RateLimiter(redisClient, cfg))

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	projectHandler := handlers.NewProjectHandler(projectService, visualizerService, exportService)

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	// Worker-compatible endpoints: open CORS, same contract as the
	// remote worker so either side of the transport switch can serve
	worker := router.Group("/api/projects")
	worker.Use(middleware.WorkerCORS())
	worker.Use(middleware.Auth(authService))
	{
		worker.POST("/save", projectHandler.SaveProject)
		worker.GET("/list", projectHandler.ListProjects)
		worker.GET("/get", projectHandler.GetProject)
	}

	api := router.Group("/api/v1")
	api.Use(middleware.CORS(cfg))
	{
		api.OPTIONS("/*path", func(c *gin.Context) {
			c.Status(http.StatusNoContent)
		})

		// Auth routes
		auth := api.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.POST("/refresh", authHandler.RefreshToken)
			auth.POST("/logout", middleware.Auth(authService), authHandler.Logout)
			auth.GET("/me", middleware.Auth(authService), authHandler.Me)
		}

		// Project routes
		projects := api.Group("/projects")
		projects.Use(middleware.Auth(authService))
		{
			projects.POST("", projectHandler.CreateProject)
			projects.POST("/:id/share", projectHandler.ShareProject)
			projects.POST("/:id/unshare", projectHandler.UnshareProject)
			projects.POST("/:id/render", projectHandler.RenderProject)
			projects.GET("/:id/share/qr.png", projectHandler.ShareQR)
			projects.GET("/:id/export.pdf", projectHandler.ExportPDF)
		}
	}

	// Start server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  120 * time.Second, // generous for large data URL payloads
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Printf("Starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
