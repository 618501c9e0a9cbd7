package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tradeworks/backoffice_api/internal/cache"
	"github.com/tradeworks/backoffice_api/internal/config"
	"github.com/tradeworks/backoffice_api/internal/database"
	"github.com/tradeworks/backoffice_api/internal/handler"
	"github.com/tradeworks/backoffice_api/internal/middleware"
	"github.com/tradeworks/backoffice_api/internal/repository"
	"github.com/tradeworks/backoffice_api/internal/service"
	"github.com/tradeworks/backoffice_api/internal/sse"
	"github.com/tradeworks/backoffice_api/internal/utils"
	"github.com/tradeworks/backoffice_api/internal/worker"
)

// main is the application entrypoint for the Tradeworks back-office API.
func main() {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// 2. Setup logger
	setupLogger(cfg.Env)
	log.Info().Str("env", cfg.Env).Msg("starting backoffice api")

	// 2a. Initialize JWT signing
	utils.InitJWT(cfg.JWTSecret)

	// 3. Connect database
	db, err := database.Connect(&cfg.DB)
	if err != nil {
		log.Error().Err(err).Msg("database connection failed")
		fmt.Fprintf(os.Stderr, "database connection failed: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	// 3a. Run migrations
	if err := runMigrations(db.DB); err != nil {
		log.Error().Err(err).Msg("migration failed")
		fmt.Fprintf(os.Stderr, "migration failed: %v\n", err)
		os.Exit(1)
	}
	log.Info().Msg("migrations completed successfully")

	// 3b. Connect to Redis
	redisClient, err := cache.NewRedisClient(&cfg.Redis)
	if err != nil {
		log.Error().Err(err).Msg("redis connection failed")
		fmt.Fprintf(os.Stderr, "redis connection failed: %v\n", err)
		os.Exit(1)
	}
	defer redisClient.Close()
	log.Info().Msg("redis connected successfully")

	// 3c. Initialize price view cache
	priceCache := cache.NewPriceCache(redisClient)

	// 4. Initialize SSE hub and notifier
	hub := sse.NewHub()
	notifier := sse.NewHubNotifier(hub)

	// 5. Initialize repositories
	contactRepo := repository.NewContactRepository(db)
	pricebookRepo := repository.NewPricebookRepository(db)
	historyRepo := repository.NewPriceHistoryRepository(db)
	documentRepo := repository.NewDocumentRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	adminRepo := repository.NewAdminUserRepository(db)

	// 6. Initialize services
	authSvc := service.NewAuthService(adminRepo)
	pricebookSvc := service.NewPricebookService(pricebookRepo, historyRepo, priceCache, notifier)
	contactSvc := service.NewContactService(contactRepo, pricebookRepo, historyRepo, pricebookSvc)
	csvSvc := service.NewPriceHistoryCSVService(historyRepo, pricebookRepo, historyRepo, contactRepo)
	documentSvc := service.NewDocumentService(documentRepo, service.NewHeuristicExtractor(), notifier)
	scheduleSvc := service.NewScheduleService(scheduleRepo)

	// 7. Initialize handlers
	handlers := &Handlers{
		Health:    handler.NewHealthHandler(db, redisClient),
		Auth:      handler.NewAuthHandler(authSvc, middleware.NewInvalidAuthRateLimiter()),
		Contact:   handler.NewContactHandler(contactSvc),
		Pricebook: handler.NewPricebookHandler(pricebookSvc, csvSvc),
		Document:  handler.NewDocumentHandler(documentSvc),
		Schedule:  handler.NewScheduleHandler(scheduleSvc),
		SSE:       handler.NewSSEHandler(hub),
	}

	// 8. Initialize middleware
	jwtMw := middleware.NewJWTMiddleware()

	// 9. Setup router
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORSMiddleware(cfg.CORS.AllowedHosts))
	router.Use(middleware.LoggingMiddleware())
	setupRoutes(router, handlers, jwtMw)

	// 10. Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 11. Start workers
	go worker.NewPriceCheckWorker(pricebookSvc, notifier, cfg.Worker.PriceCheckInterval).Start(ctx)
	go worker.NewDocumentWorker(documentSvc, cfg.Worker.DocumentScanInterval).Start(ctx)

	// 12. Start HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// 13. Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// 14. Cancel context to stop workers
	cancel()

	// 15. Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited")
}

// Handlers groups all HTTP handlers used by the server.
type Handlers struct {
	Health    *handler.HealthHandler
	Auth      *handler.AuthHandler
	Contact   *handler.ContactHandler
	Pricebook *handler.PricebookHandler
	Document  *handler.DocumentHandler
	Schedule  *handler.ScheduleHandler
	SSE       *handler.SSEHandler
}

// setupRoutes registers all routes.
func setupRoutes(router *gin.Engine, handlers *Handlers, jwtMiddleware *middleware.JWTMiddleware) {
	router.GET("/v1/health", handlers.Health.GetHealth)

	// Admin routes
	admin := router.Group("/v1/admin")
	admin.POST("/auth/login", handlers.Auth.Login)
	// SSE authenticates via query token inside the handler
	admin.GET("/events", handlers.SSE.Stream)
	admin.Use(jwtMiddleware.Handle())
	{
		// Contact Management
		admin.GET("/contacts", handlers.Contact.ListContacts)
		admin.POST("/contacts", handlers.Contact.CreateContact)
		admin.GET("/contacts/:id", handlers.Contact.GetContact)
		admin.PUT("/contacts/:id", handlers.Contact.UpdateContact)
		admin.DELETE("/contacts/:id", handlers.Contact.DeleteContact)
		admin.POST("/contacts/:id/merge", handlers.Contact.MergeContacts)
		admin.GET("/contacts/:id/prices", handlers.Contact.SupplierPrices)
		admin.POST("/contacts/:id/copy_price_history", handlers.Contact.CopyPriceHistory)
		admin.POST("/contacts/:id/bulk_update_prices", handlers.Contact.BulkUpdatePrices)

		// Pricebook
		admin.GET("/pricebook", handlers.Pricebook.ListItems)
		admin.POST("/pricebook", handlers.Pricebook.CreateItem)
		admin.POST("/pricebook/bulk_update", handlers.Pricebook.BulkUpdate)
		admin.GET("/pricebook/price_health_check", handlers.Pricebook.PriceHealthCheck)
		admin.GET("/pricebook/price_history/export", handlers.Pricebook.ExportPriceHistory)
		admin.POST("/pricebook/price_history/import", handlers.Pricebook.ImportPriceHistory)
		admin.GET("/pricebook/:id", handlers.Pricebook.GetItem)
		admin.PATCH("/pricebook/:id", handlers.Pricebook.UpdateItem)
		admin.DELETE("/pricebook/:id", handlers.Pricebook.DeleteItem)
		admin.POST("/pricebook/:id/add_price", handlers.Pricebook.AddPrice)
		admin.POST("/pricebook/:id/set_default_supplier", handlers.Pricebook.SetDefaultSupplier)
		admin.PATCH("/pricebook/:id/price_histories/:historyId", handlers.Pricebook.UpdatePriceHistory)
		admin.DELETE("/pricebook/:id/price_histories/:historyId", handlers.Pricebook.DeletePriceHistory)

		// Documents
		admin.GET("/documents", handlers.Document.ListDocuments)
		admin.POST("/documents", handlers.Document.CreateDocument)
		admin.GET("/documents/:id", handlers.Document.GetDocument)
		admin.POST("/documents/:id/reprocess", handlers.Document.Reprocess)

		// Schedule
		admin.GET("/schedule/tasks", handlers.Schedule.ListTasks)
		admin.POST("/schedule/tasks", handlers.Schedule.CreateTask)
		admin.GET("/schedule/tasks/:id", handlers.Schedule.GetTask)
		admin.PUT("/schedule/tasks/:id", handlers.Schedule.UpdateTask)
		admin.DELETE("/schedule/tasks/:id", handlers.Schedule.DeleteTask)
		admin.GET("/schedule/timesheets", handlers.Schedule.ListTimesheetEntries)
		admin.POST("/schedule/timesheets", handlers.Schedule.CreateTimesheetEntry)
	}
}

// runMigrations runs database migrations using golang-migrate.
func runMigrations(db *sql.DB) error {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres", driver)
	if err != nil {
		return fmt.Errorf("could not create migration instance: %w", err)
	}

	// Run migrations
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("could not run migrations: %w", err)
	}

	return nil
}

func setupLogger(env string) {
	if env == "production" {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
}
