package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"oficios_app_go/config"
	"oficios_app_go/db"
	"oficios_app_go/handlers"
	"oficios_app_go/middleware"
	"oficios_app_go/models"
	"oficios_app_go/services"
	"oficios_app_go/services/jobs"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database
	if err := db.Initialize(cfg); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// Run migrations
	if err := db.AutoMigrate(models.All()...); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	if err := services.SeedAdminFromEnv(db.DB); err != nil {
		log.Fatalf("Failed to seed admin user: %v", err)
	}

	services.InitializeStorage(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Rate limit counters: shared through Redis when configured
	var store middleware.RateLimitStore
	if cfg.RedisURL != "" {
		redisStore, err := middleware.NewRedisStoreFromURL(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisStore.Close()
		store = redisStore
		log.Println("[SECURITY] Rate limiting backed by Redis")
	} else {
		memory := middleware.NewMemoryStore(time.Now)
		go memory.RunCleanup(ctx)
		store = memory
	}

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = handlers.ErrorHandler(e)

	// Middleware
	e.Use(echomiddleware.RequestLogger())
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowCredentials: true,
	}))
	e.Use(echomiddleware.BodyLimit("12M"))
	e.Use(middleware.CSPNonce())

	// Make config available to handlers
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set("config", cfg)
			return next(c)
		}
	})
	e.Use(middleware.CSRF(cfg.IsProduction()))
	e.Use(middleware.AuditRequests())

	handlers.RegisterRoutes(e, middleware.NewLimiters(store))

	// Background jobs: deadline reminders and session cleanup
	scheduler := jobs.StartScheduler(db.DB, cfg)
	go services.Monitor.RunCleanup(ctx)

	go func() {
		log.Printf("Server starting on port %s", cfg.ServerPort)
		if err := e.Start(":" + cfg.ServerPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")

	<-scheduler.Stop().Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}
}
