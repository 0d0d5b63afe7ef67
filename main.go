package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sactech816/integration-app-sub010/database"
	"github.com/sactech816/integration-app-sub010/engine"
	"github.com/sactech816/integration-app-sub010/middleware"
	"github.com/sactech816/integration-app-sub010/models"
	"github.com/sactech816/integration-app-sub010/routes"
	"github.com/sactech816/integration-app-sub010/utils"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func migratedModels() []interface{} {
	return []interface{}{
		&models.Operator{},
		&models.Campaign{},
		&models.Prize{},
		&models.CampaignStamp{},
		&models.DrawOutcome{},
		&models.PointLedgerEntry{},
		&models.ParticipantBalance{},
		&models.Mission{},
		&models.MissionProgress{},
		&models.StampProgress{},
		&models.GuestSession{},
	}
}

func main() {
	// Load .env if present (do not overwrite already-set environment variables).
	if envMap, err := godotenv.Read(); err == nil {
		for k, v := range envMap {
			if os.Getenv(k) == "" {
				os.Setenv(k, v)
			}
		}
	}

	log := logrus.New()
	if strings.ToLower(os.Getenv("ENV")) == "production" {
		log.SetFormatter(&logrus.JSONFormatter{})
	}
	if lvl, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		log.SetLevel(lvl)
	}

	// Validate required environment variables
	requiredEnvVars := []string{"DB_HOST", "DB_USER", "DB_PASS", "DB_NAME", "JWT_SECRET", "CRON_KEY"}
	for _, envVar := range requiredEnvVars {
		if os.Getenv(envVar) == "" {
			log.Fatalf("Required environment variable %s is not set", envVar)
		}
	}

	// Connect to the database
	db, err := database.Connect()
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}

	// Auto-migrate only in development to avoid accidental production schema changes
	if strings.ToLower(os.Getenv("ENV")) == "development" {
		log.Info("Running in development mode - performing auto-migration")
		if err := db.AutoMigrate(migratedModels()...); err != nil {
			log.Fatalf("failed to migrate database: %v", err)
		}
		log.Info("Auto-migration completed successfully")
	} else if os.Getenv("DB_MIGRATE") == "true" {
		// Explicit opt-in migration with a best-effort backup first
		if err := database.RunMigrationsWithBackup(db, migratedModels()...); err != nil {
			log.Fatalf("failed to migrate database: %v", err)
		}
		log.Info("Migration with backup completed")
	} else {
		log.Info("Running in production mode - skipping auto-migration")
	}

	eng := engine.New(db, log, utils.RedisClient)

	// Initialize router
	router := routes.InitRouter(eng)

	// Wrap router with global middleware in recommended order
	// Logging -> Security headers / CORS -> Request ID -> Max Body -> Timeout -> Recovery
	handler := middleware.RequestLogMiddleware(
		middleware.SecurityHeadersMiddleware(
			middleware.RequestIDMiddleware(
				middleware.MaxBodyMiddleware(
					middleware.TimeoutMiddleware(
						middleware.RecoveryMiddleware(router),
					),
				),
			),
		),
	)

	// Create HTTP server with production-ready configuration
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	addr := ":" + port

	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Infof("Server starting on port %s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	// Give outstanding requests 30 seconds to complete
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Info("Server exited")
}
