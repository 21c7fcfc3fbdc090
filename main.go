package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"helpdesk/clients"
	"helpdesk/controllers"
	"helpdesk/controllers/admins"
	"helpdesk/database"
	"helpdesk/middleware"
	"helpdesk/models"
	"helpdesk/routes"
	paymentsvc "helpdesk/services/payment"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Load .env if present (do not overwrite already-set environment variables).
	if envMap, err := godotenv.Read(); err == nil {
		for k, v := range envMap {
			if os.Getenv(k) == "" {
				os.Setenv(k, v)
			}
		}
	}

	// Validate required environment variables
	requiredEnvVars := []string{"DB_HOST", "DB_USER", "DB_PASS", "DB_NAME", "JWT_SECRET", "QRIS_CALLBACK_KEY", "CRON_KEY"}
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
		log.Println("Running in development mode - performing auto-migration")
		if err := db.AutoMigrate(
			&models.Admin{},
			&models.Customer{},
			&models.Ticket{},
			&models.Payment{},
			&models.Attachment{},
			&models.AuditLog{},
		); err != nil {
			log.Fatalf("failed to migrate database: %v", err)
		}
		log.Println("Auto-migration completed successfully")
	} else {
		log.Println("Running in production mode - skipping auto-migration")
	}

	// Redis is optional: counters fall back to process memory without it.
	var rdb *redis.Client
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       0,
		})
		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			log.Printf("[warn] redis unreachable, using in-memory counters: %v", err)
			rdb = nil
		}
		cancel()
	}
	counters := middleware.NewCounterService(rdb)
	go func() {
		tick := time.NewTicker(time.Minute)
		defer tick.Stop()
		for range tick.C {
			counters.Sweep()
		}
	}()

	// Payment reconciliation wiring
	store := paymentsvc.NewStore(db)
	reconciler := paymentsvc.NewReconciler(store)

	orchestrator := &paymentsvc.Orchestrator{Store: store}
	if storage, err := clients.NewObjectStorage(); err != nil {
		log.Printf("[warn] object storage disabled: %v", err)
	} else {
		orchestrator.Folders = storage
		orchestrator.Uploads = storage
	}
	if sheet, err := clients.NewSheetClient(); err != nil {
		log.Printf("[warn] sheet sync disabled: %v", err)
	} else {
		orchestrator.Sheet = sheet
	}
	if notifier, err := clients.NewTelegramNotifier(); err != nil {
		log.Printf("[warn] telegram notifications disabled: %v", err)
	} else {
		orchestrator.Notifier = notifier
	}

	router := routes.InitRouter(routes.Deps{
		Counters: counters,
		Webhook:  controllers.NewQRISCallbackController(reconciler, orchestrator),
		Cron:     controllers.NewCronController(reconciler),
		Auth:     admins.NewAuthController(middleware.NewLoginGuard(counters)),
		Payments: admins.NewPaymentController(store, reconciler, orchestrator),
	})

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

	go func() {
		log.Printf("Server starting on port %s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Give outstanding requests 30 seconds to complete
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
