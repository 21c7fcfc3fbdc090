package routes

import (
	"encoding/json"
	"net/http"
	"os"
	"strings"
	"time"

	"helpdesk/controllers"
	"helpdesk/controllers/admins"
	"helpdesk/middleware"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
)

// Deps carries the constructed controllers and shared services into
// route registration. Nothing here is a package-level global.
type Deps struct {
	Counters *middleware.CounterService
	Webhook  *controllers.QRISCallbackController
	Cron     *controllers.CronController
	Auth     *admins.AuthController
	Payments *admins.PaymentController
}

func optionsHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func InitRouter(deps Deps) *mux.Router {
	r := mux.NewRouter()

	// Health check endpoint for Docker health checks (root level)
	r.Handle("/health", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status":    "healthy",
			"timestamp": time.Now().Unix(),
			"service":   "helpdesk-api",
		})
	})).Methods(http.MethodGet)

	// CORS - origins from CORS_ALLOWED_ORIGINS (comma-separated) or defaults
	originsEnv := os.Getenv("CORS_ALLOWED_ORIGINS")
	origins := []string{
		"http://localhost:3000", "http://localhost:8080", "http://127.0.0.1:3000", "http://127.0.0.1:8080",
	}
	if originsEnv != "" {
		parts := strings.Split(originsEnv, ",")
		for _, p := range parts {
			if o := strings.TrimSpace(p); o != "" {
				origins = append(origins, o)
			}
		}
	}
	r.Use(func(next http.Handler) http.Handler {
		return handlers.CORS(
			handlers.AllowedOrigins(origins),
			handlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"}),
			handlers.AllowedHeaders([]string{"Content-Type", "Authorization", "X-CRON-KEY", "X-Requested-With", "X-Request-ID"}),
			handlers.AllowCredentials(),
		)(next)
	})

	api := r.PathPrefix("/v1").Subrouter()

	// Catch-all OPTIONS handler for CORS preflight
	api.PathPrefix("/").HandlerFunc(optionsHandler).Methods(http.MethodOptions)

	// Rate limiter untuk cron: 1000/jam
	cronLimiter := middleware.NewIPRateLimiter(deps.Counters, 1000, time.Hour, nil)
	// Rate limiter untuk webhook: 500/ip/jam, whitelist IP provider
	var webhookWhitelist []string
	if v := os.Getenv("WEBHOOK_IP_WHITELIST"); v != "" {
		webhookWhitelist = strings.Split(v, ",")
	}
	webhookLimiter := middleware.NewWebhookLimiter(deps.Counters, 500, time.Hour, webhookWhitelist)

	// QRIS payment callback (provider webhook)
	api.Handle("/payments/qris/callback", webhookLimiter.Middleware(http.HandlerFunc(deps.Webhook.HandleCallback))).Methods(http.MethodPost)

	// Cron endpoint for expired payments (protected via X-CRON-KEY header)
	api.Handle("/cron/expire-payments", cronLimiter.Middleware(http.HandlerFunc(deps.Cron.ExpirePayments))).Methods(http.MethodPost)

	UsersRoutes(api, deps)
	SetAdminRoutes(api, deps)

	return r
}
