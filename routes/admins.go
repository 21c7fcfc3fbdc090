package routes

import (
	"net/http"
	"time"

	"helpdesk/controllers/admins"
	"helpdesk/middleware"

	"github.com/gorilla/mux"
)

func SetAdminRoutes(api *mux.Router, deps Deps) {
	// Rate limiter for admin login: 5 attempts per IP per minute
	adminLoginLimiter := middleware.NewIPRateLimiter(deps.Counters, 5, time.Minute, nil)

	// Public admin routes
	api.Handle("/admins/login", adminLoginLimiter.Middleware(http.HandlerFunc(deps.Auth.Login))).Methods(http.MethodPost)

	// Protected admin routes
	adminRouter := api.PathPrefix("/admins").Subrouter()
	adminRouter.Use(middleware.AdminAuthMiddleware)

	// Payment management
	adminRouter.Handle("/payments", http.HandlerFunc(deps.Payments.GetPayments)).Methods(http.MethodGet)
	adminRouter.Handle("/payments/verify", http.HandlerFunc(deps.Payments.VerifyPayment)).Methods(http.MethodPost)
	adminRouter.Handle("/payments/{id:[0-9]+}/status", http.HandlerFunc(deps.Payments.UpdatePaymentStatus)).Methods(http.MethodPut)

	// Audit trail
	adminRouter.Handle("/audit-logs", http.HandlerFunc(admins.GetAuditLogs)).Methods(http.MethodGet)
}
