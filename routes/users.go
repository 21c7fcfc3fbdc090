package routes

import (
	"net/http"
	"time"

	"helpdesk/controllers/users"
	"helpdesk/middleware"

	"github.com/gorilla/mux"
)

// UsersRoutes mendaftarkan semua route terkait customer ke subrouter yang diberikan
func UsersRoutes(api *mux.Router, deps Deps) {
	// Rate limiter login/register: 60 per IP per 5 menit
	loginLimiter := middleware.NewIPRateLimiter(deps.Counters, 60, 5*time.Minute, nil)
	// Rate limiter endpoint tiket: 120 per IP per menit
	ticketLimiter := middleware.NewIPRateLimiter(deps.Counters, 120, time.Minute, nil)

	// Register & Login
	api.Handle("/users/register", loginLimiter.Middleware(http.HandlerFunc(users.Register))).Methods(http.MethodPost)
	api.Handle("/users/login", loginLimiter.Middleware(http.HandlerFunc(users.Login))).Methods(http.MethodPost)

	// Tickets
	api.Handle("/users/tickets", ticketLimiter.Middleware(middleware.AuthMiddleware(http.HandlerFunc(users.CreateTicket)))).Methods(http.MethodPost)
	api.Handle("/users/tickets", ticketLimiter.Middleware(middleware.AuthMiddleware(http.HandlerFunc(users.GetTickets)))).Methods(http.MethodGet)
	api.Handle("/users/tickets/{id:[0-9]+}/payments", ticketLimiter.Middleware(middleware.AuthMiddleware(http.HandlerFunc(users.RequestPayment)))).Methods(http.MethodPost)
}
