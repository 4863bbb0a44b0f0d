package router

import (
	"net/http"

	"bookstore/internal/config"
	"bookstore/internal/handlers"
	"bookstore/internal/metrics"
	"bookstore/internal/middleware"
	"bookstore/internal/models"
	"bookstore/internal/repository"
	"bookstore/internal/services"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

func SetupRouter(cfg config.Config, store *repository.Store, logger zerolog.Logger) *mux.Router {
	userService := services.NewUserService(store.Users, logger)
	orderService := services.NewOrderService(store.Orders, store.Books, logger)
	authService := services.NewAuthService(services.TokenConfig{
		AccessSecret:  cfg.JWTSecret,
		RefreshSecret: cfg.JWTRefreshSecret,
		AccessTTL:     cfg.AccessTokenTTL,
		RefreshTTL:    cfg.RefreshTokenTTL,
	}, store.Users, logger)

	authHandler := handlers.NewAuthHandler(userService, authService, logger)
	userHandler := handlers.NewUserHandler(userService, logger)
	orderHandler := handlers.NewOrderHandler(orderService, logger)

	r := mux.NewRouter()

	rateLimiter := middleware.NewRateLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)

	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.ErrorHandling(logger))
	r.Use(metrics.Middleware)
	r.Use(middleware.SecurityHeaders())
	// CORS answers preflights itself, so every API route also accepts OPTIONS.
	r.Use(middleware.CORS(cfg.CORSAllowedOrigins))
	r.Use(rateLimiter.Middleware())

	requireAuth := middleware.Authentication(authService, logger)

	api := r.PathPrefix("/api").Subrouter()

	auth := api.PathPrefix("/auth").Subrouter()
	auth.HandleFunc("/register", authHandler.Register).Methods("POST", "OPTIONS")
	auth.HandleFunc("/login", authHandler.Login).Methods("POST", "OPTIONS")
	auth.HandleFunc("/refresh", authHandler.Refresh).Methods("POST", "OPTIONS")
	auth.Handle("/me", requireAuth(http.HandlerFunc(authHandler.Me))).Methods("GET", "OPTIONS")

	orders := api.PathPrefix("/orders").Subrouter()
	orders.Use(requireAuth)
	orders.Use(middleware.RequestValidation())
	orders.HandleFunc("", orderHandler.CreateOrder).Methods("POST", "OPTIONS")
	orders.HandleFunc("", orderHandler.ListOrders).Methods("GET", "OPTIONS")

	users := api.PathPrefix("/users").Subrouter()
	users.Use(requireAuth)
	users.Use(middleware.RequestValidation())
	users.HandleFunc("", userHandler.UpdateProfile).Methods("PUT", "OPTIONS")

	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(requireAuth)
	admin.Use(middleware.RequireRole(userService, logger, string(models.RoleAdmin)))
	admin.HandleFunc("/orders", orderHandler.ListAllOrders).Methods("GET", "OPTIONS")

	r.Handle("/metrics", metrics.Handler()).Methods("GET")
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	return r
}
