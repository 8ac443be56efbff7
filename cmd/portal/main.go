package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"kycportal/internal/admin"
	"kycportal/internal/auth"
	"kycportal/internal/division"
	"kycportal/internal/domain"
	"kycportal/internal/erp"
	"kycportal/internal/handler"
	"kycportal/internal/kyc"
	"kycportal/internal/middleware"
	"kycportal/internal/repository/postgres"
	"kycportal/pkg/cache"
	"kycportal/pkg/config"
	"kycportal/pkg/logger"
	"kycportal/pkg/validator"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.New("kyc-portal")

	if err := cfg.ValidateCore(); err != nil {
		log.Fatal("Invalid configuration", map[string]interface{}{"error": err.Error()})
	}

	// Connect to database
	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatal("Failed to connect to database", map[string]interface{}{"error": err.Error()})
	}
	defer db.Close()

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	// Connect to Redis
	redisCache, err := cache.NewRedisCache(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatal("Failed to connect to Redis", map[string]interface{}{"error": err.Error()})
	}
	defer redisCache.Close()
	redisClient := redisCache.Client()

	// Repositories
	entityRepo := postgres.NewEntityRepository(db)
	historyRepo := postgres.NewHistoryRepository(db)
	divisionRepo := postgres.NewDivisionRepository(db)
	userRepo := postgres.NewUserRepository(db)
	txManager := postgres.NewTxManager(db)

	// SAP Service Layer client with a shared session
	if err := cfg.ValidateSAP(); err != nil {
		log.Warn("SAP configuration incomplete; sync will fail until set", map[string]interface{}{
			"error": err.Error(),
		})
	}
	sapSessions := erp.NewRedisSessionStore(redisCache, cfg.SAP.SessionTTL)
	sapClient := erp.NewClient(cfg.SAP, sapSessions, log)

	// Services
	entityService := kyc.NewService(entityRepo, historyRepo, divisionRepo, txManager, log)
	workflow := kyc.NewWorkflow(entityRepo, historyRepo, divisionRepo, userRepo, sapClient, txManager, log)
	divisionService := division.NewService(divisionRepo, userRepo, log)
	authService := auth.NewService(userRepo, cfg.JWT.Secret, cfg.JWT.Expiration, log)
	adminService := admin.NewService(userRepo, entityRepo, divisionRepo, txManager, log)

	// Handlers
	val := validator.New()
	authHandler := handler.NewAuthHandler(authService, val, log)
	entityHandler := handler.NewEntityHandler(entityService, workflow, val, log)
	divisionHandler := handler.NewDivisionHandler(divisionService, val, log)
	userHandler := handler.NewUserHandler(adminService, val, log)
	systemHandler := handler.NewSystemHandler(db, redisClient, log)

	// Router
	r := mux.NewRouter()

	r.Use(middleware.CORS)
	r.Use(middleware.CorrelationID)
	r.Use(middleware.NewLoggingMiddleware(log).Log)
	r.Use(middleware.NewRateLimiter(redisClient, 120, time.Minute).Limit)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.Recovery(log))
	r.Use(middleware.BodyLimit(1 << 20))

	r.HandleFunc("/health", systemHandler.Health).Methods("GET")
	r.HandleFunc("/api/v1/auth/login", authHandler.Login).Methods("POST")

	authMW := middleware.NewAuthMiddleware(cfg.JWT.Secret)
	idempotency := middleware.NewIdempotencyMiddleware(redisClient, 10*time.Minute)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(authMW.Authenticate)
	api.Use(idempotency.Require)

	// Entity store and approval workflow
	api.HandleFunc("/entities", entityHandler.Create).Methods("POST")
	api.HandleFunc("/entities", entityHandler.List).Methods("GET")
	api.HandleFunc("/entities/{id}", entityHandler.Get).Methods("GET")
	api.HandleFunc("/entities/{id}", entityHandler.Update).Methods("PUT")
	api.HandleFunc("/entities/{id}", entityHandler.Delete).Methods("DELETE")
	api.HandleFunc("/entities/{id}/history", entityHandler.History).Methods("GET")
	api.HandleFunc("/entities/{id}/submit", entityHandler.Submit).Methods("POST")
	api.HandleFunc("/entities/{id}/reject", entityHandler.Reject).Methods("POST")

	managerOnly := api.PathPrefix("").Subrouter()
	managerOnly.Use(authMW.RequireRole(domain.RoleManager, domain.RoleITAdmin))
	managerOnly.HandleFunc("/entities/{id}/approve", entityHandler.Approve).Methods("POST")
	managerOnly.HandleFunc("/approvals/pending", entityHandler.Pending).Methods("GET")

	// IT admin surface: SAP sync, divisions, grants, users
	adminOnly := api.PathPrefix("").Subrouter()
	adminOnly.Use(authMW.RequireRole(domain.RoleITAdmin))
	adminOnly.HandleFunc("/entities/{id}/sync", entityHandler.Sync).Methods("POST")
	adminOnly.HandleFunc("/divisions", divisionHandler.Create).Methods("POST")
	adminOnly.HandleFunc("/divisions/{id}", divisionHandler.Update).Methods("PUT")
	adminOnly.HandleFunc("/grants", divisionHandler.Grant).Methods("POST")
	adminOnly.HandleFunc("/grants", divisionHandler.Revoke).Methods("DELETE")
	adminOnly.HandleFunc("/users", userHandler.Create).Methods("POST")
	adminOnly.HandleFunc("/users", userHandler.List).Methods("GET")
	adminOnly.HandleFunc("/users/{id}", userHandler.Get).Methods("GET")
	adminOnly.HandleFunc("/users/{id}", userHandler.Update).Methods("PUT")
	adminOnly.HandleFunc("/users/{id}", userHandler.Delete).Methods("DELETE")
	adminOnly.HandleFunc("/users/{id}/grants", divisionHandler.GrantsForUser).Methods("GET")

	// Read-only division endpoints for every authenticated user
	api.HandleFunc("/divisions", divisionHandler.List).Methods("GET")
	api.HandleFunc("/divisions/{id}", divisionHandler.Get).Methods("GET")

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("KYC portal starting", map[string]interface{}{"port": cfg.Server.Port})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed", map[string]interface{}{"error": err.Error()})
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down", nil)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Forced shutdown", map[string]interface{}{"error": err.Error()})
	}
}
