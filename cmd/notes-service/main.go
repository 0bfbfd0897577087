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
	_ "github.com/lib/pq"

	"github.com/clinscribe/emr/internal/notes"
	"github.com/clinscribe/emr/pkg/auth"
	"github.com/clinscribe/emr/pkg/config"
	"github.com/clinscribe/emr/pkg/database"
	"github.com/clinscribe/emr/pkg/logger"
	"github.com/clinscribe/emr/pkg/monitoring"
	"github.com/clinscribe/emr/pkg/repository"
)

const (
	serviceName    = "notes-service"
	serviceVersion = "1.0.0"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.LogLevel)
	log.Info("Starting Notes Service", "version", serviceVersion)

	// Initialize database connection
	db, err := database.NewConnection(&cfg.Database, log)
	if err != nil {
		log.Fatal("Failed to connect to database", "error", err)
	}
	defer db.Close()

	// Ensure schema exists
	schemaCtx, schemaCancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := db.EnsureSchema(schemaCtx); err != nil {
		schemaCancel()
		log.Fatal("Failed to ensure database schema", "error", err)
	}
	schemaCancel()

	// Initialize monitoring
	metrics := monitoring.NewMetricsCollector(serviceName)

	var tracing *monitoring.TracingManager
	if cfg.Monitoring.TracingEnabled {
		tracing, err = monitoring.NewTracingManager(&monitoring.TracingConfig{
			ServiceName:    serviceName,
			ServiceVersion: serviceVersion,
			JaegerEndpoint: cfg.Monitoring.JaegerEndpoint,
			Environment:    "production",
			SamplingRate:   1.0,
		})
		if err != nil {
			log.Fatal("Failed to initialize tracing", "error", err)
		}
	}

	health := monitoring.NewHealthManager(serviceName, serviceVersion)
	health.RegisterChecker("database", monitoring.NewDatabaseHealthChecker(db.DB))
	health.RegisterChecker("generation_service", monitoring.NewGenerationHealthChecker(cfg.Generation.BaseURL, 5*time.Second))
	health.SetTimeout(10 * time.Second)

	// Initialize repositories
	notesRepo := repository.NewDoctorNotesRepository(db.DB, log)
	contextRepo := repository.NewClinicalContextRepository(db.DB, log)

	// Initialize pipeline components
	aggregator := notes.NewContextAggregator(contextRepo, log, metrics)
	generationClient := notes.NewGenerationClient(&cfg.Generation, log)
	notesService := notes.NewNotesService(notesRepo, aggregator, generationClient, log, metrics)

	// Initialize HTTP handlers
	validator := auth.NewTokenValidator(cfg.JWT.SecretKey)
	handlers := notes.NewHandlers(notesService, validator, log)

	// Setup HTTP router
	router := mux.NewRouter()

	// Add middleware. With tracing on, the combined middleware covers
	// metrics, spans and request logging in one pass.
	if tracing != nil {
		mm := monitoring.NewMonitoringMiddleware(metrics, tracing, log)
		router.Use(mm.HTTPMiddleware)
	} else {
		router.Use(metrics.HTTPMiddleware)
		router.Use(loggingMiddleware(log))
	}
	router.Use(corsMiddleware)

	// Register routes
	apiRouter := router.PathPrefix("/api/v1").Subrouter()
	handlers.RegisterRoutes(apiRouter)

	// Operational endpoints
	router.Handle(cfg.Monitoring.MetricsPath, metrics.Handler()).Methods("GET")
	router.HandleFunc(cfg.Monitoring.HealthPath, health.HTTPHandler()).Methods("GET")

	// Setup HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info("Starting HTTP server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start HTTP server", "error", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down Notes Service")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("Failed to shutdown server gracefully", "error", err)
	}

	if tracing != nil {
		if err := tracing.Shutdown(ctx); err != nil {
			log.Error("Failed to shutdown tracing", "error", err)
		}
	}

	log.Info("Notes Service stopped")
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Create a response writer wrapper to capture status code
			wrapper := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapper, r)

			log.Info("HTTP request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", wrapper.statusCode,
				"duration", time.Since(start),
				"remote_addr", r.RemoteAddr,
				"user_agent", r.UserAgent(),
			)
		})
	}
}

// corsMiddleware handles CORS headers
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-User-ID, X-User-Role")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
