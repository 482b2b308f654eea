package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/campuskit/access-api/internal/blob"
	"github.com/campuskit/access-api/internal/config"
	"github.com/campuskit/access-api/internal/handlers"
	"github.com/campuskit/access-api/internal/logger"
	"github.com/campuskit/access-api/internal/metrics"
	"github.com/campuskit/access-api/internal/middleware"
	"github.com/campuskit/access-api/internal/telemetry"
	"github.com/campuskit/access-api/internal/token"
	"github.com/campuskit/access-api/internal/upload"
	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.uber.org/zap"
)

func main() {
	debugFlag := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	debugMode := cfg.ServerDebugMode || *debugFlag

	// Initialize logger
	zapLogger, err := logger.NewProductionLogger(debugMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() {
		if syncErr := zapLogger.Sync(); syncErr != nil {
			// Ignore sync errors in production
			_ = syncErr
		}
	}()

	zapLogger.Info("starting_server",
		zap.Bool("debug_mode", debugMode),
		zap.String("server_port", cfg.ServerPort),
		zap.String("frontend_url", cfg.FrontendURL),
		zap.Bool("otel_enabled", cfg.OTELEnabled),
	)

	// Initialize OpenTelemetry if enabled
	var tracerProvider interface{ Shutdown(context.Context) error }
	if cfg.OTELEnabled {
		if cfg.OTELEndpoint == "" {
			zapLogger.Warn("otel_enabled_but_endpoint_not_configured")
		} else {
			tp, err := telemetry.InitTracer(context.Background(), "access-api", cfg.OTELEndpoint)
			if err != nil {
				zapLogger.Warn("failed_to_initialize_otel_tracer", zap.Error(err))
			} else {
				tracerProvider = tp
				zapLogger.Info("otel_tracer_initialized",
					zap.String("endpoint", cfg.OTELEndpoint),
				)
				defer func() {
					shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer shutdownCancel()
					if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
						zapLogger.Error("failed_to_shutdown_otel_tracer", zap.Error(err))
					}
				}()
			}
		}
	}

	// Connect to Redis for rate limiting
	redisLimiter, err := middleware.NewRedisRateLimiter(cfg.RedisURL)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_redis", zap.Error(err))
	}
	defer func() {
		if err := redisLimiter.Close(); err != nil {
			zapLogger.Warn("failed_to_close_redis_connection", zap.Error(err))
		}
	}()
	zapLogger.Info("connected_to_redis")

	// Load upload policies
	policies := upload.DefaultPolicies()
	if cfg.UploadPolicyPath != "" {
		policies, err = upload.LoadPolicies(cfg.UploadPolicyPath)
		if err != nil {
			zapLogger.Fatal("failed_to_load_upload_policies",
				zap.String("path", cfg.UploadPolicyPath),
				zap.Error(err),
			)
		}
		zapLogger.Info("loaded_upload_policies",
			zap.String("path", cfg.UploadPolicyPath),
			zap.Strings("folders", policies.Folders()),
		)
	}

	// Token codec and signer
	codec := token.NewCodec(zapLogger)
	signer := token.NewSigner(cfg.AccessTokenSecret, codec)

	// Upload challenge codec, blob store and verifier
	challengeCodec, err := upload.NewChallengeCodec(cfg.UploadChallengeSecret)
	if err != nil {
		zapLogger.Fatal("failed_to_initialize_challenge_codec", zap.Error(err))
	}
	store := blob.NewMemoryStore(cfg.PublicBaseURL)
	verifier := upload.NewVerifier(challengeCodec, store, policies, zapLogger)

	// Metrics sink
	var metricsSink metrics.Sink = metrics.NopSink{}
	if debugMode {
		metricsSink = metrics.NewLogSink(zapLogger)
	}

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(signer, time.Duration(cfg.AccessTokenTTLMinutes)*time.Minute, zapLogger)
	uploadHandler := handlers.NewUploadHandler(challengeCodec, verifier, policies, time.Duration(cfg.ChallengeTTLMinutes)*time.Minute, zapLogger)
	healthChecker := handlers.NewHealthChecker(redisLimiter)

	// Setup router
	r := mux.NewRouter()

	zapLogger.Info("setting_up_middleware")

	// Outermost middleware (executes first):
	// 0. OpenTelemetry tracing (if enabled)
	if cfg.OTELEnabled && tracerProvider != nil {
		r.Use(otelmux.Middleware("access-api"))
		zapLogger.Info("otel_middleware_enabled")
	}
	// 1. Security headers (should be set on all responses)
	r.Use(middleware.SecurityHeaders(cfg.EnableHSTS))
	// 2. CORS
	r.Use(middleware.CORS(cfg.FrontendURL))
	// Rate limit middleware (applied selectively to specific routes, not globally)
	unauthenticatedRateLimitMW, err := middleware.RateLimitFormatted(redisLimiter.Client(), "5-S")
	if err != nil {
		zapLogger.Fatal("failed_to_create_rate_limit_middleware", zap.Error(err))
	}
	authenticatedRateLimitMW := middleware.RateLimitAuthenticated(redisLimiter)
	// 3. Request size limits (protects against DoS)
	r.Use(middleware.MaxRequestSize(middleware.DefaultMaxRequestSize))
	// 4. Content-Type validation for POST/PATCH/PUT requests
	r.Use(middleware.ContentType)
	// 5. Request timeout (30 seconds default)
	r.Use(middleware.Timeout(30 * time.Second))
	// 6. Error handler (catches panics)
	r.Use(middleware.ErrorHandler(zapLogger))
	// 7. Audit logging (for security events)
	r.Use(middleware.Audit(zapLogger))
	// 8. Logging (innermost, executes last before handler)
	r.Use(middleware.Logging(zapLogger))

	// Public routes (no rate limiting for health checks)
	r.HandleFunc("/healthz", healthChecker.HealthCheck).Methods("GET")
	r.HandleFunc("/version", versionInfo).Methods("GET")

	// API v1 routes
	apiRouter := r.PathPrefix("/api/v1").Subrouter()

	// Auth routes
	authRouter := apiRouter.PathPrefix("/auth").Subrouter()

	// Introspection accepts the token in the body, so it stays public but
	// behind the stricter unauthenticated limit.
	introspectRouter := authRouter.PathPrefix("").Subrouter()
	introspectRouter.Use(unauthenticatedRateLimitMW)
	introspectRouter.Use(middleware.Metrics(metricsSink))
	introspectRouter.HandleFunc("/introspect", authHandler.Introspect).Methods("POST")

	// Protected auth routes
	protectedAuthRouter := authRouter.PathPrefix("").Subrouter()
	protectedAuthRouter.Use(middleware.Auth(signer, zapLogger))
	protectedAuthRouter.Use(authenticatedRateLimitMW)
	protectedAuthRouter.Use(middleware.Metrics(metricsSink))
	protectedAuthRouter.HandleFunc("/me", authHandler.GetMe).Methods("GET")
	protectedAuthRouter.HandleFunc("/token", authHandler.MintToken).Methods("POST")

	// Upload routes (protected)
	uploadsRouter := apiRouter.PathPrefix("/uploads").Subrouter()
	uploadsRouter.Use(middleware.Auth(signer, zapLogger))
	uploadsRouter.Use(authenticatedRateLimitMW)
	uploadsRouter.Use(middleware.Metrics(metricsSink))
	uploadHandler.RegisterRoutes(uploadsRouter)

	// Catch-all OPTIONS handler for preflight requests
	// The CORS middleware sets headers before this is called
	r.Methods("OPTIONS").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	// Setup server
	srv := &http.Server{
		Addr:           ":" + cfg.ServerPort,
		Handler:        r,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   15 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20, // 1MB max header size
	}

	// Start server in a goroutine
	go func() {
		zapLogger.Info("server_starting",
			zap.String("port", cfg.ServerPort),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("server_failed_to_start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("server_shutting_down")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Fatal("server_forced_to_shutdown", zap.Error(err))
	}

	zapLogger.Info("server_exited")
}

func versionInfo(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(`{"version":"1.0.0"}`)); err != nil {
		_ = err
	}
}
