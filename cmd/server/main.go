package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.uber.org/zap"

	"github.com/kidchat/kidchat-api/internal/config"
	"github.com/kidchat/kidchat-api/internal/database"
	"github.com/kidchat/kidchat-api/internal/handlers"
	"github.com/kidchat/kidchat-api/internal/logger"
	"github.com/kidchat/kidchat-api/internal/middleware"
	"github.com/kidchat/kidchat-api/internal/queue"
	"github.com/kidchat/kidchat-api/internal/safety"
	"github.com/kidchat/kidchat-api/internal/services/ai"
	"github.com/kidchat/kidchat-api/internal/services/auth"
	"github.com/kidchat/kidchat-api/internal/services/chat"
	"github.com/kidchat/kidchat-api/internal/telemetry"
)

const serviceName = "kidchat-api"

func main() {
	debugFlag := flag.Bool("debug", false, "Enable debug mode for LLM API logging")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	debugMode := cfg.ServerDebugMode || *debugFlag

	zapLogger, err := logger.New(debugMode)
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
		zap.String("ai_provider", cfg.AIProvider),
		zap.String("ai_model", cfg.AIModel),
		zap.Bool("otel_enabled", cfg.OTELEnabled),
	)

	// OpenTelemetry tracing if enabled
	var otelEnabled bool
	if cfg.OTELEnabled {
		if cfg.OTELEndpoint == "" {
			zapLogger.Warn("otel_enabled_but_endpoint_not_configured")
		} else {
			tp, err := telemetry.InitTracer(context.Background(), serviceName, cfg.OTELEndpoint)
			if err != nil {
				zapLogger.Warn("failed_to_initialize_otel_tracer", zap.Error(err))
			} else {
				otelEnabled = true
				zapLogger.Info("otel_tracer_initialized", zap.String("endpoint", cfg.OTELEndpoint))
				defer func() {
					shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer shutdownCancel()
					if err := telemetry.Shutdown(shutdownCtx, tp); err != nil {
						zapLogger.Error("failed_to_shutdown_otel_tracer", zap.Error(err))
					}
				}()
			}
		}
	}

	// Database
	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			zapLogger.Warn("failed_to_close_database_connection", zap.Error(err))
		}
	}()
	zapLogger.Info("connected_to_database")

	// Redis for rate limiting
	redisClient, err := middleware.NewRedisClient(cfg.RedisURL)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_redis", zap.Error(err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			zapLogger.Warn("failed_to_close_redis_connection", zap.Error(err))
		}
	}()
	zapLogger.Info("connected_to_redis")

	// RabbitMQ for the memory extraction queue. Optional: without it the
	// pipeline extracts facts inline.
	var jobQueue queue.JobQueue
	if cfg.RabbitMQURL != "" {
		jobQueue, err = connectQueue(cfg.RabbitMQURL, zapLogger)
		if err != nil {
			zapLogger.Warn("rabbitmq_unavailable_running_without_queue", zap.Error(err))
			jobQueue = nil
		} else {
			defer func() {
				if err := jobQueue.Close(); err != nil {
					zapLogger.Warn("failed_to_close_rabbitmq_connection", zap.Error(err))
				}
			}()
		}
	}

	// Repositories
	parentRepo := database.NewParentRepository(db)
	childRepo := database.NewChildRepository(db)
	sessionRepo := database.NewSessionRepository(db)
	alertRepo := database.NewAlertRepository(db)
	historyRepo := database.NewHistoryRepository(db)

	// Content filter
	filter, err := loadFilter(cfg.FilterRulesPath)
	if err != nil {
		zapLogger.Fatal("failed_to_load_filter_rules", zap.Error(err))
	}

	// Completion provider
	provider, err := createProvider(cfg, zapLogger, debugMode)
	if err != nil {
		zapLogger.Fatal("failed_to_create_completion_provider", zap.Error(err))
	}

	// Services
	tokens := auth.NewTokenService(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	sessionService := chat.NewSessionService(sessionRepo, cfg.SessionIdleTimeout)
	memoryService := chat.NewMemoryService(childRepo)
	extractor := chat.NewRegexExtractor()
	composer := chat.NewComposer(cfg.PromptCharBudget)

	pipeline := chat.NewPipeline(
		chat.PipelineConfig{
			MaxMessageLength: cfg.MaxMessageLength,
			RecentWindowSize: cfg.RecentWindowSize,
			MaxTokens:        cfg.AIMaxTokens,
		},
		zapLogger,
		filter,
		sessionService,
		childRepo,
		alertRepo,
		historyRepo,
		memoryService,
		extractor,
		composer,
		provider,
		jobQueue,
	)

	// Handlers
	authHandler := handlers.NewAuthHandler(parentRepo, tokens)
	childHandler := handlers.NewChildHandler(childRepo, historyRepo)
	chatHandler := handlers.NewChatHandler(pipeline, sessionService, childRepo)
	alertHandler := handlers.NewAlertHandler(alertRepo)
	healthChecker := handlers.NewHealthChecker(db, redisClient, jobQueue)

	// Router
	r := mux.NewRouter()

	if otelEnabled {
		r.Use(otelmux.Middleware(serviceName))
	}
	r.Use(middleware.SecurityHeaders(cfg.EnableHSTS))
	r.Use(middleware.CORS(cfg.FrontendURL))
	r.Use(middleware.MaxRequestSize(middleware.DefaultMaxRequestSize))
	r.Use(middleware.ContentType)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.ErrorHandler(zapLogger))
	r.Use(middleware.Logging(zapLogger))

	rateLimitMW, err := middleware.RateLimit(redisClient, cfg.ChatRateLimit)
	if err != nil {
		zapLogger.Fatal("failed_to_create_rate_limiter", zap.Error(err))
	}

	// Public routes
	r.HandleFunc("/healthz", healthChecker.HealthCheck).Methods("GET")

	// API v1 routes
	apiRouter := r.PathPrefix("/api/v1").Subrouter()

	authMW := middleware.Auth(tokens, parentRepo)

	authRouter := apiRouter.PathPrefix("/auth").Subrouter()
	publicAuthRouter := authRouter.PathPrefix("").Subrouter()
	publicAuthRouter.Use(rateLimitMW)
	protectedAuthRouter := authRouter.PathPrefix("").Subrouter()
	protectedAuthRouter.Use(authMW)
	authHandler.RegisterRoutes(publicAuthRouter, protectedAuthRouter)

	childrenRouter := apiRouter.PathPrefix("/children").Subrouter()
	childrenRouter.Use(authMW)
	childHandler.RegisterRoutes(childrenRouter)

	chatRouter := apiRouter.PathPrefix("/chat").Subrouter()
	chatRouter.Use(authMW)
	chatRouter.Use(rateLimitMW)
	chatHandler.RegisterRoutes(chatRouter)

	alertsRouter := apiRouter.PathPrefix("/alerts").Subrouter()
	alertsRouter.Use(authMW)
	alertHandler.RegisterRoutes(alertsRouter)

	// Catch-all OPTIONS handler for preflight requests
	r.Methods("OPTIONS").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	srv := &http.Server{
		Addr:           ":" + cfg.ServerPort,
		Handler:        r,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   30 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	bgCtx, bgCancel := context.WithCancel(context.Background())
	defer bgCancel()

	// Session housekeeping: close idle sessions, purge expired data.
	housekeeper := chat.NewHousekeeper(sessionRepo, zapLogger,
		cfg.HousekeepInterval, cfg.SessionIdleTimeout, cfg.MessageRetention, cfg.SessionRetention)
	go func() {
		if err := housekeeper.Start(bgCtx); err != nil && err != context.Canceled {
			zapLogger.Error("housekeeper_stopped_with_error", zap.Error(err))
		}
	}()
	zapLogger.Info("started_session_housekeeper", zap.Duration("interval", cfg.HousekeepInterval))

	// DLQ garbage collector if the queue implementation supports it
	if dlqPurger, ok := jobQueue.(queue.DLQPurger); ok {
		dlqGC := queue.NewGarbageCollector(dlqPurger, zapLogger, 1*time.Hour, 24*time.Hour)
		go func() {
			if err := dlqGC.Start(bgCtx); err != nil && err != context.Canceled {
				zapLogger.Error("dlq_garbage_collector_stopped_with_error", zap.Error(err))
			}
		}()
		zapLogger.Info("started_dlq_garbage_collector",
			zap.Duration("interval", 1*time.Hour),
			zap.Duration("retention", 24*time.Hour),
		)
	}

	go func() {
		zapLogger.Info("server_starting", zap.String("port", cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("server_failed_to_start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("server_shutting_down")
	bgCancel()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Fatal("server_forced_to_shutdown", zap.Error(err))
	}

	zapLogger.Info("server_exited")
}

// connectQueue dials RabbitMQ with exponential backoff to ride out broker
// startup delays.
func connectQueue(amqpURL string, zapLogger *zap.Logger) (queue.JobQueue, error) {
	const maxRetries = 10
	const initialDelay = 2 * time.Second

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		jobQueue, err := queue.NewRabbitMQQueue(amqpURL)
		if err == nil {
			zapLogger.Info("connected_to_rabbitmq")
			return jobQueue, nil
		}
		lastErr = err
		delay := initialDelay * time.Duration(1<<uint(attempt))
		if delay > 30*time.Second {
			delay = 30 * time.Second
		}
		zapLogger.Warn("failed_to_connect_to_rabbitmq_retrying",
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", maxRetries),
			zap.Error(err),
			zap.Duration("retry_delay", delay),
		)
		time.Sleep(delay)
	}
	return nil, lastErr
}

// loadFilter builds the content filter from the configured rules file, or
// the built-in rules when none is configured.
func loadFilter(rulesPath string) (safety.Filter, error) {
	if rulesPath == "" {
		return safety.NewDefaultFilter(), nil
	}
	rules, err := safety.LoadRules(rulesPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load filter rules from %s: %w", rulesPath, err)
	}
	f, err := safety.NewKeywordFilter(rules)
	if err != nil {
		return nil, fmt.Errorf("invalid filter rules in %s: %w", rulesPath, err)
	}
	return f, nil
}

// createProvider creates a completion provider based on configuration
func createProvider(cfg *config.Config, zapLogger *zap.Logger, debugMode bool) (ai.CompletionProvider, error) {
	if cfg.AIKey == "" {
		return nil, fmt.Errorf("AI API key not configured")
	}

	providerType := cfg.AIProvider
	if providerType == "" {
		providerType = "openai"
	}

	if providerType == "openai" {
		return ai.NewOpenAIProviderWithLogger(
			cfg.AIKey,
			cfg.AIBaseURL,
			cfg.AIModel,
			zapLogger,
			debugMode,
		), nil
	}

	registry := ai.NewProviderRegistry()
	ai.RegisterOpenAI(registry)

	providerConfig := map[string]string{
		"api_key":  cfg.AIKey,
		"model":    cfg.AIModel,
		"base_url": cfg.AIBaseURL,
	}

	return registry.GetProvider(providerType, providerConfig)
}
