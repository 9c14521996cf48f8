package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/trivia-challenge-api/internal/config"
	"github.com/yourusername/trivia-challenge-api/internal/domain/repository"
	"github.com/yourusername/trivia-challenge-api/internal/generator"
	"github.com/yourusername/trivia-challenge-api/internal/handler"
	"github.com/yourusername/trivia-challenge-api/internal/middleware"
	pgRepo "github.com/yourusername/trivia-challenge-api/internal/repository/postgres"
	redisRepo "github.com/yourusername/trivia-challenge-api/internal/repository/redis"
	"github.com/yourusername/trivia-challenge-api/internal/service"
	"github.com/yourusername/trivia-challenge-api/pkg/auth"
	"github.com/yourusername/trivia-challenge-api/pkg/database"
	"github.com/yourusername/trivia-challenge-api/pkg/logger"
)

const serviceName = "trivia-challenge-api"

func main() {
	// Загружаем конфигурацию
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load config")
	}

	log := logger.New(serviceName, logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	log.WithField("config_path", configPath).Info("Конфигурация загружена")

	if cfg.Server.Mode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}

	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// PostgreSQL и миграции
	db, err := database.NewPostgresDB(cfg.Database, database.GormLogLevel(log.Logger.GetLevel()))
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}
	if err := database.MigrateDB(db, cfg.Database.MigrationsPath, log); err != nil {
		log.WithError(err).Fatal("Failed to migrate database")
	}

	// Redis необязателен: без него нет распределенной блокировки и rate limiting
	var redisClient redis.UniversalClient
	if cfg.Redis.Enabled {
		redisClient, err = database.NewUniversalRedisClient(appCtx, cfg.Redis)
		if err != nil {
			log.WithError(err).Fatal("Failed to connect to Redis")
		}
	} else {
		log.Warn("Redis отключен: блокировки пользователей и rate limiting не используются")
	}

	// Репозитории
	challengeRepo := pgRepo.NewChallengeRepo(db, cfg.Challenge.IsStrictValidation())
	quotaRepo := pgRepo.NewQuotaRepo(db)

	var lockRepo repository.UserLockRepository
	if redisClient != nil && cfg.Quota.Mode == string(service.QuotaModeAtomic) {
		repo, err := redisRepo.NewLockRepo(redisClient, "lock:quota")
		if err != nil {
			log.WithError(err).Fatal("Failed to create lock repository")
		}
		lockRepo = repo
	}

	// Генератор вопросов
	var provider generator.Provider
	if cfg.Generator.APIKey != "" {
		gemini, err := generator.NewGeminiProvider(appCtx, cfg.Generator.APIKey, cfg.Generator.Model)
		if err != nil {
			log.WithError(err).Fatal("Failed to create Gemini client")
		}
		provider = gemini
	} else {
		log.Warn("GEMINI_API_KEY не задан: все вопросы будут запасными")
	}
	challengeGenerator := generator.New(provider, generator.Options{
		Strict:  cfg.Generator.Strict,
		Timeout: cfg.Generator.Timeout,
	}, log.WithField("component", "generator"))

	// Сервисы
	ledger := service.NewQuotaLedger(quotaRepo, cfg.Quota.Default, cfg.Quota.ResetWindow)
	challengeService := service.NewChallengeService(challengeRepo, ledger, challengeGenerator, lockRepo, service.ChallengeServiceConfig{
		QuotaMode: service.QuotaMode(cfg.Quota.Mode),
		LockTTL:   cfg.Quota.LockTTL,
		LockWait:  cfg.Quota.LockWait,
	}, log.WithField("component", "challenge_service"))

	// Аутентификация
	verifier, err := auth.NewVerifier(auth.VerifierConfig{
		PublicKeyPEM:      cfg.Auth.PublicKeyPEM,
		HMACSecret:        cfg.Auth.HMACSecret,
		AuthorizedParties: cfg.Auth.AuthorizedParties,
		CookieName:        cfg.Auth.CookieName,
	})
	if err != nil {
		log.WithError(err).Fatal("Failed to create token verifier")
	}

	var rateLimiter *middleware.RateLimiter
	if redisClient != nil && cfg.RateLimit.Enabled {
		rateLimiter = middleware.NewRateLimiter(redisClient, log.WithField("component", "rate_limiter"))
	}
	rateLimit := middleware.DefaultGenerateRateLimitConfig()
	rateLimit.MaxRequests = cfg.RateLimit.MaxRequests
	if cfg.RateLimit.Window > 0 {
		rateLimit.Window = cfg.RateLimit.Window
	}

	// В release не доверяем прокси-заголовкам, в разработке доверяем localhost
	var trustedProxies []string
	if cfg.Server.Mode != gin.ReleaseMode {
		trustedProxies = []string{"127.0.0.1", "::1"}
	}

	router := handler.NewRouter(handler.RouterDeps{
		Challenges:     handler.NewChallengeHandler(challengeService, log.WithField("component", "challenge_handler")),
		Auth:           middleware.NewAuthMiddleware(verifier, log.WithField("component", "auth")),
		RateLimiter:    rateLimiter,
		RateLimit:      rateLimit,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		TrustedProxies: trustedProxies,
		Log:            log,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.WithFields(logrus.Fields{
			"port":       cfg.Server.Port,
			"quota_mode": cfg.Quota.Mode,
			"strict":     cfg.Generator.Strict,
		}).Info("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Server forced to shutdown")
	}

	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			log.WithError(err).Error("Error closing Redis client")
		}
	}
	if err := database.Close(db); err != nil {
		log.WithError(err).Error("Error closing database")
	}

	log.Info("Server exited properly")
}
