package handler

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/trivia-challenge-api/internal/middleware"
)

// RouterDeps - зависимости HTTP роутера
type RouterDeps struct {
	Challenges     *ChallengeHandler
	Auth           *middleware.AuthMiddleware
	RateLimiter    *middleware.RateLimiter // nil - без ограничения частоты
	RateLimit      middleware.RateLimitConfig
	AllowedOrigins []string
	TrustedProxies []string
	Log            logrus.FieldLogger
}

// NewRouter собирает gin.Engine со всеми маршрутами сервиса
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(deps.Log))

	if err := router.SetTrustedProxies(deps.TrustedProxies); err != nil {
		deps.Log.WithError(err).Warn("failed to set trusted proxies")
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     deps.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", Health)

	api := router.Group("/api")
	api.Use(deps.Auth.RequireAuth())
	{
		generate := []gin.HandlerFunc{deps.Challenges.GenerateChallenge}
		if deps.RateLimiter != nil {
			generate = append([]gin.HandlerFunc{deps.RateLimiter.Limit(deps.RateLimit)}, generate...)
		}
		api.POST("/generate-challenge", generate...)
		api.GET("/my-history", deps.Challenges.GetHistory)
		api.GET("/my-history/export", deps.Challenges.ExportHistory)
		api.GET("/quota", deps.Challenges.GetQuota)
	}

	return router
}

// Health отвечает на проверку живости
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
