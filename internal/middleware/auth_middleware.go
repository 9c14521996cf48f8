package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/trivia-challenge-api/pkg/auth"
)

// ContextUserIDKey - ключ gin.Context с идентификатором пользователя
const ContextUserIDKey = "user_id"

// TokenVerifier проверяет токен и возвращает пользователя
type TokenVerifier interface {
	TokenFromRequest(r *http.Request) (string, error)
	Verify(ctx context.Context, token string) (*auth.Identity, error)
}

// AuthMiddleware обеспечивает аутентификацию для защищенных маршрутов
type AuthMiddleware struct {
	verifier TokenVerifier
	log      logrus.FieldLogger
}

// NewAuthMiddleware создает новый middleware аутентификации
func NewAuthMiddleware(verifier TokenVerifier, log logrus.FieldLogger) *AuthMiddleware {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &AuthMiddleware{verifier: verifier, log: log}
}

// RequireAuth проверяет токен и кладет идентификатор пользователя в контекст
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := m.verifier.TokenFromRequest(c.Request)
		if err != nil {
			errorType := "token_missing"
			if errors.Is(err, auth.ErrTokenFormat) {
				errorType = "token_format"
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized", "error_type": errorType})
			return
		}

		identity, err := m.verifier.Verify(c.Request.Context(), token)
		if err != nil {
			m.log.WithError(err).WithField("path", c.FullPath()).Debug("[AuthMiddleware] Токен отклонен")
			errorType := "token_invalid"
			if errors.Is(err, auth.ErrUnauthorizedParty) {
				errorType = "unauthorized_party"
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token", "error_type": errorType})
			return
		}

		c.Set(ContextUserIDKey, identity.UserID)
		c.Next()
	}
}

// UserIDFromContext возвращает идентификатор пользователя, установленный RequireAuth
func UserIDFromContext(c *gin.Context) (string, bool) {
	value, exists := c.Get(ContextUserIDKey)
	if !exists {
		return "", false
	}
	userID, ok := value.(string)
	return userID, ok && userID != ""
}
