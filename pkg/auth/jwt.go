package auth

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v4"
)

// DefaultSessionCookie - кука сессии провайдера идентификации
const DefaultSessionCookie = "__session"

var (
	// ErrTokenMissing - токен не найден ни в заголовке, ни в куке
	ErrTokenMissing = errors.New("authentication token missing")
	// ErrTokenFormat - заголовок Authorization не в формате Bearer {token}
	ErrTokenFormat = errors.New("authorization header format must be Bearer {token}")
	// ErrTokenInvalid - подпись, срок действия или claims не прошли проверку
	ErrTokenInvalid = errors.New("invalid or expired token")
	// ErrUnauthorizedParty - azp токена не входит в список разрешенных
	ErrUnauthorizedParty = errors.New("token issued for unauthorized party")
)

// SessionClaims - claims сессионного токена провайдера идентификации
type SessionClaims struct {
	AuthorizedParty string `json:"azp,omitempty"`
	jwt.RegisteredClaims
}

// Identity - проверенный пользователь
type Identity struct {
	UserID          string
	AuthorizedParty string
}

// VerifierConfig содержит ключи и ограничения для проверки токенов
type VerifierConfig struct {
	// PublicKeyPEM - публичный RSA ключ провайдера (RS256)
	PublicKeyPEM string
	// HMACSecret - секрет HS256, только для локальной разработки
	HMACSecret string
	// AuthorizedParties - допустимые значения azp. Пустой список отключает проверку.
	AuthorizedParties []string
	// CookieName - имя куки с токеном
	CookieName string
}

// Verifier проверяет сессионные токены без обращения к провайдеру
type Verifier struct {
	publicKey   *rsa.PublicKey
	hmacSecret  []byte
	parties     map[string]struct{}
	cookieName  string
	validMethod string
}

// NewVerifier создает Verifier. Нужен либо PEM ключ, либо HMAC секрет.
func NewVerifier(cfg VerifierConfig) (*Verifier, error) {
	v := &Verifier{
		parties:    make(map[string]struct{}, len(cfg.AuthorizedParties)),
		cookieName: cfg.CookieName,
	}
	if v.cookieName == "" {
		v.cookieName = DefaultSessionCookie
	}
	for _, party := range cfg.AuthorizedParties {
		if party = strings.TrimSpace(party); party != "" {
			v.parties[party] = struct{}{}
		}
	}

	switch {
	case strings.TrimSpace(cfg.PublicKeyPEM) != "":
		key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(cfg.PublicKeyPEM))
		if err != nil {
			return nil, fmt.Errorf("failed to parse RSA public key: %w", err)
		}
		v.publicKey = key
		v.validMethod = jwt.SigningMethodRS256.Alg()
	case cfg.HMACSecret != "":
		v.hmacSecret = []byte(cfg.HMACSecret)
		v.validMethod = jwt.SigningMethodHS256.Alg()
	default:
		return nil, errors.New("either public key PEM or HMAC secret is required")
	}

	return v, nil
}

// TokenFromRequest извлекает токен из заголовка Authorization, затем из куки
func (v *Verifier) TokenFromRequest(r *http.Request) (string, error) {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			return "", ErrTokenFormat
		}
		return parts[1], nil
	}

	cookie, err := r.Cookie(v.cookieName)
	if err != nil || cookie.Value == "" {
		return "", ErrTokenMissing
	}
	return cookie.Value, nil
}

// Verify проверяет подпись, срок действия и azp, возвращая sub как идентификатор пользователя
func (v *Verifier) Verify(_ context.Context, tokenString string) (*Identity, error) {
	claims := &SessionClaims{}

	keyFunc := func(token *jwt.Token) (interface{}, error) {
		if v.publicKey != nil {
			return v.publicKey, nil
		}
		return v.hmacSecret, nil
	}

	token, err := jwt.ParseWithClaims(tokenString, claims, keyFunc, jwt.WithValidMethods([]string{v.validMethod}))
	if err != nil {
		var ve *jwt.ValidationError
		if errors.As(err, &ve) {
			switch {
			case ve.Errors&jwt.ValidationErrorMalformed != 0:
				return nil, fmt.Errorf("%w: token is malformed", ErrTokenInvalid)
			case ve.Errors&jwt.ValidationErrorExpired != 0:
				return nil, fmt.Errorf("%w: token is expired", ErrTokenInvalid)
			case ve.Errors&jwt.ValidationErrorNotValidYet != 0:
				return nil, fmt.Errorf("%w: token not valid yet", ErrTokenInvalid)
			case ve.Errors&jwt.ValidationErrorSignatureInvalid != 0:
				return nil, fmt.Errorf("%w: signature is invalid", ErrTokenInvalid)
			}
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if !token.Valid {
		return nil, ErrTokenInvalid
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing sub claim", ErrTokenInvalid)
	}

	if len(v.parties) > 0 {
		if _, ok := v.parties[claims.AuthorizedParty]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnauthorizedParty, claims.AuthorizedParty)
		}
	}

	return &Identity{UserID: claims.Subject, AuthorizedParty: claims.AuthorizedParty}, nil
}
