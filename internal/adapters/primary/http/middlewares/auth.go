package middlewares

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/admin/loventia/discover/internal/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const userIDKey = "auth.user_id"

// AuthConfig проверка bearer-токенов HS256
type AuthConfig struct {
	JWTSecret string `envconfig:"JWT_SECRET" required:"true"`
	Issuer    string `envconfig:"ISSUER"`
}

// Claims идентификатор пользователя встречается под разными именами
// в токенах разных поколений: sub, id, userId, uid
type Claims struct {
	LegacyID string `json:"id,omitempty"`
	UserID   string `json:"userId,omitempty"`
	UID      string `json:"uid,omitempty"`
	jwt.RegisteredClaims
}

// Subject первый непустой идентификатор
func (c *Claims) Subject() string {
	for _, v := range []string{c.RegisteredClaims.Subject, c.LegacyID, c.UserID, c.UID} {
		if v != "" {
			return v
		}
	}
	return ""
}

var errInvalidToken = errors.New("invalid token")

// ParseToken разбирает токен и возвращает id пользователя
func (cfg AuthConfig) ParseToken(raw string) (uuid.UUID, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(cfg.JWTSecret), nil
	}, opts...)
	if err != nil {
		return uuid.Nil, err
	}
	if !token.Valid {
		return uuid.Nil, errInvalidToken
	}

	id, err := uuid.Parse(claims.Subject())
	if err != nil {
		return uuid.Nil, errInvalidToken
	}
	return id, nil
}

// Auth требует заголовок Authorization: Bearer <jwt>
func Auth(cfg AuthConfig, log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		scheme, raw, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(raw) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		userID, err := cfg.ParseToken(strings.TrimSpace(raw))
		if err != nil {
			logger.FromContext(c.Request.Context(), log).Debug("rejected bearer token", "error", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		c.Set(userIDKey, userID)
		reqLog := logger.FromContext(c.Request.Context(), log).With("user_id", userID)
		c.Request = c.Request.WithContext(logger.WithContext(c.Request.Context(), reqLog))
		c.Next()
	}
}

// UserID id пользователя, установленный Auth
func UserID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(userIDKey)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}
