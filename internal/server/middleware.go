package server

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/qaydhq/qayd/internal/common"
)

const userIDKey = "user_id"

// authRequired validates the Bearer token and stashes the subject claim as
// the request's user ID. Receipts are always scoped to this ID; clients
// never pass their own.
func authRequired(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" {
			respondError(c, common.NewAppError(common.CodeUnauthorized, "missing bearer token", nil))
			return
		}

		token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			respondError(c, common.NewAppError(common.CodeUnauthorized, "invalid token", err))
			return
		}

		sub, err := token.Claims.GetSubject()
		if err != nil || sub == "" {
			respondError(c, common.NewAppError(common.CodeUnauthorized, "token missing subject", err))
			return
		}

		c.Set(userIDKey, sub)
		c.Next()
	}
}

func userID(c *gin.Context) string {
	return c.GetString(userIDKey)
}

// requestLogger logs one line per request in the access-log style.
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("took", time.Since(start)))
	}
}
