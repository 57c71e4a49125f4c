package httpHandler

import (
	"net/http"
	"strings"
	"time"

	"projector-server/usecases"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	requestIDKey    = "request_id"
	requestIDHeader = "X-Request-ID"
	userKey         = "user_email"
	userHeader      = "X-User"
	anonymousUser   = "anonymous"
)

// RequestLogger tags each request with an id and logs it once it completes.
func RequestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)

		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.String("request_id", id),
		}
		switch status := c.Writer.Status(); {
		case status >= http.StatusInternalServerError:
			log.Error("request", fields...)
		case status >= http.StatusBadRequest:
			log.Warn("request", fields...)
		default:
			log.Info("request", fields...)
		}
	}
}

// TokenValidator checks bearer tokens issued by the login endpoint.
type TokenValidator interface {
	Validate(token string) (*usecases.Claims, error)
}

// Identity resolves the operator behind a console request. With auth enabled
// a valid bearer token is required; otherwise the X-User header is trusted.
func Identity(validator TokenValidator, enabled bool, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !enabled {
			user := strings.TrimSpace(c.GetHeader(userHeader))
			if user == "" {
				user = anonymousUser
			}
			c.Set(userKey, user)
			c.Next()
			return
		}

		header := c.GetHeader("Authorization")
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid authorization header"})
			return
		}
		claims, err := validator.Validate(strings.TrimSpace(parts[1]))
		if err != nil {
			log.Debug("token rejected", zap.Error(err))
			RespondError(c, log, err)
			return
		}
		c.Set(userKey, claims.Email)
		c.Next()
	}
}

// UserFrom returns the operator resolved by Identity.
func UserFrom(c *gin.Context) string {
	if u := c.GetString(userKey); u != "" {
		return u
	}
	return anonymousUser
}
