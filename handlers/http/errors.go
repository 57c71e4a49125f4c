package httpHandler

import (
	"errors"
	"net/http"

	"projector-server/usecases"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ResponseDto is the body of every successful mutation.
type ResponseDto struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

const statusSuccess = "SUCCESS"

func success(message string) ResponseDto {
	return ResponseDto{Status: statusSuccess, Message: message}
}

func httpStatus(kind usecases.Kind) int {
	switch kind {
	case usecases.NotFound:
		return http.StatusNotFound
	case usecases.InvalidArgument:
		return http.StatusBadRequest
	case usecases.InvalidState:
		return http.StatusUnprocessableEntity
	case usecases.Conflict:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// RespondError renders err and aborts the request. Domain errors carry their
// code and message; anything else is logged and hidden behind a 500.
func RespondError(c *gin.Context, log *zap.Logger, err error) {
	if e, ok := usecases.AsError(err); ok {
		fields := []zap.Field{
			zap.String("kind", string(e.Kind)),
			zap.Int("code", e.Code),
			zap.String("message", e.Message),
			zap.String("request_id", c.GetString(requestIDKey)),
		}
		if e.Cause != nil {
			fields = append(fields, zap.NamedError("cause", e.Cause))
		}
		log.Warn("request rejected", fields...)
		c.AbortWithStatusJSON(httpStatus(e.Kind), gin.H{
			"id":      e.Code,
			"error":   e.Kind,
			"message": e.Message,
		})
		return
	}
	if errors.Is(err, usecases.ErrInvalidCredentials) || errors.Is(err, usecases.ErrInvalidToken) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	log.Error("request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.String("request_id", c.GetString(requestIDKey)),
		zap.Error(err))
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}

func badRequest(c *gin.Context, log *zap.Logger, format string, args ...any) {
	RespondError(c, log, usecases.InvalidArgumentf(format, args...))
}
