package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/example/room-scheduler/internal/application"
	"github.com/example/room-scheduler/internal/logging"
)

// SessionValidator resolves a session token to the principal it authenticates.
type SessionValidator interface {
	ValidateSession(ctx context.Context, token string) (application.Principal, error)
}

// RequireSession rejects requests without a valid session and stores the
// principal in the request context.
func RequireSession(validator SessionValidator, logger *slog.Logger) gin.HandlerFunc {
	responder := newResponder(logger)

	return func(c *gin.Context) {
		token := extractTokenFromRequest(c.Request)
		if token == "" {
			responder.writeJSON(c, http.StatusUnauthorized, errorResponse{
				ErrorCode: "UNAUTHENTICATED",
				Message:   errMissingSessionToken.Error(),
			})
			c.Abort()
			return
		}

		principal, err := validator.ValidateSession(c.Request.Context(), token)
		if err != nil {
			responder.handleServiceError(c, err)
			c.Abort()
			return
		}

		c.Request = c.Request.WithContext(ContextWithPrincipal(c.Request.Context(), principal))
		c.Next()
	}
}

// RequireManager admits only principals holding the manager role. It must run
// after RequireSession.
func RequireManager(logger *slog.Logger) gin.HandlerFunc {
	responder := newResponder(logger)

	return func(c *gin.Context) {
		principal, ok := principalFrom(c)
		if !ok || !principal.IsManager() {
			handlerLogger(c.Request.Context(), responder.logger, "RequireManager", "").
				WarnContext(c.Request.Context(), "manager role required", "email", principal.Email, "role", principal.Role)
			responder.forbidden(c)
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequestLogger attaches a request scoped logger to the request context and
// logs the outcome of every request.
func RequestLogger(base *slog.Logger) gin.HandlerFunc {
	base = defaultLogger(base)
	var counter atomic.Uint64

	return func(c *gin.Context) {
		id := counter.Add(1)
		logger := base.With(
			"request_id", id,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
		)

		ctx := logging.ContextWithLogger(c.Request.Context(), logger)
		c.Request = c.Request.WithContext(ctx)
		start := time.Now()
		logger.DebugContext(ctx, "request started", "client_ip", c.ClientIP())

		c.Next()

		status := c.Writer.Status()
		attrs := []any{"status", status, "duration", time.Since(start)}
		switch {
		case status >= http.StatusInternalServerError:
			logger.ErrorContext(ctx, "request completed", attrs...)
		case status >= http.StatusBadRequest:
			logger.WarnContext(ctx, "request completed", attrs...)
		default:
			logger.InfoContext(ctx, "request completed", attrs...)
		}
	}
}

// Timeout bounds the request context. Handlers observe the deadline through
// the services they call.
func Timeout(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if d <= 0 {
			c.Next()
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// Recovery converts panics into a localized 500 response.
func Recovery(logger *slog.Logger) gin.HandlerFunc {
	responder := newResponder(logger)
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		responder.loggerFor(c.Request.Context()).ErrorContext(c.Request.Context(), "panic recovered", "panic", recovered)
		responder.writeJSON(c, http.StatusInternalServerError, errorResponse{
			ErrorCode: "INTERNAL",
			Message:   localizedStatusMessage(http.StatusInternalServerError),
		})
		c.Abort()
	})
}
