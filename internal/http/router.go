package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthChecker reports whether the backing storage is reachable.
type HealthChecker func(ctx context.Context) error

// RouterConfig collects the handlers and middleware the router mounts. Nil
// handlers leave their routes unregistered.
type RouterConfig struct {
	Auth           *AuthHandler
	Users          *UserHandler
	Rooms          *RoomHandler
	Bookings       *BookingHandler
	Stats          *StatsHandler
	Sessions       SessionValidator
	Health         HealthChecker
	RequestTimeout time.Duration
	Logger         *slog.Logger
}

// NewRouter builds the gin engine serving the scheduler API.
func NewRouter(cfg RouterConfig) *gin.Engine {
	logger := defaultLogger(cfg.Logger)

	router := gin.New()
	router.Use(Recovery(logger), RequestLogger(logger), Timeout(cfg.RequestTimeout))
	router.HandleMethodNotAllowed = true

	responder := newResponder(logger)
	router.NoRoute(func(c *gin.Context) {
		responder.writeJSON(c, http.StatusNotFound, errorResponse{ErrorCode: "NOT_FOUND", Message: localizedStatusMessage(http.StatusNotFound)})
	})
	router.GET("/healthz", healthHandler(cfg.Health, responder))

	api := router.Group("/api/v1")

	if cfg.Auth != nil {
		api.POST("/sessions", cfg.Auth.CreateSession)
		api.DELETE("/sessions/current", cfg.Auth.DeleteCurrentSession)
	}
	if cfg.Users != nil {
		api.POST("/users", cfg.Users.Register)
	}

	if cfg.Sessions == nil {
		return router
	}

	authed := api.Group("", RequireSession(cfg.Sessions, logger))
	managerOnly := RequireManager(logger)

	if cfg.Users != nil {
		authed.GET("/me", cfg.Users.Me)
		authed.GET("/users/:email", cfg.Users.Get)
		authed.PATCH("/users/:email", cfg.Users.Update)
		authed.DELETE("/users/:email", managerOnly, cfg.Users.Delete)
		authed.GET("/users/:email/week", cfg.Users.Week)
	}
	if cfg.Rooms != nil {
		authed.GET("/sectors", cfg.Rooms.ListSectors)
		authed.GET("/rooms", cfg.Rooms.ListRooms)
		authed.GET("/sectors/:sector/rooms/:room/week", cfg.Rooms.Week)
	}
	if cfg.Bookings != nil {
		authed.POST("/bookings", managerOnly, cfg.Bookings.Create)
		authed.GET("/bookings/:id", cfg.Bookings.Get)
		authed.PATCH("/bookings/:id", cfg.Bookings.Update)
		authed.DELETE("/bookings/:id", cfg.Bookings.Delete)
		authed.PUT("/bookings/:id/invitations/:email", cfg.Bookings.Respond)
	}
	if cfg.Stats != nil {
		authed.GET("/stats", managerOnly, cfg.Stats.Report)
	}

	return router
}

func healthHandler(check HealthChecker, responder responder) gin.HandlerFunc {
	return func(c *gin.Context) {
		if check != nil {
			if err := check(c.Request.Context()); err != nil {
				responder.loggerFor(c.Request.Context()).ErrorContext(c.Request.Context(), "health check failed", "error", err)
				responder.writeJSON(c, http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		responder.writeJSON(c, http.StatusOK, gin.H{"status": "ok"})
	}
}
