package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/example/room-scheduler/internal/application"
)

type authService interface {
	Login(ctx context.Context, email, password string) (application.LoginResult, error)
	Logout(ctx context.Context, token string) error
}

type AuthHandler struct {
	service   authService
	responder responder
	logger    *slog.Logger
}

func NewAuthHandler(service authService, logger *slog.Logger) *AuthHandler {
	base := defaultLogger(logger)
	return &AuthHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *AuthHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "AuthHandler", operation, attrs...)
}

// CreateSession logs a user in and returns the session token, which is also
// set as the session cookie.
func (h *AuthHandler) CreateSession(c *gin.Context) {
	var req loginRequest
	if err := decodeJSON(c, &req); err != nil {
		h.responder.badRequest(c, err)
		return
	}

	email := strings.TrimSpace(strings.ToLower(req.Email))
	result, err := h.service.Login(c.Request.Context(), email, req.Password)
	if err != nil {
		h.responder.handleServiceError(c, err)
		return
	}

	setSessionCookie(c.Writer, result.Session.Token, result.Session.ExpiresAt)
	c.Header("X-Session-Token", result.Session.Token)
	h.log(c.Request.Context(), "CreateSession", "email", result.User.Email).InfoContext(c.Request.Context(), "user authenticated")

	h.responder.writeJSON(c, http.StatusCreated, loginResponse{
		Token:     result.Session.Token,
		ExpiresAt: result.Session.ExpiresAt.UTC().Format(time.RFC3339),
		User:      toUserDTO(result.User),
	})
}

// DeleteCurrentSession revokes the session carried by the request.
func (h *AuthHandler) DeleteCurrentSession(c *gin.Context) {
	token := extractTokenFromRequest(c.Request)
	if token == "" {
		h.responder.writeJSON(c, http.StatusUnauthorized, errorResponse{
			ErrorCode: "UNAUTHENTICATED",
			Message:   errMissingSessionToken.Error(),
		})
		return
	}

	if err := h.service.Logout(c.Request.Context(), token); err != nil {
		h.responder.handleServiceError(c, err)
		return
	}

	clearSessionCookie(c.Writer)
	h.responder.writeJSON(c, http.StatusNoContent, nil)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string  `json:"token"`
	ExpiresAt string  `json:"expiresAt"`
	User      userDTO `json:"user"`
}

const sessionCookieName = "session_token"

func setSessionCookie(w http.ResponseWriter, token string, expires time.Time) {
	cookie := &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
	}
	if !expires.IsZero() {
		cookie.Expires = expires.UTC()
	}
	http.SetCookie(w, cookie)
}

func clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
	})
}

func extractTokenFromRequest(r *http.Request) string {
	if r == nil {
		return ""
	}
	if header := strings.TrimSpace(r.Header.Get("Authorization")); header != "" {
		const prefix = "Bearer "
		if strings.HasPrefix(header, prefix) {
			return strings.TrimSpace(strings.TrimPrefix(header, prefix))
		}
	}
	if cookie, err := r.Cookie(sessionCookieName); err == nil {
		return strings.TrimSpace(cookie.Value)
	}
	return ""
}
