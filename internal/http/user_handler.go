package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/example/room-scheduler/internal/application"
	"github.com/example/room-scheduler/internal/persistence"
)

type directoryService interface {
	Register(ctx context.Context, input application.RegisterUserInput) (persistence.User, error)
	GetUser(ctx context.Context, email string) (persistence.User, error)
	UpdateUser(ctx context.Context, requester application.Principal, email string, input application.UpdateUserInput) (persistence.User, error)
	DeleteUser(ctx context.Context, requester application.Principal, email string) error
	ListSectors(ctx context.Context) ([]persistence.Sector, error)
	ListRooms(ctx context.Context, sector string) ([]persistence.Room, error)
}

type weeklyQueryService interface {
	RoomSchedule(ctx context.Context, room, sector string, reference time.Time) (application.RoomSchedule, error)
	UserSchedule(ctx context.Context, requester application.Principal, email string, reference time.Time) (application.UserSchedule, error)
}

// UserHandler serves registration, profiles and personal weekly schedules.
type UserHandler struct {
	directory directoryService
	weekly    weeklyQueryService
	loc       *time.Location
	now       func() time.Time
	responder responder
	logger    *slog.Logger
}

func NewUserHandler(directory directoryService, weekly weeklyQueryService, loc *time.Location, now func() time.Time, logger *slog.Logger) *UserHandler {
	base := defaultLogger(logger)
	if loc == nil {
		loc = time.Local
	}
	if now == nil {
		now = time.Now
	}
	return &UserHandler{directory: directory, weekly: weekly, loc: loc, now: now, responder: newResponder(base), logger: base}
}

type registerRequest struct {
	Email         string `json:"email"`
	Password      string `json:"password"`
	FirstName     string `json:"firstName"`
	LastName      string `json:"lastName"`
	BirthDate     string `json:"birthDate"`
	Role          string `json:"role"`
	Sector        string `json:"sector"`
	RoleStartDate string `json:"roleStartDate"`
}

func (h *UserHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := decodeJSON(c, &req); err != nil {
		h.responder.badRequest(c, err)
		return
	}

	input := application.RegisterUserInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      req.Role,
		Sector:    req.Sector,
	}
	if strings.TrimSpace(req.BirthDate) != "" {
		birth, err := parseDate(req.BirthDate, h.loc)
		if err != nil {
			h.responder.handleServiceError(c, invalidField("birthDate"))
			return
		}
		input.BirthDate = birth
	}
	if strings.TrimSpace(req.RoleStartDate) != "" {
		start, err := parseDate(req.RoleStartDate, h.loc)
		if err != nil {
			h.responder.handleServiceError(c, invalidField("roleStartDate"))
			return
		}
		input.RoleStartDate = &start
	}

	user, err := h.directory.Register(c.Request.Context(), input)
	if err != nil {
		h.responder.handleServiceError(c, err)
		return
	}
	h.responder.writeJSON(c, http.StatusCreated, toUserDTO(user))
}

// Me returns the authenticated principal.
func (h *UserHandler) Me(c *gin.Context) {
	principal, ok := principalFrom(c)
	if !ok {
		h.responder.handleServiceError(c, application.ErrUnauthenticated)
		return
	}
	h.responder.writeJSON(c, http.StatusOK, toPrincipalDTO(principal))
}

// Get returns a profile. Users see their own; managers see everyone's.
func (h *UserHandler) Get(c *gin.Context) {
	_, email, ok := h.authorizeSelfOrManager(c, "Get")
	if !ok {
		return
	}

	user, err := h.directory.GetUser(c.Request.Context(), email)
	if err != nil {
		h.responder.handleServiceError(c, err)
		return
	}
	h.responder.writeJSON(c, http.StatusOK, toUserDTO(user))
}

type updateUserRequest struct {
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
	Password  *string `json:"password"`
}

// Update changes a profile. Users edit their own; managers edit everyone's.
func (h *UserHandler) Update(c *gin.Context) {
	principal, email, ok := h.authorizeSelfOrManager(c, "Update")
	if !ok {
		return
	}

	var req updateUserRequest
	if err := decodeJSON(c, &req); err != nil {
		h.responder.badRequest(c, err)
		return
	}

	user, err := h.directory.UpdateUser(c.Request.Context(), principal, email, application.UpdateUserInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Password:  req.Password,
	})
	if err != nil {
		h.responder.handleServiceError(c, err)
		return
	}
	h.responder.writeJSON(c, http.StatusOK, toUserDTO(user))
}

// Delete removes a user with their invitations.
func (h *UserHandler) Delete(c *gin.Context) {
	principal, ok := principalFrom(c)
	if !ok {
		h.responder.handleServiceError(c, application.ErrUnauthenticated)
		return
	}
	email := strings.ToLower(strings.TrimSpace(c.Param("email")))
	if err := h.directory.DeleteUser(c.Request.Context(), principal, email); err != nil {
		h.responder.handleServiceError(c, err)
		return
	}
	h.responder.writeJSON(c, http.StatusNoContent, nil)
}

// Week returns the bookings the user is invited to in the requested week.
func (h *UserHandler) Week(c *gin.Context) {
	principal, email, ok := h.authorizeSelfOrManager(c, "Week")
	if !ok {
		return
	}

	reference, err := weekReference(c, h.loc, h.now)
	if err != nil {
		h.responder.handleServiceError(c, err)
		return
	}

	schedule, err := h.weekly.UserSchedule(c.Request.Context(), principal, email, reference)
	if err != nil {
		h.responder.handleServiceError(c, err)
		return
	}
	h.responder.writeJSON(c, http.StatusOK, toUserScheduleDTO(schedule, h.loc))
}

func (h *UserHandler) authorizeSelfOrManager(c *gin.Context, operation string) (application.Principal, string, bool) {
	principal, ok := principalFrom(c)
	if !ok {
		h.responder.handleServiceError(c, application.ErrUnauthenticated)
		return application.Principal{}, "", false
	}
	email := strings.ToLower(strings.TrimSpace(c.Param("email")))
	if !sameEmail(principal.Email, email) && !principal.IsManager() {
		handlerLogger(c.Request.Context(), h.logger, "UserHandler", operation, "target", email).
			WarnContext(c.Request.Context(), "access to another user's data denied")
		h.responder.forbidden(c)
		return application.Principal{}, "", false
	}
	return principal, email, true
}
