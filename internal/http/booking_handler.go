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

type bookingService interface {
	Create(ctx context.Context, ownerEmail string, input application.CreateBookingInput) (application.CreateBookingResult, error)
	Update(ctx context.Context, bookingID, requesterEmail string, patch application.BookingPatch) (persistence.Booking, error)
	Delete(ctx context.Context, bookingID, requesterEmail string) error
	Get(ctx context.Context, bookingID string) (application.BookingDetails, error)
}

type invitationService interface {
	Respond(ctx context.Context, input application.RespondInput) (persistence.Invitation, error)
}

// BookingHandler serves booking management and invitation responses.
type BookingHandler struct {
	bookings    bookingService
	invitations invitationService
	loc         *time.Location
	responder   responder
	logger      *slog.Logger
}

func NewBookingHandler(bookings bookingService, invitations invitationService, loc *time.Location, logger *slog.Logger) *BookingHandler {
	base := defaultLogger(logger)
	if loc == nil {
		loc = time.Local
	}
	return &BookingHandler{bookings: bookings, invitations: invitations, loc: loc, responder: newResponder(base), logger: base}
}

type createBookingRequest struct {
	Start                string   `json:"start"`
	Duration             int      `json:"duration"`
	Sector               string   `json:"sector"`
	Room                 string   `json:"room"`
	Activity             string   `json:"activity"`
	ExpectedParticipants *int     `json:"expectedParticipants"`
	Criterion            string   `json:"criterion"`
	Invitees             []string `json:"invitees"`
}

type createBookingResponse struct {
	BookingID string   `json:"bookingId"`
	Invited   []string `json:"invited"`
	Skipped   []string `json:"skipped"`
}

type updateBookingRequest struct {
	Start                *string `json:"start"`
	Duration             *int    `json:"duration"`
	Activity             *string `json:"activity"`
	ExpectedParticipants *int    `json:"expectedParticipants"`
	Criterion            *string `json:"criterion"`
}

type respondRequest struct {
	Decision string `json:"decision"`
	Reason   string `json:"reason"`
}

func (h *BookingHandler) Create(c *gin.Context) {
	principal, ok := principalFrom(c)
	if !ok {
		h.responder.handleServiceError(c, application.ErrUnauthenticated)
		return
	}

	var req createBookingRequest
	if err := decodeJSON(c, &req); err != nil {
		h.responder.badRequest(c, err)
		return
	}

	input := application.CreateBookingInput{
		Duration:             req.Duration,
		Sector:               req.Sector,
		Room:                 req.Room,
		Activity:             req.Activity,
		ExpectedParticipants: req.ExpectedParticipants,
		Criterion:            persistence.Criterion(strings.ToLower(strings.TrimSpace(req.Criterion))),
		Invitees:             req.Invitees,
	}
	if strings.TrimSpace(req.Start) != "" {
		start, err := parseDateTime(req.Start, h.loc)
		if err != nil {
			h.responder.handleServiceError(c, invalidField("start"))
			return
		}
		input.Start = start
	}

	result, err := h.bookings.Create(c.Request.Context(), principal.Email, input)
	if err != nil {
		h.responder.handleServiceError(c, err)
		return
	}

	resp := createBookingResponse{BookingID: result.BookingID, Invited: result.Invited, Skipped: result.Skipped}
	if resp.Invited == nil {
		resp.Invited = []string{}
	}
	if resp.Skipped == nil {
		resp.Skipped = []string{}
	}
	c.Header("Location", "/api/v1/bookings/"+result.BookingID)
	h.responder.writeJSON(c, http.StatusCreated, resp)
}

func (h *BookingHandler) Get(c *gin.Context) {
	details, err := h.bookings.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.responder.handleServiceError(c, err)
		return
	}
	h.responder.writeJSON(c, http.StatusOK, toBookingDetailsDTO(details, h.loc))
}

// Update applies a partial change. Only the owner may update a booking.
func (h *BookingHandler) Update(c *gin.Context) {
	principal, ok := principalFrom(c)
	if !ok {
		h.responder.handleServiceError(c, application.ErrUnauthenticated)
		return
	}

	var req updateBookingRequest
	if err := decodeJSON(c, &req); err != nil {
		h.responder.badRequest(c, err)
		return
	}

	patch := application.BookingPatch{
		Duration:             req.Duration,
		Activity:             req.Activity,
		ExpectedParticipants: req.ExpectedParticipants,
	}
	if req.Start != nil {
		start, err := parseDateTime(*req.Start, h.loc)
		if err != nil {
			h.responder.handleServiceError(c, invalidField("start"))
			return
		}
		patch.Start = &start
	}
	if req.Criterion != nil {
		criterion := persistence.Criterion(strings.ToLower(strings.TrimSpace(*req.Criterion)))
		patch.Criterion = &criterion
	}

	booking, err := h.bookings.Update(c.Request.Context(), c.Param("id"), principal.Email, patch)
	if err != nil {
		h.responder.handleServiceError(c, err)
		return
	}
	h.responder.writeJSON(c, http.StatusOK, toBookingDTO(booking, h.loc))
}

// Delete removes a booking and its invitations. Only the owner may delete.
func (h *BookingHandler) Delete(c *gin.Context) {
	principal, ok := principalFrom(c)
	if !ok {
		h.responder.handleServiceError(c, application.ErrUnauthenticated)
		return
	}
	if err := h.bookings.Delete(c.Request.Context(), c.Param("id"), principal.Email); err != nil {
		h.responder.handleServiceError(c, err)
		return
	}
	h.responder.writeJSON(c, http.StatusNoContent, nil)
}

// Respond records the invitee's answer. Users may only answer their own invitations.
func (h *BookingHandler) Respond(c *gin.Context) {
	principal, ok := principalFrom(c)
	if !ok {
		h.responder.handleServiceError(c, application.ErrUnauthenticated)
		return
	}
	email := c.Param("email")
	if !sameEmail(principal.Email, email) {
		handlerLogger(c.Request.Context(), h.logger, "BookingHandler", "Respond", "target", email).
			WarnContext(c.Request.Context(), "response on behalf of another user denied")
		h.responder.forbidden(c)
		return
	}

	var req respondRequest
	if err := decodeJSON(c, &req); err != nil {
		h.responder.badRequest(c, err)
		return
	}

	invitation, err := h.invitations.Respond(c.Request.Context(), application.RespondInput{
		BookingID: c.Param("id"),
		UserEmail: principal.Email,
		Decision:  application.Decision(strings.ToLower(strings.TrimSpace(req.Decision))),
		Reason:    req.Reason,
	})
	if err != nil {
		h.responder.handleServiceError(c, err)
		return
	}
	h.responder.writeJSON(c, http.StatusOK, toInvitationDTO(invitation, h.loc))
}
