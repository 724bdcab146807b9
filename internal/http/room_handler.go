package http

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// RoomHandler serves the sector and room catalog and room weekly schedules.
type RoomHandler struct {
	directory directoryService
	weekly    weeklyQueryService
	loc       *time.Location
	now       func() time.Time
	responder responder
}

func NewRoomHandler(directory directoryService, weekly weeklyQueryService, loc *time.Location, now func() time.Time, logger *slog.Logger) *RoomHandler {
	if loc == nil {
		loc = time.Local
	}
	if now == nil {
		now = time.Now
	}
	return &RoomHandler{directory: directory, weekly: weekly, loc: loc, now: now, responder: newResponder(logger)}
}

func (h *RoomHandler) ListSectors(c *gin.Context) {
	sectors, err := h.directory.ListSectors(c.Request.Context())
	if err != nil {
		h.responder.handleServiceError(c, err)
		return
	}
	out := make([]sectorDTO, 0, len(sectors))
	for _, s := range sectors {
		out = append(out, sectorDTO{Name: s.Name, MemberCount: s.MemberCount})
	}
	h.responder.writeJSON(c, http.StatusOK, out)
}

// ListRooms lists rooms, optionally restricted by the sector query parameter.
func (h *RoomHandler) ListRooms(c *gin.Context) {
	rooms, err := h.directory.ListRooms(c.Request.Context(), strings.TrimSpace(c.Query("sector")))
	if err != nil {
		h.responder.handleServiceError(c, err)
		return
	}
	out := make([]roomDTO, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, toRoomDTO(r))
	}
	h.responder.writeJSON(c, http.StatusOK, out)
}

// Week returns the room's bookings in the week of the date query parameter.
func (h *RoomHandler) Week(c *gin.Context) {
	reference, err := weekReference(c, h.loc, h.now)
	if err != nil {
		h.responder.handleServiceError(c, err)
		return
	}

	schedule, err := h.weekly.RoomSchedule(c.Request.Context(), c.Param("room"), c.Param("sector"), reference)
	if err != nil {
		h.responder.handleServiceError(c, err)
		return
	}
	h.responder.writeJSON(c, http.StatusOK, toRoomScheduleDTO(schedule, h.loc))
}
