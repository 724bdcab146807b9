package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/example/room-scheduler/internal/persistence"
)

type statsService interface {
	CapacityReport(ctx context.Context) ([]persistence.CapacityRow, error)
	DailyLoad(ctx context.Context) ([]persistence.DailyLoadRow, error)
}

type StatsHandler struct {
	service   statsService
	responder responder
}

func NewStatsHandler(service statsService, logger *slog.Logger) *StatsHandler {
	return &StatsHandler{service: service, responder: newResponder(logger)}
}

// Report returns the capacity report and the daily load in one payload.
func (h *StatsHandler) Report(c *gin.Context) {
	ctx := c.Request.Context()
	capacity, err := h.service.CapacityReport(ctx)
	if err != nil {
		h.responder.handleServiceError(c, err)
		return
	}
	load, err := h.service.DailyLoad(ctx)
	if err != nil {
		h.responder.handleServiceError(c, err)
		return
	}

	out := statsDTO{
		Capacity:  make([]capacityRowDTO, 0, len(capacity)),
		DailyLoad: make([]dailyLoadRowDTO, 0, len(load)),
	}
	for _, row := range capacity {
		out.Capacity = append(out.Capacity, capacityRowDTO{
			BookingID: row.BookingID,
			Activity:  row.Activity,
			Sector:    row.Sector,
			Room:      row.Room,
			Accepted:  row.Accepted,
			Capacity:  row.Capacity,
			Exceeded:  row.Exceeded,
		})
	}
	for _, row := range load {
		out.DailyLoad = append(out.DailyLoad, dailyLoadRowDTO{Day: row.Day, Sector: row.Sector, Room: row.Room, Bookings: row.Bookings})
	}
	h.responder.writeJSON(c, http.StatusOK, out)
}
