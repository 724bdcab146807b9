package http

import (
	"time"

	"github.com/example/room-scheduler/internal/application"
	"github.com/example/room-scheduler/internal/persistence"
	"github.com/example/room-scheduler/internal/scheduler"
)

type bookingDTO struct {
	ID                   string  `json:"id"`
	Start                string  `json:"start"`
	End                  string  `json:"end"`
	Duration             int     `json:"duration"`
	Activity             *string `json:"activity,omitempty"`
	ExpectedParticipants *int    `json:"expectedParticipants,omitempty"`
	Criterion            string  `json:"criterion"`
	Sector               string  `json:"sector"`
	Room                 string  `json:"room"`
	OwnerEmail           string  `json:"ownerEmail"`
	OwnerName            string  `json:"ownerName,omitempty"`
	CreatedAt            string  `json:"createdAt"`
}

type invitationDTO struct {
	UserEmail   string  `json:"userEmail"`
	BookingID   string  `json:"bookingId"`
	Response    string  `json:"response"`
	RespondedAt *string `json:"respondedAt,omitempty"`
	Reason      *string `json:"reason,omitempty"`
}

type commitmentDTO struct {
	bookingDTO
	Response    string  `json:"response"`
	RespondedAt *string `json:"respondedAt,omitempty"`
	Reason      *string `json:"reason,omitempty"`
}

type bookingDetailsDTO struct {
	Booking     bookingDTO      `json:"booking"`
	Invitations []invitationDTO `json:"invitations"`
}

type weekDTO struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type roomScheduleDTO struct {
	Week     weekDTO      `json:"week"`
	Sector   string       `json:"sector"`
	Room     string       `json:"room"`
	Bookings []bookingDTO `json:"bookings"`
}

type userScheduleDTO struct {
	Week    weekDTO         `json:"week"`
	Email   string          `json:"email"`
	Entries []commitmentDTO `json:"entries"`
}

type userDTO struct {
	Email         string  `json:"email"`
	FirstName     string  `json:"firstName"`
	LastName      string  `json:"lastName"`
	BirthDate     string  `json:"birthDate"`
	Role          string  `json:"role"`
	Sector        *string `json:"sector,omitempty"`
	RoleStartDate *string `json:"roleStartDate,omitempty"`
}

type principalDTO struct {
	Email  string `json:"email"`
	Role   string `json:"role"`
	Sector string `json:"sector,omitempty"`
}

type sectorDTO struct {
	Name        string `json:"name"`
	MemberCount int    `json:"memberCount"`
}

type roomDTO struct {
	Name      string   `json:"name"`
	Sector    string   `json:"sector"`
	Capacity  int      `json:"capacity"`
	Equipment []string `json:"equipment"`
}

type capacityRowDTO struct {
	BookingID string  `json:"bookingId"`
	Activity  *string `json:"activity,omitempty"`
	Sector    string  `json:"sector"`
	Room      string  `json:"room"`
	Accepted  int     `json:"accepted"`
	Capacity  int     `json:"capacity"`
	Exceeded  bool    `json:"exceeded"`
}

type dailyLoadRowDTO struct {
	Day      string `json:"day"`
	Sector   string `json:"sector"`
	Room     string `json:"room"`
	Bookings int    `json:"bookings"`
}

type statsDTO struct {
	Capacity  []capacityRowDTO  `json:"capacity"`
	DailyLoad []dailyLoadRowDTO `json:"dailyLoad"`
}

func formatTime(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(time.RFC3339)
}

func formatTimePtr(t *time.Time, loc *time.Location) *string {
	if t == nil || t.IsZero() {
		return nil
	}
	s := formatTime(*t, loc)
	return &s
}

func toBookingDTO(b persistence.Booking, loc *time.Location) bookingDTO {
	return bookingDTO{
		ID:                   b.ID,
		Start:                formatTime(b.Start, loc),
		End:                  formatTime(b.End, loc),
		Duration:             b.Duration,
		Activity:             b.Activity,
		ExpectedParticipants: b.ExpectedParticipants,
		Criterion:            string(b.Criterion),
		Sector:               b.Sector,
		Room:                 b.Room,
		OwnerEmail:           b.OwnerEmail,
		OwnerName:            b.OwnerName,
		CreatedAt:            formatTime(b.CreatedAt, loc),
	}
}

func toInvitationDTO(inv persistence.Invitation, loc *time.Location) invitationDTO {
	return invitationDTO{
		UserEmail:   inv.UserEmail,
		BookingID:   inv.BookingID,
		Response:    string(inv.Response),
		RespondedAt: formatTimePtr(inv.RespondedAt, loc),
		Reason:      inv.Reason,
	}
}

func toBookingDetailsDTO(details application.BookingDetails, loc *time.Location) bookingDetailsDTO {
	invitations := make([]invitationDTO, 0, len(details.Invitations))
	for _, inv := range details.Invitations {
		invitations = append(invitations, toInvitationDTO(inv, loc))
	}
	return bookingDetailsDTO{Booking: toBookingDTO(details.Booking, loc), Invitations: invitations}
}

func toWeekDTO(w scheduler.Week) weekDTO {
	return weekDTO{Start: w.Start.Format(dateLayout), End: w.End.Format(dateLayout)}
}

func toRoomScheduleDTO(s application.RoomSchedule, loc *time.Location) roomScheduleDTO {
	bookings := make([]bookingDTO, 0, len(s.Bookings))
	for _, b := range s.Bookings {
		bookings = append(bookings, toBookingDTO(b, loc))
	}
	return roomScheduleDTO{Week: toWeekDTO(s.Week), Sector: s.Sector, Room: s.Room, Bookings: bookings}
}

func toUserScheduleDTO(s application.UserSchedule, loc *time.Location) userScheduleDTO {
	entries := make([]commitmentDTO, 0, len(s.Entries))
	for _, e := range s.Entries {
		entries = append(entries, commitmentDTO{
			bookingDTO:  toBookingDTO(e.Booking, loc),
			Response:    string(e.Response),
			RespondedAt: formatTimePtr(e.RespondedAt, loc),
			Reason:      e.Reason,
		})
	}
	return userScheduleDTO{Week: toWeekDTO(s.Week), Email: s.Email, Entries: entries}
}

func toUserDTO(u persistence.User) userDTO {
	dto := userDTO{
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		BirthDate: u.BirthDate.Format(dateLayout),
		Role:      string(u.Role),
		Sector:    u.Sector,
	}
	if u.RoleStartDate != nil && !u.RoleStartDate.IsZero() {
		s := u.RoleStartDate.Format(dateLayout)
		dto.RoleStartDate = &s
	}
	return dto
}

func toPrincipalDTO(p application.Principal) principalDTO {
	return principalDTO{Email: p.Email, Role: string(p.Role), Sector: p.Sector}
}

func toRoomDTO(r persistence.Room) roomDTO {
	equipment := r.Equipment
	if equipment == nil {
		equipment = []string{}
	}
	return roomDTO{Name: r.Name, Sector: r.Sector, Capacity: r.Capacity, Equipment: equipment}
}
