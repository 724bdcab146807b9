package application

import (
	"strings"
	"time"

	"github.com/example/room-scheduler/internal/persistence"
	"github.com/example/room-scheduler/internal/scheduler"
)

// Principal describes the authenticated actor invoking a service.
type Principal struct {
	Email  string
	Role   persistence.Role
	Sector string
}

// IsManager reports whether the principal holds the manager role.
func (p Principal) IsManager() bool {
	return p.Role == persistence.RoleManager
}

// CreateBookingInput carries the fields accepted when creating a booking.
type CreateBookingInput struct {
	Start                time.Time
	Duration             int
	Sector               string
	Room                 string
	Activity             string
	ExpectedParticipants *int
	Criterion            persistence.Criterion
	Invitees             []string
}

// CreateBookingResult reports the created booking and how invitees were handled.
// Skipped lists invitee emails that did not resolve to a registered user.
type CreateBookingResult struct {
	BookingID string
	Invited   []string
	Skipped   []string
}

// BookingPatch lists the booking fields to change. Nil fields are left untouched.
type BookingPatch struct {
	Start                *time.Time
	Duration             *int
	Activity             *string
	ExpectedParticipants *int
	Criterion            *persistence.Criterion
}

// IsEmpty reports whether the patch changes nothing.
func (p BookingPatch) IsEmpty() bool {
	return p.Start == nil && p.Duration == nil && p.Activity == nil && p.ExpectedParticipants == nil && p.Criterion == nil
}

// BookingDetails is a booking together with its invitation list.
type BookingDetails struct {
	Booking     persistence.Booking
	Invitations []persistence.Invitation
}

// Decision is an invitee's answer.
type Decision string

const (
	DecisionAccept  Decision = "accept"
	DecisionDecline Decision = "decline"
)

// RespondInput carries an invitee's answer to an invitation.
type RespondInput struct {
	BookingID string
	UserEmail string
	Decision  Decision
	Reason    string
}

// RoomSchedule lists a room's bookings within a week.
type RoomSchedule struct {
	Week     scheduler.Week
	Room     string
	Sector   string
	Bookings []persistence.Booking
}

// UserSchedule lists the bookings a user is invited to within a week.
type UserSchedule struct {
	Week    scheduler.Week
	Email   string
	Entries []persistence.Commitment
}

// RegisterUserInput carries the fields accepted when registering a user.
type RegisterUserInput struct {
	Email         string     `validate:"required,email,max=255"`
	Password      string     `validate:"required,min=8,max=128"`
	FirstName     string     `validate:"required,max=100"`
	LastName      string     `validate:"required,max=100"`
	BirthDate     time.Time  `validate:"required"`
	Role          string     `validate:"required,oneof=manager teacher student technician"`
	Sector        string     `validate:"max=100"`
	RoleStartDate *time.Time `validate:"required_if=Role manager"`
}

// UpdateUserInput lists the profile fields to change. Nil or blank fields are
// left untouched.
type UpdateUserInput struct {
	FirstName *string `validate:"omitnil,max=100"`
	LastName  *string `validate:"omitnil,max=100"`
	Password  *string `validate:"omitnil,min=8,max=128"`
}

// LoginResult is returned after a successful login.
type LoginResult struct {
	Session persistence.Session
	User    persistence.User
}

// SectorSpec describes a sector and its rooms for catalog synchronisation.
type SectorSpec struct {
	Name  string
	Rooms []RoomSpec
}

// RoomSpec describes a room within a sector.
type RoomSpec struct {
	Name      string
	Capacity  int
	Equipment []string
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// normalizeInvitees trims, lower-cases and de-duplicates emails, dropping blanks.
func normalizeInvitees(emails []string) []string {
	if len(emails) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(emails))
	out := make([]string, 0, len(emails))
	for _, raw := range emails {
		email := normalizeEmail(raw)
		if email == "" {
			continue
		}
		if _, ok := seen[email]; ok {
			continue
		}
		seen[email] = struct{}{}
		out = append(out, email)
	}
	return out
}

func stringPtr(s string) *string {
	return &s
}
