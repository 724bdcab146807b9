package persistence

import (
	"strings"
	"time"

	"github.com/example/room-scheduler/internal/scheduler"
)

// Role identifies the organisational role of a user.
type Role string

const (
	RoleManager    Role = "manager"
	RoleTeacher    Role = "teacher"
	RoleStudent    Role = "student"
	RoleTechnician Role = "technician"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleManager, RoleTeacher, RoleStudent, RoleTechnician:
		return true
	}
	return false
}

// Criterion is the declared audience policy of a booking. It is informational only.
type Criterion string

const (
	CriterionAll    Criterion = "all"
	CriterionSector Criterion = "sector"
	CriterionInvite Criterion = "invite"
)

// Valid reports whether c is one of the known criteria.
func (c Criterion) Valid() bool {
	switch c {
	case CriterionAll, CriterionSector, CriterionInvite:
		return true
	}
	return false
}

// Response is the state of an invitation.
type Response string

const (
	ResponsePending  Response = "pending"
	ResponseAccepted Response = "accepted"
	ResponseDeclined Response = "declined"
)

// User is a registered member.
type User struct {
	Email         string
	PasswordHash  string
	FirstName     string
	LastName      string
	BirthDate     time.Time
	Role          Role
	Sector        *string
	RoleStartDate *time.Time
	CreatedAt     time.Time
}

// DisplayName returns the user's full name.
func (u User) DisplayName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// Sector is an organisational unit owning rooms.
type Sector struct {
	Name        string
	MemberCount int
}

// Room is identified by its name within a sector.
type Room struct {
	Name      string
	Sector    string
	Capacity  int
	Equipment []string
}

// Booking is a reservation of a room. OwnerName is populated on reads.
type Booking struct {
	ID                   string
	Start                time.Time
	End                  time.Time
	Duration             int
	Activity             *string
	ExpectedParticipants *int
	Criterion            Criterion
	Sector               string
	Room                 string
	OwnerEmail           string
	OwnerName            string
	CreatedAt            time.Time
}

// Range returns the interval occupied by the booking.
func (b Booking) Range() scheduler.TimeRange {
	return scheduler.NewTimeRange(b.Start, b.Duration)
}

// BookingChanges lists the columns to update. Nil fields are left untouched;
// an empty Activity clears the column.
type BookingChanges struct {
	Start                *time.Time
	Duration             *int
	Activity             *string
	ExpectedParticipants *int
	Criterion            *Criterion
}

// Empty reports whether no column would change.
func (c BookingChanges) Empty() bool {
	return c.Start == nil && c.Duration == nil && c.Activity == nil && c.ExpectedParticipants == nil && c.Criterion == nil
}

// UserChanges lists the profile columns to update. Nil fields are left untouched.
type UserChanges struct {
	FirstName    *string
	LastName     *string
	PasswordHash *string
}

// Empty reports whether no column would change.
func (c UserChanges) Empty() bool {
	return c.FirstName == nil && c.LastName == nil && c.PasswordHash == nil
}

// Invitation links a user to a booking.
type Invitation struct {
	UserEmail   string
	BookingID   string
	Response    Response
	RespondedAt *time.Time
	Reason      *string
}

// Commitment is a booking seen from an invitee, with the invitation state.
type Commitment struct {
	Booking
	Response    Response
	RespondedAt *time.Time
	Reason      *string
}

// CapacityRow reports accepted participants against room capacity for a booking.
type CapacityRow struct {
	BookingID string
	Activity  *string
	Room      string
	Sector    string
	Accepted  int
	Capacity  int
	Exceeded  bool
}

// DailyLoadRow counts bookings per day and room.
type DailyLoadRow struct {
	Day      string
	Room     string
	Sector   string
	Bookings int
}

// Session is a server side login session.
type Session struct {
	Token     string
	UserEmail string
	CreatedAt time.Time
	ExpiresAt time.Time
	RevokedAt *time.Time
}
