package testfixtures

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/example/room-scheduler/internal/persistence"
)

var (
	userCounter    uint64
	roomCounter    uint64
	bookingCounter uint64
)

// ----------------------------- User fixtures -----------------------------

// UserFixture is a deterministic user record.
type UserFixture struct {
	Email         string
	FirstName     string
	LastName      string
	BirthDate     time.Time
	Role          persistence.Role
	Sector        string
	RoleStartDate *time.Time
	PasswordHash  string
	CreatedAt     time.Time
}

// UserOption configures a UserFixture.
type UserOption func(*UserFixture)

// NewUserFixture returns a student with a unique email.
func NewUserFixture(opts ...UserOption) UserFixture {
	idx := atomic.AddUint64(&userCounter, 1)
	fixture := UserFixture{
		Email:        fmt.Sprintf("user%03d@example.com", idx),
		FirstName:    "User",
		LastName:     fmt.Sprintf("%03d", idx),
		BirthDate:    time.Date(1990, time.May, 1, 0, 0, 0, 0, Location()),
		Role:         persistence.RoleStudent,
		PasswordHash: fmt.Sprintf("hash-%03d", idx),
		CreatedAt:    ReferenceTime().Add(-time.Duration(idx) * time.Hour),
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithUserEmail overrides the generated email.
func WithUserEmail(email string) UserOption {
	return func(f *UserFixture) {
		f.Email = email
	}
}

// WithUserName sets first and last name.
func WithUserName(first, last string) UserOption {
	return func(f *UserFixture) {
		f.FirstName = first
		f.LastName = last
	}
}

// WithUserRole sets the role. Managers get a role start date.
func WithUserRole(role persistence.Role) UserOption {
	return func(f *UserFixture) {
		f.Role = role
		if role == persistence.RoleManager && f.RoleStartDate == nil {
			start := time.Date(2020, time.September, 1, 0, 0, 0, 0, Location())
			f.RoleStartDate = &start
		}
	}
}

// WithUserSector assigns the user to a sector.
func WithUserSector(sector string) UserOption {
	return func(f *UserFixture) {
		f.Sector = sector
	}
}

// WithUserPasswordHash sets the stored password hash.
func WithUserPasswordHash(hash string) UserOption {
	return func(f *UserFixture) {
		f.PasswordHash = hash
	}
}

// Persistence returns the fixture as a persistence.User.
func (f UserFixture) Persistence() persistence.User {
	user := persistence.User{
		Email:         strings.ToLower(f.Email),
		PasswordHash:  f.PasswordHash,
		FirstName:     f.FirstName,
		LastName:      f.LastName,
		BirthDate:     f.BirthDate,
		Role:          f.Role,
		RoleStartDate: f.RoleStartDate,
		CreatedAt:     f.CreatedAt,
	}
	if f.Sector != "" {
		sector := f.Sector
		user.Sector = &sector
	}
	return user
}

// ----------------------------- Room fixtures -----------------------------

// RoomFixture is a deterministic room record.
type RoomFixture struct {
	Name      string
	Sector    string
	Capacity  int
	Equipment []string
}

// RoomOption configures a RoomFixture.
type RoomOption func(*RoomFixture)

// NewRoomFixture returns a room of capacity 10 in sector "Science".
func NewRoomFixture(opts ...RoomOption) RoomFixture {
	idx := atomic.AddUint64(&roomCounter, 1)
	fixture := RoomFixture{
		Name:     fmt.Sprintf("Room %03d", idx),
		Sector:   "Science",
		Capacity: 10,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithRoomName overrides the generated name.
func WithRoomName(name string) RoomOption {
	return func(f *RoomFixture) {
		f.Name = name
	}
}

// WithRoomSector overrides the sector.
func WithRoomSector(sector string) RoomOption {
	return func(f *RoomFixture) {
		f.Sector = sector
	}
}

// WithRoomCapacity overrides the capacity.
func WithRoomCapacity(capacity int) RoomOption {
	return func(f *RoomFixture) {
		f.Capacity = capacity
	}
}

// WithRoomEquipment sets the equipment list.
func WithRoomEquipment(items ...string) RoomOption {
	return func(f *RoomFixture) {
		f.Equipment = append([]string(nil), items...)
	}
}

// Persistence returns the fixture as a persistence.Room.
func (f RoomFixture) Persistence() persistence.Room {
	return persistence.Room{
		Name:      f.Name,
		Sector:    f.Sector,
		Capacity:  f.Capacity,
		Equipment: append([]string(nil), f.Equipment...),
	}
}

// --------------------------- Booking fixtures ----------------------------

// BookingFixture is a deterministic booking record.
type BookingFixture struct {
	ID         string
	Start      time.Time
	Duration   int
	Activity   string
	Criterion  persistence.Criterion
	Room       string
	Sector     string
	OwnerEmail string
	CreatedAt  time.Time
}

// BookingOption configures a BookingFixture.
type BookingOption func(*BookingFixture)

// NewBookingFixture returns a two hour booking on Tuesday of the reference
// week at 10:00. Room and owner must be set by the caller.
func NewBookingFixture(opts ...BookingOption) BookingFixture {
	idx := atomic.AddUint64(&bookingCounter, 1)
	fixture := BookingFixture{
		ID:        fmt.Sprintf("fixture-booking-%03d", idx),
		Start:     At(1, 10),
		Duration:  2,
		Activity:  fmt.Sprintf("Activity %03d", idx),
		Criterion: persistence.CriterionAll,
		Sector:    "Science",
		CreatedAt: ReferenceTime(),
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithBookingID overrides the generated id.
func WithBookingID(id string) BookingOption {
	return func(f *BookingFixture) {
		f.ID = id
	}
}

// WithBookingSlot sets start and duration in hours.
func WithBookingSlot(start time.Time, hours int) BookingOption {
	return func(f *BookingFixture) {
		f.Start = start
		f.Duration = hours
	}
}

// WithBookingRoom places the booking in room.
func WithBookingRoom(room RoomFixture) BookingOption {
	return func(f *BookingFixture) {
		f.Room = room.Name
		f.Sector = room.Sector
	}
}

// WithBookingOwner sets the owner email.
func WithBookingOwner(email string) BookingOption {
	return func(f *BookingFixture) {
		f.OwnerEmail = email
	}
}

// WithBookingActivity overrides the activity label.
func WithBookingActivity(activity string) BookingOption {
	return func(f *BookingFixture) {
		f.Activity = activity
	}
}

// Persistence returns the fixture as a persistence.Booking.
func (f BookingFixture) Persistence() persistence.Booking {
	booking := persistence.Booking{
		ID:         f.ID,
		Start:      f.Start,
		Duration:   f.Duration,
		Criterion:  f.Criterion,
		Sector:     f.Sector,
		Room:       f.Room,
		OwnerEmail: f.OwnerEmail,
		CreatedAt:  f.CreatedAt,
	}
	booking.End = booking.Range().End
	if f.Activity != "" {
		activity := f.Activity
		booking.Activity = &activity
	}
	return booking
}
