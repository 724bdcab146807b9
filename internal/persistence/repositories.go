package persistence

import (
	"context"
	"time"

	"github.com/example/room-scheduler/internal/scheduler"
)

// BookingFilter narrows booking queries. Zero fields are ignored.
// From and To bound the start instant as [From, To).
type BookingFilter struct {
	ID          string
	Room        string
	Sector      string
	OwnerEmail  string
	From        *time.Time
	To          *time.Time
	Overlapping *scheduler.TimeRange
	ExcludeID   string
}

// InvitationFilter narrows invitation queries.
type InvitationFilter struct {
	BookingID string
	UserEmail string
	Response  Response
}

// CommitmentFilter narrows the bookings a user is invited to.
type CommitmentFilter struct {
	UserEmail        string
	Response         Response
	From             *time.Time
	To               *time.Time
	Overlapping      *scheduler.TimeRange
	ExcludeBookingID string
}

// InvitationResponse records a user's answer to an invitation.
type InvitationResponse struct {
	UserEmail   string
	BookingID   string
	Response    Response
	Reason      *string
	RespondedAt time.Time
}

// CatalogTx reads and maintains sectors and rooms.
type CatalogTx interface {
	FindRoom(ctx context.Context, name, sector string) (Room, error)
	// LockRoom reads the room and holds a write lock on it until the transaction ends.
	LockRoom(ctx context.Context, name, sector string) (Room, error)
	ListRooms(ctx context.Context, sector string) ([]Room, error)
	ListSectors(ctx context.Context) ([]Sector, error)
	FindSector(ctx context.Context, name string) (Sector, error)
	UpsertSector(ctx context.Context, name string) error
	UpsertRoom(ctx context.Context, room Room) error
	IncrementSectorMembers(ctx context.Context, sector string) error
	DecrementSectorMembers(ctx context.Context, sector string) error
}

// UserTx manages users. Deleting a user removes their sessions.
type UserTx interface {
	FindUser(ctx context.Context, email string) (User, error)
	// LockUser reads the user and holds a write lock on it until the transaction ends.
	LockUser(ctx context.Context, email string) (User, error)
	InsertUser(ctx context.Context, user User) error
	UpdateUser(ctx context.Context, email string, changes UserChanges) error
	DeleteUser(ctx context.Context, email string) error
}

// BookingTx manages bookings.
type BookingTx interface {
	FindBooking(ctx context.Context, id string) (Booking, error)
	// LockBooking reads the booking and holds a write lock on it until the transaction ends.
	LockBooking(ctx context.Context, id string) (Booking, error)
	InsertBooking(ctx context.Context, booking Booking) (string, error)
	UpdateBooking(ctx context.Context, id string, changes BookingChanges) error
	DeleteBooking(ctx context.Context, id string) error
	QueryBookings(ctx context.Context, filter BookingFilter) ([]Booking, error)
}

// InvitationTx manages invitations.
type InvitationTx interface {
	InsertInvitation(ctx context.Context, email, bookingID string) error
	FindInvitation(ctx context.Context, email, bookingID string) (Invitation, error)
	UpdateInvitationResponse(ctx context.Context, response InvitationResponse) error
	DeleteInvitationsForBooking(ctx context.Context, bookingID string) (int64, error)
	DeleteInvitationsForUser(ctx context.Context, email string) (int64, error)
	QueryInvitations(ctx context.Context, filter InvitationFilter) ([]Invitation, error)
	// CountAcceptedInvitations counts accepted invitations for the booking,
	// ignoring excludeEmail when it is not empty.
	CountAcceptedInvitations(ctx context.Context, bookingID, excludeEmail string) (int, error)
	QueryCommitments(ctx context.Context, filter CommitmentFilter) ([]Commitment, error)
}

// ReportTx runs aggregate queries.
type ReportTx interface {
	CapacityReport(ctx context.Context) ([]CapacityRow, error)
	DailyLoad(ctx context.Context) ([]DailyLoadRow, error)
}

// SessionTx stores login sessions.
type SessionTx interface {
	CreateSession(ctx context.Context, session Session) error
	GetSession(ctx context.Context, token string) (Session, error)
	RevokeSession(ctx context.Context, token string, revokedAt time.Time) error
	DeleteExpiredSessions(ctx context.Context, reference time.Time) error
}

// Tx is the set of operations available inside a unit of work.
type Tx interface {
	CatalogTx
	UserTx
	BookingTx
	InvitationTx
	ReportTx
	SessionTx
}

// TxFunc runs inside a unit of work. Returning an error aborts it.
type TxFunc func(ctx context.Context, tx Tx) error

// Store demarcates units of work over the booking tables.
type Store interface {
	// WithinTx runs fn in a write transaction. Invariants checked inside fn hold at commit.
	WithinTx(ctx context.Context, fn TxFunc) error
	// WithinReadTx runs fn in a transaction that performs no writes and takes no row locks.
	WithinReadTx(ctx context.Context, fn TxFunc) error
}
