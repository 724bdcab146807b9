package application

import (
	"context"

	"github.com/example/room-scheduler/internal/persistence"
	"github.com/example/room-scheduler/internal/scheduler"
)

// OverlapChecker detects conflicting bookings inside the caller's transaction
// so the check and the write that follows are atomic.
type OverlapChecker struct{}

// RoomOverlap returns the id of the first booking of (room, sector) that
// overlaps candidate, ignoring excludeBookingID.
func (OverlapChecker) RoomOverlap(ctx context.Context, tx persistence.Tx, room, sector string, candidate scheduler.TimeRange, excludeBookingID string) (string, bool, error) {
	bookings, err := tx.QueryBookings(ctx, persistence.BookingFilter{
		Room:        room,
		Sector:      sector,
		Overlapping: &candidate,
		ExcludeID:   excludeBookingID,
	})
	if err != nil {
		return "", false, err
	}
	id, found := scheduler.FirstOverlap(candidate, bookingSlots(bookings), excludeBookingID)
	return id, found, nil
}

// UserOverlap returns the id of the first booking the user has accepted that
// overlaps candidate, ignoring excludeBookingID.
func (OverlapChecker) UserOverlap(ctx context.Context, tx persistence.Tx, email string, candidate scheduler.TimeRange, excludeBookingID string) (string, bool, error) {
	commitments, err := tx.QueryCommitments(ctx, persistence.CommitmentFilter{
		UserEmail:        email,
		Response:         persistence.ResponseAccepted,
		Overlapping:      &candidate,
		ExcludeBookingID: excludeBookingID,
	})
	if err != nil {
		return "", false, err
	}
	slots := make([]scheduler.Slot, 0, len(commitments))
	for _, c := range commitments {
		slots = append(slots, scheduler.Slot{ID: c.ID, Range: c.Range()})
	}
	id, found := scheduler.FirstOverlap(candidate, slots, excludeBookingID)
	return id, found, nil
}

func bookingSlots(bookings []persistence.Booking) []scheduler.Slot {
	slots := make([]scheduler.Slot, 0, len(bookings))
	for _, b := range bookings {
		slots = append(slots, scheduler.Slot{ID: b.ID, Range: b.Range()})
	}
	return slots
}
