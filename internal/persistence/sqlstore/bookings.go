package sqlstore

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"

	"github.com/example/room-scheduler/internal/persistence"
)

type bookingRow struct {
	ID                   string         `db:"id"`
	StartAt              wallTime       `db:"start_at"`
	EndAt                wallTime       `db:"end_at"`
	Duration             int            `db:"duration_hours"`
	Activity             sql.NullString `db:"activity"`
	ExpectedParticipants sql.NullInt64  `db:"expected_participants"`
	Criterion            string         `db:"criterion"`
	Room                 string         `db:"room"`
	Sector               string         `db:"sector"`
	OwnerEmail           string         `db:"owner_email"`
	OwnerName            string         `db:"owner_name"`
	CreatedAt            wallTime       `db:"created_at"`
}

const bookingColumns = `b.id, b.start_at, b.end_at, b.duration_hours, b.activity, b.expected_participants,
	b.criterion, b.room, b.sector, b.owner_email,
	COALESCE(u.first_name || ' ' || u.last_name, '') AS owner_name, b.created_at`

const bookingFrom = ` FROM bookings b LEFT JOIN users u ON u.email = b.owner_email`

func (t *txStore) toBooking(row bookingRow) persistence.Booking {
	return persistence.Booking{
		ID:                   row.ID,
		Start:                row.StartAt.in(t.loc),
		End:                  row.EndAt.in(t.loc),
		Duration:             row.Duration,
		Activity:             stringPtr(row.Activity),
		ExpectedParticipants: intPtr(row.ExpectedParticipants),
		Criterion:            persistence.Criterion(row.Criterion),
		Sector:               row.Sector,
		Room:                 row.Room,
		OwnerEmail:           row.OwnerEmail,
		OwnerName:            strings.TrimSpace(row.OwnerName),
		CreatedAt:            row.CreatedAt.in(t.loc),
	}
}

func (t *txStore) FindBooking(ctx context.Context, id string) (persistence.Booking, error) {
	return t.findBooking(ctx, id, "")
}

func (t *txStore) LockBooking(ctx context.Context, id string) (persistence.Booking, error) {
	return t.findBooking(ctx, id, t.dialect.lockOf("b"))
}

func (t *txStore) findBooking(ctx context.Context, id, lock string) (persistence.Booking, error) {
	var row bookingRow
	if err := t.get(ctx, "find booking", &row, `SELECT `+bookingColumns+bookingFrom+` WHERE b.id = ?`+lock, id); err != nil {
		return persistence.Booking{}, err
	}
	return t.toBooking(row), nil
}

func (t *txStore) InsertBooking(ctx context.Context, b persistence.Booking) (string, error) {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	criterion := b.Criterion
	if criterion == "" {
		criterion = persistence.CriterionAll
	}
	end := b.End
	if end.IsZero() {
		end = b.Range().End
	}
	_, err := t.exec(ctx, "insert booking",
		`INSERT INTO bookings (id, start_at, end_at, duration_hours, activity, expected_participants,
		 criterion, room, sector, owner_email, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, t.stamp(b.Start), t.stamp(end), b.Duration, nullString(b.Activity), nullInt(b.ExpectedParticipants),
		string(criterion), b.Room, b.Sector, b.OwnerEmail, t.stamp(b.CreatedAt))
	if err != nil {
		return "", err
	}
	return b.ID, nil
}

// UpdateBooking writes only the columns present in changes. end_at follows
// start_at and duration_hours whenever either of them changes.
func (t *txStore) UpdateBooking(ctx context.Context, id string, changes persistence.BookingChanges) error {
	if changes.Empty() {
		return nil
	}

	var (
		sets []string
		args []any
	)
	if changes.Start != nil || changes.Duration != nil {
		current, err := t.FindBooking(ctx, id)
		if err != nil {
			return err
		}
		if changes.Start != nil {
			current.Start = *changes.Start
			sets = append(sets, "start_at = ?")
			args = append(args, t.stamp(current.Start))
		}
		if changes.Duration != nil {
			current.Duration = *changes.Duration
			sets = append(sets, "duration_hours = ?")
			args = append(args, current.Duration)
		}
		sets = append(sets, "end_at = ?")
		args = append(args, t.stamp(current.Range().End))
	}
	if changes.Activity != nil {
		sets = append(sets, "activity = ?")
		args = append(args, nullString(changes.Activity))
	}
	if changes.ExpectedParticipants != nil {
		sets = append(sets, "expected_participants = ?")
		args = append(args, *changes.ExpectedParticipants)
	}
	if changes.Criterion != nil {
		sets = append(sets, "criterion = ?")
		args = append(args, string(*changes.Criterion))
	}

	args = append(args, id)
	n, err := t.exec(ctx, "update booking", `UPDATE bookings SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return err
	}
	if n == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

func (t *txStore) DeleteBooking(ctx context.Context, id string) error {
	n, err := t.exec(ctx, "delete booking", `DELETE FROM bookings WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

func (t *txStore) QueryBookings(ctx context.Context, filter persistence.BookingFilter) ([]persistence.Booking, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, values ...any) {
		conds = append(conds, cond)
		args = append(args, values...)
	}
	if filter.ID != "" {
		add("b.id = ?", filter.ID)
	}
	if filter.Room != "" {
		add("b.room = ?", filter.Room)
	}
	if filter.Sector != "" {
		add("b.sector = ?", filter.Sector)
	}
	if filter.OwnerEmail != "" {
		add("b.owner_email = ?", filter.OwnerEmail)
	}
	if filter.From != nil {
		add("b.start_at >= ?", t.stamp(*filter.From))
	}
	if filter.To != nil {
		add("b.start_at < ?", t.stamp(*filter.To))
	}
	if filter.Overlapping != nil {
		add("b.start_at < ? AND b.end_at > ?", t.stamp(filter.Overlapping.End), t.stamp(filter.Overlapping.Start))
	}
	if filter.ExcludeID != "" {
		add("b.id <> ?", filter.ExcludeID)
	}

	query := `SELECT ` + bookingColumns + bookingFrom
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY b.start_at, b.id`

	var rows []bookingRow
	if err := t.selectAll(ctx, "query bookings", &rows, query, args...); err != nil {
		return nil, err
	}
	bookings := make([]persistence.Booking, 0, len(rows))
	for _, row := range rows {
		bookings = append(bookings, t.toBooking(row))
	}
	return bookings, nil
}
