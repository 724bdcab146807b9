package sqlstore

import (
	"context"
	"database/sql"
	"strings"

	"github.com/example/room-scheduler/internal/persistence"
)

type invitationRow struct {
	UserEmail   string         `db:"user_email"`
	BookingID   string         `db:"booking_id"`
	Response    string         `db:"response"`
	RespondedAt wallTime       `db:"responded_at"`
	Reason      sql.NullString `db:"reason"`
}

type commitmentRow struct {
	bookingRow
	Response    string         `db:"response"`
	RespondedAt wallTime       `db:"responded_at"`
	Reason      sql.NullString `db:"reason"`
}

func (t *txStore) toInvitation(row invitationRow) persistence.Invitation {
	return persistence.Invitation{
		UserEmail:   row.UserEmail,
		BookingID:   row.BookingID,
		Response:    persistence.Response(row.Response),
		RespondedAt: row.RespondedAt.ptr(t.loc),
		Reason:      stringPtr(row.Reason),
	}
}

func (t *txStore) InsertInvitation(ctx context.Context, email, bookingID string) error {
	_, err := t.exec(ctx, "insert invitation",
		`INSERT INTO invitations (user_email, booking_id, response) VALUES (?, ?, ?)`,
		email, bookingID, string(persistence.ResponsePending))
	return err
}

func (t *txStore) FindInvitation(ctx context.Context, email, bookingID string) (persistence.Invitation, error) {
	var row invitationRow
	if err := t.get(ctx, "find invitation", &row,
		`SELECT user_email, booking_id, response, responded_at, reason FROM invitations
		 WHERE user_email = ? AND booking_id = ?`, email, bookingID); err != nil {
		return persistence.Invitation{}, err
	}
	return t.toInvitation(row), nil
}

func (t *txStore) UpdateInvitationResponse(ctx context.Context, r persistence.InvitationResponse) error {
	n, err := t.exec(ctx, "update invitation response",
		`UPDATE invitations SET response = ?, responded_at = ?, reason = ? WHERE user_email = ? AND booking_id = ?`,
		string(r.Response), t.stamp(r.RespondedAt), nullString(r.Reason), r.UserEmail, r.BookingID)
	if err != nil {
		return err
	}
	if n == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

func (t *txStore) DeleteInvitationsForBooking(ctx context.Context, bookingID string) (int64, error) {
	return t.exec(ctx, "delete invitations", `DELETE FROM invitations WHERE booking_id = ?`, bookingID)
}

func (t *txStore) DeleteInvitationsForUser(ctx context.Context, email string) (int64, error) {
	return t.exec(ctx, "delete user invitations", `DELETE FROM invitations WHERE user_email = ?`, email)
}

func (t *txStore) QueryInvitations(ctx context.Context, filter persistence.InvitationFilter) ([]persistence.Invitation, error) {
	var (
		conds []string
		args  []any
	)
	if filter.BookingID != "" {
		conds = append(conds, "booking_id = ?")
		args = append(args, filter.BookingID)
	}
	if filter.UserEmail != "" {
		conds = append(conds, "user_email = ?")
		args = append(args, filter.UserEmail)
	}
	if filter.Response != "" {
		conds = append(conds, "response = ?")
		args = append(args, string(filter.Response))
	}

	query := `SELECT user_email, booking_id, response, responded_at, reason FROM invitations`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY booking_id, user_email`

	var rows []invitationRow
	if err := t.selectAll(ctx, "query invitations", &rows, query, args...); err != nil {
		return nil, err
	}
	invitations := make([]persistence.Invitation, 0, len(rows))
	for _, row := range rows {
		invitations = append(invitations, t.toInvitation(row))
	}
	return invitations, nil
}

func (t *txStore) CountAcceptedInvitations(ctx context.Context, bookingID, excludeEmail string) (int, error) {
	var count int
	err := t.get(ctx, "count accepted invitations", &count,
		`SELECT COUNT(*) FROM invitations WHERE booking_id = ? AND response = ? AND user_email <> ?`,
		bookingID, string(persistence.ResponseAccepted), excludeEmail)
	return count, err
}

func (t *txStore) QueryCommitments(ctx context.Context, filter persistence.CommitmentFilter) ([]persistence.Commitment, error) {
	conds := []string{"i.user_email = ?"}
	args := []any{filter.UserEmail}
	if filter.Response != "" {
		conds = append(conds, "i.response = ?")
		args = append(args, string(filter.Response))
	}
	if filter.From != nil {
		conds = append(conds, "b.start_at >= ?")
		args = append(args, t.stamp(*filter.From))
	}
	if filter.To != nil {
		conds = append(conds, "b.start_at < ?")
		args = append(args, t.stamp(*filter.To))
	}
	if filter.Overlapping != nil {
		conds = append(conds, "b.start_at < ? AND b.end_at > ?")
		args = append(args, t.stamp(filter.Overlapping.End), t.stamp(filter.Overlapping.Start))
	}
	if filter.ExcludeBookingID != "" {
		conds = append(conds, "b.id <> ?")
		args = append(args, filter.ExcludeBookingID)
	}

	query := `SELECT ` + bookingColumns + `, i.response, i.responded_at, i.reason
		FROM invitations i
		JOIN bookings b ON b.id = i.booking_id
		LEFT JOIN users u ON u.email = b.owner_email
		WHERE ` + strings.Join(conds, " AND ") + `
		ORDER BY b.start_at, b.id`

	var rows []commitmentRow
	if err := t.selectAll(ctx, "query commitments", &rows, query, args...); err != nil {
		return nil, err
	}
	commitments := make([]persistence.Commitment, 0, len(rows))
	for _, row := range rows {
		commitments = append(commitments, persistence.Commitment{
			Booking:     t.toBooking(row.bookingRow),
			Response:    persistence.Response(row.Response),
			RespondedAt: row.RespondedAt.ptr(t.loc),
			Reason:      stringPtr(row.Reason),
		})
	}
	return commitments, nil
}
