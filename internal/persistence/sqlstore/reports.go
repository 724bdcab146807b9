package sqlstore

import (
	"context"
	"database/sql"

	"github.com/example/room-scheduler/internal/persistence"
)

type capacityRow struct {
	BookingID string         `db:"booking_id"`
	Activity  sql.NullString `db:"activity"`
	Room      string         `db:"room"`
	Sector    string         `db:"sector"`
	Capacity  int            `db:"capacity"`
	Accepted  int            `db:"accepted"`
}

type dailyLoadRow struct {
	Day      string `db:"day"`
	Room     string `db:"room"`
	Sector   string `db:"sector"`
	Bookings int    `db:"bookings"`
}

func (t *txStore) CapacityReport(ctx context.Context) ([]persistence.CapacityRow, error) {
	var rows []capacityRow
	err := t.selectAll(ctx, "capacity report", &rows,
		`SELECT b.id AS booking_id, b.activity, b.room, b.sector, r.capacity,
			COUNT(i.user_email) AS accepted
		 FROM bookings b
		 JOIN rooms r ON r.name = b.room AND r.sector = b.sector
		 LEFT JOIN invitations i ON i.booking_id = b.id AND i.response = ?
		 GROUP BY b.id, b.activity, b.room, b.sector, r.capacity, b.start_at
		 ORDER BY b.start_at, b.id`,
		string(persistence.ResponseAccepted))
	if err != nil {
		return nil, err
	}
	report := make([]persistence.CapacityRow, 0, len(rows))
	for _, row := range rows {
		report = append(report, persistence.CapacityRow{
			BookingID: row.BookingID,
			Activity:  stringPtr(row.Activity),
			Room:      row.Room,
			Sector:    row.Sector,
			Accepted:  row.Accepted,
			Capacity:  row.Capacity,
			Exceeded:  row.Accepted > row.Capacity,
		})
	}
	return report, nil
}

func (t *txStore) DailyLoad(ctx context.Context) ([]persistence.DailyLoadRow, error) {
	day := t.dialect.day("b.start_at")
	var rows []dailyLoadRow
	err := t.selectAll(ctx, "daily load", &rows,
		`SELECT `+day+` AS day, b.room, b.sector, COUNT(*) AS bookings
		 FROM bookings b
		 GROUP BY `+day+`, b.room, b.sector
		 ORDER BY day, b.room, b.sector`)
	if err != nil {
		return nil, err
	}
	load := make([]persistence.DailyLoadRow, 0, len(rows))
	for _, row := range rows {
		load = append(load, persistence.DailyLoadRow{Day: row.Day, Room: row.Room, Sector: row.Sector, Bookings: row.Bookings})
	}
	return load, nil
}
