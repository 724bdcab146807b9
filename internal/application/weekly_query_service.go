package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/room-scheduler/internal/persistence"
	"github.com/example/room-scheduler/internal/scheduler"
)

// WeeklyQueryService answers week scoped schedule reads.
type WeeklyQueryService struct {
	store  persistence.Store
	cache  ScheduleCache
	loc    *time.Location
	logger *slog.Logger
}

// NewWeeklyQueryService constructs a WeeklyQueryService. References are
// interpreted in loc, which defaults to time.Local.
func NewWeeklyQueryService(store persistence.Store, cache ScheduleCache, loc *time.Location, logger *slog.Logger) *WeeklyQueryService {
	if loc == nil {
		loc = time.Local
	}
	return &WeeklyQueryService{
		store:  store,
		cache:  cache,
		loc:    loc,
		logger: defaultLogger(logger),
	}
}

func (s *WeeklyQueryService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "WeeklyQueryService", operation, attrs...)
}

// WeekRange returns the Monday to Sunday week containing reference.
func (s *WeeklyQueryService) WeekRange(reference time.Time) scheduler.Week {
	if s != nil && s.loc != nil {
		reference = reference.In(s.loc)
	}
	return scheduler.WeekOf(reference)
}

// RoomSchedule lists the bookings of (room, sector) starting within the week
// of reference, earliest first.
func (s *WeeklyQueryService) RoomSchedule(ctx context.Context, room, sector string, reference time.Time) (schedule RoomSchedule, err error) {
	if s == nil || s.store == nil {
		err = fmt.Errorf("schedule store not configured")
		return
	}

	room = strings.TrimSpace(room)
	sector = strings.TrimSpace(sector)
	logger := s.loggerWith(ctx, "RoomSchedule", "room", room, "sector", sector)

	v := &ValidationError{}
	if room == "" {
		v.add("room", ErrMissingField)
	}
	if sector == "" {
		v.add("sector", ErrMissingField)
	}
	if reference.IsZero() {
		v.add("date", ErrMissingField)
	}
	if err = v.orNil(); err != nil {
		return
	}

	week := s.WeekRange(reference)
	key := fmt.Sprintf("room:%s:%s:%s", sector, room, week.Start.Format(time.DateOnly))
	schedule, err = cachedRead(ctx, s.cache, logger, key, func() (RoomSchedule, error) {
		return s.loadRoomSchedule(ctx, room, sector, week)
	})
	if err != nil {
		logOutcome(ctx, logger, err, "room schedule failed", "")
		schedule = RoomSchedule{}
	}
	return
}

func (s *WeeklyQueryService) loadRoomSchedule(ctx context.Context, room, sector string, week scheduler.Week) (RoomSchedule, error) {
	schedule := RoomSchedule{Week: week, Room: room, Sector: sector}
	start, limit := week.Start, week.Limit()
	err := s.store.WithinReadTx(ctx, func(ctx context.Context, tx persistence.Tx) error {
		if _, err := tx.FindRoom(ctx, room, sector); err != nil {
			return mapStoreError(err, ErrRoomNotFound)
		}
		bookings, err := tx.QueryBookings(ctx, persistence.BookingFilter{
			Room:   room,
			Sector: sector,
			From:   &start,
			To:     &limit,
		})
		if err != nil {
			return err
		}
		schedule.Bookings = bookings
		return nil
	})
	return schedule, err
}

// UserSchedule lists the bookings email is invited to within the week of
// reference, earliest first, with the invitation state. Callers decide
// whether requester may see email's schedule.
func (s *WeeklyQueryService) UserSchedule(ctx context.Context, requester Principal, email string, reference time.Time) (schedule UserSchedule, err error) {
	if s == nil || s.store == nil {
		err = fmt.Errorf("schedule store not configured")
		return
	}

	email = normalizeEmail(email)
	logger := s.loggerWith(ctx, "UserSchedule", "user", email, "requester", requester.Email)

	v := &ValidationError{}
	if email == "" {
		v.add("email", ErrMissingField)
	}
	if reference.IsZero() {
		v.add("date", ErrMissingField)
	}
	if err = v.orNil(); err != nil {
		return
	}

	week := s.WeekRange(reference)
	key := fmt.Sprintf("user:%s:%s", email, week.Start.Format(time.DateOnly))
	schedule, err = cachedRead(ctx, s.cache, logger, key, func() (UserSchedule, error) {
		return s.loadUserSchedule(ctx, email, week)
	})
	if err != nil {
		logOutcome(ctx, logger, err, "user schedule failed", "")
		schedule = UserSchedule{}
	}
	return
}

func (s *WeeklyQueryService) loadUserSchedule(ctx context.Context, email string, week scheduler.Week) (UserSchedule, error) {
	schedule := UserSchedule{Week: week, Email: email}
	start, limit := week.Start, week.Limit()
	err := s.store.WithinReadTx(ctx, func(ctx context.Context, tx persistence.Tx) error {
		entries, err := tx.QueryCommitments(ctx, persistence.CommitmentFilter{
			UserEmail: email,
			From:      &start,
			To:        &limit,
		})
		if err != nil {
			return err
		}
		schedule.Entries = entries
		return nil
	})
	return schedule, err
}
