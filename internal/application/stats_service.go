package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/example/room-scheduler/internal/persistence"
)

// StatsService produces aggregate booking reports.
type StatsService struct {
	store  persistence.Store
	logger *slog.Logger
}

// NewStatsService constructs a StatsService.
func NewStatsService(store persistence.Store, logger *slog.Logger) *StatsService {
	return &StatsService{store: store, logger: defaultLogger(logger)}
}

// CapacityReport compares accepted invitations with room capacity per booking.
func (s *StatsService) CapacityReport(ctx context.Context) (rows []persistence.CapacityRow, err error) {
	if s == nil || s.store == nil {
		return nil, fmt.Errorf("stats store not configured")
	}
	err = s.store.WithinReadTx(ctx, func(ctx context.Context, tx persistence.Tx) error {
		rows, err = tx.CapacityReport(ctx)
		return err
	})
	if err != nil {
		logOutcome(ctx, serviceLogger(ctx, s.logger, "StatsService", "CapacityReport"), err, "capacity report failed", "")
		return nil, err
	}
	return rows, nil
}

// DailyLoad counts bookings per day, room and sector.
func (s *StatsService) DailyLoad(ctx context.Context) (rows []persistence.DailyLoadRow, err error) {
	if s == nil || s.store == nil {
		return nil, fmt.Errorf("stats store not configured")
	}
	err = s.store.WithinReadTx(ctx, func(ctx context.Context, tx persistence.Tx) error {
		rows, err = tx.DailyLoad(ctx)
		return err
	})
	if err != nil {
		logOutcome(ctx, serviceLogger(ctx, s.logger, "StatsService", "DailyLoad"), err, "daily load failed", "")
		return nil, err
	}
	return rows, nil
}
